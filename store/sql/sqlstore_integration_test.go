package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-inbox/core"
	inboxmigrations "github.com/goliatone/go-inbox/migrations"
	sqlstore "github.com/goliatone/go-inbox/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-inbox-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"inbox_messages",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "inbox_messages" {
		t.Fatalf("expected inbox_messages table, got %q", tableName)
	}
}

func TestMessageStore_InsertIsIdempotentOnMessageID(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newMessageStore(t, client)

	first := newTestMessage("msg_dup_1", "+15551230001", "2026-01-01T10:00:00Z", "first delivery")
	stored, duplicate, err := store.Insert(ctx, first)
	if err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if duplicate {
		t.Fatalf("expected first insert to create")
	}
	if stored.MessageID != "msg_dup_1" {
		t.Fatalf("expected stored message id msg_dup_1, got %q", stored.MessageID)
	}

	redelivery := newTestMessage("msg_dup_1", "+15559990000", "2026-02-01T10:00:00Z", "changed body")
	existing, duplicate, err := store.Insert(ctx, redelivery)
	if err != nil {
		t.Fatalf("insert redelivery: %v", err)
	}
	if !duplicate {
		t.Fatalf("expected redelivery to report duplicate")
	}
	if existing.ID != stored.ID {
		t.Fatalf("expected original row back, got id %q want %q", existing.ID, stored.ID)
	}
	if existing.From != first.From {
		t.Fatalf("expected original sender preserved, got %q", existing.From)
	}
	if !existing.IngestedAt.Equal(stored.IngestedAt) {
		t.Fatalf("expected original ingested_at preserved")
	}

	var count int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM inbox_messages WHERE message_id = ?",
		"msg_dup_1",
	).Scan(ctx, &count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row for msg_dup_1, got %d", count)
	}
}

func TestMessageStore_ParallelInsertCreatesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newMessageStore(t, client)

	const workers = 16
	type result struct {
		id        string
		duplicate bool
		err       error
	}
	results := make(chan result, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidate := newTestMessage(
				"msg_parallel_1",
				"+15551230001",
				"2026-01-01T10:00:00Z",
				fmt.Sprintf("delivery from worker %d", i),
			)
			stored, duplicate, callErr := store.Insert(ctx, candidate)
			results <- result{id: stored.ID, duplicate: duplicate, err: callErr}
		}(i)
	}
	wg.Wait()
	close(results)

	uniqueIDs := map[string]struct{}{}
	createdCount := 0
	for item := range results {
		if item.err != nil {
			t.Fatalf("parallel insert: %v", item.err)
		}
		uniqueIDs[item.id] = struct{}{}
		if !item.duplicate {
			createdCount++
		}
	}
	if len(uniqueIDs) != 1 {
		t.Fatalf("expected exactly one unique row id, got %d", len(uniqueIDs))
	}
	if createdCount != 1 {
		t.Fatalf("expected exactly one created result, got %d", createdCount)
	}
}

func TestMessageStore_ListOrdersAndPaginates(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newMessageStore(t, client)

	seed := []core.Message{
		newTestMessage("msg_b", "+15551230001", "2026-01-01T10:00:00Z", "same instant, later id"),
		newTestMessage("msg_a", "+15551230001", "2026-01-01T10:00:00Z", "same instant, earlier id"),
		newTestMessage("msg_c", "+15551230002", "2026-01-01T09:00:00Z", "earliest instant"),
		newTestMessage("msg_d", "+15551230002", "2026-01-01T11:00:00Z", "latest instant"),
	}
	for _, message := range seed {
		if _, _, err := store.Insert(ctx, message); err != nil {
			t.Fatalf("seed insert %s: %v", message.MessageID, err)
		}
	}

	page, err := store.List(ctx, core.ListRequest{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 {
		t.Fatalf("expected total 4, got %d", page.Total)
	}
	wantOrder := []string{"msg_c", "msg_a", "msg_b", "msg_d"}
	if len(page.Items) != len(wantOrder) {
		t.Fatalf("expected %d items, got %d", len(wantOrder), len(page.Items))
	}
	for i, item := range page.Items {
		if item.MessageID != wantOrder[i] {
			t.Fatalf("position %d: got %q want %q", i, item.MessageID, wantOrder[i])
		}
	}

	window, err := store.List(ctx, core.ListRequest{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if window.Total != 4 {
		t.Fatalf("expected window total 4, got %d", window.Total)
	}
	if len(window.Items) != 2 {
		t.Fatalf("expected 2 windowed items, got %d", len(window.Items))
	}
	if window.Items[0].MessageID != "msg_a" || window.Items[1].MessageID != "msg_b" {
		t.Fatalf("unexpected window contents: %q, %q", window.Items[0].MessageID, window.Items[1].MessageID)
	}
}

func TestMessageStore_ListAppliesFiltersConjunctively(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newMessageStore(t, client)

	seed := []core.Message{
		newTestMessage("msg_f1", "+15551230001", "2026-01-01T10:00:00Z", "Project update: shipping"),
		newTestMessage("msg_f2", "+15551230001", "2026-01-03T10:00:00Z", "lunch plans"),
		newTestMessage("msg_f3", "+15551230002", "2026-01-03T11:00:00Z", "project kickoff"),
		newTestMessage("msg_f4", "+15551230001", "2026-01-05T10:00:00Z", "PROJECT retro notes"),
	}
	for _, message := range seed {
		if _, _, err := store.Insert(ctx, message); err != nil {
			t.Fatalf("seed insert %s: %v", message.MessageID, err)
		}
	}
	noText := newTestMessage("msg_f5", "+15551230001", "2026-01-06T10:00:00Z", "")
	noText.Text = nil
	if _, _, err := store.Insert(ctx, noText); err != nil {
		t.Fatalf("seed insert msg_f5: %v", err)
	}

	since := mustParseTime(t, "2026-01-02T00:00:00Z")
	page, err := store.List(ctx, core.ListRequest{
		Filter: core.ListFilter{
			From:  "+15551230001",
			Since: &since,
			Query: "project",
		},
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected 1 match, got %d", page.Total)
	}
	if page.Items[0].MessageID != "msg_f4" {
		t.Fatalf("expected msg_f4, got %q", page.Items[0].MessageID)
	}

	boundary, err := store.List(ctx, core.ListRequest{
		Filter: core.ListFilter{Since: &seed[1].Timestamp},
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("list since boundary: %v", err)
	}
	if boundary.Total != 4 {
		t.Fatalf("expected since filter to be inclusive, got total %d", boundary.Total)
	}
}

func TestMessageStore_StatsDescribeOneSnapshot(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newMessageStore(t, client)

	empty, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats on empty store: %v", err)
	}
	if empty.TotalMessages != 0 || empty.DistinctSenders != 0 {
		t.Fatalf("expected zero counts on empty store, got %+v", empty)
	}
	if empty.Earliest != nil || empty.Latest != nil {
		t.Fatalf("expected nil ts bounds on empty store")
	}
	if len(empty.TopSenders) != 0 {
		t.Fatalf("expected no top senders on empty store, got %d", len(empty.TopSenders))
	}

	seed := []core.Message{
		newTestMessage("msg_s1", "+15551230002", "2026-01-01T10:00:00Z", "a"),
		newTestMessage("msg_s2", "+15551230002", "2026-01-02T10:00:00Z", "b"),
		newTestMessage("msg_s3", "+15551230001", "2026-01-03T10:00:00Z", "c"),
		newTestMessage("msg_s4", "+15551230001", "2026-01-04T10:00:00Z", "d"),
		newTestMessage("msg_s5", "+15551230003", "2026-01-05T10:00:00Z", "e"),
	}
	for _, message := range seed {
		if _, _, err := store.Insert(ctx, message); err != nil {
			t.Fatalf("seed insert %s: %v", message.MessageID, err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalMessages != 5 {
		t.Fatalf("expected 5 total messages, got %d", stats.TotalMessages)
	}
	if stats.DistinctSenders != 3 {
		t.Fatalf("expected 3 distinct senders, got %d", stats.DistinctSenders)
	}
	if stats.Earliest == nil || !stats.Earliest.Equal(seed[0].Timestamp) {
		t.Fatalf("unexpected earliest ts: %v", stats.Earliest)
	}
	if stats.Latest == nil || !stats.Latest.Equal(seed[4].Timestamp) {
		t.Fatalf("unexpected latest ts: %v", stats.Latest)
	}

	wantSenders := []core.SenderCount{
		{Sender: "+15551230001", Count: 2},
		{Sender: "+15551230002", Count: 2},
		{Sender: "+15551230003", Count: 1},
	}
	if len(stats.TopSenders) != len(wantSenders) {
		t.Fatalf("expected %d top senders, got %d", len(wantSenders), len(stats.TopSenders))
	}
	for i, want := range wantSenders {
		if stats.TopSenders[i] != want {
			t.Fatalf("top sender %d: got %+v want %+v", i, stats.TopSenders[i], want)
		}
	}
}

func TestMessageStore_StatsCapsLeaderboard(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newMessageStore(t, client)

	for i := 0; i < 12; i++ {
		message := newTestMessage(
			fmt.Sprintf("msg_cap_%02d", i),
			fmt.Sprintf("+1555999%04d", i),
			"2026-01-01T10:00:00Z",
			"leaderboard seed",
		)
		if _, _, err := store.Insert(ctx, message); err != nil {
			t.Fatalf("seed insert %s: %v", message.MessageID, err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.DistinctSenders != 12 {
		t.Fatalf("expected 12 distinct senders, got %d", stats.DistinctSenders)
	}
	if len(stats.TopSenders) != core.MaxTopSenders {
		t.Fatalf("expected leaderboard capped at %d, got %d", core.MaxTopSenders, len(stats.TopSenders))
	}
	for i := 1; i < len(stats.TopSenders); i++ {
		if stats.TopSenders[i-1].Sender > stats.TopSenders[i].Sender {
			t.Fatalf("expected equal-count senders ordered ascending, got %q before %q",
				stats.TopSenders[i-1].Sender, stats.TopSenders[i].Sender)
		}
	}
}

func TestMessageStore_ReadyReflectsSchema(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newMessageStore(t, client)
	if !store.Ready(ctx) {
		t.Fatalf("expected migrated store to report ready")
	}

	if _, err := client.DB().ExecContext(ctx, "DROP TABLE inbox_messages"); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if store.Ready(ctx) {
		t.Fatalf("expected store without table to report not ready")
	}
}

func newMessageStore(t *testing.T, client *persistence.Client) core.MessageStore {
	t.Helper()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.MessageStore()
	if store == nil {
		t.Fatalf("expected message store from factory")
	}
	return store
}

func newTestMessage(messageID, from, ts, text string) core.Message {
	message := core.Message{
		ID:         uuid.NewString(),
		MessageID:  messageID,
		From:       from,
		To:         "+15550000000",
		IngestedAt: time.Now().UTC(),
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	message.Timestamp = parsed.UTC()
	if text != "" {
		value := text
		message.Text = &value
	}
	return message
}

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed.UTC()
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:inbox-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = inboxmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != inboxmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, inboxmigrations.WithValidationTargets(inboxmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

package inbox_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	inbox "github.com/goliatone/go-inbox"
	"github.com/goliatone/go-inbox/adapters/gocommand"
	inboxcommand "github.com/goliatone/go-inbox/command"
	"github.com/goliatone/go-inbox/core"
	inboxmigrations "github.com/goliatone/go-inbox/migrations"
	inboxquery "github.com/goliatone/go-inbox/query"
	sqlstore "github.com/goliatone/go-inbox/store/sql"
	"github.com/goliatone/go-inbox/transport"
	"github.com/goliatone/go-inbox/webhooks"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const integrationSecret = "integration-secret"

// Composes the real stack end to end: SQLite persistence, migrations, the
// repository factory, the core service, the facade, and the command/query
// dispatcher. No component is stubbed.
func TestComposition_SignedWebhookFlowsThroughDispatcher(t *testing.T) {
	ctx := context.Background()
	svc, cleanup := newIntegrationService(t)
	defer cleanup()

	facade, err := inbox.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	adapter := gocommand.NewRegistryAdapter(gocmd.NewRegistry())
	ingestSub, err := gocommand.RegisterAndSubscribe(adapter, facade.Commands().IngestMessage)
	if err != nil {
		t.Fatalf("subscribe ingest command: %v", err)
	}
	defer ingestSub.Unsubscribe()
	listSub, err := gocommand.RegisterAndSubscribeQuery(adapter, facade.Queries().ListMessages)
	if err != nil {
		t.Fatalf("subscribe list query: %v", err)
	}
	defer listSub.Unsubscribe()

	body := []byte(`{"message_id":"msg_e2e_1","from":"+15551230001","to":"+15550000000","ts":"2026-01-02T10:00:00Z","text":"dispatched"}`)
	msg := inboxcommand.IngestMessageMessage{
		Request: core.IngestRequest{
			Body:      body,
			Signature: webhooks.Sign(integrationSecret, body),
		},
	}

	collector := gocmd.NewResult[core.IngestResult]()
	dispatchCtx := gocmd.ContextWithResult(ctx, collector)
	if err := gocommand.Dispatch(dispatchCtx, msg); err != nil {
		t.Fatalf("dispatch ingest: %v", err)
	}
	result, ok := collector.Load()
	if !ok || result.Outcome != core.IngestOutcomeCreated {
		t.Fatalf("expected created outcome, got %#v", result)
	}

	// Redelivery of the same payload must acknowledge without a second row.
	collector = gocmd.NewResult[core.IngestResult]()
	dispatchCtx = gocmd.ContextWithResult(ctx, collector)
	if err := gocommand.Dispatch(dispatchCtx, msg); err != nil {
		t.Fatalf("dispatch redelivery: %v", err)
	}
	result, ok = collector.Load()
	if !ok || result.Outcome != core.IngestOutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %#v", result)
	}

	page, err := gocommand.Query[inboxquery.ListMessagesMessage, core.ListPage](
		ctx,
		inboxquery.ListMessagesMessage{},
	)
	if err != nil {
		t.Fatalf("query messages: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("expected exactly one stored message, got %#v", page)
	}
	if page.Items[0].MessageID != "msg_e2e_1" {
		t.Fatalf("unexpected stored message: %#v", page.Items[0])
	}
}

func TestComposition_HTTPSurfaceServesStoredMessages(t *testing.T) {
	svc, cleanup := newIntegrationService(t)
	defer cleanup()

	router := transport.NewRouter(svc, transport.RouterOptions{})
	server := httptest.NewServer(router)
	defer server.Close()

	body := []byte(`{"message_id":"msg_http_1","from":"+15551230001","to":"+15550000000","ts":"2026-01-02T10:00:00Z","text":"over http"}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/webhook", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("build webhook request: %v", err)
	}
	req.Header.Set("X-Signature", webhooks.Sign(integrationSecret, body))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Tampered body with the old signature must be rejected.
	tampered, err := http.NewRequest(http.MethodPost, server.URL+"/webhook", strings.NewReader(`{"message_id":"msg_http_2"}`))
	if err != nil {
		t.Fatalf("build tampered request: %v", err)
	}
	tampered.Header.Set("X-Signature", webhooks.Sign(integrationSecret, body))
	resp, err = http.DefaultClient.Do(tampered)
	if err != nil {
		t.Fatalf("post tampered webhook: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered payload, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/messages?from=%2B15551230001")
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func newIntegrationService(t *testing.T) (*core.Service, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:inbox-e2e-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	client, err := persistence.New(integrationPersistenceConfig{dsn: dsn}, sqlDB, sqlitedialect.New())
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

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		t.Fatalf("new repository factory: %v", err)
	}

	cfg := inbox.DefaultConfig()
	cfg.WebhookSecret = integrationSecret

	svc, err := inbox.NewService(cfg,
		inbox.WithPersistenceClient(client),
		inbox.WithRepositoryFactory(factory),
		inbox.WithSignatureVerifier(webhooks.NewHMACVerifier(integrationSecret)),
	)
	if err != nil {
		_ = client.Close()
		t.Fatalf("new service: %v", err)
	}

	return svc, func() {
		_ = client.Close()
	}
}

type integrationPersistenceConfig struct {
	dsn string
}

func (c integrationPersistenceConfig) GetDebug() bool                { return false }
func (c integrationPersistenceConfig) GetDriver() string             { return "sqlite3" }
func (c integrationPersistenceConfig) GetServer() string             { return c.dsn }
func (c integrationPersistenceConfig) GetPingTimeout() time.Duration { return time.Second }
func (c integrationPersistenceConfig) GetOtelIdentifier() string     { return "go-inbox-e2e" }

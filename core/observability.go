package core

import (
	"context"
	"sort"
	"strings"
	"time"
)

// observeIngest records the terminal outcome of one ingestion attempt.
// The outcome tag maps 1:1 onto the four webhook counters; that mapping
// is an externally visible contract.
func (s *Service) observeIngest(
	ctx context.Context,
	startedAt time.Time,
	result IngestResult,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	contextFields := cloneFields(fields)
	contextFields["event_type"] = "webhook_ingest"
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()

	if err != nil {
		contextFields["error"] = err.Error()
		tags := map[string]string{"result": "error"}
		s.recordCounter(ctx, "inbox.webhook_ingest.total", 1, tags)
		s.recordHistogram(ctx, "inbox.webhook_ingest.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)
		s.logError(ctx, "webhook ingest failed", contextFields)
		return
	}

	contextFields["result"] = string(result.Outcome)
	tags := map[string]string{"result": string(result.Outcome)}
	s.recordCounter(ctx, "inbox.webhook_ingest.total", 1, tags)
	s.recordHistogram(ctx, "inbox.webhook_ingest.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	switch result.Outcome {
	case IngestOutcomeInvalidSignature:
		s.logError(ctx, "webhook ingest rejected: invalid signature", contextFields)
	case IngestOutcomeValidationError:
		s.logError(ctx, "webhook ingest rejected: validation error", contextFields)
	default:
		s.logInfo(ctx, "webhook ingest processed", contextFields)
	}
}

func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}

	s.recordCounter(ctx, "inbox."+operation+".total", 1, tags)
	s.recordHistogram(ctx, "inbox."+operation+".duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		s.logError(ctx, operation+" failed", contextFields)
		return
	}
	s.logInfo(ctx, operation+" succeeded", contextFields)
}

func (s *Service) logInfo(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "info", message, fields)
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "error", message, fields)
}

func (s *Service) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (s *Service) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (s *Service) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}

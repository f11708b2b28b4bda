package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	InboxErrorBadInput        = "INBOX_BAD_INPUT"
	InboxErrorUnauthorized    = "INBOX_UNAUTHORIZED"
	InboxErrorStoreFailed     = "INBOX_STORE_OPERATION_FAILED"
	InboxErrorNotConfigured   = "INBOX_NOT_CONFIGURED"
	InboxErrorInternal        = "INBOX_INTERNAL_ERROR"
	InboxErrorTimeoutExceeded = "INBOX_TIMEOUT"
)

func inboxErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureInboxErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return newInboxError(err.Error(), goerrors.CategoryAuth, InboxErrorUnauthorized)
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "context canceled"):
		return newInboxError(err.Error(), goerrors.CategoryOperation, InboxErrorTimeoutExceeded)
	case strings.Contains(msg, "not configured"):
		return newInboxError(err.Error(), goerrors.CategoryInternal, InboxErrorNotConfigured)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newInboxError(err.Error(), goerrors.CategoryBadInput, InboxErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureInboxErrorEnvelope(mapped)
}

func newInboxError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureInboxErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureInboxErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = inboxHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultInboxTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultInboxTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return InboxErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return InboxErrorUnauthorized
	case goerrors.CategoryOperation:
		return InboxErrorStoreFailed
	default:
		return InboxErrorInternal
	}
}

func inboxHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return http.StatusUnauthorized
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

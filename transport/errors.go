package transport

import (
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-inbox/core"
)

type errorBody struct {
	Message    string                `json:"message"`
	TextCode   string                `json:"text_code"`
	Violations []core.FieldViolation `json:"violations,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.InboxErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return core.InboxErrorUnauthorized
	case goerrors.CategoryOperation:
		return core.InboxErrorStoreFailed
	default:
		return core.InboxErrorInternal
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errorBody{
		Message:  "An unexpected error occurred",
		TextCode: core.InboxErrorInternal,
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.Code > 0 {
			status = rich.Code
		} else {
			status = categoryStatus(rich.Category)
		}
		body.Message = rich.Message
		body.TextCode = rich.TextCode
		if body.TextCode == "" {
			body.TextCode = transportTextCode(rich.Category)
		}
		for _, fieldErr := range rich.AllValidationErrors() {
			body.Violations = append(body.Violations, core.FieldViolation{
				Location: fieldErr.Field,
				Message:  fieldErr.Message,
			})
		}
	} else if err != nil {
		body.Message = err.Error()
	}

	writeJSON(w, status, errorEnvelope{Error: body})
}

func categoryStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return http.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

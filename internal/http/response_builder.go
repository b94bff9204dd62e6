package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrNegativeValue,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrInvalidInstallments,
	core.ErrInvalidPaymentDay,
	core.ErrUnknownKind,
	core.ErrEmptyCategoryName,
	core.ErrCategoryNameTooLong,
	core.ErrInvalidGoal,
	core.ErrEmptyName,
	core.ErrInvalidEmail,
	auth.ErrWeakPassword,
	auth.ErrPasswordTooLong,
	services.ErrUnknownCategory,
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, ledger.ErrNoInstallmentPlan):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// writeServiceError answers with the status of err. Internal errors are
// logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.FromContext(r.Context()).Fail(r.Context(), "Request failed", err, log.FieldPath, r.URL.Path)
		msg = "internal error"
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusUnauthorized:
		msg = services.ErrInvalidCredentials.Error()
	}
	writeError(w, status, msg)
}

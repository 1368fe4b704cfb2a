package httpapi

import (
	"errors"
	"net/http"

	"github.com/jrivasm/contably/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }

// respondErr maps domain sentinel errors onto HTTP statuses with stable
// codes: 404 for missing rows, 409 for state conflicts, 422 for
// invariant violations, 400 otherwise.
func respondErr(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not_found", "not_found")
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, msg, "forbidden")
	case errors.Is(err, errs.ErrNotDraft):
		writeErr(w, http.StatusConflict, msg, "not_draft")
	case errors.Is(err, errs.ErrStateConflict):
		writeErr(w, http.StatusConflict, msg, "state_conflict")
	case errors.Is(err, errs.ErrReconciled):
		writeErr(w, http.StatusConflict, msg, "already_reconciled")
	case errors.Is(err, errs.ErrAccountInUse):
		writeErr(w, http.StatusConflict, msg, "account_in_use")
	case errors.Is(err, errs.ErrCodeExists):
		writeErr(w, http.StatusConflict, msg, "code_exists")
	case errors.Is(err, errs.ErrImmutable):
		writeErr(w, http.StatusConflict, msg, "immutable")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, msg, "conflict")
	case errors.Is(err, errs.ErrUnbalanced):
		writeErr(w, http.StatusUnprocessableEntity, msg, "unbalanced_entry")
	case errors.Is(err, errs.ErrInsufficientLines):
		writeErr(w, http.StatusUnprocessableEntity, msg, "too_few_lines")
	case errors.Is(err, errs.ErrInvalidAccount):
		writeErr(w, http.StatusUnprocessableEntity, msg, "invalid_account")
	case errors.Is(err, errs.ErrNoLines):
		writeErr(w, http.StatusUnprocessableEntity, msg, "no_lines")
	case errors.Is(err, errs.ErrOverApplied):
		writeErr(w, http.StatusUnprocessableEntity, msg, "over_applied")
	case errors.Is(err, errs.ErrAmountMismatch):
		writeErr(w, http.StatusUnprocessableEntity, msg, "amount_mismatch")
	case errors.Is(err, errs.ErrPostingProfile):
		writeErr(w, http.StatusUnprocessableEntity, msg, "posting_profile_missing")
	case errors.Is(err, errs.ErrInvalid):
		writeErr(w, http.StatusBadRequest, msg, "validation_error")
	default:
		writeErr(w, http.StatusBadRequest, msg, "validation_error")
	}
}

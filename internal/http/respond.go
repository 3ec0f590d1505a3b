package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Override names the request flag that bypasses a state guard, set only
	// for the two escapable conflicts.
	Override string `json:"override,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps the core error taxonomy onto HTTP statuses: not-found to
// 404, validation to 422, state conflicts to 409. Anything unrecognized is a
// 500 with a generic body so internals do not leak.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classifyError(err)

	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		detail = errorDetail{Code: "internal", Message: "internal server error"}
	}

	respondJSON(w, status, errorBody{Error: detail})
}

func classifyError(err error) (int, errorDetail) {
	var notFound *core.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, errorDetail{Code: "not_found", Message: notFound.Error()}
	}

	var insufficient *core.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return http.StatusConflict, errorDetail{
			Code:     "insufficient_balance",
			Message:  insufficient.Error(),
			Override: "allowNegative",
		}
	}

	var hasBalance *core.AccountHasBalanceError
	if errors.As(err, &hasBalance) {
		return http.StatusConflict, errorDetail{
			Code:     "account_has_balance",
			Message:  hasBalance.Error(),
			Override: "force",
		}
	}

	var conflictCode string
	switch {
	case errors.Is(err, core.ErrSameAccountTransfer):
		conflictCode = "same_account_transfer"
	case isAs[*core.AccountHasTransactionsError](err):
		conflictCode = "account_has_transactions"
	case isAs[*core.ArchivedAccountError](err):
		conflictCode = "archived_account"
	case isAs[*core.CurrencyMismatchError](err):
		conflictCode = "currency_mismatch"
	}
	if conflictCode != "" {
		return http.StatusConflict, errorDetail{Code: conflictCode, Message: err.Error()}
	}

	var validationCode string
	switch {
	case errors.Is(err, core.ErrInvalidDateRange):
		validationCode = "invalid_date_range"
	case isAs[*core.InvalidAmountError](err):
		validationCode = "invalid_amount"
	case isAs[*core.InvalidAccountTypeError](err):
		validationCode = "invalid_account_type"
	case isAs[*core.InvalidTransactionTypeError](err):
		validationCode = "invalid_transaction_type"
	case isAs[*core.InvalidStatusError](err):
		validationCode = "invalid_status"
	case isAs[*core.CategoryTypeMismatchError](err):
		validationCode = "category_type_mismatch"
	case isAs[*core.InvalidPeriodTypeError](err):
		validationCode = "invalid_period_type"
	case isAs[*core.InvalidFrequencyError](err):
		validationCode = "invalid_frequency"
	case isAs[*core.InvalidIntervalError](err):
		validationCode = "invalid_interval"
	case isAs[*core.InvalidDayOfMonthError](err):
		validationCode = "invalid_day_of_month"
	case isAs[*core.InvalidDayOfWeekError](err):
		validationCode = "invalid_day_of_week"
	case isAs[*core.InvalidAmountRangeError](err):
		validationCode = "invalid_amount_range"
	case isAs[*core.InvalidWarningPercentError](err):
		validationCode = "invalid_warning_percent"
	case isAs[*core.InvalidCurrencyError](err):
		validationCode = "invalid_currency"
	}
	if validationCode != "" {
		return http.StatusUnprocessableEntity, errorDetail{Code: validationCode, Message: err.Error()}
	}

	var badReq *badRequestError
	if errors.As(err, &badReq) {
		return http.StatusBadRequest, errorDetail{Code: badReq.code, Message: badReq.Error()}
	}

	return http.StatusInternalServerError, errorDetail{}
}

// isAs reports whether err matches the typed target without needing the value.
func isAs[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// badRequestError marks malformed input detected before the services run:
// unparseable JSON, bad path IDs, missing owner header.
type badRequestError struct {
	code    string
	message string
}

func (e *badRequestError) Error() string { return e.message }

func badRequest(code, format string, args ...any) error {
	return &badRequestError{code: code, message: fmt.Sprintf(format, args...)}
}

// maxBodyBytes caps request bodies; every payload in this API is small.
const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid_json", "invalid request body: %v", err)
	}
	// A trailing second document is also malformed.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return badRequest("invalid_json", "request body must contain a single JSON object")
	}
	return nil
}

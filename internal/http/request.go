package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OwnerHeader identifies the acting user. Authentication proper sits in front
// of this service; the API trusts the header.
const OwnerHeader = "X-User-ID"

func ownerID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if raw == "" {
		return 0, badRequest("missing_owner", "missing %s header", OwnerHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid_owner", "invalid %s header %q", OwnerHeader, raw)
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid_id", "invalid %s %q", name, raw)
	}
	return id, nil
}

func queryBool(r *http.Request, name string) bool {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name)))
	return v == "1" || v == "true" || v == "yes"
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryInt64(r *http.Request, name string) int64 {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// queryDate parses an optional YYYY-MM-DD parameter; zero time when absent.
func queryDate(r *http.Request, name string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, badRequest("invalid_date", "invalid %s %q, want YYYY-MM-DD", name, v)
	}
	return t, nil
}

// dateField parses a required YYYY-MM-DD body field.
func dateField(name, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, badRequest("invalid_date", "invalid %s %q, want YYYY-MM-DD", name, value)
	}
	return t, nil
}

// optionalDateField parses an optional YYYY-MM-DD body field; nil when empty.
func optionalDateField(name, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := dateField(name, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// amountField parses a decimal body field such as "4500.00".
func amountField(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, badRequest("invalid_decimal", "invalid %s %q", name, value)
	}
	return d, nil
}

// optionalAmountField parses an optional decimal body field; nil when empty.
func optionalAmountField(name, value string) (*decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := amountField(name, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

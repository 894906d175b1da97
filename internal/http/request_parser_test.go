package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finledger/internal/core"
)

func TestParsePeriodParam(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{"missing defaults to current", "", "2025-03", false},
		{"blank defaults to current", "period=%20", "2025-03", false},
		{"explicit", "period=2024-12", "2024-12", false},
		{"month out of range", "period=2025-13", "", true},
		{"wrong shape", "period=03-2025", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParsePeriodParam(q, "period", now)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidPeriod) {
					t.Fatalf("expected ErrInvalidPeriod, got %v", err)
				}
				return
			}
			if err != nil || got.String() != tt.want {
				t.Fatalf("got %s err=%v, want %s", got, err, tt.want)
			}
		})
	}
}

func TestParseDateParam(t *testing.T) {
	def := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := ParseDateParam(url.Values{}, "from", def)
	if err != nil || !got.Equal(def) {
		t.Fatalf("expected default, got %v err=%v", got, err)
	}

	got, err = ParseDateParam(url.Values{"from": {"2024-02-29"}}, "from", def)
	if err != nil || !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v err=%v", got, err)
	}

	_, err = ParseDateParam(url.Values{"from": {"2025-02-30"}}, "from", def)
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "from" {
		t.Fatalf("expected validation error on from, got %v", err)
	}
}

func newJSONRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name   string      `json:"name"`
		Amount core.Money  `json:"amount"`
		Period core.Period `json:"period"`
	}

	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     error
	}{
		{"valid", `{"name":"x","amount":"12.34","period":"2025-01"}`, "application/json; charset=utf-8", nil},
		{"no content type", `{"name":"x"}`, "", nil},
		{"wrong content type", `{"name":"x"}`, "text/plain", core.ErrValidation},
		{"empty body", ``, "application/json", core.ErrValidation},
		{"malformed", `{"name":`, "application/json", core.ErrValidation},
		{"unknown field", `{"nope":1}`, "application/json", core.ErrValidation},
		{"trailing object", `{"name":"a"}{"name":"b"}`, "application/json", core.ErrValidation},
		{"bad amount", `{"amount":"abc"}`, "application/json", core.ErrInvalidAmount},
		{"bad period", `{"period":"2025-00"}`, "application/json", core.ErrInvalidPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := DecodeJSON(newJSONRequest(tt.body, tt.contentType), &p)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	var p payload
	if err := DecodeJSON(newJSONRequest(`{"name":"x","amount":"12.345","period":"2025-01"}`, ""), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Amount.Cents != 1235 || p.Period != (core.Period{Year: 2025, Month: time.January}) {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestJSONDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{`"2025-01-05"`, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), false},
		{`"2025-01-05T23:30:00+02:00"`, time.Date(2025, 1, 5, 21, 30, 0, 0, time.UTC), false},
		{`null`, time.Time{}, false},
		{`"05/01/2025"`, time.Time{}, true},
	}
	for _, tt := range tests {
		var d jsonDate
		err := d.UnmarshalJSON([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && !d.Time.Equal(tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.in, d.Time, tt.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Groceries  ", "Groceries"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
		{"bell\x07and\x00null", "bellandnull"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

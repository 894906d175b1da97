// This file implements utilities for parsing and validating request data:
// period and date parameters, JSON bodies and free-text sanitizing.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finledger/internal/core"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 64 << 10
)

// ParsePeriodParam reads a YYYY-MM query parameter, defaulting to the month
// containing now when absent.
func ParsePeriodParam(query url.Values, key string, now time.Time) (core.Period, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.PeriodOf(now), nil
	}
	return core.ParsePeriod(v)
}

// ParseDateParam reads a YYYY-MM-DD query parameter as a UTC date, returning
// def when absent.
func ParseDateParam(query url.Values, key string, def time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, core.NewValidationError(key, "must be a YYYY-MM-DD date")
	}
	return t.UTC(), nil
}

// DecodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return core.NewValidationError("body", "must be application/json")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.NewValidationError("body", "is required")
		}
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		if errors.Is(err, core.ErrInvalidPeriod) || errors.Is(err, core.ErrInvalidAmount) {
			return err
		}
		return core.NewValidationError("body", fmt.Sprintf("is not valid JSON: %v", err))
	}
	if dec.More() {
		return core.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

// jsonDate accepts "YYYY-MM-DD" or RFC 3339.
type jsonDate struct {
	time.Time
}

func (d *jsonDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return core.NewValidationError("date", "must be YYYY-MM-DD or RFC 3339")
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

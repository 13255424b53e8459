// This file implements helpers for decoding request bodies and query
// parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"subtrack/internal/core"
)

const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON value into dst. Unknown fields, trailing
// data and bodies over maxBodyBytes are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// filterPatch is the body of PUT /api/filter. Absent fields stay unchanged.
type filterPatch struct {
	SearchTerm     *string         `json:"searchTerm,omitempty"`
	FilterCategory *string         `json:"filterCategory,omitempty"`
	SortBy         *core.SortBy    `json:"sortBy,omitempty"`
	SortOrder      *core.SortOrder `json:"sortOrder,omitempty"`
}

func (p filterPatch) validate() error {
	if p.SortBy != nil && !p.SortBy.IsValid() {
		return fmt.Errorf("sortBy must be one of name, price, renewalDate")
	}
	if p.SortOrder != nil && !p.SortOrder.IsValid() {
		return fmt.Errorf("sortOrder must be asc or desc")
	}
	return nil
}

func (p filterPatch) applyTo(f core.FilterState) core.FilterState {
	if p.SearchTerm != nil {
		f.SearchTerm = *p.SearchTerm
	}
	if p.FilterCategory != nil {
		f.FilterCategory = *p.FilterCategory
	}
	if p.SortBy != nil {
		f.SortBy = *p.SortBy
	}
	if p.SortOrder != nil {
		f.SortOrder = *p.SortOrder
	}
	return f
}

// parseDays reads a non-negative day count from the query, falling back to def.
func parseDays(r *http.Request, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("days"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("days must be a non-negative integer, got %q", v)
	}
	return n, nil
}

package provider

import (
	"context"
	"strings"

	wxerr "wxcipher/internal/errors"
)

// Static serves fixed records keyed by location.  Lookups ignore case
// and surrounding space.
type Static struct {
	records map[string]string
}

// NewStatic builds a provider from records.
func NewStatic(records map[string]string) *Static {
	s := &Static{records: make(map[string]string, len(records))}
	for k, v := range records {
		s.records[normalizeKey(k)] = v
	}
	return s
}

func normalizeKey(k string) string { return strings.ToLower(strings.TrimSpace(k)) }

// Fetch implements [Provider].
func (s *Static) Fetch(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &wxerr.ProviderError{Key: key, Err: err}
	}
	rec, ok := s.records[normalizeKey(key)]
	if !ok {
		return "", &wxerr.ProviderError{Key: key, Err: ErrNotFound}
	}
	return rec, nil
}

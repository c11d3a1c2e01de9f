package adapters

import (
	"context"
	"fmt"
	"time"
)

// Mock is an in-memory adapter for offline tests: a fixed manifest
// and documents keyed by filename.
type Mock struct {
	Entries    []ManifestEntry
	Docs       map[string][]byte
	ResolveErr error
	FetchErr   error

	ResolveCalls int
	FetchCalls   int
}

func (m *Mock) Resolve(_ context.Context, date time.Time) ([]ManifestEntry, error) {
	m.ResolveCalls++
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	if len(m.Entries) == 0 {
		return nil, &NotFoundError{Vendor: "mock", Date: date}
	}
	return m.Entries, nil
}

func (m *Mock) Fetch(_ context.Context, entry ManifestEntry) ([]byte, FetchMeta, error) {
	m.FetchCalls++
	if m.FetchErr != nil {
		return nil, FetchMeta{}, m.FetchErr
	}
	doc, ok := m.Docs[entry.Filename]
	if !ok {
		return nil, FetchMeta{}, fmt.Errorf("mock: no document %q", entry.Filename)
	}
	return doc, FetchMeta{StatusCode: 200}, nil
}

// Package memory provides in-memory implementations of driven ports.
// They back tests and `sanad ingest --dry-run`.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

// Ensure UnitStore implements the interface.
var _ driven.UnitStore = (*UnitStore)(nil)

// UnitStore is an in-memory implementation of driven.UnitStore.
type UnitStore struct {
	mu          sync.RWMutex
	units       map[domain.UnitKey]domain.TextUnit
	fingerprint domain.EmbeddingFingerprint
}

// NewUnitStore creates an empty in-memory unit store.
func NewUnitStore() *UnitStore {
	return &UnitStore{units: make(map[domain.UnitKey]domain.TextUnit)}
}

// Upsert stores units, replacing any with the same key, and pins fp
// when nothing is pinned yet.
func (s *UnitStore) Upsert(_ context.Context, fp domain.EmbeddingFingerprint, units []domain.TextUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pinned, err := s.checkLocked(fp, units)
	if err != nil {
		return err
	}
	s.putLocked(pinned, units)
	return nil
}

// ReplaceDocument drops every unit of filename, then stores units.
// Nothing changes when the write is rejected.
func (s *UnitStore) ReplaceDocument(_ context.Context, fp domain.EmbeddingFingerprint, filename string, units []domain.TextUnit) error {
	for _, u := range units {
		if u.Filename != filename {
			return fmt.Errorf("%w: unit %s does not belong to %s", domain.ErrInvalidInput, u.Key(), filename)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pinned, err := s.checkLocked(fp, units)
	if err != nil {
		return err
	}
	for k := range s.units {
		if k.Filename == filename {
			delete(s.units, k)
		}
	}
	s.putLocked(pinned, units)
	return nil
}

// checkLocked validates a write and returns the fingerprint the store holds after it.
func (s *UnitStore) checkLocked(fp domain.EmbeddingFingerprint, units []domain.TextUnit) (domain.EmbeddingFingerprint, error) {
	pinned := s.fingerprint
	if len(units) > 0 && !fp.IsZero() {
		switch {
		case fp.Model == "" || fp.Dimensions < 1:
			return pinned, fmt.Errorf("%w: incomplete embedding fingerprint %s", domain.ErrInvalidInput, fp)
		case pinned.IsZero():
			pinned = fp
		case pinned != fp:
			return pinned, fmt.Errorf("%w: index built with %s, got %s", domain.ErrEmbeddingMismatch, pinned, fp)
		}
	}
	for _, u := range units {
		if u.Filename == "" || u.PageNumber < 1 || len(u.Embedding) == 0 {
			return pinned, fmt.Errorf("%w: incomplete unit %s", domain.ErrInvalidInput, u.Key())
		}
		if d := pinned.Dimensions; d > 0 && len(u.Embedding) != d {
			return pinned, fmt.Errorf("%w: unit %s has %d dimensions, index has %d",
				domain.ErrEmbeddingMismatch, u.Key(), len(u.Embedding), d)
		}
	}
	return pinned, nil
}

func (s *UnitStore) putLocked(pinned domain.EmbeddingFingerprint, units []domain.TextUnit) {
	s.fingerprint = pinned
	for _, u := range units {
		u.Embedding = append([]float32(nil), u.Embedding...)
		s.units[u.Key()] = u
	}
}

// Search scores every unit and returns the k best.
func (s *UnitStore) Search(_ context.Context, query []float32, k int) ([]domain.EvidenceUnit, error) {
	if k <= 0 || len(query) == 0 {
		return []domain.EvidenceUnit{}, nil
	}
	s.mu.RLock()
	results := make([]domain.EvidenceUnit, 0, len(s.units))
	for _, u := range s.units {
		score := domain.CosineSimilarity(query, u.Embedding)
		u.Embedding = nil
		results = append(results, domain.EvidenceUnit{Unit: u, Score: score})
	}
	s.mu.RUnlock()

	domain.SortEvidence(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Get returns the unit stored for key.
func (s *UnitStore) Get(_ context.Context, key domain.UnitKey) (*domain.TextUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// Fingerprint returns the pinned embedding identity.
func (s *UnitStore) Fingerprint(_ context.Context) (domain.EmbeddingFingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint, nil
}

// Stats summarises the store.
func (s *UnitStore) Stats(_ context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make(map[string]struct{})
	for k := range s.units {
		docs[k.Filename] = struct{}{}
	}
	return domain.IndexStats{
		Units:       len(s.units),
		Documents:   len(docs),
		Fingerprint: s.fingerprint,
	}, nil
}

// Reset removes every unit and the pinned fingerprint.
func (s *UnitStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = make(map[domain.UnitKey]domain.TextUnit)
	s.fingerprint = domain.EmbeddingFingerprint{}
	return nil
}

// Close is a no-op.
func (s *UnitStore) Close() error {
	return nil
}

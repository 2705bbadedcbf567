// Package embedding holds what the embedding adapters share.
package embedding

import (
	"sync/atomic"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

// Dimensions tracks the vector size of one model. A configured size wins,
// then the published size of a known model. Any other model reports 0 until
// its first response is observed.
type Dimensions struct {
	n atomic.Int64
}

// NewDimensions resolves the size for model.
func NewDimensions(model string, configured int) *Dimensions {
	d := &Dimensions{}
	switch {
	case configured > 0:
		d.n.Store(int64(configured))
	default:
		if known, ok := domain.EmbeddingDimensions()[model]; ok {
			d.n.Store(int64(known))
		}
	}
	return d
}

// Get returns the size, 0 while unknown.
func (d *Dimensions) Get() int {
	return int(d.n.Load())
}

// Observe learns the size from the first non-empty vector when it is
// still unknown. A known size is never overwritten.
func (d *Dimensions) Observe(vectors [][]float32) {
	for _, v := range vectors {
		if len(v) > 0 {
			d.n.CompareAndSwap(0, int64(len(v)))
			return
		}
	}
}

// Fingerprint is the identity an index pins for model at this size.
func (d *Dimensions) Fingerprint(model string) domain.EmbeddingFingerprint {
	return domain.EmbeddingFingerprint{Model: model, Dimensions: d.Get()}
}

package domain

import (
	"math"
	"sort"
)

// EvidenceUnit is a retrieved TextUnit with its similarity to the query.
// It exists only for the duration of one query.
type EvidenceUnit struct {
	Unit  TextUnit
	Score float64
}

// SortEvidence orders evidence by descending score.
// Ties break on ascending page number, then ascending filename.
func SortEvidence(ev []EvidenceUnit) {
	sort.SliceStable(ev, func(i, j int) bool {
		a, b := ev[i], ev[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Unit.PageNumber != b.Unit.PageNumber {
			return a.Unit.PageNumber < b.Unit.PageNumber
		}
		return a.Unit.Filename < b.Unit.Filename
	})
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

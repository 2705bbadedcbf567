package domain

// AnswerMode is the grounding state of an answer.
type AnswerMode string

// Answer modes.
const (
	// ModeHybrid answers strictly from retrieved corpus evidence.
	ModeHybrid AnswerMode = "HYBRID"

	// ModeGeneral answers from general knowledge and carries GeneralDisclaimer.
	ModeGeneral AnswerMode = "GENERAL"
)

// String returns the string representation.
func (m AnswerMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m AnswerMode) Description() string {
	switch m {
	case ModeHybrid:
		return "Grounded in indexed documents"
	case ModeGeneral:
		return "General knowledge (not found in indexed documents)"
	default:
		return "Unknown"
	}
}

// GeneralDisclaimer prefixes every GENERAL mode answer.
const GeneralDisclaimer = "General Knowledge Mode: This answer is based on general principles " +
	"and is NOT found in the indexed regulatory documents. Please verify with official sources."

// Grounding is the outcome of the mode decision for one query.
// The zero value is not meaningful; build one with GroundingFor.
type Grounding struct {
	mode     AnswerMode
	evidence []EvidenceUnit
}

// GroundingFor applies the mode transition rule: any evidence surviving the
// relevance threshold selects HYBRID, none selects GENERAL.
func GroundingFor(evidence []EvidenceUnit) Grounding {
	if len(evidence) == 0 {
		return Grounding{mode: ModeGeneral}
	}
	return Grounding{mode: ModeHybrid, evidence: evidence}
}

// Mode returns the selected answer mode.
func (g Grounding) Mode() AnswerMode {
	return g.mode
}

// Evidence returns the evidence backing a HYBRID answer, in relevance order.
// It is always empty for GENERAL.
func (g Grounding) Evidence() []EvidenceUnit {
	return g.evidence
}

// Citation is a resolved reference to one page used in an answer.
// An empty URL or SnapshotRef means the lookup failed; Warnings says why.
type Citation struct {
	Filename    string
	PageNumber  int
	URL         string
	SnapshotRef string
	Warnings    []string
}

// HasURL reports whether the publication URL was resolved.
func (c Citation) HasURL() bool {
	return c.URL != ""
}

// HasSnapshot reports whether a page image is available.
func (c Citation) HasSnapshot() bool {
	return c.SnapshotRef != ""
}

// Degraded reports whether either lookup failed.
func (c Citation) Degraded() bool {
	return !c.HasURL() || !c.HasSnapshot()
}

// AnswerResult is the outcome of asking one question.
// Citations is empty if and only if Mode is ModeGeneral.
type AnswerResult struct {
	Mode               AnswerMode
	AnswerText         string
	Citations          []Citation
	SuggestedFollowups []string
}

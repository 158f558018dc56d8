package extract

import (
	"strings"
	"unicode/utf8"
)

// OutcomeKind is the closed set of results a single extraction phase can have.
type OutcomeKind int

const (
	// OutcomeSuccess means the phase produced enough text to be accepted.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeInsufficient means the phase ran but yielded too little text.
	OutcomeInsufficient
	// OutcomeFailed means the phase could not run to completion.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeInsufficient:
		return "insufficient"
	default:
		return "failed"
	}
}

// Outcome is what one phase of the PDF cascade hands back.
type Outcome struct {
	Kind OutcomeKind
	// Text is the trimmed text the phase produced, possibly short.
	Text string
	// Err is set for OutcomeFailed.
	Err error
}

func failedOutcome(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// judge trims text and classifies it against the minimum length, counted in
// characters rather than bytes.
func judge(text string, minLength int) Outcome {
	text = strings.TrimSpace(text)
	if text != "" && utf8.RuneCountInString(text) >= minLength {
		return Outcome{Kind: OutcomeSuccess, Text: text}
	}
	return Outcome{Kind: OutcomeInsufficient, Text: text}
}

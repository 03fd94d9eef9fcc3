// Package domain provides core business rules for the leads bounded context.
package domain

import "errors"

// ReviewState is the moderation lifecycle of a lead.
type ReviewState string

const (
	ReviewPending  ReviewState = "pending"
	ReviewPosted   ReviewState = "posted"
	ReviewDeclined ReviewState = "declined"
)

var (
	ErrInvalidTransition     = errors.New("invalid review transition")
	ErrDeclineReasonRequired = errors.New("decline reason is required")
	ErrNotResubmittable      = errors.New("only declined leads can be resubmitted")
)

// terminalStates cannot move to any other state.
var terminalStates = map[ReviewState]bool{
	ReviewPosted:   true,
	ReviewDeclined: true,
}

// IsTerminal reports whether no further review transition is allowed.
func (s ReviewState) IsTerminal() bool {
	return terminalStates[s]
}

// Valid reports whether s is a known state.
func (s ReviewState) Valid() bool {
	switch s {
	case ReviewPending, ReviewPosted, ReviewDeclined:
		return true
	}
	return false
}

// CanTransition returns ErrInvalidTransition unless from -> to is
// pending -> posted or pending -> declined.
func CanTransition(from, to ReviewState) error {
	if from != ReviewPending {
		return ErrInvalidTransition
	}
	if to != ReviewPosted && to != ReviewDeclined {
		return ErrInvalidTransition
	}
	return nil
}

// SourceKind records who brought a lead into the system.
type SourceKind string

const (
	SourceIngested           SourceKind = "ingested"
	SourceContractorUploaded SourceKind = "contractor_uploaded"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	return k == SourceIngested || k == SourceContractorUploaded
}

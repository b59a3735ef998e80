package enums

import "fmt"

// NoteState tracks where a note sits in its lifecycle.
type NoteState string

const (
	NoteStateDraft     NoteState = "draft"
	NoteStateInReview  NoteState = "in_review"
	NoteStateApproved  NoteState = "approved"
	NoteStateCancelled NoteState = "cancelled"
)

var validNoteStates = []NoteState{
	NoteStateDraft,
	NoteStateInReview,
	NoteStateApproved,
	NoteStateCancelled,
}

// String implements fmt.Stringer.
func (s NoteState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known NoteState.
func (s NoteState) IsValid() bool {
	for _, candidate := range validNoteStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseNoteState converts raw input into a NoteState.
func ParseNoteState(value string) (NoteState, error) {
	for _, candidate := range validNoteStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid note state %q", value)
}

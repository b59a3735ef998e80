package notes

import (
	"fmt"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
)

// CanTransition reports whether the note state machine allows from -> to.
// approved -> cancelled is only reachable through the compensating cancellation.
func CanTransition(from, to enums.NoteState) bool {
	switch from {
	case enums.NoteStateDraft:
		switch to {
		case enums.NoteStateInReview, enums.NoteStateApproved, enums.NoteStateCancelled:
			return true
		case enums.NoteStateDraft:
			return false
		}
	case enums.NoteStateInReview:
		switch to {
		case enums.NoteStateDraft, enums.NoteStateApproved, enums.NoteStateCancelled:
			return true
		case enums.NoteStateInReview:
			return false
		}
	case enums.NoteStateApproved:
		switch to {
		case enums.NoteStateCancelled:
			return true
		case enums.NoteStateDraft, enums.NoteStateInReview, enums.NoteStateApproved:
			return false
		}
	case enums.NoteStateCancelled:
		return false
	}
	return false
}

func transition(note *models.Note, to enums.NoteState) error {
	if !CanTransition(note.State, to) {
		return invalidTransition(note, to)
	}
	note.State = to
	return nil
}

// requireState fails unless the note is in one of the allowed states.
func requireState(note *models.Note, target enums.NoteState, allowed ...enums.NoteState) error {
	for _, state := range allowed {
		if note.State == state {
			return nil
		}
	}
	return invalidTransition(note, target)
}

func invalidTransition(note *models.Note, to enums.NoteState) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move note from %s to %s", note.State, to)).
		WithDetails(map[string]any{"note_id": note.ID, "from": string(note.State), "to": string(to)})
}

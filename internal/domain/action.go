package domain

import "time"

// ActionType is the upstream action-type code.
type ActionType int

const (
	ActionSelfServiceValidation ActionType = 1
	ActionLogistics             ActionType = 2
	ActionSuspension            ActionType = 5
	ActionOperation             ActionType = 20
	ActionTransition            ActionType = 21
	ActionWorkflowEnd           ActionType = 22
	ActionConditionalStep       ActionType = 23
	ActionOperationValidation   ActionType = 32
	ActionServiceDeskClosure    ActionType = 34
	ActionTransitionClosure     ActionType = 37
	ActionSelfServiceRating     ActionType = 38
	ActionAwaitingUser          ActionType = 39
	ActionResolvedByParent      ActionType = 42
	ActionAutomatic             ActionType = 50
	ActionLinkedToParent        ActionType = 51
	ActionRedirectedDown        ActionType = 52
	ActionInstallation          ActionType = 54
	ActionFollowUp              ActionType = 65
	ActionSelfServiceAuth       ActionType = 104
	ActionMovementHistory       ActionType = 107
	ActionTrackingNote          ActionType = 108
	ActionAutoNotification      ActionType = 111
)

// ActionTypeSet is a closed set of action types.
type ActionTypeSet map[ActionType]struct{}

// NewActionTypeSet builds a set from codes.
func NewActionTypeSet(types ...ActionType) ActionTypeSet {
	set := make(ActionTypeSet, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// Contains reports whether t is in the set.
func (s ActionTypeSet) Contains(t ActionType) bool {
	_, ok := s[t]
	return ok
}

var (
	// NonSubstantiveActions never count as work done on a ticket.
	NonSubstantiveActions = NewActionTypeSet(
		ActionSelfServiceValidation, ActionLogistics, ActionWorkflowEnd,
		ActionConditionalStep, ActionAwaitingUser, ActionResolvedByParent,
		ActionSelfServiceAuth, ActionMovementHistory, ActionAutoNotification,
	)
	// AssignmentActions identify the technician in charge of a ticket.
	AssignmentActions = NewActionTypeSet(
		ActionOperation, ActionTransition, ActionOperationValidation,
		ActionServiceDeskClosure, ActionTransitionClosure, ActionSelfServiceRating,
		ActionAutomatic, ActionRedirectedDown, ActionInstallation,
	)
	// TaggedNoteActions may carry "#tagp#" markers in their description.
	TaggedNoteActions = NewActionTypeSet(ActionFollowUp, ActionTrackingNote)
)

// Action is a normalized operational event logged against a ticket.
type Action struct {
	ActionID     int64
	RequestID    int64
	RFCNumber    string
	Type         ActionType
	Label        string
	StartDate    time.Time
	EndDate      *time.Time
	OperatorName string
	GroupName    string
	Description  string
}

// HasStart reports whether the action carries a usable start timestamp.
func (a Action) HasStart() bool {
	return !a.StartDate.IsZero()
}

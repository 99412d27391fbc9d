package document

// Event is a lifecycle trigger. The legal moves form a small fixed table;
// everything else is an InvalidStateError. Authorization and per-operation
// preconditions (approver counts, creator checks) live in the service
// layer — this table only answers "is that move ever legal".
type Event string

const (
	EventSubmit   Event = "submit"   // Draft -> InApproval
	EventRelease  Event = "release"  // Draft -> Released (no-approver path)
	EventApprove  Event = "approve"  // InApproval -> Released (consensus complete)
	EventReject   Event = "reject"   // InApproval -> Draft
	EventWithdraw Event = "withdraw" // InApproval -> Draft
	EventObsolete Event = "obsolete" // Released -> Obsolete (system only)
)

var transitions = map[Status]map[Event]Status{
	StatusDraft: {
		EventSubmit:  StatusInApproval,
		EventRelease: StatusReleased,
	},
	StatusInApproval: {
		EventApprove:  StatusReleased,
		EventReject:   StatusDraft,
		EventWithdraw: StatusDraft,
	},
	StatusReleased: {
		EventObsolete: StatusObsolete,
	},
	// Obsolete is terminal.
}

// Transition returns the status reached by applying ev to current, or an
// InvalidStateError when the move is not in the table.
func Transition(current Status, ev Event) (Status, error) {
	if next, ok := transitions[current][ev]; ok {
		return next, nil
	}
	return "", &InvalidStateError{Current: current, Attempted: target(ev), Op: string(ev)}
}

// CanEdit reports whether content fields (title, description, project code,
// attachments, approver list) may change. Only drafts are editable.
func CanEdit(s Status) bool { return s == StatusDraft }

// CanDelete reports whether the row may be removed entirely. Only drafts;
// released history is permanent.
func CanDelete(s Status) bool { return s == StatusDraft }

func target(ev Event) Status {
	switch ev {
	case EventSubmit:
		return StatusInApproval
	case EventRelease, EventApprove:
		return StatusReleased
	case EventReject, EventWithdraw:
		return StatusDraft
	case EventObsolete:
		return StatusObsolete
	}
	return ""
}

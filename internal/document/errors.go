package document

import "fmt"

// Typed error kinds returned by the engine. Callers match them with
// errors.As and map them to transport-level responses; none of them is
// fatal to the process.

// ValidationError reports malformed or out-of-range input, including
// version labels that do not match their class's pattern.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// AuthorizationError reports an actor lacking permission for an operation.
// No state change happens when it is returned.
type AuthorizationError struct {
	UserID string
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %s is not allowed to %s", e.UserID, e.Action)
}

// InvalidStateError reports an operation attempted from a status that does
// not permit it. It carries both states so the caller can explain the
// conflict to the user.
type InvalidStateError struct {
	Current   Status
	Attempted Status
	Op        string
}

func (e *InvalidStateError) Error() string {
	if e.Attempted != "" {
		return fmt.Sprintf("%s: cannot move %s -> %s", e.Op, e.Current, e.Attempted)
	}
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.Current)
}

// AlreadyDecidedError reports an approver voting a second time.
type AlreadyDecidedError struct {
	ApproverID string
	Status     ApproverStatus
}

func (e *AlreadyDecidedError) Error() string {
	return fmt.Sprintf("approver %s already decided (%s)", e.ApproverID, e.Status)
}

// ConflictError reports a uniqueness violation or a lost optimistic-
// concurrency race. The caller may retry with fresh state.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NotConfiguredError reports an optional dependency (notifier, scanner,
// object store) that is not wired in this deployment.
type NotConfiguredError struct {
	Dependency string
}

func (e *NotConfiguredError) Error() string {
	return e.Dependency + " is not configured"
}

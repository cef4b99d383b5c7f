package engine

// DropReason names why an operation was discarded before application.
type DropReason string

const (
	DropQueueFullNew    DropReason = "QUEUE_FULL_DROP_NEW"
	DropQueueFullOldest DropReason = "QUEUE_FULL_DROP_OLDEST"
	DropQueueFullClear  DropReason = "QUEUE_FULL_CLEAR"
	DropClearedExplicit DropReason = "CLEARED_EXPLICIT"
	DropClearedByAPI    DropReason = "CLEARED_BY_API"
	DropMerged          DropReason = "MERGED"
	DropStopped         DropReason = "ENGINE_STOPPED"
)

// FailureKind classifies a FailureRecord.
type FailureKind string

const (
	FailureValidation FailureKind = "VALIDATION"
	FailureException  FailureKind = "EXCEPTION"
	FailureDropped    FailureKind = "DROPPED"
)

// FailureRecord is delivered to the failure listener for every operation
// that did not take effect, and for faults raised by the diff stage.
type FailureRecord struct {
	Operation   string
	OperationID string
	Kind        FailureKind
	Reason      DropReason // set when Kind == FailureDropped
	Err         error
}

// EventKind identifies a debug event.
type EventKind string

const (
	EventEnqueued   EventKind = "ENQUEUED"
	EventDequeued   EventKind = "DEQUEUED"
	EventDropped    EventKind = "DROPPED"
	EventError      EventKind = "ERROR"
	EventCompleted  EventKind = "COMPLETED"
	EventCleared    EventKind = "CLEARED"
	EventSuperseded EventKind = "SUPERSEDED"
)

// EventKinds returns every debug event kind in lifecycle order.
func EventKinds() []EventKind {
	return []EventKind{
		EventEnqueued, EventDequeued, EventDropped, EventError,
		EventCompleted, EventCleared, EventSuperseded,
	}
}

// DebugEvent describes one queue or diff-stage transition.
//
// Pending is the admission queue depth after the transition; Processing is
// true while the lane is applying an operation.
type DebugEvent struct {
	Kind        EventKind
	Operation   string
	OperationID string
	Pending     int
	Processing  bool
	Reason      DropReason
	Generation  int64
	Message     string
}

func failureKindOf(code FailureCode) FailureKind {
	switch code {
	case ErrCodeValidation:
		return FailureValidation
	case ErrCodeDropped:
		return FailureDropped
	default:
		return FailureException
	}
}

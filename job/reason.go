package job

// StopReason records why a job's execution loop stopped or is stopping.
// Internal reasons originate from the job itself (its own hooks or loop
// configuration); external reasons originate from another job or the
// manager.
type StopReason int

const (
	// ReasonNone means the job is not stopping and has not stopped yet.
	ReasonNone StopReason = iota

	ReasonInternalUnspecific
	ReasonInternalError
	ReasonInternalRestart
	ReasonInternalCountLimit
	ReasonInternalCompletion
	ReasonInternalKilling

	ReasonExternalUnknown
	ReasonExternalRestart
	ReasonExternalKilling
)

var reasonNames = map[StopReason]string{
	ReasonNone:               "NONE",
	ReasonInternalUnspecific: "INTERNAL_UNSPECIFIC",
	ReasonInternalError:      "INTERNAL_ERROR",
	ReasonInternalRestart:    "INTERNAL_RESTART",
	ReasonInternalCountLimit: "INTERNAL_EXECUTION_COUNT_LIMIT",
	ReasonInternalCompletion: "INTERNAL_COMPLETION",
	ReasonInternalKilling:    "INTERNAL_KILLING",
	ReasonExternalUnknown:    "EXTERNAL_UNKNOWN",
	ReasonExternalRestart:    "EXTERNAL_RESTART",
	ReasonExternalKilling:    "EXTERNAL_KILLING",
}

func (r StopReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// Internal reports whether the reason originated from the job itself.
func (r StopReason) Internal() bool {
	switch r {
	case ReasonInternalUnspecific, ReasonInternalError, ReasonInternalRestart,
		ReasonInternalCountLimit, ReasonInternalCompletion, ReasonInternalKilling:
		return true
	}
	return false
}

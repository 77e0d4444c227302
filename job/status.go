package job

// Status is the public, read-only view of a job's lifecycle position,
// derived from the flag bitset on demand.
type Status int

const (
	StatusFresh Status = iota
	StatusInitializing
	StatusInitialized
	StatusStarting
	StatusRunning
	StatusIdling
	StatusStopping
	StatusRestarting
	StatusCompleting
	StatusDying
	StatusStopped
	StatusCompleted
	StatusKilled
)

var statusNames = map[Status]string{
	StatusFresh:        "FRESH",
	StatusInitializing: "INITIALIZING",
	StatusInitialized:  "INITIALIZED",
	StatusStarting:     "STARTING",
	StatusRunning:      "RUNNING",
	StatusIdling:       "IDLING",
	StatusStopping:     "STOPPING",
	StatusRestarting:   "RESTARTING",
	StatusCompleting:   "COMPLETING",
	StatusDying:        "DYING",
	StatusStopped:      "STOPPED",
	StatusCompleted:    "COMPLETED",
	StatusKilled:       "KILLED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether s is one of the two final states a job can
// never leave.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusKilled
}

// TerminalError resolves pending output waits when the awaited job reaches
// a terminal state before producing the value. Callers inspect the status
// rather than treating this as an exceptional failure.
type TerminalError struct {
	Status Status
}

func (e *TerminalError) Error() string {
	return "loom: job reached terminal status " + e.Status.String()
}

package loom

import (
	"errors"
	"fmt"
)

var (
	// Manager state errors.
	ErrManagerNotInitialized = errors.New("loom: manager not initialized")
	ErrManagerNotRunning     = errors.New("loom: manager not running")
	ErrManagerRunning        = errors.New("loom: manager still running")

	// Job lifecycle-state errors.
	ErrNotInitialized     = errors.New("loom: job not initialized")
	ErrAlreadyInitialized = errors.New("loom: job already initialized")
	ErrJobDone            = errors.New("loom: job already completed or killed")
	ErrJobNotAlive        = errors.New("loom: job not alive")
	ErrJobNotRunning      = errors.New("loom: job not running")
	ErrJobNotRegistered   = errors.New("loom: job not registered with this manager")
	ErrAlreadyRegistered  = errors.New("loom: job already registered")
	ErrSingletonLive      = errors.New("loom: a registered instance of this singleton class already exists")

	// Guarding errors.
	ErrAlreadyGuarded = errors.New("loom: job is already guarded")
	ErrNotGuarded     = errors.New("loom: job is not guarded")

	// Output errors.
	ErrOutputUnsupported = errors.New("loom: unsupported output name")
	ErrOutputDisabled    = errors.New("loom: output name is disabled")
	ErrFieldAlreadySet   = errors.New("loom: output field already set")
	ErrFieldNotSet       = errors.New("loom: output field not set")
	ErrQueueCleared      = errors.New("loom: output queue was cleared")

	// Public method errors.
	ErrMethodUnsupported = errors.New("loom: unsupported public method name")
	ErrMethodDisabled    = errors.New("loom: public method is disabled")

	// Mixin errors.
	ErrMixinUnsupported = errors.New("loom: mixin is not composed into this job class")
	ErrMixinBusy        = errors.New("loom: mixin routine already scheduled")
	ErrMixinNotRunning  = errors.New("loom: mixin routine is not running")
	ErrMixinConflict    = errors.New("loom: composed mixins share a common ancestor")

	// Class registry errors.
	ErrUnknownClass   = errors.New("loom: job class not found in registry")
	ErrDuplicateClass = errors.New("loom: job class already registered")

	// Loop errors.
	ErrLoopRunning    = errors.New("loom: execution loop already running")
	ErrLoopNotRunning = errors.New("loom: execution loop not running")
)

// Op names a manager operation for permission reporting.
type Op string

const (
	OpCreate              Op = "CREATE"
	OpInitialize          Op = "INITIALIZE"
	OpRegister            Op = "REGISTER"
	OpStart               Op = "START"
	OpStop                Op = "STOP"
	OpRestart             Op = "RESTART"
	OpKill                Op = "KILL"
	OpGuard               Op = "GUARD"
	OpUnguard             Op = "UNGUARD"
	OpFind                Op = "FIND"
	OpEventDispatch       Op = "EVENT_DISPATCH"
	OpCustomEventDispatch Op = "CUSTOM_EVENT_DISPATCH"
)

// PermissionError reports that an invoker's rank or ownership was
// insufficient for the requested operation.
type PermissionError struct {
	Op      Op
	Invoker string     // runtime identifier of the invoking job
	Rank    Permission // invoker's rank
	Target  string     // runtime identifier of the target job, if any
	Reason  string
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("loom: job %s (%s) lacks permission for %s", e.Invoker, e.Rank, e.Op)
	if e.Target != "" {
		msg += " on job " + e.Target
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// InitError wraps an error escaping a job's OnInit hook.
type InitError struct {
	Job string
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("loom: initialization of job %s failed: %v", e.Job, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

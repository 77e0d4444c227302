package job

// flagSet is the compact bitset encoding a job's lifecycle state. All
// mutations happen under the job's mutex; derived states (restarting,
// completing, dying) are computed from combinations of bits rather than
// stored.
type flagSet uint32

const (
	flagInitializing flagSet = 1 << iota
	flagInitialized
	flagStarting
	flagRunning
	flagIdling
	flagStopping
	flagStopped
	flagToldToStop
	flagStopBySelf
	flagStopByForce
	flagToldToRestart
	flagToldToComplete
	flagToldToBeKilled
	flagCompleted
	flagKilled
	flagSkipNextRun
	flagInternalStartupKill
	flagExternalStartupKill
)

func (f flagSet) has(b flagSet) bool    { return f&b == b }
func (f flagSet) hasAny(b flagSet) bool { return f&b != 0 }
func (f *flagSet) set(b flagSet)        { *f |= b }
func (f *flagSet) clear(b flagSet)      { *f &^= b }

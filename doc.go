// Package loom provides a single-process, in-memory framework for
// long-running, stateful units of work ("jobs"): defining them, scheduling
// their periodic or event-driven execution, and coordinating their creation,
// permissions, guarding and termination through a central manager.
//
// Loom is designed as a library, not a service. Declare job classes as
// ordinary Go types with lifecycle hooks, register them with a manager, and
// let the manager drive their execution loops.
//
// # Quick Start
//
//	classes := job.NewRegistry()
//	class := &job.Class{
//	    Name: "counter",
//	    New:  func() job.Runner { return &Counter{} },
//	}
//	if err := classes.Register(class); err != nil { ... }
//
//	m, err := manager.New(classes, loom.DefaultConfig())
//	if err != nil { ... }
//	if err := m.Initialize(ctx); err != nil { ... }
//	handle, err := m.CreateAndRegisterJob(ctx, class,
//	    job.WithInterval(time.Second), job.WithCount(3))
//
// # Architecture
//
// The root package holds the shared leaf types: permission ranks, manager
// configuration and the error taxonomy. Subsystems live in subpackages: job
// state and execution loops in loom/job, typed events in loom/event, the
// central coordinator in loom/manager, hook middleware in loom/middleware,
// reconnect delay strategies in loom/backoff.
//
// Jobs never touch the manager or each other directly: a job's hooks reach
// the manager through a permission-checked proxy (job.ManagerLink), and other
// jobs only through restricted job.Handle views.
package loom

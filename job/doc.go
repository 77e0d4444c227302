// Package job implements job classes, instances and the per-job lifecycle
// state machine: a bitset of lifecycle flags, an execution loop driving the
// OnInit/OnStart/OnRun/OnStop hooks, single-assignment output fields and
// append-only output queues other jobs can await, composable mixin routines
// running alongside the main loop, and a bounded per-job event queue.
//
// Jobs never run on their own: a manager creates them from a registered
// Class, binds them and drives their lifecycle through the Control handle
// returned by Bind. Job code reaches back to its manager only through the
// narrow ManagerLink interface, so the full manager stays out of reach of
// runner code.
package job

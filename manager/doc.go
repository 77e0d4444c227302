// Package manager implements the central job manager: the sole owner of
// the live job set. It mediates creation, initialization, registration,
// starting, stopping, restarting, killing and guarding of jobs, enforces
// the four-rank permission matrix on every operation, and fans dispatched
// events out to one-shot waiters and statically subscribed jobs.
//
// Calls made on the Manager directly run as its internal SYSTEM-rank
// sentinel and bypass permission checks; job code goes through the
// job.ManagerLink proxy it was bound with, where every operation is
// checked against the invoking job's rank and ownership.
package manager

package loom

// Permission is the rank governing which jobs may manage which other jobs.
// Ranks are strictly ordered: PermLowest < PermMedium < PermHigh < PermSystem.
type Permission int

const (
	// PermLowest is an isolated job that can only manage its own execution.
	PermLowest Permission = 1 << iota
	// PermMedium may create, register and manage jobs it personally created,
	// and register jobs below its own rank. It is the default rank.
	PermMedium
	// PermHigh may manage any job below PermHigh, and PermHigh jobs it
	// created. It may dispatch built-in events.
	PermHigh
	// PermSystem is reserved for the manager's own sentinel job and cannot
	// be granted.
	PermSystem
)

// PermDefault is the rank assigned to jobs registered without an explicit
// level when the manager config does not override it.
const PermDefault = PermMedium

func (p Permission) String() string {
	switch p {
	case PermLowest:
		return "LOWEST"
	case PermMedium:
		return "MEDIUM"
	case PermHigh:
		return "HIGH"
	case PermSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether p is one of the defined ranks.
func (p Permission) Valid() bool {
	switch p {
	case PermLowest, PermMedium, PermHigh, PermSystem:
		return true
	}
	return false
}

// Grantable reports whether p may be assigned at registration time.
// PermSystem is reserved.
func (p Permission) Grantable() bool {
	return p.Valid() && p != PermSystem
}

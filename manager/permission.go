package manager

import (
	"github.com/loomworks/loom"
	"github.com/loomworks/loom/job"
)

// The permission matrix. Ranks are strictly ordered LOWEST < MEDIUM <
// HIGH < SYSTEM:
//
//   - SYSTEM is reserved for the sentinel and bypasses every check.
//   - HIGH manages any job below HIGH, plus HIGH jobs it created itself.
//     It may grant ranks up to HIGH and dispatch built-in events.
//   - MEDIUM manages only jobs it personally created (and only while
//     their rank does not exceed MEDIUM). It may grant ranks below
//     MEDIUM and dispatch custom events.
//   - LOWEST performs no management operations at all.
//
// Rank power is monotonic except for the documented MEDIUM ownership
// carve-out: a MEDIUM invoker's authority over a job comes from having
// created it, not from outranking it.

// checkCreate gates job creation: MEDIUM and above.
func (m *Manager) checkCreate(inv *record) error {
	if inv.perm == loom.PermSystem {
		return nil
	}
	if inv.perm >= loom.PermMedium {
		return nil
	}
	return &loom.PermissionError{
		Op:      loom.OpCreate,
		Invoker: inv.job.RuntimeID().String(),
		Rank:    inv.perm,
		Reason:  "job creation requires MEDIUM rank or above",
	}
}

// checkManage gates the lifecycle verbs (initialize, start, stop,
// restart, kill, guard, unguard) of inv against target, including the
// guard protocol: a job guarded by someone else is off limits even to an
// otherwise sufficient rank.
func (m *Manager) checkManage(op loom.Op, inv, target *record) error {
	if inv.perm == loom.PermSystem {
		return nil
	}

	deny := func(reason string) error {
		return &loom.PermissionError{
			Op:      op,
			Invoker: inv.job.RuntimeID().String(),
			Rank:    inv.perm,
			Target:  target.job.RuntimeID().String(),
			Reason:  reason,
		}
	}

	if holder, guarded := target.ctl.Guardian(); guarded && holder != inv.job.RuntimeID() {
		return deny("target is guarded by another job")
	}

	created := target.creator == inv.job.RuntimeID()
	switch {
	case inv.perm >= loom.PermHigh:
		if target.perm == loom.PermSystem {
			return deny("SYSTEM jobs cannot be managed")
		}
		if target.perm >= loom.PermHigh && !created {
			return deny("HIGH jobs may only be managed by their creator")
		}
		return nil
	case inv.perm >= loom.PermMedium:
		if !created {
			return deny("MEDIUM rank manages only jobs it created")
		}
		if target.perm > loom.PermMedium {
			return deny("target outranks the invoker")
		}
		return nil
	}
	return deny("management requires MEDIUM rank or above")
}

// checkGrant gates the rank being granted at registration time: an
// invoker may not grant a rank at or above its own unless it is HIGH or
// above, and SYSTEM is never grantable.
func (m *Manager) checkGrant(inv *record, level loom.Permission) error {
	deny := func(reason string) error {
		return &loom.PermissionError{
			Op:      loom.OpRegister,
			Invoker: inv.job.RuntimeID().String(),
			Rank:    inv.perm,
			Reason:  reason,
		}
	}
	if !level.Grantable() {
		return deny("rank " + level.String() + " is not grantable")
	}
	switch {
	case inv.perm == loom.PermSystem:
		return nil
	case inv.perm >= loom.PermHigh:
		if level > loom.PermHigh {
			return deny("HIGH rank may grant up to HIGH")
		}
		return nil
	case inv.perm >= loom.PermMedium:
		if level >= loom.PermMedium {
			return deny("MEDIUM rank may only grant ranks below MEDIUM")
		}
		return nil
	}
	return deny("registration requires MEDIUM rank or above")
}

// checkDispatch gates event dispatch: custom events need MEDIUM and
// above, built-in events HIGH and above.
func (m *Manager) checkDispatch(inv *record, builtin bool) error {
	if inv.perm == loom.PermSystem {
		return nil
	}
	op := loom.OpCustomEventDispatch
	need := loom.PermMedium
	if builtin {
		op = loom.OpEventDispatch
		need = loom.PermHigh
	}
	if inv.perm >= need {
		return nil
	}
	return &loom.PermissionError{
		Op:      op,
		Invoker: inv.job.RuntimeID().String(),
		Rank:    inv.perm,
		Reason:  "event dispatch requires " + need.String() + " rank or above",
	}
}

// CanManage is the non-raising form of the management check: it reports
// whether the invoking job may perform op on the target without
// constructing an error. Unknown handles report false.
func (m *Manager) CanManage(op loom.Op, invoker, target *job.Handle) bool {
	inv, err := m.lookup(invoker)
	if err != nil {
		return false
	}
	tgt, err := m.lookup(target)
	if err != nil || !tgt.registered {
		return false
	}
	return m.checkManage(op, inv, tgt) == nil
}

// Package lock provides cross-process mutual exclusion keyed by recipe.
//
// Each recipe names a lock file path. The path is reduced to an integer
// [Key] which addresses a system-wide lock object held in a [Store]. The
// lock is advisory: a value of zero means unlocked, anything greater means
// locked, and the state outlives the process that set it. A crashed build
// therefore leaves its lock behind until someone clears it explicitly.
//
// A [Manager] binds a store to one lock path and remembers whether it set
// the lock itself. Only a manager that set the lock will clear it on
// release, so a process that merely observed a lock held elsewhere never
// frees it by accident.
//
// Two backends are available. The sqlite backend keeps lock records in a
// small database under the user state directory and works on every
// platform. The semaphore backend uses System V semaphores and is only
// available on Linux.
//
// Example usage:
//
//	store, err := lock.Open(lock.BackendSQLite, paths.LockDatabase())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	mgr := lock.NewManager(store, "/srv/recipes/web/.forge/lock")
//	if err := mgr.SetLock(ctx); err != nil {
//	    return err
//	}
//	defer mgr.ReleaseLock(ctx)
package lock

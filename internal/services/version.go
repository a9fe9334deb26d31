// Optimistic concurrency guard.
//
// Mutations carry an optional expected last-modified timestamp: the version
// of the row the client last observed. The guard compares it against the
// stored value and rejects the write on any mismatch, so two sessions
// editing the same row cannot silently overwrite each other. Conflicts are
// surfaced rather than resolved last-write-wins; the client re-fetches and
// re-applies.
package services

import "time"

// checkVersion decides whether a guarded write may proceed.
//
// Rules:
//   - expected == nil: the client opted out (e.g. first-ever write); pass.
//   - current == nil: the client expected a version but the row does not
//     exist; conflict. Treating absence as a match would mask a concurrent
//     delete.
//   - otherwise exact equality at stored precision; any mismatch conflicts.
//
// Pure decision function, no side effects.
func checkVersion(expected *time.Time, current *time.Time) error {
	if expected == nil {
		return nil
	}
	if current == nil || !expected.Equal(*current) {
		return ErrVersionConflict
	}
	return nil
}

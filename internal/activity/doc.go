// Package activity detects whether a build is in flight by checking if any
// process holds the recipe's build log open.
//
// This signal is independent of the recipe lock: a lock can outlive a
// crashed build, while an open log handle only exists while the build
// command runs. Probes report "could not determine" as an error wrapping
// [ErrProbeUnavailable] so callers can tell it apart from a genuine
// negative.
package activity

// Package audio owns the process-wide playback resource using the oto/v3
// library. A single Controller arbitrates which voice message controls the
// speaker, pushes position snapshots to observers, and talks to the sound
// card through a small Device interface so everything above it can be
// tested without one.
package audio

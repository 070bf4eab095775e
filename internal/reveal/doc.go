// Package reveal schedules viewport-triggered effects.
//
// A Scheduler watches registered elements through a viewport.Platform and
// fires each element's effect exactly once, the first time the element is
// reported visible:
//   - reveals: the element's visible-state transition is staggered by its
//     index within the notification batch
//   - counters: a Ramp drives the displayed value from 0 to the target over
//     a duration, one frame at a time
//   - images: the real source of a lazy image is loaded
//
// All callbacks run on the host event loop; nothing here blocks.
package reveal

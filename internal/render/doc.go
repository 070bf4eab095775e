// Package render provides the output collaborators effects are drawn
// through: an in-memory Recorder, a structured Log renderer and a Terminal
// that shows counter ramps as progress bars.
package render

// Package spawn launches the viewer backend.
//
// A Spawner holds an ordered, immutable list of Strategy values and tries
// them in turn until one returns a live Handle:
//
//   - SidecarStrategy runs the bundled runicorn-viewer executable.
//   - InterpreterStrategy runs the backend module through a Python
//     interpreter, for development checkouts without a packaged sidecar.
//
// The child environment is assembled per strategy; the launcher's own
// environment is never modified. Every child runs in its own process group
// and is reaped by a background goroutine, so Terminate followed by Wait
// leaves no zombie behind.
package spawn

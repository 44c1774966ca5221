// Package cli provides the interactive GoOutside diary client.
//
// It wires configuration, the local diary database, the media store, the
// outdoor classifier and the location service into a capture session, and
// drives them from a line-oriented REPL. Typical flow: queue a photo with
// "capture <file>", inspect the verdict, then "save" or "retake".
//
// Key features:
//   - Photo capture with outdoor verification and live phase reporting
//   - Flash and lens selection for the next capture
//   - Diary listing: recent, all, this week, this month, custom range
//   - Show / Delete single entries
//   - JSON import and export of the whole diary
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, NewApp, and runREPL for details.
package cli

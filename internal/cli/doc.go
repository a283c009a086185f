// Package cli provides the interactive Polaris vault console.
//
// The console drives a vault from a terminal: it lists and edits consents,
// feeds simulated location fixes and page visits to the trackers, shows
// statistics, runs sync cycles and exports data under a passphrase. A
// periodic sync loop runs in the background while the REPL is open.
//
// The REPL is started via Console.Run(ctx), which blocks until the user
// exits or ctx is cancelled. See runREPL for the command list.
package cli

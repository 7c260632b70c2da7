// Package cli provides the interactive locker command-line client.
//
// It wires configuration, the HTTP API client and an interactive REPL, and
// tracks whether the controller is reachable. Typical flow: log in, reserve
// a locker with "deposit", open it again later with "open", hand it back
// with "return". Anyone may "close" a locker.
//
// Locker numbers typed at the prompt are 1-based, matching the labels on
// the bank and the keypad.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli

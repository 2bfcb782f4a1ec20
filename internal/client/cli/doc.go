// Package cli provides the interactive ResDex command-line client.
//
// It wires the account, profile and search services into a REPL. A
// background watcher pings the server and flips the prompt between online
// and offline. Typical flow: log in, open a profile with "profile <handle>",
// edit it if it is yours, and search the live user list with "find".
//
// Key features:
//   - Register / Login / Logout
//   - Profile view with about, organization, interests and picture edits
//   - Document carousel: docs, next, prev, adddoc, editdoc, rmdoc
//   - Debounced live search over users or projects
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

// Package runner replays recorded exchanges through their scripts.
//
// A Runner owns one session: the global variable store that client.global
// reads and writes. Globals persist across exchanges and files for the
// lifetime of the Runner; request variables never leave their exchange.
//
// For every selected exchange the runner builds the script view of the
// request, runs the pre-request script, resolves {{placeholders}}, runs
// the response handler against the recorded response and collects the
// tests the scripts declared. Exchanges run strictly one after another.
package runner

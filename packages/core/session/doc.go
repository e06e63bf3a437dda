// Package session holds the state a handler script sees through `client`.
//
// A session lives as long as the hosting process. It owns:
//   - Variables: the global variable store behind client.global, mirrored
//     into the process environment and guarded against overwriting names
//     that were already present in that environment
//   - Client: client.log, client.test, client.assert and client.exit
//
// Nothing here executes scripts; see package script for the JavaScript
// bridge and package runner for exchange replay.
package session

// Package script runs request and response handler scripts.
//
// Each run gets a fresh JavaScript runtime (github.com/dop251/goja) whose
// globals are bound from an explicit Context: client, request, response
// (response handlers only), console, jsonPath and URLSearchParams. Session
// state lives in the Context's Client, never in the runtime, so globals
// written by one script are visible to the next.
package script

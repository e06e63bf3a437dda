// Package http models the request and response objects that handler
// scripts observe.
//
// Nothing in this package sends requests. A host (the exchange runner, or
// an embedding application) builds the values from whatever it already has:
//   - Request: url(), body(), headers, request variables, environment
//   - Response: status, headers (valueOf/valuesOf), content type, and a body
//     that is text, parsed JSON, or a line/message stream
package http

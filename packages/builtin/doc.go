// Package builtin provides the dynamic variables available in request
// templates as {{$name}}.
//
// Available variables:
//   - $uuid, $random.uuid: random UUID v4
//   - $timestamp: current Unix timestamp
//   - $isoTimestamp: current time in ISO 8601
//   - $randomInt: random integer in [0, 1000)
//   - $random.integer(from, to): random integer in [from, to)
//   - $random.float(from, to): random float in [from, to)
//   - $random.alphabetic(n), $random.alphanumeric(n), $random.hexadecimal(n)
//   - $random.email: random e-mail address
//
// Arguments are optional; a missing or invalid argument falls back to the
// default for that variable.
package builtin

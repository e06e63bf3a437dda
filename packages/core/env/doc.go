// Package env resolves {{placeholder}} references in recorded requests.
//
// Placeholders are looked up in request variables, then session globals,
// then the selected environment. {{$name}} calls a dynamic variable from
// the builtin registry and {{$env.NAME}} reads the process environment.
// Anything that cannot be resolved is left verbatim.
package env

// Package output provides formatters for replay results.
//
// Supported output formats:
//   - Console: human-readable colored terminal output with script output
//   - JSON: machine-readable JSON output
//   - JUnit: JUnit XML, one test case per client.test call
//   - TAP: Test Anything Protocol, one line per exchange
//
// JSON, JUnit and TAP accumulate results and write them on Flush.
package output

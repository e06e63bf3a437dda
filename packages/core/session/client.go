package session

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const defaultAssertMessage = "Assertion failed"

// AssertionError is returned by Client.Assert when its condition is false.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// TestResult records one client.test call.
type TestResult struct {
	Name     string
	Passed   bool
	Error    string
	Duration time.Duration
}

// Client is the `client` object handed to a script.
type Client struct {
	Global *Variables

	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	results []TestResult
	exited  bool
}

type ClientOption func(*Client)

// WithOutput sends both regular and failure output to w.
func WithOutput(w io.Writer) ClientOption {
	return func(c *Client) {
		c.out = w
		c.errOut = w
	}
}

// WithErrorOutput sends failed-test lines to w.
func WithErrorOutput(w io.Writer) ClientOption {
	return func(c *Client) {
		c.errOut = w
	}
}

// NewClient creates a client over a session store. The store's forbidden
// key diagnostics are routed to this client's log.
func NewClient(global *Variables, opts ...ClientOption) *Client {
	if global == nil {
		global = NewVariables()
	}
	c := &Client{
		Global: global,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	global.SetWarnFunc(func(msg string) {
		c.Log(msg)
	})
	return c
}

// Log prints every argument on its own line, then a blank line.
func (c *Client) Log(args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, arg := range args {
		fmt.Fprintln(c.out, FormatValue(arg))
	}
	fmt.Fprintln(c.out)
}

// Test runs body and reports the outcome. Failures, including panics, stay
// inside Test.
func (c *Client) Test(name string, body func() error) {
	c.printf(c.out, "Running test: %s\n", name)

	start := time.Now()
	err := runGuarded(body)
	result := TestResult{
		Name:     name,
		Passed:   err == nil,
		Duration: time.Since(start),
	}

	if err != nil {
		result.Error = err.Error()
		c.printf(c.errOut, "Test %s failed: %v\n", name, err)
	} else {
		c.printf(c.out, "Test %s passed.\n", name)
	}

	c.mu.Lock()
	c.results = append(c.results, result)
	c.mu.Unlock()
}

func runGuarded(body func() error) (err error) {
	if body == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return body()
}

// Assert returns an *AssertionError when condition is false. The first
// message, if any, replaces the default text.
func (c *Client) Assert(condition bool, message ...string) error {
	if condition {
		return nil
	}
	msg := defaultAssertMessage
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	return &AssertionError{Message: msg}
}

// Exit prints a notice and marks the client as exited. The process keeps
// running.
func (c *Client) Exit() {
	c.printf(c.out, "Exiting the script.\n")
	c.mu.Lock()
	c.exited = true
	c.mu.Unlock()
}

func (c *Client) Exited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exited
}

// Results returns the tests run so far, in call order.
func (c *Client) Results() []TestResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TestResult, len(c.results))
	copy(out, c.results)
	return out
}

func (c *Client) printf(w io.Writer, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, format, args...)
}

package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/abdul-hamid-achik/hitscript/packages/core/session"
	"github.com/abdul-hamid-achik/hitscript/packages/http"
	"github.com/abdul-hamid-achik/hitscript/packages/logging"
)

// Kind tells the engine which objects a script may see.
type Kind int

const (
	PreRequest Kind = iota
	ResponseHandler
)

func (k Kind) String() string {
	switch k {
	case PreRequest:
		return "pre-request"
	case ResponseHandler:
		return "response handler"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Context is everything a script can reach. Response is nil for
// pre-request scripts.
type Context struct {
	Client   *session.Client
	Request  *http.Request
	Response *http.Response
}

// ScriptError is returned when a script does not compile, throws an
// uncaught exception, or is interrupted.
type ScriptError struct {
	Kind    Kind
	Name    string
	Message string
	Err     error
}

func (e *ScriptError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s script: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s script %s: %s", e.Kind, e.Name, e.Message)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Engine compiles and runs scripts. It holds no per-run state and may be
// shared; runs themselves are sequential by contract.
type Engine struct {
	timeout time.Duration
	log     logging.Logger
}

type EngineOption func(*Engine)

// WithTimeout bounds every run. Zero means no limit beyond the caller's
// context.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{log: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile checks src for syntax errors.
func (e *Engine) Compile(kind Kind, name, src string) (*goja.Program, error) {
	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, &ScriptError{Kind: kind, Name: name, Message: err.Error(), Err: err}
	}
	return prog, nil
}

// Run executes src against sctx. Test failures are recorded on the client
// and do not make Run fail; an uncaught exception or a cancelled context
// does.
func (e *Engine) Run(ctx context.Context, kind Kind, name, src string, sctx *Context) error {
	if sctx == nil || sctx.Client == nil {
		return fmt.Errorf("run %s script %s: missing client", kind, name)
	}
	if kind == ResponseHandler && sctx.Response == nil {
		return fmt.Errorf("run %s script %s: missing response", kind, name)
	}

	prog, err := e.Compile(kind, name, src)
	if err != nil {
		return err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return &ScriptError{Kind: kind, Name: name, Message: err.Error(), Err: err}
	}

	vm := goja.New()
	b := &binding{ctx: ctx, vm: vm, sctx: sctx}
	if err := b.install(kind); err != nil {
		return fmt.Errorf("bind %s script %s: %w", kind, name, err)
	}

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	e.log.Debug("running script", "kind", kind.String(), "name", name)
	start := time.Now()
	_, err = vm.RunProgram(prog)
	e.log.Debug("script finished", "kind", kind.String(), "name", name, "duration", time.Since(start).String())
	if err == nil {
		return nil
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		cause := ctx.Err()
		if cause == nil {
			cause = err
		}
		return &ScriptError{Kind: kind, Name: name, Message: "interrupted: " + cause.Error(), Err: cause}
	}
	return &ScriptError{Kind: kind, Name: name, Message: errorText(err), Err: err}
}

// errorText renders a thrown value the way string interpolation would in
// the script, e.g. "Error: Assertion failed".
func errorText(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) && exc.Value() != nil {
		return exc.Value().String()
	}
	return err.Error()
}

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitscript/packages/builtin"
	"github.com/abdul-hamid-achik/hitscript/packages/core/env"
	"github.com/abdul-hamid-achik/hitscript/packages/core/fixture"
	"github.com/abdul-hamid-achik/hitscript/packages/core/session"
	"github.com/abdul-hamid-achik/hitscript/packages/http"
	"github.com/abdul-hamid-achik/hitscript/packages/logging"
	"github.com/abdul-hamid-achik/hitscript/packages/script"
)

const (
	// DefaultScriptTimeout bounds a single script run.
	DefaultScriptTimeout = 30 * time.Second

	skipFiltered = "filtered out"
)

type Runner struct {
	mu      sync.Mutex
	config  *Config
	session *session.Variables
	engine  *script.Engine
	funcs   *builtin.Registry
	log     logging.Logger
}

type Config struct {
	Environment        string
	ConfigEnvironments map[string]map[string]any
	Verbose            bool
	Timeout            time.Duration
	Bail               bool
	NameFilter         string
	TagsFilter         []string

	// EnvGuard decides which global names collide with the environment.
	EnvGuard session.EnvGuard
	// NoMirror keeps globals out of the process environment.
	NoMirror bool
	// Env replaces the process environment; nil means the real one.
	Env session.EnvTable
	// EnvSnapshot is the set of system names the guard checks. nil means
	// the names present in Env when the runner is built.
	EnvSnapshot *session.EnvKeySnapshot
	// ScriptOutput receives script output as it is produced, in addition
	// to the copy kept on each ExchangeResult.
	ScriptOutput io.Writer
	// Functions backs the {{$name}} dynamic variables; nil means the
	// built-in set.
	Functions *builtin.Registry
	Logger    logging.Logger
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}

	varOpts := []session.VariablesOption{
		session.WithEnvGuard(cfg.EnvGuard),
		session.WithMirror(!cfg.NoMirror),
		session.WithLogger(log.With("component", "session")),
	}
	if cfg.Env != nil {
		varOpts = append(varOpts, session.WithEnvTable(cfg.Env))
	}
	if cfg.EnvSnapshot != nil {
		varOpts = append(varOpts, session.WithEnvKeySnapshot(cfg.EnvSnapshot))
	}

	funcs := cfg.Functions
	if funcs == nil {
		funcs = builtin.NewRegistry()
	}

	return &Runner{
		config:  cfg,
		session: session.NewVariables(varOpts...),
		engine:  script.NewEngine(script.WithTimeout(timeout), script.WithLogger(log.With("component", "script"))),
		funcs:   funcs,
		log:     log,
	}
}

// Close ends the session: every global is dropped and the values it
// mirrored are removed from the environment again.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.ClearAll()
}

// Session returns the global variable store shared by every exchange.
func (r *Runner) Session() *session.Variables {
	return r.session
}

type RunResult struct {
	File     string
	Results  []*ExchangeResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
}

type ExchangeResult struct {
	Name       string
	Tags       []string
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	Request    *http.Request
	Response   *http.Response
	Tests      []session.TestResult
	// Unresolved lists the placeholders left in the request after
	// resolution.
	Unresolved []string
	// Output is everything the scripts printed.
	Output string
	Exited bool
	Error  error
}

// FailedTests returns the tests that did not pass.
func (e *ExchangeResult) FailedTests() []session.TestResult {
	var failed []session.TestResult
	for _, t := range e.Tests {
		if !t.Passed {
			failed = append(failed, t)
		}
	}
	return failed
}

// RunFile loads the fixture at path and replays its exchanges.
func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	file, err := fixture.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading fixture: %w", err)
	}
	return r.Run(ctx, file)
}

// Run replays the exchanges of an already loaded fixture.
func (r *Runner) Run(ctx context.Context, file *fixture.File) (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := &RunResult{File: file.Path}
	environment := env.LoadEnvironment(r.config.Environment, r.config.ConfigEnvironments, file.Environment)

	r.log.Debug("running fixture", "file", file.Path, "environment", environment.Name, "exchanges", len(file.Exchanges))

	for _, ex := range file.Exchanges {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		if !r.shouldRun(ex) {
			result.Results = append(result.Results, &ExchangeResult{
				Name:       ex.Name,
				Tags:       ex.Tags,
				Skipped:    true,
				SkipReason: skipFiltered,
			})
			result.Skipped++
			continue
		}

		if ex.Skip != "" {
			result.Results = append(result.Results, &ExchangeResult{
				Name:       ex.Name,
				Tags:       ex.Tags,
				Skipped:    true,
				SkipReason: string(ex.Skip),
			})
			result.Skipped++
			continue
		}

		exResult := r.runExchange(ctx, file.Path, ex, environment)
		result.Results = append(result.Results, exResult)

		if exResult.Passed {
			result.Passed++
			continue
		}
		result.Failed++
		if r.config.Bail {
			break
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) shouldRun(ex *fixture.Exchange) bool {
	if r.config.NameFilter != "" && !matchesPattern(ex.Name, r.config.NameFilter) {
		return false
	}
	if len(r.config.TagsFilter) > 0 && !ex.HasTag(r.config.TagsFilter...) {
		return false
	}
	return true
}

func (r *Runner) runExchange(ctx context.Context, path string, ex *fixture.Exchange, environment *env.Environment) *ExchangeResult {
	start := time.Now()
	result := &ExchangeResult{
		Name: ex.Name,
		Tags: ex.Tags,
	}

	var out bytes.Buffer
	w := io.Writer(&out)
	if r.config.ScriptOutput != nil {
		w = io.MultiWriter(&out, r.config.ScriptOutput)
	}
	client := session.NewClient(r.session, session.WithOutput(w))

	req := ex.BuildRequest(environment)
	sctx := &script.Context{Client: client, Request: req}
	result.Request = req

	result.Error = r.runScripts(ctx, path, ex, sctx, environment, result)
	result.Response = sctx.Response
	if result.Response == nil {
		result.Response = ex.BuildResponse()
	}

	result.Tests = client.Results()
	result.Output = out.String()
	result.Exited = client.Exited()
	result.Duration = time.Since(start)
	result.Passed = result.Error == nil && len(result.FailedTests()) == 0

	log := r.log.With("exchange", ex.Name)
	if result.Passed {
		log.Debug("exchange passed", "tests", len(result.Tests), "duration", result.Duration.String())
	} else {
		log.Info("exchange failed", "tests", len(result.Tests), "failed", len(result.FailedTests()), "error", result.Error)
	}
	return result
}

func (r *Runner) runScripts(ctx context.Context, path string, ex *fixture.Exchange, sctx *script.Context, environment *env.Environment, result *ExchangeResult) error {
	if ex.PreRequest != "" {
		if err := r.engine.Run(ctx, script.PreRequest, ex.PreRequestName(path), ex.PreRequest, sctx); err != nil {
			return err
		}
	}

	resolver := env.NewResolver(
		env.WithSources(
			env.StringSource(sctx.Request.Variables),
			env.Source(r.session.Get),
			env.StringSource(environment),
		),
		env.WithRegistry(r.funcs),
	)
	resolver.SetWarnFunc(func(format string, args ...any) {
		r.log.Warn(fmt.Sprintf(format, args...), "exchange", ex.Name)
	})
	result.Unresolved = unresolvedPlaceholders(resolver, sctx.Request)
	sctx.Request.Resolve(resolver.Resolve)

	if ex.Handler == "" {
		return nil
	}
	sctx.Response = ex.BuildResponse()
	if sctx.Response == nil {
		return errors.New("response handler without a recorded response")
	}
	return r.engine.Run(ctx, script.ResponseHandler, ex.HandlerName(path), ex.Handler, sctx)
}

func unresolvedPlaceholders(resolver *env.Resolver, req *http.Request) []string {
	texts := []string{req.URL(), req.Body()}
	for _, h := range req.Headers.All() {
		texts = append(texts, h.Value)
	}

	var names []string
	for _, text := range texts {
		if resolver.HasUnresolvedVariables(text) {
			names = append(names, resolver.GetUnresolvedVariables(text)...)
		}
	}
	return names
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		substr := pattern[1 : len(pattern)-1]
		for i := 0; i <= len(name)-len(substr); i++ {
			if name[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}

	if pattern[0] == '*' {
		suffix := pattern[1:]
		return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return name == pattern
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitscript/packages/core/config"
	"github.com/abdul-hamid-achik/hitscript/packages/core/fixture"
	"github.com/abdul-hamid-achik/hitscript/packages/core/runner"
	"github.com/abdul-hamid-achik/hitscript/packages/core/session"
	"github.com/abdul-hamid-achik/hitscript/packages/logging"
	"github.com/abdul-hamid-achik/hitscript/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>",
	Short: "Replay recorded exchanges through their scripts",
	Long: `Replay the exchanges in .exchange.yaml fixtures, running each
pre-request script and response handler against the recorded response.

Examples:
  hitscript run login.exchange.yaml
  hitscript run ./fixtures/ --env staging
  hitscript run ./fixtures/ --tags smoke
  hitscript run ./fixtures/ --name "login*" -v
  hitscript run ./fixtures/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag        string
	configFlag     string
	nameFlag       string
	tagsFlag       string
	verboseFlag    int // 0=off, 1=-v, 2=-vv streams script output live
	quietFlag      bool
	bailFlag       bool
	timeoutFlag    string
	noColorFlag    bool
	outputFlag     string
	outputFileFlag string
	watchFlag      bool
	envGuardFlag   string
	noMirrorFlag   bool
	logFileFlag    string
	logLevelFlag   string
	logMaxSizeFlag int
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("HITSCRIPT_ENV", ""), "Environment to use (default from config) (env: HITSCRIPT_ENV)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("HITSCRIPT_CONFIG", ""), "Path to config file (env: HITSCRIPT_CONFIG)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only exchanges matching name pattern")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("HITSCRIPT_TAGS", ""), "Run only exchanges with specified tags (comma-separated) (env: HITSCRIPT_TAGS)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv to stream script output)")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("HITSCRIPT_QUIET", false), "Suppress all output except errors (env: HITSCRIPT_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITSCRIPT_NO_COLOR", false), "Disable colored output (env: HITSCRIPT_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITSCRIPT_OUTPUT", ""), "Output format: console, json, junit, tap (env: HITSCRIPT_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HITSCRIPT_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HITSCRIPT_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("HITSCRIPT_BAIL", false), "Stop on first failure (env: HITSCRIPT_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITSCRIPT_TIMEOUT", ""), "Script timeout (e.g., 5s, 1m) (env: HITSCRIPT_TIMEOUT)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch fixtures and scripts for changes and re-run")

	// Session flags
	runCmd.Flags().StringVar(&envGuardFlag, "env-guard", getEnvString("HITSCRIPT_ENV_GUARD", ""), "Global name guard: strict, legacy, off (env: HITSCRIPT_ENV_GUARD)")
	runCmd.Flags().BoolVar(&noMirrorFlag, "no-mirror-env", getEnvBool("HITSCRIPT_NO_MIRROR_ENV", false), "Do not copy globals into the process environment (env: HITSCRIPT_NO_MIRROR_ENV)")

	// Diagnostics flags
	runCmd.Flags().StringVar(&logFileFlag, "log-file", getEnvString("HITSCRIPT_LOG_FILE", ""), "Write diagnostics to a rotated log file (env: HITSCRIPT_LOG_FILE)")
	runCmd.Flags().StringVar(&logLevelFlag, "log-level", getEnvString("HITSCRIPT_LOG_LEVEL", ""), "Diagnostics level: debug, info, warn, error (env: HITSCRIPT_LOG_LEVEL)")
	runCmd.Flags().IntVar(&logMaxSizeFlag, "log-max-size", getEnvInt("HITSCRIPT_LOG_MAX_SIZE", 0), "Rotate the log file after this many megabytes (env: HITSCRIPT_LOG_MAX_SIZE)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// newFormatter builds the reporter named by format writing to w.
func newFormatter(format string, w io.Writer, verbose, noColor bool) Formatter {
	switch strings.ToLower(format) {
	case "json":
		return output.NewJSONFormatter(output.JSONWithWriter(w))
	case "junit":
		return output.NewJUnitFormatter(output.JUnitWithWriter(w))
	case "tap":
		return output.NewTAPFormatter(output.TAPWithWriter(w))
	default: // "console"
		return output.NewConsoleFormatter(
			output.WithWriter(w),
			output.WithVerbose(verbose),
			output.WithNoColor(noColor),
		)
	}
}

// cliOverrides turns explicitly set flags into a config layered over the
// file config.
func cliOverrides(cmd *cobra.Command) (*config.Config, error) {
	overrides := &config.Config{
		DefaultEnvironment: envFlag,
		EnvGuard:           envGuardFlag,
		LogFile:            logFileFlag,
		LogLevel:           logLevelFlag,
		LogMaxSizeMB:       logMaxSizeFlag,
	}
	if timeoutFlag != "" {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 5s, 1m, 500ms)", timeoutFlag, err)
		}
		overrides.Timeout = int(timeout.Milliseconds())
	}
	if outputFlag != "" {
		overrides.Reporters = []string{outputFlag}
	}
	if noMirrorFlag {
		overrides.MirrorEnv = config.BoolPtr(false)
	}
	if bailFlag || cmd.Flags().Changed("bail") {
		overrides.Bail = config.BoolPtr(bailFlag)
	}
	if verboseFlag > 0 {
		overrides.Verbose = config.BoolPtr(true)
	}
	if noColorFlag || quietFlag {
		overrides.NoColor = config.BoolPtr(true)
	}
	return overrides, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func runCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(ExitConfigError)
	}
	overrides, err := cliOverrides(cmd)
	if err != nil {
		return err
	}
	cfg := fileConfig.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(ExitConfigError)
	}
	guard, _ := cfg.GetEnvGuard()

	log, err := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
		Console:   cmd.ErrOrStderr(),
		NoColor:   cfg.GetNoColor(),
	})
	if err != nil {
		return fmt.Errorf("cannot set up logging: %w", err)
	}
	log = log.With("run", uuid.NewString())

	// Setup output writer
	outWriter := cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		outWriter = f
	} else if quietFlag {
		outWriter = io.Discard
	}

	format := "console"
	if len(cfg.Reporters) > 0 {
		format = cfg.Reporters[0]
	}
	formatter := newFormatter(format, outWriter, cfg.GetVerbose(), cfg.GetNoColor())
	formatter.FormatHeader(version)

	files, err := fixture.FindFiles(args)
	if err != nil {
		formatter.FormatError(err)
		return err
	}

	if len(files) == 0 {
		formatter.FormatError(fmt.Errorf("no .exchange.yaml files found"))
		return fmt.Errorf("no files found")
	}

	environment := cfg.DefaultEnvironment
	runnerCfg := &runner.Config{
		Environment:        environment,
		ConfigEnvironments: cfg.Environments,
		Verbose:            cfg.GetVerbose(),
		Timeout:            cfg.GetTimeout(),
		Bail:               cfg.GetBail(),
		NameFilter:         nameFlag,
		TagsFilter:         splitTags(tagsFlag),
		EnvGuard:           guard,
		NoMirror:           !cfg.GetMirrorEnv(),
		// Names are captured once so a re-run never mistakes globals the
		// previous pass mirrored for system variables.
		EnvSnapshot: session.NewEnvKeySnapshot(session.OSEnv{}.Keys()),
		Logger:      log,
	}
	if verboseFlag > 1 && format == "console" {
		runnerCfg.ScriptOutput = cmd.ErrOrStderr()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting run", "files", len(files), "environment", environment, "guard", guard.String())

	// Each pass gets a fresh runner so a re-run starts with an empty session
	runAll := func(formatter Formatter) (failed, loadErrors int, duration time.Duration) {
		r := runner.NewRunner(runnerCfg)
		defer r.Close()
		startTime := time.Now()

		for _, file := range files {
			result, err := r.RunFile(ctx, file)
			if result != nil {
				formatter.FormatResult(result)
				failed += result.Failed
			}
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				loadErrors++
				formatter.FormatError(err)
				if runnerCfg.Bail {
					break
				}
				continue
			}

			if runnerCfg.Bail && result.Failed > 0 {
				break
			}
		}

		return failed, loadErrors, time.Since(startTime)
	}

	totalFailed, loadErrors, totalDuration := runAll(formatter)

	// Flush output for formatters that accumulate results
	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(totalDuration); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	if !watchFlag {
		switch {
		case totalFailed > 0:
			os.Exit(ExitTestFailure)
		case loadErrors > 0:
			os.Exit(ExitParseError)
		case ctx.Err() != nil:
			os.Exit(ExitInterrupted)
		}
		return nil
	}

	return watch(ctx, cmd, args, files, func() {
		formatter := newFormatter(format, outWriter, cfg.GetVerbose(), cfg.GetNoColor())
		_, _, duration := runAll(formatter)
		if flushable, ok := formatter.(Flushable); ok {
			_ = flushable.Flush(duration)
		}
	})
}

// serialRunner runs one re-run at a time. A change that arrives while a
// run is in progress waits for it to finish.
type serialRunner struct {
	mu  sync.Mutex
	run func(name string)
}

func (s *serialRunner) trigger(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run(name)
}

// isWatchedFile reports whether a change to path should trigger a re-run.
func isWatchedFile(path string) bool {
	if fixture.IsFixtureFile(path) {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs":
		return true
	}
	return false
}

func watch(ctx context.Context, cmd *cobra.Command, args, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Add files and directories to watch
	watchedDirs := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to watch %s: %v\n", dir, err)
			}
			watchedDirs[dir] = true
		}
	}

	// Also watch the original args if they're directories
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() && !watchedDirs[path] {
					_ = watcher.Add(path)
					watchedDirs[path] = true
				}
				return nil
			})
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Debounce timer for rapid file changes; runs never overlap
	var debounceTimer *time.Timer
	serial := &serialRunner{run: func(name string) {
		fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running exchanges...\n\n", name)
		rerun()
		fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	}}
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && isWatchedFile(event.Name) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				name := event.Name
				debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
					serial.trigger(name)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watcher error: %v\n", err)
		}
	}
}

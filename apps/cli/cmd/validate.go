package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitscript/packages/core/fixture"
	"github.com/abdul-hamid-achik/hitscript/packages/script"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>",
	Short: "Validate fixtures and compile their scripts",
	Long: `Validate exchange fixtures against the fixture schema and compile
every pre-request script and response handler without running them.

Examples:
  hitscript validate login.exchange.yaml
  hitscript validate ./fixtures/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

// validateFile loads path and compiles its scripts, returning every
// problem found.
func validateFile(engine *script.Engine, path string) []error {
	f, err := fixture.Load(path)
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, ex := range f.Exchanges {
		if ex.PreRequest != "" {
			if _, err := engine.Compile(script.PreRequest, ex.PreRequestName(path), ex.PreRequest); err != nil {
				errs = append(errs, err)
			}
		}
		if ex.Handler != "" {
			if _, err := engine.Compile(script.ResponseHandler, ex.HandlerName(path), ex.Handler); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := fixture.FindFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no .exchange.yaml files found")
	}

	engine := script.NewEngine()
	hasErrors := false
	for _, file := range files {
		errs := validateFile(engine, file)
		if len(errs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
			continue
		}
		hasErrors = true
		for _, err := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed")
	}

	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitscript/packages/core/fixture"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>",
	Short: "List all exchanges in fixtures",
	Long: `List every exchange defined in .exchange.yaml fixtures together
with the scripts attached to it.

Examples:
  hitscript list login.exchange.yaml
  hitscript list ./fixtures/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := fixture.FindFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no .exchange.yaml files found")
	}

	for _, file := range files {
		f, err := fixture.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", file)
		for _, ex := range f.Exchanges {
			method := strings.ToUpper(ex.Request.Method)
			if method == "" {
				method = "GET"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s (%s %s)\n", ex.Name, method, ex.Request.URL)

			var scripts []string
			if ex.PreRequest != "" {
				scripts = append(scripts, "pre-request")
			}
			if ex.Handler != "" {
				scripts = append(scripts, "handler")
			}
			if len(scripts) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    scripts: %s\n", strings.Join(scripts, ", "))
			}
			if len(ex.Tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    tags: %v\n", ex.Tags)
			}
			if ex.Skip != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    skip: %s\n", ex.Skip)
			}
		}
	}

	return nil
}

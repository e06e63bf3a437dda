package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitscript/packages/jsonpath"
)

var jsonpathCmd = &cobra.Command{
	Use:   "jsonpath <expression> [file]",
	Short: "Evaluate a JSONPath expression against a JSON document",
	Long: `Evaluate a JSONPath expression the same way the jsonPath() script
function does. The document is read from file, or from stdin when no file
is given.

Examples:
  hitscript jsonpath '$.items[0].id' response.json
  curl -s https://api.example.com/users | hitscript jsonpath '$[*].name'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: jsonpathCommand,
}

func jsonpathCommand(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 2 {
		data, err = os.ReadFile(args[1])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("cannot read document: %w", err)
	}

	value, ok, err := jsonpath.Eval(data, args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "null")
		return nil
	}

	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

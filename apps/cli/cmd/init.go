package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitscript/packages/core/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new hitscript project",
	Long: `Initialize a new hitscript project in the current directory.

This creates:
  - hitscript.yaml                 - Configuration file with environments
  - example.exchange.yaml          - Example fixture with two exchanges
  - scripts/check-profile.js       - Response handler used by the fixture

Examples:
  hitscript init
  hitscript init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleFixture = `# Recorded exchanges replayed by "hitscript run".
environment:
  user: ann

exchanges:
  - name: login
    tags: [auth, smoke]
    request:
      method: POST
      url: "{{baseUrl}}/auth/login"
      headers:
        - name: Content-Type
          value: application/json
      body: '{"user":"{{user}}"}'
    response:
      status: 200
      headers:
        Content-Type: application/json
      body: '{"token":"abc123","expires_in":3600}'
    handler: |
      client.test("login succeeded", function () {
        client.assert(response.status === 200, "expected 200, got " + response.status);
      });
      client.global.set("auth_token", response.body.token);
      client.log("token stored");

  - name: profile
    tags: [auth]
    request:
      url: "{{baseUrl}}/me"
      headers:
        - name: Authorization
          value: "Bearer {{auth_token}}"
    preRequest: |
      request.variables.set("requestedAt", new Date().toISOString());
      client.log("calling", request.url());
    response:
      status: 200
      headers:
        Content-Type: application/json
      body: '{"name":"Ann","roles":["admin","dev"]}'
    handlerFile: scripts/check-profile.js
`

const exampleHandler = `client.test("profile has a name", function () {
  client.assert(jsonPath(response.body, "$.name") === "Ann", "unexpected name");
});

client.test("auth header was sent", function () {
  var auth = request.headers.findByName("Authorization");
  client.assert(auth !== null && auth.value() === "Bearer " + client.global.get("auth_token"));
});

var params = new URLSearchParams({ roles: jsonPath(response.body, "$.roles").join(",") });
client.log(params.toString());
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "hitscript.yaml")
	exampleFile := filepath.Join(cwd, "example.exchange.yaml")
	handlerFile := filepath.Join(cwd, "scripts", "check-profile.js")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile, handlerFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.Environments = map[string]map[string]any{
		"dev": {
			"baseUrl": "http://localhost:3000",
		},
		"staging": {
			"baseUrl": "https://staging.api.example.com",
		},
		"prod": {
			"baseUrl": "https://api.example.com",
		},
	}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleFixture), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	if err := os.MkdirAll(filepath.Dir(handlerFile), 0755); err != nil {
		return fmt.Errorf("failed to create scripts directory: %w", err)
	}
	if err := os.WriteFile(handlerFile, []byte(exampleHandler), 0644); err != nil {
		return fmt.Errorf("failed to create handler script: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", handlerFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitscript project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hitscript run example.exchange.yaml' to replay the example exchanges.\n")

	return nil
}

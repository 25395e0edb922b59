package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/restfile/restfile/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new restfile project",
	Long: `Initialize a new restfile project in the current directory.

This creates:
  - .restfile.json      - Configuration file
  - restfile.env.json   - Environment document
  - example.http        - Example request file

Examples:
  restfile init
  restfile init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, ".restfile.json")
	envFile := filepath.Join(cwd, "restfile.env.json")
	exampleFile := filepath.Join(cwd, "example.http")

	if !forceInit {
		for _, f := range []string{configFile, envFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.DefaultEnvironment = "dev"
	cfg.EnvironmentFile = "restfile.env.json"
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	environments := map[string]map[string]string{
		"$shared": {
			"api": "/api/v1",
		},
		"dev": {
			"host": "http://localhost:3000",
		},
		"staging": {
			"host": "https://staging.example.com",
		},
	}
	envJSON, _ := json.MarshalIndent(environments, "", "  ")
	if err := os.WriteFile(envFile, append(envJSON, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to create environment file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)

	exampleContent := `@base = {{host}}{{api}}

# @name createTodo
POST {{base}}/todos
Content-Type: application/json
X-Request-Id: {{$guid}}

{
  "title": "Try restfile",
  "created": "{{$datetime iso8601}}"
}

###

# @name getTodo
GET {{base}}/todos/{{createTodo.response.body.id}}
Accept: application/json
`

	if err := os.WriteFile(exampleFile, []byte(exampleContent), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nrestfile project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'restfile run example.http' to execute the example requests.\n")

	return nil
}

package cmd

import (
	"fmt"

	"github.com/restfile/restfile/packages/core/parser"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>",
	Short: "List the requests defined in request files",
	Long: `List the requests defined in .http or .rest files.

Examples:
  restfile list api.http
  restfile list ./requests/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no .http or .rest files found")
	}

	for _, file := range files {
		doc, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error reading %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", file)
		if len(doc.Requests) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  (no requests)\n")
			continue
		}
		for _, req := range doc.Requests {
			span := fmt.Sprintf("%d-%d", req.Span.Start, req.Span.End)
			if req.Name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-9s %s (%s %s)\n", span, req.Name, req.Method, req.URL)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-9s %s %s\n", span, req.Method, req.URL)
			}
		}
	}

	return nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/restfile/restfile/packages/core/config"
	"github.com/restfile/restfile/packages/core/env"
	"github.com/restfile/restfile/packages/core/parser"
	"github.com/restfile/restfile/packages/core/runner"
	"github.com/restfile/restfile/packages/history"
	"github.com/restfile/restfile/packages/output"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>",
	Short: "Execute requests from request files",
	Long: `Execute the requests defined in .http or .rest files, in the order
they appear. Named responses feed {{name.response...}} references in
later requests.

Examples:
  restfile run api.http
  restfile run api.http --env staging
  restfile run ./requests/ --output json
  restfile run api.http --name login --var token=abc
  restfile run api.http --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag          string
	environmentsFlag string
	envFileFlag      string
	configFlag       string
	varFlags         []string
	nameFlag         string
	verboseFlag      int
	quietFlag        bool
	bailFlag         bool
	timeoutFlag      string
	noColorFlag      bool
	outputFlag       string
	outputFileFlag   string
	watchFlag        bool
	proxyFlag        string
	insecureFlag     bool
	noRedirectsFlag  bool
	maxRedirectsFlag int
	historyDBFlag    string
)

func init() {
	// Environment flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("RESTFILE_ENV", ""), "Environment to select (env: RESTFILE_ENV)")
	runCmd.Flags().StringVar(&environmentsFlag, "environments", getEnvString("RESTFILE_ENVIRONMENTS", ""), "Path to the environment document (env: RESTFILE_ENVIRONMENTS)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("RESTFILE_ENV_FILE", ""), "Path to a .env file exported into the process environment (env: RESTFILE_ENV_FILE)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("RESTFILE_CONFIG", ""), "Path to config file (env: RESTFILE_CONFIG)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Variable override as key=value (repeatable)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only the request with this name")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("RESTFILE_QUIET", false), "Suppress all output except errors (env: RESTFILE_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("RESTFILE_NO_COLOR", false), "Disable colored output (env: RESTFILE_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("RESTFILE_OUTPUT", ""), "Output format: console, json (env: RESTFILE_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("RESTFILE_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: RESTFILE_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("RESTFILE_BAIL", false), "Stop on first failure (env: RESTFILE_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("RESTFILE_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: RESTFILE_TIMEOUT)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run")
	runCmd.Flags().StringVar(&historyDBFlag, "history-db", getEnvString("RESTFILE_HISTORY_DB", ""), "SQLite file recording executions (env: RESTFILE_HISTORY_DB)")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("RESTFILE_PROXY", ""), "Proxy URL for HTTP requests (env: RESTFILE_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("RESTFILE_INSECURE", false), "Disable SSL certificate validation (env: RESTFILE_INSECURE)")
	runCmd.Flags().BoolVar(&noRedirectsFlag, "no-redirects", false, "Do not follow redirects")
	runCmd.Flags().IntVar(&maxRedirectsFlag, "max-redirects", getEnvInt("RESTFILE_MAX_REDIRECTS", 0), "Maximum redirects to follow (env: RESTFILE_MAX_REDIRECTS)")
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

// Formatter is the interface every output formatter implements
type Formatter interface {
	FormatResult(result *runner.DocumentResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that accumulate and emit on Flush
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

func runCommand(cmd *cobra.Command, args []string) error {
	// Setup output writer
	var outWriter *os.File
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		outWriter = f
	}

	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	format := outputFlag
	if format == "" {
		format = fileConfig.Output
	}
	verbose := verboseFlag > 0 || fileConfig.GetVerbose()
	noColor := noColorFlag || quietFlag || fileConfig.GetNoColor()

	makeFormatter := func() Formatter {
		switch strings.ToLower(format) {
		case "json":
			opts := []output.JSONOption{}
			if outWriter != nil {
				opts = append(opts, output.JSONWithWriter(outWriter))
			}
			return output.NewJSONFormatter(opts...)
		default: // "console"
			consoleOpts := []output.ConsoleOption{
				output.WithVerbose(verbose),
				output.WithNoColor(noColor),
			}
			if outWriter != nil {
				consoleOpts = append(consoleOpts, output.WithWriter(outWriter))
			} else if quietFlag {
				consoleOpts = append(consoleOpts, output.WithWriter(io.Discard))
			}
			return output.NewConsoleFormatter(consoleOpts...)
		}
	}

	formatter := makeFormatter()
	formatter.FormatHeader(version)

	// In quiet mode errors still reach stderr even though the formatter
	// writes to io.Discard.
	reportError := func(err error) {
		if quietFlag {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		formatter.FormatError(err)
	}

	files, err := collectFiles(args)
	if err != nil {
		reportError(err)
		return err
	}
	if len(files) == 0 {
		err := fmt.Errorf("no .http or .rest files found")
		reportError(err)
		return err
	}

	// Export .env entries before anything resolves {{$processEnv ...}}
	if envFileFlag != "" {
		if _, err := env.ExportDotEnv(envFileFlag); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}

	timeout := fileConfig.GetTimeout()
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		timeout = d
	}

	followRedirects := fileConfig.GetFollowRedirects()
	if noRedirectsFlag {
		followRedirects = false
	}

	maxRedirects := fileConfig.MaxRedirects
	if maxRedirectsFlag > 0 {
		maxRedirects = maxRedirectsFlag
	}

	proxy := fileConfig.Proxy
	if proxyFlag != "" {
		proxy = proxyFlag
	}

	validateSSL := fileConfig.GetValidateSSL()
	if insecureFlag {
		validateSSL = false
	}

	bail := bailFlag || fileConfig.GetBail()

	r := runner.NewRunner(&runner.Config{
		Timeout:        timeout,
		FollowRedirect: followRedirects,
		MaxRedirects:   maxRedirects,
		Insecure:       !validateSSL,
		Proxy:          proxy,
		UserAgent:      fileConfig.UserAgent,
		DefaultHeaders: fileConfig.Headers,
	})

	envName := envFlag
	if envName == "" {
		envName = fileConfig.DefaultEnvironment
	}
	envDoc := resolveEnvironmentDocument(environmentsFlag, fileConfig)
	if err := configureResolver(r.Resolver(), envDoc, envName, varFlags); err != nil {
		return err
	}

	// Execution history is off unless a database path is configured
	var store *history.Store
	historyPath := historyDBFlag
	if historyPath == "" {
		historyPath = fileConfig.HistoryDB
	}
	if historyPath != "" {
		store, err = history.Open(historyPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	runFiles := func() (completed, failed int, duration time.Duration) {
		start := time.Now()
		for _, file := range files {
			result, err := runRequestFile(r, file, nameFlag, bail)
			if err != nil {
				reportError(err)
				failed++
				if bail {
					break
				}
				continue
			}

			formatter.FormatResult(result)
			recordHistory(store, result)
			completed += result.Succeeded
			failed += result.Failed

			if bail && result.Failed > 0 {
				break
			}
		}
		return completed, failed, time.Since(start)
	}

	_, totalFailed, totalDuration := runFiles()

	// Flush output for formatters that accumulate results
	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(totalDuration); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	// If watch mode is not enabled, exit normally
	if !watchFlag {
		if totalFailed > 0 {
			if store != nil {
				_ = store.Close()
			}
			os.Exit(ExitRequestFailure)
		}
		return nil
	}

	// Watch mode: set up file watcher
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
				reportError(fmt.Errorf("failed to watch %s: %w", dir, err))
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

	// Debounce timer for rapid file changes
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Only react to write events on request files
			if event.Has(fsnotify.Write) && isRequestFile(event.Name) {
				// Debounce: reset timer on each event
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running...\n\n", event.Name)

					// Fresh formatter per run; JSON needs clean state
					formatter = makeFormatter()

					_, _, duration := runFiles()

					if flushable, ok := formatter.(Flushable); ok {
						_ = flushable.Flush(duration)
					}

					fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			reportError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

// runRequestFile parses one file and runs its requests, optionally narrowed
// to the request named nameFilter.
func runRequestFile(r *runner.Runner, path, nameFilter string, bail bool) (*runner.DocumentResult, error) {
	doc, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	if nameFilter != "" {
		var matched []*parser.Request
		for _, req := range doc.Requests {
			if strings.EqualFold(req.Name, nameFilter) {
				matched = append(matched, req)
			}
		}
		if len(matched) == 0 {
			return nil, fmt.Errorf("no request named %q in %s", nameFilter, path)
		}
		doc = &parser.Document{Variables: doc.Variables, Requests: matched}
	}

	result := r.RunDocument(context.Background(), doc, &runner.RunOptions{Bail: bail})
	result.Path = path
	return result, nil
}

// recordHistory writes one history entry per executed request. Recording
// problems are warnings, never run failures.
func recordHistory(store *history.Store, result *runner.DocumentResult) {
	if store == nil {
		return
	}

	for _, res := range result.Results {
		entry := &history.Entry{
			File:        result.Path,
			RequestName: res.Name,
			DurationMs:  res.Duration.Milliseconds(),
			Success:     res.Success,
			Error:       res.Error,
		}
		if res.Request != nil {
			entry.Method = res.Request.Method
			entry.URL = res.Request.URL
		}
		if res.Response != nil {
			entry.StatusCode = res.Response.StatusCode
		}
		if !res.Success {
			entry.FailureKind = res.FailureKind.String()
		}

		if err := store.Record(context.Background(), entry); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording history: %v\n", err)
		}
	}
}

// envDocumentNames are the conventional environment document filenames
// looked for in the working directory when no path is configured.
var envDocumentNames = []string{"restfile.env.json", "restfile.env.yaml", "restfile.env.yml"}

// resolveEnvironmentDocument picks the environment document path: the flag
// wins, then the config file, then the conventional names.
func resolveEnvironmentDocument(flagPath string, cfg *config.Config) string {
	if flagPath != "" {
		return flagPath
	}
	if cfg.EnvironmentFile != "" {
		return cfg.EnvironmentFile
	}
	for _, name := range envDocumentNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// configureResolver loads the environment document, selects the environment,
// and installs --var overrides.
func configureResolver(resolver *env.Resolver, docPath, envName string, vars []string) error {
	resolver.SetWarnFunc(func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
	})

	if docPath != "" {
		if err := resolver.LoadEnvironment(docPath); err != nil {
			return err
		}
	}

	if envName != "" {
		if docPath == "" {
			return fmt.Errorf("environment %q requested but no environment document found (use --environments or set environmentFile in the config)", envName)
		}
		if err := resolver.SetEnvironment(envName); err != nil {
			return err
		}
	}

	for _, pair := range vars {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --var %q (expected key=value)", pair)
		}
		resolver.SetVariable(key, value)
	}

	return nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isRequestFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else {
			if isRequestFile(arg) {
				files = append(files, arg)
			}
		}
	}

	return files, nil
}

func isRequestFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".http" || ext == ".rest"
}

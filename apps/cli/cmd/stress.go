package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/restfile/restfile/packages/core/config"
	"github.com/restfile/restfile/packages/core/env"
	"github.com/restfile/restfile/packages/core/runner"
	"github.com/restfile/restfile/packages/stress"
	"github.com/spf13/cobra"
)

var stressCmd = &cobra.Command{
	Use:   "stress <file>",
	Short: "Drive a file's requests as a load test",
	Long: `Repeatedly execute requests from a .http file at a target rate or
with a fixed number of virtual users, and report latency percentiles.

Examples:
  # Constant rate
  restfile stress api.http --duration 1m --rate 100

  # Virtual users with think time
  restfile stress api.http --duration 2m --vus 50 --think-time 1s

  # Ramp up to the target rate
  restfile stress api.http --duration 5m --rate 200 --ramp-up 30s

  # One named request only
  restfile stress api.http --name login -d 1m -r 50

  # Thresholds for CI
  restfile stress api.http -d 1m -r 100 --threshold "p90<200ms,errors<0.1%"`,
	Args: cobra.ExactArgs(1),
	RunE: stressCommand,
}

var (
	stressDurationFlag   string
	stressRateFlag       float64
	stressVUsFlag        int
	stressMaxVUsFlag     int
	stressThinkTimeFlag  string
	stressRampUpFlag     string
	stressThresholdFlag  string
	stressEnvFlag        string
	stressEnvironsFlag   string
	stressEnvFileFlag    string
	stressVarFlags       []string
	stressNameFlag       string
	stressConfigFlag     string
	stressNoProgressFlag bool
	stressNoColorFlag    bool
	stressJSONFlag       bool
	stressProxyFlag      string
	stressInsecureFlag   bool
)

func init() {
	stressCmd.Flags().StringVarP(&stressDurationFlag, "duration", "d", "30s", "Test duration (e.g., 30s, 5m, 1h)")
	stressCmd.Flags().Float64VarP(&stressRateFlag, "rate", "r", 10, "Target requests per second")
	stressCmd.Flags().IntVarP(&stressVUsFlag, "vus", "u", 0, "Number of virtual users (alternative to rate)")
	stressCmd.Flags().IntVar(&stressMaxVUsFlag, "max-vus", 100, "Maximum concurrent requests")
	stressCmd.Flags().StringVarP(&stressThinkTimeFlag, "think-time", "t", "0s", "Think time between requests per VU")
	stressCmd.Flags().StringVar(&stressRampUpFlag, "ramp-up", "0s", "Ramp-up time to reach the target rate")
	stressCmd.Flags().StringVar(&stressThresholdFlag, "threshold", "", "Pass/fail thresholds (e.g., \"p90<200ms,errors<0.1%\")")
	stressCmd.Flags().StringVarP(&stressEnvFlag, "env", "e", getEnvString("RESTFILE_ENV", ""), "Environment to select (env: RESTFILE_ENV)")
	stressCmd.Flags().StringVar(&stressEnvironsFlag, "environments", getEnvString("RESTFILE_ENVIRONMENTS", ""), "Path to the environment document (env: RESTFILE_ENVIRONMENTS)")
	stressCmd.Flags().StringVar(&stressEnvFileFlag, "env-file", getEnvString("RESTFILE_ENV_FILE", ""), "Path to a .env file exported into the process environment (env: RESTFILE_ENV_FILE)")
	stressCmd.Flags().StringArrayVar(&stressVarFlags, "var", nil, "Variable override as key=value (repeatable)")
	stressCmd.Flags().StringVarP(&stressNameFlag, "name", "n", "", "Stress only the request with this name")
	stressCmd.Flags().StringVar(&stressConfigFlag, "config", getEnvString("RESTFILE_CONFIG", ""), "Path to config file (env: RESTFILE_CONFIG)")
	stressCmd.Flags().BoolVar(&stressNoProgressFlag, "no-progress", false, "Disable real-time progress display")
	stressCmd.Flags().BoolVar(&stressNoColorFlag, "no-color", getEnvBool("RESTFILE_NO_COLOR", false), "Disable colored output (env: RESTFILE_NO_COLOR)")
	stressCmd.Flags().BoolVar(&stressJSONFlag, "json", false, "Output results as JSON")
	stressCmd.Flags().StringVar(&stressProxyFlag, "proxy", getEnvString("RESTFILE_PROXY", ""), "Proxy URL for HTTP requests (env: RESTFILE_PROXY)")
	stressCmd.Flags().BoolVarP(&stressInsecureFlag, "insecure", "k", getEnvBool("RESTFILE_INSECURE", false), "Disable SSL certificate validation (env: RESTFILE_INSECURE)")
}

func stressCommand(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}

	fileConfig, err := config.LoadConfig(stressConfigFlag)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := buildStressConfig()
	if err != nil {
		return err
	}

	if stressEnvFileFlag != "" {
		if _, err := env.ExportDotEnv(stressEnvFileFlag); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}

	proxy := fileConfig.Proxy
	if stressProxyFlag != "" {
		proxy = stressProxyFlag
	}
	validateSSL := fileConfig.GetValidateSSL()
	if stressInsecureFlag {
		validateSSL = false
	}

	core := runner.NewRunner(&runner.Config{
		Timeout:        fileConfig.GetTimeout(),
		FollowRedirect: fileConfig.GetFollowRedirects(),
		MaxRedirects:   fileConfig.MaxRedirects,
		Insecure:       !validateSSL,
		Proxy:          proxy,
		UserAgent:      fileConfig.UserAgent,
		DefaultHeaders: fileConfig.Headers,
	})

	envName := stressEnvFlag
	if envName == "" {
		envName = fileConfig.DefaultEnvironment
	}
	envDoc := resolveEnvironmentDocument(stressEnvironsFlag, fileConfig)
	if err := configureResolver(core.Resolver(), envDoc, envName, stressVarFlags); err != nil {
		return err
	}

	reporter := stress.NewReporter(
		stress.WithNoColor(stressNoColorFlag),
		stress.WithNoProgress(stressNoProgressFlag),
	)

	runnerOpts := []stress.RunnerOption{
		stress.WithCoreRunner(core),
		stress.WithReporter(reporter),
		stress.WithVersion(version),
	}
	if stressNameFlag != "" {
		runnerOpts = append(runnerOpts, stress.WithNameFilter(stressNameFlag))
	}
	stressRunner := stress.NewRunner(cfg, runnerOpts...)

	if err := stressRunner.LoadFile(filePath); err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt, stopping gracefully...")
		cancel()
	}()

	result, err := stressRunner.Run(ctx)
	if err != nil {
		return err
	}

	if stressJSONFlag {
		return reporter.JSONSummary(result.Summary, result.Thresholds)
	}

	if result.HasThresholdFailures() {
		os.Exit(ExitThresholdFailure)
	}

	return nil
}

// buildStressConfig builds the stress configuration from flags
func buildStressConfig() (*stress.Config, error) {
	cfg := stress.DefaultConfig()

	if stressDurationFlag != "30s" { // Only override if explicitly set
		d, err := time.ParseDuration(stressDurationFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid duration: %w", err)
		}
		cfg.Duration = d
	}

	if stressRateFlag != 10 { // Only override if explicitly set
		cfg.Rate = stressRateFlag
	}

	if stressVUsFlag > 0 {
		cfg.VUs = stressVUsFlag
		cfg.Mode = stress.VUMode
	}

	if stressMaxVUsFlag != 100 { // Only override if explicitly set
		cfg.MaxVUs = stressMaxVUsFlag
	}

	if stressThinkTimeFlag != "0s" {
		d, err := time.ParseDuration(stressThinkTimeFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid think time: %w", err)
		}
		cfg.ThinkTime = d
	}

	if stressRampUpFlag != "0s" {
		d, err := time.ParseDuration(stressRampUpFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid ramp-up: %w", err)
		}
		cfg.RampUp = d
	}

	if stressThresholdFlag != "" {
		t, err := stress.ParseThresholds(stressThresholdFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid thresholds: %w", err)
		}
		cfg.Thresholds = t
	}

	return cfg, nil
}

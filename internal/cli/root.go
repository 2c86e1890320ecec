package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/timingbelt/internal/config"
	"github.com/me/timingbelt/internal/logging"
)

var (
	flagServer    string
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking TIMINGBELT_SERVER first.
func defaultServer() string {
	if s := os.Getenv("TIMINGBELT_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8090"
}

// NewRootCmd creates the root cobra command for the timingbelt CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "timingbelt",
		Short: "Cooperative frame scheduler",
		Long: "timingbelt drives renderables and idle jobs from a frame loop, either " +
			"headless (run) or behind an inspection API (serve).",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			logger = logging.NewLogger(logging.ParseLevel(cfg.Server.LogLevel), cfg.Server.LogFormat)
			client = NewClient(flagServer, logger)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "timingbelt server URL (or TIMINGBELT_SERVER env)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newConfigCmd(),
		newStatsCmd(),
		newCyclesCmd(),
		newJobsCmd(),
		newTuneCmd(),
	)

	return root
}

// loadConfig builds the effective config: defaults, then the --config file,
// then any logging flags given explicitly.
func loadConfig(cmd *cobra.Command) error {
	cfg = config.DefaultConfig()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Server.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.Server.LogFormat = flagLogFormat
	}
	if flagDebug {
		cfg.Server.LogLevel = "debug"
	}
	return logging.ValidateFormat(cfg.Server.LogFormat)
}

// Package main is the entry point for the wallscribe CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/darkawower/wallscribe/internal/backend"
	"github.com/darkawower/wallscribe/internal/config"
	"github.com/darkawower/wallscribe/internal/core"
	"github.com/darkawower/wallscribe/internal/detect"
	"github.com/darkawower/wallscribe/internal/logging"
	"github.com/darkawower/wallscribe/internal/server"
	"github.com/darkawower/wallscribe/internal/ui"

	_ "github.com/darkawower/wallscribe/internal/platform/darwin"
	_ "github.com/darkawower/wallscribe/internal/platform/winapi"
)

const version = "0.1.0"

var (
	// Global flags
	cfgFile     string
	backendFlag string
	verbose     bool
	quiet       bool

	// Global output
	out *ui.Output
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wallscribe",
		Short: "Cross-platform wallpaper engine with text overlays",
		Long: `Wallscribe sets the desktop wallpaper from a local file or a URL on
GNOME, XFCE, KDE Plasma, Sway, X11 window managers, macOS and Windows.

Run 'wallscribe serve' to keep the current wallpaper in memory, then use
set-path, set-url and overlay to change it.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/wallscribe/config.toml)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "force a backend instead of detecting one (serve, apply, detect)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newSetPathCmd(),
		newSetURLCmd(),
		newOverlayCmd(),
		newStatusCmd(),
		newColorsCmd(),
		newApplyCmd(),
		newDetectCmd(),
		newBackendsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func initOutput(cmd *cobra.Command) {
	out = ui.NewOutput(cmd.OutOrStdout())
	out.SetQuiet(quiet)
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if backendFlag != "" {
		if _, err := backend.ParseKind(backendFlag); err != nil {
			return nil, err
		}
		cfg.Backend.Force = backendFlag
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

// newEngine builds an in-process engine for one-shot commands.
func newEngine() (*core.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	engine, err := core.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, func() { _ = logger.Sync() }, nil
}

// errServerOwnsBackend rejects --backend on commands served by a running
// server, which picked its backend at startup.
var errServerOwnsBackend = errors.New("--backend has no effect on commands sent to the server")

func newClient() (*server.Client, error) {
	if backendFlag != "" {
		return nil, errServerOwnsBackend
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return server.NewClient(cfg.Server.Socket), nil
}

// reportError prints err with a hint for the failures users can fix.
func reportError(action string, err error) error {
	msg := fmt.Sprintf("%s: %v", action, err)

	var remote *server.RemoteError
	switch {
	case errors.Is(err, detect.ErrNoBackend):
		out.ErrorWithHint(msg, "Pass --backend or set [backend] force in the config")
	case errors.Is(err, errServerOwnsBackend):
		out.ErrorWithHint(msg, "Pass --backend to 'wallscribe serve' or set [backend] force in the config")
	case errors.Is(err, backend.ErrUnknownBackend):
		out.ErrorWithHint(msg, "Run 'wallscribe backends' to list the known backends")
	case errors.As(err, &remote) && remote.Retryable:
		out.ErrorWithHint(msg, "The failure looks transient, try again")
	case errors.As(err, &remote):
		out.Error("%s", msg)
	case strings.Contains(err.Error(), "failed to reach server"):
		out.ErrorWithHint(msg, "Start the server with 'wallscribe serve'")
	default:
		out.Error("%s", msg)
	}
	return err
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			initOutput(cmd)

			configPath := cfgFile
			if configPath == "" {
				configPath = config.DefaultConfigPath()
			}

			if _, err := os.Stat(configPath); err == nil && !force {
				out.Warning("Configuration already exists at %s", configPath)
				out.Info("Use --force to overwrite")
				return nil
			}

			cfg := config.DefaultConfig()
			if err := cfg.EnsureDirectories(); err != nil {
				return reportError("Failed to create directories", err)
			}
			if err := cfg.Save(configPath); err != nil {
				return reportError("Failed to write config", err)
			}

			out.Success("Wallscribe initialized")
			out.Field("Config", configPath)
			out.Field("Socket", cfg.Server.Socket)
			out.Field("Temp", config.GetTempDir())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration")

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Hold the wallpaper buffer and accept commands on a unix socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			initOutput(cmd)

			cfg, err := loadConfig()
			if err != nil {
				return reportError("Failed to load config", err)
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return reportError("Failed to create logger", err)
			}
			defer func() { _ = logger.Sync() }()

			if err := cfg.EnsureDirectories(); err != nil {
				return reportError("Failed to create directories", err)
			}

			engine, err := core.NewFromConfig(cfg, logger)
			if err != nil {
				return reportError("Failed to create engine", err)
			}

			if err := server.New(engine, logger.Named("server")).Serve(cmd.Context(), cfg.Server.Socket); err != nil {
				return reportError("Server stopped", err)
			}
			return nil
		},
	}
}

func newSetPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-path <file>",
		Short: "Set the base wallpaper from a local image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initOutput(cmd)

			client, err := newClient()
			if err != nil {
				return reportError("Failed to load config", err)
			}

			path, err := filepath.Abs(args[0])
			if err != nil {
				return reportError("Failed to resolve path", err)
			}

			status, err := client.SetPath(cmd.Context(), path)
			if err != nil {
				return reportError("Failed to set wallpaper", err)
			}

			out.Success("Wallpaper set")
			printStatus(status)
			return nil
		},
	}
}

func newSetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <url>",
		Short: "Download an image and set it as the base wallpaper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initOutput(cmd)

			client, err := newClient()
			if err != nil {
				return reportError("Failed to load config", err)
			}

			spinner := ui.NewSpinner(out, "Downloading...")
			spinner.Start()
			status, err := client.SetURL(cmd.Context(), args[0])
			spinner.Stop()

			if err != nil {
				return reportError("Failed to set wallpaper", err)
			}

			out.Success("Wallpaper set")
			printStatus(status)
			return nil
		},
	}
}

func newOverlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overlay <text>...",
		Short: "Draw text onto the current wallpaper and reapply it",
		Long: `Draws text onto the in-memory wallpaper, writes it over the base file
and sets it again. Overlays accumulate until a new base is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initOutput(cmd)

			client, err := newClient()
			if err != nil {
				return reportError("Failed to load config", err)
			}

			status, err := client.Overlay(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return reportError("Failed to overlay text", err)
			}

			out.Success("Overlay applied")
			printStatus(status)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server's current wallpaper as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			initOutput(cmd)

			client, err := newClient()
			if err != nil {
				return reportError("Failed to load config", err)
			}

			body, err := client.StatusRaw(cmd.Context())
			if err != nil {
				return reportError("Failed to get status", err)
			}

			body = pretty.Pretty(body)
			if ui.IsTerminal(out.Writer()) {
				body = pretty.Color(body, nil)
			}
			_, err = out.Writer().Write(body)
			return err
		},
	}
}

func newColorsCmd() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "colors",
		Short: "Show dominant colors of the current wallpaper",
		RunE: func(cmd *cobra.Command, args []string) error {
			initOutput(cmd)

			client, err := newClient()
			if err != nil {
				return reportError("Failed to load config", err)
			}

			palette, err := client.Colors(cmd.Context(), topN)
			if err != nil {
				return reportError("Failed to analyze colors", err)
			}

			for _, c := range palette.Colors {
				out.ColorSwatch(c.Hex, c.Share)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topN, "top", core.DefaultPaletteSize, "number of colors to show")

	return cmd
}

func newApplyCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply <file|url>",
		Short: "Set the wallpaper once without a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initOutput(cmd)

			engine, cleanup, err := newEngine()
			if err != nil {
				return reportError("Failed to create engine", err)
			}
			defer cleanup()

			result, err := engine.Apply(cmd.Context(), args[0], dryRun)
			if err != nil {
				return reportError("Failed to set wallpaper", err)
			}

			if result.DryRun {
				out.Info("Would set wallpaper to: %s", result.Path)
			} else {
				out.Success("Wallpaper set")
				out.Field("Path", result.Path)
			}
			if result.Backend != "" {
				out.Field("Backend", result.Backend)
			}
			if result.Command != "" {
				out.Field("Command", result.Command)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without doing it")

	return cmd
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Show which backend would set the wallpaper",
		RunE: func(cmd *cobra.Command, args []string) error {
			initOutput(cmd)

			engine, cleanup, err := newEngine()
			if err != nil {
				return reportError("Failed to create engine", err)
			}
			defer cleanup()

			plan, err := engine.Detect(cmd.Context())
			if err != nil {
				return reportError("Detection failed", err)
			}

			out.Field("Backend", string(plan.Backend.Kind))
			out.Field("Description", plan.Backend.Description)
			if !plan.Command.IsZero() {
				out.Field("Command", plan.Command.String())
			}
			return nil
		},
	}
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the known wallpaper backends",
		Run: func(cmd *cobra.Command, args []string) {
			initOutput(cmd)

			var rows [][]string
			for _, b := range backend.All() {
				rows = append(rows, []string{string(b.Kind), policyName(b), b.Description})
			}
			out.Table([]string{"NAME", "PATH", "DESCRIPTION"}, rows)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			initOutput(cmd)
			out.Print("wallscribe version %s", version)
		},
	}
}

func printStatus(s core.Status) {
	out.Field("Source", s.Source)
	if s.LocalPath != "" && s.LocalPath != s.Source {
		out.Field("File", s.LocalPath)
	}
	out.Field("Size", fmt.Sprintf("%dx%d", s.Width, s.Height))
	if s.Backend != "" {
		out.Field("Backend", s.Backend)
	}
}

func policyName(b backend.Backend) string {
	switch {
	case b.Strategy == backend.StrategyNative:
		return "native"
	case b.Policy == backend.PathEscaped:
		return "escaped"
	default:
		return "raw"
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timmy/copyscale/internal/app"
	"github.com/timmy/copyscale/internal/config"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/video/opencv"
)

var (
	version = "dev"

	// CLI flags
	configPath  string
	jsonOutput  bool
	debug       bool
	topK        int
	perFrameK   int
	title       string
	owner       string
	description string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "copyscale",
		Short:         "Copyright risk analysis for images and video",
		Long:          "copyscale compares images and video frames against registered reference images and reports derivation risk",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	compareCmd := &cobra.Command{
		Use:   "compare <query-image> <reference-image>",
		Short: "Score a query image against one reference image",
		Args:  cobra.ExactArgs(2),
		RunE:  runCompare,
	}

	registerCmd := &cobra.Command{
		Use:   "register <image>",
		Short: "Register a reference image in the fingerprint store",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegister,
	}
	registerCmd.Flags().StringVarP(&title, "title", "t", "", "Title of the work (required)")
	registerCmd.Flags().StringVarP(&owner, "owner", "o", "", "Copyright owner (required)")
	registerCmd.Flags().StringVar(&description, "description", "", "Free-text description")
	_ = registerCmd.MarkFlagRequired("title")
	_ = registerCmd.MarkFlagRequired("owner")

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a registered fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemove,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered fingerprints",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show fingerprint store statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	searchCmd := &cobra.Command{
		Use:   "search <image>",
		Short: "Find registered images similar to a query image",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntVarP(&topK, "top", "k", 0, "Maximum matches to return (default from config)")

	videoCmd := &cobra.Command{
		Use:   "video <video> <reference-image>",
		Short: "Score sampled video frames against one reference image",
		Args:  cobra.ExactArgs(2),
		RunE:  runVideo,
	}

	scanCmd := &cobra.Command{
		Use:   "scan <video>",
		Short: "Search the fingerprint store with sampled video frames",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().IntVarP(&perFrameK, "per-frame", "k", 0, "Matches kept per frame (default from config)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every registered fingerprint",
		Args:  cobra.NoArgs,
		RunE:  runClear,
	}

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Report fingerprints whose stored original is missing",
		Args:  cobra.NoArgs,
		RunE:  runVerify,
	}

	rootCmd.AddCommand(compareCmd, registerCmd, removeCmd, listCmd, statsCmd, searchCmd, videoCmd, scanCmd, clearCmd, verifyCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// setup configures logging and builds the application for one command.
func setup(ctx context.Context) (*app.App, error) {
	logCfg := logger.LoadFromEnv()
	logCfg.ServiceName = "copyscale-cli"
	logCfg.Output = os.Stderr
	if os.Getenv("LOG_LEVEL") == "" {
		logCfg.Level = "warn"
	}
	if debug {
		logCfg.Level = "debug"
	}
	logger.SetDefaultLogger(logger.New(logCfg))

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{Decoder: opencv.Decoder{}})
}

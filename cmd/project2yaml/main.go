package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/project2yaml"
	"github.com/jward/project2yaml/internal/config"
)

var (
	flagRoot    string
	flagConfig  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "project2yaml",
	Short:         "Generate a YAML map of a TypeScript project",
	Long:          "project2yaml parses every TypeScript source file with tree-sitter and writes a deterministic YAML map of imports, exports, interfaces and component details.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: <root>/"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Scan once and write the project map",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	engine, _, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	res, err := engine.Generate(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %d files, %d errors in %s\n",
		res.Status, engine.Output(), res.Files, res.Errors, res.Duration.Round(time.Millisecond))
	return nil
}

var flagWatchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the project map whenever a source file changes",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&flagWatchDir, "dir", "d", "", "directory to watch (default: <root>/src)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	engine, cfg, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	dir := flagWatchDir
	if dir == "" {
		dir = cfg.WatchDir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return engine.Watch(ctx, dir)
}

// loadConfig resolves --root and loads its configuration.
func loadConfig() (string, config.Config, error) {
	root, err := resolveRoot(flagRoot)
	if err != nil {
		return "", config.Config{}, err
	}
	cfg, err := config.Load(root, flagConfig)
	if err != nil {
		return "", config.Config{}, err
	}
	return root, cfg, nil
}

// newEngine loads configuration for --root and builds an Engine from it.
func newEngine(extra ...project2yaml.Option) (*project2yaml.Engine, config.Config, error) {
	root, cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	engine, err := engineFor(root, cfg, extra...)
	if err != nil {
		return nil, config.Config{}, err
	}
	return engine, cfg, nil
}

func engineFor(root string, cfg config.Config, extra ...project2yaml.Option) (*project2yaml.Engine, error) {
	opts := []project2yaml.Option{
		project2yaml.WithConfig(cfg),
		project2yaml.WithLogger(newLogger(flagVerbose)),
	}
	engine, err := project2yaml.New(root, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveRoot returns the absolute path of the project root.
func resolveRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

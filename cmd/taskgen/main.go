package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"taskgen/internal/config"
	"taskgen/internal/logging"
	"taskgen/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose       bool
	configPath    string
	dirFlag       string
	templatesFlag string

	// Logger
	logger *zap.Logger

	// Resolved configuration
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "taskgen",
	Short: "taskgen - edit ticketing task CSVs",
	Long: `taskgen manages a directory of task files: CSVs with product, presale,
price_range and extra_filter columns.

Rows that share a product are edited together. The extra filter is a list of
SECTION:PRICE pairs and can be edited as text or as a table.

Run without arguments to start the interactive editor.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
	},
	RunE: runInteractive,
}

// setup builds the logger and resolves configuration for every command.
func setup(cmd *cobra.Command, args []string) error {
	// The interactive editor owns the terminal, so it gets no console logger.
	if cmd.Use == "taskgen" && !cmd.HasParent() {
		logger = zap.NewNop()
	} else {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	c, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = c

	if err := logging.Initialize(cfg.LogsPath(), cfg.Logging.ForLogger()); err != nil {
		logger.Warn("file logging disabled", zap.Error(err))
	}
	if err := logging.InitAudit(); err != nil {
		logger.Warn("audit log disabled", zap.Error(err))
	}
	logging.Boot("taskgen %s: dir=%s templates=%s", cmd.Name(), cfg.Tasks.Dir, cfg.TemplatesPath())
	logger.Debug("configuration resolved",
		zap.String("dir", cfg.Tasks.Dir),
		zap.String("templates", cfg.TemplatesPath()),
		zap.String("config", configPath))
	return nil
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultFileName
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if dirFlag != "" {
		c.Tasks.Dir = dirFlag
	}
	if templatesFlag != "" {
		// relative to the working directory, not the tasks directory
		abs, err := filepath.Abs(templatesFlag)
		if err != nil {
			return nil, fmt.Errorf("templates path: %w", err)
		}
		c.Tasks.TemplatesDir = abs
	}
	return c, nil
}

func newStore() *store.Store {
	return store.New(cfg.Tasks.Dir,
		store.WithTemplatesDir(cfg.TemplatesPath()),
		store.WithExtension(cfg.Tasks.Extension))
}

// commandContext returns the command's context, or Background when the
// command was invoked directly (as in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./taskgen.yaml)")
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", "", "Task directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&templatesFlag, "templates", "", "Template directory (overrides config)")

	showCmd.Flags().StringVarP(&groupFlag, "group", "g", "", "Only show this product group")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print markdown without rendering")
	setCmd.Flags().StringVarP(&groupFlag, "group", "g", "", "Product group to edit")
	mergeCmd.Flags().StringVar(&mergeInto, "into", "", "Name of the merged task (required)")
	_ = mergeCmd.MarkFlagRequired("into")
	createCmd.Flags().StringVarP(&templateName, "template", "t", "", "Template to copy (required)")
	_ = createCmd.MarkFlagRequired("template")
	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without asking")
	watchCmd.Flags().DurationVar(&watchFor, "for", 0, "Stop after this long (default: until interrupted)")

	filterCmd.AddCommand(filterDecodeCmd)
	filterCmd.AddCommand(filterEncodeCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(duplicateCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(filterCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

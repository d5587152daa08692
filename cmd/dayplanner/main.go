package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/username/day-planner/internal/config"
	"github.com/username/day-planner/internal/holidays"
	"github.com/username/day-planner/internal/planner"
	"github.com/username/day-planner/internal/resolver"
	"github.com/username/day-planner/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configPath string
	ownerFlag  string
	jsonOutput bool
	logger     *zap.Logger
	out        io.Writer = os.Stdout
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dayplanner",
		Short: "Personal day planner",
		Long:  "Plan work and off days, weekday routines and public holidays, and resolve what any date looks like",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load config to get log file path
			cfg, err := config.Load(configPath)
			if err == nil && cfg.Log.File != "" {
				logger, err = initFileLogger(cfg.Log.File, cfg.Log.Level)
				if err != nil {
					initLogger() // Fallback to console
				}
			} else {
				initLogger() // Default console logger
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: search ., $HOME/.dayplanner, /etc/dayplanner)")
	rootCmd.PersistentFlags().StringVarP(&ownerFlag, "owner", "o", "", "Owner id (default: owner from config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		seedCmd(),
		dayCmd(),
		weekCmd(),
		monthCmd(),
		yearCmd(),
		weekStatsCmd(),
		overlapsCmd(),
		overrideCmd(),
		weekdayCmd(),
		blockCmd(),
		categoryCmd(),
		dayTypeCmd(),
		settingsCmd(),
		exportCmd(),
		importCmd(),
		holidaysCmd(),
		daemonCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the components every command needs
type app struct {
	cfg      *config.Config
	store    store.Store
	holidays holidays.Provider
	service  *planner.Service
	owner    string
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("Failed to close store", zap.Error(err))
	}
}

func initializeApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.Open(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}

	provider, err := initializeHolidays(cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	owner := ownerFlag
	if owner == "" {
		owner = cfg.Owner
	}

	return &app{
		cfg:      cfg,
		store:    st,
		holidays: provider,
		service:  planner.NewService(st, resolver.New(provider, logger), logger),
		owner:    owner,
	}, nil
}

func initializeHolidays(cfg *config.Config, st store.Store) (holidays.Provider, error) {
	var provider holidays.Provider

	switch cfg.Holidays.Source {
	case config.SourceBuiltin, "":
		logger.Debug("Using builtin holiday rules")
		provider = holidays.NewBuiltin()

	case config.SourceFile:
		logger.Info("Using holiday file", zap.String("file", cfg.Holidays.File))
		table, err := holidays.LoadFile(cfg.Holidays.File, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load holiday file: %w", err)
		}
		return table, nil

	case config.SourceDatabase:
		gs, ok := st.(*store.GormStore)
		if !ok {
			return nil, fmt.Errorf("holiday source %q requires sqlite or postgres storage", cfg.Holidays.Source)
		}
		logger.Debug("Using public_holidays table")
		provider = gs

	case config.SourceIsDayOff:
		logger.Info("Using isdayoff.ru calendar API")
		provider = holidays.NewIsDayOff(cfg.Holidays.APIURL, cfg.Holidays.FallbackURL, logger)

	default:
		return nil, fmt.Errorf("unknown holiday source: %s", cfg.Holidays.Source)
	}

	provider = holidays.NewCached(provider, cfg.Holidays.GetCacheTTL(), logger)

	// A holiday file next to another source acts as its fallback
	if cfg.Holidays.File != "" {
		fallback, err := holidays.LoadFile(cfg.Holidays.File, logger)
		if err != nil {
			logger.Warn("Failed to load fallback holiday file, continuing without it",
				zap.String("file", cfg.Holidays.File),
				zap.Error(err))
		} else {
			provider = holidays.NewComposite(provider, fallback, logger)
		}
	}

	return provider, nil
}

func initLogger() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		zapLevel,
	)

	return zap.New(core), nil
}

// printJSON writes v as indented JSON
func printJSON(v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func viewPrintf(format string, a ...interface{}) {
	fmt.Fprintf(out, format, a...)
}

func viewPrintln(a ...interface{}) {
	fmt.Fprintln(out, a...)
}

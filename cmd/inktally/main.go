package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mquillen/inktally/internal/adapters/content"
	"github.com/mquillen/inktally/internal/adapters/storage/sqlite"
	"github.com/mquillen/inktally/internal/app"
	"github.com/mquillen/inktally/internal/config"
	"github.com/mquillen/inktally/internal/domain"
	"github.com/mquillen/inktally/internal/platform"
	"github.com/mquillen/inktally/internal/wordcount"
)

var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("inktally", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		dbPath     string
		vaultRoot  string
		appName    string
		devMode    bool
		showVer    bool
	)
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("INKTALLY_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("INKTALLY_APP_NAME")); envApp != "" {
		appName = envApp
	} else {
		appName = "inktally"
	}
	fs.StringVar(&configPath, "config", "", "path to config TOML")
	fs.StringVar(&dbPath, "db", "", "path to sqlite database")
	fs.StringVar(&vaultRoot, "vault", "", "path to the vault directory")
	fs.StringVar(&appName, "app", appName, "application name for config/data path resolution")
	fs.BoolVar(&devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	fs.BoolVar(&showVer, "version", false, "show version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVer {
		_, _ = fmt.Fprintf(stdout, "inktally %s\n", version)
		return nil
	}

	paths, err := platform.Resolve(platform.Options{AppName: appName, DevMode: devMode})
	if err != nil {
		return err
	}

	command := firstArg(fs.Args())
	switch command {
	case "paths":
		_, _ = fmt.Fprintf(stdout, "app: %s\n", appName)
		_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", devMode)
		_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
		_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
		_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
		return nil
	case "", "list", "add", "remove", "report":
		// Continue.
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	dbOverridden := strings.TrimSpace(dbPath) != ""
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("INKTALLY_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("INKTALLY_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if strings.TrimSpace(vaultRoot) == "" {
		if envVault := strings.TrimSpace(os.Getenv("INKTALLY_VAULT")); envVault != "" {
			vaultRoot = envVault
		} else {
			vaultRoot = cfg.Vault.Root
		}
	}

	logger, err := newLogger(stderr, appName, cfg.Logging)
	if err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	logger.Debug("runtime paths resolved", "config_path", configPath, "db_path", cfg.Database.Path, "vault", vaultRoot)

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	var (
		source app.ContentSource
		index  app.DocumentIndex
	)
	if strings.TrimSpace(vaultRoot) != "" {
		vault, vaultErr := content.NewVault(vaultRoot)
		if vaultErr != nil {
			return fmt.Errorf("open vault: %w", vaultErr)
		}
		source = vault
		index = vault
	}

	svc := app.NewService(app.Dependencies{
		Repo:       store,
		Content:    source,
		Index:      index,
		CountWords: wordcount.Count,
		IDGen:      uuid.NewString,
		Clock:      time.Now,
		NewTimer:   app.StdTimer,
		Logger:     logger,
	}, app.ServiceConfig{
		Tracker: app.TrackerConfig{
			MaxIdle:       cfg.MaxIdle(),
			CountComments: cfg.Tracking.CountComments,
		},
		Scheduler: app.SchedulerConfig{
			DailyResetHour: cfg.Reset.DailyHour,
			WeeklyResetDay: cfg.WeeklyResetDay(),
		},
		SaveDebounce: cfg.SaveDebounce(),
	})

	if err := svc.Startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer func() {
		if shutdownErr := svc.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn("shutdown flush failed", "err", shutdownErr)
		}
	}()

	switch command {
	case "", "list":
		return runList(svc, stdout)
	case "add":
		return runAdd(ctx, svc, fs.Args()[1:], stdout)
	case "remove":
		return runRemove(ctx, svc, fs.Args()[1:])
	case "report":
		return runReport(svc, fs.Args()[1:], stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runList(svc *app.Service, stdout io.Writer) error {
	targets := svc.Targets()
	if len(targets) == 0 {
		_, _ = fmt.Fprintln(stdout, "no targets")
		return nil
	}
	for _, target := range targets {
		cfg := target.Config()
		scope := cfg.Path
		if scope == "" {
			scope = "/"
		}
		_, _ = fmt.Fprintf(stdout, "%s  %-9s %-6s %s  %d/%d  %s\n",
			cfg.ID, cfg.Period, target.Kind(), scope, target.TotalProgress(), cfg.Goal, cfg.Name)
	}
	return nil
}

func runAdd(ctx context.Context, svc *app.Service, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inktally add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var in app.TargetInput
	fs.StringVar(&in.Name, "name", "", "target name")
	fs.StringVar(&in.Kind, "kind", "wordCount", "target kind (wordCount or time)")
	fs.StringVar(&in.Period, "period", "daily", "target period (none, daily or weekly)")
	fs.Int64Var(&in.Goal, "goal", 0, "goal (words, or milliseconds for time targets)")
	fs.StringVar(&in.Path, "path", "", "document path scope (empty tracks the whole vault)")
	fs.Int64Var(&in.MultiplierMs, "multiplier-ms", 0, "time unit in milliseconds (time targets; 0 means minutes)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse add flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected add arguments: %v", fs.Args())
	}

	target, err := svc.CreateTarget(ctx, in)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "created %s\n", target.Config().ID)
	return nil
}

func runRemove(ctx context.Context, svc *app.Service, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: inktally remove <target-id>")
	}
	if err := svc.DeleteTarget(ctx, args[0]); err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	return nil
}

func runReport(svc *app.Service, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inktally report", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		year   int
		period string
		kind   string
	)
	fs.IntVar(&year, "year", time.Now().Year(), "calendar year to report")
	fs.StringVar(&period, "period", "daily", "period to report (daily or weekly)")
	fs.StringVar(&kind, "kind", "wordCount", "kind to report (wordCount or time)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse report flags: %w", err)
	}
	if !domain.Period(period).Resets() {
		return fmt.Errorf("report period must be daily or weekly, got %q", period)
	}
	if !domain.Kind(kind).Valid() {
		return fmt.Errorf("unknown report kind: %s", kind)
	}

	days := svc.YearProgress(year, domain.Period(period), domain.Kind(kind))
	reported := 0
	for _, day := range days {
		if day.Target == 0 && day.Progress == 0 {
			continue
		}
		_, _ = fmt.Fprintf(stdout, "%s  %d/%d\n", day.Date.Format("2006-01-02"), day.Progress, day.Target)
		reported++
	}
	if reported == 0 {
		_, _ = fmt.Fprintf(stdout, "no %s %s history for %d\n", period, kind, year)
	}
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func newLogger(stderr io.Writer, appName string, cfg config.LoggingConfig) (*charmLog.Logger, error) {
	level := charmLog.InfoLevel
	if trimmed := strings.TrimSpace(cfg.Level); trimmed != "" {
		parsed, err := charmLog.ParseLevel(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	return charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	}), nil
}

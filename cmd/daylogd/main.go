// daylogd is the day-bucketed journal daemon.
//
// It owns the working bucket, the per-day Parquet archives and the
// background safety-net scheduler. Admin flags perform one-shot
// operations against the same data directory and exit.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/daylog/internal/journal"
	"github.com/xtxerr/daylog/internal/journal/config"
	"github.com/xtxerr/daylog/internal/journal/query"
	"github.com/xtxerr/daylog/internal/logging"
	"github.com/xtxerr/daylog/internal/scheduler"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	dataDir := flag.String("data", "", "data directory (overrides config)")
	debug := flag.Bool("debug", false, "enable debug logging")
	jsonLog := flag.Bool("json-log", false, "log as JSON")

	// One-shot admin operations; the daemon exits after running them.
	forceReset := flag.String("force-reset", "", "archive the current bucket and start a fresh one dated YYYY-MM-DD, then exit")
	prune := flag.Bool("prune", false, "prune expired archives, then exit")
	dryRun := flag.Bool("dry-run", false, "with -prune: report without deleting")
	showStats := flag.Bool("stats", false, "print component statistics, then exit")
	sqlQuery := flag.String("sql", "", "run a SQL query over the archives, then exit")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logging.Init(level, *jsonLog)

	log := logging.Component("daylogd")
	log.Info("starting", "version", Version)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("no config file found, using defaults")
			cfg = config.DefaultConfig()
		} else {
			log.Error("load config", "path", *cfgPath, "error", err)
			os.Exit(1)
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	svc, err := journal.New(cfg, nil)
	if err != nil {
		log.Error("initialize journal", "error", err)
		os.Exit(1)
	}

	// =========================================================================
	// One-shot admin operations
	// =========================================================================

	switch {
	case *forceReset != "":
		if err := svc.ForceReset(*forceReset); err != nil {
			log.Error("force reset", "date", *forceReset, "error", err)
			os.Exit(1)
		}
		log.Info("force reset done", "date", *forceReset)
		return

	case *prune:
		result := svc.PruneDryRun()
		if !*dryRun {
			result = svc.PruneArchives()
		}
		fmt.Printf("cutoff=%s deleted=%d bytes_freed=%d skipped=%d errors=%d dry_run=%v\n",
			result.Cutoff, result.FilesDeleted, result.BytesFreed,
			result.FilesSkipped, len(result.Errors), result.DryRun)
		if len(result.Errors) > 0 {
			os.Exit(1)
		}
		return

	case *showStats:
		printJSON(svc.Stats())
		return

	case *sqlQuery != "":
		runSQL(cfg, *sqlQuery)
		return
	}

	// =========================================================================
	// Daemon mode
	// =========================================================================

	sched := scheduler.New(svc, cfg)
	if err := sched.Start(); err != nil {
		log.Error("start scheduler", "error", err)
		os.Exit(1)
	}

	log.Info("running",
		"data_dir", cfg.DataDir,
		"current", svc.CurrentDate(),
		"retention_days", cfg.Retention.MaxAgeDays)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	sched.Stop()
}

// runSQL executes an ad-hoc query over the archive files and prints the
// rows as JSON lines.
func runSQL(cfg *config.Config, sql string) {
	log := logging.Component("daylogd")

	qs, err := query.New(cfg)
	if err != nil {
		log.Error("open query service", "error", err)
		os.Exit(1)
	}
	defer qs.Close()

	rows, err := qs.ExecuteSQL(context.Background(), sql)
	if err != nil {
		log.Error("execute sql", "error", err)
		os.Exit(1)
	}
	for _, row := range rows {
		printJSON(row)
	}
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

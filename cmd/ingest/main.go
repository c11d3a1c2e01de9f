// Price-list ingestion job
// ------------------------
//
// Pulls the daily price files of Croatian retail chains, normalizes
// them into canonical records and loads them into Postgres. One-shot
// by default; --cron turns it into a daemon that runs on a schedule.
//
// Configuration is primarily via environment variables (flags can
// override): PG_DSN, OUT_DIR, METRICS_ADDR, VENDOR_REGISTRY,
// REQUEST_RPS, HTTP_USER_AGENT, PROBE_ATTEMPTS, ...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/491415/PMCT/internal/adapters"
	"github.com/491415/PMCT/internal/metrics"
	"github.com/491415/PMCT/internal/pipeline"
	"github.com/491415/PMCT/internal/records"
	"github.com/491415/PMCT/internal/store"
	"github.com/491415/PMCT/internal/vendors"
)

// defaultHTTPTimeoutSec matches the adapter client's own default, so
// leaving the flag and env unset changes nothing.
const defaultHTTPTimeoutSec = 30

type config struct {
	vendorList string
	date       string
	cronSpec   string

	pgDSN      string
	pgMaxConns int

	outDir       string
	registryPath string
	metricsAddr  string

	rps           float64
	userAgent     string
	httpTimeout   int
	probeAttempts int

	jsonLogs bool
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func parseFlags() config {
	var cfg config

	flag.StringVar(&cfg.vendorList, "vendors", envString("VENDORS", ""), "Comma-separated chain names; empty runs all registered chains. Env: VENDORS")
	flag.StringVar(&cfg.date, "date", envString("RUN_DATE", time.Now().Format(records.DateLayout)), "Publication date, dd.mm.yyyy. Env: RUN_DATE")
	flag.StringVar(&cfg.cronSpec, "cron", envString("CRON_SPEC", ""), "Cron expression; when set the job runs as a daemon. Env: CRON_SPEC")

	flag.StringVar(&cfg.pgDSN, "pg-dsn", envString("PG_DSN", ""), "Postgres DSN. Env: PG_DSN")
	flag.IntVar(&cfg.pgMaxConns, "pg-max-conns", envInt("PG_MAX_CONNS", 4), "DB max connections. Env: PG_MAX_CONNS")

	flag.StringVar(&cfg.outDir, "out", envString("OUT_DIR", ""), "Audit tree root for fetched files; empty disables copies. Env: OUT_DIR")
	flag.StringVar(&cfg.registryPath, "vendor-registry", envString("VENDOR_REGISTRY", ""), "JSON file of chain descriptor overrides. Env: VENDOR_REGISTRY")
	flag.StringVar(&cfg.metricsAddr, "metrics", envString("METRICS_ADDR", ""), "Serve /metrics on this address, e.g. :6060. Env: METRICS_ADDR")

	flag.Float64Var(&cfg.rps, "rps", envFloat("REQUEST_RPS", 2), "Outgoing requests per second per chain, 0=unlimited. Env: REQUEST_RPS")
	flag.StringVar(&cfg.userAgent, "user-agent", envString("HTTP_USER_AGENT", ""), "HTTP User-Agent override. Env: HTTP_USER_AGENT")
	flag.IntVar(&cfg.httpTimeout, "http-timeout", envInt("HTTP_TIMEOUT_SEC", defaultHTTPTimeoutSec), "HTTP timeout in seconds. Env: HTTP_TIMEOUT_SEC")
	flag.IntVar(&cfg.probeAttempts, "probe-attempts", envInt("PROBE_ATTEMPTS", 120), "Listing availability probe attempts before giving up. Env: PROBE_ATTEMPTS")

	flag.BoolVar(&cfg.jsonLogs, "json-logs", envBool("JSON_LOGS", false), "Emit JSON log lines. Env: JSON_LOGS")

	flag.Parse()

	if cfg.pgDSN == "" {
		fmt.Fprintln(os.Stderr, "--pg-dsn / PG_DSN is required")
		os.Exit(2)
	}
	return cfg
}

func newLogger(cfg config) *slog.Logger {
	var h slog.Handler
	if cfg.jsonLogs {
		h = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		h = slog.NewTextHandler(os.Stdout, nil)
	}
	return slog.New(h).With("run_id", uuid.NewString())
}

func loadRegistry(path string) (vendors.Registry, error) {
	if path == "" {
		return vendors.Default(), nil
	}
	return vendors.LoadFile(path)
}

func selectedVendors(reg vendors.Registry, list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return reg.Names(), nil
	}
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, err := reg.Lookup(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// runAll ingests every selected chain sequentially. One chain failing
// does not stop the others; the error reports how many failed.
func runAll(ctx context.Context, cfg config, reg vendors.Registry, names []string, st *store.Store, m *metrics.Metrics, log *slog.Logger, date time.Time) error {
	start := time.Now()
	var total pipeline.Summary
	failed := 0

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		desc, err := reg.Lookup(name)
		if err != nil {
			return err
		}

		client := adapters.NewClient(adapters.ClientOptions{
			Timeout:           time.Duration(cfg.httpTimeout) * time.Second,
			UserAgent:         cfg.userAgent,
			RequestsPerSecond: cfg.rps,
			Logger:            log,
		})
		adapter, err := adapters.New(desc, client)
		if err != nil {
			log.Error("adapter init failed", "vendor", name, "err", err)
			failed++
			continue
		}

		p := pipeline.New(pipeline.Options{
			Desc:    desc,
			Adapter: adapter,
			Store:   st,
			Prober:  &adapters.Prober{Client: client, Attempts: cfg.probeAttempts},
			Metrics: m,
			Logger:  log,
			OutDir:  cfg.outDir,
		})

		sum, err := p.Run(ctx, date)
		if err != nil {
			var nf *adapters.NotFoundError
			if errors.As(err, &nf) {
				log.Warn("no price lists published", "vendor", name, "date", sum.Date)
			} else {
				log.Error("chain run failed", "vendor", name, "err", err)
				failed++
			}
		}
		total.FilesResolved += sum.FilesResolved
		total.FilesLoaded += sum.FilesLoaded
		total.FilesSkipped += sum.FilesSkipped
		total.RowsInserted += sum.RowsInserted
		total.RowsRejected += sum.RowsRejected
		total.StoresRegistered += sum.StoresRegistered
	}

	fmt.Printf(
		"date=%s vendors=%d failed=%d files_resolved=%d files_loaded=%d files_skipped=%d rows_inserted=%d rows_rejected=%d stores_registered=%d duration=%0.2f\n",
		date.Format(records.DateLayout), len(names), failed,
		total.FilesResolved, total.FilesLoaded, total.FilesSkipped,
		total.RowsInserted, total.RowsRejected, total.StoresRegistered,
		time.Since(start).Seconds(),
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d chains failed", failed, len(names))
	}
	return nil
}

func startMetrics(addr string, m *metrics.Metrics, log *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", "err", err)
		}
	}()
}

func main() {
	_ = godotenv.Load()
	cfg := parseFlags()
	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := loadRegistry(cfg.registryPath)
	if err != nil {
		log.Error("vendor registry", "err", err)
		os.Exit(2)
	}
	names, err := selectedVendors(reg, cfg.vendorList)
	if err != nil {
		log.Error("vendor selection", "err", err)
		os.Exit(2)
	}

	st, err := store.Open(ctx, cfg.pgDSN, store.QueriesFromEnv(), store.Options{
		MaxConns: int32(cfg.pgMaxConns),
		Logger:   log,
	})
	if err != nil {
		log.Error("database", "err", err)
		os.Exit(2)
	}
	defer st.Close()

	m := metrics.New()
	startMetrics(cfg.metricsAddr, m, log)

	if cfg.cronSpec == "" {
		date, err := records.ParseDate(cfg.date)
		if err != nil {
			log.Error("bad --date", "date", cfg.date, "err", err)
			os.Exit(2)
		}
		if err := runAll(ctx, cfg, reg, names, st, m, log, date); err != nil {
			log.Error("run failed", "err", err)
			os.Exit(1)
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.cronSpec, func() {
		if err := runAll(ctx, cfg, reg, names, st, m, log, time.Now()); err != nil {
			log.Error("scheduled run failed", "err", err)
		}
	})
	if err != nil {
		log.Error("bad --cron expression", "cron", cfg.cronSpec, "err", err)
		os.Exit(2)
	}
	log.Info("scheduler started", "cron", cfg.cronSpec, "vendors", len(names))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
}

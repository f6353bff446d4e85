// AccessLens Agent - accessibility audit engine for web pages and PDFs.
//
// The agent supports three modes:
//
//  1. ONE-SHOT MODE (CI/CD):
//     accesslens-agent -url https://example.com
//     accesslens-agent -pdf ./report.pdf -output result.json
//
//  2. SERVER MODE (Continuous):
//     accesslens-agent -serve -config config.yaml
//
//  3. MAINTENANCE:
//     accesslens-agent -sweep-once -config config.yaml
//     accesslens-agent -rebuild-index -config config.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/accesslens/accesslens/pkg/api"
	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/config"
	"github.com/accesslens/accesslens/pkg/engine"
	"github.com/accesslens/accesslens/pkg/health"
	"github.com/accesslens/accesslens/pkg/logging"
	"github.com/accesslens/accesslens/pkg/metrics"
	"github.com/accesslens/accesslens/pkg/pdfaudit"
	"github.com/accesslens/accesslens/pkg/render"
	"github.com/accesslens/accesslens/pkg/score"
	"github.com/accesslens/accesslens/pkg/store"
	"github.com/accesslens/accesslens/pkg/sweeper"
)

const (
	appName    = "accesslens-agent"
	appVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	auditURL := flag.String("url", "", "Audit a single web page and exit")
	pdfPath := flag.String("pdf", "", "Audit a single PDF file and exit")
	outputFile := flag.String("output", "", "Write the one-shot result to this file instead of stdout")
	serve := flag.Bool("serve", false, "Run the HTTP API server")
	sweepOnce := flag.Bool("sweep-once", false, "Run one retention sweep and exit")
	rebuildIndex := flag.Bool("rebuild-index", false, "Rebuild the run index from the artifacts on disk and exit")
	verbose := flag.Bool("verbose", false, "Verbose output")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appName, appVersion)
		os.Exit(0)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *verbose {
		cfg.Verbose = true
	}

	log := logging.FromVerbose(appName, cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Storage.DataDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	m := metrics.New()

	switch {
	case *rebuildIndex:
		if err := st.Rebuild(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error rebuilding index: %v\n", err)
			os.Exit(1)
		}
		log.Info("run index rebuilt from %s", st.RunsDir())

	case *sweepOnce:
		sw := newSweeper(cfg, st, m, log)
		if err := sw.Sweep(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error sweeping: %v\n", err)
			os.Exit(1)
		}

	case *auditURL != "":
		runOneShot(ctx, cfg, st, m, log, audit.WebTarget(*auditURL), *outputFile)

	case *pdfPath != "":
		data, err := os.ReadFile(*pdfPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *pdfPath, err)
			os.Exit(1)
		}
		target := audit.PDFTarget(data, filepath.Base(*pdfPath))
		runOneShot(ctx, cfg, st, m, log, target, *outputFile)

	case *serve:
		if err := runServer(ctx, cfg, st, m, log); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Nothing to do.\n")
		fmt.Fprintf(os.Stderr, "Use -url or -pdf for a one-shot audit, -serve for the API server.\n")
		flag.Usage()
		os.Exit(2)
	}
}

// newEngine assembles the audit pipeline. The browser pool is only started
// when a mode can actually receive web targets; PDF-only runs skip Chrome
// entirely. The returned cleanup tears the pipeline down in reverse order.
func newEngine(cfg *config.Config, st *store.Store, m *metrics.Metrics, log logging.Logger, withBrowser bool) (*engine.Engine, *render.Pool, func(), error) {
	var renderer engine.Renderer
	var pool *render.Pool
	cleanup := func() {}

	if withBrowser {
		factory, err := render.NewChromeFactory()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("start browser: %w", err)
		}
		pool = render.NewPool(factory, cfg.Audit.BrowserPoolSize, log)
		pool.SetObserver(m.PoolObserver())
		ctrl := render.NewController(pool, render.Config{
			Timeout:         cfg.RenderTimeout(),
			CollectContrast: cfg.Audit.EnableComputedContrast,
		}, log)
		renderer = ctrl
		cleanup = func() {
			if err := ctrl.Close(); err != nil {
				log.Warn("closing browser: %v", err)
			}
		}
	}

	scorer := score.NewAggregator(score.Calibration{
		WebScale: cfg.Audit.WebScoreScale,
		PDFScale: cfg.Audit.PDFScoreScale,
	})
	eng := engine.New(renderer, pdfaudit.NewAuditor(log), st, scorer, m, log)
	return eng, pool, cleanup, nil
}

func newSweeper(cfg *config.Config, st *store.Store, m *metrics.Metrics, log logging.Logger) *sweeper.Sweeper {
	sw := sweeper.New(sweeper.Config{
		RunsDir:       st.RunsDir(),
		RetentionDays: cfg.Storage.RetentionDays,
		Interval:      cfg.Storage.SweepInterval,
	}, st, log)
	sw.SetObserver(m.SweepObserver())
	return sw
}

func runOneShot(ctx context.Context, cfg *config.Config, st *store.Store, m *metrics.Metrics, log logging.Logger, target audit.Target, outputFile string) {
	eng, _, cleanup, err := newEngine(cfg, st, m, log, target.Kind == audit.KindWeb)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	result, runErr := eng.Run(ctx, target)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error auditing %s: %v\n", target.Name(), runErr)
		if result == nil {
			os.Exit(1)
		}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
		os.Exit(1)
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, append(out, '\n'), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputFile, err)
			os.Exit(1)
		}
		log.Info("result written to %s", outputFile)
	} else {
		fmt.Println(string(out))
	}

	if runErr != nil || result.Status == audit.StatusFailed {
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg *config.Config, st *store.Store, m *metrics.Metrics, log logging.Logger) error {
	eng, pool, cleanup, err := newEngine(cfg, st, m, log, true)
	if err != nil {
		return err
	}
	defer cleanup()

	sw := newSweeper(cfg, st, m, log)
	go sw.Run(ctx)

	checks := health.NewRegistry()
	checks.Register(health.DiskSpace(cfg.Storage.DataDir, cfg.Storage.MinFreeDiskMB<<20))
	checks.Register(health.CheckerFunc{
		CheckName: "browser_pool",
		Fn: func(context.Context) error {
			if pool.InUse() >= pool.Size() {
				return fmt.Errorf("all %d browser contexts leased", pool.Size())
			}
			return nil
		},
	})

	srv := &api.Server{
		Auditor:        eng,
		Store:          st,
		Log:            log,
		MaxPDFBytes:    cfg.MaxPDFBytes(),
		RateLimit:      rate.Limit(cfg.Server.RateLimit),
		RateBurst:      cfg.Server.RateBurst,
		HealthHandler:  checks.Handler(),
		MetricsHandler: m.Handler(),
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("%s %s listening on %s", appName, appVersion, cfg.Server.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

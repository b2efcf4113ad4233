package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"bqstream/internal/config"
	"bqstream/internal/logging"
	"bqstream/internal/metrics"
	"bqstream/internal/metrics/datadog"
	"bqstream/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "bqstream/internal/storage/all"
)

// main loads the pipeline (built-in defaults, optional config file, env
// overrides), optionally installs a metrics backend, and streams the file.
func main() {
	var (
		cfgPath           string
		envFile           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		datadogAddrFlg    string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "pipeline config path (.json, .yaml or .yml); empty uses built-in defaults")
	flag.StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env if present)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&datadogAddrFlg, "datadog-addr", "", "DogStatsD address (overrides env DATADOG_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()
	log.SetOutput(os.Stdout)

	if err := loadEnvFile(envFile); err != nil {
		fatalf("env file: %v", err)
	}

	p, err := loadPipeline(cfgPath, os.Getenv)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stdout, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", describeConfig(cfgPath))
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", describeConfig(cfgPath))
		os.Exit(0)
	}

	logCloser := logging.Setup(p.Logging)
	defer logCloser.Close()

	runID := uuid.NewString()
	log.Printf("run: id=%s job=%s", runID, p.Job)

	closeMetrics := setupMetrics(metricsBackendFlg, pushGatewayURLFlg, datadogAddrFlg, p.Job, runID, *verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *verbose {
		log.Printf("pipeline: source=%s path=%s parser=%s storage=%s table=%s delay=%s",
			p.Source.Kind, p.Source.File.Path, p.Parser.Kind, p.Storage.Kind, tableLabel(p), p.Stream.Delay)
	}

	start := time.Now()
	st, err := run(ctx, p)
	closeMetrics()
	if err != nil {
		log.Printf("run: failed after %s: %v", time.Since(start).Truncate(time.Millisecond), err)
		logCloser.Close()
		os.Exit(1)
	}
	if st.Interrupted {
		log.Printf("run: stopped by operator, %d rows sent", st.Sent)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// loadEnvFile loads a dotenv file without overriding variables that are
// already set. An explicit path must exist; the default .env is optional.
func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return godotenv.Load(path)
}

// loadPipeline resolves the effective configuration: defaults, then the
// optional file, then environment overrides.
func loadPipeline(path string, getenv func(string) string) (config.Pipeline, error) {
	p := config.Default()
	if path != "" {
		var err error
		if p, err = config.Load(path); err != nil {
			return p, err
		}
	}
	if err := config.ApplyEnv(&p, getenv); err != nil {
		return p, fmt.Errorf("environment: %w", err)
	}
	return p, nil
}

// setupMetrics installs the selected backend and returns a function that
// flushes it (and closes it, where the backend needs that) at exit.
func setupMetrics(backendFlg, gatewayFlg, ddAddrFlg, job, runID string, verbose bool) func() {
	backendName := pick(backendFlg, os.Getenv("METRICS_BACKEND"))

	var closer io.Closer
	switch backendName {
	case "pushgateway":
		gwURL := pick(gatewayFlg, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err := prompush.NewBackend(job, gwURL, prompush.WithGrouping("run_id", runID))
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		metrics.SetBackend(b)

	case "datadog":
		addr := pick(ddAddrFlg, os.Getenv("DATADOG_ADDR"), "127.0.0.1:8125")
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "bqstream.",
			GlobalTags: []string{"job:" + job, "run_id:" + runID},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
		metrics.SetBackend(b)
		closer = b

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return func() {}
	}

	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
		if closer != nil {
			if err := closer.Close(); err != nil {
				log.Printf("metrics: close error: %v", err)
			}
		}
	}
}

func describeConfig(path string) string {
	if path == "" {
		return "built-in defaults"
	}
	return path
}

func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stdout, format+"\n", a...)
	os.Exit(1)
}

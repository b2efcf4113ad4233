// Package main wires the stream end to end. This file keeps the CLI layer
// thin: it depends only on storage-agnostic interfaces and never imports
// backend packages directly.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"bqstream/internal/config"
	"bqstream/internal/datasource/file"
	"bqstream/internal/metrics"
	csvparser "bqstream/internal/parser/csv"
	"bqstream/internal/schema"
	"bqstream/internal/skiplog"
	"bqstream/internal/storage"
	"bqstream/internal/streamer"
	"bqstream/internal/transformer"
	"bqstream/pkg/records"
)

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newRepositoryFn = storage.New
	sourceExistsFn  = file.Exists
	sleepFn         = streamer.Sleep
)

// run executes one streaming run:
//
//	preflight (source file exists)
//	  → ensure table (create with the fixed schema if absent)
//	  → read source (whole file, then transform)
//	  → stream (one insert per row, fixed delay between rows)
//
// A missing source file fails before any remote call. Operator interruption
// (ctx cancelled) returns the partial stats with a nil error.
func run(ctx context.Context, p config.Pipeline) (streamer.Stats, error) {
	var st streamer.Stats
	path := p.Source.File.Path
	table := tableLabel(p)

	if err := sourceExistsFn(path); err != nil {
		return st, err
	}

	repo, err := newRepositoryFn(ctx, storageConfig(p))
	if err != nil {
		return st, fmt.Errorf("init storage %s: %w", p.Storage.Kind, err)
	}
	defer repo.Close()

	t0 := time.Now()
	err = storage.EnsureTable(ctx, repo, table, schema.Titles)
	metrics.RecordStep(p.Job, "ensure_table", err, time.Since(t0))
	if err != nil {
		return st, err
	}

	t0 = time.Now()
	rows, err := readRows(ctx, p)
	metrics.RecordStep(p.Job, "read_source", err, time.Since(t0))
	if err != nil {
		return st, err
	}
	metrics.RecordRow(p.Job, "read", int64(len(rows)))

	var rejects streamer.RejectSink
	if p.Stream.RejectsPath != "" {
		rl, err := skiplog.Open(p.Stream.RejectsPath)
		if err != nil {
			return st, err
		}
		defer func() {
			if err := rl.Close(); err != nil {
				log.Printf("stream: close rejects file: %v", err)
			}
			if n := rl.Count(); n > 0 {
				log.Printf("stream: %d rejected rows written to %s", n, rl.Path())
			}
		}()
		rejects = rl
	}

	delay := p.Stream.Delay.Std()
	log.Printf("stream: starting to stream %d rows into %s", len(rows), table)
	log.Printf("stream: sending one row every %s, press Ctrl+C to stop", delay)

	s := &streamer.Streamer{
		Repo:       repo,
		Delay:      delay,
		TitleField: p.Stream.TitleField,
		Rejects:    rejects,
		Job:        p.Job,
		Sleep:      sleepFn,
	}

	t0 = time.Now()
	st, err = streamWithFlush(ctx, s, rows, p.Stream.MetricsFlushInterval.Std())
	metrics.RecordStep(p.Job, "stream", err, time.Since(t0))

	log.Printf("stream: summary %s", st)
	return st, err
}

// streamWithFlush runs the streamer and, when a metrics backend is active,
// pushes metrics every interval until the streamer returns.
func streamWithFlush(ctx context.Context, s *streamer.Streamer, rows []records.Row, interval time.Duration) (streamer.Stats, error) {
	var st streamer.Stats
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		var err error
		st, err = s.Run(gctx, rows)
		return err
	})
	if interval > 0 && metrics.Enabled() {
		g.Go(func() error {
			flushLoop(done, interval)
			return nil
		})
	}

	err := g.Wait()
	return st, err
}

func flushLoop(done <-chan struct{}, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: periodic flush error: %v", err)
			}
		}
	}
}

// readRows loads the whole source file and applies the transform chain.
func readRows(ctx context.Context, p config.Pipeline) ([]records.Row, error) {
	var opts []file.Option
	if p.Source.File.Encoding != "" {
		opts = append(opts, file.WithEncoding(p.Source.File.Encoding))
	}
	src, err := file.NewLocal(p.Source.File.Path, opts...)
	if err != nil {
		return nil, err
	}

	rows, err := csvparser.NewParser(csvparser.OptionsFrom(p.Parser.Options)).ReadSource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.Source.File.Path, err)
	}

	chain, err := transformer.Build(p.Transform, schema.Titles)
	if err != nil {
		return nil, err
	}
	rows = chain.Apply(rows)
	log.Printf("source: read %d rows from %s", len(rows), p.Source.File.Path)
	return rows, nil
}

// storageConfig adapts the pipeline's storage section to storage.Config.
func storageConfig(p config.Pipeline) storage.Config {
	bq := p.Storage.BigQuery
	return storage.Config{
		Kind:   p.Storage.Kind,
		DSN:    p.Storage.DB.DSN,
		Table:  p.Storage.DB.Table,
		Schema: schema.Titles,
		BigQuery: storage.BigQueryConfig{
			ProjectID:       bq.ProjectID,
			DatasetID:       bq.DatasetID,
			TableID:         bq.TableID,
			CredentialsFile: bq.CredentialsFile,
			Endpoint:        bq.Endpoint,
			Location:        bq.Location,
			DedupIDs:        bq.DedupIDs,
		},
	}
}

// tableLabel names the destination table in logs.
func tableLabel(p config.Pipeline) string {
	if p.Storage.Kind == "bigquery" {
		bq := p.Storage.BigQuery
		return bq.ProjectID + "." + bq.DatasetID + "." + bq.TableID
	}
	return p.Storage.DB.Table
}

// Package streamer submits rows to the destination table one at a time with a
// fixed pause between them.
package streamer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bqstream/internal/metrics"
	"bqstream/internal/storage"
	"bqstream/pkg/records"
)

// Inserter submits a single row.
type Inserter interface {
	InsertRow(ctx context.Context, row records.Row) error
}

// RejectSink receives rows the destination rejected.
type RejectSink interface {
	Add(line int, title, reason string) error
}

// SleepFunc pauses for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Streamer drives the row loop.
type Streamer struct {
	Repo  Inserter
	Delay time.Duration

	// TitleField names the column logged for every row. Empty logs the line
	// number only.
	TitleField string

	// Rejects is optional.
	Rejects RejectSink

	// Job labels metrics.
	Job string

	// Sleep defaults to a context-aware timer.
	Sleep SleepFunc
}

// Stats summarizes a run.
type Stats struct {
	Total       int
	Sent        int
	Failed      int
	Interrupted bool
	Elapsed     time.Duration
}

// Remaining is the number of rows never attempted.
func (s Stats) Remaining() int { return s.Total - s.Sent - s.Failed }

func (s Stats) String() string {
	return fmt.Sprintf("total=%d sent=%d failed=%d remaining=%d interrupted=%v elapsed=%s",
		s.Total, s.Sent, s.Failed, s.Remaining(), s.Interrupted, s.Elapsed.Round(time.Millisecond))
}

// Run inserts rows in order, one call per row, sleeping Delay between rows
// (not after the last). A *storage.RowError is logged and the loop goes on;
// any other insert error ends the run and is returned. Cancelling ctx stops
// the loop cleanly: Stats.Interrupted is set and the error is nil.
func (s *Streamer) Run(ctx context.Context, rows []records.Row) (Stats, error) {
	sleep := s.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	st := Stats{Total: len(rows)}
	start := time.Now()

	for i, row := range rows {
		if ctx.Err() != nil {
			st.Interrupted = true
			break
		}

		t0 := time.Now()
		err := s.Repo.InsertRow(ctx, row)
		metrics.RecordInsert(s.Job, err, time.Since(t0))

		switch {
		case err == nil:
			st.Sent++
			metrics.RecordRow(s.Job, "sent", 1)
			log.Printf("stream: sent %d/%d line=%d %s", i+1, st.Total, row.Line, s.describe(row))

		case storage.IsRowError(err):
			st.Failed++
			metrics.RecordRow(s.Job, "failed", 1)
			log.Printf("stream: insert errors line=%d %s: %v", row.Line, s.describe(row), err)
			s.reject(row, err)

		case ctx.Err() != nil:
			// Aborted by the interrupt. Clients do not always wrap ctx.Err().
			log.Printf("stream: insert line=%d aborted: %v", row.Line, err)
			st.Interrupted = true

		default:
			log.Printf("stream: fatal insert error line=%d: %v", row.Line, err)
			st.Elapsed = time.Since(start)
			return st, fmt.Errorf("insert line %d: %w", row.Line, err)
		}
		if st.Interrupted {
			break
		}

		if i < len(rows)-1 && s.Delay > 0 {
			if err := sleep(ctx, s.Delay); err != nil {
				st.Interrupted = true
				break
			}
		}
	}

	st.Elapsed = time.Since(start)
	if st.Interrupted {
		log.Printf("stream: interrupted, %d of %d rows not sent", st.Remaining(), st.Total)
	}
	return st, nil
}

func (s *Streamer) describe(row records.Row) string {
	if s.TitleField == "" {
		return "-"
	}
	return fmt.Sprintf("%s=%q", s.TitleField, row.Fields.String(s.TitleField))
}

func (s *Streamer) reject(row records.Row, err error) {
	if s.Rejects == nil {
		return
	}
	reason := err.Error()
	var re *storage.RowError
	if errors.As(err, &re) {
		reason = strings.Join(re.Reasons, "; ")
	}
	if aerr := s.Rejects.Add(row.Line, row.Fields.String(s.TitleField), reason); aerr != nil {
		log.Printf("stream: record reject line=%d: %v", row.Line, aerr)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

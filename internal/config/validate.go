// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "storage.bigquery.project_id").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// BigQuery dataset and table ids: letters, digits, underscores.
var bqIdent = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs and metrics",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateTransforms(p.Transform)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateStream(p.Stream)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if s.Kind != "file" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unsupported source kind %q; only \"file\" is available", s.Kind),
		})
	}
	if strings.TrimSpace(s.File.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.file.path",
			Message:  "file source requires a non-empty path",
		})
	}
	if enc := strings.TrimSpace(s.File.Encoding); enc != "" {
		if _, err := htmlindex.Get(enc); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.encoding",
				Message:  fmt.Sprintf("unknown encoding %q", enc),
			})
		}
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	if p.Kind != "csv" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unsupported parser kind %q; only \"csv\" is available", p.Kind),
		})
	}
	if c := p.Options.String("comma", ","); len([]rune(c)) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.comma",
			Message:  fmt.Sprintf("comma must be a single character, got %q", c),
		})
	}
	return issues
}

func validateTransforms(ts []Transform) []Issue {
	var issues []Issue

	known := map[string]struct{}{
		"normalize": {},
		"project":   {},
		"coerce":    {},
	}
	hasProject := len(ts) == 0
	for i, t := range ts {
		if _, ok := known[t.Kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("transform[%d].kind", i),
				Message:  fmt.Sprintf("unknown transform kind %q", t.Kind),
			})
		}
		if t.Kind == "project" {
			hasProject = true
		}
	}
	if !hasProject {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "transform",
			Message:  "no project step; CSV columns outside the table schema will be sent as-is",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	switch s.Kind {
	case "bigquery":
		bq := s.BigQuery
		switch {
		case strings.TrimSpace(bq.ProjectID) == "":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.bigquery.project_id",
				Message:  "project_id must not be empty",
			})
		case strings.Contains(bq.ProjectID, PlaceholderProjectID):
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.bigquery.project_id",
				Message:  "please replace the placeholder project_id with your real Google Cloud project id",
			})
		}
		for path, v := range map[string]string{
			"storage.bigquery.dataset_id": bq.DatasetID,
			"storage.bigquery.table_id":   bq.TableID,
		} {
			if !bqIdent.MatchString(v) {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path,
					Message:  fmt.Sprintf("%q is not a valid BigQuery identifier (letters, digits, underscores)", v),
				})
			}
		}

	case "postgres", "sqlite", "mssql":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.db.dsn",
				Message:  fmt.Sprintf("%s storage requires a dsn", s.Kind),
			})
		}
		if strings.TrimSpace(s.DB.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.db.table",
				Message:  fmt.Sprintf("%s storage requires a table", s.Kind),
			})
		}

	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})

	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	return issues
}

func validateStream(s Stream) []Issue {
	var issues []Issue

	if s.Delay < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "stream.delay",
			Message:  fmt.Sprintf("delay must not be negative, got %s", s.Delay),
		})
	} else if s.Delay == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "stream.delay",
			Message:  "delay is zero; rows will be sent back-to-back",
		})
	}
	if s.MetricsFlushInterval < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "stream.metrics_flush_interval",
			Message:  "metrics_flush_interval must not be negative",
		})
	}
	if strings.TrimSpace(s.TitleField) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "stream.title_field",
			Message:  "title_field is empty; sent rows will be logged by line number only",
		})
	}
	return issues
}

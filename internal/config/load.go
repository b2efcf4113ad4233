package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"bqstream/internal/schema"
)

// Built-in defaults. A run with no config file streams the enriched titles
// CSV into the live dashboard table, one row every two seconds.
const (
	DefaultJob        = "netflix-titles"
	DefaultProjectID  = "live-netflix-dashboard"
	DefaultDatasetID  = "netflix_data"
	DefaultTableID    = "enriched_titles"
	DefaultSourcePath = "netflix_enriched_final.csv"
	DefaultDelay      = 2 * time.Second

	// PlaceholderProjectID is the value shipped in sample configs; runs that
	// still carry it are refused.
	PlaceholderProjectID = "your-gcp-project-id"
)

// Environment overrides, applied after the config file.
const (
	EnvJob             = "BQSTREAM_JOB"
	EnvSourcePath      = "BQSTREAM_SOURCE_PATH"
	EnvSourceEncoding  = "BQSTREAM_SOURCE_ENCODING"
	EnvStorageKind     = "BQSTREAM_STORAGE_KIND"
	EnvProjectID       = "BQSTREAM_PROJECT_ID"
	EnvDatasetID       = "BQSTREAM_DATASET_ID"
	EnvTableID         = "BQSTREAM_TABLE_ID"
	EnvDSN             = "BQSTREAM_DSN"
	EnvDBTable         = "BQSTREAM_DB_TABLE"
	EnvDelay           = "BQSTREAM_DELAY"
	EnvRejectsPath     = "BQSTREAM_REJECTS_PATH"
	EnvGoogleProject   = "GOOGLE_CLOUD_PROJECT"
	EnvGoogleCredsFile = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Default returns the pipeline used when no config file is given.
func Default() Pipeline {
	return Pipeline{
		Job: DefaultJob,
		Source: Source{
			Kind: "file",
			File: SourceFile{Path: DefaultSourcePath},
		},
		Parser: Parser{
			Kind:    "csv",
			Options: Options{},
		},
		Storage: Storage{
			Kind: "bigquery",
			BigQuery: BigQuery{
				ProjectID: DefaultProjectID,
				DatasetID: DefaultDatasetID,
				TableID:   DefaultTableID,
			},
		},
		Stream: Stream{
			Delay:      Duration(DefaultDelay),
			TitleField: schema.TitleField,
		},
		Logging: Logging{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads a pipeline file on top of Default. Files ending in .yaml or
// .yml are decoded strictly as YAML; everything else as JSON with unknown
// fields rejected.
func Load(path string) (Pipeline, error) {
	p := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(b, &p); err != nil {
			return p, fmt.Errorf("decode yaml config %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return p, fmt.Errorf("decode json config %s: %w", path, err)
		}
	}
	return p, nil
}

// ApplyEnv overrides p from environment variables read through getenv.
// GOOGLE_CLOUD_PROJECT and GOOGLE_APPLICATION_CREDENTIALS only fill values
// that are still empty; BQSTREAM_* variables always win.
func ApplyEnv(p *Pipeline, getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	fill := func(dst *string, key string) {
		if *dst == "" {
			set(dst, key)
		}
	}

	set(&p.Job, EnvJob)
	set(&p.Source.File.Path, EnvSourcePath)
	set(&p.Source.File.Encoding, EnvSourceEncoding)
	set(&p.Storage.Kind, EnvStorageKind)
	fill(&p.Storage.BigQuery.ProjectID, EnvGoogleProject)
	set(&p.Storage.BigQuery.ProjectID, EnvProjectID)
	set(&p.Storage.BigQuery.DatasetID, EnvDatasetID)
	set(&p.Storage.BigQuery.TableID, EnvTableID)
	fill(&p.Storage.BigQuery.CredentialsFile, EnvGoogleCredsFile)
	set(&p.Storage.DB.DSN, EnvDSN)
	set(&p.Storage.DB.Table, EnvDBTable)
	set(&p.Stream.RejectsPath, EnvRejectsPath)

	if v := strings.TrimSpace(getenv(EnvDelay)); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDelay, err)
		}
		p.Stream.Delay = d
	}
	return nil
}

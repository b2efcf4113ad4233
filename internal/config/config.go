// Package config defines the JSON/YAML-serializable configuration model for a
// streaming run. A Pipeline names the source file, how to parse it, which
// transforms to apply, where rows go, and how fast they are sent.
//
// Example (trimmed):
//
//	{
//	  "job":     "netflix-titles",
//	  "source":  { "kind": "file", "file": { "path": "netflix_enriched_final.csv" } },
//	  "parser":  { "kind": "csv", "options": { "comma": "," } },
//	  "storage": {
//	    "kind": "bigquery",
//	    "bigquery": { "project_id": "p", "dataset_id": "d", "table_id": "t" }
//	  },
//	  "stream":  { "delay": "2s" }
//	}
//
// Every field has a default (see Default); a config file only needs the keys
// it wants to change.
package config

import (
	"encoding/json"
	"fmt"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" yaml:"job"`

	Source Source `json:"source" yaml:"source"`
	Parser Parser `json:"parser" yaml:"parser"`

	// Transform lists the ordered transformations applied to parsed rows.
	// When empty the default chain (project, coerce) is used.
	Transform []Transform `json:"transform" yaml:"transform"`

	Storage Storage `json:"storage" yaml:"storage"`
	Stream  Stream  `json:"stream" yaml:"stream"`
	Logging Logging `json:"logging" yaml:"logging"`
}

// Source identifies the input. The only kind is "file".
type Source struct {
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path" yaml:"path"`

	// Encoding is an optional WHATWG encoding label (e.g. "windows-1250").
	// Empty means UTF-8.
	Encoding string `json:"encoding" yaml:"encoding"`
}

// Parser selects how the raw source is turned into rows.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind" yaml:"kind"`

	// Options is interpreted by the parser. For CSV:
	//   comma (string), trim_space (bool), lazy_quotes (bool),
	//   header_map (object), null_values (array of strings)
	Options Options `json:"options" yaml:"options"`
}

// Transform is a single step of the transform chain.
type Transform struct {
	// Kind is one of "normalize", "project", "coerce".
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Storage selects the destination table.
type Storage struct {
	// Kind selects the backend: "bigquery", "postgres", "sqlite", "mssql".
	Kind string `json:"kind" yaml:"kind"`

	BigQuery BigQuery `json:"bigquery" yaml:"bigquery"`
	DB       DBConfig `json:"db" yaml:"db"`
}

// BigQuery identifies a BigQuery table and how to reach it.
type BigQuery struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	DatasetID string `json:"dataset_id" yaml:"dataset_id"`
	TableID   string `json:"table_id" yaml:"table_id"`

	// CredentialsFile is a service-account JSON key. Empty uses Application
	// Default Credentials.
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`

	// Endpoint overrides the API endpoint (e.g. a local emulator). When set,
	// requests are sent without authentication.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Location is the dataset location used for the client (e.g. "EU").
	Location string `json:"location" yaml:"location"`

	// DedupIDs sends content-derived insert ids instead of random ones, so
	// BigQuery drops rows it has already seen within its dedup window. A
	// re-run of the same file inside that window then inserts nothing.
	DedupIDs bool `json:"dedup_ids" yaml:"dedup_ids"`
}

// DBConfig configures the SQL backends.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the (optionally schema-qualified) table name, e.g. "public.titles".
	Table string `json:"table" yaml:"table"`
}

// Stream controls the row loop.
type Stream struct {
	// Delay is the pause between two consecutive inserts.
	Delay Duration `json:"delay" yaml:"delay"`

	// TitleField names the column logged for each row sent.
	TitleField string `json:"title_field" yaml:"title_field"`

	// RejectsPath, when set, receives a CSV of rows the backend rejected.
	RejectsPath string `json:"rejects_path" yaml:"rejects_path"`

	// MetricsFlushInterval pushes metrics periodically while streaming.
	// Zero flushes only once at exit.
	MetricsFlushInterval Duration `json:"metrics_flush_interval" yaml:"metrics_flush_interval"`
}

// Logging controls where log lines go.
type Logging struct {
	// File, when set, receives log output instead of stderr and is rotated
	// by size.
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// Options is a small helper to fetch typed values from free-form option maps.
// It performs only minimal coercion and returns the provided default when a key
// is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// YAML numbers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns the string-valued entries of an object option. Missing
// keys yield an empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns the string elements of an array option, or nil when the
// key is missing or not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// UnmarshalYAML converts yaml.v2's map[interface{}]interface{} nodes into the
// map[string]any shape the getters expect.
func (o *Options) UnmarshalYAML(unmarshal func(any) error) error {
	var raw map[any]any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	out := make(Options, len(raw))
	for k, v := range raw {
		out[fmt.Sprint(k)] = fromYAML(v)
	}
	*o = out
	return nil
}

func fromYAML(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[fmt.Sprint(k)] = fromYAML(vv)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = fromYAML(vv)
		}
		return out
	}
	return v
}

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bqstream/internal/config"
)

func TestLoadPipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "netflix.yaml")
	yamlDoc := "job: demo\nstream:\n  delay: 500ms\nstorage:\n  kind: bigquery\n  bigquery:\n    project_id: from-file\n"
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}

	tests := []struct {
		name        string
		path        string
		env         map[string]string
		wantProject string
		wantDelay   time.Duration
		wantJob     string
		wantErr     bool
	}{
		{
			name:        "defaults",
			wantProject: config.DefaultProjectID,
			wantDelay:   config.DefaultDelay,
			wantJob:     config.DefaultJob,
		},
		{
			name:        "file over defaults",
			path:        yamlPath,
			wantProject: "from-file",
			wantDelay:   500 * time.Millisecond,
			wantJob:     "demo",
		},
		{
			name:        "env over file",
			path:        yamlPath,
			env:         map[string]string{config.EnvProjectID: "from-env", config.EnvDelay: "1"},
			wantProject: "from-env",
			wantDelay:   time.Second,
			wantJob:     "demo",
		},
		{
			name:    "missing file",
			path:    filepath.Join(dir, "missing.json"),
			wantErr: true,
		},
		{
			name:    "bad env delay",
			env:     map[string]string{config.EnvDelay: "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := loadPipeline(tt.path, env(tt.env))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("loadPipeline error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("loadPipeline error = %v", err)
			}
			if p.Storage.BigQuery.ProjectID != tt.wantProject {
				t.Fatalf("project = %q, want %q", p.Storage.BigQuery.ProjectID, tt.wantProject)
			}
			if p.Stream.Delay.Std() != tt.wantDelay {
				t.Fatalf("delay = %s, want %s", p.Stream.Delay, tt.wantDelay)
			}
			if p.Job != tt.wantJob {
				t.Fatalf("job = %q, want %q", p.Job, tt.wantJob)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("BQSTREAM_TEST_ENVFILE=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("BQSTREAM_TEST_ENVFILE") })

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("BQSTREAM_TEST_ENVFILE"); got != "from-dotenv" {
		t.Fatalf("env = %q, want from-dotenv", got)
	}

	if err := loadEnvFile(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatalf("explicit missing env file: want error")
	}
}

func TestPick(t *testing.T) {
	t.Parallel()

	if got := pick("", "b", "c"); got != "b" {
		t.Fatalf("pick = %q, want b", got)
	}
	if got := pick("", ""); got != "" {
		t.Fatalf("pick = %q, want empty", got)
	}
}

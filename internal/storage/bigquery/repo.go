// Package bigquery implements the destination table on Google BigQuery using
// the streaming insert API: one Inserter.Put per row.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bqstream/internal/schema"
	"bqstream/internal/storage"
	"bqstream/pkg/records"
)

// Config holds BigQuery repository configuration.
type Config struct {
	ProjectID string
	DatasetID string
	TableID   string

	// CredentialsFile is a service account JSON key. Empty means
	// Application Default Credentials.
	CredentialsFile string

	// Endpoint overrides the API endpoint (emulators). Authentication is
	// disabled when it is set.
	Endpoint string

	// Location pins jobs and tables to a region, e.g. "EU".
	Location string

	// DedupIDs sets each row's insert id to InsertID. Otherwise the id is left
	// empty and the client library generates a random one per call.
	DedupIDs bool
}

// FQN returns "project.dataset.table".
func (c Config) FQN() string {
	return c.ProjectID + "." + c.DatasetID + "." + c.TableID
}

// tableAPI is the subset of the BigQuery table surface the repository uses.
type tableAPI interface {
	Metadata(ctx context.Context) (*bigquery.TableMetadata, error)
	Create(ctx context.Context, md *bigquery.TableMetadata) error
	Put(ctx context.Context, src any) error
}

// cloudTable adapts *bigquery.Table and its Inserter to tableAPI.
type cloudTable struct {
	t   *bigquery.Table
	ins *bigquery.Inserter
}

func (c cloudTable) Metadata(ctx context.Context) (*bigquery.TableMetadata, error) {
	return c.t.Metadata(ctx)
}

func (c cloudTable) Create(ctx context.Context, md *bigquery.TableMetadata) error {
	return c.t.Create(ctx, md)
}

func (c cloudTable) Put(ctx context.Context, src any) error {
	return c.ins.Put(ctx, src)
}

// Repository is a BigQuery-backed implementation of storage.Repository.
type Repository struct {
	table tableAPI
	cfg   Config
}

// NewRepository constructs a BigQuery client for cfg.ProjectID and returns a
// Repository bound to cfg's table plus a Close function for cleanup. No API
// call is made until the first repository method runs.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, nil, fmt.Errorf("bigquery: project id must not be empty")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("bigquery: new client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	t := client.Dataset(cfg.DatasetID).Table(cfg.TableID)
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Printf("bigquery: close client: %v", err)
		}
	}
	return &Repository{table: cloudTable{t: t, ins: t.Inserter()}, cfg: cfg}, closeFn, nil
}

// TableExists reports whether the table exists. A 404 from the metadata call
// is "absent"; anything else is returned.
func (r *Repository) TableExists(ctx context.Context) (bool, error) {
	_, err := r.table.Metadata(ctx)
	if err == nil {
		return true, nil
	}
	if hasStatus(err, http.StatusNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("bigquery: table metadata %s: %w", r.cfg.FQN(), err)
}

// CreateTable creates the table with s. A concurrent creator winning the race
// (409) is not an error.
func (r *Repository) CreateTable(ctx context.Context, s schema.Schema) error {
	bs, err := toBQSchema(s)
	if err != nil {
		return err
	}
	err = r.table.Create(ctx, &bigquery.TableMetadata{Schema: bs})
	if hasStatus(err, http.StatusConflict) {
		log.Printf("bigquery: table %s was created concurrently", r.cfg.FQN())
		return nil
	}
	if err != nil {
		return fmt.Errorf("bigquery: create table %s: %w", r.cfg.FQN(), err)
	}
	return nil
}

// InsertRow streams one row. Per-row rejections come back as
// *storage.RowError.
func (r *Repository) InsertRow(ctx context.Context, row records.Row) error {
	saver := rowSaver{values: toValues(row.Fields)}
	if r.cfg.DedupIDs {
		saver.insertID = InsertID(r.cfg.FQN(), row)
	}
	err := r.table.Put(ctx, saver)
	if err == nil {
		return nil
	}

	var pme bigquery.PutMultiError
	if errors.As(err, &pme) {
		return &storage.RowError{Line: row.Line, Reasons: reasons(pme)}
	}
	return fmt.Errorf("bigquery: insert line %d: %w", row.Line, err)
}

// rowSaver is a bigquery.ValueSaver for a single record.
type rowSaver struct {
	values   map[string]bigquery.Value
	insertID string
}

func (s rowSaver) Save() (map[string]bigquery.Value, string, error) {
	return s.values, s.insertID, nil
}

func toValues(rec records.Record) map[string]bigquery.Value {
	out := make(map[string]bigquery.Value, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func reasons(pme bigquery.PutMultiError) []string {
	var out []string
	for _, rie := range pme {
		for _, e := range rie.Errors {
			out = append(out, e.Error())
		}
	}
	if len(out) == 0 {
		out = append(out, pme.Error())
	}
	return out
}

func hasStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

// toBQSchema maps the column layout onto BigQuery field schemas. All columns
// are NULLABLE.
func toBQSchema(s schema.Schema) (bigquery.Schema, error) {
	out := make(bigquery.Schema, 0, len(s))
	for _, f := range s {
		var ft bigquery.FieldType
		switch f.Type {
		case schema.String:
			ft = bigquery.StringFieldType
		case schema.Integer:
			ft = bigquery.IntegerFieldType
		case schema.Float:
			ft = bigquery.FloatFieldType
		default:
			return nil, fmt.Errorf("bigquery: column %s: unsupported type %q", f.Name, f.Type)
		}
		out = append(out, &bigquery.FieldSchema{Name: f.Name, Type: ft})
	}
	return out, nil
}

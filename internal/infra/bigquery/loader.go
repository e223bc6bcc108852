package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"
)

// Config identifies the destination table and per-job options.
type Config struct {
	Project       string
	Dataset       string
	Table         string
	SchemaFile    string // optional; autodetect when empty
	MaxBadRecords int64
}

// Loader submits load jobs to the tabular store, one object per job.
// Records are newline-delimited JSON appended to the destination table,
// matching the snapshot normalization output.
type Loader struct {
	svc          *bq.Service
	cfg          Config
	schema       *bq.TableSchema
	pollInterval time.Duration
}

// NewLoader creates a load client. When cfg.SchemaFile is set the explicit
// schema is used and autodetect is off.
func NewLoader(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Loader, error) {
	svc, err := bq.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery service: %w", err)
	}

	var schema *bq.TableSchema
	if cfg.SchemaFile != "" {
		schema, err = LoadSchemaFile(cfg.SchemaFile)
		if err != nil {
			return nil, err
		}
	}

	return &Loader{
		svc:          svc,
		cfg:          cfg,
		schema:       schema,
		pollInterval: 2 * time.Second,
	}, nil
}

// LoadSchemaFile parses a JSON schema field array (the API representation).
func LoadSchemaFile(path string) (*bq.TableSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var fields []*bq.TableFieldSchema
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	return &bq.TableSchema{Fields: fields}, nil
}

// SubmitLoad submits one load job for the source object and waits for the
// job to finish. The raw error is returned uninterpreted; classification is
// the caller's concern.
func (l *Loader) SubmitLoad(ctx context.Context, sourceURI string) error {
	load := &bq.JobConfigurationLoad{
		SourceUris:   []string{sourceURI},
		SourceFormat: "NEWLINE_DELIMITED_JSON",
		DestinationTable: &bq.TableReference{
			ProjectId: l.cfg.Project,
			DatasetId: l.cfg.Dataset,
			TableId:   l.cfg.Table,
		},
		WriteDisposition:    "WRITE_APPEND",
		IgnoreUnknownValues: true,
	}
	if l.schema != nil {
		load.Schema = l.schema
	} else {
		load.Autodetect = true
	}
	if l.cfg.MaxBadRecords > 0 {
		load.MaxBadRecords = l.cfg.MaxBadRecords
	}

	job := &bq.Job{
		Configuration: &bq.JobConfiguration{Load: load},
	}

	inserted, err := l.svc.Jobs.Insert(l.cfg.Project, job).Context(ctx).Do()
	if err != nil {
		return err
	}

	return l.wait(ctx, inserted.JobReference)
}

// wait polls the job until it reaches the DONE state.
func (l *Loader) wait(ctx context.Context, ref *bq.JobReference) error {
	for {
		call := l.svc.Jobs.Get(l.cfg.Project, ref.JobId).Context(ctx)
		if ref.Location != "" {
			call = call.Location(ref.Location)
		}
		job, err := call.Do()
		if err != nil {
			return err
		}

		if job.Status != nil && job.Status.State == "DONE" {
			if job.Status.ErrorResult != nil {
				return &JobError{
					Reason:   job.Status.ErrorResult.Reason,
					Location: job.Status.ErrorResult.Location,
					Message:  job.Status.ErrorResult.Message,
				}
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"onlyjobs-backend/internal/application/domain"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

var applicationSchema = bigquery.Schema{
	{Name: "user_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "email_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "company", Type: bigquery.StringFieldType},
	{Name: "job_title", Type: bigquery.StringFieldType},
	{Name: "location", Type: bigquery.StringFieldType},
	{Name: "status", Type: bigquery.StringFieldType},
	{Name: "inserted_at", Type: bigquery.TimestampFieldType},
	{Name: "email_date", Type: bigquery.TimestampFieldType},
	{Name: "raw_email_content", Type: bigquery.StringFieldType},
}

type bigQueryRow struct {
	app *domain.JobApplication
}

// Save implements bigquery.ValueSaver. The insert id makes streaming
// retries of the same message collapse into one row.
func (r bigQueryRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"user_id":           r.app.UserID,
		"email_id":          r.app.MessageID,
		"company":           r.app.Company,
		"job_title":         r.app.JobTitle,
		"location":          r.app.Location,
		"status":            string(r.app.Status),
		"inserted_at":       r.app.InsertedAt.UTC().Format(time.RFC3339Nano),
		"email_date":        emailTimestamp(r.app).Format(time.RFC3339Nano),
		"raw_email_content": r.app.RawContent,
	}, r.app.UserID + "/" + r.app.MessageID, nil
}

// latestViewQuery keeps the newest row per (user_id, email_id). Streaming
// insert ids only dedupe within a short window.
func latestViewQuery(project, dataset, table string) string {
	return fmt.Sprintf(
		"SELECT * EXCEPT(rn) FROM ("+
			"SELECT *, ROW_NUMBER() OVER (PARTITION BY user_id, email_id ORDER BY inserted_at DESC) AS rn "+
			"FROM `%s.%s.%s`) WHERE rn = 1",
		project, dataset, table)
}

type bigQuerySink struct {
	client   *bigquery.Client
	dataset  string
	table    string
	location string

	mu      sync.Mutex
	ensured bool
}

func NewBigQuerySink(client *bigquery.Client, dataset, table, location string) AnalyticsSink {
	return &bigQuerySink{
		client:   client,
		dataset:  dataset,
		table:    table,
		location: location,
	}
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func isAlreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}

// ensure creates the dataset and table on first use. Only success is
// remembered, so a failed attempt is repeated by the next insert.
func (s *bigQuerySink) ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	ds := s.client.Dataset(s.dataset)
	if _, err := ds.Metadata(ctx); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("failed to read dataset %s: %w", s.dataset, err)
		}
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: s.location}); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("failed to create dataset %s: %w", s.dataset, err)
		}
	}

	tbl := ds.Table(s.table)
	if _, err := tbl.Metadata(ctx); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("failed to read table %s: %w", s.table, err)
		}
		if err := tbl.Create(ctx, &bigquery.TableMetadata{Schema: applicationSchema}); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("failed to create table %s: %w", s.table, err)
		}
	}

	view := ds.Table(s.table + "_latest")
	if _, err := view.Metadata(ctx); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("failed to read view %s_latest: %w", s.table, err)
		}
		meta := &bigquery.TableMetadata{ViewQuery: latestViewQuery(s.client.Project(), s.dataset, s.table)}
		if err := view.Create(ctx, meta); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("failed to create view %s_latest: %w", s.table, err)
		}
	}

	s.ensured = true
	return nil
}

func (s *bigQuerySink) Insert(ctx context.Context, app *domain.JobApplication) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	inserter := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := inserter.Put(ctx, bigQueryRow{app: app}); err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}
	return nil
}

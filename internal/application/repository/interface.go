package repository

import (
	"context"

	"onlyjobs-backend/internal/application/domain"
)

// AnalyticsSink keeps the full record, raw content included, for reporting.
// Writing the same (user, message) twice must not produce two records.
type AnalyticsSink interface {
	Insert(ctx context.Context, app *domain.JobApplication) error
}

// DocumentSink keeps the per-user application view read by the web app.
// Upsert fully overwrites the document for (user, message) and reports
// whether the document is new or its status changed.
type DocumentSink interface {
	Upsert(ctx context.Context, app *domain.JobApplication) (bool, error)
}

package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"aktis-collector-monday/internal/models"
)

// GraphQLExecutor posts one GraphQL document and returns the response's
// data member. GraphQL error lists are returned as errors.
type GraphQLExecutor interface {
	Execute(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error)
}

// BoardFetcher drains every item of a board, in server order
type BoardFetcher interface {
	FetchAll(ctx context.Context, boardID string) (*models.BoardSnapshot, error)
}

// Publisher writes a serialized payload under a logical path
type Publisher interface {
	Publish(ctx context.Context, path string, payload []byte) (*models.PublishResult, error)
	Name() string
}

// RunStore keeps the audit trail of export runs
type RunStore interface {
	SaveRun(run *models.RunRecord) error
	LoadRuns(limit int) ([]*models.RunRecord, error)
	LastRun() (*models.RunRecord, error)
	LastSuccess() (*models.RunRecord, error)
	CountRuns() (int, error)
	CleanupOldRuns(retentionDays int) (int, error)
	Close() error
}

// EventSink receives run progress events
type EventSink interface {
	SendCollectionUpdate(eventType string, data interface{})
}

type WebService interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

// ExportRunner runs exports on demand for the web server
type ExportRunner interface {
	Run(ctx context.Context) (*models.RunResult, error)
	Snapshot(ctx context.Context) ([]models.NormalizedRecord, error)
	IsRunning() bool
}

// MetricsRenderer renders normalized records as Prometheus text
type MetricsRenderer interface {
	Render(records []models.NormalizedRecord, scraped time.Time) string
}

package services

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	. "aktis-collector-monday/internal/common"
	. "aktis-collector-monday/internal/interfaces"
	"aktis-collector-monday/internal/models"

	"github.com/ternarybob/arbor"
	"github.com/zeebo/blake3"
)

// Pipeline runs one export: fetch the board, optionally keep the most recent
// items, normalize, serialize, publish. A run either publishes everything or
// nothing.
type Pipeline struct {
	config     *Config
	fetcher    BoardFetcher
	normalizer *Normalizer
	publisher  Publisher
	store      RunStore
	events     EventSink
	logger     arbor.ILogger
	now        func() time.Time

	running sync.Mutex
}

func NewPipeline(config *Config, fetcher BoardFetcher, normalizer *Normalizer, publisher Publisher, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		config:     config,
		fetcher:    fetcher,
		normalizer: normalizer,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithStore records every run in the ledger
func (p *Pipeline) WithStore(store RunStore) *Pipeline {
	p.store = store
	return p
}

// WithEvents sends run progress to sink
func (p *Pipeline) WithEvents(sink EventSink) *Pipeline {
	p.events = sink
	return p
}

// IsRunning reports whether a run is in progress
func (p *Pipeline) IsRunning() bool {
	if p.running.TryLock() {
		p.running.Unlock()
		return false
	}
	return true
}

// Run executes one export. Configuration problems are reported before any
// network call; a second Run while one is in progress fails with the
// run_in_progress service error.
func (p *Pipeline) Run(ctx context.Context) (*models.RunResult, error) {
	if err := p.config.ValidateExport(); err != nil {
		return nil, err
	}

	if !p.running.TryLock() {
		return nil, NewServiceError("run_in_progress", "an export run is already in progress")
	}
	defer p.running.Unlock()

	result := &models.RunResult{
		RunID:     NewRunID(),
		BoardID:   p.config.Monday.BoardID,
		StartedAt: p.now().UTC(),
	}

	p.logger.Info().
		Str("run_id", result.RunID).
		Str("board_id", result.BoardID).
		Str("target", p.publisher.Name()).
		Str("path", p.config.Output.Path).
		Msg("Export run started")
	p.emit(models.EventRunStarted, models.RunEvent{RunID: result.RunID, BoardID: result.BoardID})

	err := p.execute(ctx, result)
	result.Duration = p.now().Sub(result.StartedAt)

	p.record(result, err)

	if err != nil {
		p.logger.Error().
			Err(err).
			Str("run_id", result.RunID).
			Str("error_type", string(TypeOf(err))).
			Dur("duration", result.Duration).
			Msg("Export run failed")
		p.emit(models.EventRunFailed, models.RunEvent{
			RunID:   result.RunID,
			BoardID: result.BoardID,
			Fetched: result.Fetched,
			Error:   err.Error(),
		})
		return nil, err
	}

	p.logger.Info().
		Str("run_id", result.RunID).
		Int("fetched", result.Fetched).
		Int("exported", result.Exported).
		Str("location", result.Publish.Location).
		Dur("duration", result.Duration).
		Msg("Export run completed")
	p.emit(models.EventRunCompleted, models.RunEvent{
		RunID:    result.RunID,
		BoardID:  result.BoardID,
		Fetched:  result.Fetched,
		Exported: result.Exported,
		Location: result.Publish.Location,
	})

	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, result *models.RunResult) error {
	snapshot, err := p.fetcher.FetchAll(ctx, p.config.Monday.BoardID)
	if err != nil {
		return err
	}
	result.BoardName = snapshot.Name
	result.Fetched = len(snapshot.Items)

	items := snapshot.Items
	if p.config.Monday.RecentLimit > 0 {
		items = SelectRecent(items, p.config.Monday.RecentLimit)
	}

	records := p.normalizer.NormalizeAll(items)
	result.Records = records
	result.Exported = len(records)

	data, err := p.encode(snapshot, result, records)
	if err != nil {
		return err
	}
	digest := blake3.Sum256(data)
	result.Digest = hex.EncodeToString(digest[:])

	published, err := p.publisher.Publish(ctx, p.config.Output.Path, data)
	if err != nil {
		return err
	}
	result.Publish = published
	return nil
}

func (p *Pipeline) encode(snapshot *models.BoardSnapshot, result *models.RunResult, records []models.NormalizedRecord) ([]byte, error) {
	var document interface{} = records
	if p.config.Output.Format != OutputFormatBare {
		document = models.Payload{
			Metadata: models.PayloadMetadata{
				FetchedAt:         result.StartedAt,
				SourceBoardID:     result.BoardID,
				BoardName:         snapshot.Name,
				CountTotalFetched: result.Fetched,
				CountExported:     result.Exported,
			},
			Records: records,
		}
	}

	data, err := models.EncodeJSON(document)
	if err != nil {
		return nil, NewInternalError("encode_failed", "failed to serialize payload").WithCause(err)
	}
	return data, nil
}

// record writes the ledger entry. Ledger failures never fail the run.
func (p *Pipeline) record(result *models.RunResult, runErr error) {
	if p.store == nil {
		return
	}

	entry := &models.RunRecord{
		ID:         result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.StartedAt.Add(result.Duration),
		BoardID:    result.BoardID,
		Target:     p.publisher.Name(),
		Path:       p.config.Output.Path,
		Success:    runErr == nil,
		Fetched:    result.Fetched,
		Exported:   result.Exported,
		Digest:     result.Digest,
	}
	if runErr != nil {
		entry.ErrorType = string(TypeOf(runErr))
		if entry.ErrorType == "" {
			entry.ErrorType = string(ErrorTypeInternal)
		}
		entry.Error = runErr.Error()
	}
	if result.Publish != nil {
		entry.Location = result.Publish.Location
		entry.Version = result.Publish.Version
	}

	if err := p.store.SaveRun(entry); err != nil {
		p.logger.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to record run in ledger")
	}
}

func (p *Pipeline) emit(eventType string, event models.RunEvent) {
	if p.events != nil {
		p.events.SendCollectionUpdate(eventType, event)
	}
}

// Snapshot fetches and normalizes every board item without publishing.
// Used by the metrics endpoint.
func (p *Pipeline) Snapshot(ctx context.Context) ([]models.NormalizedRecord, error) {
	if err := p.config.ValidateBoardAccess(); err != nil {
		return nil, err
	}

	snapshot, err := p.fetcher.FetchAll(ctx, p.config.Monday.BoardID)
	if err != nil {
		return nil, err
	}
	return p.normalizer.NormalizeAll(snapshot.Items), nil
}

package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "aktis-collector-monday/internal/common"
	. "aktis-collector-monday/internal/interfaces"
	"aktis-collector-monday/internal/models"

	"github.com/oklog/ulid/v2"
	bolt "go.etcd.io/bbolt"
)

const (
	runsBucket     = "runs"
	metadataBucket = "metadata"
	lastSuccessKey = "last_success"
)

type storage struct {
	db     *bolt.DB
	config *StorageConfig
}

// NewRunID returns a time-ordered unique run id
func NewRunID() string {
	return ulid.Make().String()
}

// NewStorage opens (creating if needed) the run ledger database
func NewStorage(config *StorageConfig) (RunStore, error) {
	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, NewStorageError("ledger_dir_failed", "failed to create database directory").WithCause(err)
	}

	db, err := bolt.Open(config.DatabasePath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, NewStorageError("ledger_open_failed", "failed to open database").
			WithContext("path", config.DatabasePath).
			WithCause(err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(metadataBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, NewStorageError("ledger_init_failed", "failed to create buckets").WithCause(err)
	}

	return &storage{
		db:     db,
		config: config,
	}, nil
}

func (s *storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *storage) SaveRun(run *models.RunRecord) error {
	if run.ID == "" {
		return NewStorageError("ledger_missing_id", "run record has no id")
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", run.ID, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(runsBucket)).Put([]byte(run.ID), data); err != nil {
			return fmt.Errorf("failed to save run %s: %w", run.ID, err)
		}
		if run.Success {
			return tx.Bucket([]byte(metadataBucket)).Put([]byte(lastSuccessKey), []byte(run.ID))
		}
		return nil
	})
}

// LoadRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *storage) LoadRuns(limit int) ([]*models.RunRecord, error) {
	runs := []*models.RunRecord{}

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var run models.RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				continue
			}
			runs = append(runs, &run)
		}
		return nil
	})

	return runs, err
}

func (s *storage) LastRun() (*models.RunRecord, error) {
	runs, err := s.LoadRuns(1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

func (s *storage) LastSuccess() (*models.RunRecord, error) {
	var run *models.RunRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket([]byte(metadataBucket)).Get([]byte(lastSuccessKey))
		if id == nil {
			return nil
		}
		data := tx.Bucket([]byte(runsBucket)).Get(id)
		if data == nil {
			return nil
		}
		var record models.RunRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to decode run %s: %w", id, err)
		}
		run = &record
		return nil
	})

	return run, err
}

func (s *storage) CountRuns() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(runsBucket)).Stats().KeyN
		return nil
	})
	return count, err
}

// CleanupOldRuns removes runs older than retentionDays, keeping the last
// successful run regardless of age
func (s *storage) CleanupOldRuns(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucket))
		keep := string(tx.Bucket([]byte(metadataBucket)).Get([]byte(lastSuccessKey)))

		var stale [][]byte
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			id, err := ulid.ParseStrict(string(k))
			if err != nil || string(k) == keep {
				continue
			}
			if ulid.Time(id.Time()).Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}

		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete run %s: %w", k, err)
			}
			removed++
		}
		return nil
	})

	return removed, err
}

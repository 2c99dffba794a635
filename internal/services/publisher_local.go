package services

import (
	"context"
	"os"
	"path/filepath"

	. "aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/models"

	"github.com/ternarybob/arbor"
)

// LocalPublisher writes payloads beneath a base directory. The write fully
// replaces any previous file at the path.
type LocalPublisher struct {
	baseDir string
	logger  arbor.ILogger
}

// NewLocalPublisher resolves relative publish paths against baseDir; an
// empty baseDir means the working directory
func NewLocalPublisher(baseDir string, logger arbor.ILogger) *LocalPublisher {
	return &LocalPublisher{baseDir: baseDir, logger: logger}
}

func (lp *LocalPublisher) Name() string {
	return OutputTargetLocal
}

func (lp *LocalPublisher) Publish(ctx context.Context, path string, payload []byte) (*models.PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := path
	if lp.baseDir != "" && !filepath.IsAbs(path) {
		target = filepath.Join(lp.baseDir, path)
	}

	if dir := filepath.Dir(target); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, NewStorageError("output_dir_failed", "failed to create output directory").
				WithContext("dir", dir).
				WithCause(err)
		}
	}

	_, statErr := os.Stat(target)
	created := os.IsNotExist(statErr)

	if err := os.WriteFile(target, payload, 0644); err != nil {
		return nil, NewStorageError("output_write_failed", "failed to write output file").
			WithContext("path", target).
			WithCause(err)
	}

	lp.logger.Debug().Str("path", target).Int("bytes", len(payload)).Msg("Wrote payload to local file")

	location, err := filepath.Abs(target)
	if err != nil {
		location = target
	}

	return &models.PublishResult{
		Target:   OutputTargetLocal,
		Location: location,
		Created:  created,
	}, nil
}

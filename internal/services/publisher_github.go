package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	. "aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/models"

	"github.com/ternarybob/arbor"
)

// contentsAPI is the part of the GitHub contents client the publisher needs
type contentsAPI interface {
	GetSHA(ctx context.Context, path string) (string, bool, error)
	PutContents(ctx context.Context, path string, content []byte, message, sha string) (*ContentsWrite, error)
	Repository() string
}

// GitHubPublisher upserts the payload as a file in a GitHub repository:
// read the current blob sha, then write with it. A stale sha surfaces as a
// conflict error and is not retried here.
type GitHubPublisher struct {
	contents      contentsAPI
	commitMessage string
	logger        arbor.ILogger
	now           func() time.Time
}

// NewGitHubPublisher builds a publisher over the contents client for config
func NewGitHubPublisher(config *GitHubConfig, logger arbor.ILogger) (*GitHubPublisher, error) {
	client, err := NewGitHubContentsClient(config)
	if err != nil {
		return nil, err
	}
	return newGitHubPublisher(client, config.CommitMessage, logger), nil
}

func newGitHubPublisher(contents contentsAPI, commitMessage string, logger arbor.ILogger) *GitHubPublisher {
	if commitMessage == "" {
		commitMessage = "Export monday.com tickets (%s)"
	}
	return &GitHubPublisher{
		contents:      contents,
		commitMessage: commitMessage,
		logger:        logger,
		now:           time.Now,
	}
}

func (gp *GitHubPublisher) Name() string {
	return OutputTargetGitHub
}

func (gp *GitHubPublisher) Publish(ctx context.Context, path string, payload []byte) (*models.PublishResult, error) {
	path = strings.Trim(path, "/")

	sha, found, err := gp.contents.GetSHA(ctx, path)
	if err != nil {
		return nil, err
	}
	if found {
		gp.logger.Debug().Str("path", path).Str("sha", sha).Msg("Updating existing remote file")
	} else {
		gp.logger.Debug().Str("path", path).Msg("Remote file not found, creating")
	}

	write, err := gp.contents.PutContents(ctx, path, payload, gp.message(), sha)
	if err != nil {
		return nil, err
	}

	location := write.HTMLURL
	if location == "" {
		location = fmt.Sprintf("github://%s/%s", gp.contents.Repository(), path)
	}

	return &models.PublishResult{
		Target:   OutputTargetGitHub,
		Location: location,
		Version:  write.SHA,
		Created:  !found,
	}, nil
}

func (gp *GitHubPublisher) message() string {
	if strings.Contains(gp.commitMessage, "%s") {
		return fmt.Sprintf(gp.commitMessage, gp.now().UTC().Format(time.RFC3339))
	}
	return gp.commitMessage
}

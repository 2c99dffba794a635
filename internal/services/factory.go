package services

import (
	"time"

	. "aktis-collector-monday/internal/common"
	. "aktis-collector-monday/internal/interfaces"

	"github.com/ternarybob/arbor"
)

// NewPublisher returns the publisher for config.Output.Target, wrapped with
// conflict retries when conflict_retries is set
func NewPublisher(config *Config, logger arbor.ILogger) (Publisher, error) {
	var publisher Publisher

	switch config.Output.Target {
	case OutputTargetLocal, "":
		publisher = NewLocalPublisher("", logger)
	case OutputTargetGitHub:
		github, err := NewGitHubPublisher(&config.GitHub, logger)
		if err != nil {
			return nil, err
		}
		publisher = github
	case OutputTargetS3:
		s3, err := NewS3Publisher(&config.S3, logger)
		if err != nil {
			return nil, err
		}
		publisher = s3
	default:
		return nil, NewConfigurationError("invalid_output_target", "unknown output target "+config.Output.Target)
	}

	if config.Output.ConflictRetries > 0 {
		backoff := time.Duration(config.Output.ConflictBackoffMS) * time.Millisecond
		publisher = NewRetryingPublisher(publisher, config.Output.ConflictRetries, backoff, logger)
	}

	return publisher, nil
}

// BuildPipeline wires the board client, rule table and publisher described
// by config. It validates the export settings first and never touches the
// network.
func BuildPipeline(config *Config, logger arbor.ILogger) (*Pipeline, error) {
	if err := config.ValidateExport(); err != nil {
		return nil, err
	}
	return AssemblePipeline(config, logger)
}

// AssemblePipeline wires the pipeline without requiring board credentials.
// Serve mode starts this way; each run still validates before fetching.
func AssemblePipeline(config *Config, logger arbor.ILogger) (*Pipeline, error) {
	rules, err := BuildFieldRules(&config.Columns)
	if err != nil {
		return nil, err
	}

	publisher, err := NewPublisher(config, logger)
	if err != nil {
		return nil, err
	}

	executor := NewGraphQLClient(&config.Monday)
	paginator := NewBoardPaginator(executor, &config.Monday, logger)

	return NewPipeline(config, paginator, NewNormalizer(rules), publisher, logger), nil
}

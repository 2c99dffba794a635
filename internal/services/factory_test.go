package services

import (
	"testing"

	"aktis-collector-monday/internal/common"

	"github.com/ternarybob/arbor"
)

func TestNewPublisher_Targets(t *testing.T) {
	tests := []struct {
		target string
		setup  func(*common.Config)
		want   string
	}{
		{common.OutputTargetLocal, nil, common.OutputTargetLocal},
		{common.OutputTargetGitHub, func(c *common.Config) { c.GitHub.Repo = "acme/tickets" }, common.OutputTargetGitHub},
		{common.OutputTargetS3, func(c *common.Config) {
			c.S3.Endpoint = "localhost:9000"
			c.S3.Bucket = "exports"
		}, common.OutputTargetS3},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			config := testConfig()
			config.Output.Target = tt.target
			if tt.setup != nil {
				tt.setup(config)
			}
			publisher, err := NewPublisher(config, arbor.NewLogger())
			if err != nil {
				t.Fatalf("NewPublisher() error = %v", err)
			}
			if publisher.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", publisher.Name(), tt.want)
			}
		})
	}
}

func TestNewPublisher_WrapsWithRetries(t *testing.T) {
	config := testConfig()
	config.Output.ConflictRetries = 2

	publisher, err := NewPublisher(config, arbor.NewLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := publisher.(*RetryingPublisher); !ok {
		t.Errorf("publisher = %T, want *RetryingPublisher", publisher)
	}
}

func TestBuildPipeline_ValidatesFirst(t *testing.T) {
	config := testConfig()
	config.Monday.BoardID = ""

	if _, err := BuildPipeline(config, arbor.NewLogger()); !common.HasCode(err, "missing_board_id") {
		t.Errorf("BuildPipeline() error = %v, want missing_board_id", err)
	}

	pipeline, err := AssemblePipeline(config, arbor.NewLogger())
	if err != nil || pipeline == nil {
		t.Fatalf("AssemblePipeline() = %v, %v", pipeline, err)
	}
}

func TestBuildPipeline_BadColumnMapping(t *testing.T) {
	config := testConfig()
	config.Columns.MappingJSON = `{"nonexistent": "x"}`

	if _, err := BuildPipeline(config, arbor.NewLogger()); !common.HasCode(err, "unknown_column_field") {
		t.Errorf("BuildPipeline() error = %v, want unknown_column_field", err)
	}
}

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// PayloadMetadata describes the export run that produced a payload
type PayloadMetadata struct {
	FetchedAt         time.Time `json:"fetched_at"`
	SourceBoardID     string    `json:"source_board_id"`
	BoardName         string    `json:"board_name,omitempty"`
	CountTotalFetched int       `json:"count_total_fetched"`
	CountExported     int       `json:"count_exported"`
}

// Payload is the envelope form of a published export
type Payload struct {
	Metadata PayloadMetadata    `json:"metadata"`
	Records  []NormalizedRecord `json:"records"`
}

// EncodeJSON renders v as UTF-8 JSON with two-space indentation and without
// HTML escaping, so published files stay diffable and readable.
func EncodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRecords reads records back from either the envelope or the bare form
func DecodeRecords(data []byte) ([]NormalizedRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("failed to decode payload: empty document")
	}

	if trimmed[0] == '[' {
		var records []NormalizedRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode record array: %w", err)
		}
		return records, nil
	}

	var payload Payload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload envelope: %w", err)
	}
	return payload.Records, nil
}

package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ColumnValue is one column of a board item as returned by the board API
type ColumnValue struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Type     string          `json:"type,omitempty"`
	Text     string          `json:"text"`
	RawValue json.RawMessage `json:"raw_value,omitempty"`
}

// RawItem is one board row, fetched and never mutated
type RawItem struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at,omitempty"`
	Columns   []ColumnValue `json:"columns"`
}

// BoardSnapshot is the complete, ordered item sequence of one board
type BoardSnapshot struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Found bool      `json:"found"`
	Items []RawItem `json:"items"`
}

// NormalizedRecord is the fixed-shape output row derived from one RawItem
type NormalizedRecord struct {
	TicketNumber    string `json:"ticket_number"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	Urgency         string `json:"urgency"`
	Assignee        string `json:"assignee"`
	CreatedDate     string `json:"created_date"`
	AffectedElement string `json:"affected_element"`
	Category        string `json:"category"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CreatedTime parses CreatedAt. ok is false when the timestamp is missing or
// in none of the accepted layouts.
func (item RawItem) CreatedTime() (t time.Time, ok bool) {
	return ParseTimestamp(item.CreatedAt)
}

// ParseTimestamp parses an upstream ISO-8601 style timestamp
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DecodeRawValue keeps a column's serialized value as structured JSON when it
// parses and as a JSON string otherwise. A nil input yields nil.
func DecodeRawValue(value *string) json.RawMessage {
	if value == nil {
		return nil
	}
	if json.Valid([]byte(*value)) {
		return json.RawMessage(*value)
	}
	encoded, err := json.Marshal(*value)
	if err != nil {
		return nil
	}
	return json.RawMessage(encoded)
}

// Field returns the record value for a field name, used by metrics labels
// and the quiet-mode payload map
func (r NormalizedRecord) Field(name string) string {
	switch name {
	case FieldTicketNumber:
		return r.TicketNumber
	case FieldTitle:
		return r.Title
	case FieldStatus:
		return r.Status
	case FieldUrgency:
		return r.Urgency
	case FieldAssignee:
		return r.Assignee
	case FieldCreatedDate:
		return r.CreatedDate
	case FieldAffectedElement:
		return r.AffectedElement
	case FieldCategory:
		return r.Category
	}
	return ""
}

// Set assigns the record value for a field name. Unknown names are ignored.
func (r *NormalizedRecord) Set(name, value string) {
	switch name {
	case FieldTicketNumber:
		r.TicketNumber = value
	case FieldTitle:
		r.Title = value
	case FieldStatus:
		r.Status = value
	case FieldUrgency:
		r.Urgency = value
	case FieldAssignee:
		r.Assignee = value
	case FieldCreatedDate:
		r.CreatedDate = value
	case FieldAffectedElement:
		r.AffectedElement = value
	case FieldCategory:
		r.Category = value
	}
}

// Output field names, matching the JSON keys of NormalizedRecord
const (
	FieldTicketNumber    = "ticket_number"
	FieldTitle           = "title"
	FieldStatus          = "status"
	FieldUrgency         = "urgency"
	FieldAssignee        = "assignee"
	FieldCreatedDate     = "created_date"
	FieldAffectedElement = "affected_element"
	FieldCategory        = "category"
)

// FieldNames lists the output fields in record order
var FieldNames = []string{
	FieldTicketNumber,
	FieldTitle,
	FieldStatus,
	FieldUrgency,
	FieldAssignee,
	FieldCreatedDate,
	FieldAffectedElement,
	FieldCategory,
}

// ToMap converts the record to a field-name keyed map
func (r NormalizedRecord) ToMap() map[string]interface{} {
	data := make(map[string]interface{}, len(FieldNames))
	for _, name := range FieldNames {
		data[name] = r.Field(name)
	}
	return data
}

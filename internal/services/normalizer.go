package services

import (
	"sort"
	"strings"
	"time"

	. "aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/models"
)

const createdDateLength = 10

// Normalizer maps raw board items onto the fixed record schema using an
// ordered rule table. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	rules []FieldRule
}

// NewNormalizer builds a normalizer from a rule table. A nil table selects
// DefaultFieldRules.
func NewNormalizer(rules []FieldRule) *Normalizer {
	if rules == nil {
		rules = DefaultFieldRules()
	}
	copied := make([]FieldRule, len(rules))
	copy(copied, rules)
	return &Normalizer{rules: copied}
}

// Rules returns a copy of the rule table in resolution order
func (n *Normalizer) Rules() []FieldRule {
	copied := make([]FieldRule, len(n.rules))
	copy(copied, n.rules)
	return copied
}

// Normalize derives one record from one item. It never fails: unresolved
// fields are empty and the ticket number falls back to the item id.
func (n *Normalizer) Normalize(item models.RawItem) models.NormalizedRecord {
	var record models.NormalizedRecord

	for _, rule := range n.rules {
		column, ok := ResolveField(item.Columns, rule)
		if !ok {
			continue
		}
		record.Set(rule.Field, columnText(column))
	}

	record.CreatedDate = truncateRunes(record.CreatedDate, createdDateLength)

	if strings.TrimSpace(record.TicketNumber) == "" {
		record.TicketNumber = item.ID
	}

	return record
}

// NormalizeAll normalizes items in order, one record per item
func (n *Normalizer) NormalizeAll(items []models.RawItem) []models.NormalizedRecord {
	records := make([]models.NormalizedRecord, 0, len(items))
	for _, item := range items {
		records = append(records, n.Normalize(item))
	}
	return records
}

func columnText(column models.ColumnValue) string {
	return strings.TrimSpace(StripMarkup(column.Text))
}

func truncateRunes(value string, limit int) string {
	count := 0
	for i := range value {
		if count == limit {
			return value[:i]
		}
		count++
	}
	return value
}

// SelectRecent keeps the n most recently created items, newest first. Items
// whose creation time is missing or unparseable sort as the oldest, and ties
// keep their fetch order. n <= 0 returns the items unchanged.
func SelectRecent(items []models.RawItem, n int) []models.RawItem {
	if n <= 0 {
		return items
	}

	type stamped struct {
		item    models.RawItem
		created time.Time
		valid   bool
	}
	sorted := make([]stamped, len(items))
	for i, item := range items {
		created, ok := item.CreatedTime()
		sorted[i] = stamped{item: item, created: created, valid: ok}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.valid != b.valid {
			return a.valid
		}
		return a.created.After(b.created)
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	selected := make([]models.RawItem, n)
	for i := 0; i < n; i++ {
		selected[i] = sorted[i].item
	}
	return selected
}

package services

import (
	"strings"
	"unicode"

	"aktis-collector-monday/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatchMode selects how candidate names are compared with column keys
type MatchMode int

const (
	// MatchExact requires the normalized id or title to equal a candidate
	MatchExact MatchMode = iota
	// MatchLoose tries exact first, then substring containment either way
	MatchLoose
)

func (m MatchMode) String() string {
	if m == MatchLoose {
		return "loose"
	}
	return "exact"
}

// FieldRule declares how one output field is located among an item's columns
type FieldRule struct {
	Field      string
	Candidates []string
	Loose      bool
	// Override, when set, names the column id or title that must be used
	// before any candidate is tried.
	Override string
}

// Mode returns the match mode the rule resolves with
func (r FieldRule) Mode() MatchMode {
	if r.Loose {
		return MatchLoose
	}
	return MatchExact
}

// DefaultFieldRules returns the built-in resolution table. Candidates are
// listed in priority order and cover the Spanish and English column names
// seen on service-desk boards.
func DefaultFieldRules() []FieldRule {
	return []FieldRule{
		{
			Field: models.FieldTicketNumber,
			Candidates: []string{
				"ticket", "n_ticket", "numero de ticket", "nº ticket", "no. ticket",
				"id ticket", "ticket id", "item_id", "id del elemento", "item id",
			},
		},
		{
			Field:      models.FieldTitle,
			Candidates: []string{"titulo", "asunto", "subject", "title", "resumen", "summary", "nombre", "name"},
		},
		{
			Field:      models.FieldStatus,
			Candidates: []string{"status", "estado", "estado del ticket"},
		},
		{
			Field:      models.FieldUrgency,
			Candidates: []string{"urgencia", "prioridad", "priority", "urgency"},
		},
		{
			Field: models.FieldAssignee,
			Candidates: []string{
				"person", "people", "asignado", "asignado a", "tecnico", "responsable",
				"assignee", "owner", "assigned to",
			},
		},
		{
			Field: models.FieldCreatedDate,
			Candidates: []string{
				"creation_log", "creado en", "fecha de creacion", "fecha creacion",
				"created", "created at", "creation log",
			},
		},
		{
			Field: models.FieldAffectedElement,
			Candidates: []string{
				"elemento afectado", "equipo", "activo", "ubicacion", "location", "asset", "affected",
			},
			Loose: true,
		},
		{
			Field:      models.FieldCategory,
			Candidates: []string{"categoria", "category", "tipo", "type"},
		},
	}
}

// normalizeKey folds a column id, title or candidate into its comparison form:
// accents removed, outer whitespace trimmed, lower-cased.
func normalizeKey(value string) string {
	// transform.Chain keeps state, so a fresh chain is built per call
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, value)
	if err != nil {
		folded = value
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Resolve finds the column that best matches the candidate list. The exact
// pass walks columns in board order and, per column, candidates in priority
// order. The loose pass only runs in MatchLoose mode when the exact pass
// found nothing.
func Resolve(columns []models.ColumnValue, candidates []string, mode MatchMode) (models.ColumnValue, bool) {
	if len(columns) == 0 || len(candidates) == 0 {
		return models.ColumnValue{}, false
	}

	keys := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if key := normalizeKey(candidate); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return models.ColumnValue{}, false
	}

	type columnKey struct {
		id    string
		title string
	}
	columnKeys := make([]columnKey, len(columns))
	for i, column := range columns {
		columnKeys[i] = columnKey{id: normalizeKey(column.ID), title: normalizeKey(column.Title)}
	}

	for i, ck := range columnKeys {
		for _, key := range keys {
			if (ck.id != "" && ck.id == key) || (ck.title != "" && ck.title == key) {
				return columns[i], true
			}
		}
	}

	if mode != MatchLoose {
		return models.ColumnValue{}, false
	}

	for i, ck := range columnKeys {
		for _, key := range keys {
			if looselyMatches(ck.id, key) || looselyMatches(ck.title, key) {
				return columns[i], true
			}
		}
	}

	return models.ColumnValue{}, false
}

func looselyMatches(columnKey, candidate string) bool {
	if columnKey == "" || candidate == "" {
		return false
	}
	return strings.Contains(columnKey, candidate) || strings.Contains(candidate, columnKey)
}

// ResolveField resolves one rule. A configured override is tried first with an
// exact match and wins when present; otherwise the rule's candidates apply.
func ResolveField(columns []models.ColumnValue, rule FieldRule) (models.ColumnValue, bool) {
	if strings.TrimSpace(rule.Override) != "" {
		if column, ok := Resolve(columns, []string{rule.Override}, MatchExact); ok {
			return column, true
		}
	}
	return Resolve(columns, rule.Candidates, rule.Mode())
}

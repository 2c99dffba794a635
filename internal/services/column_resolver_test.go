package services

import (
	"testing"

	"aktis-collector-monday/internal/models"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Estado", "estado"},
		{"  Número de Ticket ", "numero de ticket"},
		{"Categoría", "categoria"},
		{"UBICACIÓN", "ubicacion"},
		{"Técnico asignado", "tecnico asignado"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := normalizeKey(tt.in); got != tt.want {
			t.Errorf("normalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve_ExactMatchIgnoresCandidateOrder(t *testing.T) {
	columns := []models.ColumnValue{
		{ID: "status_1", Title: "Urgencia", Text: "Alta"},
	}

	for _, candidates := range [][]string{
		{"Urgencia", "status_1"},
		{"status_1", "Urgencia"},
	} {
		got, ok := Resolve(columns, candidates, MatchExact)
		if !ok {
			t.Fatalf("Resolve(%v) found nothing", candidates)
		}
		if got.ID != "status_1" {
			t.Errorf("Resolve(%v) = %q, want status_1", candidates, got.ID)
		}
	}
}

func TestResolve_DisjointCandidatesReturnNone(t *testing.T) {
	columns := []models.ColumnValue{
		{ID: "status_1", Title: "Urgencia"},
	}

	if got, ok := Resolve(columns, []string{"estado", "owner"}, MatchExact); ok {
		t.Errorf("Resolve() = %+v, want no match", got)
	}
	if got, ok := Resolve(columns, []string{"estado", "owner"}, MatchLoose); ok {
		t.Errorf("Resolve() loose = %+v, want no match", got)
	}
}

func TestResolve_AccentsAndCaseAreFolded(t *testing.T) {
	columns := []models.ColumnValue{
		{ID: "dropdown7", Title: " CATEGORÍA ", Text: "Red"},
	}

	got, ok := Resolve(columns, []string{"categoria"}, MatchExact)
	if !ok || got.ID != "dropdown7" {
		t.Fatalf("Resolve() = %+v, %v; want dropdown7", got, ok)
	}
}

func TestResolve_ColumnOrderTakesPrecedenceOverCandidateOrder(t *testing.T) {
	columns := []models.ColumnValue{
		{ID: "text1", Title: "Asunto"},
		{ID: "text2", Title: "Titulo"},
	}

	got, ok := Resolve(columns, []string{"titulo", "asunto"}, MatchExact)
	if !ok {
		t.Fatal("Resolve() found nothing")
	}
	if got.ID != "text1" {
		t.Errorf("Resolve() = %q, want the first column in board order (text1)", got.ID)
	}
}

func TestResolve_LoosePassOnlyWhenRequested(t *testing.T) {
	columns := []models.ColumnValue{
		{ID: "text9", Title: "Equipo o elemento afectado", Text: "Impresora 3"},
	}

	if _, ok := Resolve(columns, []string{"elemento afectado"}, MatchExact); ok {
		t.Error("exact mode matched a substring")
	}

	got, ok := Resolve(columns, []string{"elemento afectado"}, MatchLoose)
	if !ok || got.ID != "text9" {
		t.Errorf("Resolve() loose = %+v, %v; want text9", got, ok)
	}
}

func TestResolve_LooseModePrefersExactMatch(t *testing.T) {
	columns := []models.ColumnValue{
		{ID: "text1", Title: "Ubicación del equipo"},
		{ID: "text2", Title: "Equipo"},
	}

	got, ok := Resolve(columns, []string{"equipo"}, MatchLoose)
	if !ok {
		t.Fatal("Resolve() found nothing")
	}
	if got.ID != "text2" {
		t.Errorf("Resolve() = %q, want the exact match text2", got.ID)
	}
}

func TestResolve_EmptyKeysNeverMatch(t *testing.T) {
	columns := []models.ColumnValue{
		{ID: "", Title: ""},
		{ID: "  ", Title: " "},
	}

	if got, ok := Resolve(columns, []string{"status"}, MatchLoose); ok {
		t.Errorf("Resolve() = %+v, empty column keys must not match", got)
	}

	named := []models.ColumnValue{{ID: "status", Title: "Estado"}}
	if got, ok := Resolve(named, []string{"", "   "}, MatchLoose); ok {
		t.Errorf("Resolve() = %+v, empty candidates must not match", got)
	}
}

func TestResolveField_OverrideWins(t *testing.T) {
	columns := []models.ColumnValue{
		{ID: "status", Title: "Estado", Text: "Abierto"},
		{ID: "status_7", Title: "Estado interno", Text: "En curso"},
	}

	rule := FieldRule{Field: models.FieldStatus, Candidates: []string{"status", "estado"}, Override: "status_7"}
	got, ok := ResolveField(columns, rule)
	if !ok || got.ID != "status_7" {
		t.Errorf("ResolveField() = %+v, %v; want override status_7", got, ok)
	}
}

func TestResolveField_MissingOverrideFallsBackToCandidates(t *testing.T) {
	columns := []models.ColumnValue{
		{ID: "status", Title: "Estado", Text: "Abierto"},
	}

	rule := FieldRule{Field: models.FieldStatus, Candidates: []string{"estado"}, Override: "no_such_column"}
	got, ok := ResolveField(columns, rule)
	if !ok || got.ID != "status" {
		t.Errorf("ResolveField() = %+v, %v; want candidate match status", got, ok)
	}
}

func TestDefaultFieldRules_CoverEveryField(t *testing.T) {
	rules := DefaultFieldRules()

	seen := map[string]bool{}
	for _, rule := range rules {
		if len(rule.Candidates) == 0 {
			t.Errorf("rule %s has no candidates", rule.Field)
		}
		seen[rule.Field] = true
	}
	for _, field := range models.FieldNames {
		if !seen[field] {
			t.Errorf("no rule for field %s", field)
		}
	}

	for _, rule := range rules {
		wantLoose := rule.Field == models.FieldAffectedElement
		if rule.Loose != wantLoose {
			t.Errorf("rule %s loose = %v, want %v", rule.Field, rule.Loose, wantLoose)
		}
	}
}

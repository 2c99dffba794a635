package services

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/models"
)

func TestParseColumnMapping_AcceptsCommentsAndBothShapes(t *testing.T) {
	data := []byte(`{
		// board 1587958550 renamed its columns
		"status": "Fase",
		"assignee": ["Soporte", "person_2"], /* extra people column */
	}`)

	mapping, err := ParseColumnMapping(data)
	if err != nil {
		t.Fatalf("ParseColumnMapping() error = %v", err)
	}

	want := map[string][]string{
		"status":   {"Fase"},
		"assignee": {"Soporte", "person_2"},
	}
	if !reflect.DeepEqual(mapping, want) {
		t.Errorf("ParseColumnMapping() = %v, want %v", mapping, want)
	}
}

func TestParseColumnMapping_RejectsInvalidValues(t *testing.T) {
	for _, input := range []string{`[1, 2]`, `{"status": 3}`, `not json`} {
		if _, err := ParseColumnMapping([]byte(input)); !common.IsConfiguration(err) {
			t.Errorf("ParseColumnMapping(%s) error = %v, want configuration error", input, err)
		}
	}
}

func TestBuildFieldRules_PrependsMappedCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.jsonc")
	if err := os.WriteFile(path, []byte(`{"category": ["Área"]}`), 0644); err != nil {
		t.Fatal(err)
	}

	rules, err := BuildFieldRules(&common.ColumnsConfig{
		MappingFile: path,
		MappingJSON: `{"category": "Familia"}`,
		Overrides:   map[string]string{"status": " color_mk1 "},
	})
	if err != nil {
		t.Fatalf("BuildFieldRules() error = %v", err)
	}

	byField := map[string]FieldRule{}
	for _, rule := range rules {
		byField[rule.Field] = rule
	}

	category := byField[models.FieldCategory].Candidates
	if len(category) < 3 || category[0] != "Familia" || category[1] != "Área" {
		t.Errorf("category candidates = %v, want inline then file entries first", category)
	}
	if category[2] != DefaultFieldRules()[len(DefaultFieldRules())-1].Candidates[0] {
		t.Errorf("category candidates = %v, built-in candidates must follow", category)
	}
	if got := byField[models.FieldStatus].Override; got != "color_mk1" {
		t.Errorf("status override = %q, want color_mk1", got)
	}
}

func TestBuildFieldRules_UnknownFieldIsConfigurationError(t *testing.T) {
	_, err := BuildFieldRules(&common.ColumnsConfig{MappingJSON: `{"priority_level": "x"}`})
	if !common.IsConfiguration(err) {
		t.Errorf("mapping error = %v, want configuration error", err)
	}

	_, err = BuildFieldRules(&common.ColumnsConfig{Overrides: map[string]string{"owner": "person"}})
	if !common.IsConfiguration(err) {
		t.Errorf("override error = %v, want configuration error", err)
	}
}

func TestBuildFieldRules_MissingFileIsConfigurationError(t *testing.T) {
	_, err := BuildFieldRules(&common.ColumnsConfig{MappingFile: filepath.Join(t.TempDir(), "absent.json")})
	if !common.IsConfiguration(err) {
		t.Errorf("BuildFieldRules() error = %v, want configuration error", err)
	}
}

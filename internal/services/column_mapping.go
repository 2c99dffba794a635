package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	. "aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/models"

	"github.com/tidwall/jsonc"
)

// ParseColumnMapping reads a JSONC object mapping output field names to extra
// candidates. A value may be a single string or an array of strings.
func ParseColumnMapping(data []byte) (map[string][]string, error) {
	stripped := jsonc.ToJSON(data)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(stripped, &raw); err != nil {
		return nil, NewConfigurationError("invalid_column_mapping", "column mapping must be a JSON object").WithCause(err)
	}

	mapping := make(map[string][]string, len(raw))
	for field, value := range raw {
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			mapping[field] = []string{single}
			continue
		}
		var list []string
		if err := json.Unmarshal(value, &list); err != nil {
			return nil, NewConfigurationError("invalid_column_mapping",
				fmt.Sprintf("candidates for %q must be a string or an array of strings", field)).WithCause(err)
		}
		mapping[field] = list
	}

	return mapping, nil
}

// LoadColumnMapping reads the mapping file and the inline mapping, inline
// entries taking priority. Both are optional.
func LoadColumnMapping(config *ColumnsConfig) (map[string][]string, error) {
	mapping := map[string][]string{}

	if config.MappingFile != "" {
		data, err := os.ReadFile(config.MappingFile)
		if err != nil {
			return nil, NewConfigurationError("unreadable_column_mapping",
				fmt.Sprintf("failed to read column mapping %s", config.MappingFile)).WithCause(err)
		}
		fromFile, err := ParseColumnMapping(data)
		if err != nil {
			return nil, err
		}
		mergeCandidates(mapping, fromFile)
	}

	if strings.TrimSpace(config.MappingJSON) != "" {
		inline, err := ParseColumnMapping([]byte(config.MappingJSON))
		if err != nil {
			return nil, err
		}
		mergeCandidates(mapping, inline)
	}

	return mapping, nil
}

// mergeCandidates puts extra's candidates ahead of those already in dst
func mergeCandidates(dst, extra map[string][]string) {
	for field, candidates := range extra {
		merged := make([]string, 0, len(candidates)+len(dst[field]))
		merged = append(merged, candidates...)
		merged = append(merged, dst[field]...)
		dst[field] = merged
	}
}

// BuildFieldRules applies the column settings to the default rule table:
// mapped candidates are prepended, overrides are attached. Unknown field
// names are configuration errors.
func BuildFieldRules(config *ColumnsConfig) ([]FieldRule, error) {
	mapping, err := LoadColumnMapping(config)
	if err != nil {
		return nil, err
	}

	rules := DefaultFieldRules()
	index := make(map[string]int, len(rules))
	for i, rule := range rules {
		index[rule.Field] = i
	}

	for _, field := range sortedKeys(mapping) {
		i, ok := index[field]
		if !ok {
			return nil, unknownFieldError(field)
		}
		candidates := make([]string, 0, len(mapping[field])+len(rules[i].Candidates))
		candidates = append(candidates, mapping[field]...)
		candidates = append(candidates, rules[i].Candidates...)
		rules[i].Candidates = candidates
	}

	for field, override := range config.Overrides {
		i, ok := index[field]
		if !ok {
			return nil, unknownFieldError(field)
		}
		rules[i].Override = strings.TrimSpace(override)
	}

	return rules, nil
}

func unknownFieldError(field string) error {
	return NewConfigurationError("unknown_column_field",
		fmt.Sprintf("unknown output field %q, expected one of %s", field, strings.Join(models.FieldNames, ", ")))
}

func sortedKeys(mapping map[string][]string) []string {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

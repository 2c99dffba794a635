package models

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func sampleRecords(n int) []NormalizedRecord {
	records := make([]NormalizedRecord, n)
	for i := range records {
		records[i] = NormalizedRecord{
			TicketNumber: fmt.Sprintf("INC-%03d", i),
			Title:        "Impresora <sin tóner> & atasco",
			Status:       "Abierto",
			CreatedDate:  "2024-03-05",
		}
	}
	return records
}

func TestDecodeRecords_BothForms(t *testing.T) {
	records := sampleRecords(3)

	envelope, err := EncodeJSON(Payload{
		Metadata: PayloadMetadata{FetchedAt: time.Now().UTC(), SourceBoardID: "100", CountTotalFetched: 5, CountExported: 3},
		Records:  records,
	})
	if err != nil {
		t.Fatal(err)
	}
	bare, err := EncodeJSON(records)
	if err != nil {
		t.Fatal(err)
	}

	for name, data := range map[string][]byte{"envelope": envelope, "bare": bare} {
		got, err := DecodeRecords(data)
		if err != nil {
			t.Fatalf("%s: DecodeRecords() error = %v", name, err)
		}
		if len(got) != len(records) {
			t.Fatalf("%s: got %d records, want %d", name, len(got), len(records))
		}
		for i := range got {
			if got[i] != records[i] {
				t.Errorf("%s: record %d = %+v, want %+v", name, i, got[i], records[i])
			}
		}
	}
}

func TestEncodeJSON_KeepsMarkupReadable(t *testing.T) {
	data, err := EncodeJSON(sampleRecords(1))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "<sin tóner> & atasco") {
		t.Errorf("EncodeJSON escaped text:\n%s", text)
	}
	if !strings.Contains(text, "\n  {") {
		t.Errorf("EncodeJSON output not indented:\n%s", text)
	}
}

func TestDecodeRecords_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "{", "[1,2]"} {
		if _, err := DecodeRecords([]byte(input)); err == nil {
			t.Errorf("DecodeRecords(%q) succeeded", input)
		}
	}
}

func TestRecordFieldAccessors(t *testing.T) {
	var record NormalizedRecord
	for i, name := range FieldNames {
		record.Set(name, fmt.Sprint(i))
	}
	for i, name := range FieldNames {
		if got := record.Field(name); got != fmt.Sprint(i) {
			t.Errorf("Field(%s) = %q, want %d", name, got, i)
		}
	}
	if len(record.ToMap()) != len(FieldNames) {
		t.Errorf("ToMap() has %d keys", len(record.ToMap()))
	}
	record.Set("unknown", "x")
	if record.Field("unknown") != "" {
		t.Error("unknown field returned a value")
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, value := range []string{"2024-03-05T10:22:11Z", "2024-03-05T10:22:11.123Z", "2024-03-05 10:22:11 UTC", "2024-03-05"} {
		if _, ok := ParseTimestamp(value); !ok {
			t.Errorf("ParseTimestamp(%q) failed", value)
		}
	}
	for _, value := range []string{"", "yesterday", "05/03/2024"} {
		if _, ok := ParseTimestamp(value); ok {
			t.Errorf("ParseTimestamp(%q) succeeded", value)
		}
	}
}

func TestDecodeRawValue(t *testing.T) {
	if DecodeRawValue(nil) != nil {
		t.Error("nil value should decode to nil")
	}
	structured := `{"index":2}`
	if got := string(DecodeRawValue(&structured)); got != structured {
		t.Errorf("structured = %s", got)
	}
	plain := "not json"
	if got := string(DecodeRawValue(&plain)); got != `"not json"` {
		t.Errorf("plain = %s", got)
	}
}

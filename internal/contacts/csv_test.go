package contacts

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func TestWriteCSV(t *testing.T) {
	items := []Contact{
		{
			Name:         "Jane Doe",
			Email:        "jane@example.com",
			LocationMet:  "Berlin Tech Conference",
			LocationFrom: "Munich, Germany",
			DateMet:      "2024-05-10",
			CreatedAt:    time.Date(2024, 5, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			Name:      `Quoted, "Name"`,
			IsHidden:  true,
			CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, items); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading generated CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(records))
	}
	if records[0][0] != "Name" || records[0][7] != "Location Met" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][0] != "Jane Doe" || records[1][2] != "jane@example.com" {
		t.Errorf("unexpected first row: %v", records[1])
	}
	if records[1][6] != "Munich, Germany" || records[1][7] != "Berlin Tech Conference" {
		t.Errorf("location columns swapped: %v", records[1])
	}
	if records[2][0] != `Quoted, "Name"` {
		t.Errorf("quoting broken: %q", records[2][0])
	}
	if records[2][12] != "Yes" {
		t.Errorf("hidden flag not rendered: %v", records[2])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("empty export should contain only the header, got %d lines", len(lines))
	}
}

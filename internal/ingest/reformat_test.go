package ingest

import "testing"

func TestReformatBullets(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"sentences become bullets",
			"Met Alex from Lisbon at the design meetup yesterday. Important: he's hiring.",
			"• Met Alex from Lisbon at the design meetup yesterday.\n• Important: he's hiring.",
		},
		{
			"newlines split too",
			"Jane Doe\nworks at Acme",
			"• Jane Doe\n• works at Acme",
		},
		{
			"empty fragments dropped",
			"One.   \n\n  Two!",
			"• One.\n• Two!",
		},
		{
			"no terminal punctuation",
			"met someone at the gym",
			"• met someone at the gym",
		},
		{
			"abbreviation-like dot mid-word keeps fragment together",
			"visit example.com for details",
			"• visit example.com for details",
		},
		{"empty input", "", ""},
		{"whitespace only", "   \n  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReformatBullets(tt.input); got != tt.want {
				t.Errorf("ReformatBullets(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

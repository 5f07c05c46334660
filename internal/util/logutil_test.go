package util

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "적합도 82.8점",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "적합도",
			limit:  10,
			expect: "적합도",
		},
		{
			name:   "counts runes not bytes",
			input:  "정보통신기획평가원",
			limit:  4,
			expect: "정보통신...",
		},
		{
			name:   "collapses newlines and indentation",
			input:  "{\n  \"summary\": \"요약\"\n}",
			limit:  40,
			expect: "{ \"summary\": \"요약\" }",
		},
		{
			name:   "trims surrounding whitespace",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

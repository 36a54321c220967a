package service

import "testing"

func TestImportanceScore(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name     string
		result   *ExtractionResult
		expected int
	}{
		{
			name:     "plain document scores base",
			result:   &ExtractionResult{DocumentType: "other"},
			expected: 3,
		},
		{
			name:     "high value document type adds a point",
			result:   &ExtractionResult{DocumentType: "deed"},
			expected: 4,
		},
		{
			name: "two signatures add a point",
			result: &ExtractionResult{
				DocumentType:   "other",
				HasSignature:   true,
				SignatureCount: 2,
			},
			expected: 4,
		},
		{
			name: "single signature does not count",
			result: &ExtractionResult{
				DocumentType:   "other",
				HasSignature:   true,
				SignatureCount: 1,
			},
			expected: 3,
		},
		{
			name: "signature count without signature flag does not count",
			result: &ExtractionResult{
				DocumentType:   "other",
				SignatureCount: 3,
			},
			expected: 3,
		},
		{
			name: "closing date adds a point once",
			result: &ExtractionResult{
				DocumentType: "other",
				ExtractedDates: []ExtractedDate{
					{Date: "2026-03-15", Type: DateTypeClosing},
					{Date: "2026-04-01", Type: DateTypeClosing},
				},
			},
			expected: 4,
		},
		{
			name: "all signals clamp at five",
			result: &ExtractionResult{
				DocumentType:   "purchase_agreement",
				HasSignature:   true,
				SignatureCount: 2,
				ExtractedDates: []ExtractedDate{{Date: "2026-03-15", Type: DateTypeClosing}},
			},
			expected: 5,
		},
		{
			name: "explicit score is authoritative",
			result: &ExtractionResult{
				DocumentType:    "purchase_agreement",
				HasSignature:    true,
				SignatureCount:  2,
				ImportanceScore: intPtr(2),
			},
			expected: 2,
		},
		{
			name: "explicit score of one is returned unchanged",
			result: &ExtractionResult{
				DocumentType:    "deed",
				ImportanceScore: intPtr(1),
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImportanceScore(tt.result); got != tt.expected {
				t.Errorf("Expected score %d, got %d", tt.expected, got)
			}
		})
	}
}

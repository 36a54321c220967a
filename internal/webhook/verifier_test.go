package webhook

import "testing"

func TestVerify(t *testing.T) {
	tests := []struct {
		name       string
		declared   string
		configured string
		expected   bool
	}{
		{
			name:       "matching secrets",
			declared:   "s3cret",
			configured: "s3cret",
			expected:   true,
		},
		{
			name:       "mismatched secrets",
			declared:   "wrong",
			configured: "s3cret",
			expected:   false,
		},
		{
			name:       "empty declared against configured",
			declared:   "",
			configured: "s3cret",
			expected:   false,
		},
		{
			name:       "no configured secret is fail-open",
			declared:   "anything",
			configured: "",
			expected:   true,
		},
		{
			name:       "both empty is fail-open",
			declared:   "",
			configured: "",
			expected:   true,
		},
		{
			name:       "prefix does not match",
			declared:   "s3cret-but-longer",
			configured: "s3cret",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.declared, tt.configured); got != tt.expected {
				t.Errorf("Verify(%q, %q) = %v, want %v", tt.declared, tt.configured, got, tt.expected)
			}
		})
	}
}

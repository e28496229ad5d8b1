package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"no changes needed", "walk-in cut", "walk-in cut"},
		{"leading and trailing", "  beard trim  ", "beard trim"},
		{"internal runs collapsed", "fade   and\t\tbeard", "fade and beard"},
		{"newlines collapsed", "first\nsecond", "first second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.expected {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	if got := NormalizeID("  prov-42 "); got != "prov-42" {
		t.Errorf("NormalizeID = %q, want %q", got, "prov-42")
	}
	if got := NormalizeID("Prov-42"); got != "Prov-42" {
		t.Errorf("NormalizeID must not change case, got %q", got)
	}
}

func TestNormalizeIdempotencyKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{" ABC-123 ", "abc-123"},
		{"already-lower", "already-lower"},
		{"MiXeD-CaSe-Key", "mixed-case-key"},
	}

	for _, tt := range tests {
		if got := NormalizeIdempotencyKey(tt.input); got != tt.expected {
			t.Errorf("NormalizeIdempotencyKey(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

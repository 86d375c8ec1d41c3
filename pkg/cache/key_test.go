package cache

import "testing"

func TestFingerprint_NormalizesInput(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"identical", "bitcoin etf approved", "bitcoin etf approved", true},
		{"case insensitive", "Bitcoin ETF Approved", "bitcoin etf approved", true},
		{"whitespace collapsed", "bitcoin   etf\tapproved", "bitcoin etf approved", true},
		{"leading and trailing space", "  bitcoin etf approved  ", "bitcoin etf approved", true},
		{"different text", "bitcoin etf approved", "bitcoin etf rejected", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa, fb := Fingerprint(tt.a), Fingerprint(tt.b)
			if (fa == fb) != tt.same {
				t.Errorf("Fingerprint(%q) vs Fingerprint(%q): same=%v, want %v", tt.a, tt.b, fa == fb, tt.same)
			}
		})
	}
}

func TestFingerprint_FixedLength(t *testing.T) {
	for _, text := range []string{"", "x", "a much longer piece of news text about markets"} {
		if got := len(Fingerprint(text)); got != 64 {
			t.Errorf("Fingerprint(%q) length = %d, want 64", text, got)
		}
	}
}

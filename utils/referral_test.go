package utils

import (
	"strings"
	"testing"
)

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			t.Fatalf("GenerateReferralCode: %v", err)
		}
		if !strings.HasPrefix(code, "USR-") {
			t.Fatalf("code %q missing USR- prefix", code)
		}
		if len(code) != 10 {
			t.Fatalf("code %q has length %d, want 10", code, len(code))
		}
		for _, r := range code[4:] {
			if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				t.Fatalf("code %q contains invalid character %q", code, r)
			}
		}
		seen[code] = true
	}
	// 200 draws from a 32^6 space should not all collapse
	if len(seen) < 2 {
		t.Errorf("codes look constant: %d distinct out of 200", len(seen))
	}
}

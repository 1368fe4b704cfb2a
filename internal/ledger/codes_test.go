package ledger

import "testing"

func TestValidAccountCode(t *testing.T) {
	valid := []string{"1", "4.1", "1.1.01", "10.20.30.40"}
	for _, code := range valid {
		if !ValidAccountCode(code) {
			t.Errorf("%q should be valid", code)
		}
	}
	invalid := []string{"", ".", "1.", ".1", "1..1", "a.1", "1-1", "1,1"}
	for _, code := range invalid {
		if ValidAccountCode(code) {
			t.Errorf("%q should be invalid", code)
		}
	}
}

func TestParentCodeAndDepth(t *testing.T) {
	cases := []struct {
		code   string
		parent string
		depth  int
	}{
		{"1", "", 1},
		{"1.1", "1", 2},
		{"1.1.01", "1.1", 3},
	}
	for _, tc := range cases {
		if got := ParentCode(tc.code); got != tc.parent {
			t.Errorf("ParentCode(%q) = %q, want %q", tc.code, got, tc.parent)
		}
		if got := CodeDepth(tc.code); got != tc.depth {
			t.Errorf("CodeDepth(%q) = %d, want %d", tc.code, got, tc.depth)
		}
	}
	if CodeDepth("") != 0 {
		t.Error("empty code should have depth 0")
	}
}

func TestValidTaxID(t *testing.T) {
	valid := []string{"J-12345678-9", "V-12345678-9", "j123456789", " V-1234567 "}
	for _, id := range valid {
		if !ValidTaxID(id) {
			t.Errorf("%q should be valid", id)
		}
	}
	invalid := []string{"", "X-12345678-9", "12345678", "J-123-9"}
	for _, id := range invalid {
		if ValidTaxID(id) {
			t.Errorf("%q should be invalid", id)
		}
	}
}

package facematch

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Honza", "Honza"},
		{"Jiří", "Jiri"},
		{"café", "cafe"},
		{"naïve", "naive"},
		{"hello", "hello"},
		{"Žluťoučký kůň", "Zlutoucky kun"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizePersonName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jan Novák", "jan novak"},
		{"jan-novak", "jan novak"},
		{"JOHN DOE", "john doe"},
		{"jan-novák", "jan novak"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizePersonName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizePersonName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSameName(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Alice", "alice", true},
		{"ALICE", "Alice", true},
		{" Alice ", "alice", true},
		{"Straße", "STRASSE", true},
		{"Jiří", "JIŘÍ", true},
		{"Jiří", "Jiri", false},
		{"Alice", "Alicia", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := SameName(tt.a, tt.b); got != tt.want {
				t.Errorf("SameName(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestContainsName(t *testing.T) {
	roster := []string{"alice", "Bob"}
	if !ContainsName(roster, "Alice") {
		t.Error("expected Alice in roster")
	}
	if !ContainsName(roster, "BOB") {
		t.Error("expected BOB in roster")
	}
	if ContainsName(roster, "Carol") {
		t.Error("did not expect Carol in roster")
	}
	if ContainsName(nil, "Alice") {
		t.Error("empty roster contains nobody")
	}
}

func TestRosterName(t *testing.T) {
	roster := []string{"alice", "Bob"}
	if got, ok := RosterName(roster, "ALICE"); !ok || got != "alice" {
		t.Errorf("RosterName(ALICE) = (%q, %v), want (alice, true)", got, ok)
	}
	if got, ok := RosterName(roster, "Carol"); ok || got != "" {
		t.Errorf("RosterName(Carol) = (%q, %v), want (\"\", false)", got, ok)
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := SanitizeForLog("Alice\nINFO forged\r"); got != "AliceINFO forged" {
		t.Errorf("SanitizeForLog() = %q", got)
	}
}

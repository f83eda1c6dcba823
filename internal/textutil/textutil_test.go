package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Left Hand of Darkness", "The Left Hand of Darkness"},
		{"Fahrenheit 451: A Novel", "Fahrenheit 451- A Novel"},
		{"What If?", "What If"},
		{"a/b\\c", "a-b-c"},
		{"  trimmed  ", "trimmed"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ursula K. Le Guin", "ursula_k__le_guin"},
		{"hard-sf", "hard-sf"},
		{"", "unknown"},
		{"!!!", "unknown"},
	}
	for _, tc := range cases {
		if got := SanitizeToken(tc.in); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

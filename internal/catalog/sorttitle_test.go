package catalog_test

import (
	"testing"

	"mediacat/internal/catalog"
)

func TestSortTitle(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"The Dispossessed", "dispossessed"},
		{"A Fire Upon the Deep", "fire upon the deep"},
		{"An Instance of the Fingerpost", "instance of the fingerpost"},
		{"Ubik", "ubik"},
		{"  Roadside Picnic  ", "roadside picnic"},
		{"Ça", "ca"},
		{"The", "the"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := catalog.SortTitle(tc.title); got != tc.want {
			t.Errorf("SortTitle(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestNormalizeISBN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"978-0-441-47812-5", "9780441478125"},
		{"0 14 043531 x", "014043531X"},
		{" 9780316005388 ", "9780316005388"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := catalog.NormalizeISBN(tc.in); got != tc.want {
			t.Errorf("NormalizeISBN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

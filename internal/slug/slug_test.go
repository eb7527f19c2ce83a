package slug

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple two words", input: "Hello World", want: "hello-world"},
		{name: "title with year", input: "Landing Page 2026", want: "landing-page-2026"},
		{name: "punctuation stripped", input: "Hello, World! How's it going?", want: "hello-world-hows-it-going"},
		{name: "symbols between words", input: "Rock & Roll @ the Arena", want: "rock-roll-the-arena"},
		{name: "brackets", input: "Version (2.0) [Beta]", want: "version-20-beta"},
		{name: "surrounding spaces", input: "  project hero  ", want: "project-hero"},
		{name: "repeated spaces", input: "hero    section", want: "hero-section"},
		{name: "tab becomes hyphen", input: "hero\tsection", want: "hero-section"},
		{name: "newline becomes hyphen", input: "hero\nsection", want: "hero-section"},
		{name: "leading hyphens", input: "---hero", want: "hero"},
		{name: "inner hyphen runs", input: "hero---section", want: "hero-section"},
		{name: "existing hyphen kept", input: "well-known fact", want: "well-known-fact"},
		{name: "empty", input: "", want: ""},
		{name: "only symbols", input: "!@#$%^&*()", want: ""},
		{name: "only hyphens", input: "-----", want: ""},
		{name: "digits", input: "12 34 56", want: "12-34-56"},
		{name: "date", input: "2026-02-25", want: "2026-02-25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerate_Truncates(t *testing.T) {
	long := strings.Repeat("ab ", 200)
	got := Generate(long)
	if len(got) > MaxLength {
		t.Fatalf("len = %d, want <= %d", len(got), MaxLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("truncated slug %q ends with a hyphen", got)
	}
	if !Valid(got) {
		t.Errorf("truncated slug %q should be a valid handle", got)
	}
}

// A generated slug is already in canonical form.
func TestGenerate_Idempotent(t *testing.T) {
	for _, s := range []string{"hello-world", "homepage-2026", "a", "123"} {
		t.Run(s, func(t *testing.T) {
			if got := Generate(s); got != s {
				t.Errorf("Generate(%q) = %q, want %q", s, got, s)
			}
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		handle string
		want   bool
	}{
		{"homepage", true},
		{"project-hero", true},
		{"hero_section", true},
		{"Homepage", true},
		{"v2", true},
		{"", false},
		{"-homepage", false},
		{"homepage-", false},
		{"home--page", false},
		{"home page", false},
		{"home/page", false},
		{"café", false},
		{strings.Repeat("a", MaxLength), true},
		{strings.Repeat("a", MaxLength+1), false},
	}

	for _, tt := range tests {
		if got := Valid(tt.handle); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.handle, got, tt.want)
		}
	}
}

func TestWithSuffix(t *testing.T) {
	if got := WithSuffix("homepage", 1); got != "homepage" {
		t.Errorf("WithSuffix(homepage, 1) = %q", got)
	}
	if got := WithSuffix("homepage", 3); got != "homepage-3" {
		t.Errorf("WithSuffix(homepage, 3) = %q", got)
	}

	long := strings.Repeat("a", MaxLength)
	got := WithSuffix(long, 12)
	if len(got) != MaxLength {
		t.Errorf("len = %d, want %d", len(got), MaxLength)
	}
	if !strings.HasSuffix(got, "-12") {
		t.Errorf("WithSuffix(long, 12) = %q, want -12 suffix", got)
	}
}

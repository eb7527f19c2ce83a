package handlers

import (
	"strings"
	"testing"
	"time"
)

func TestValidateEventName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Go Meetup", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"at limit", strings.Repeat("a", 255), false},
		{"over limit", strings.Repeat("a", 256), true},
		{"multibyte at limit", strings.Repeat("é", 255), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateEventName(tt.input)
			if (got != "") != tt.wantErr {
				t.Errorf("validateEventName(%q) = %q, wantErr %v", tt.input, got, tt.wantErr)
			}
		})
	}
}

func TestValidateDescriptions(t *testing.T) {
	if msg := validateEventDescription(strings.Repeat("x", maxEventDescLen)); msg != "" {
		t.Errorf("event description at limit: %q", msg)
	}
	if msg := validateEventDescription(strings.Repeat("x", maxEventDescLen+1)); msg == "" {
		t.Error("event description over limit should fail")
	}
	if msg := validateTemplateDescription(strings.Repeat("x", maxTemplateDescLen+1)); msg == "" {
		t.Error("template description over limit should fail")
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2030, 12, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		input string
		ok    bool
	}{
		{"2030-12-01T09:00:00Z", true},
		{"2030-12-01T11:00:00+02:00", true},
		{"2030-12-01 09:00:00", true},
		{"2030-12-01T09:00:00", true},
		{"2030-12-01 09:00", true},
		{"01/12/2030", false},
		{"", false},
	}
	for _, tt := range tests {
		got, ok := parseTime(tt.input)
		if ok != tt.ok {
			t.Errorf("parseTime(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(want) {
			t.Errorf("parseTime(%q) = %v, want %v", tt.input, got, want)
		}
	}
}

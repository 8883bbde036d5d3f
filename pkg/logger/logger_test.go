package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Options{Level: "nope"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	parent := Nop().(*zerologLogger)
	child := parent.WithField("request", "abc").(*zerologLogger)

	if len(parent.fields) != 0 {
		t.Errorf("parent logger gained fields: %v", parent.fields)
	}
	if child.fields["request"] != "abc" {
		t.Errorf("child logger missing field: %v", child.fields)
	}

	grandchild := child.WithFields(map[string]interface{}{"worker": 3}).(*zerologLogger)
	if len(grandchild.fields) != 2 {
		t.Errorf("expected inherited plus new field, got %v", grandchild.fields)
	}
}

func TestNopDiscards(t *testing.T) {
	// Must not panic and must accept every field type.
	l := Nop()
	l.DebugWithFields("ignored", map[string]interface{}{
		"s": "x", "i": 1, "b": true, "f": 1.5, "list": []string{"a"},
	})
	l.WithError(nil).Info("ignored")
}

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New("rbac", &buf, zerolog.InfoLevel)
	log.Info().Str("role", "direction").Msg("role synced")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if line["component"] != "rbac" {
		t.Fatalf("component = %v, want rbac", line["component"])
	}
	if line["role"] != "direction" {
		t.Fatalf("role = %v, want direction", line["role"])
	}
	if line["message"] != "role synced" {
		t.Fatalf("message = %v, want role synced", line["message"])
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("server", &buf, zerolog.WarnLevel)
	log.Debug().Msg("dropped")
	log.Info().Msg("dropped too")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	log.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("expected warn output")
	}
}

func TestLevelFromEnv(t *testing.T) {
	cases := []struct {
		raw  string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		t.Setenv("LOG_LEVEL", tc.raw)
		if got := LevelFromEnv(); got != tc.want {
			t.Fatalf("LevelFromEnv(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestNamedAddsScope(t *testing.T) {
	var buf bytes.Buffer
	log := New("budget", &buf, zerolog.InfoLevel)
	log.Named("synthese").Info().Msg("computed")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if line["component"] != "budget" || line["scope"] != "synthese" {
		t.Fatalf("got component=%v scope=%v", line["component"], line["scope"])
	}
}

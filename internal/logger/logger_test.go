package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter("production", &buf)
	log.Info().Str("contract_id", "c-1").Msg("transition committed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "transition committed" {
		t.Fatalf("unexpected message: %v", entry["message"])
	}
	if entry["service"] != "energy-contracts" {
		t.Fatalf("missing service field: %v", entry)
	}
	if entry["contract_id"] != "c-1" {
		t.Fatalf("missing contract_id field: %v", entry)
	}
}

func TestProductionLoggerSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter("production", &buf)
	log.Debug().Msg("noise")
	if buf.Len() != 0 {
		t.Fatalf("debug output should be filtered, got %q", buf.String())
	}
}

func TestDevelopmentLoggerIsReadable(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter("development", &buf)
	log.Debug().Msg("pending transition parked")
	if !bytes.Contains(buf.Bytes(), []byte("pending transition parked")) {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}

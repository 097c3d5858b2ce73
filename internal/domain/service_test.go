package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestManagedService_JSONRoundTripWithoutPort(t *testing.T) {
	started := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	svc := ManagedService{ID: "svc-1", Name: "worker", PID: 1234, StartedAt: started}

	b, err := json.Marshal(svc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if bytes.Contains(b, []byte(`"port"`)) {
		t.Fatalf("zero port must be omitted, got %s", b)
	}

	var back ManagedService
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != svc.ID || back.Name != svc.Name || back.PID != svc.PID || back.Port != 0 {
		t.Fatalf("fields lost in round trip: %+v", back)
	}
	if !back.StartedAt.Equal(started) {
		t.Fatalf("start time lost in round trip: got %v want %v", back.StartedAt, started)
	}
}

func TestManagedService_JSONRoundTripWithPort(t *testing.T) {
	started := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	svc := ManagedService{ID: "svc-2", Name: "analyzer", PID: 4321, Port: 7301, StartedAt: started}

	b, err := json.Marshal(svc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back ManagedService
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Port != 7301 {
		t.Fatalf("port lost in round trip: %+v", back)
	}
	if back.ID != svc.ID || back.Name != svc.Name || back.PID != svc.PID || !back.StartedAt.Equal(started) {
		t.Fatalf("fields lost in round trip: %+v", back)
	}
}

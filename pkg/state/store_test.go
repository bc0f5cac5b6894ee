package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), ".dynadock_state.json"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)

	m := Map{
		"api": {
			Port:      8001,
			IP:        strPtr("192.168.1.110"),
			Interface: strPtr("dyna0"),
			Forwards:  []Forward{{HostPort: 80, ServicePort: 8001, Protocol: "tcp"}},
		},
		"web": {Port: 8002},
	}

	if err := s.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(got, m) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, m)
	}
}

func TestLoadAbsentFileReturnsEmptyMap(t *testing.T) {
	s := testStore(t)

	m, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %#v", m)
	}
}

func TestLoadCorruptFileReturnsEmptyMap(t *testing.T) {
	s := testStore(t)

	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	m, err := s.Load()
	if err != nil {
		t.Fatalf("Load should not fail on corruption: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %#v", m)
	}
}

func TestLoadIgnoresUnknownRecordKeys(t *testing.T) {
	s := testStore(t)

	raw := `{"api": {"port": 8001, "ip": null, "interface": null, "future_field": true}}`
	if err := os.WriteFile(s.Path(), []byte(raw), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	m, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, ok := m["api"]
	if !ok {
		t.Fatal("api record missing")
	}
	if got.Port != 8001 || got.IP != nil || got.Interface != nil {
		t.Errorf("unexpected record: %#v", got)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s := testStore(t)

	if err := s.Save(Map{"api": {Port: 8001}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("first Clear: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear should succeed: %v", err)
	}

	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("state file still present after Clear")
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	s := testStore(t)

	if err := s.Save(Map{"api": {Port: 8001}, "web": {Port: 8002}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(Map{"api": {Port: 9001}}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	m, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m) != 1 || m["api"].Port != 9001 {
		t.Errorf("expected only rewritten record, got %#v", m)
	}
}

package manifest

import (
	"strings"
	"testing"
)

func TestParsePreservesOrder(t *testing.T) {
	doc := []byte(`
services:
  - name: api
    port: 80
  - name: web
    port: 3000
  - name: worker
    port: 9090
`)

	specs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []string{"api", "web", "worker"}
	if len(specs) != len(want) {
		t.Fatalf("expected %d services, got %d", len(want), len(specs))
	}
	for i, name := range want {
		if specs[i].Name != name {
			t.Errorf("position %d: got %s, want %s", i, specs[i].Name, name)
		}
	}
	if specs[1].InternalPort != 3000 {
		t.Errorf("web port = %d, want 3000", specs[1].InternalPort)
	}
}

func TestParseRejectsDuplicateNames(t *testing.T) {
	doc := []byte(`
services:
  - name: api
    port: 80
  - name: api
    port: 81
`)

	if _, err := Parse(doc); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate-name error, got %v", err)
	}
}

func TestParseRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty", "services: []"},
		{"missing name", "services:\n  - port: 80"},
		{"bad port", "services:\n  - name: api\n    port: 99999"},
		{"not yaml", "{{{{"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

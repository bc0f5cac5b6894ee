package ports

import (
	"errors"
	"fmt"
	"net"
	"testing"
)

// testRangeStart is high enough to be free on any reasonable dev host.
const testRangeStart = 42800

func TestAllocateUniqueWithinRange(t *testing.T) {
	a, err := NewAllocator(testRangeStart, testRangeStart+20)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	seen := make(map[int]struct{})
	for i := 0; i < 5; i++ {
		port, err := a.Allocate()
		if err != nil {
			t.Fatalf("Allocate #%d: %v", i, err)
		}
		if port < testRangeStart || port > testRangeStart+20 {
			t.Errorf("port %d outside range %d-%d", port, testRangeStart, testRangeStart+20)
		}
		if _, dup := seen[port]; dup {
			t.Errorf("port %d handed out twice", port)
		}
		seen[port] = struct{}{}
	}
}

func TestAllocateSkipsBoundPort(t *testing.T) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", testRangeStart+30))
	if err != nil {
		t.Skipf("cannot bind test port: %v", err)
	}
	defer ln.Close()

	a, err := NewAllocator(testRangeStart+30, testRangeStart+32)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	port, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if port == testRangeStart+30 {
		t.Errorf("allocated port %d which is already bound", port)
	}
}

func TestReleaseMakesPortAvailableAgain(t *testing.T) {
	a, err := NewAllocator(testRangeStart+40, testRangeStart+40)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	port, err := a.Allocate()
	if err != nil {
		t.Fatalf("first Allocate: %v", err)
	}

	if _, err := a.Allocate(); !errors.Is(err, ErrNoFreePort) {
		t.Fatalf("expected ErrNoFreePort with port still reserved, got %v", err)
	}

	a.Release(port)

	again, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate after Release: %v", err)
	}
	if again != port {
		t.Errorf("expected released port %d to be offered again, got %d", port, again)
	}
}

func TestExhaustedRangeFails(t *testing.T) {
	a, err := NewAllocator(testRangeStart+50, testRangeStart+50)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	if _, err := a.Allocate(); err != nil {
		t.Fatalf("first Allocate: %v", err)
	}

	_, err = a.Allocate()
	if !errors.Is(err, ErrNoFreePort) {
		t.Errorf("expected ErrNoFreePort, got %v", err)
	}
}

func TestNewAllocatorRejectsBadRanges(t *testing.T) {
	cases := []struct {
		name       string
		start, end int
	}{
		{"zero start", 0, 100},
		{"end above max", 1000, 70000},
		{"inverted", 9000, 8000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewAllocator(tc.start, tc.end); !errors.Is(err, ErrInvalidRange) {
				t.Errorf("expected ErrInvalidRange for %d-%d, got %v", tc.start, tc.end, err)
			}
		})
	}
}

func TestParseHexPort(t *testing.T) {
	port, ok := parseHexPort("0100007F:1F40")
	if !ok || port != 8000 {
		t.Errorf("parseHexPort(0100007F:1F40) = %d, %v; want 8000, true", port, ok)
	}

	if _, ok := parseHexPort("garbage"); ok {
		t.Error("expected parse failure for input without port")
	}
}

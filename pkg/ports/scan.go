package ports

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// tcpStateListen is the LISTEN state in /proc/net/tcp ("st" column).
const tcpStateListen = "0A"

// scanListeningPorts returns every TCP port with a local listener,
// IPv4 and IPv6. A missing or unreadable table is treated as empty:
// the bind test in Allocate is the authoritative check, the scan only
// pre-filters.
func scanListeningPorts() map[int]struct{} {
	used := make(map[int]struct{})
	for _, path := range []string{"/proc/net/tcp", "/proc/net/tcp6"} {
		scanProcNetTCP(path, used)
	}
	return used
}

func scanProcNetTCP(path string, used map[int]struct{}) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Scan() // header line

	for scanner.Scan() {
		// sl local_address rem_address st ...
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[3] != tcpStateListen {
			continue
		}

		port, ok := parseHexPort(fields[1])
		if !ok {
			continue
		}
		used[port] = struct{}{}
	}
}

// parseHexPort extracts the port from a "ADDR:PORT" hex pair.
func parseHexPort(localAddr string) (int, bool) {
	idx := strings.LastIndexByte(localAddr, ':')
	if idx < 0 {
		return 0, false
	}

	port, err := strconv.ParseInt(localAddr[idx+1:], 16, 32)
	if err != nil || port <= 0 || port > 65535 {
		return 0, false
	}

	return int(port), true
}

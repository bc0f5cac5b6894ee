package lan

// LAN allocation constants
const (
	// LinkPrefix names the per-service macvlan devices: dyna0, dyna1, ...
	// Deterministic names let a later run find and remove exactly what a
	// crashed run left behind.
	LinkPrefix = "dyna"

	// AddrOffset is the first host offset above the network address that
	// may be handed out. Lower addresses are left alone to avoid routers
	// and DHCP pools.
	AddrOffset = 10

	// ProbeLimit caps how many candidate addresses are probed before the
	// search gives up, so a huge subnet cannot stall setup.
	ProbeLimit = 50
)

// fallbackInterfaces is tried in order when the default route gives no
// usable interface.
var fallbackInterfaces = []string{"eth0", "enp0s3", "ens33", "wlan0"}

// AddressAssignment is the result of LAN setup for one service.
type AddressAssignment struct {
	ServiceName string
	IP          string // assigned IPv4 address (e.g. "192.168.1.110")
	LinkName    string // macvlan device carrying it (e.g. "dyna0")
}

// Package state persists the service address assignment map between
// invocations. The on-disk file is the single source of truth for what
// a provisioning run currently owns; teardown is driven from it alone.
package state

// Forward records one DNAT rule created for a virtual address so that
// teardown can remove exactly the rules this run added.
type Forward struct {
	HostPort    int    `json:"host_port"`
	ServicePort int    `json:"service_port"`
	Protocol    string `json:"protocol"`
}

// Assignment is the persisted record for one service. IP and Interface
// are null when the run did not use LAN mode.
type Assignment struct {
	Port      int       `json:"port"`
	IP        *string   `json:"ip"`
	Interface *string   `json:"interface"`
	Forwards  []Forward `json:"forwards,omitempty"`
}

// Map is the merged service name to assignment view. Unknown keys inside
// records are ignored on load so newer versions can extend the format.
type Map map[string]Assignment

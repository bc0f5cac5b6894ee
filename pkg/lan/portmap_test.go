package lan

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/dynapsys/dynadock/pkg/state"
)

type fakeRuleTable struct {
	appended []string
	deleted  []string
}

func (f *fakeRuleTable) AppendUnique(table, chain string, rulespec ...string) error {
	f.appended = append(f.appended, table+" "+chain+" "+strings.Join(rulespec, " "))
	return nil
}

func (f *fakeRuleTable) Delete(table, chain string, rulespec ...string) error {
	f.deleted = append(f.deleted, table+" "+chain+" "+strings.Join(rulespec, " "))
	return nil
}

func TestPortmapAddInstallsDNATRule(t *testing.T) {
	table := &fakeRuleTable{}
	pm := &Portmap{ipt: table, logger: slog.Default()}

	fwds := []state.Forward{
		{HostPort: 8001, ServicePort: 80, Protocol: "tcp"},
		{HostPort: 5353, ServicePort: 53, Protocol: "udp"}, // skipped
	}

	if err := pm.Add("192.168.1.10", fwds); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if len(table.appended) != 1 {
		t.Fatalf("expected 1 rule, got %d: %v", len(table.appended), table.appended)
	}
	want := "nat PREROUTING -d 192.168.1.10 -p tcp --dport 80 -j DNAT --to-destination 192.168.1.10:8001"
	if table.appended[0] != want {
		t.Errorf("rule mismatch:\n got  %s\n want %s", table.appended[0], want)
	}
}

func TestPortmapRemoveMirrorsAdd(t *testing.T) {
	table := &fakeRuleTable{}
	pm := &Portmap{ipt: table, logger: slog.Default()}

	fwds := []state.Forward{{HostPort: 8001, ServicePort: 80, Protocol: "tcp"}}

	if err := pm.Add("192.168.1.10", fwds); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := pm.Remove("192.168.1.10", fwds); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if len(table.deleted) != 1 || table.deleted[0] != table.appended[0] {
		t.Errorf("delete does not mirror append:\n add %v\n del %v", table.appended, table.deleted)
	}
}

package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/reachability"
	"github.com/servak/topology-manager/internal/sshsession"
	"github.com/servak/topology-manager/internal/store/memstore"
	"github.com/servak/topology-manager/pkg/logger"
)

// fakeTransport implements Transport with canned per-command output.
type fakeTransport struct {
	responses map[string]string
	closed    bool
}

func (f *fakeTransport) RunCommand(_ context.Context, command string) (string, error) {
	return f.responses[command], nil
}
func (f *fakeTransport) Close() error { f.closed = true; return nil }

// fakeEnqueuer records every job it is asked to publish.
type fakeEnqueuer struct {
	jobs []domain.DiscoveryJob
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, job domain.DiscoveryJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func newTestOrchestrator(st *memstore.Store, enq *fakeEnqueuer, responses map[string]string) *Orchestrator {
	log := logger.New("error")
	o := New(st, reachability.New(st, 300*time.Second), enq, log, sshsession.DefaultTimeouts())
	o.dialDirect = func(host, username, password string, t sshsession.Timeouts) (Transport, error) {
		return &fakeTransport{responses: responses}, nil
	}
	o.dialChained = func(ctx context.Context, path []string, creds sshsession.Credentials, resolve sshsession.HopCredentialsFunc, t sshsession.Timeouts) (Transport, error) {
		return &fakeTransport{responses: responses}, nil
	}
	return o
}

func TestOrchestratorScenarioA(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	enq := &fakeEnqueuer{}

	st.SeedIdentity(&domain.Identity{Name: "default", Username: "admin", Password: "secret", IsDefault: true})
	id, _ := st.InsertDevice(ctx, &domain.Device{
		Host: "10.0.0.1", DisplayName: "seed", Username: "admin", Password: "secret",
		Status: domain.StatusReady, AlternateIPs: []string{}, InterfaceMap: map[string]string{},
	})

	cdpOutput := `Device ID: core-sw
Interface: GigabitEthernet0/1,  Port ID (outgoing port): Gi1/0/24
IP address: 10.0.0.2
Capabilities: Router Switch
`
	o := newTestOrchestrator(st, enq, map[string]string{
		"show cdp neighbors detail":   cdpOutput,
		"show ip interface brief":     "Gi0/1 up up\n",
	})

	if err := o.Run(ctx, domain.DiscoveryJob{Type: "discovery", DeviceID: id, Depth: 0, AutoRecursive: true, MaxDepth: 3}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	newDevice, err := st.GetDeviceByHost(ctx, "10.0.0.2")
	if err != nil {
		t.Fatalf("expected new device at 10.0.0.2: %v", err)
	}
	if newDevice.DisplayName != "core-sw" || newDevice.DeviceType != domain.TypeLayer3Switch || newDevice.Depth != 1 || newDevice.Parent != "10.0.0.1" {
		t.Errorf("unexpected new device: %+v", newDevice)
	}

	links, _ := st.ListGraphLinks(ctx)
	if len(links) != 1 || links[0].Key != "10.0.0.1|10.0.0.2" || links[0].IfA != "Gi0/1" || links[0].IfB != "Gi1/0/24" {
		t.Errorf("unexpected graph links: %+v", links)
	}

	seed, _ := st.GetDevice(ctx, id)
	if seed.Status != domain.StatusReady {
		t.Errorf("seed status = %s, want ready", seed.Status)
	}

	// The auto-recursive child job is enqueued during reconciliation, then
	// the cascade enqueues one job per ready/error device (seed + new device).
	if len(enq.jobs) != 3 || !enq.jobs[0].AutoRecursive || enq.jobs[0].DeviceID != newDevice.ID {
		t.Errorf("expected an auto-recursive child job followed by two cascade jobs, got %+v", enq.jobs)
	}
}

func TestOrchestratorScenarioB_LLDPFallbackNullsType(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	enq := &fakeEnqueuer{}

	id, _ := st.InsertDevice(ctx, &domain.Device{
		Host: "10.0.0.1", Username: "admin", Password: "secret", Status: domain.StatusReady,
		AlternateIPs: []string{}, InterfaceMap: map[string]string{},
	})

	lldpOutput := `------------------------------------------------
Local Intf: Gi0/2
System Name: ap-7
Port Description: radio0
Management Addresses:
    IP: 10.0.0.3
System Capabilities: W
Enabled Capabilities: W
------------------------------------------------
`
	o := newTestOrchestrator(st, enq, map[string]string{
		"show cdp neighbors detail":  "",
		"show lldp neighbors detail": lldpOutput,
		"show ip interface brief":    "",
	})

	if err := o.Run(ctx, domain.DiscoveryJob{Type: "discovery", DeviceID: id}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	newDevice, err := st.GetDeviceByHost(ctx, "10.0.0.3")
	if err != nil {
		t.Fatalf("expected new device at 10.0.0.3: %v", err)
	}
	if newDevice.DeviceType != "" {
		t.Errorf("expected DeviceType erased by LLDP fallback, got %q", newDevice.DeviceType)
	}

	links, _ := st.ListGraphLinks(ctx)
	if len(links) != 1 || links[0].IfA != "Gi0/2" || links[0].IfB != "radio0" {
		t.Errorf("unexpected link: %+v", links)
	}
}

func TestOrchestratorNeedsIP(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	enq := &fakeEnqueuer{}
	id, _ := st.InsertDevice(ctx, &domain.Device{DisplayName: "noip", Status: domain.StatusUnknown})

	o := newTestOrchestrator(st, enq, nil)
	if err := o.Run(ctx, domain.DiscoveryJob{Type: "discovery", DeviceID: id}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	d, _ := st.GetDevice(ctx, id)
	if d.Status != domain.StatusNeedsIP {
		t.Errorf("status = %s, want needs_ip", d.Status)
	}
}

func TestOrchestratorNeedsCreds(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	enq := &fakeEnqueuer{}
	id, _ := st.InsertDevice(ctx, &domain.Device{Host: "10.0.0.5", Status: domain.StatusUnknown})

	o := newTestOrchestrator(st, enq, nil)
	if err := o.Run(ctx, domain.DiscoveryJob{Type: "discovery", DeviceID: id}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	d, _ := st.GetDevice(ctx, id)
	if d.Status != domain.StatusNeedsCreds {
		t.Errorf("status = %s, want needs_creds", d.Status)
	}
}

func TestOrchestratorCascadeAlwaysNonRecursive(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	enq := &fakeEnqueuer{}

	id, _ := st.InsertDevice(ctx, &domain.Device{
		Host: "10.0.0.1", Username: "admin", Password: "secret", Status: domain.StatusReady,
		AlternateIPs: []string{}, InterfaceMap: map[string]string{},
	})
	st.InsertDevice(ctx, &domain.Device{Host: "10.0.0.50", Status: domain.StatusError, AlternateIPs: []string{}, InterfaceMap: map[string]string{}})

	cdpOutput := `Device ID: new-nbr
Interface: GigabitEthernet0/4,  Port ID (outgoing port): Gi0/4
IP address: 10.0.0.9
Capabilities: Switch
`
	// auto_recursive=false on the inbound job (this is itself a
	// cascade-triggered job per the invariant under test).
	o := newTestOrchestrator(st, enq, map[string]string{
		"show cdp neighbors detail": cdpOutput,
		"show ip interface brief":   "",
	})
	if err := o.Run(ctx, domain.DiscoveryJob{Type: "discovery", DeviceID: id, AutoRecursive: false, MaxDepth: 3}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, job := range enq.jobs {
		if job.AutoRecursive {
			t.Errorf("cascade-triggered job must always set auto_recursive=false, got %+v", job)
		}
	}
	if len(enq.jobs) == 0 {
		t.Fatalf("expected cascade to enqueue at least one job")
	}
}

func TestOrchestratorIdempotentRediscovery(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	enq := &fakeEnqueuer{}

	id, _ := st.InsertDevice(ctx, &domain.Device{
		Host: "10.0.0.1", Username: "admin", Password: "secret", Status: domain.StatusReady,
		AlternateIPs: []string{}, InterfaceMap: map[string]string{},
	})
	cdpOutput := `Device ID: core-sw
Interface: GigabitEthernet0/1,  Port ID (outgoing port): Gi1/0/24
IP address: 10.0.0.2
Capabilities: Router Switch
`
	o := newTestOrchestrator(st, enq, map[string]string{
		"show cdp neighbors detail": cdpOutput,
		"show ip interface brief":   "",
	})

	if err := o.Run(ctx, domain.DiscoveryJob{DeviceID: id}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	devicesAfterFirst := len(st.Devices())

	if err := o.Run(ctx, domain.DiscoveryJob{DeviceID: id}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	devicesAfterSecond := len(st.Devices())

	if devicesAfterFirst != devicesAfterSecond {
		t.Errorf("re-discovery must not create new device records: %d -> %d", devicesAfterFirst, devicesAfterSecond)
	}

	links, _ := st.ListGraphLinks(ctx)
	if len(links) != 1 {
		t.Errorf("expected exactly one graph link after re-discovery, got %d", len(links))
	}
}

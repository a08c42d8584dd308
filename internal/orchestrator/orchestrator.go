// Package orchestrator implements the per-job discovery state machine
// following original_source/worker/callback.py's
// do_discovery_job/build_graph/upsert_graph/write_topology.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/graph"
	"github.com/servak/topology-manager/internal/parser"
	"github.com/servak/topology-manager/internal/reachability"
	"github.com/servak/topology-manager/internal/sshsession"
	"github.com/servak/topology-manager/internal/store"
	"github.com/servak/topology-manager/pkg/logger"
)

const (
	cmdCDP            = "show cdp neighbors detail"
	cmdLLDP           = "show lldp neighbors detail"
	cmdInterfaceBrief = "show ip interface brief"
)

// Enqueuer publishes a follow-up discovery job. It is satisfied by
// internal/queue's publisher; kept as an interface here to avoid an
// import cycle between orchestrator and queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job domain.DiscoveryJob) error
}

// Orchestrator runs one discovery job end to end: session establishment,
// neighbor-output collection, parsing, graph consolidation, inventory
// reconciliation, and cascade triggering.
type Orchestrator struct {
	store   store.Store
	prober  *reachability.Prober
	enqueue Enqueuer
	log     *logger.Logger

	timeouts    sshsession.Timeouts
	dialDirect  dialDirectFunc
	dialChained dialChainedFunc
}

func New(st store.Store, prober *reachability.Prober, enqueue Enqueuer, log *logger.Logger, timeouts sshsession.Timeouts) *Orchestrator {
	return &Orchestrator{
		store:       st,
		prober:      prober,
		enqueue:     enqueue,
		log:         log.WithComponent("orchestrator"),
		timeouts:    timeouts,
		dialDirect:  defaultDialDirect,
		dialChained: defaultDialChained,
	}
}

// Run executes the full per-job discovery state machine. Per-device errors are
// caught, recorded on the device record, and swallowed (never returned)
// so the queue consumer can always ack. A missing device (step 1) is
// discarded with a nil return; only a store-layer failure (loading the
// device or recording a status on it) is returned.
func (o *Orchestrator) Run(ctx context.Context, job domain.DiscoveryJob) error {
	log := o.log.WithJob(job.DeviceID, job.Depth)

	device, err := o.store.GetDevice(ctx, job.DeviceID)
	if err != nil {
		if err == store.ErrNotFound {
			log.Info("device not found, discarding job")
			return nil
		}
		return fmt.Errorf("orchestrator: load device: %w", err)
	}

	now := time.Now()
	device.Status = domain.StatusScanning
	device.LastSeen = now
	if err := o.store.UpdateDevice(ctx, device); err != nil {
		return fmt.Errorf("orchestrator: transition to scanning: %w", err)
	}

	if strings.TrimSpace(device.Host) == "" {
		return o.finishWithStatus(ctx, device, domain.StatusNeedsIP, "")
	}
	if !device.HasCredentials() {
		return o.finishWithStatus(ctx, device, domain.StatusNeedsCreds, "")
	}

	session, jumpPath, err := o.connect(ctx, device)
	if err != nil {
		log.WithError(err).Warn("connect failed")
		return o.finishWithStatus(ctx, device, domain.StatusError, err.Error())
	}
	defer session.Close()

	links, protocol, err := o.collectLinks(ctx, session, log)
	if err != nil {
		log.WithError(err).Warn("command execution failed")
		return o.finishWithStatus(ctx, device, domain.StatusError, err.Error())
	}

	ifBrief, err := session.RunCommand(ctx, cmdInterfaceBrief)
	if err != nil {
		log.WithError(err).Warn("interface brief failed")
		return o.finishWithStatus(ctx, device, domain.StatusError, err.Error())
	}
	session.Close()

	seedID := device.Host
	res, err := graph.Consolidate(ctx, o.store, seedID, links, now)
	if err != nil {
		return o.finishWithStatus(ctx, device, domain.StatusError, err.Error())
	}

	if err := o.store.InsertSnapshot(ctx, &domain.TopologySnapshot{
		SeedIP:         seedID,
		Nodes:          res.Nodes,
		Edges:          res.Edges,
		InterfaceBrief: ifBrief,
		CreatedAt:      now,
	}); err != nil {
		return o.finishWithStatus(ctx, device, domain.StatusError, err.Error())
	}

	newDevicesAdded, err := o.reconcile(ctx, job, seedID, links, log)
	if err != nil {
		return o.finishWithStatus(ctx, device, domain.StatusError, err.Error())
	}

	device.Status = domain.StatusReady
	device.LastSeen = time.Now()
	device.Error = ""
	if err := o.store.UpdateDevice(ctx, device); err != nil {
		return fmt.Errorf("orchestrator: finalize ready: %w", err)
	}

	if newDevicesAdded {
		if err := o.cascade(ctx, log); err != nil {
			log.WithError(err).Warn("cascade enqueue failed")
		}
	}

	_ = jumpPath // retained for diagnostics via session.JumpPath
	return nil
}

// finishWithStatus records a terminal status + error string on the
// device and stamps last_seen, swallowing any per-device failure so the
// consumer can ack.
func (o *Orchestrator) finishWithStatus(ctx context.Context, device *domain.Device, status domain.DeviceStatus, errMsg string) error {
	device.Status = status
	device.LastSeen = time.Now()
	device.Error = errMsg
	if err := o.store.UpdateDevice(ctx, device); err != nil {
		return fmt.Errorf("orchestrator: record status %s: %w", status, err)
	}
	return nil
}

// connect attempts a direct SSH connection; on failure it invokes the
// path planner and, if a path of length >= 2 exists, constructs a chained
// session through the jump hosts.
func (o *Orchestrator) connect(ctx context.Context, device *domain.Device) (Transport, []string, error) {
	o.log.ConnectAttempt(ctx, "direct", device.Host)
	session, err := o.dialDirect(device.Host, device.Username, device.Password, o.timeouts)
	if err == nil {
		return session, nil, nil
	}

	reachableIPs, probeErr := o.prober.Probe(ctx)
	if probeErr != nil {
		return nil, nil, fmt.Errorf("%w: direct connect failed (%v) and probe failed: %v", ErrUnreachable, err, probeErr)
	}

	path, planErr := graph.PlanPath(ctx, o.store, reachableIPs, device.Host)
	if planErr != nil {
		return nil, nil, fmt.Errorf("%w: path planning failed: %v", ErrUnreachable, planErr)
	}
	if len(path) < 2 {
		return nil, nil, fmt.Errorf("%w: no path to %s", ErrUnreachable, device.Host)
	}

	o.log.ConnectAttempt(ctx, "chained", device.Host)
	firstHopDevice, err := o.store.GetDeviceByHost(ctx, path[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: jump host %s not in inventory: %v", ErrChainFailure, path[0], err)
	}

	chained, err := o.dialChained(ctx, path, sshsession.Credentials{
		Username: firstHopDevice.Username,
		Password: firstHopDevice.Password,
	}, o.resolveHopCredentials(device), o.timeouts)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrChainFailure, err)
	}
	return chained, path, nil
}

// resolveHopCredentials resolves hop credentials: the final hop uses
// the target device's own credentials (falling back to admin/""); an
// intermediate hop is looked up by host=nextIP and must have both
// username and password set, else the chain aborts.
func (o *Orchestrator) resolveHopCredentials(target *domain.Device) sshsession.HopCredentialsFunc {
	return func(ctx context.Context, hopIP string, isFinal bool) (sshsession.Credentials, error) {
		if isFinal {
			user, pass := target.Username, target.Password
			if user == "" {
				user = "admin"
			}
			return sshsession.Credentials{Username: user, Password: pass}, nil
		}
		d, err := o.store.GetDeviceByHost(ctx, hopIP)
		if err != nil {
			return sshsession.Credentials{}, fmt.Errorf("intermediate hop %s not found: %w", hopIP, err)
		}
		if d.Username == "" || d.Password == "" {
			return sshsession.Credentials{}, fmt.Errorf("intermediate hop %s missing credentials", hopIP)
		}
		return sshsession.Credentials{Username: d.Username, Password: d.Password}, nil
	}
}

// collectLinks runs CDP first; if it yields zero links, falls back to
// LLDP and erases DeviceType on every resulting link per the
// LLDP-fallback rule.
func (o *Orchestrator) collectLinks(ctx context.Context, session Transport, log *logger.Logger) ([]domain.ParsedLink, domain.NeighborProtocol, error) {
	cdpOut, err := session.RunCommand(ctx, cmdCDP)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrCommandFailure, err)
	}
	links := parser.ParseCDP(cdpOut)
	log.ParseResult(ctx, string(domain.ProtocolCDP), len(links))
	if len(links) > 0 {
		return links, domain.ProtocolCDP, nil
	}

	lldpOut, err := session.RunCommand(ctx, cmdLLDP)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrCommandFailure, err)
	}
	links = parser.ParseLLDP(lldpOut)
	for i := range links {
		links[i].DeviceType = ""
		links[i].Protocol = domain.ProtocolLLDPFallback
	}
	log.ParseResult(ctx, string(domain.ProtocolLLDPFallback), len(links))
	return links, domain.ProtocolLLDPFallback, nil
}

// cascade enumerates devices with status in {ready, error} and enqueues
// one discovery job per device, auto_recursive always false.
func (o *Orchestrator) cascade(ctx context.Context, log *logger.Logger) error {
	devices, err := o.store.ListDevicesByStatus(ctx, domain.StatusReady, domain.StatusError)
	if err != nil {
		return fmt.Errorf("orchestrator: cascade list devices: %w", err)
	}
	log.Cascade(ctx, len(devices))
	for _, d := range devices {
		if err := o.enqueue.Enqueue(ctx, domain.DiscoveryJob{
			Type:          "discovery",
			DeviceID:      d.ID,
			Depth:         d.Depth,
			AutoRecursive: false,
			MaxDepth:      3,
		}); err != nil {
			log.WithError(err).Warn("cascade enqueue failed for device")
		}
	}
	return nil
}

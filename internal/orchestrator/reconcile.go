package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/store"
	"github.com/servak/topology-manager/pkg/logger"
)

// newDeviceDefaults resolves the default identity to
// seed identity_id/username/password and an initial status on newly
// created device records.
func (o *Orchestrator) newDeviceDefaults(ctx context.Context) (identityID, username, password string, status domain.DeviceStatus) {
	identity, err := o.store.GetDefaultIdentity(ctx)
	if err != nil {
		return "", "", "", domain.StatusNeedsCreds
	}
	return identity.ID, identity.Username, identity.Password, domain.StatusReady
}

// reconcile applies the four reconciliation branches for
// every parsed link and returns whether any new device record was
// created.
func (o *Orchestrator) reconcile(ctx context.Context, job domain.DiscoveryJob, seedIP string, links []domain.ParsedLink, log *logger.Logger) (bool, error) {
	identityID, username, password, defaultStatus := o.newDeviceDefaults(ctx)
	newDevicesAdded := false

	for _, link := range links {
		added, err := o.reconcileLink(ctx, job, seedIP, link, identityID, username, password, defaultStatus, log)
		if err != nil {
			return false, err
		}
		if added {
			newDevicesAdded = true
		}
	}
	return newDevicesAdded, nil
}

func (o *Orchestrator) reconcileLink(ctx context.Context, job domain.DiscoveryJob, seedIP string, link domain.ParsedLink, identityID, username, password string, defaultStatus domain.DeviceStatus, log *logger.Logger) (bool, error) {
	now := time.Now()
	childDepth := job.Depth + 1

	// Branch 1: neighbor without IP.
	if link.RemoteMgmtIP == "" {
		if link.RemoteSysname == "" {
			return false, nil
		}
		_, err := o.store.GetDeviceByDisplayNameNoHost(ctx, link.RemoteSysname)
		if err == nil {
			return false, nil
		}
		if err != store.ErrNotFound {
			return false, fmt.Errorf("reconcile: lookup name-only device: %w", err)
		}

		_, err = o.store.InsertDevice(ctx, &domain.Device{
			DisplayName:  link.RemoteSysname,
			Platform:     domain.DefaultPlatform,
			IdentityID:   identityID,
			Username:     username,
			Password:     password,
			Status:       defaultStatus,
			Depth:        childDepth,
			Parent:       seedIP,
			AlternateIPs: []string{},
			InterfaceMap: map[string]string{},
			CreatedAt:    now,
			LastSeen:     now,
		})
		if err != nil {
			return false, fmt.Errorf("reconcile: insert name-only device: %w", err)
		}
		return true, nil
	}

	newIP := link.RemoteMgmtIP

	// Does any record already hold this IP (as host)?
	existingAtIP, err := o.store.GetDeviceByHost(ctx, newIP)
	if err != nil && err != store.ErrNotFound {
		return false, fmt.Errorf("reconcile: lookup device by host: %w", err)
	}

	if err == store.ErrNotFound {
		// Branch 2: same-name record exists at a different IP and no
		// record holds newIP yet -> secondary interface of that device.
		if link.RemoteSysname != "" {
			existingByName, nameErr := o.store.GetDeviceByDisplayName(ctx, link.RemoteSysname)
			if nameErr == nil && existingByName.Host != newIP {
				existingByName.AlternateIPs = appendUnique(existingByName.AlternateIPs, newIP)
				if existingByName.InterfaceMap == nil {
					existingByName.InterfaceMap = map[string]string{}
				}
				existingByName.InterfaceMap[newIP] = link.RemotePort
				if existingByName.Depth > childDepth {
					existingByName.Depth = childDepth
					existingByName.Parent = seedIP
				}
				existingByName.LastSeen = now
				if err := o.store.UpdateDevice(ctx, existingByName); err != nil {
					return false, fmt.Errorf("reconcile: update alternate-ip device: %w", err)
				}
				return false, nil
			}
			if nameErr != nil && nameErr != store.ErrNotFound {
				return false, fmt.Errorf("reconcile: lookup device by display name: %w", nameErr)
			}
		}

		// Branch 3: brand-new device.
		deviceType := link.DeviceType
		if deviceType == domain.TypeUnknown {
			deviceType = ""
		}
		newID, err := o.store.InsertDevice(ctx, &domain.Device{
			Host:         newIP,
			DisplayName:  link.RemoteSysname,
			Platform:     domain.DefaultPlatform,
			IdentityID:   identityID,
			Username:     username,
			Password:     password,
			Status:       defaultStatus,
			Depth:        childDepth,
			Parent:       seedIP,
			DeviceType:   deviceType,
			AlternateIPs: []string{},
			InterfaceMap: map[string]string{newIP: link.RemotePort},
			CreatedAt:    now,
			LastSeen:     now,
		})
		if err != nil {
			return false, fmt.Errorf("reconcile: insert new device: %w", err)
		}

		if job.AutoRecursive && childDepth <= job.MaxDepth {
			if err := o.enqueue.Enqueue(ctx, domain.DiscoveryJob{
				Type:          "discovery",
				DeviceID:      newID,
				Depth:         childDepth,
				AutoRecursive: job.AutoRecursive,
				MaxDepth:      job.MaxDepth,
			}); err != nil {
				log.WithError(err).Warn("enqueue child discovery failed")
			}
		}
		return true, nil
	}

	// Branch 4: existing record at that IP -> minimal patch.
	changed := false
	if existingAtIP.DisplayName == "" && link.RemoteSysname != "" {
		existingAtIP.DisplayName = link.RemoteSysname
		changed = true
	}
	if existingAtIP.Depth > childDepth {
		existingAtIP.Depth = childDepth
		existingAtIP.Parent = seedIP
		changed = true
	}
	if existingAtIP.DeviceType == "" && link.DeviceType != "" && link.DeviceType != domain.TypeUnknown {
		existingAtIP.DeviceType = link.DeviceType
		changed = true
	}
	if existingAtIP.InterfaceMap == nil {
		existingAtIP.InterfaceMap = map[string]string{}
	}
	if existingAtIP.InterfaceMap[newIP] != link.RemotePort {
		existingAtIP.InterfaceMap[newIP] = link.RemotePort
		changed = true
	}
	if changed {
		existingAtIP.LastSeen = now
		if err := o.store.UpdateDevice(ctx, existingAtIP); err != nil {
			return false, fmt.Errorf("reconcile: patch existing device: %w", err)
		}
	}
	return false, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/stokeworth/steamdisc/internal/protocol"
)

const (
	// mdnsServiceType is the DNS-SD service wifi-module controllers
	// advertise their configuration endpoint under.
	mdnsServiceType = "_http._tcp"

	// mdnsServiceDomain is the mDNS domain.
	mdnsServiceDomain = "local."
)

// mdnsHostPattern matches controller hostnames such as
// "MY450-6340.local." or "STM550-1A9B.local".
var mdnsHostPattern = regexp.MustCompile(`^((?:MY|STM)\d{3})-\w+\.local\.?$`)

// MDNSScan browses mDNS/DNS-SD for controllers that advertise an HTTP
// configuration endpoint, for networks where the 30303 broadcast is
// filtered. Results use the same Device shape as broadcast discovery and
// can be merged into the same Registry. The scan runs until timeout or
// ctx cancellation, whichever comes first.
func MDNSScan(ctx context.Context, timeout time.Duration) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	registry := NewRegistry()

	go func() {
		for entry := range entries {
			if d, ok := deviceFromServiceEntry(entry); ok {
				registry.Merge(d)
			}
		}
	}()

	if err := resolver.Browse(ctx, mdnsServiceType, mdnsServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("browse mDNS services: %w", err)
	}

	<-ctx.Done()
	return registry.Snapshot(), nil
}

// deviceFromServiceEntry converts a zeroconf entry into a Device. Entries
// whose hostname does not look like a Steamist controller are skipped.
func deviceFromServiceEntry(entry *zeroconf.ServiceEntry) (Device, bool) {
	hostname := entry.HostName
	m := mdnsHostPattern.FindStringSubmatch(hostname)
	if m == nil {
		return Device{}, false
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return Device{}, false
	}

	// TXT records are "key=value" pairs; controllers publish at least
	// "mac" and sometimes a friendly "name".
	txt := make(map[string]string, len(entry.Text))
	for _, record := range entry.Text {
		k, v, _ := strings.Cut(record, "=")
		txt[k] = v
	}

	name := txt["name"]
	if name == "" {
		name = entry.Instance
	}

	now := time.Now()
	return Device{
		Addr:      ip,
		Hostname:  strings.TrimSuffix(strings.TrimSuffix(hostname, "."), ".local"),
		MAC:       protocol.NormalizeMAC(txt["mac"]),
		Name:      name,
		Model:     m[1],
		Extra:     map[string]string{},
		FirstSeen: now,
		LastSeen:  now,
	}, true
}

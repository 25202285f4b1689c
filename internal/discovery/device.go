package discovery

import (
	"fmt"
	"time"
)

// Device represents a discovered Steamist controller on the network.
type Device struct {
	// Addr is the source IP address the announcement arrived from. It is
	// the device's identity for deduplication purposes.
	Addr string

	// Hostname is the device's self-reported hostname (e.g. "MY450-6340").
	// Models that do not announce one report "Unavailable".
	Hostname string

	// MAC is the normalized hardware address (e.g. "00:1E:C0:38:63:40").
	MAC string

	// Name is the user-assigned name (e.g. "Master Bath").
	Name string

	// Model is the controller model (e.g. "MY450", "STM 550").
	Model string

	// Extra contains model-specific status fields, such as the live
	// temperature an STM 550 embeds in its announcement.
	Extra map[string]string

	// FirstSeen is when this address first answered during the scan.
	FirstSeen time.Time

	// LastSeen is when this address most recently answered.
	LastSeen time.Time
}

// String returns a human-readable one-line description of the device.
func (d Device) String() string {
	return fmt.Sprintf("Steamist %s %q at %s (%s)", d.Model, d.Name, d.Addr, d.MAC)
}

// GetExtra retrieves a status field by key, or an empty string if the
// device did not report it.
func (d Device) GetExtra(key string) string {
	if d.Extra == nil {
		return ""
	}
	return d.Extra[key]
}

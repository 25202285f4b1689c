package config

import "time"

// Registry represents the entire user configuration file.
// This stores user-defined metadata for devices and scan preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by normalized MAC address
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents remembered metadata for one controller. It is keyed
// by the device's MAC address in the Registry, since IP addresses change
// with DHCP leases.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastIP   string    `yaml:"last_ip,omitempty"`   // Last known IP address
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery time
	Model    string    `yaml:"model,omitempty"`     // Reported model (e.g. "MY450")
	Name     string    `yaml:"name,omitempty"`      // Last device-reported name
}

// Preferences represents application-wide scan preferences. They supply
// defaults for the corresponding CLI flags.
type Preferences struct {
	DiscoverTimeout  int    `yaml:"discover_timeout"`            // Scan timeout in seconds
	Port             int    `yaml:"port"`                        // Discovery UDP port
	BroadcastAddress string `yaml:"broadcast_address,omitempty"` // Directed broadcast override
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			DiscoverTimeout: 10,
			Port:            30303,
		},
	}
}

// GetDevice retrieves device metadata by MAC address.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(mac string) *Device {
	return r.Devices[mac]
}

// EnsureDevice ensures a device entry exists in the registry, creating an
// empty one if needed, and returns it.
func (r *Registry) EnsureDevice(mac string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[mac]; exists {
		return device
	}

	device := &Device{}
	r.Devices[mac] = device
	return device
}

// SetDeviceNickname sets or updates the nickname for a device.
func (r *Registry) SetDeviceNickname(mac, nickname string) {
	r.EnsureDevice(mac).Nickname = nickname
}

// UpdateFromDiscovery records what a discovery pass learned about a
// device: its current address, model and self-reported name.
func (r *Registry) UpdateFromDiscovery(mac, ip, model, name string) {
	device := r.EnsureDevice(mac)
	device.LastSeen = time.Now()
	device.LastIP = ip
	device.Model = model
	device.Name = name
}

// Package config provides user configuration management for steamdisc.
//
// This package manages a YAML-based configuration file that stores
// user-defined metadata for discovered controllers (nicknames, last known
// addresses) and scan preferences. The configuration follows OS-specific
// conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/steamdisc/config.yaml or $HOME/.config/steamdisc/config.yaml
//   - macOS: $HOME/.config/steamdisc/config.yaml
//   - Windows: %LOCALAPPDATA%\steamdisc\config.yaml
//
// # Contents
//
// Devices are keyed by their normalized MAC address, the only identifier
// that survives DHCP lease changes. Scan preferences (timeout, port,
// broadcast address) provide defaults for CLI flags.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	registry.UpdateFromDiscovery("00:1E:C0:38:63:40", "192.168.1.50", "MY450", "Master Bath")
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
package config

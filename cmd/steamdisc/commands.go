package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/stokeworth/steamdisc/internal/config"
	"github.com/stokeworth/steamdisc/internal/discovery"
	"github.com/stokeworth/steamdisc/internal/protocol"
	"github.com/stokeworth/steamdisc/internal/server"
	"github.com/stokeworth/steamdisc/internal/tui"
)

// Command flags
var (
	scanTimeout   int
	probeInterval int
	port          int
	broadcastAddr string
	bindAddr      string
	targetAddr    string
	outputFormat  string
	wireDelimiter string
	wireFields    int
	serveAddr     string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
	pf.IntVar(&probeInterval, "interval", 0, "Seconds between probe broadcasts (0 = timeout/3)")
	pf.IntVar(&port, "port", discovery.DefaultPort, "Discovery UDP port")
	pf.StringVar(&broadcastAddr, "broadcast", discovery.DefaultBroadcastAddress,
		"Broadcast address (use the subnet's directed broadcast on multi-homed hosts)")
	pf.StringVar(&bindAddr, "bind", "", "Local address to bind (default all interfaces)")
	pf.StringVar(&wireDelimiter, "delimiter", protocol.DefaultDelimiter, "Response field delimiter")
	pf.IntVar(&wireFields, "fields", protocol.DefaultFieldCount, "Expected response field count")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mdnsCmd)
	rootCmd.AddCommand(devicesCmd)
}

// newScanner builds a scanner from flags, letting saved preferences fill
// in anything the user did not set explicitly.
func newScanner(cmd *cobra.Command) *discovery.Scanner {
	if reg, err := config.LoadRegistry(); err == nil && reg.Preferences != nil {
		p := reg.Preferences
		if !cmd.Flags().Changed("timeout") && p.DiscoverTimeout > 0 {
			scanTimeout = p.DiscoverTimeout
		}
		if !cmd.Flags().Changed("port") && p.Port > 0 {
			port = p.Port
		}
		if !cmd.Flags().Changed("broadcast") && p.BroadcastAddress != "" {
			broadcastAddr = p.BroadcastAddress
		}
	}

	s := discovery.NewScanner()
	s.Timeout = time.Duration(scanTimeout) * time.Second
	s.ProbeInterval = time.Duration(probeInterval) * time.Second
	s.Port = port
	s.BroadcastAddress = broadcastAddr
	s.BindAddress = bindAddr
	s.Target = targetAddr
	s.Codec = &protocol.Codec{
		Probe:      protocol.DefaultProbe,
		Delimiter:  wireDelimiter,
		FieldCount: wireFields,
	}
	return s
}

// scanCmd performs one bounded discovery pass
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Steamist devices on the network",
	Long: `Scan for Steamist controllers using a UDP broadcast probe.

This command broadcasts the discovery probe on port 30303, collects the
announcements devices send back, and prints each discovered controller.
An empty result is a successful scan; broadcast UDP gives no guarantee
every device answers.`,
	Example: `  # Scan for 10 seconds (default)
  steamdisc scan

  # Quick 3-second scan, probing every second
  steamdisc scan --timeout 3 --interval 1

  # Directed broadcast on a multi-homed host
  steamdisc scan --broadcast 192.168.1.255 --bind 192.168.1.10

  # Stop as soon as a specific device answers
  steamdisc scan --target 192.168.1.50`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&targetAddr, "target", "", "Stop early once this IP answers")
	scanCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := newScanner(cmd)
	if outputFormat != "json" {
		fmt.Printf("Scanning for Steamist devices (timeout: %ds)...\n\n", scanTimeout)
	}

	devices, err := s.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	rememberDevices(devices)
	return printDevices(devices)
}

func printDevices(devices []discovery.Device) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(devices)

	case "compact":
		for _, d := range devices {
			fmt.Printf("%s\t%s\t%s\t%s\n", d.Addr, d.MAC, d.Model, d.Name)
		}
		return nil
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the controller is powered on and on this network")
		fmt.Println("  - Broadcast may be filtered; try --broadcast with your subnet's directed address")
		fmt.Println("  - Try increasing --timeout; devices answer with variable latency")
		fmt.Println("  - Try 'steamdisc mdns' for controllers with the wifi module")
		return nil
	}

	nicknames := loadNicknames()
	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, d := range devices {
		name := d.Name
		if nick, ok := nicknames[d.MAC]; ok && nick != "" {
			name = fmt.Sprintf("%s (%s)", nick, d.Name)
		}
		fmt.Printf("%d. %s\n", i+1, name)
		fmt.Printf("   Address: %s\n", d.Addr)
		fmt.Printf("   MAC:     %s\n", d.MAC)
		fmt.Printf("   Model:   %s\n", d.Model)
		if d.Hostname != "" && d.Hostname != "Unavailable" {
			fmt.Printf("   Host:    %s\n", d.Hostname)
		}
		if len(d.Extra) > 0 {
			fmt.Printf("   Status:  %v\n", d.Extra)
		}
		fmt.Println()
	}
	return nil
}

// rememberDevices records scan results in the user config so nicknames
// and last-seen addresses survive between runs. Best effort; a read-only
// home directory must not fail the scan.
func rememberDevices(devices []discovery.Device) {
	if len(devices) == 0 {
		return
	}
	reg, err := config.LoadRegistry()
	if err != nil {
		return
	}
	for _, d := range devices {
		if d.MAC == "" {
			continue
		}
		reg.UpdateFromDiscovery(d.MAC, d.Addr, d.Model, d.Name)
	}
	_ = reg.Save()
}

func loadNicknames() map[string]string {
	out := map[string]string{}
	reg, err := config.LoadRegistry()
	if err != nil {
		return out
	}
	for mac, d := range reg.Devices {
		out[mac] = d.Nickname
	}
	return out
}

// listenCmd streams merge events as plain lines
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Continuously listen for device announcements",
	Long: `Listen for device announcements indefinitely.

The probe is re-broadcast on the configured interval forever and one
line is printed for every announcement heard, including repeats from
already-known devices. Stop with Ctrl-C.`,
	RunE: runListen,
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := newScanner(cmd)
	s.OnDevice = func(d discovery.Device, o discovery.MergeOutcome) {
		fmt.Printf("%s  %-8s  %s\n", d.LastSeen.Format(time.RFC3339), o, d)
	}

	l, err := s.Listen(ctx)
	if err != nil {
		return fmt.Errorf("listen failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Listening for Steamist devices on UDP %d (Ctrl-C to stop)...\n", port)
	<-ctx.Done()
	l.Stop()

	fmt.Fprintf(os.Stderr, "Stopped. %d device(s) heard.\n", len(l.Devices()))
	return nil
}

// watchCmd shows the live TUI
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for devices in an interactive screen",
	Long: `Continuously listen for announcements and render every device
heard as a live-updating card. Press q to quit, c to clear the list.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan tui.DeviceEvent, 64)
	s := newScanner(cmd)
	s.OnDevice = func(d discovery.Device, o discovery.MergeOutcome) {
		select {
		case events <- tui.DeviceEvent{Device: d, Outcome: o}:
		default:
			// The UI is behind; dropping a repeat announcement is harmless.
		}
	}

	l, err := s.Listen(ctx)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	defer l.Stop()

	return tui.Run(events)
}

// serveCmd publishes discovery over HTTP/WebSocket
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Publish discovery results over HTTP",
	Long: `Run continuous discovery and expose the results to other tools:

  GET /devices   JSON snapshot of everything discovered so far
  GET /events    WebSocket stream of device announcements

Intended for home-automation bridges and dashboards on the same host.`,
	Example: `  steamdisc serve --listen :8030`,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", ":8030", "HTTP listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := server.New(&server.Config{
		ListenAddr: serveAddr,
		Scanner:    newScanner(cmd),
	})

	errc, err := srv.Start(ctx)
	if err != nil {
		return fmt.Errorf("serve failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Serving discovery on %s (Ctrl-C to stop)...\n", serveAddr)

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// mdnsCmd scans via mDNS/DNS-SD only
var mdnsCmd = &cobra.Command{
	Use:   "mdns",
	Short: "Scan via mDNS instead of UDP broadcast",
	Long: `Browse mDNS/DNS-SD for controllers with the wifi module, which
advertise their configuration endpoint as an "_http._tcp" service.
Useful on networks where the 30303 broadcast is filtered.`,
	RunE: runMDNS,
}

func init() {
	mdnsCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
}

func runMDNS(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if outputFormat != "json" {
		fmt.Printf("Browsing mDNS for Steamist devices (timeout: %ds)...\n\n", scanTimeout)
	}

	devices, err := discovery.MDNSScan(ctx, time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("mdns scan failed: %w", err)
	}

	rememberDevices(devices)
	return printDevices(devices)
}

// devicesCmd manages remembered devices
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices remembered from previous scans",
	RunE:  runDevices,
}

var nicknameCmd = &cobra.Command{
	Use:   "nickname <mac> <name>",
	Short: "Assign a nickname to a remembered device",
	Args:  cobra.ExactArgs(2),
	RunE:  runNickname,
}

func init() {
	devicesCmd.AddCommand(nicknameCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if len(reg.Devices) == 0 {
		fmt.Println("No devices remembered yet. Run 'steamdisc scan' first.")
		return nil
	}

	for mac, d := range reg.Devices {
		name := d.Name
		if d.Nickname != "" {
			name = fmt.Sprintf("%s (%s)", d.Nickname, d.Name)
		}
		fmt.Printf("%s  %-15s  %-8s  %s", mac, d.LastIP, d.Model, name)
		if !d.LastSeen.IsZero() {
			fmt.Printf("  last seen %s", d.LastSeen.Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}
	return nil
}

func runNickname(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mac := protocol.NormalizeMAC(args[0])
	reg.SetDeviceNickname(mac, args[1])
	if err := reg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Device %s is now %q\n", mac, args[1])
	return nil
}

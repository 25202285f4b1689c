package discovery

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"
)

// classicPayload is a captured MY450 announcement.
var classicPayload = []byte("MY450-6340     \r\n00-1E-C0-38-63-40\r\nMaster Bath\x00   \x00")

// fakeDevice is a loopback UDP responder standing in for a controller.
// The scanner is pointed at the fake's port; its own bind of that port
// fails and falls back to an ephemeral port, exactly as on a host where
// something else holds 30303.
type fakeDevice struct {
	t    *testing.T
	conn *net.UDPConn

	mu     sync.Mutex
	probes int

	// onProbe is invoked for every received probe with the 1-based probe
	// count and the sender address to reply to.
	onProbe func(n int, src *net.UDPAddr)
}

func newFakeDevice(t *testing.T, onProbe func(n int, src *net.UDPAddr)) *fakeDevice {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("fake device bind: %v", err)
	}

	d := &fakeDevice{t: t, conn: conn, onProbe: onProbe}
	go d.loop()
	t.Cleanup(func() { _ = conn.Close() })
	return d
}

func (d *fakeDevice) loop() {
	buf := make([]byte, 256)
	for {
		_, src, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		d.mu.Lock()
		d.probes++
		n := d.probes
		d.mu.Unlock()
		if d.onProbe != nil {
			d.onProbe(n, src)
		}
	}
}

func (d *fakeDevice) reply(payload []byte, src *net.UDPAddr) {
	if _, err := d.conn.WriteToUDP(payload, src); err != nil {
		d.t.Logf("fake device reply: %v", err)
	}
}

func (d *fakeDevice) port() int {
	return d.conn.LocalAddr().(*net.UDPAddr).Port
}

func (d *fakeDevice) probeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.probes
}

func newTestScanner(port int) *Scanner {
	s := NewScanner()
	s.Port = port
	s.BroadcastAddress = "127.0.0.1"
	s.BindAddress = "127.0.0.1"
	s.Timeout = 400 * time.Millisecond
	s.ProbeInterval = 150 * time.Millisecond
	return s
}

func TestScanFindsDevice(t *testing.T) {
	dev := newFakeDevice(t, nil)
	dev.onProbe = func(n int, src *net.UDPAddr) {
		if n == 1 {
			dev.reply(classicPayload, src)
		}
	}

	s := newTestScanner(dev.port())
	devices, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(devices) != 1 {
		t.Fatalf("Scan() found %d devices, want 1", len(devices))
	}
	d := devices[0]
	if d.Addr != "127.0.0.1" {
		t.Errorf("Addr = %q, want %q", d.Addr, "127.0.0.1")
	}
	if d.Hostname != "MY450-6340" {
		t.Errorf("Hostname = %q, want %q", d.Hostname, "MY450-6340")
	}
	if d.MAC != "00:1E:C0:38:63:40" {
		t.Errorf("MAC = %q, want %q", d.MAC, "00:1E:C0:38:63:40")
	}
	if d.Name != "Master Bath" {
		t.Errorf("Name = %q, want %q", d.Name, "Master Bath")
	}
	if d.LastSeen.IsZero() || d.FirstSeen.IsZero() {
		t.Error("timestamps not set on merge")
	}
}

func TestScanEmptyResultAndProbeCadence(t *testing.T) {
	dev := newFakeDevice(t, nil) // never replies

	s := newTestScanner(dev.port())
	s.Timeout = 300 * time.Millisecond
	s.ProbeInterval = 100 * time.Millisecond

	start := time.Now()
	devices, err := s.Scan(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("Scan() found %d devices, want 0 (empty result is success)", len(devices))
	}
	if elapsed < 290*time.Millisecond {
		t.Errorf("Scan() returned after %v, must not complete before the timeout", elapsed)
	}
	if elapsed > 900*time.Millisecond {
		t.Errorf("Scan() returned after %v, want ~300ms", elapsed)
	}

	// ceil(300ms / 100ms) = 3 probes, the initial send included.
	time.Sleep(50 * time.Millisecond)
	if got := dev.probeCount(); got != 3 {
		t.Errorf("device received %d probes, want 3", got)
	}
}

func TestScanMergesLaterReplyOverEarlier(t *testing.T) {
	second := []byte("MY450-6340     \r\n00-1E-C0-38-63-40\r\nDeviceX-v2\x00\x00")
	first := []byte("MY450-6340     \r\n00-1E-C0-38-63-40\r\nDeviceX\x00\x00")

	dev := newFakeDevice(t, nil)
	dev.onProbe = func(n int, src *net.UDPAddr) {
		switch n {
		case 1:
			dev.reply(first, src)
		case 2:
			dev.reply(second, src)
		}
	}

	s := newTestScanner(dev.port())
	devices, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(devices) != 1 {
		t.Fatalf("Scan() found %d devices, want 1 (same address deduplicated)", len(devices))
	}
	if devices[0].Name != "DeviceX-v2" {
		t.Errorf("Name = %q, want %q (later reply wins)", devices[0].Name, "DeviceX-v2")
	}
}

func TestScanSurvivesNoise(t *testing.T) {
	dev := newFakeDevice(t, nil)
	dev.onProbe = func(n int, src *net.UDPAddr) {
		if n != 1 {
			return
		}
		dev.reply([]byte("M-SEARCH * HTTP/1.1"), src) // unrelated traffic
		dev.reply([]byte{}, src)                      // empty datagram
		dev.reply([]byte("stdisc"), src)              // probe echo
		dev.reply(classicPayload, src)                // then a real reply
	}

	s := newTestScanner(dev.port())
	devices, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v (bad datagrams must not kill the scan)", err)
	}
	if len(devices) != 1 {
		t.Fatalf("Scan() found %d devices, want 1", len(devices))
	}
	if devices[0].Name != "Master Bath" {
		t.Errorf("Name = %q, want %q", devices[0].Name, "Master Bath")
	}
}

func TestScanCollectsRepliesFromUnprobedAddresses(t *testing.T) {
	// Second responder on a different loopback address: its address was
	// never probed directly, the announcement must merge anyway.
	other, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 2)})
	if err != nil {
		t.Skipf("cannot bind 127.0.0.2: %v", err)
	}
	defer other.Close()
	otherPayload := []byte("MY450-0002     \r\n00-1E-C0-00-00-02\r\nGuest Bath\x00")

	dev := newFakeDevice(t, nil)
	dev.onProbe = func(n int, src *net.UDPAddr) {
		if n != 1 {
			return
		}
		dev.reply(classicPayload, src)
		if _, err := other.WriteToUDP(otherPayload, src); err != nil {
			t.Logf("second responder reply: %v", err)
		}
	}

	s := newTestScanner(dev.port())
	devices, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Scan() found %d devices, want 2", len(devices))
	}
	addrs := map[string]bool{}
	for _, d := range devices {
		addrs[d.Addr] = true
	}
	if !addrs["127.0.0.1"] || !addrs["127.0.0.2"] {
		t.Errorf("addresses = %v, want 127.0.0.1 and 127.0.0.2", addrs)
	}
}

func TestScanTargetStopsEarly(t *testing.T) {
	dev := newFakeDevice(t, nil)
	dev.onProbe = func(n int, src *net.UDPAddr) {
		if n == 1 {
			dev.reply(classicPayload, src)
		}
	}

	s := newTestScanner(dev.port())
	s.Timeout = 5 * time.Second
	s.ProbeInterval = time.Second
	s.Target = "127.0.0.1"

	start := time.Now()
	devices, err := s.Scan(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("Scan() found %d devices, want 1", len(devices))
	}
	if elapsed > 2*time.Second {
		t.Errorf("Scan() took %v, target reply should complete it early", elapsed)
	}
}

func TestScanCancelReturnsPartialAndReleasesSocket(t *testing.T) {
	// Reserve a port number, then free it for the scanner to bind.
	probe, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := probe.LocalAddr().(*net.UDPAddr).Port
	_ = probe.Close()

	s := newTestScanner(port)
	s.Timeout = 5 * time.Second
	s.ProbeInterval = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		devices []Device
		err     error
	}
	done := make(chan result, 1)
	go func() {
		devices, err := s.Scan(ctx)
		done <- result{devices, err}
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Scan() after cancel error = %v, cancellation is not a failure", res.err)
		}
		if len(res.devices) != 0 {
			t.Errorf("Scan() found %d devices, want the empty partial result", len(res.devices))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Scan() did not return after cancellation")
	}

	// The port must be immediately rebindable once Scan returns.
	rebound, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		t.Fatalf("rebind port %d after cancel: %v", port, err)
	}
	_ = rebound.Close()
}

func TestListenContinuous(t *testing.T) {
	dev := newFakeDevice(t, nil)
	dev.onProbe = func(n int, src *net.UDPAddr) {
		dev.reply(classicPayload, src)
	}

	events := make(chan MergeOutcome, 64)
	s := newTestScanner(dev.port())
	s.ProbeInterval = 100 * time.Millisecond
	s.OnDevice = func(d Device, o MergeOutcome) {
		events <- o
	}

	l, err := s.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	select {
	case o := <-events:
		if o != MergeInserted {
			t.Errorf("first event = %v, want %v", o, MergeInserted)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no device event received in continuous mode")
	}

	// The interval keeps probing; the same device produces update merges.
	select {
	case o := <-events:
		if o != MergeUpdated {
			t.Errorf("second event = %v, want %v", o, MergeUpdated)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update event received in continuous mode")
	}

	if got := len(l.Devices()); got != 1 {
		t.Errorf("Devices() length = %d, want 1", got)
	}

	l.Stop()
	select {
	case <-l.Done():
	default:
		t.Error("Done() not closed after Stop()")
	}
}

func TestProbeBudget(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		interval time.Duration
		want     int
	}{
		{name: "exact multiple", timeout: 3 * time.Second, interval: time.Second, want: 3},
		{name: "rounds up", timeout: 3500 * time.Millisecond, interval: time.Second, want: 4},
		{name: "interval exceeds timeout", timeout: time.Second, interval: 5 * time.Second, want: 1},
		{name: "default interval", timeout: 9 * time.Second, interval: 0, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner()
			s.Timeout = tt.timeout
			s.ProbeInterval = tt.interval
			if got := s.probeBudget(); got != tt.want {
				t.Errorf("probeBudget() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConcurrentScansIndependent(t *testing.T) {
	dev := newFakeDevice(t, nil)
	dev.onProbe = func(n int, src *net.UDPAddr) {
		dev.reply(classicPayload, src)
	}

	var wg sync.WaitGroup
	results := make([][]Device, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newTestScanner(dev.port())
			devices, err := s.Scan(context.Background())
			if err != nil {
				t.Errorf("Scan() %d error = %v", i, err)
				return
			}
			results[i] = devices
		}(i)
	}
	wg.Wait()

	for i, devices := range results {
		if len(devices) != 1 {
			t.Errorf("scan %d found %d devices, want 1 (own registry per scan)", i, len(devices))
		}
	}
}

func TestMDNSHostPattern(t *testing.T) {
	tests := []struct {
		host string
		ok   bool
	}{
		{"MY450-6340.local.", true},
		{"MY450-6340.local", true},
		{"STM550-1A9B.local.", true},
		{"printer.local.", false},
		{"eValve315260240.local.", false},
		{"MY450.local.", false},
	}

	for _, tt := range tests {
		if got := mdnsHostPattern.MatchString(tt.host); got != tt.ok {
			t.Errorf("mdnsHostPattern.MatchString(%q) = %v, want %v", tt.host, got, tt.ok)
		}
	}
}

func TestDeviceString(t *testing.T) {
	d := Device{Addr: "10.0.0.5", MAC: "00:1E:C0:38:63:40", Name: "Master Bath", Model: "MY450"}
	want := `Steamist MY450 "Master Bath" at 10.0.0.5 (00:1E:C0:38:63:40)`
	if got := d.String(); got != want {
		t.Errorf("String() = %v, want %v", got, want)
	}
}

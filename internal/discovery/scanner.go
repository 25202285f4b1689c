package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/stokeworth/steamdisc/internal/logging"
	"github.com/stokeworth/steamdisc/internal/protocol"
)

const (
	// DefaultPort is the UDP port Steamist controllers listen on.
	DefaultPort = 30303

	// DefaultBroadcastAddress is the local broadcast address. On
	// multi-homed hosts, or in containers, set BroadcastAddress to the
	// subnet's directed broadcast address instead (e.g. "192.168.1.255").
	DefaultBroadcastAddress = "255.255.255.255"

	// DefaultTimeout bounds one scan.
	DefaultTimeout = 10 * time.Second

	// broadcastsPerScan fixes the default probe interval at a third of
	// the timeout, so a bounded scan broadcasts three times.
	broadcastsPerScan = 3

	// defaultListenInterval is the probe interval for continuous mode
	// when none is configured. Continuous mode has no timeout to derive
	// an interval from.
	defaultListenInterval = 3 * time.Second

	// maxDatagramSize comfortably exceeds the largest known announcement.
	maxDatagramSize = 1024
)

// Scanner runs broadcast discovery scans. Fields may be adjusted between
// scans but are immutable for the life of one scan. The zero values of
// all fields select the captured protocol defaults.
type Scanner struct {
	// Timeout is the total scan duration for Scan. Ignored by Listen.
	Timeout time.Duration

	// ProbeInterval is the spacing between repeated broadcasts. The
	// interval is constant: no backoff, no jitter. Repetition exists to
	// catch devices whose earlier reply (or our earlier probe) was lost,
	// not for congestion avoidance. Defaults to Timeout/3.
	ProbeInterval time.Duration

	// Port is the target UDP port.
	Port int

	// BroadcastAddress is the destination for probes.
	BroadcastAddress string

	// BindAddress is the local interface to bind. Empty binds all.
	BindAddress string

	// Target, when set to an IP address, completes the scan early as soon
	// as that address answers.
	Target string

	// Codec decodes responses; nil selects protocol.NewCodec().
	Codec *protocol.Codec

	// OnDevice, when non-nil, is invoked for every registry merge. It is
	// called from the receive goroutine and must not block.
	OnDevice DeviceFunc

	log *zap.Logger
}

// NewScanner returns a scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{
		Timeout:          DefaultTimeout,
		Port:             DefaultPort,
		BroadcastAddress: DefaultBroadcastAddress,
		log:              logging.GetLogger(),
	}
}

// Scan runs one bounded discovery scan and returns the devices found, in
// first-seen order. It blocks until the timeout elapses, ctx is
// cancelled, or the Target address answers; the first two are equivalent
// normal completions and an empty result is not an error. Only
// transport-level failures return a non-nil error.
func (s *Scanner) Scan(ctx context.Context) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	sess, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	if err := sess.run(ctx, s.probeBudget()); err != nil {
		return nil, err
	}
	return sess.registry.Snapshot(), nil
}

// Listen starts continuous discovery: no deadline, probes re-broadcast on
// the interval forever, OnDevice fired for every merge. The returned
// Listener owns the socket until stopped.
func (s *Scanner) Listen(ctx context.Context) (*Listener, error) {
	ctx, cancel := context.WithCancel(ctx)

	sess, err := s.open(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	l := &Listener{
		cancel:   cancel,
		done:     make(chan struct{}),
		registry: sess.registry,
	}
	go func() {
		defer close(l.done)
		defer sess.close()
		// Send errors after bind are logged inside run; a continuous
		// listener keeps receiving even if one broadcast fails.
		if err := sess.run(ctx, 0); err != nil {
			s.log.Warn("continuous discovery stopped", zap.Error(err))
		}
	}()
	return l, nil
}

// Listener is a handle for a continuous discovery session.
type Listener struct {
	cancel   context.CancelFunc
	done     chan struct{}
	registry *Registry
}

// Stop cancels the session. It does not return until the socket is
// closed and the send timer is stopped.
func (l *Listener) Stop() {
	l.cancel()
	<-l.done
}

// Devices returns a snapshot of everything merged so far, in first-seen
// order.
func (l *Listener) Devices() []Device {
	return l.registry.Snapshot()
}

// Done is closed once the session has fully torn down.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func (s *Scanner) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

func (s *Scanner) interval() time.Duration {
	if s.ProbeInterval > 0 {
		return s.ProbeInterval
	}
	return s.timeout() / broadcastsPerScan
}

func (s *Scanner) listenInterval() time.Duration {
	if s.ProbeInterval > 0 {
		return s.ProbeInterval
	}
	return defaultListenInterval
}

// probeBudget is the number of broadcasts a bounded scan performs:
// ceil(Timeout / ProbeInterval), the initial send included.
func (s *Scanner) probeBudget() int {
	t, i := s.timeout(), s.interval()
	return int((t + i - 1) / i)
}

func (s *Scanner) codec() *protocol.Codec {
	if s.Codec != nil {
		return s.Codec
	}
	return protocol.NewCodec()
}

func (s *Scanner) logger() *zap.Logger {
	if s.log != nil {
		return s.log
	}
	return logging.GetLogger()
}

// session holds the state of one scan: the socket, the registry and the
// receive goroutine. The session exclusively owns the socket; nothing
// else writes to it.
type session struct {
	scanner    *Scanner
	conn       *net.UDPConn
	dest       *net.UDPAddr
	codec      *protocol.Codec
	registry   *Registry
	interval   time.Duration
	targetSeen chan struct{}
	readerDone chan struct{}
	log        *zap.Logger
}

// open binds the discovery socket and starts the receive goroutine. Bind,
// permission and broadcast-enable failures are fatal to the scan attempt
// and reported immediately; there is no retry, since they indicate an
// environment problem waiting cannot fix.
func (s *Scanner) open(ctx context.Context) (*session, error) {
	dest, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(s.BroadcastAddress, strconv.Itoa(s.Port)))
	if err != nil {
		return nil, fmt.Errorf("resolve broadcast address: %w", err)
	}

	conn, err := s.bind(ctx)
	if err != nil {
		return nil, fmt.Errorf("bind discovery socket: %w", err)
	}

	interval := s.interval()
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		interval = s.listenInterval()
	}

	sess := &session{
		scanner:    s,
		conn:       conn,
		dest:       dest,
		codec:      s.codec(),
		registry:   NewRegistry(),
		interval:   interval,
		readerDone: make(chan struct{}),
		log:        s.logger(),
	}
	if s.OnDevice != nil {
		sess.registry.Subscribe(s.OnDevice)
	}
	if s.Target != "" {
		sess.targetSeen = make(chan struct{})
	}

	go sess.receiveLoop()
	return sess, nil
}

// bind prefers the discovery port itself as the source port, because
// legacy devices address their reply to port 30303 rather than to the
// probe's source port. When that port is taken, an ephemeral port still
// catches replies from current firmware.
func (s *Scanner) bind(ctx context.Context) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: enableBroadcast}

	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(s.BindAddress, strconv.Itoa(s.Port)))
	if err != nil {
		s.logger().Debug("discovery port unavailable, using ephemeral port",
			zap.Int("port", s.Port),
			zap.Error(err),
		)
		pc, err = lc.ListenPacket(ctx, "udp4", net.JoinHostPort(s.BindAddress, "0"))
		if err != nil {
			return nil, err
		}
	}
	return pc.(*net.UDPConn), nil
}

// run drives the send side: one immediate broadcast, then re-broadcasts
// on the interval until ctx is done or the target answers. maxSends
// bounds the number of broadcasts; zero means unlimited. run always
// returns on cancellation with a nil error, because cancellation is the
// normal completion signal, not a failure.
func (sess *session) run(ctx context.Context, maxSends int) error {
	if err := sess.broadcast(); err != nil {
		// The first send failing means the scan never effectively
		// started (typically EACCES from a broadcast-hostile network
		// configuration).
		return fmt.Errorf("send discovery probe: %w", err)
	}
	sent := 1

	ticker := time.NewTicker(sess.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sess.targetSeen:
			return nil
		case <-ticker.C:
			if maxSends > 0 && sent >= maxSends {
				// Budget spent; keep listening until the deadline.
				continue
			}
			if err := sess.broadcast(); err != nil {
				// A lost re-broadcast is no worse than a lost datagram.
				sess.log.Warn("probe re-broadcast failed", zap.Error(err))
				continue
			}
			sent++
		}
	}
}

func (sess *session) broadcast() error {
	probe := sess.codec.EncodeProbe()
	sess.log.Debug("discover",
		zap.String("to", sess.dest.String()),
		zap.ByteString("probe", probe),
	)
	_, err := sess.conn.WriteToUDP(probe, sess.dest)
	return err
}

// receiveLoop decodes inbound datagrams until the socket is closed.
// Responses can arrive at any point in the scan, including before a send
// returns control; no send-then-receive ordering is assumed.
func (sess *session) receiveLoop() {
	defer close(sess.readerDone)

	buf := make([]byte, maxDatagramSize)
	for {
		n, src, err := sess.conn.ReadFromUDP(buf)
		if err != nil {
			// Socket closed by teardown, or a transport fault; either
			// way the scan's result is whatever was merged so far.
			return
		}
		sess.handle(buf[:n], src)
	}
}

// handle decodes one datagram and merges it. Decode failures are noise on
// a shared broadcast port and never disturb the scan.
func (sess *session) handle(raw []byte, src *net.UDPAddr) {
	sess.log.Debug("discover reply",
		zap.String("from", src.String()),
		zap.ByteString("data", raw),
	)

	resp, err := sess.codec.Decode(raw)
	if err != nil {
		sess.log.Debug("dropping undecodable datagram",
			zap.String("from", src.String()),
			zap.Error(err),
		)
		return
	}

	addr := src.IP.String()
	sess.registry.Merge(Device{
		Addr:     addr,
		Hostname: resp.Hostname,
		MAC:      resp.MAC,
		Name:     resp.Name,
		Model:    resp.Model,
		Extra:    resp.Extra,
		LastSeen: time.Now(),
	})

	if sess.targetSeen != nil && addr == sess.scanner.Target {
		select {
		case <-sess.targetSeen:
		default:
			close(sess.targetSeen)
		}
	}
}

// close releases the socket and waits for the receive goroutine to exit,
// so no read races teardown. Safe to call exactly once per session; every
// exit path of Scan and Listen goes through it.
func (sess *session) close() {
	_ = sess.conn.Close()
	<-sess.readerDone
}

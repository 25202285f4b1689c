// Package discovery locates Steamist steam-bath controllers on the local
// network.
//
// The primary mechanism is UDP broadcast on port 30303: the scanner sends
// a fixed probe to the broadcast address and collects the plaintext
// announcements devices send back. Broadcast UDP is lossy in both
// directions, so the probe is re-sent on a fixed interval for the whole
// scan window; repetition is the only reliability mechanism the protocol
// has.
//
// # Scan Process
//
//  1. Bind a UDP socket with broadcast enabled, preferring the discovery
//     port itself (legacy devices reply only to source port 30303)
//  2. Broadcast the probe, then re-broadcast it every probe interval
//  3. Decode every inbound datagram; drop undecodable ones silently
//  4. Merge decoded responses into a per-scan registry keyed by source IP
//  5. Return the registry snapshot when the timeout elapses, the caller
//     cancels, or the target device answers
//
// A scan that finds nothing is a successful empty result, not an error.
// Only transport-level failures (socket bind, broadcast send) surface to
// the caller.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 3 * time.Second
//
//	devices, err := scanner.Scan(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range devices {
//	    fmt.Printf("Found: %s (%s) at %s\n", d.Name, d.MAC, d.Addr)
//	}
//
// # Continuous Mode
//
// Listen runs the same engine without a deadline, probing forever and
// invoking the scanner's OnDevice callback as devices appear or update.
// The returned Listener stops the engine and releases the socket when its
// Stop method is called.
//
// # mDNS
//
// Controllers fitted with the newer wifi module also advertise their
// configuration endpoint over mDNS/DNS-SD. MDNSScan browses for those
// announcements and reports them in the same Device shape, for networks
// where directed broadcast is filtered.
//
// # Thread Safety
//
// Each scan owns its socket and registry; concurrent scans do not share
// state. Registry merges are serialized by the registry's own lock.
package discovery

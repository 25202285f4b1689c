package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

// Protocol defaults, taken from live captures of MY450 and STM 550
// controllers. All of them can be overridden on Codec for variant devices.
const (
	// DefaultProbe is the beacon payload controllers answer to.
	DefaultProbe = "stdisc"

	// DefaultDelimiter separates fields in the classic response format.
	DefaultDelimiter = "\r\n"

	// DefaultFieldCount is the classic format's field arity:
	// hostname, MAC, device name.
	DefaultFieldCount = 3
)

// Model identifiers reported by known devices.
const (
	Model450 = "MY450"
	Model550 = "STM 550"
)

// model550MinLen is the shortest valid STM 550 record: 7-byte model
// prefix, 9 bytes of status, 17-byte MAC. The name that follows may be
// empty.
const model550MinLen = 33

// Response is one decoded discovery reply, independent of the address it
// arrived from.
type Response struct {
	Hostname string
	MAC      string
	Name     string
	Model    string

	// Extra holds status fields only some models report, keyed by a stable
	// lowercase name (e.g. "temperature" on the STM 550).
	Extra map[string]string
}

// Codec encodes discovery probes and decodes device responses. The zero
// value is not usable; construct one with NewCodec.
type Codec struct {
	// Probe is the outbound beacon payload.
	Probe string

	// Delimiter separates fields in the classic response format.
	Delimiter string

	// FieldCount is the exact number of fields a classic response must
	// contain.
	FieldCount int
}

// NewCodec returns a codec configured with the captured protocol defaults.
func NewCodec() *Codec {
	return &Codec{
		Probe:      DefaultProbe,
		Delimiter:  DefaultDelimiter,
		FieldCount: DefaultFieldCount,
	}
}

// EncodeProbe returns the probe payload. The probe carries no per-request
// state, so every retry sends an identical datagram.
func (c *Codec) EncodeProbe() []byte {
	return []byte(c.Probe)
}

// Decode parses a raw response datagram. Failures are always returned as
// *DecodeError so callers can drop the datagram and keep listening.
func (c *Codec) Decode(raw []byte) (*Response, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Kind: KindEmpty}
	}
	if string(raw) == c.Probe {
		// Our own broadcast, looped back because sender and listeners
		// share the discovery port.
		return nil, &DecodeError{Kind: KindEcho}
	}
	if bytes.HasPrefix(raw, []byte(Model550)) {
		return decodeModel550(raw)
	}
	return c.decodeClassic(raw)
}

// decodeClassic parses the delimiter-separated format used by the MY450
// and earlier models.
func (c *Codec) decodeClassic(raw []byte) (*Response, error) {
	fields := strings.Split(string(raw), c.Delimiter)
	if len(fields) != c.FieldCount {
		return nil, &DecodeError{
			Kind:   KindMalformed,
			Reason: fmt.Sprintf("got %d fields, want %d", len(fields), c.FieldCount),
		}
	}

	hostname := strings.TrimSpace(fields[0])
	if hostname == "" {
		return nil, &DecodeError{Kind: KindMalformed, Reason: "empty hostname field"}
	}

	// Devices pad the name with NULs and spaces to a fixed record size.
	name, _, _ := strings.Cut(fields[2], "\x00")

	// The hostname is "<model>-<suffix>", e.g. "MY450-6340".
	model, _, _ := strings.Cut(hostname, "-")

	return &Response{
		Hostname: hostname,
		MAC:      NormalizeMAC(fields[1]),
		Name:     strings.TrimSpace(name),
		Model:    model,
		Extra:    map[string]string{},
	}, nil
}

// decodeModel550 parses the fixed-offset STM 550 record. Offsets follow
// the captured layout: model[0:7], temperature[7:10], unit[10:11],
// profile[11:12], minutes[12:14], seconds[14:16], MAC[16:33], name[33:].
func decodeModel550(raw []byte) (*Response, error) {
	if len(raw) < model550MinLen {
		return nil, &DecodeError{
			Kind:   KindMalformed,
			Reason: fmt.Sprintf("STM 550 record truncated at %d bytes", len(raw)),
		}
	}

	name, _, _ := strings.Cut(string(raw[33:]), "\x00")

	extra := map[string]string{
		"temperature": strings.TrimSpace(string(raw[7:10])),
		"temp_unit":   string(raw[10:11]),
		"profile":     string(raw[11:12]),
		"minutesleft": strings.TrimSpace(string(raw[12:14])),
		"secondsleft": strings.TrimSpace(string(raw[14:16])),
	}

	return &Response{
		// The 550 does not report a hostname in its announcement.
		Hostname: "Unavailable",
		MAC:      NormalizeMAC(string(raw[16:33])),
		Name:     strings.TrimSpace(name),
		Model:    strings.TrimSpace(string(raw[0:7])),
		Extra:    extra,
	}, nil
}

// NormalizeMAC rewrites a device-reported MAC address into colon-separated
// form with zero-padded octets. Devices report MACs with either "-" or ":"
// separators and sometimes drop leading zeros.
func NormalizeMAC(raw string) string {
	parts := strings.Split(strings.ReplaceAll(strings.TrimSpace(raw), "-", ":"), ":")
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	return strings.Join(parts, ":")
}

package protocol

import (
	"errors"
	"testing"
)

func TestEncodeProbe(t *testing.T) {
	c := NewCodec()

	if got := string(c.EncodeProbe()); got != DefaultProbe {
		t.Errorf("EncodeProbe() = %q, want %q", got, DefaultProbe)
	}

	// The probe is stateless: repeated calls yield identical payloads.
	if string(c.EncodeProbe()) != string(c.EncodeProbe()) {
		t.Error("EncodeProbe() not deterministic")
	}
}

func TestDecodeClassic(t *testing.T) {
	c := NewCodec()

	resp, err := c.Decode([]byte("MY450-6340     \r\n00-1E-C0-38-63-40\r\nMaster Bath\x00   \x00"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if resp.Hostname != "MY450-6340" {
		t.Errorf("Hostname = %q, want %q", resp.Hostname, "MY450-6340")
	}
	if resp.MAC != "00:1E:C0:38:63:40" {
		t.Errorf("MAC = %q, want %q", resp.MAC, "00:1E:C0:38:63:40")
	}
	if resp.Name != "Master Bath" {
		t.Errorf("Name = %q, want %q", resp.Name, "Master Bath")
	}
	if resp.Model != Model450 {
		t.Errorf("Model = %q, want %q", resp.Model, Model450)
	}
	if len(resp.Extra) != 0 {
		t.Errorf("Extra = %v, want empty", resp.Extra)
	}
}

func TestDecodeModel550(t *testing.T) {
	c := NewCodec()

	resp, err := c.Decode([]byte("STM 550 68F1145600-D0-CA-01-A9-41Master Bath\x00\x00\x00\x00\x00\x00\x00"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if resp.Model != Model550 {
		t.Errorf("Model = %q, want %q", resp.Model, Model550)
	}
	if resp.Hostname != "Unavailable" {
		t.Errorf("Hostname = %q, want %q", resp.Hostname, "Unavailable")
	}
	if resp.MAC != "00:D0:CA:01:A9:41" {
		t.Errorf("MAC = %q, want %q", resp.MAC, "00:D0:CA:01:A9:41")
	}
	if resp.Name != "Master Bath" {
		t.Errorf("Name = %q, want %q", resp.Name, "Master Bath")
	}

	want := map[string]string{
		"temperature": "68",
		"temp_unit":   "F",
		"profile":     "1",
		"minutesleft": "14",
		"secondsleft": "56",
	}
	for k, v := range want {
		if resp.Extra[k] != v {
			t.Errorf("Extra[%q] = %q, want %q", k, resp.Extra[k], v)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	c := NewCodec()

	tests := []struct {
		name string
		raw  []byte
		kind DecodeKind
	}{
		{
			name: "empty payload",
			raw:  []byte{},
			kind: KindEmpty,
		},
		{
			name: "nil payload",
			raw:  nil,
			kind: KindEmpty,
		},
		{
			name: "probe echo",
			raw:  []byte(DefaultProbe),
			kind: KindEcho,
		},
		{
			name: "too few fields",
			raw:  []byte("MY450-6340\r\n00-1E-C0-38-63-40"),
			kind: KindMalformed,
		},
		{
			name: "too many fields",
			raw:  []byte("a\r\nb\r\nc\r\nd"),
			kind: KindMalformed,
		},
		{
			name: "unrelated traffic",
			raw:  []byte("M-SEARCH * HTTP/1.1"),
			kind: KindMalformed,
		},
		{
			name: "blank hostname",
			raw:  []byte("   \r\n00-1E-C0-38-63-40\r\nName"),
			kind: KindMalformed,
		},
		{
			name: "truncated 550 record",
			raw:  []byte("STM 550 68F11456"),
			kind: KindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.raw)
			if err == nil {
				t.Fatal("Decode() expected error, got nil")
			}

			var derr *DecodeError
			if !errors.As(err, &derr) {
				t.Fatalf("Decode() error type = %T, want *DecodeError", err)
			}
			if derr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", derr.Kind, tt.kind)
			}
		})
	}
}

func TestDecodeCustomSchema(t *testing.T) {
	// Variant devices use different delimiters and arities; both are
	// configuration, not constants.
	c := &Codec{Probe: "ping", Delimiter: "|", FieldCount: 3}

	resp, err := c.Decode([]byte("MY460-0001|0-1E-C0-38-63-40|Sauna"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if resp.Hostname != "MY460-0001" {
		t.Errorf("Hostname = %q, want %q", resp.Hostname, "MY460-0001")
	}
	if resp.MAC != "00:1E:C0:38:63:40" {
		t.Errorf("MAC = %q, want %q", resp.MAC, "00:1E:C0:38:63:40")
	}
	if resp.Model != "MY460" {
		t.Errorf("Model = %q, want %q", resp.Model, "MY460")
	}
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "dash separated", in: "00-1E-C0-38-63-40", want: "00:1E:C0:38:63:40"},
		{name: "colon separated", in: "00:D0:CA:01:A9:41", want: "00:D0:CA:01:A9:41"},
		{name: "missing leading zeros", in: "0-1E-C0-8-63-40", want: "00:1E:C0:08:63:40"},
		{name: "surrounding whitespace", in: "  00-1E-C0-38-63-40  ", want: "00:1E:C0:38:63:40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMAC(tt.in); got != tt.want {
				t.Errorf("NormalizeMAC(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

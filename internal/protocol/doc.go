// Package protocol implements the port-30303 discovery wire format used
// by Steamist steam-bath controllers.
//
// Discovery is a plaintext handshake: the scanner broadcasts a fixed ASCII
// probe and every listening controller answers with a small datagram
// describing itself. Two response formats exist in the field:
//
//   - Classic format (MY450 and earlier): delimiter-separated ASCII fields,
//     by default three fields split on CRLF - hostname, MAC address and the
//     user-assigned device name, padded with spaces and NUL bytes.
//
//   - STM 550 format: a fixed-offset record prefixed with "STM 550" that
//     additionally carries live status (temperature, active profile,
//     remaining session time) before the MAC and name.
//
// The delimiter, expected field count and probe payload are configuration
// on Codec rather than constants, because variant devices are known to
// deviate from the captured defaults.
//
// Decoding never panics on arbitrary bytes. The shared broadcast port
// carries unrelated traffic (including our own echoed probe), so every
// failure is reported as a *DecodeError with a Kind the caller can inspect
// and drop.
package protocol

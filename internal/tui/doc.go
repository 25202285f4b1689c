// Package tui implements the interactive watch screen for continuous
// discovery.
//
// The screen renders every controller heard so far as a card, updating
// live as announcements arrive: new devices append, re-announcements
// refresh the existing card in place. A spinner and event counter show
// that the listener is alive even when the network is quiet.
//
// The discovery engine feeds the screen through a channel of DeviceEvent
// values; the bubbletea program re-arms a receive command after every
// event, so the UI never polls.
package tui

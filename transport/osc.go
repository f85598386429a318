// Package transport provides TransportClock implementations for the sync
// engine: an oscsync-protocol slave driven by a remote master, and a
// wall-clock manual transport for demos and tests.
package transport

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/scgolang/osc"
	"github.com/scgolang/syncosc"

	syncengine "github.com/e7canasta/cadenza-sync"
)

// OSCClock is a TransportClock slaved to an oscsync master.
//
// Each /sync/pulse advances the accumulated transport time by one pulse
// duration at the pulse's tempo; between pulses Snapshot interpolates from
// the wall clock, capped at one pulse so a silent master freezes the clock
// instead of running ahead.
type OSCClock struct {
	mu          sync.RWMutex
	tempo       float32
	elapsed     float64 // accumulated seconds at the last pulse
	lastPulseAt time.Time
	running     bool
}

// NewOSCClock creates a clock that reports zero until the first pulse.
func NewOSCClock() *OSCClock {
	return &OSCClock{}
}

// Snapshot implements syncengine.TransportClock.
func (c *OSCClock) Snapshot() syncengine.TransportSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elapsed := c.elapsed
	if c.running && c.tempo > 0 {
		pulseDur := syncosc.GetPulseDuration(c.tempo)
		since := time.Since(c.lastPulseAt)
		if since > pulseDur {
			since = pulseDur
		}
		elapsed += since.Seconds()
	}

	return syncengine.TransportSnapshot{
		ElapsedSeconds: elapsed,
		TempoBPM:       float64(c.tempo),
		TimeSignature:  syncengine.TimeSignature{Numerator: 4, Denominator: 4},
	}
}

// Run connects to the oscsync master on host, announces this process as a
// slave and consumes pulses until ctx is cancelled. Blocks for the lifetime
// of the connection.
func (c *OSCClock) Run(ctx context.Context, host string) error {
	local, err := net.ResolveUDPAddr("udp", "0.0.0.0:0")
	if err != nil {
		return errors.Wrap(err, "resolving local address")
	}
	remote, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(syncosc.MasterPort)))
	if err != nil {
		return errors.Wrap(err, "resolving master address")
	}

	conn, err := osc.DialUDPContext(ctx, "udp", local, remote)
	if err != nil {
		return errors.Wrap(err, "connecting to master")
	}

	// Announce ourselves so the master starts pulsing this port.
	portStr := strings.Split(conn.LocalAddr().String(), ":")[1]
	lport, err := strconv.ParseInt(portStr, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "parsing port from %s", portStr)
	}
	if err := conn.Send(osc.Message{
		Address: syncosc.AddressSlaveAdd,
		Arguments: osc.Arguments{
			osc.String("127.0.0.1"),
			osc.Int(int32(lport)),
		},
	}); err != nil {
		return errors.Wrap(err, "sending add-slave message")
	}

	return errors.Wrap(conn.Serve(osc.Dispatcher{
		syncosc.AddressPulse: osc.Method(func(m osc.Message) error {
			pulse, err := syncosc.PulseFromMessage(m)
			if err != nil {
				return errors.Wrap(err, "getting pulse from message")
			}
			c.applyPulse(pulse)
			return nil
		}),
	}), "serving osc")
}

// applyPulse folds one master pulse into the accumulated transport time.
func (c *OSCClock) applyPulse(p syncosc.Pulse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.running && c.tempo > 0 {
		// Close out the interval since the previous pulse at its tempo.
		pulseDur := syncosc.GetPulseDuration(c.tempo)
		since := now.Sub(c.lastPulseAt)
		if since > pulseDur {
			since = pulseDur
		}
		c.elapsed += since.Seconds()
	}
	c.tempo = p.Tempo
	c.lastPulseAt = now
	c.running = true
}

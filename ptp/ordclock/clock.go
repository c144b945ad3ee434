/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ordclock

import (
	"time"

	ptp "github.com/facebook/time/ptp/protocol"
	"github.com/facebook/time/servo"
	log "github.com/sirupsen/logrus"
)

// Clock is the clock-aggregator collaborator: it owns system time/servo,
// aggregates across ports, and is invoked by the core to feed
// synchronization and path delay samples. It is intentionally the only way
// the core touches time discipline -- the core itself never calls into a
// servo or steps a clock directly.
type Clock interface {
	// Identity is this PTP instance's clock identity.
	Identity() ptp.ClockIdentity
	// ParentIdentity is the port identity of the clock this port currently
	// follows. Sync/Follow_Up/Announce processing gates on this.
	ParentIdentity() ptp.PortIdentity
	// SetParentIdentity updates the followed master, called after BMC
	// selection picks a new best foreign clock.
	SetParentIdentity(ptp.PortIdentity)
	// DomainNumber is the PTP domain this instance participates in.
	DomainNumber() uint8
	// Synchronize feeds a reconciled Sync/Follow_Up pair to the servo.
	// t1 is Sync egress at the master, t2 is Sync ingress at this port, c1
	// is the correction field accumulated on the Sync/Follow_Up path. The
	// asymmetry parameter is a hook for a known one-way link asymmetry to
	// subtract before sampling; zero when unknown.
	Synchronize(t1, t2 time.Time, c1 time.Duration, asymmetry time.Duration)
	// PathDelay feeds a completed Delay_Req/Delay_Resp round trip to the
	// servo. t3 is Delay_Req egress at this port, t4 is Delay_Req ingress
	// at the master, correction is the Delay_Resp's correction field.
	PathDelay(t3, t4 time.Time, correction time.Duration)
}

// ServoClock is the default Clock implementation, feeding a servo.PiServo
// the way sptp/client.SPTP.processResults does, generalized from "sample
// once per polling tick" to "sample on every reconciled exchange".
type ServoClock struct {
	identity ptp.ClockIdentity
	domain   uint8
	parent   ptp.PortIdentity
	pi       *servo.PiServo
}

// NewServoClock builds a ServoClock around a freshly constructed PI servo.
func NewServoClock(identity ptp.ClockIdentity, domain uint8, cfg *servo.PiServoCfg, maxFreq float64) *ServoClock {
	base := servo.DefaultServoConfig()
	pi := servo.NewPiServo(base, cfg, 0)
	pi.SetMaxFreq(maxFreq)
	return &ServoClock{identity: identity, domain: domain, pi: pi}
}

// Identity returns the configured clock identity.
func (c *ServoClock) Identity() ptp.ClockIdentity { return c.identity }

// DomainNumber returns the configured PTP domain.
func (c *ServoClock) DomainNumber() uint8 { return c.domain }

// ParentIdentity returns the port identity currently followed.
func (c *ServoClock) ParentIdentity() ptp.PortIdentity { return c.parent }

// SetParentIdentity updates the followed master.
func (c *ServoClock) SetParentIdentity(p ptp.PortIdentity) { c.parent = p }

// Synchronize computes offset = (t2-t1-c1) - asymmetry/2 sampled through
// the PI servo -- only half a known one-way asymmetry belongs in the offset,
// since the other half is already absorbed by the path delay estimate. Unlike
// the two-sided measurement in sptp/client/measurements.go (which also folds
// in the Delay_Req leg), Synchronize and PathDelay are invoked independently
// here because Sync and Delay_Req/Resp exchanges on a multicast port are not
// paired 1:1.
func (c *ServoClock) Synchronize(t1, t2 time.Time, c1 time.Duration, asymmetry time.Duration) {
	offset := t2.Sub(t1) - c1 - asymmetry/2
	freq, state := c.pi.Sample(int64(offset), uint64(t2.UnixNano()))
	log.Debugf("synchronize: offset=%v freq=%v state=%s", offset, freq, state)
}

// PathDelay records a Delay_Req/Delay_Resp round trip. The core does not
// feed this directly into the servo's offset sample (that would double
// count the one-way delay already folded into Synchronize); it is surfaced
// for callers that want a path delay metric or discard-filtering, matching
// the role sptp/client/measurements.go's delay() filter plays upstream.
func (c *ServoClock) PathDelay(t3, t4 time.Time, correction time.Duration) {
	delay := t4.Sub(t3) - correction
	log.Debugf("path_delay: delay=%v", delay)
}

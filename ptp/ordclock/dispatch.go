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
	"net"

	ptp "github.com/facebook/time/ptp/protocol"
)

// Fixed descriptor slots for the two per-port timers; any other fd_index
// passed to PortEvent is a network descriptor and is serviced via the
// port's Transport.
const (
	FDAnnounceTimer = -1
	FDDelayTimer    = -2
)

// ptpPrimaryMulticastIPv6 is the IEEE 1588 default PTP-primary multicast
// group, used for both Delay_Req egress and (via the kernel's multicast
// membership on the bound socket) Delay_Resp/Sync/Announce ingress.
var ptpPrimaryMulticastIPv6 = net.ParseIP("ff0e::181")

// PortEvent translates whatever fired at fdIndex into a state-machine
// Event, ready for Dispatch. fdIndex is either one of the two timer
// sentinels above, or the raw descriptor an external multiplexer reported
// ready -- PortEvent routes that descriptor to the exact channel it belongs
// to (Transport.EventFD or Transport.GeneralFD) rather than guessing.
func (p *Port) PortEvent(fdIndex int) Event {
	switch fdIndex {
	case FDAnnounceTimer:
		if p.hasBest && p.best != nil {
			p.best.clear()
		}
		p.announceTimer.arm(announceTimeout(p.Config))
		p.Stats.incrAnnounceTimeout()
		return EventAnnounceReceiptTimeout

	case FDDelayTimer:
		p.delayTimer.arm(delayReqTimeout(p.Config))
		if err := p.portDelayRequest(ptpPrimaryMulticastIPv6); err != nil {
			p.logf("delay request failed: %v", err)
			return EventFaultDetected
		}
		return EventNone

	case p.Transport.EventFD():
		return p.recvAndProcess(true)

	case p.Transport.GeneralFD():
		return p.recvAndProcess(false)

	default:
		p.logf("unrecognized descriptor index: %d", fdIndex)
		return EventNone
	}
}

// recvAndProcess is the network-descriptor branch of port_event: receive
// from the specific channel the caller named, decode, validate, and
// dispatch by message type, releasing the message's reference before
// returning.
func (p *Port) recvAndProcess(eventChannel bool) Event {
	raw, hwts, err := p.Transport.Recv(eventChannel)
	if err != nil {
		p.logf("recv failed: %v", err)
		return EventFaultDetected
	}

	pkt, err := ptp.DecodePacket(raw)
	if err != nil {
		p.logf("malformed frame: %v", err)
		return EventNone
	}

	msg, err := decodeMessage(pkt, hwts)
	if err != nil {
		p.logf("unsupported message: %v", err)
		return EventNone
	}
	defer msg.Release()

	switch msg.Type {
	case ptp.MessageAnnounce:
		if p.processAnnounce(msg) {
			return EventStateDecision
		}
		return EventNone

	case ptp.MessageSync:
		p.processSync(msg)
		return EventNone

	case ptp.MessageFollowUp:
		p.processFollowUp(msg)
		return EventNone

	case ptp.MessageDelayReq:
		if err := p.processDelayReq(msg, ptpPrimaryMulticastIPv6); err != nil {
			p.logf("delay response send failed: %v", err)
			return EventFaultDetected
		}
		return EventNone

	case ptp.MessageDelayResp:
		p.processDelayResp(msg)
		return EventNone

	default:
		return EventNone
	}
}

// timerPolicy is the §4.5 table of which timers are armed/cleared on
// entering a target state.
func timerPolicy(p *Port, target ptp.PortState) {
	switch target {
	case ptp.PortStateInitializing, ptp.PortStateFaulty, ptp.PortStateDisabled:
		p.announceTimer.clear()
		p.delayTimer.clear()
	case ptp.PortStateListening, ptp.PortStatePassive:
		p.announceTimer.arm(announceTimeout(p.Config))
		p.delayTimer.clear()
	case ptp.PortStatePreMaster, ptp.PortStateMaster, ptp.PortStateGrandMaster:
		p.announceTimer.clear()
		p.delayTimer.clear()
	case ptp.PortStateUncalibrated, ptp.PortStateSlave:
		p.announceTimer.arm(announceTimeout(p.Config))
		p.delayTimer.arm(delayReqTimeout(p.Config))
	}
}

// Dispatch runs the external FSM, performs the INITIALIZING skip-through,
// applies the per-target-state timer policy, and commits the new state.
func (p *Port) Dispatch(event Event) {
	next := p.FSM(p.State, event)

	if next == ptp.PortStateInitializing {
		if err := p.init(); err != nil {
			p.logf("initialization failed: %v", err)
			p.State = ptp.PortStateFaulty
			timerPolicy(p, p.State)
			return
		}
		p.State = ptp.PortStateListening
		timerPolicy(p, p.State)
		return
	}

	if next == p.State {
		return
	}

	timerPolicy(p, next)
	p.State = next
}

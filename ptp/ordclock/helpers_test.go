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
	"errors"
	"testing"
	"time"

	ptp "github.com/facebook/time/ptp/protocol"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// errSendFailed is a stand-in transport/codec failure used across tests that
// exercise the FAULT_DETECTED path.
var errSendFailed = errors.New("send failed")

func testSender(n uint16) ptp.PortIdentity {
	return ptp.PortIdentity{ClockIdentity: ptp.ClockIdentity(0xAAAA000000000000 + uint64(n)), PortNumber: n}
}

// announceMsg builds a ready-to-use Announce Message without going through
// the wire codec, for tests that only care about the core's in-memory
// bookkeeping.
func announceMsg(sender ptp.PortIdentity, seq uint16, prio1 uint8, logInterval int8) *Message {
	msg := newMessage()
	msg.Type = ptp.MessageAnnounce
	msg.SequenceID = seq
	msg.SourcePortIdentity = sender
	msg.LogMessageInterval = ptp.LogInterval(logInterval)
	msg.Announce = &ptp.AnnounceBody{
		GrandmasterPriority1: prio1,
		GrandmasterIdentity:  ptp.ClockIdentity(sender.ClockIdentity),
		GrandmasterPriority2: 128,
		StepsRemoved:         0,
	}
	return msg
}

func syncMsg(sender ptp.PortIdentity, seq uint16, oneStep bool, hwts time.Time, correction time.Duration) *Message {
	msg := newMessage()
	msg.Type = ptp.MessageSync
	msg.SequenceID = seq
	msg.SourcePortIdentity = sender
	msg.OneStep = oneStep
	msg.HWTS = hwts
	msg.Correction = correction
	return msg
}

func followUpMsg(sender ptp.PortIdentity, seq uint16, pdu time.Time, correction time.Duration) *Message {
	msg := newMessage()
	msg.Type = ptp.MessageFollowUp
	msg.SequenceID = seq
	msg.SourcePortIdentity = sender
	msg.Correction = correction
	msg.PDU = ptp.NewTimestamp(pdu)
	return msg
}

func delayRespMsg(requester ptp.PortIdentity, seq uint16, pdu time.Time, correction time.Duration, logInterval int8) *Message {
	msg := newMessage()
	msg.Type = ptp.MessageDelayResp
	msg.SequenceID = seq
	msg.Correction = correction
	msg.PDU = ptp.NewTimestamp(pdu)
	msg.LogMessageInterval = ptp.LogInterval(logInterval)
	msg.DelayResp = &ptp.DelayRespBody{RequestingPortIdentity: requester}
	return msg
}

// testPort builds a Port for tests that exercise foreign-master/processor
// logic without opening any real transport: it skips NewPort's transport
// wiring and goes straight to a usable struct, with now() pinned so prune()
// math is deterministic.
func testPort(t *testing.T, ctrl *gomock.Controller, clk Clock, fsm FSM) *Port {
	t.Helper()
	cfg := DefaultPortConfig()
	cfg.Iface = "lo"
	require.NoError(t, cfg.Validate())
	p, err := NewPort("lo", 1, cfg, clk, NewMockTransport(ctrl), fsm)
	require.NoError(t, err)
	return p
}

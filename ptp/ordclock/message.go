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
	"fmt"
	"sync/atomic"
	"time"

	ptp "github.com/facebook/time/ptp/protocol"
)

// Message is a decoded PTP frame as seen by the per-port core. It wraps the
// wire-level ptp.Packet with the fields the processors actually branch on,
// plus the two timestamps every processor needs: the transport-captured
// hwts and the on-wire pdu carried inside the message body.
//
// Messages are reference counted. Retain acquires a reference, Release
// drops one; a Message whose count reaches zero is eligible for collection.
// There are no cycles: retained references only ever point from Port fields
// (lastSync, lastFollowUp, delayReq, a ForeignClock's queue) down into
// independently allocated Messages.
type Message struct {
	Type                MessageType
	SequenceID          uint16
	SourcePortIdentity  ptp.PortIdentity
	LogMessageInterval  ptp.LogInterval
	Correction          time.Duration
	DomainNumber        uint8
	OneStep             bool
	HWTS                time.Time
	PDU                 ptp.Timestamp
	Announce            *ptp.AnnounceBody
	DelayResp           *ptp.DelayRespBody

	refs int32
}

// MessageType is an alias of ptp.MessageType, so Message.Type compares
// directly against the ptp.Message* constants.
type MessageType = ptp.MessageType

// Retain acquires a reference on msg. Call once per field/queue slot that
// will hold a pointer to msg.
func (m *Message) Retain() {
	atomic.AddInt32(&m.refs, 1)
}

// Release drops a reference acquired by Retain or by newMessage's implicit
// first reference. Releasing more times than retained is a programming
// error in the core and panics: every retained handle must contribute
// exactly one reference.
func (m *Message) Release() {
	if atomic.AddInt32(&m.refs, -1) < 0 {
		panic(fmt.Sprintf("ordclock: over-release of message seq=%d type=%s", m.SequenceID, m.Type))
	}
}

// RefCount reports the current reference count; used by tests to assert the
// retain/release discipline without reaching into unexported fields.
func (m *Message) RefCount() int32 {
	return atomic.LoadInt32(&m.refs)
}

// newMessage allocates a Message with an implicit single reference, as if
// freshly handed out by Codec.Allocate.
func newMessage() *Message {
	return &Message{refs: 1}
}

// decodeMessage turns a decoded ptp.Packet plus its capture timestamp into a
// core Message. The only validation performed here is that the packet
// decoded at all (done by the caller via ptp.DecodePacket) and that its
// type is one this core knows how to process.
func decodeMessage(pkt ptp.Packet, hwts time.Time) (*Message, error) {
	msg := newMessage()
	msg.Type = pkt.MessageType()
	msg.HWTS = hwts

	switch p := pkt.(type) {
	case *ptp.Announce:
		msg.SequenceID = p.SequenceID
		msg.SourcePortIdentity = p.SourcePortIdentity
		msg.LogMessageInterval = p.LogMessageInterval
		msg.Correction = p.CorrectionField.Duration()
		msg.DomainNumber = p.DomainNumber
		body := p.AnnounceBody
		msg.Announce = &body
		msg.PDU = p.OriginTimestamp
	case *ptp.SyncDelayReq:
		msg.SequenceID = p.SequenceID
		msg.SourcePortIdentity = p.SourcePortIdentity
		msg.LogMessageInterval = p.LogMessageInterval
		msg.Correction = p.CorrectionField.Duration()
		msg.DomainNumber = p.DomainNumber
		msg.OneStep = msg.Type == ptp.MessageSync && p.FlagField&ptp.FlagTwoStep == 0
		msg.PDU = p.OriginTimestamp
	case *ptp.FollowUp:
		msg.SequenceID = p.SequenceID
		msg.SourcePortIdentity = p.SourcePortIdentity
		msg.LogMessageInterval = p.LogMessageInterval
		msg.Correction = p.CorrectionField.Duration()
		msg.DomainNumber = p.DomainNumber
		msg.PDU = p.PreciseOriginTimestamp
	case *ptp.DelayResp:
		msg.SequenceID = p.SequenceID
		msg.SourcePortIdentity = p.SourcePortIdentity
		msg.LogMessageInterval = p.LogMessageInterval
		msg.Correction = p.CorrectionField.Duration()
		msg.DomainNumber = p.DomainNumber
		body := p.DelayRespBody
		msg.DelayResp = &body
		msg.PDU = p.ReceiveTimestamp
	default:
		return nil, fmt.Errorf("ordclock: unsupported message type %s", pkt.MessageType())
	}
	return msg, nil
}

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
	"encoding/binary"
	"net"

	ptp "github.com/facebook/time/ptp/protocol"
)

// processAnnounce is the ANNOUNCE row of the state gate table: qualification
// bookkeeping only, never touches the servo.
func (p *Port) processAnnounce(msg *Message) (changed bool) {
	switch p.State {
	case ptp.PortStateListening, ptp.PortStatePreMaster, ptp.PortStateMaster, ptp.PortStateGrandMaster, ptp.PortStatePassive:
		return p.addForeignMaster(msg)
	case ptp.PortStateUncalibrated, ptp.PortStateSlave:
		return p.updateCurrentMaster(msg)
	default:
		return false
	}
}

// Both processSync and processFollowUp take their msg argument borrowed: the
// dispatcher holds the one reference decodeMessage produced and releases it
// after the processor returns. A processor that needs to hold onto the
// message past this call (last_sync, last_follow_up) must Retain its own
// reference before stashing it.

// processSync implements the dual Sync/Follow_Up reconciliation of
// process_sync: a one-step Sync closes on its own, a two-step Sync either
// pairs with an already-arrived Follow_Up or waits as last_sync for one.
func (p *Port) processSync(msg *Message) {
	if msg.SourcePortIdentity != p.Clock.ParentIdentity() {
		return
	}

	if msg.OneStep {
		p.Clock.Synchronize(msg.PDU.Time(), msg.HWTS, msg.Correction, 0)
		return
	}

	if p.lastFollowUp != nil && p.lastFollowUp.SequenceID == msg.SequenceID {
		fu := p.lastFollowUp
		if fu.SourcePortIdentity == msg.SourcePortIdentity {
			p.Clock.Synchronize(fu.PDU.Time(), msg.HWTS, msg.Correction+fu.Correction, 0)
		} else {
			p.Stats.incrSyncMismatch()
		}
		fu.Release()
		p.lastFollowUp = nil
		return
	}

	if p.lastSync != nil {
		p.lastSync.Release()
	}
	msg.Retain()
	p.lastSync = msg
}

// processFollowUp is process_follow_up: the other half of the reconciliation
// pair, handling a Follow_Up that arrives before or after its Sync.
func (p *Port) processFollowUp(msg *Message) {
	if msg.SourcePortIdentity != p.Clock.ParentIdentity() {
		return
	}

	if p.lastSync != nil && p.lastSync.SequenceID == msg.SequenceID {
		sync := p.lastSync
		if sync.SourcePortIdentity == msg.SourcePortIdentity {
			p.Clock.Synchronize(msg.PDU.Time(), sync.HWTS, sync.Correction+msg.Correction, 0)
		} else {
			p.Stats.incrFollowupMismatch()
		}
		sync.Release()
		p.lastSync = nil
		return
	}

	if p.lastFollowUp != nil {
		p.lastFollowUp.Release()
	}
	msg.Retain()
	p.lastFollowUp = msg
}

// processDelayReq is the master-side process_delay_req: build and send a
// Delay_Resp on the general channel, grounded on
// ptp4u/server/subscription.go's initDelayResp/UpdateDelayResp pattern.
func (p *Port) processDelayReq(msg *Message, srcIP net.IP) error {
	if p.State != ptp.PortStateMaster && p.State != ptp.PortStateGrandMaster {
		return nil
	}

	resp := &ptp.DelayResp{
		Header: ptp.Header{
			SdoIDAndMsgType:     ptp.NewSdoIDAndMsgType(ptp.MessageDelayResp, 0),
			Version:             ptp.Version,
			MessageLength:       uint16(binary.Size(ptp.DelayResp{})),
			DomainNumber:        msg.DomainNumber,
			CorrectionField:     ptp.NewCorrection(float64(msg.Correction.Nanoseconds())),
			SourcePortIdentity:  p.PortIdentity,
			SequenceID:          msg.SequenceID,
			ControlField:        3,
			LogMessageInterval:  ptp.LogInterval(p.Config.LogMinDelayReqInterval),
		},
		DelayRespBody: ptp.DelayRespBody{
			ReceiveTimestamp:       ptp.NewTimestamp(msg.HWTS),
			RequestingPortIdentity: msg.SourcePortIdentity,
		},
	}

	b, err := ptp.Bytes(resp)
	if err != nil {
		return err
	}
	_, err = p.Transport.Send(false, srcIP, b)
	return err
}

// portDelayRequest is the slave-side port_delay_request: allocate a
// Delay_Req, send it on the event channel, and hold onto it as
// port.delayReq until a matching Delay_Resp arrives (or it's superseded by
// the next delay-timer fire).
func (p *Port) portDelayRequest(dst net.IP) error {
	req := newMessage()
	req.Type = ptp.MessageDelayReq
	req.SourcePortIdentity = p.PortIdentity
	req.SequenceID = p.nextSeq()
	req.DomainNumber = p.Clock.DomainNumber()

	pkt := &ptp.SyncDelayReq{
		Header: ptp.Header{
			SdoIDAndMsgType:     ptp.NewSdoIDAndMsgType(ptp.MessageDelayReq, 0),
			Version:             ptp.Version,
			MessageLength:       uint16(binary.Size(ptp.SyncDelayReq{})),
			DomainNumber:        req.DomainNumber,
			SourcePortIdentity:  req.SourcePortIdentity,
			SequenceID:          req.SequenceID,
			ControlField:        1,
			LogMessageInterval:  ptp.LogInterval(0x7f),
		},
	}

	b, err := ptp.Bytes(pkt)
	if err != nil {
		req.Release()
		return err
	}

	hwts, err := p.Transport.Send(true, dst, b)
	if err != nil {
		req.Release()
		return err
	}
	req.HWTS = hwts

	if p.delayReq != nil {
		p.delayReq.Release()
	}
	p.delayReq = req
	return nil
}

// processDelayResp is process_delay_resp: match against the outstanding
// delay_req by requester identity and sequence id, then feed the round trip
// to the clock and adopt the response's logMessageInterval, clamped to
// [-10, 10], as the port's delay-request interval.
func (p *Port) processDelayResp(msg *Message) {
	if p.delayReq == nil {
		return
	}
	if p.State != ptp.PortStateUncalibrated && p.State != ptp.PortStateSlave {
		return
	}
	if msg.DelayResp == nil {
		return
	}
	if msg.DelayResp.RequestingPortIdentity != p.delayReq.SourcePortIdentity {
		return
	}
	if msg.SequenceID != p.delayReq.SequenceID {
		return
	}

	p.Clock.PathDelay(p.delayReq.HWTS, msg.PDU.Time(), msg.Correction)

	p.delayReq.Release()
	p.delayReq = nil

	adopted := clampLogInterval(int8(msg.LogMessageInterval))
	if int8(adopted) != p.Config.LogMinDelayReqInterval {
		p.Config.LogMinDelayReqInterval = int8(adopted)
	}
}

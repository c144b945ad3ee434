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

import ptp "github.com/facebook/time/ptp/protocol"

// Event is the input to the state machine's transition function. Events
// produced internally by port_event are documented per constant; the
// remaining ones are delivered by the clock aggregator (e.g. after it runs
// BMC across all ports and decides this port should become RS_MASTER).
type Event uint8

const (
	// EventNone is port_event's "nothing happened worth a transition"
	// sentinel. Dispatch passes it to the FSM like any other event;
	// DefaultFSM maps it to the current state, so no transition follows.
	EventNone Event = iota
	// EventPowerup is delivered once at process start.
	EventPowerup
	// EventInitialize requests a (re-)transition through INITIALIZING.
	EventInitialize
	// EventDesignatedEnabled/EventDesignatedDisabled mirror external
	// port-enable/disable administrative actions.
	EventDesignatedEnabled
	EventDesignatedDisabled
	// EventFaultDetected is produced by PortEvent on send/allocation
	// failure or delivered externally.
	EventFaultDetected
	// EventFaultCleared is delivered externally once the fault condition
	// causing EventFaultDetected has been resolved.
	EventFaultCleared
	// EventStateDecision is produced by addForeignMaster/
	// updateCurrentMaster when qualification state changes, signaling the
	// clock aggregator should re-run BMC.
	EventStateDecision
	// EventMasterClockSelected, EventRSMaster, EventRSGrandMaster,
	// EventRSSlave, EventRSPassive are delivered by the clock aggregator
	// after it runs BMC across all ports.
	EventMasterClockSelected
	EventRSMaster
	EventRSGrandMaster
	EventRSSlave
	EventRSPassive
	// EventQualificationTimeout fires once a port has spent long enough in
	// PRE_MASTER to become MASTER.
	EventQualificationTimeout
	// EventAnnounceReceiptTimeout is produced by PortEvent on announce
	// timer fire.
	EventAnnounceReceiptTimeout
	// EventSynchronizationFault is delivered externally when the local
	// clock discipline detects it can no longer trust its source.
	EventSynchronizationFault
)

// FSM is the external pure transition function collaborator, deliberately
// kept out of this core's scope so the nine-state machine stays reusable
// across port flavors. Port holds one as a field rather than calling a
// package-level function so tests (and alternate port flavors) can inject
// their own.
type FSM func(current ptp.PortState, event Event) ptp.PortState

// DefaultFSM implements the IEEE 1588 ordinary-clock state table, including
// the non-standard GRAND_MASTER state facebook-time's own ptp4l fork adds
// alongside MASTER.
func DefaultFSM(current ptp.PortState, event Event) ptp.PortState {
	if event == EventFaultDetected {
		return ptp.PortStateFaulty
	}
	if event == EventDesignatedDisabled {
		return ptp.PortStateDisabled
	}

	switch current {
	case ptp.PortStateInitializing:
		switch event {
		case EventPowerup, EventInitialize, EventDesignatedEnabled:
			return ptp.PortStateInitializing
		}
	case ptp.PortStateFaulty:
		switch event {
		case EventFaultCleared:
			return ptp.PortStateInitializing
		}
	case ptp.PortStateDisabled:
		switch event {
		case EventDesignatedEnabled:
			return ptp.PortStateInitializing
		}
	case ptp.PortStateListening:
		switch event {
		case EventStateDecision:
			return ptp.PortStateListening
		case EventRSMaster:
			return ptp.PortStatePreMaster
		case EventRSGrandMaster:
			return ptp.PortStateGrandMaster
		case EventRSSlave:
			return ptp.PortStateUncalibrated
		case EventRSPassive:
			return ptp.PortStatePassive
		case EventAnnounceReceiptTimeout:
			return ptp.PortStatePreMaster
		}
	case ptp.PortStatePreMaster:
		switch event {
		case EventQualificationTimeout:
			return ptp.PortStateMaster
		case EventRSSlave:
			return ptp.PortStateUncalibrated
		case EventRSPassive:
			return ptp.PortStatePassive
		}
	case ptp.PortStateMaster, ptp.PortStateGrandMaster:
		switch event {
		case EventRSSlave:
			return ptp.PortStateUncalibrated
		case EventRSPassive:
			return ptp.PortStatePassive
		case EventStateDecision:
			return current
		}
	case ptp.PortStatePassive:
		switch event {
		case EventRSMaster:
			return ptp.PortStatePreMaster
		case EventRSGrandMaster:
			return ptp.PortStateGrandMaster
		case EventRSSlave:
			return ptp.PortStateUncalibrated
		case EventAnnounceReceiptTimeout:
			return ptp.PortStatePreMaster
		}
	case ptp.PortStateUncalibrated:
		switch event {
		case EventMasterClockSelected:
			return ptp.PortStateSlave
		case EventRSMaster:
			return ptp.PortStatePreMaster
		case EventRSPassive:
			return ptp.PortStatePassive
		case EventAnnounceReceiptTimeout:
			return ptp.PortStateListening
		}
	case ptp.PortStateSlave:
		switch event {
		case EventRSMaster:
			return ptp.PortStatePreMaster
		case EventRSPassive:
			return ptp.PortStatePassive
		case EventAnnounceReceiptTimeout:
			return ptp.PortStateListening
		case EventSynchronizationFault:
			return ptp.PortStateUncalibrated
		}
	}
	return current
}

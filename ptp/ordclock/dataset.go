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
	ptp "github.com/facebook/time/ptp/protocol"
	"github.com/facebook/time/ptp/sptp/bmc"
)

// Dataset is the comparison key used by BMC, projected from the newest
// qualifying Announce a ForeignClock has seen.
type Dataset struct {
	Priority1               uint8
	GrandmasterIdentity     ptp.ClockIdentity
	GrandmasterClockQuality ptp.ClockQuality
	Priority2               uint8
	StepsRemoved            uint16
	Sender                  ptp.PortIdentity
	// Receiver is the receiving port's parent identity at the time the
	// dataset was materialized; carried for completeness, not consulted by
	// compareDatasets.
	Receiver ptp.PortIdentity
}

// datasetFromAnnounce projects an Announce message into the ranking fields
// ComputeBest compares candidates on.
func datasetFromAnnounce(msg *Message) Dataset {
	return Dataset{
		Priority1:               msg.Announce.GrandmasterPriority1,
		GrandmasterIdentity:     msg.Announce.GrandmasterIdentity,
		GrandmasterClockQuality: msg.Announce.GrandmasterClockQuality,
		Priority2:               msg.Announce.GrandmasterPriority2,
		StepsRemoved:            msg.Announce.StepsRemoved,
		Sender:                  msg.SourcePortIdentity,
	}
}

// toAnnounce builds a synthetic ptp.Announce carrying just the fields
// bmc.Dscmp/bmc.Dscmp2 examine, so the BMC package's own comparator can run
// directly against a Dataset's values.
func (d Dataset) toAnnounce() *ptp.Announce {
	a := &ptp.Announce{}
	a.Header.SourcePortIdentity = d.Sender
	a.AnnounceBody = ptp.AnnounceBody{
		GrandmasterPriority1:    d.Priority1,
		GrandmasterClockQuality: d.GrandmasterClockQuality,
		GrandmasterPriority2:    d.Priority2,
		GrandmasterIdentity:     d.GrandmasterIdentity,
		StepsRemoved:            d.StepsRemoved,
	}
	return a
}

// compareDatasets returns a positive value when a is better than b, zero
// when neither can be distinguished, negative when b is better, delegating
// to the BMC module's own Announce comparator.
func compareDatasets(a, b Dataset) int {
	return int(bmc.Dscmp(a.toAnnounce(), b.toAnnounce()))
}

// announceCompareKey is the set of Announce body fields the core compares
// to detect a meaningful change in Announces from the same sender:
// {priority1, clockQuality, priority2, grandmasterIdentity, stepsRemoved}.
// OriginTimestamp/CurrentUTCOffset/TimeSource are excluded -- they
// legitimately differ on every Announce and carry no ranking meaning.
type announceCompareKey struct {
	priority1    uint8
	quality      ptp.ClockQuality
	priority2    uint8
	gmIdentity   ptp.ClockIdentity
	stepsRemoved uint16
}

func announceKey(msg *Message) announceCompareKey {
	return announceCompareKey{
		priority1:    msg.Announce.GrandmasterPriority1,
		quality:      msg.Announce.GrandmasterClockQuality,
		priority2:    msg.Announce.GrandmasterPriority2,
		gmIdentity:   msg.Announce.GrandmasterIdentity,
		stepsRemoved: msg.Announce.StepsRemoved,
	}
}

// announceCompare reports whether two Announce messages differ over the
// ranking-relevant fields only.
func announceCompare(a, b *Message) bool {
	return announceKey(a) != announceKey(b)
}

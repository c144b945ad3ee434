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

// addForeignMaster is the admission routine for an Announce received while
// this port is not currently following its sender (LISTENING, PRE_MASTER,
// MASTER, GRAND_MASTER, PASSIVE states per the processor gate table). The
// first Announce from a brand-new sender never qualifies -- IEEE 1588
// deliberately withholds qualification credit on first contact so a single
// forged Announce can't immediately sway BMC.
func (p *Port) addForeignMaster(msg *Message) (changed bool) {
	now := p.now()
	fc, ok := p.foreignMasters[msg.SourcePortIdentity]
	if !ok {
		fc = newForeignClock(msg.SourcePortIdentity)
		p.foreignMasters[msg.SourcePortIdentity] = fc
		p.foreignOrder = append([]ptp.PortIdentity{msg.SourcePortIdentity}, p.foreignOrder...)
		fc.add(msg, now)
		return false
	}

	fc.prune(now)
	brokeThreshold := fc.NMessages() == FOREIGN_MASTER_THRESHOLD-1
	prev := fc.newest()
	fc.add(msg, now)

	diff := false
	if prev != nil {
		diff = announceCompare(msg, prev)
	}
	return brokeThreshold || diff
}

// updateCurrentMaster is used in SLAVE/UNCALIBRATED states for an Announce
// from the port's current parent: it rearms the announce-receipt timer
// (this Announce is proof of life from the clock we follow), then prunes,
// adds, and reports whether the Announce differs from the previous one; unlike
// addForeignMaster it does not report a threshold crossing. An
// Announce from anyone else still goes through the ordinary admission path
// so a rival candidate can accumulate qualification while we're slaved.
func (p *Port) updateCurrentMaster(msg *Message) (changed bool) {
	if !p.hasBest || msg.SourcePortIdentity != p.bestKey {
		return p.addForeignMaster(msg)
	}

	p.announceTimer.arm(announceTimeout(p.Config))

	now := p.now()
	fc := p.foreignMasters[msg.SourcePortIdentity]
	fc.prune(now)
	prev := fc.newest()
	fc.add(msg, now)

	if prev == nil {
		return false
	}
	return announceCompare(msg, prev)
}

// ComputeBest implements the selection pass: prune every record, skip
// the unqualified, and keep only the dataset comparator's pick. Losing
// records have their queue cleared so a candidate that stops
// advertising doesn't linger as "qualified" forever -- it has to
// re-accumulate FOREIGN_MASTER_THRESHOLD Announces to be considered again. A
// record that was qualified before this pass's prune() but isn't afterward
// counts against Stats.QualificationTimeout.
//
// Exported so a clock aggregator running BMC across every port (spec.md §1)
// can force re-selection on this port after a STATE_DECISION_EVENT.
func (p *Port) ComputeBest() *ForeignClock {
	now := p.now()
	var best *ForeignClock
	var bestDataset Dataset

	for _, id := range p.foreignOrder {
		fc, ok := p.foreignMasters[id]
		if !ok {
			continue
		}
		wasQualified := fc.Qualified()
		fc.prune(now)
		if !fc.Qualified() {
			if wasQualified {
				p.Stats.incrQualificationTimeout()
			}
			continue
		}
		newest := fc.newest()
		if newest == nil {
			continue
		}
		dataset := datasetFromAnnounce(newest)
		dataset.Receiver = p.Clock.ParentIdentity()

		if best == nil {
			best, bestDataset = fc, dataset
			continue
		}
		if compareDatasets(dataset, bestDataset) > 0 {
			best.clear()
			best, bestDataset = fc, dataset
			continue
		}
		fc.clear()
	}

	p.best = best
	p.hasBest = best != nil
	if p.hasBest {
		p.bestKey = best.Sender
	}
	return best
}

// BestForeign exposes the current best candidate's dataset, or nil if
// none is qualified -- the read-only counterpart to ComputeBest that a
// clock aggregator uses for cross-port comparison without forcing a
// recomputation.
func (p *Port) BestForeign() *Dataset {
	if !p.hasBest || p.best == nil {
		return nil
	}
	newest := p.best.newest()
	if newest == nil {
		return nil
	}
	d := datasetFromAnnounce(newest)
	d.Receiver = p.Clock.ParentIdentity()
	return &d
}

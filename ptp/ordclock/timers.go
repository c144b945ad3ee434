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

import "time"

// oneShotTimer models one of the two monotonic single-shot timers spec.md
// §4.3 describes (announce-receipt timeout, delay-request timer). It wraps
// time.Timer, stopping and draining the channel before each re-arm so a
// stale fire can never be mistaken for a fresh one -- the arm/clear
// semantics spec.md calls for, adapted from the repeating time.Ticker idiom
// sptp/client's polling loop uses to the spec's one-shot model.
type oneShotTimer struct {
	timer *time.Timer
	armed bool
}

func newOneShotTimer() *oneShotTimer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &oneShotTimer{timer: t}
}

// arm (re)schedules the timer to fire once after d. Arming is idempotent:
// calling arm again before it fires simply reschedules it.
func (t *oneShotTimer) arm(d time.Duration) {
	if t.armed && !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
	t.timer.Reset(d)
	t.armed = true
}

// clear disables the fire. Safe to call whether or not the timer is armed.
func (t *oneShotTimer) clear() {
	if !t.armed {
		return
	}
	if !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
	t.armed = false
}

// C exposes the underlying fire channel for a dispatcher's select loop.
func (t *oneShotTimer) C() <-chan time.Time {
	return t.timer.C
}

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
)

// FOREIGN_MASTER_THRESHOLD is the qualification count from IEEE 1588: a
// foreign master record must have received this many Announce messages
// within the current window before it's eligible for BMC selection.
const FOREIGN_MASTER_THRESHOLD = 2

// announceRecord pairs a retained Announce Message with the host-clock time
// it was captured at, so prune() can evaluate "is current" without
// re-deriving capture time from the message's own (untrusted) timestamps.
type announceRecord struct {
	msg      *Message
	received time.Time
}

// ForeignClock is one remote master candidate: a bounded, time-windowed
// queue of recent Announce messages from a single sender, plus the dataset
// distilled from the newest qualifying one.
type ForeignClock struct {
	Sender   ptp.PortIdentity
	messages []announceRecord // newest at head
	Dataset  Dataset
}

func newForeignClock(sender ptp.PortIdentity) *ForeignClock {
	return &ForeignClock{Sender: sender}
}

// NMessages is len(messages); kept as a method so tests can assert the
// n_messages == len(messages) invariant without reaching into the
// unexported slice directly.
func (f *ForeignClock) NMessages() int {
	return len(f.messages)
}

// Qualified reports whether this record has crossed FOREIGN_MASTER_THRESHOLD.
func (f *ForeignClock) Qualified() bool {
	return len(f.messages) >= FOREIGN_MASTER_THRESHOLD
}

// clear releases every retained message and empties the queue.
func (f *ForeignClock) clear() {
	for _, r := range f.messages {
		r.msg.Release()
	}
	f.messages = nil
}

// isCurrent implements the "current" rule: a message is current iff
// now - capture < 4 * 2^logMessageInterval seconds, the PTP "four announce
// intervals" rule expressed in nanoseconds to avoid precision loss on short
// intervals.
func isCurrent(r announceRecord, now time.Time) bool {
	window := 4 * r.msg.LogMessageInterval.Duration()
	return now.Sub(r.received) < window
}

// prune first trims the queue down to FOREIGN_MASTER_THRESHOLD entries by
// dropping the oldest (tail), then drops any remaining stale tail entries
// that are no longer current.
func (f *ForeignClock) prune(now time.Time) {
	for len(f.messages) > FOREIGN_MASTER_THRESHOLD {
		last := len(f.messages) - 1
		f.messages[last].msg.Release()
		f.messages = f.messages[:last]
	}
	for len(f.messages) > 0 {
		last := len(f.messages) - 1
		if isCurrent(f.messages[last], now) {
			break
		}
		f.messages[last].msg.Release()
		f.messages = f.messages[:last]
	}
}

// add prepends msg at the head of the queue and retains a reference.
// Callers are responsible for pruning before or after, per the admission
// policy on Port.
func (f *ForeignClock) add(msg *Message, now time.Time) {
	msg.Retain()
	f.messages = append([]announceRecord{{msg: msg, received: now}}, f.messages...)
}

// newest returns the head-of-queue message, or nil if empty.
func (f *ForeignClock) newest() *Message {
	if len(f.messages) == 0 {
		return nil
	}
	return f.messages[0].msg
}

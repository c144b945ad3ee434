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

import "sync/atomic"

// ServiceStats carries a subset of ptp4l's PortServiceStats counters, under
// the same field names, without this core needing to speak the management
// wire format itself. DelayTimeout is not incremented anywhere in the core.
type ServiceStats struct {
	AnnounceTimeout      uint64
	QualificationTimeout uint64
	SyncMismatch         uint64
	FollowupMismatch     uint64
	DelayTimeout         uint64
}

// incrAnnounceTimeout and friends use atomic adds so a caller can read
// stats from a different goroutine than the one driving the port's
// single-threaded cooperative dispatch loop, matching spec.md §5's "no
// locking inside the core" rule while still giving outside observers a
// consistent view.
func (s *ServiceStats) incrAnnounceTimeout()      { atomic.AddUint64(&s.AnnounceTimeout, 1) }
func (s *ServiceStats) incrQualificationTimeout() { atomic.AddUint64(&s.QualificationTimeout, 1) }
func (s *ServiceStats) incrSyncMismatch()         { atomic.AddUint64(&s.SyncMismatch, 1) }
func (s *ServiceStats) incrFollowupMismatch()     { atomic.AddUint64(&s.FollowupMismatch, 1) }
func (s *ServiceStats) incrDelayTimeout()         { atomic.AddUint64(&s.DelayTimeout, 1) }

// Snapshot returns a copy safe to read without racing the dispatch loop.
func (s *ServiceStats) Snapshot() ServiceStats {
	return ServiceStats{
		AnnounceTimeout:      atomic.LoadUint64(&s.AnnounceTimeout),
		QualificationTimeout: atomic.LoadUint64(&s.QualificationTimeout),
		SyncMismatch:         atomic.LoadUint64(&s.SyncMismatch),
		FollowupMismatch:     atomic.LoadUint64(&s.FollowupMismatch),
		DelayTimeout:         atomic.LoadUint64(&s.DelayTimeout),
	}
}

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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestForeignClockAddOrdersNewestFirst(t *testing.T) {
	sender := testSender(1)
	fc := newForeignClock(sender)
	base := time.Unix(1000, 0)

	m1 := announceMsg(sender, 1, 128, 0)
	m2 := announceMsg(sender, 2, 128, 0)
	fc.add(m1, base)
	fc.add(m2, base.Add(time.Second))

	require.Equal(t, 2, fc.NMessages())
	require.Equal(t, m2, fc.newest())
	require.EqualValues(t, 2, m1.RefCount())
	require.EqualValues(t, 2, m2.RefCount())
}

func TestForeignClockQualifiedAtThreshold(t *testing.T) {
	sender := testSender(1)
	fc := newForeignClock(sender)
	base := time.Unix(1000, 0)

	require.False(t, fc.Qualified())
	fc.add(announceMsg(sender, 1, 128, 0), base)
	require.False(t, fc.Qualified())
	fc.add(announceMsg(sender, 2, 128, 0), base)
	require.True(t, fc.Qualified())
}

func TestForeignClockPruneTrimsToThreshold(t *testing.T) {
	sender := testSender(1)
	fc := newForeignClock(sender)
	base := time.Unix(1000, 0)

	for i := uint16(0); i < 5; i++ {
		fc.add(announceMsg(sender, i, 128, 10), base)
	}
	require.Equal(t, 5, fc.NMessages())

	fc.prune(base)
	require.Equal(t, FOREIGN_MASTER_THRESHOLD, fc.NMessages())
	require.LessOrEqual(t, fc.NMessages(), FOREIGN_MASTER_THRESHOLD)
}

func TestForeignClockPruneDropsStaleTail(t *testing.T) {
	sender := testSender(1)
	fc := newForeignClock(sender)
	// logMessageInterval=0 -> 1s interval -> "current" window is 4s.
	base := time.Unix(1000, 0)
	stale := announceMsg(sender, 1, 128, 0)
	fresh := announceMsg(sender, 2, 128, 0)

	fc.add(stale, base)
	fc.add(fresh, base.Add(9*time.Second))

	now := base.Add(10 * time.Second)
	fc.prune(now)

	require.Equal(t, 1, fc.NMessages())
	require.Equal(t, fresh, fc.newest())
	for _, r := range fc.messages {
		require.True(t, isCurrent(r, now))
	}
}

func TestForeignClockClearReleasesAndEmpties(t *testing.T) {
	sender := testSender(1)
	fc := newForeignClock(sender)
	base := time.Unix(1000, 0)

	m1 := announceMsg(sender, 1, 128, 0)
	m2 := announceMsg(sender, 2, 128, 0)
	fc.add(m1, base)
	fc.add(m2, base)

	fc.clear()

	require.Equal(t, 0, fc.NMessages())
	require.EqualValues(t, 1, m1.RefCount())
	require.EqualValues(t, 1, m2.RefCount())
}

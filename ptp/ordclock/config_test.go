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

	"github.com/facebook/time/timestamp"
	"github.com/stretchr/testify/require"
)

func TestDefaultPortConfigMatchesWireDefaults(t *testing.T) {
	cfg := DefaultPortConfig()
	require.EqualValues(t, 0, cfg.LogMinDelayReqInterval)
	require.EqualValues(t, 1, cfg.LogAnnounceInterval)
	require.EqualValues(t, 3, cfg.AnnounceReceiptTimeout)
	require.EqualValues(t, 0, cfg.LogSyncInterval)
	require.EqualValues(t, 2, cfg.LogMinPdelayReqInterval)
	require.Equal(t, DelayMechanismE2E, cfg.DelayMechanism)
	require.EqualValues(t, 2, cfg.VersionNumber)
}

func TestPortConfigValidateRequiresIface(t *testing.T) {
	cfg := DefaultPortConfig()
	require.Error(t, cfg.Validate())
	cfg.Iface = "eth0"
	require.NoError(t, cfg.Validate())
}

func TestPortConfigValidateRejectsPeerDelay(t *testing.T) {
	cfg := DefaultPortConfig()
	cfg.Iface = "eth0"
	cfg.DelayMechanism = "p2p"
	require.Error(t, cfg.Validate())
}

func TestPortConfigValidateRejectsZeroAnnounceTimeout(t *testing.T) {
	cfg := DefaultPortConfig()
	cfg.Iface = "eth0"
	cfg.AnnounceReceiptTimeout = 0
	require.Error(t, cfg.Validate())
}

func TestPortConfigValidateRejectsUnsupportedTimestamping(t *testing.T) {
	cfg := DefaultPortConfig()
	cfg.Iface = "eth0"
	cfg.Timestamping = timestamp.SWRX
	require.Error(t, cfg.Validate())
}

func TestPortConfigValidateRejectsNegativeDSCP(t *testing.T) {
	cfg := DefaultPortConfig()
	cfg.Iface = "eth0"
	cfg.DSCP = -1
	require.Error(t, cfg.Validate())
}

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
	"os"

	"github.com/facebook/time/timestamp"
	yaml "gopkg.in/yaml.v2"
)

// delayMechanism mirrors the handful of delayMechanism values ptp4l
// exposes; only E2E is in scope here (P2P is an explicit non-goal).
type delayMechanism string

const (
	// DelayMechanismE2E is the end-to-end (Delay_Req/Delay_Resp) mechanism.
	DelayMechanismE2E delayMechanism = "e2e"
)

// PortConfig carries the protocol interval knobs and transport settings for
// one port.
type PortConfig struct {
	Iface                   string              `yaml:"iface"`
	Timestamping            timestamp.Timestamp `yaml:"timestamping"`
	VersionNumber           uint8               `yaml:"version_number"`
	DelayMechanism          delayMechanism      `yaml:"delay_mechanism"`
	DomainNumber            uint8               `yaml:"domain_number"`
	LogAnnounceInterval     int8                `yaml:"log_announce_interval"`
	AnnounceReceiptTimeout  uint8               `yaml:"announce_receipt_timeout"`
	LogSyncInterval         int8                `yaml:"log_sync_interval"`
	LogMinDelayReqInterval  int8                `yaml:"log_min_delay_req_interval"`
	LogMinPdelayReqInterval int8                `yaml:"log_min_pdelay_req_interval"`
	DSCP                    int                 `yaml:"dscp"`
}

// DefaultPortConfig returns the IEEE 1588 wire-exact default interval values.
func DefaultPortConfig() *PortConfig {
	return &PortConfig{
		Timestamping:            timestamp.HW,
		VersionNumber:           2,
		DelayMechanism:          DelayMechanismE2E,
		LogAnnounceInterval:     1,
		AnnounceReceiptTimeout:  3,
		LogSyncInterval:         0,
		LogMinDelayReqInterval:  0,
		LogMinPdelayReqInterval: 2,
	}
}

// Validate checks the config is sane before a Port is opened with it.
func (c *PortConfig) Validate() error {
	if c.Iface == "" {
		return fmt.Errorf("iface must be specified")
	}
	if c.VersionNumber != 2 {
		return fmt.Errorf("version_number must be 2")
	}
	if c.DelayMechanism != DelayMechanismE2E {
		return fmt.Errorf("delay_mechanism must be %q, peer-delay is not supported", DelayMechanismE2E)
	}
	if c.AnnounceReceiptTimeout == 0 {
		return fmt.Errorf("announce_receipt_timeout must be positive")
	}
	if c.Timestamping != timestamp.HW && c.Timestamping != timestamp.SW {
		return fmt.Errorf("only %q and %q timestamping is supported", timestamp.HW, timestamp.SW)
	}
	if c.DSCP < 0 {
		return fmt.Errorf("dscp must be 0 or positive")
	}
	return nil
}

// ReadPortConfig reads a PortConfig from a yaml file, starting from
// DefaultPortConfig so unset fields keep their defaults.
func ReadPortConfig(path string) (*PortConfig, error) {
	c := DefaultPortConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

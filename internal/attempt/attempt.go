// Package attempt holds the value produced by every hash attempt
package attempt

import (
	"encoding/hex"
	"time"

	"hashquest/pkg/hashing/core"
)

// Outcome is the immutable result of one hash attempt. It is consumed by the
// ledger and the statistics aggregator, then discarded.
type Outcome struct {
	Digest        [core.DigestSize]byte `json:"-"`
	Succeeded     bool                  `json:"succeeded"`
	RewardGranted uint64                `json:"reward_granted"`
	Difficulty    uint32                `json:"difficulty"`
	At            time.Time             `json:"at"`
}

// DigestHex returns the digest as lowercase hex
func (o Outcome) DigestHex() string {
	return hex.EncodeToString(o.Digest[:])
}

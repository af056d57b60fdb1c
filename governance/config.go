package governance

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Errors
var (
	ErrZeroVotingPeriod = errors.New("voting period must be positive")
	ErrBpsOutOfRange    = errors.New("basis points out of range")
)

const bpsDenominator = 10_000

// Config holds the per-instance governance parameters. Quorum and proposal
// threshold are fractions of total share supply, in basis points; the quorum
// formula is configuration, not a hard-coded constant.
type Config struct {
	// QuorumBps is the minimum for-votes for a result to bind, in basis
	// points of total supply.
	QuorumBps uint64

	// ProposalThresholdBps is the minimum voting power required to open a
	// proposal, in basis points of total supply.
	ProposalThresholdBps uint64

	// VotingDelay is the number of checkpoints between proposing and the
	// start of voting.
	VotingDelay uint64

	// VotingPeriod is the length of the voting window, in checkpoints.
	VotingPeriod uint64

	// Guardian may cancel any proposal that has not executed yet. Zero
	// disables the guardian path.
	Guardian common.Address
}

// DefaultConfig returns the GovernorAlpha-style defaults: 4% quorum, 1%
// proposal threshold, one checkpoint of voting delay.
func DefaultConfig() Config {
	return Config{
		QuorumBps:            400,
		ProposalThresholdBps: 100,
		VotingDelay:          1,
		VotingPeriod:         17280,
	}
}

// Validate performs basic validation of the config.
func (cfg Config) Validate() error {
	if cfg.VotingPeriod == 0 {
		return ErrZeroVotingPeriod
	}
	if cfg.QuorumBps > bpsDenominator {
		return fmt.Errorf("%w: quorum %d", ErrBpsOutOfRange, cfg.QuorumBps)
	}
	if cfg.ProposalThresholdBps > bpsDenominator {
		return fmt.Errorf("%w: threshold %d", ErrBpsOutOfRange, cfg.ProposalThresholdBps)
	}
	return nil
}

package voting

import (
	"errors"
	"fmt"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/ethereum/go-ethereum/core/types"
)

// Restore rebuilds the whitelist history and the configuration from logs
// this engine emitted before, in emission order, without emitting them
// again. Proposals are expected to come back through the ProposalStore.
// Restore replaces Initialize on a restarted node.
func (e *Engine) Restore(logs []types.Log) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return ErrAlreadyInitialized
	}

	for _, l := range logs {
		if l.Address != e.address {
			continue
		}

		ev, err := govlog.Decode(l)
		if errors.Is(err, govlog.ErrUnknownEvent) {
			continue
		}

		if err != nil {
			return fmt.Errorf("restoring log %d: %w", l.Index, err)
		}

		switch ev := ev.(type) {
		case *govlog.MembershipChanged:
			if _, err := e.registry.Set(ev.Member, ev.Eligible, l.BlockNumber); err != nil {
				return fmt.Errorf("restoring log %d: %w", l.Index, err)
			}
		case *govlog.ConfigUpdated:
			e.config = Configuration{
				ParticipationRequired: ev.ParticipationRequiredPct,
				SupportRequired:       ev.SupportRequiredPct,
				MinDuration:           ev.MinDuration,
			}
			e.initialized = true
		}
	}

	return nil
}

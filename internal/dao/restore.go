package dao

import (
	"fmt"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/ethereum/go-ethereum/core/types"
)

// Restore replays the permission changes carried by this organization's
// Executed logs. Balances are not restored, deposits are not logged.
func (d *DAO) Restore(logs []types.Log) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, l := range logs {
		if l.Address != d.address || len(l.Topics) == 0 || l.Topics[0] != govlog.ExecutedID {
			continue
		}

		ev, err := govlog.Decode(l)
		if err != nil {
			return fmt.Errorf("restoring log %d: %w", l.Index, err)
		}

		for _, a := range ev.(*govlog.Executed).Actions {
			if a.To != d.address || len(a.Data) == 0 {
				continue
			}

			if _, err := d.selfCall(a.Data); err != nil {
				return fmt.Errorf("restoring log %d: %w", l.Index, err)
			}
		}
	}

	return nil
}

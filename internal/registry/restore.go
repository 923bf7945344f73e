package registry

import (
	"fmt"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/ethereum/go-ethereum/core/types"
)

// Restore replays PluginRepoRegistered logs of this registry.
func (r *Registry) Restore(logs []types.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range logs {
		if l.Address != r.address || len(l.Topics) == 0 || l.Topics[0] != govlog.PluginRepoRegisteredID {
			continue
		}

		ev, err := govlog.Decode(l)
		if err != nil {
			return fmt.Errorf("restoring log %d: %w", l.Index, err)
		}

		e := ev.(*govlog.PluginRepoRegistered)
		if _, ok := r.repos[e.Name]; ok {
			continue
		}

		r.repos[e.Name] = e.PluginRepo
		r.entries = append(r.entries, Entry{Name: e.Name, PluginRepo: e.PluginRepo})
	}

	return nil
}

package webhook

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/citizenwallet/governance/pkg/queue"
	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/ethereum/go-ethereum/core/types"
)

// Processor announces executions, configuration changes and registrations.
type Processor struct {
	ctx context.Context
	wm  queue.WebhookMessager
}

func NewProcessor(ctx context.Context, wm queue.WebhookMessager) *Processor {
	return &Processor{ctx: ctx, wm: wm}
}

func (p *Processor) Process(m queue.Message) error {
	lines := []string{}
	for _, l := range m.Logs {
		line, err := Describe(l)
		if err != nil {
			return err
		}

		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return nil
	}

	return p.wm.Notify(p.ctx, strings.Join(lines, "\n"))
}

// Describe renders the logs worth announcing; others yield "".
func Describe(l types.Log) (string, error) {
	ev, err := govlog.Decode(l)
	if err != nil {
		return "", err
	}

	switch ev := ev.(type) {
	case *govlog.VoteExecuted:
		return fmt.Sprintf("proposal %d executed by %s at block %d", ev.VoteID, l.Address.Hex(), l.BlockNumber), nil
	case *govlog.ConfigUpdated:
		return fmt.Sprintf("%s configuration: participation %s%%, support %s%%, min duration %ds",
			l.Address.Hex(), pct(ev.ParticipationRequiredPct), pct(ev.SupportRequiredPct), ev.MinDuration), nil
	case *govlog.PluginRepoRegistered:
		return fmt.Sprintf("plugin repo %s registered at %s", ev.Name, ev.PluginRepo.Hex()), nil
	case *govlog.Executed:
		return fmt.Sprintf("dao %s performed call %s with %d actions", l.Address.Hex(), ev.CallID, len(ev.Actions)), nil
	}

	return "", nil
}

func pct(v *big.Int) string {
	return new(big.Rat).SetFrac(v, voting.Pct(1)).FloatString(2)
}

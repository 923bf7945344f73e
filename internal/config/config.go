package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/citizenwallet/governance/internal/storage"
	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const GovernanceFile = "governance.json"

type Config struct {
	ChainID          int64  `env:"CHAIN_ID,default=1337"`
	RPCURL           string `env:"RPC_URL,default=http://localhost:8545"`
	APIKEY           string `env:"API_KEY"`
	SentryURL        string `env:"SENTRY_URL"`
	DiscordURL       string `env:"DISCORD_URL"`
	EngineAddress    string `env:"ENGINE_ADDRESS,default=0x00000000000000000000000000000000000000a1"`
	DAOAddress       string `env:"DAO_ADDRESS,default=0x00000000000000000000000000000000000000d0"`
	RegistryAddress  string `env:"REGISTRY_ADDRESS,default=0x00000000000000000000000000000000000000e0"`
	BridgePrivateKey string `env:"BRIDGE_PRIVATE_KEY"`

	Governance *Governance
}

// Governance is the organization described by governance.json
type Governance struct {
	Name    string   `json:"name"`
	Admin   string   `json:"admin"`
	Members []string `json:"members"`

	// thresholds in whole percent
	ParticipationRequired uint64 `json:"participation_required"`
	SupportRequired       uint64 `json:"support_required"`
	MinDuration           uint64 `json:"min_duration"`

	// first block the on-chain indexer reads
	StartBlock uint64 `json:"start_block"`
}

func New(ctx context.Context, envpath, confpath string) (*Config, error) {
	if envpath != "" {
		log.Default().Println("loading env from file: ", envpath)
		err := godotenv.Load(envpath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := envconfig.Process(ctx, cfg)
	if err != nil {
		return nil, err
	}

	for _, addr := range []string{cfg.EngineAddress, cfg.DAOAddress, cfg.RegistryAddress} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: %s", com.ErrInvalidAddress, addr)
		}
	}

	gov := &Governance{}
	err = storage.ReadJSON(filepath.Join(confpath, GovernanceFile), gov)
	if err != nil {
		return nil, err
	}

	if _, err := com.ParseAddress(gov.Admin); err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}

	if _, err := com.ParseAddresses(gov.Members); err != nil {
		return nil, fmt.Errorf("members: %w", err)
	}

	if err := gov.Configuration().Validate(); err != nil {
		return nil, err
	}

	cfg.Governance = gov

	return cfg, nil
}

func (c *Config) Engine() common.Address {
	return common.HexToAddress(c.EngineAddress)
}

func (c *Config) DAO() common.Address {
	return common.HexToAddress(c.DAOAddress)
}

func (c *Config) Registry() common.Address {
	return common.HexToAddress(c.RegistryAddress)
}

// Configuration converts the percent thresholds to fixed point
func (g *Governance) Configuration() voting.Configuration {
	return voting.Configuration{
		ParticipationRequired: voting.Pct(g.ParticipationRequired),
		SupportRequired:       voting.Pct(g.SupportRequired),
		MinDuration:           g.MinDuration,
	}
}

func (g *Governance) AdminAddress() common.Address {
	return common.HexToAddress(g.Admin)
}

func (g *Governance) MemberAddresses() []common.Address {
	addrs, _ := com.ParseAddresses(g.Members)
	return addrs
}

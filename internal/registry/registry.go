package registry

import (
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"

	"github.com/citizenwallet/governance/internal/dao"
	"github.com/citizenwallet/governance/pkg/acl"
	"github.com/citizenwallet/governance/pkg/chain"
	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const MethodRegister = "registerPluginRepo"

const registryABI = `[
	{"type":"function","name":"registerPluginRepo","stateMutability":"nonpayable","inputs":[
		{"name":"name","type":"string"},
		{"name":"pluginRepo","type":"address"}
	],"outputs":[]}
]`

var ABI = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		panic(err)
	}

	return a
}()

var (
	ErrAlreadyRegistered = errors.New("already registered")
	ErrEmptyName         = errors.New("empty name")
	ErrNotPayable        = errors.New("registry does not accept value")
)

type Entry struct {
	Name       string         `json:"name"`
	PluginRepo common.Address `json:"plugin_repo"`
}

// Registry is a directory of plugin repositories keyed by unique name.
type Registry struct {
	mu sync.RWMutex

	address common.Address
	auth    acl.Authorizer
	clock   chain.Clock
	emitter govlog.Emitter

	repos   map[string]common.Address
	entries []Entry
}

func New(address common.Address, auth acl.Authorizer, clock chain.Clock, emitter govlog.Emitter) *Registry {
	if emitter == nil {
		emitter = govlog.Discard{}
	}

	return &Registry{
		address: address,
		auth:    auth,
		clock:   clock,
		emitter: emitter,
		repos:   map[string]common.Address{},
	}
}

func (r *Registry) Address() common.Address {
	return r.address
}

// Register adds name to the directory. The caller needs REGISTER_PERMISSION
// on the registry.
func (r *Registry) Register(caller common.Address, name string, repo common.Address) error {
	l, _, err := r.register(caller, name, repo)
	if err != nil {
		return err
	}

	r.emitter.Emit(l)

	return nil
}

// Call lets the organization register repositories through actions. The
// log is returned instead of emitted.
func (r *Registry) Call(caller common.Address, value *big.Int, data []byte) (*dao.Outcome, error) {
	if value != nil && value.Sign() != 0 {
		return nil, ErrNotPayable
	}

	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short calldata", dao.ErrUnknownMethod)
	}

	method, err := ABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", dao.ErrUnknownMethod, data[:4])
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}

	name := args[0].(string)
	repo := args[1].(common.Address)

	l, undo, err := r.register(caller, name, repo)
	if err != nil {
		return nil, err
	}

	return &dao.Outcome{Output: []byte{}, Logs: []types.Log{l}, Undo: undo}, nil
}

func (r *Registry) register(caller common.Address, name string, repo common.Address) (types.Log, func(), error) {
	if err := acl.Check(r.auth, r.address, caller, acl.RegisterPermissionID); err != nil {
		return types.Log{}, nil, err
	}

	if name == "" {
		return types.Log{}, nil, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.repos[name]; ok {
		return types.Log{}, nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	l, err := govlog.NewPluginRepoRegistered(r.address, r.clock.BlockNumber(), name, repo)
	if err != nil {
		return types.Log{}, nil, err
	}

	r.repos[name] = repo
	r.entries = append(r.entries, Entry{Name: name, PluginRepo: repo})

	log.Default().Printf("plugin repo %s registered at %s\n", name, repo.Hex())

	return l, func() { r.unregister(name) }, nil
}

func (r *Registry) unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.repos, name)
	for i, e := range r.entries {
		if e.Name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
}

func (r *Registry) Lookup(name string) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.repos[name]
	return addr, ok
}

// Entries lists the directory in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Entry{}, r.entries...)
}

// RegisterCalldata encodes a registration for an organization action.
func RegisterCalldata(name string, repo common.Address) ([]byte, error) {
	return ABI.Pack(MethodRegister, name, repo)
}

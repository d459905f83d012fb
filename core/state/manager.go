package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"pactnet/core/types"
	"pactnet/native/arbitration"
	"pactnet/native/bank"
	"pactnet/native/escrow"
	"pactnet/storage"
)

const (
	keyEscrowPrefix     = "escrow/record/"
	keyEscrowCounter    = "escrow/next-id"
	keyArbitratorPrefix = "arbitration/record/"
	keyArbitratorRoster = "arbitration/roster"
	keyAccountPrefix    = "account/"
	keySupplyPrefix     = "supply/"
	keyAllowPrefix      = "token-allow/"
	keyWrappedPrefix    = "swap/wrapped/"
	keyOriginalPrefix   = "swap/original/"
)

// Manager is the typed persistence layer the native engines run on. It maps
// each engine's narrow state interface onto a single key-value backend, with
// records stored as JSON. All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps a key-value database in the typed state surface.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) kvPut(key string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put([]byte(key), encoded)
}

func (m *Manager) kvGet(key string, out interface{}) (bool, error) {
	raw, err := m.db.Get([]byte(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func addrKey(prefix string, addr [20]byte) string {
	return fmt.Sprintf("%s%x", prefix, addr)
}

// EscrowPut persists an escrow record under its identifier.
func (m *Manager) EscrowPut(record *escrow.Escrow) error {
	if record == nil {
		return fmt.Errorf("state: nil escrow record")
	}
	return m.kvPut(fmt.Sprintf("%s%d", keyEscrowPrefix, record.ID), record)
}

// EscrowGet loads an escrow record by identifier.
func (m *Manager) EscrowGet(id uint64) (*escrow.Escrow, bool) {
	var record escrow.Escrow
	ok, err := m.kvGet(fmt.Sprintf("%s%d", keyEscrowPrefix, id), &record)
	if err != nil || !ok {
		return nil, false
	}
	return &record, true
}

// NextEscrowID allocates the next monotonically increasing escrow identifier,
// starting at 1.
func (m *Manager) NextEscrowID() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current uint64
	if _, err := m.kvGet(keyEscrowCounter, &current); err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.kvPut(keyEscrowCounter, next); err != nil {
		return 0, err
	}
	return next, nil
}

// ArbitratorPut persists an arbitrator record and appends it to the roster
// index on first write. Roster order is registration order.
func (m *Manager) ArbitratorPut(record *arbitration.Arbitrator) error {
	if record == nil {
		return fmt.Errorf("state: nil arbitrator record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := addrKey(keyArbitratorPrefix, record.Addr)
	known, err := m.db.Has([]byte(key))
	if err != nil {
		return err
	}
	if !known {
		var roster [][20]byte
		if _, err := m.kvGet(keyArbitratorRoster, &roster); err != nil {
			return err
		}
		roster = append(roster, record.Addr)
		if err := m.kvPut(keyArbitratorRoster, roster); err != nil {
			return err
		}
	}
	return m.kvPut(key, record)
}

// ArbitratorGet loads an arbitrator record by address.
func (m *Manager) ArbitratorGet(addr [20]byte) (*arbitration.Arbitrator, bool) {
	var record arbitration.Arbitrator
	ok, err := m.kvGet(addrKey(keyArbitratorPrefix, addr), &record)
	if err != nil || !ok {
		return nil, false
	}
	return &record, true
}

// ArbitratorList returns the roster addresses in registration order.
func (m *Manager) ArbitratorList() ([][20]byte, error) {
	var roster [][20]byte
	if _, err := m.kvGet(keyArbitratorRoster, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// GetAccount loads the account stored under addr, returning a zeroed account
// when none exists yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := types.NewAccount()
	ok, err := m.kvGet(addrKey(keyAccountPrefix, addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewAccount(), nil
	}
	account.Normalize()
	return account, nil
}

// PutAccount persists an account under addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	account.Normalize()
	return m.kvPut(addrKey(keyAccountPrefix, addr), account)
}

// VaultAddress derives the module account holding deposits of the supplied
// asset. The derivation is deterministic so every node agrees on vault
// locations without coordination.
func (m *Manager) VaultAddress(asset bank.Asset) ([20]byte, error) {
	if !asset.Valid() {
		return [20]byte{}, bank.ErrInvalidAsset
	}
	preimage := fmt.Sprintf("pactnet/vault/%d/%s", asset.Kind, strings.ToLower(asset.Symbol()))
	digest := ethcrypto.Keccak256([]byte(preimage))
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr, nil
}

// WrappedSupply returns the outstanding supply of a wrapped token.
func (m *Manager) WrappedSupply(token string) (*big.Int, error) {
	supply := new(big.Int)
	ok, err := m.kvGet(keySupplyPrefix+token, supply)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return supply, nil
}

// SetWrappedSupply records the outstanding supply of a wrapped token.
func (m *Manager) SetWrappedSupply(token string, supply *big.Int) error {
	if supply == nil || supply.Sign() < 0 {
		return fmt.Errorf("state: invalid supply for %s", token)
	}
	return m.kvPut(keySupplyPrefix+token, supply)
}

// TokenAllowed reports whether a token is on the escrow allow-list.
func (m *Manager) TokenAllowed(token string) bool {
	normalized, err := bank.NormalizeToken(token)
	if err != nil {
		return false
	}
	var allowed bool
	ok, err := m.kvGet(keyAllowPrefix+normalized, &allowed)
	if err != nil || !ok {
		return false
	}
	return allowed
}

// TokenAllowlistSet adds or removes a token from the escrow allow-list.
func (m *Manager) TokenAllowlistSet(token string, allowed bool) error {
	normalized, err := bank.NormalizeToken(token)
	if err != nil {
		return err
	}
	return m.kvPut(keyAllowPrefix+normalized, allowed)
}

// WrappedPairPut records the bidirectional mapping between an original token
// and its wrapped representation.
func (m *Manager) WrappedPairPut(original, wrapped string) error {
	if err := m.kvPut(keyWrappedPrefix+original, wrapped); err != nil {
		return err
	}
	return m.kvPut(keyOriginalPrefix+wrapped, original)
}

// WrappedTokenGet resolves the wrapped representation of an original token.
func (m *Manager) WrappedTokenGet(original string) (string, bool, error) {
	var wrapped string
	ok, err := m.kvGet(keyWrappedPrefix+original, &wrapped)
	return wrapped, ok, err
}

// OriginalTokenGet resolves the original token behind a wrapped symbol.
func (m *Manager) OriginalTokenGet(wrapped string) (string, bool, error) {
	var original string
	ok, err := m.kvGet(keyOriginalPrefix+wrapped, &original)
	return original, ok, err
}

// ParamStoreSet persists an opaque governance parameter blob. Names carry
// their own namespace prefix (see native/params keys).
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	return m.db.Put([]byte(name), value)
}

// ParamStoreGet loads a governance parameter blob by name.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	raw, err := m.db.Get([]byte(name))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Package store provides an in-memory ledger.TxStore for tests and dev.
package store

import (
	"context"
	"sync"

	"github.com/juanbytes/campuspay/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	accounts map[ledger.AccountID]*ledger.Account
	entries  []ledger.Entry
	nextID   ledger.EntryID
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[ledger.AccountID]*ledger.Account),
		nextID:   1,
	}
}

// CreateAccount registers an account at balance 0. Test setup helper;
// in production registration goes through the sqlite store.
func (m *Memory) CreateAccount(id ledger.AccountID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = &ledger.Account{ID: id, Balance: ledger.Zero()}
}

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) getLocked(id ledger.AccountID) (*ledger.Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *Memory) UpdateBalance(_ context.Context, id ledger.AccountID, balance ledger.Amount, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(id, balance, expectedVersion)
}

func (m *Memory) updateLocked(id ledger.AccountID, balance ledger.Amount, expectedVersion int) error {
	acc, ok := m.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	if acc.Version != expectedVersion {
		return ledger.ErrConcurrentModification
	}
	acc.Balance = balance
	acc.Version++
	return nil
}

func (m *Memory) AppendEntry(_ context.Context, e ledger.Entry) (ledger.EntryID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

func (m *Memory) appendLocked(e ledger.Entry) (ledger.EntryID, error) {
	e.ID = m.nextID
	m.nextID++
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *Memory) EntriesFor(_ context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.Recipient == id || (e.Sender != nil && *e.Sender == id) {
			result = append(result, e)
		}
	}
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a
// snapshot + rollback on error.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts map[ledger.AccountID]*ledger.Account
	entries  []ledger.Entry
	nextID   ledger.EntryID
}

func (tm *TxMemory) snapshot() memorySnapshot {
	accounts := make(map[ledger.AccountID]*ledger.Account, len(tm.accounts))
	for id, acc := range tm.accounts {
		cp := *acc
		accounts[id] = &cp
	}
	entries := append([]ledger.Entry{}, tm.entries...)
	return memorySnapshot{accounts: accounts, entries: entries, nextID: tm.nextID}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.accounts = s.accounts
	tm.entries = s.entries
	tm.nextID = s.nextID
}

// txMemoryView reaches the parent's state without re-taking its mutex.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return tv.parent.getLocked(id)
}

func (tv *txMemoryView) UpdateBalance(_ context.Context, id ledger.AccountID, balance ledger.Amount, expectedVersion int) error {
	return tv.parent.updateLocked(id, balance, expectedVersion)
}

func (tv *txMemoryView) AppendEntry(_ context.Context, e ledger.Entry) (ledger.EntryID, error) {
	return tv.parent.appendLocked(e)
}

func (tv *txMemoryView) EntriesFor(_ context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	var result []ledger.Entry
	for i := len(tv.parent.entries) - 1; i >= 0; i-- {
		e := tv.parent.entries[i]
		if e.Recipient == id || (e.Sender != nil && *e.Sender == id) {
			result = append(result, e)
		}
	}
	return result, nil
}

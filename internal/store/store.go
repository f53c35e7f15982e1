// Package store owns all position state. Every mutation passes through the
// Store; other components only ever see deep copies.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/nightowl-labs/signal-trader/internal/types"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Store maps symbols to positions. Mutations on the same symbol are
// serialized by a per-symbol lock; operations on different symbols proceed
// independently. The global lock only guards slot lookup and creation.
type Store struct {
	mu    sync.RWMutex
	slots map[types.Symbol]*slot
}

type slot struct {
	mu       sync.Mutex
	position types.Position
}

// NewStore creates an empty position store.
func NewStore() *Store {
	return &Store{
		slots: make(map[types.Symbol]*slot),
	}
}

// OpenOrIncrease records a buy fill. It is the only way a position comes
// into existence; repeated buys accumulate the amount and append to the
// order history rather than overwriting.
func (s *Store) OpenOrIncrease(symbol types.Symbol, order types.Order) types.Position {
	sl := s.slot(symbol, true)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.position.Open() {
		// First buy, or a re-entry after the previous cycle closed.
		sl.position.OpenedAt = time.Now()
		sl.position.ClosedAt = optional.None[time.Time]()
	}

	sl.position.Amount = sl.position.Amount.Add(order.Quantity)
	sl.position.Orders = append(sl.position.Orders, order)

	return sl.position.Clone()
}

// RecordStoploss attaches a protective order to an open position.
func (s *Store) RecordStoploss(symbol types.Symbol, order types.Order) error {
	sl := s.slot(symbol, false)
	if sl == nil {
		return errors.Newf(errors.ErrCodePositionNotFound, "no position for %s", symbol)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.position.Open() {
		return errors.Newf(errors.ErrCodePositionNotFound, "position for %s holds nothing to protect", symbol)
	}

	sl.position.Stoploss = optional.Some(order)

	return nil
}

// ClearStoploss removes the protective order reference, if any.
func (s *Store) ClearStoploss(symbol types.Symbol) {
	sl := s.slot(symbol, false)
	if sl == nil {
		return
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.position.Stoploss = optional.None[types.Order]()
}

// StoplossOrder returns the currently recorded protective order, if any.
func (s *Store) StoplossOrder(symbol types.Symbol) (types.Order, bool) {
	sl := s.slot(symbol, false)
	if sl == nil {
		return types.Order{}, false
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.position.Stoploss.IsNone() {
		return types.Order{}, false
	}

	return sl.position.Stoploss.Unwrap(), true
}

// AppendOrder appends an order to the position's history without touching
// the held amount. Used to record a protective order whose cancellation
// failed, so the final snapshot still shows it.
func (s *Store) AppendOrder(symbol types.Symbol, order types.Order) error {
	sl := s.slot(symbol, false)
	if sl == nil {
		return errors.Newf(errors.ErrCodePositionNotFound, "no position for %s", symbol)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.position.Orders = append(sl.position.Orders, order)

	return nil
}

// ClosePosition records the sell that retires the position: the amount drops
// to zero, the sell is appended, and any stoploss reference is cleared. The
// record itself is kept for snapshotting.
func (s *Store) ClosePosition(symbol types.Symbol, sellOrder types.Order) (types.Position, error) {
	sl := s.slot(symbol, false)
	if sl == nil {
		return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "no position for %s", symbol)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.position.Open() {
		return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "position for %s is already closed", symbol)
	}

	sl.position.Amount = decimal.Zero
	sl.position.Orders = append(sl.position.Orders, sellOrder)
	sl.position.Stoploss = optional.None[types.Order]()
	sl.position.ClosedAt = optional.Some(time.Now())

	return sl.position.Clone(), nil
}

// Get returns a deep copy of the position for a symbol.
func (s *Store) Get(symbol types.Symbol) (types.Position, bool) {
	sl := s.slot(symbol, false)
	if sl == nil {
		return types.Position{}, false
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.position.Clone(), true
}

// SnapshotAll returns deep copies of every tracked position, open and closed
// alike, ordered by symbol.
func (s *Store) SnapshotAll() []types.Position {
	s.mu.RLock()
	symbols := make([]types.Symbol, 0, len(s.slots))
	for symbol := range s.slots {
		symbols = append(symbols, symbol)
	}
	s.mu.RUnlock()

	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	positions := make([]types.Position, 0, len(symbols))

	for _, symbol := range symbols {
		if position, ok := s.Get(symbol); ok {
			positions = append(positions, position)
		}
	}

	return positions
}

func (s *Store) slot(symbol types.Symbol, create bool) *slot {
	s.mu.RLock()
	sl, ok := s.slots[symbol]
	s.mu.RUnlock()

	if ok || !create {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sl, ok = s.slots[symbol]; ok {
		return sl
	}

	sl = &slot{
		position: types.Position{
			Symbol:   symbol,
			Amount:   decimal.Zero,
			Orders:   nil,
			Stoploss: optional.None[types.Order](),
			OpenedAt: time.Time{},
			ClosedAt: optional.None[time.Time](),
		},
	}
	s.slots[symbol] = sl

	return sl
}

// Package lifecycle drives the buy, hold, sell cycle of every signalled
// symbol. Cycles for different symbols run concurrently; cycles for the same
// symbol are queued and run one at a time.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/nightowl-labs/signal-trader/internal/gateway"
	"github.com/nightowl-labs/signal-trader/internal/logger"
	"github.com/nightowl-labs/signal-trader/internal/persistence"
	"github.com/nightowl-labs/signal-trader/internal/signal"
	"github.com/nightowl-labs/signal-trader/internal/sizer"
	"github.com/nightowl-labs/signal-trader/internal/stoploss"
	"github.com/nightowl-labs/signal-trader/internal/store"
	"github.com/nightowl-labs/signal-trader/internal/types"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CycleState names the phases a trade cycle moves through.
type CycleState string

const (
	StateIdle    CycleState = "IDLE"
	StateBuying  CycleState = "BUYING"
	StateHolding CycleState = "HOLDING"
	StateSelling CycleState = "SELLING"
	StateClosed  CycleState = "CLOSED"
	// StateAborted marks a cycle that stopped before its sell, either from a
	// failure or a shutdown during the hold. The position stays open.
	StateAborted CycleState = "ABORTED"
)

// Queued signals per symbol beyond the running cycle. Overflow is dropped.
const queueDepth = 16

// OnCycleStartCallback is called when a cycle begins for a symbol.
type OnCycleStartCallback func(symbol types.Symbol)

// OnOrderPlacedCallback is called after every order the cycle places.
type OnOrderPlacedCallback func(order types.Order)

// OnCycleEndCallback is called with the closed position when a cycle completes.
type OnCycleEndCallback func(position types.Position)

// OnErrorCallback is called when a cycle fails or a snapshot cannot be written.
type OnErrorCallback func(symbol types.Symbol, err error)

// Callbacks holds the lifecycle hooks. All fields are pointers, nil means no
// callback is invoked.
type Callbacks struct {
	OnCycleStart  *OnCycleStartCallback
	OnOrderPlaced *OnOrderPlacedCallback
	OnCycleEnd    *OnCycleEndCallback
	OnError       *OnErrorCallback
}

// Config holds the per-cycle trading parameters.
type Config struct {
	// Budget is the notional spent per buy, already scaled for safe mode.
	Budget decimal.Decimal
	// HoldDuration is how long a cycle holds between its buy and its sell.
	HoldDuration time.Duration
	// StoplossEnabled places a protective limit sell after each buy.
	StoplossEnabled bool
	// StoplossFraction scales the entry price to the stop price.
	StoplossFraction decimal.Decimal
	// LotPrecision is the number of decimal places allowed on quantities.
	LotPrecision int32
}

// Orchestrator consumes chat signals and runs a trade cycle per signal.
type Orchestrator struct {
	config    Config
	gateway   gateway.Gateway
	store     *store.Store
	stoploss  *stoploss.Manager
	sink      persistence.Sink
	logger    *logger.Logger
	callbacks Callbacks

	mu     sync.Mutex
	queues map[types.Symbol]chan struct{}
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewOrchestrator wires the cycle dependencies together.
func NewOrchestrator(config Config, gw gateway.Gateway, st *store.Store, sl *stoploss.Manager, sink persistence.Sink, log *logger.Logger, callbacks Callbacks) *Orchestrator {
	return &Orchestrator{
		config:    config,
		gateway:   gw,
		store:     st,
		stoploss:  sl,
		sink:      sink,
		logger:    log,
		callbacks: callbacks,
		queues:    make(map[types.Symbol]chan struct{}),
		stop:      make(chan struct{}),
	}
}

// Run consumes messages from the source until the context is cancelled or the
// source closes, then waits for running cycles and writes a final snapshot of
// every position.
func (o *Orchestrator) Run(ctx context.Context, source signal.Source) error {
	messages, err := source.Listen(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return o.shutdown()
		case message, ok := <-messages:
			if !ok {
				return o.shutdown()
			}

			o.HandleSignal(ctx, message.Text)
		}
	}
}

// HandleSignal parses a chat message and queues a cycle for the signalled
// symbol. Messages without a ticker token are ignored.
func (o *Orchestrator) HandleSignal(ctx context.Context, text string) {
	symbol, err := signal.Parse(text)
	if err != nil {
		o.logger.Debug("no tradable signal", zap.String("text", text), zap.Error(err))

		return
	}

	o.logger.Info("signal received", zap.String("symbol", string(symbol)))
	o.dispatch(ctx, symbol)
}

func (o *Orchestrator) dispatch(ctx context.Context, symbol types.Symbol) {
	o.mu.Lock()

	queue, ok := o.queues[symbol]
	if !ok {
		queue = make(chan struct{}, queueDepth)
		o.queues[symbol] = queue

		o.wg.Add(1)

		go o.worker(ctx, symbol, queue)
	}

	o.mu.Unlock()

	select {
	case queue <- struct{}{}:
	default:
		o.logger.Warn("signal queue full, dropping", zap.String("symbol", string(symbol)))
	}
}

// worker serializes cycles for one symbol. It exits on shutdown or context
// cancellation, finishing the cycle in flight first.
func (o *Orchestrator) worker(ctx context.Context, symbol types.Symbol, queue chan struct{}) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stop:
			return
		case <-queue:
			o.runCycle(ctx, symbol)
		}
	}
}

func (o *Orchestrator) runCycle(ctx context.Context, symbol types.Symbol) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("cycle panicked",
				zap.String("symbol", string(symbol)),
				zap.Bool("critical", true),
				zap.Any("panic", r),
				zap.Stack("stack"))
			o.fail(symbol, StateIdle, errors.Newf(errors.ErrCodeUnknown, "cycle for %s panicked: %v", symbol, r))
		}
	}()

	o.invokeCycleStart(symbol)
	o.transition(symbol, StateIdle, StateBuying)

	quote, err := o.gateway.Quote(ctx, symbol)
	if err != nil {
		o.fail(symbol, StateBuying, err)

		return
	}

	quantity, err := sizer.Quantity(quote.Price, o.config.Budget, o.config.LotPrecision)
	if err != nil {
		o.fail(symbol, StateBuying, err)

		return
	}

	buy, err := o.gateway.PlaceMarketOrder(ctx, symbol, types.SideBuy, quantity)
	if err != nil {
		o.fail(symbol, StateBuying, err)

		return
	}

	position := o.store.OpenOrIncrease(symbol, buy)
	o.invokeOrderPlaced(buy)
	o.persist(ctx, position)

	// Protect and later sell the full held amount, not just this cycle's buy.
	// A previous aborted sell leaves holdings behind that the position still
	// carries; selling less would strand them at the venue unrecorded.
	held := position.Amount

	if o.config.StoplossEnabled {
		stop, err := o.stoploss.Protect(ctx, symbol, held, quote.Price, o.config.StoplossFraction)
		if err != nil {
			// The buy stands. The cycle holds and sells unprotected.
			o.logger.Warn("stoploss placement failed, holding unprotected",
				zap.String("symbol", string(symbol)),
				zap.Error(err))
			o.invokeError(symbol, err)
		} else {
			o.invokeOrderPlaced(stop)

			if current, ok := o.store.Get(symbol); ok {
				o.persist(ctx, current)
			}
		}
	}

	o.transition(symbol, StateBuying, StateHolding)

	if !o.hold(ctx, symbol) {
		return
	}

	o.transition(symbol, StateHolding, StateSelling)
	o.sell(ctx, symbol, held)
}

// hold waits out the configured duration. It returns false when the context
// was cancelled first, leaving the position open for the shutdown snapshot.
func (o *Orchestrator) hold(ctx context.Context, symbol types.Symbol) bool {
	timer := time.NewTimer(o.config.HoldDuration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		o.transition(symbol, StateHolding, StateAborted)

		return false
	}
}

// sell places the market sell, releases the protective order and closes the
// position. The venue sees the sell before the cancel so the exposure window
// stays covered until the holdings are gone.
func (o *Orchestrator) sell(ctx context.Context, symbol types.Symbol, quantity decimal.Decimal) {
	sellOrder, err := o.gateway.PlaceMarketOrder(ctx, symbol, types.SideSell, quantity)
	if err != nil {
		o.fail(symbol, StateSelling, err)

		return
	}

	o.invokeOrderPlaced(sellOrder)

	if err := o.stoploss.Release(ctx, symbol); err != nil {
		// The dangling order is already recorded on the position.
		o.invokeError(symbol, err)
	}

	position, err := o.store.ClosePosition(symbol, sellOrder)
	if err != nil {
		o.fail(symbol, StateSelling, err)

		return
	}

	o.transition(symbol, StateSelling, StateClosed)
	o.persist(ctx, position)
	o.invokeCycleEnd(position)
}

func (o *Orchestrator) fail(symbol types.Symbol, from CycleState, err error) {
	o.transition(symbol, from, StateAborted)
	o.logger.Error("cycle failed",
		zap.String("symbol", string(symbol)),
		zap.Error(err))
	o.invokeError(symbol, err)
}

func (o *Orchestrator) persist(ctx context.Context, position types.Position) {
	if err := o.sink.Persist(ctx, position); err != nil {
		o.logger.Error("writing snapshot",
			zap.String("symbol", string(position.Symbol)),
			zap.Error(err))
		o.invokeError(position.Symbol, err)
	}
}

func (o *Orchestrator) transition(symbol types.Symbol, from, to CycleState) {
	o.logger.Info("cycle state",
		zap.String("symbol", string(symbol)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
}

// shutdown waits for running cycles and dumps every known position.
func (o *Orchestrator) shutdown() error {
	close(o.stop)
	o.wg.Wait()

	positions := o.store.SnapshotAll()
	if len(positions) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.sink.PersistAll(ctx, positions); err != nil {
		return errors.Wrap(errors.ErrCodeSnapshotWrite, "writing final snapshot", err)
	}

	o.logger.Info("final snapshot written", zap.Int("positions", len(positions)))

	return nil
}

func (o *Orchestrator) invokeCycleStart(symbol types.Symbol) {
	if o.callbacks.OnCycleStart != nil {
		(*o.callbacks.OnCycleStart)(symbol)
	}
}

func (o *Orchestrator) invokeOrderPlaced(order types.Order) {
	if o.callbacks.OnOrderPlaced != nil {
		(*o.callbacks.OnOrderPlaced)(order)
	}
}

func (o *Orchestrator) invokeCycleEnd(position types.Position) {
	if o.callbacks.OnCycleEnd != nil {
		(*o.callbacks.OnCycleEnd)(position)
	}
}

func (o *Orchestrator) invokeError(symbol types.Symbol, err error) {
	if o.callbacks.OnError != nil {
		(*o.callbacks.OnError)(symbol, err)
	}
}

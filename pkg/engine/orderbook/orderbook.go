// Package orderbook implements a per-symbol limit order book with
// price-time priority matching. Price levels are tracked in heaps for
// O(1) best-price peeks; orders within a level queue FIFO by arrival.
package orderbook

import (
	"container/heap"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// PriceLevel is an aggregated view of one price, used by the
// inspection API.
type PriceLevel struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"quantity"`
}

// OrderBook holds the resting orders of a single symbol. All mutating
// operations take the book mutex for their whole read-modify-write
// span: create, cancel and the matching loop they trigger never
// interleave, so no observer can see a crossed book.
type OrderBook struct {
	mu     sync.Mutex
	symbol string

	bidHeap *MaxPriceHeap
	askHeap *MinPriceHeap

	// price -> FIFO queue of resting orders at that price
	bids map[int64][]*Order
	asks map[int64][]*Order

	// id -> resting order, both sides; doubles as the duplicate-id guard
	orders map[uint64]*Order

	log *zap.SugaredLogger
}

func New(symbol string, log *zap.SugaredLogger) *OrderBook {
	bidHeap := &MaxPriceHeap{}
	askHeap := &MinPriceHeap{}
	heap.Init(bidHeap)
	heap.Init(askHeap)

	return &OrderBook{
		symbol:  symbol,
		bidHeap: bidHeap,
		askHeap: askHeap,
		bids:    make(map[int64][]*Order),
		asks:    make(map[int64][]*Order),
		orders:  make(map[uint64]*Order),
		log:     log.Named("book").With("symbol", symbol),
	}
}

func (ob *OrderBook) Symbol() string { return ob.symbol }

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// CreateOrder inserts a limit order and matches it against the opposite
// side to exhaustion. A remainder rests on the order's own side and
// produces a NEW event; a fully matched order never rests and produces
// none. Fails with ErrDuplicateOrder, leaving the book untouched, when
// the id is already present.
func (ob *OrderBook) CreateOrder(o *Order) ([]Event, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if _, ok := ob.orders[o.ID]; ok {
		return nil, ErrDuplicateOrder
	}

	events := ob.match(o, true)

	if o.Qty > 0 {
		ob.rest(o)
		events = append(events, Event{Kind: ReportNew, Order: o, Qty: o.Qty})
	} else {
		o.Status = StatusFilled
	}

	ob.log.Debugw("order_created", "order_id", o.ID, "side", o.Side.String(),
		"price", o.Price, "leaves", o.Qty)
	return events, nil
}

// MarketOrder sweeps the opposite side at any price until the order is
// filled or the side is empty. The remainder, if any, is discarded:
// market orders never rest and never produce a NEW event.
func (ob *OrderBook) MarketOrder(o *Order) []Event {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	events := ob.match(o, false)
	o.Status = StatusFilled

	ob.log.Debugw("market_order", "side", o.Side.String(), "leaves_discarded", o.Qty)
	return events
}

// match runs the continuous matching loop: best opposite price first,
// FIFO within a price level. Emits a FILL event for both the taker and
// each matched maker. Callers hold ob.mu.
func (ob *OrderBook) match(taker *Order, limit bool) []Event {
	var events []Event

	for taker.Qty > 0 {
		var price int64
		var ok bool
		if taker.Side == Buy {
			price, ok = ob.bestAsk()
			if !ok || (limit && price > taker.Price) {
				break
			}
		} else {
			price, ok = ob.bestBid()
			if !ok || (limit && price < taker.Price) {
				break
			}
		}

		maker := ob.peekLevel(taker.Side.opposite(), price)
		match := min(taker.Qty, maker.Qty)
		taker.Qty -= match
		maker.Qty -= match

		events = append(events,
			Event{Kind: ReportFill, Order: taker, Price: price, Qty: match, Leaves: taker.Qty},
			Event{Kind: ReportFill, Order: maker, Price: price, Qty: match, Leaves: maker.Qty},
		)
		ob.log.Infow("trade_executed", "price", price, "quantity", match,
			"maker_order_id", maker.ID)

		if maker.Qty == 0 {
			maker.Status = StatusFilled
			ob.dropHead(taker.Side.opposite(), price)
			delete(ob.orders, maker.ID)
		}
	}

	return events
}

// CancelOrder removes a resting order and reports its remaining
// quantity. Fails with ErrOrderNotFound for ids that were never seen as
// well as for already filled or canceled ones; the book does not keep
// terminal orders around to tell those apart.
func (ob *OrderBook) CancelOrder(id uint64) (Event, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	o, ok := ob.orders[id]
	if !ok {
		return Event{}, ErrOrderNotFound
	}

	ob.unrest(o)
	o.Status = StatusCanceled

	ob.log.Debugw("order_canceled", "order_id", id, "remaining", o.Qty)
	return Event{Kind: ReportCanceled, Order: o, Qty: o.Qty}, nil
}

// CancelAll removes every resting order owned by the given trader and
// returns a CANCELED event per order, in no particular order.
func (ob *OrderBook) CancelAll(owner Owner) []Event {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	var events []Event
	for _, o := range ob.orders {
		if o.Owner == nil || o.Owner.TraderID() != owner.TraderID() {
			continue
		}
		ob.unrest(o)
		o.Status = StatusCanceled
		events = append(events, Event{Kind: ReportCanceled, Order: o, Qty: o.Qty})
	}

	if len(events) > 0 {
		ob.log.Infow("orders_canceled_all", "trader", owner.TraderID(), "count", len(events))
	}
	return events
}

func (s Side) opposite() Side { return -s }

func (ob *OrderBook) bestBid() (int64, bool) {
	if ob.bidHeap.Len() == 0 {
		return 0, false
	}
	return ob.bidHeap.Peek(), true
}

func (ob *OrderBook) bestAsk() (int64, bool) {
	if ob.askHeap.Len() == 0 {
		return 0, false
	}
	return ob.askHeap.Peek(), true
}

// rest inserts an order at the tail of its price level's FIFO queue and
// registers the level in the side's heap when it is new.
func (ob *OrderBook) rest(o *Order) {
	queue := ob.bids
	if o.Side == Sell {
		queue = ob.asks
	}
	if len(queue[o.Price]) == 0 {
		if o.Side == Buy {
			heap.Push(ob.bidHeap, o.Price)
		} else {
			heap.Push(ob.askHeap, o.Price)
		}
	}
	queue[o.Price] = append(queue[o.Price], o)
	ob.orders[o.ID] = o
	o.Status = StatusResting
}

// unrest removes a resting order from its level queue, the heap (when
// the level empties) and the id index. Callers hold ob.mu.
func (ob *OrderBook) unrest(o *Order) {
	queue := ob.bids
	if o.Side == Sell {
		queue = ob.asks
	}
	level := queue[o.Price]
	for i, rest := range level {
		if rest.ID == o.ID {
			queue[o.Price] = append(level[:i], level[i+1:]...)
			break
		}
	}
	if len(queue[o.Price]) == 0 {
		delete(queue, o.Price)
		ob.removeLevel(o.Side, o.Price)
	}
	delete(ob.orders, o.ID)
}

// peekLevel returns the head of the FIFO queue on the given side at the
// given price. Only called with prices known to exist.
func (ob *OrderBook) peekLevel(side Side, price int64) *Order {
	if side == Buy {
		return ob.bids[price][0]
	}
	return ob.asks[price][0]
}

// dropHead removes the fully filled head order of a level and retires
// the level when it empties.
func (ob *OrderBook) dropHead(side Side, price int64) {
	queue := ob.bids
	if side == Sell {
		queue = ob.asks
	}
	queue[price] = queue[price][1:]
	if len(queue[price]) == 0 {
		delete(queue, price)
		ob.removeLevel(side, price)
	}
}

// removeLevel drops a price from the side's heap. O(N) worst case, but
// levels retire rarely relative to peeks.
func (ob *OrderBook) removeLevel(side Side, price int64) {
	if side == Buy {
		for i := 0; i < ob.bidHeap.Len(); i++ {
			if (*ob.bidHeap)[i] == price {
				heap.Remove(ob.bidHeap, i)
				return
			}
		}
		return
	}
	for i := 0; i < ob.askHeap.Len(); i++ {
		if (*ob.askHeap)[i] == price {
			heap.Remove(ob.askHeap, i)
			return
		}
	}
}

// BidLevels returns all bid price levels sorted high to low (best bid first).
func (ob *OrderBook) BidLevels() []PriceLevel {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.levels(ob.bids, func(a, b int64) bool { return a > b })
}

// AskLevels returns all ask price levels sorted low to high (best ask first).
func (ob *OrderBook) AskLevels() []PriceLevel {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.levels(ob.asks, func(a, b int64) bool { return a < b })
}

func (ob *OrderBook) levels(queue map[int64][]*Order, better func(a, b int64) bool) []PriceLevel {
	var levels []PriceLevel
	for price, orders := range queue {
		if len(orders) == 0 {
			continue
		}
		var total int64
		for _, o := range orders {
			total += o.Qty
		}
		levels = append(levels, PriceLevel{Price: price, Qty: total})
	}
	sort.Slice(levels, func(i, j int) bool {
		return better(levels[i].Price, levels[j].Price)
	})
	return levels
}

// BestBid returns the highest bid price, 0 if no bids.
func (ob *OrderBook) BestBid() int64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	p, _ := ob.bestBid()
	return p
}

// BestAsk returns the lowest ask price, 0 if no asks.
func (ob *OrderBook) BestAsk() int64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	p, _ := ob.bestAsk()
	return p
}

// Len returns the number of resting orders across both sides.
func (ob *OrderBook) Len() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return len(ob.orders)
}

// Package engine coordinates trader sessions and per-symbol order
// books: it decodes inbound instructions, drives the book operations
// they name and fans the resulting execution reports out to the owning
// sessions. All client mistakes come back as error records; nothing a
// client sends can take the engine down.
package engine

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/exsim/exsim/pkg/engine/orderbook"
	"github.com/exsim/exsim/pkg/protocol"
	"github.com/exsim/exsim/pkg/util"
)

// Error texts for createOrder field validation. Stable wire contract,
// same as the duplicate/not-found texts on the book sentinels.
const (
	textInvalidSide     = "side is invalid"
	textInvalidOrderID  = "orderId is invalid"
	textInvalidPrice    = "price is invalid"
	textInvalidQuantity = "quantity is invalid"
)

// Matcher owns the symbol->book and trader-id->session registries.
// Books serialize their own mutations; the matcher's lock only guards
// the registries, so different symbols match concurrently and session
// churn never blocks in-flight message handling for other sessions.
type Matcher struct {
	mu      sync.RWMutex
	books   map[string]*orderbook.OrderBook
	traders map[string]*TraderSession

	defaultSymbol string
	clock         util.Clock
	log           *zap.SugaredLogger
}

func NewMatcher(defaultSymbol string, log *zap.SugaredLogger) *Matcher {
	return &Matcher{
		books:         make(map[string]*orderbook.OrderBook),
		traders:       make(map[string]*TraderSession),
		defaultSymbol: defaultSymbol,
		clock:         util.RealClock{},
		log:           log.Named("matcher"),
	}
}

// GetTrader registers a session for the given id and sink. Registering
// an id that is already present replaces the session's sink (the
// reconnect wins, the stale sink is closed) and keeps its open orders.
func (m *Matcher) GetTrader(id string, sink Sink) *TraderSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.traders[id]; ok {
		existing.swapSink(sink)
		m.log.Infow("trader_reconnected", "trader", id)
		return existing
	}

	session := newTraderSession(id, sink, m.log)
	m.traders[id] = session
	m.log.Infow("trader_connected", "trader", id)
	return session
}

// RemoveTrader unregisters a session and cancels its resting orders on
// every book. The cancels are silent: there is no sink left to report
// to and counterparties only learn by the orders being gone.
func (m *Matcher) RemoveTrader(session *TraderSession) {
	m.mu.Lock()
	delete(m.traders, session.id)
	books := make([]*orderbook.OrderBook, 0, len(m.books))
	for _, book := range m.books {
		books = append(books, book)
	}
	m.mu.Unlock()

	canceled := 0
	for _, book := range books {
		for _, ev := range book.CancelAll(session) {
			session.untrack(ev.Order.ID)
			canceled++
		}
	}
	m.log.Infow("trader_disconnected", "trader", session.id, "orders_canceled", canceled)
}

// HandleMessage is the single protocol entry point. Book-level and
// validation errors become error records on the originating session and
// a nil return; only undecodable input surfaces as an error, for the
// transport to log and drop.
func (m *Matcher) HandleMessage(session *TraderSession, raw []byte) error {
	msg, err := protocol.Decode(raw)
	if errors.Is(err, protocol.ErrUnknownMessage) {
		session.sendError(protocol.ErrUnknownMessage.Error())
		return nil
	}
	if err != nil {
		return errors.WithMessage(err, "handle message")
	}

	switch msg := msg.(type) {
	case *protocol.CreateOrder:
		m.handleCreate(session, msg)
	case *protocol.MarketOrder:
		m.handleMarket(session, msg)
	case *protocol.CancelOrder:
		m.handleCancel(session, msg)
	}
	return nil
}

func (m *Matcher) handleCreate(session *TraderSession, msg *protocol.CreateOrder) {
	side, ok := orderbook.ParseSide(msg.Side)
	if !ok {
		session.sendError(textInvalidSide)
		return
	}
	if msg.OrderID == 0 {
		session.sendError(textInvalidOrderID)
		return
	}
	if msg.Price <= 0 {
		session.sendError(textInvalidPrice)
		return
	}
	if msg.Quantity <= 0 {
		session.sendError(textInvalidQuantity)
		return
	}

	symbol := m.resolveSymbol(msg.Symbol)
	order := &orderbook.Order{
		ID:      msg.OrderID,
		Symbol:  symbol,
		Side:    side,
		Price:   msg.Price,
		Qty:     msg.Quantity,
		Owner:   session,
		Created: m.clock.Now(),
	}

	events, err := m.book(symbol).CreateOrder(order)
	if err != nil {
		session.sendError(err.Error())
		return
	}
	m.route(events)
}

func (m *Matcher) handleMarket(session *TraderSession, msg *protocol.MarketOrder) {
	side, ok := orderbook.ParseSide(msg.Side)
	if !ok {
		session.sendError(textInvalidSide)
		return
	}
	if msg.Quantity <= 0 {
		session.sendError(textInvalidQuantity)
		return
	}

	symbol := m.resolveSymbol(msg.Symbol)
	order := &orderbook.Order{
		Symbol:  symbol,
		Side:    side,
		Qty:     msg.Quantity,
		Owner:   session,
		Created: m.clock.Now(),
	}
	m.route(m.book(symbol).MarketOrder(order))
}

func (m *Matcher) handleCancel(session *TraderSession, msg *protocol.CancelOrder) {
	book := m.lookupBook(m.resolveSymbol(msg.Symbol))
	if book == nil {
		session.sendError(orderbook.ErrOrderNotFound.Error())
		return
	}

	ev, err := book.CancelOrder(msg.OrderID)
	if err != nil {
		session.sendError(err.Error())
		return
	}

	if owner, ok := ev.Order.Owner.(*TraderSession); ok {
		owner.untrack(ev.Order.ID)
	}
	session.send(protocol.ExecutionReport{
		Message:  protocol.KindExecutionReport,
		OrderID:  ev.Order.ID,
		Report:   ev.Kind.String(),
		Quantity: ev.Qty,
	})
}

// route fans execution reports out to the sessions owning the reported
// orders. Maker and taker each receive their own event per trade.
func (m *Matcher) route(events []orderbook.Event) {
	for _, ev := range events {
		owner, ok := ev.Order.Owner.(*TraderSession)
		if !ok {
			continue
		}

		report := protocol.ExecutionReport{
			Message:  protocol.KindExecutionReport,
			OrderID:  ev.Order.ID,
			Report:   ev.Kind.String(),
			Quantity: ev.Qty,
		}

		switch ev.Kind {
		case orderbook.ReportNew:
			owner.track(ev.Order.ID)
		case orderbook.ReportFill:
			leaves := ev.Leaves
			report.Price = ev.Price
			report.LeavesQuantity = &leaves
			if ev.Leaves == 0 {
				owner.untrack(ev.Order.ID)
			}
		case orderbook.ReportCanceled:
			owner.untrack(ev.Order.ID)
		}

		owner.send(report)
	}
}

func (m *Matcher) resolveSymbol(symbol string) string {
	if symbol == "" {
		return m.defaultSymbol
	}
	return symbol
}

// book returns the symbol's order book, creating it on first use.
func (m *Matcher) book(symbol string) *orderbook.OrderBook {
	m.mu.RLock()
	book, ok := m.books[symbol]
	m.mu.RUnlock()
	if ok {
		return book
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if book, ok := m.books[symbol]; ok {
		return book
	}
	book = orderbook.New(symbol, m.log)
	m.books[symbol] = book
	return book
}

// lookupBook returns the symbol's book or nil; it never creates one.
func (m *Matcher) lookupBook(symbol string) *orderbook.OrderBook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.books[symbol]
}

// Symbols lists the symbols with live books.
func (m *Matcher) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	symbols := make([]string, 0, len(m.books))
	for symbol := range m.books {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// BookDepth returns the aggregated price levels of a symbol's book for
// the inspection API. ok is false when the symbol has no book yet.
func (m *Matcher) BookDepth(symbol string) (bids, asks []orderbook.PriceLevel, ok bool) {
	book := m.lookupBook(symbol)
	if book == nil {
		return nil, nil, false
	}
	return book.BidLevels(), book.AskLevels(), true
}

package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/exsim/exsim/pkg/protocol"
)

// Sink is the write/close capability a transport hands to the engine.
// Both operations are best-effort: failures are logged and never
// propagate into matching. The engine references the sink, the
// transport owns it.
type Sink interface {
	Write(p []byte) (n int, err error)
	Close() error
}

// TraderSession represents one connected client: its identity, its
// outbound sink and the set of order ids currently resting for it.
type TraderSession struct {
	id string

	mu   sync.Mutex
	sink Sink
	open map[uint64]struct{}

	log *zap.SugaredLogger
}

func newTraderSession(id string, sink Sink, log *zap.SugaredLogger) *TraderSession {
	return &TraderSession{
		id:   id,
		sink: sink,
		open: make(map[uint64]struct{}),
		log:  log.With("trader", id),
	}
}

// TraderID implements orderbook.Owner.
func (t *TraderSession) TraderID() string { return t.id }

// OpenOrders returns how many of the trader's orders are resting.
func (t *TraderSession) OpenOrders() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// send encodes one outbound message and writes it, delimiter included,
// to the session sink. Write failures are logged and swallowed: the
// book mutation that produced the message is already committed.
func (t *TraderSession) send(msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		t.log.Errorw("report_encode_failed", "kind", msg.Kind(), "err", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.sink.Write(append(data, protocol.Delimiter)); err != nil {
		t.log.Warnw("sink_write_failed", "kind", msg.Kind(), "err", err)
	}
}

func (t *TraderSession) sendError(text string) {
	t.send(protocol.NewError(text))
}

// swapSink replaces the session's outbound sink on re-registration and
// closes the previous one. Open orders survive the swap.
func (t *TraderSession) swapSink(sink Sink) {
	t.mu.Lock()
	old := t.sink
	t.sink = sink
	t.mu.Unlock()

	if err := old.Close(); err != nil {
		t.log.Warnw("stale_sink_close_failed", "err", err)
	}
}

// UsesSink reports whether the session still writes to the given sink.
// Transports check it on teardown so a stale connection (replaced by a
// reconnect) does not unregister the live session.
func (t *TraderSession) UsesSink(sink Sink) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sink == sink
}

func (t *TraderSession) track(id uint64) {
	t.mu.Lock()
	t.open[id] = struct{}{}
	t.mu.Unlock()
}

func (t *TraderSession) untrack(id uint64) {
	t.mu.Lock()
	delete(t.open, id)
	t.mu.Unlock()
}

package orderbook

import "time"

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return "UNKNOWN"
}

// ParseSide maps the wire representation to a Side. ok is false for
// anything other than the two exact literals.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "BUY":
		return Buy, true
	case "SELL":
		return Sell, true
	}
	return 0, false
}

type Status int8

const (
	StatusResting Status = iota
	StatusFilled
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusResting:
		return "RESTING"
	case StatusFilled:
		return "FILLED"
	case StatusCanceled:
		return "CANCELED"
	}
	return "UNKNOWN"
}

// Owner identifies the session an order reports back to. The book holds
// a back-reference only; session lifecycle belongs to the caller.
type Owner interface {
	TraderID() string
}

type Order struct {
	ID      uint64
	Symbol  string
	Side    Side
	Price   int64 // integer ticks, zero for market orders
	Qty     int64 // remaining quantity, decremented on every fill
	Owner   Owner
	Status  Status
	Created time.Time
}

// Terminal reports whether the order left the book (filled or canceled).
func (o *Order) Terminal() bool {
	return o.Status == StatusFilled || o.Status == StatusCanceled
}

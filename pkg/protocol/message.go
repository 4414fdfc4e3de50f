package protocol

// Wire discriminators carried in the "message" field.
const (
	KindCreateOrder     = "createOrder"
	KindMarketOrder     = "marketOrder"
	KindCancelOrder     = "cancelOrder"
	KindExecutionReport = "executionReport"
	KindError           = "error"
)

// Message is any decoded wire record.
type Message interface {
	Kind() string
}

// CreateOrder is an inbound limit order instruction. Symbol is
// optional; messages without one target the engine's default book.
type CreateOrder struct {
	Message  string `json:"message"`
	OrderID  uint64 `json:"orderId"`
	Symbol   string `json:"symbol,omitempty"`
	Side     string `json:"side"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

func (CreateOrder) Kind() string { return KindCreateOrder }

// MarketOrder is an inbound market order instruction. It carries no
// order id and no price: it executes immediately and never rests.
type MarketOrder struct {
	Message  string `json:"message"`
	Symbol   string `json:"symbol,omitempty"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
}

func (MarketOrder) Kind() string { return KindMarketOrder }

// CancelOrder is an inbound cancellation by order id.
type CancelOrder struct {
	Message string `json:"message"`
	OrderID uint64 `json:"orderId"`
	Symbol  string `json:"symbol,omitempty"`
}

func (CancelOrder) Kind() string { return KindCancelOrder }

// ExecutionReport is the outbound record for NEW, FILL and CANCELED
// outcomes. Price and LeavesQuantity are present on FILL reports only;
// OrderID is absent on reports about market-order takers.
type ExecutionReport struct {
	Message        string `json:"message"`
	OrderID        uint64 `json:"orderId,omitempty"`
	Report         string `json:"report"`
	Price          int64  `json:"price,omitempty"`
	Quantity       int64  `json:"quantity"`
	LeavesQuantity *int64 `json:"leavesQuantity,omitempty"`
}

func (ExecutionReport) Kind() string { return KindExecutionReport }

// ErrorMessage is the outbound record for every rejected instruction.
type ErrorMessage struct {
	Message string `json:"message"`
	Text    string `json:"text"`
}

func (ErrorMessage) Kind() string { return KindError }

// NewError builds an error record with the discriminator set.
func NewError(text string) ErrorMessage {
	return ErrorMessage{Message: KindError, Text: text}
}

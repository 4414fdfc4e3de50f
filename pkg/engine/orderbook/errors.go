package orderbook

import "github.com/pkg/errors"

// Sentinel errors for book operations. The texts double as the wire
// error texts sent back to the offending trader, so they must stay
// byte-for-byte stable.
var (
	ErrDuplicateOrder = errors.New("order already exists")
	ErrOrderNotFound  = errors.New("order does not exists")
)

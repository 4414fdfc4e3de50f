package protocol

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDecodeCreateOrder(t *testing.T) {
	raw := []byte(`{"orderId": 662688, "price": 145, "message": "createOrder", "side": "BUY", "quantity": 350}`)

	msg, err := Decode(raw)
	require.NoError(t, err)

	create, ok := msg.(*CreateOrder)
	require.True(t, ok, "expected *CreateOrder, got %T", msg)
	require.Equal(t, uint64(662688), create.OrderID)
	require.Equal(t, int64(145), create.Price)
	require.Equal(t, "BUY", create.Side)
	require.Equal(t, int64(350), create.Quantity)
	require.Empty(t, create.Symbol)
}

func TestDecodeCancelOrder(t *testing.T) {
	msg, err := Decode([]byte(`{"orderId": 662688, "message": "cancelOrder"}`))
	require.NoError(t, err)

	cancel, ok := msg.(*CancelOrder)
	require.True(t, ok)
	require.Equal(t, uint64(662688), cancel.OrderID)
}

func TestDecodeMarketOrder(t *testing.T) {
	msg, err := Decode([]byte(`{"message": "marketOrder", "side": "SELL", "quantity": 7}`))
	require.NoError(t, err)

	market, ok := msg.(*MarketOrder)
	require.True(t, ok)
	require.Equal(t, "SELL", market.Side)
	require.Equal(t, int64(7), market.Quantity)
}

func TestDecodeRejectsNonMessages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"bare null", `null`, ErrDecode},
		{"bare bool", `true`, ErrDecode},
		{"bare number", `42`, ErrDecode},
		{"array", `[1,2]`, ErrDecode},
		{"garbage", `{not json`, ErrDecode},
		{"empty", ``, ErrDecode},
		{"missing discriminator", `{"orderId": 1}`, ErrUnknownMessage},
		{"unknown discriminator", `{"message": "replaceOrder"}`, ErrUnknownMessage},
		{"outbound kind inbound", `{"message": "executionReport"}`, ErrUnknownMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"true", `true`},
		{"false", `false`},
		{"null", `null`},
		{"number", `145`},
		{"string", `"BUY"`},
		{"flat mapping", `{"key":null}`},
		{"nested mapping", `{"a":{"b":{"c":[1,2,true,null]}},"d":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := DecodeValue([]byte(tt.in))
			require.NoError(t, err)

			out, err := EncodeValue(v)
			require.NoError(t, err)

			again, err := DecodeValue(out)
			require.NoError(t, err)
			require.Equal(t, v, again)
		})
	}
}

func TestEncodeValueUnsupported(t *testing.T) {
	_, err := EncodeValue(make(chan int))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEncode))

	_, err = EncodeValue(func() {})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEncode))
}

func TestEncodeExecutionReport(t *testing.T) {
	leaves := int64(6)
	fill := ExecutionReport{
		Message:        KindExecutionReport,
		OrderID:        4,
		Report:         "FILL",
		Price:          1200,
		Quantity:       2,
		LeavesQuantity: &leaves,
	}
	data, err := Encode(fill)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"message":"executionReport","orderId":4,"report":"FILL","price":1200,"quantity":2,"leavesQuantity":6}`,
		string(data))

	// NEW and CANCELED reports omit price and leavesQuantity
	data, err = Encode(ExecutionReport{
		Message:  KindExecutionReport,
		OrderID:  662688,
		Report:   "NEW",
		Quantity: 350,
	})
	require.NoError(t, err)
	require.JSONEq(t,
		`{"message":"executionReport","orderId":662688,"report":"NEW","quantity":350}`,
		string(data))
}

func TestSplit(t *testing.T) {
	data := []byte("{\"a\":1}\n\n{\"b\":2}\n   \n{\"c\":3}")
	parts := Split(data)
	require.Len(t, parts, 3)
	require.Equal(t, `{"a":1}`, string(parts[0]))
	require.Equal(t, `{"b":2}`, string(parts[1]))
	require.Equal(t, `{"c":3}`, string(parts[2]))

	require.Nil(t, Split([]byte("\n\n")))
}

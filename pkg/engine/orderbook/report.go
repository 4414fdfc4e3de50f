package orderbook

import (
	"errors"
	"strconv"
)

// ReportKind is the execution report discriminator carried in the
// "report" field of outbound executionReport records.
type ReportKind uint8

const (
	ReportNew ReportKind = iota
	ReportFill
	ReportCanceled

	reportNewStr      = "NEW"
	reportFillStr     = "FILL"
	reportCanceledStr = "CANCELED"
)

func (rk ReportKind) String() string {
	switch rk {
	case ReportNew:
		return reportNewStr
	case ReportFill:
		return reportFillStr
	case ReportCanceled:
		return reportCanceledStr
	}
	panic("invalid report kind string conversion " + strconv.Itoa(int(rk)))
}

// ParseReportKind maps the wire representation back to a ReportKind.
func ParseReportKind(s string) (ReportKind, error) {
	switch s {
	case reportNewStr:
		return ReportNew, nil
	case reportFillStr:
		return ReportFill, nil
	case reportCanceledStr:
		return ReportCanceled, nil
	}
	return 0, errors.New("unsupported report kind: " + s)
}

// Event is a single execution report produced by a book operation.
// Book operations return events in emission order; routing them to
// owner sessions is the caller's concern.
type Event struct {
	Kind  ReportKind
	Order *Order

	// Price is the trade price. Set on FILL events only.
	Price int64

	// Qty is the resting quantity on NEW, the traded quantity on FILL
	// and the remaining quantity at cancellation time on CANCELED.
	Qty int64

	// Leaves is the order's remaining quantity after a FILL.
	Leaves int64
}

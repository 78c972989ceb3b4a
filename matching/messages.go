package matching

import (
	"fmt"
)

// ClientRequestType is an enumeration of possible client request types.
type ClientRequestType uint8

const (
	ClientRequestTypeInvalid ClientRequestType = iota
	ClientRequestTypeNew
	ClientRequestTypeCancel
)

func (t ClientRequestType) String() string {
	switch t {
	case ClientRequestTypeNew:
		return "new"
	case ClientRequestTypeCancel:
		return "cancel"
	default:
		return "invalid"
	}
}

// ClientRequest is an order entry instruction sent by a client.
type ClientRequest struct {
	Type         ClientRequestType
	ClientID     ClientID
	InstrumentID InstrumentID
	OrderID      OrderID // client order id
	Side         OrderSide
	Price        Price
	Quantity     Quantity
}

func (r ClientRequest) String() string {
	return fmt.Sprintf("ClientRequest{type:%s client:%d instrument:%d order:%d side:%s price:%d qty:%d}",
		r.Type, r.ClientID, r.InstrumentID, r.OrderID, r.Side, r.Price, r.Quantity)
}

////////////////////////////////////////////////////////////////

// ClientResponseType is an enumeration of possible client response types.
type ClientResponseType uint8

const (
	ClientResponseTypeInvalid ClientResponseType = iota
	ClientResponseTypeAccepted
	ClientResponseTypeCanceled
	ClientResponseTypeFilled
	ClientResponseTypeCancelRejected
	// ClientResponseTypeRejected is sent for a new order which failed validation.
	ClientResponseTypeRejected
)

func (t ClientResponseType) String() string {
	switch t {
	case ClientResponseTypeAccepted:
		return "accepted"
	case ClientResponseTypeCanceled:
		return "canceled"
	case ClientResponseTypeFilled:
		return "filled"
	case ClientResponseTypeCancelRejected:
		return "cancel_rejected"
	case ClientResponseTypeRejected:
		return "rejected"
	default:
		return "invalid"
	}
}

// ClientResponse is a private execution report addressed to a single client.
type ClientResponse struct {
	Type           ClientResponseType
	ClientID       ClientID
	InstrumentID   InstrumentID
	ClientOrderID  OrderID
	MarketOrderID  OrderID
	Side           OrderSide
	Price          Price
	ExecQuantity   Quantity
	LeavesQuantity Quantity
}

func (r ClientResponse) String() string {
	return fmt.Sprintf("ClientResponse{type:%s client:%d instrument:%d coid:%d moid:%d side:%s price:%d exec:%d leaves:%d}",
		r.Type, r.ClientID, r.InstrumentID, r.ClientOrderID, r.MarketOrderID, r.Side, r.Price, r.ExecQuantity, r.LeavesQuantity)
}

////////////////////////////////////////////////////////////////

// MarketUpdateType is an enumeration of possible public market data event types.
type MarketUpdateType uint8

const (
	MarketUpdateTypeInvalid MarketUpdateType = iota
	MarketUpdateTypeClear
	MarketUpdateTypeAdd
	MarketUpdateTypeModify
	MarketUpdateTypeCancel
	MarketUpdateTypeTrade
	MarketUpdateTypeSnapshotStart
	MarketUpdateTypeSnapshotEnd
)

func (t MarketUpdateType) String() string {
	switch t {
	case MarketUpdateTypeClear:
		return "clear"
	case MarketUpdateTypeAdd:
		return "add"
	case MarketUpdateTypeModify:
		return "modify"
	case MarketUpdateTypeCancel:
		return "cancel"
	case MarketUpdateTypeTrade:
		return "trade"
	case MarketUpdateTypeSnapshotStart:
		return "snapshot_start"
	case MarketUpdateTypeSnapshotEnd:
		return "snapshot_end"
	default:
		return "invalid"
	}
}

// MarketUpdate is a public order book event.
//
// SeqNum is zero when the event leaves the matching engine and is stamped by the publisher.
// SNAPSHOT_START and SNAPSHOT_END carry the last incremental sequence number the snapshot
// covers in MarketOrderID.
// After a gap recovery the consumer forwards snapshot events stamped with that sequence number,
// so several events may share it: downstream treats CLEAR as the point its book is reset.
type MarketUpdate struct {
	Type          MarketUpdateType
	InstrumentID  InstrumentID
	Side          OrderSide
	Price         Price
	Quantity      Quantity
	MarketOrderID OrderID
	SeqNum        uint64
	Priority      Priority
}

func (u MarketUpdate) String() string {
	return fmt.Sprintf("MarketUpdate{type:%s instrument:%d side:%s price:%d qty:%d moid:%d seq:%d priority:%d}",
		u.Type, u.InstrumentID, u.Side, u.Price, u.Quantity, u.MarketOrderID, u.SeqNum, u.Priority)
}

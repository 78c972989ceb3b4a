package protocol

import (
	"github.com/cryptonstudio/crypton-exchange-core/matching"
)

// UnmarshalClientRequest decodes a request from exactly ClientRequestSize bytes.
func UnmarshalClientRequest(data []byte) (r matching.ClientRequest, err error) {
	if len(data) != ClientRequestSize {
		err = ErrInvalidClientRequestSize
		return
	}
	var (
		b   byte
		i8  int8
		u32 uint32
		u64 uint64
		i64 int64
	)
	b, data = readByte(data)
	r.Type = matching.ClientRequestType(b)
	u64, data = readUint64(data)
	r.ClientID = matching.ClientID(u64)
	u32, data = readUint32(data)
	r.InstrumentID = matching.InstrumentID(u32)
	u64, data = readUint64(data)
	r.OrderID = matching.OrderID(u64)
	i8, data = readInt8(data)
	r.Side = matching.OrderSide(i8)
	i64, data = readInt64(data)
	r.Price = matching.Price(i64)
	u32, _ = readUint32(data)
	r.Quantity = matching.Quantity(u32)
	return
}

// UnmarshalClientResponse decodes a response from exactly ClientResponseSize bytes.
func UnmarshalClientResponse(data []byte) (r matching.ClientResponse, err error) {
	if len(data) != ClientResponseSize {
		err = ErrInvalidClientResponseSize
		return
	}
	var (
		b   byte
		i8  int8
		u32 uint32
		u64 uint64
		i64 int64
	)
	b, data = readByte(data)
	r.Type = matching.ClientResponseType(b)
	u64, data = readUint64(data)
	r.ClientID = matching.ClientID(u64)
	u32, data = readUint32(data)
	r.InstrumentID = matching.InstrumentID(u32)
	u64, data = readUint64(data)
	r.ClientOrderID = matching.OrderID(u64)
	u64, data = readUint64(data)
	r.MarketOrderID = matching.OrderID(u64)
	i8, data = readInt8(data)
	r.Side = matching.OrderSide(i8)
	i64, data = readInt64(data)
	r.Price = matching.Price(i64)
	u32, data = readUint32(data)
	r.ExecQuantity = matching.Quantity(u32)
	u32, _ = readUint32(data)
	r.LeavesQuantity = matching.Quantity(u32)
	return
}

// UnmarshalMarketUpdate decodes an update from exactly MarketUpdateSize bytes.
func UnmarshalMarketUpdate(data []byte) (u matching.MarketUpdate, err error) {
	if len(data) != MarketUpdateSize {
		err = ErrInvalidMarketUpdateSize
		return
	}
	var (
		b   byte
		i8  int8
		u32 uint32
		u64 uint64
		i64 int64
	)
	b, data = readByte(data)
	u.Type = matching.MarketUpdateType(b)
	u32, data = readUint32(data)
	u.InstrumentID = matching.InstrumentID(u32)
	i8, data = readInt8(data)
	u.Side = matching.OrderSide(i8)
	i64, data = readInt64(data)
	u.Price = matching.Price(i64)
	u32, data = readUint32(data)
	u.Quantity = matching.Quantity(u32)
	u64, data = readUint64(data)
	u.MarketOrderID = matching.OrderID(u64)
	u.SeqNum, data = readUint64(data)
	u64, _ = readUint64(data)
	u.Priority = matching.Priority(u64)
	return
}

package protocol

import (
	"github.com/cryptonstudio/crypton-exchange-core/matching"
)

// PutClientRequest encodes the request into data which must hold at least ClientRequestSize bytes.
func PutClientRequest(data []byte, r *matching.ClientRequest) {
	_ = data[ClientRequestSize-1]
	data = putByte(data, byte(r.Type))
	data = putUint64(data, uint64(r.ClientID))
	data = putUint32(data, uint32(r.InstrumentID))
	data = putUint64(data, uint64(r.OrderID))
	data = putInt8(data, int8(r.Side))
	data = putInt64(data, int64(r.Price))
	putUint32(data, uint32(r.Quantity))
}

// PutClientResponse encodes the response into data which must hold at least ClientResponseSize bytes.
func PutClientResponse(data []byte, r *matching.ClientResponse) {
	_ = data[ClientResponseSize-1]
	data = putByte(data, byte(r.Type))
	data = putUint64(data, uint64(r.ClientID))
	data = putUint32(data, uint32(r.InstrumentID))
	data = putUint64(data, uint64(r.ClientOrderID))
	data = putUint64(data, uint64(r.MarketOrderID))
	data = putInt8(data, int8(r.Side))
	data = putInt64(data, int64(r.Price))
	data = putUint32(data, uint32(r.ExecQuantity))
	putUint32(data, uint32(r.LeavesQuantity))
}

// PutMarketUpdate encodes the update into data which must hold at least MarketUpdateSize bytes.
func PutMarketUpdate(data []byte, u *matching.MarketUpdate) {
	_ = data[MarketUpdateSize-1]
	data = putByte(data, byte(u.Type))
	data = putUint32(data, uint32(u.InstrumentID))
	data = putInt8(data, int8(u.Side))
	data = putInt64(data, int64(u.Price))
	data = putUint32(data, uint32(u.Quantity))
	data = putUint64(data, uint64(u.MarketOrderID))
	data = putUint64(data, u.SeqNum)
	putUint64(data, uint64(u.Priority))
}

// AppendMarketUpdate appends the encoded update to data.
func AppendMarketUpdate(data []byte, u *matching.MarketUpdate) []byte {
	n := len(data)
	data = append(data, make([]byte, MarketUpdateSize)...)
	PutMarketUpdate(data[n:], u)
	return data
}

// AppendClientRequest appends the encoded request to data.
func AppendClientRequest(data []byte, r *matching.ClientRequest) []byte {
	n := len(data)
	data = append(data, make([]byte, ClientRequestSize)...)
	PutClientRequest(data[n:], r)
	return data
}

// Package protocol implements the packed little-endian wire layout of the exchange messages.
//
// Every message has a fixed size and no padding. Fields follow the declaration order
// of the matching types; enums take one byte, the side is a signed byte.
package protocol

const (
	// ClientRequestSize is type(1) client(8) instrument(4) order(8) side(1) price(8) qty(4).
	ClientRequestSize = 34
	// ClientResponseSize is type(1) client(8) instrument(4) client order(8) market order(8)
	// side(1) price(8) exec qty(4) leaves qty(4).
	ClientResponseSize = 46
	// MarketUpdateSize is type(1) instrument(4) side(1) price(8) qty(4) market order(8)
	// seq(8) priority(8).
	MarketUpdateSize = 42
)

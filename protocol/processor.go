package protocol

import (
	"errors"
	"io"

	"github.com/cryptonstudio/crypton-exchange-core/matching"
)

const readChunkSize = 64 * 1024

// Processor splits a byte stream into fixed-size frames.
// Chunks may end in the middle of a frame; the tail is kept until the rest arrives.
// NOTE: Not thread-safe.
type Processor struct {
	frameSize int
	handle    func(frame []byte) error
	cache     []byte
}

// NewProcessor creates new Processor calling handle for every complete frame of frameSize bytes.
// The frame passed to handle is only valid during the call.
func NewProcessor(frameSize int, handle func(frame []byte) error) (*Processor, error) {
	if frameSize <= 0 {
		return nil, ErrInvalidFrameSize
	}
	return &Processor{
		frameSize: frameSize,
		handle:    handle,
		cache:     make([]byte, 0, frameSize),
	}, nil
}

// NewMarketUpdateProcessor creates new Processor decoding market updates.
func NewMarketUpdateProcessor(handle func(update matching.MarketUpdate) error) *Processor {
	p, _ := NewProcessor(MarketUpdateSize, func(frame []byte) error {
		update, err := UnmarshalMarketUpdate(frame)
		if err != nil {
			return err
		}
		return handle(update)
	})
	return p
}

// NewClientRequestProcessor creates new Processor decoding client requests.
func NewClientRequestProcessor(handle func(request matching.ClientRequest) error) *Processor {
	p, _ := NewProcessor(ClientRequestSize, func(frame []byte) error {
		request, err := UnmarshalClientRequest(frame)
		if err != nil {
			return err
		}
		return handle(request)
	})
	return p
}

// Process reads the whole stream and processes it chunk by chunk.
func (p *Processor) Process(reader io.Reader) error {
	chunk := make([]byte, readChunkSize)
	for {
		n, err := reader.Read(chunk)
		if n > 0 {
			if perr := p.ProcessChunk(chunk[:n]); perr != nil {
				return perr
			}
		}
		if errors.Is(err, io.EOF) {
			if len(p.cache) > 0 {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ProcessChunk handles every complete frame of the chunk and keeps the incomplete tail.
func (p *Processor) ProcessChunk(chunk []byte) error {
	for len(chunk) > 0 {
		// Complete the cached frame first
		if len(p.cache) > 0 {
			n := min(p.frameSize-len(p.cache), len(chunk))
			p.cache = append(p.cache, chunk[:n]...)
			chunk = chunk[n:]
			if len(p.cache) < p.frameSize {
				return nil
			}
			err := p.handle(p.cache)
			p.cache = p.cache[:0]
			if err != nil {
				return err
			}
			continue
		}

		// Place the tail into the cache
		if len(chunk) < p.frameSize {
			p.cache = append(p.cache, chunk...)
			return nil
		}

		// Process the frame directly from the input buffer
		if err := p.handle(chunk[:p.frameSize]); err != nil {
			return err
		}
		chunk = chunk[p.frameSize:]
	}
	return nil
}

// Pending returns the number of bytes of an incomplete frame waiting for more data.
func (p *Processor) Pending() int {
	return len(p.cache)
}

// Reset drops an incomplete frame.
func (p *Processor) Reset() {
	p.cache = p.cache[:0]
}

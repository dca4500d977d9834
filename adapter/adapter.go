// Package adapter holds the transport bindings that move raw command and
// response frames between a master tool and a slave engine.
package adapter

import "errors"

var (
	ErrNotBound      = errors.New("adapter: no slave bound")
	ErrRecvFull      = errors.New("adapter: incoming channel full, frame dropped")
	ErrClosed        = errors.New("adapter: closed")
	ErrFrameTooLarge = errors.New("adapter: frame exceeds transport limit")
)

// Adapter is one byte-oriented frame pipe. Send pushes a frame towards the
// peer, Recv delivers frames coming back.
type Adapter interface {
	Send(data []byte) error
	Recv() <-chan []byte
	Close() error
}

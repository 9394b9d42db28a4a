package transport

import (
	"time"

	"tarun-kavipurapu/msgcenter/pkg/protocol"
)

// Node represents a remote endpoint that we can send frames to
type Node interface {
	Send(payload []byte) error
	Close() error
	Addr() string
	ID() string
	LastActive() time.Time
}

// Transport handles the network layer
type Transport interface {
	ListenAndAccept() error
	Dial(addr string) (Node, error)
	Consume() <-chan protocol.RPC
	Close() error
	Addr() string
	SetOnPeer(func(Node) error)
	// SetOnClose is called once per connection after it is closed. err is
	// nil for a clean EOF or a local close.
	SetOnClose(func(Node, error))
}

package protocol

// RPC is one decoded frame delivered by the transport.
type RPC struct {
	From    string // remote address
	ConnID  string
	Payload []byte
}

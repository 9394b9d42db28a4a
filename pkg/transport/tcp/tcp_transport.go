package tcp

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"tarun-kavipurapu/msgcenter/pkg/frame"
	"tarun-kavipurapu/msgcenter/pkg/logger"
	"tarun-kavipurapu/msgcenter/pkg/monitor"
	"tarun-kavipurapu/msgcenter/pkg/msgcenter"
	"tarun-kavipurapu/msgcenter/pkg/protocol"
	"tarun-kavipurapu/msgcenter/pkg/transport"
)

// ReadChunkSize is the size of the buffer each connection reads into.
const ReadChunkSize = 32 * 1024

// TCPNode implements transport.Node
type TCPNode struct {
	id   string
	conn net.Conn
	lock sync.Mutex
	// TCP主动连接 outbound -> true 否则 outbound -> false
	outbound   bool
	lastActive atomic.Int64
}

func NewTCPNode(conn net.Conn, outbound bool) *TCPNode {
	n := &TCPNode{
		id:       uuid.New().String(),
		conn:     conn,
		outbound: outbound,
	}
	n.touch()
	return n
}

func (n *TCPNode) touch() {
	n.lastActive.Store(time.Now().UnixNano())
}

// Send writes payload as one frame. Concurrent calls are serialized.
func (n *TCPNode) Send(payload []byte) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	return frame.Write(n.conn, payload)
}

func (n *TCPNode) Close() error {
	return n.conn.Close()
}

func (n *TCPNode) Addr() string {
	return n.conn.RemoteAddr().String()
}

func (n *TCPNode) ID() string {
	return n.id
}

// LastActive is the time the node connected or last delivered a frame.
func (n *TCPNode) LastActive() time.Time {
	return time.Unix(0, n.lastActive.Load())
}

// TCPTransport implements transport.Transport
type TCPTransport struct {
	listenAddr string
	listener   net.Listener
	rpcCh      chan protocol.RPC
	onPeer     func(transport.Node) error
	onClose    func(transport.Node, error)
	centerOpts []msgcenter.Option

	mu        sync.Mutex
	closed    bool
	nodes     map[string]*TCPNode
	wg        sync.WaitGroup
	quitCh    chan struct{}
	closeOnce sync.Once
}

// NewTCPTransport creates a transport whose connections decode frames with
// msgcenter configured by centerOpts.
func NewTCPTransport(addr string, centerOpts ...msgcenter.Option) *TCPTransport {
	return &TCPTransport{
		listenAddr: addr,
		rpcCh:      make(chan protocol.RPC, 1024),
		centerOpts: centerOpts,
		nodes:      make(map[string]*TCPNode),
		quitCh:     make(chan struct{}),
	}
}

func (t *TCPTransport) SetOnPeer(f func(transport.Node) error) {
	t.onPeer = f
}

func (t *TCPTransport) SetOnClose(f func(transport.Node, error)) {
	t.onClose = f
}

func (t *TCPTransport) ListenAndAccept() error {
	var err error
	t.listener, err = net.Listen("tcp", t.listenAddr)
	if err != nil {
		return err
	}

	go t.acceptLoop()
	return nil
}

func (t *TCPTransport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.quitCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Sugar.Errorf("[TCPTransport] accept error: listen=%s err=%v", t.listenAddr, err)
			continue
		}
		node := NewTCPNode(conn, false)
		t.startConn(node)
	}
}

func (t *TCPTransport) startConn(node *TCPNode) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		node.conn.Close()
		return false
	}
	t.nodes[node.id] = node
	t.wg.Add(1)
	t.mu.Unlock()

	monitor.ConnOpened()
	go t.handleConn(node)
	return true
}

func (t *TCPTransport) handleConn(node *TCPNode) {
	var closeErr error
	defer func() {
		node.conn.Close()
		t.mu.Lock()
		delete(t.nodes, node.id)
		t.mu.Unlock()
		monitor.ConnClosed()
		if t.onClose != nil {
			t.onClose(node, closeErr)
		}
		t.wg.Done()
	}()

	if !node.outbound && t.onPeer != nil {
		if err := t.onPeer(node); err != nil {
			closeErr = err
			return
		}
	}

	remote := node.Addr()
	opts := make([]msgcenter.Option, 0, len(t.centerOpts)+1)
	opts = append(opts, t.centerOpts...)
	center := msgcenter.New(append(opts, msgcenter.WithName(remote))...)
	center.OnData(func(payload []byte) {
		node.touch()
		monitor.RecordFrame()
		select {
		case t.rpcCh <- protocol.RPC{From: remote, ConnID: node.id, Payload: payload}:
		case <-t.quitCh:
		}
	})

	buf := make([]byte, ReadChunkSize)
	for {
		n, err := node.conn.Read(buf)
		if n > 0 {
			monitor.RecordBytes(n)
			if perr := center.Push(buf[:n]); perr != nil {
				monitor.RecordStreamError()
				logger.Sugar.Errorf("[TCPTransport] dropping connection: remote=%s id=%s err=%v", remote, node.id, perr)
				closeErr = perr
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				if buffered := center.Buffered(); buffered > 0 {
					logger.Sugar.Warnf("[TCPTransport] connection closed with partial frame: remote=%s buffered=%d", remote, buffered)
				}
				return
			}
			select {
			case <-t.quitCh:
			default:
				if !errors.Is(err, net.ErrClosed) {
					logger.Sugar.Errorf("[TCPTransport] read error: remote=%s err=%v", remote, err)
					closeErr = err
				}
			}
			return
		}
	}
}

func (t *TCPTransport) Dial(addr string) (transport.Node, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	node := NewTCPNode(conn, true)
	if !t.startConn(node) {
		return nil, net.ErrClosed
	}

	return node, nil
}

// Node looks up a live connection by id.
func (t *TCPTransport) Node(id string) (transport.Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	return n, true
}

func (t *TCPTransport) Consume() <-chan protocol.RPC {
	return t.rpcCh
}

// Close stops accepting, closes every live connection and waits for their
// handlers to exit.
func (t *TCPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.quitCh)
		if t.listener != nil {
			err = multierr.Append(err, t.listener.Close())
		}
		t.mu.Lock()
		t.closed = true
		for _, n := range t.nodes {
			if cerr := n.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
				err = multierr.Append(err, cerr)
			}
		}
		t.mu.Unlock()
		t.wg.Wait()
	})
	return err
}

func (t *TCPTransport) Addr() string {
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.listenAddr
}

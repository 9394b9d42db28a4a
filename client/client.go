package client

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"tarun-kavipurapu/msgcenter/pkg/logger"
	"tarun-kavipurapu/msgcenter/pkg/msgcenter"
	"tarun-kavipurapu/msgcenter/pkg/transport"
	"tarun-kavipurapu/msgcenter/pkg/transport/tcp"
)

// DefaultPrefix is the payload prefix used for burst sends.
const DefaultPrefix = "66666666666666666666666666"

type Client struct {
	lock       sync.Mutex
	Transport  transport.Transport
	serverAddr string
	server     transport.Node

	sentFrames int64
	sentBytes  int64
	echoes     int64
}

func NewClient(serverAddr string, opts ...msgcenter.Option) *Client {
	return &Client{
		Transport:  tcp.NewTCPTransport("", opts...),
		serverAddr: serverAddr,
	}
}

// Connect dials the server. Frames the server sends back are available
// through WaitEchoes.
func (c *Client) Connect() error {
	logger.Sugar.Infof("[Client] Connecting to server: %s", c.serverAddr)
	node, err := c.Transport.Dial(c.serverAddr)
	if err != nil {
		return fmt.Errorf("failed to dial server: %w", err)
	}

	c.lock.Lock()
	c.server = node
	c.lock.Unlock()

	logger.Sugar.Infof("[Client] Connected: local id=%s remote=%s", node.ID(), node.Addr())
	return nil
}

func (c *Client) node() (transport.Node, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.server == nil {
		return nil, fmt.Errorf("not connected to server")
	}
	return c.server, nil
}

// Send frames one payload to the server.
func (c *Client) Send(payload []byte) error {
	node, err := c.node()
	if err != nil {
		return err
	}
	if err := node.Send(payload); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	atomic.AddInt64(&c.sentFrames, 1)
	atomic.AddInt64(&c.sentBytes, int64(len(payload)))
	return nil
}

// SendBurst sends count frames with payload prefix+i and returns the number
// of payload bytes written.
func (c *Client) SendBurst(prefix string, count int) (int64, error) {
	start := time.Now()
	var total int64
	for i := 0; i < count; i++ {
		payload := []byte(prefix + strconv.Itoa(i))
		if err := c.Send(payload); err != nil {
			return total, fmt.Errorf("burst stopped at %d/%d: %w", i, count, err)
		}
		total += int64(len(payload))
	}

	elapsed := time.Since(start)
	logger.Sugar.Infof("[Client] Burst sent: frames=%d bytes=%d duration=%s", count, total, elapsed.Truncate(time.Millisecond))
	return total, nil
}

// WaitEchoes blocks until n frames have come back from the server or ctx ends.
func (c *Client) WaitEchoes(ctx context.Context, n int) ([][]byte, error) {
	out := make([][]byte, 0, n)
	for len(out) < n {
		select {
		case <-ctx.Done():
			return out, fmt.Errorf("received %d/%d echoes: %w", len(out), n, ctx.Err())
		case msg := <-c.Transport.Consume():
			atomic.AddInt64(&c.echoes, 1)
			out = append(out, msg.Payload)
		}
	}
	return out, nil
}

func (c *Client) GetStatus() string {
	status := fmt.Sprintf("Server: %s\n", c.serverAddr)
	if node, err := c.node(); err == nil {
		status += fmt.Sprintf("Connection: %s (last active %s)\n", node.ID(), node.LastActive().Format("15:04:05"))
	} else {
		status += "Connection: none\n"
	}
	status += fmt.Sprintf("Frames Sent: %d | Bytes Sent: %d | Echoes: %d\n",
		atomic.LoadInt64(&c.sentFrames), atomic.LoadInt64(&c.sentBytes), atomic.LoadInt64(&c.echoes))
	return status
}

func (c *Client) Close() error {
	c.lock.Lock()
	c.server = nil
	c.lock.Unlock()
	return c.Transport.Close()
}

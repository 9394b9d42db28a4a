package server

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/multierr"

	"tarun-kavipurapu/msgcenter/pkg/config"
	"tarun-kavipurapu/msgcenter/pkg/discovery"
	"tarun-kavipurapu/msgcenter/pkg/logger"
	"tarun-kavipurapu/msgcenter/pkg/monitor"
	"tarun-kavipurapu/msgcenter/pkg/protocol"
	"tarun-kavipurapu/msgcenter/pkg/transport"
	"tarun-kavipurapu/msgcenter/pkg/transport/tcp"
)

// Handler is called from the server loop for every decoded message.
type Handler func(msg protocol.RPC)

type Server struct {
	mu         sync.Mutex
	conns      map[string]*connInfo // ConnID -> connInfo
	Transport  transport.Transport
	cfg        config.Config
	handlers   []Handler
	frames     uint64
	quitCh     chan struct{}
	readyCh    chan struct{}
	stopOnce   sync.Once
	advertiser *discovery.Advertiser
}

type connInfo struct {
	Node        transport.Node
	RemoteAddr  string
	connectedAt time.Time
	frames      uint64
	bytes       uint64
}

func NewServer(cfg config.Config) *Server {
	trans := tcp.NewTCPTransport(cfg.ListenAddr, cfg.CenterOptions()...)

	s := &Server{
		conns:      make(map[string]*connInfo),
		Transport:  trans,
		cfg:        cfg,
		quitCh:     make(chan struct{}),
		readyCh:    make(chan struct{}),
		advertiser: discovery.NewAdvertiser(),
	}
	trans.SetOnPeer(s.OnPeer)
	trans.SetOnClose(s.OnClose)

	return s
}

// Handle registers h for every decoded message. Must be called before Start.
func (s *Server) Handle(h Handler) {
	s.handlers = append(s.handlers, h)
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.readyCh
}

// Start listens and runs the message loop until Stop.
func (s *Server) Start() error {
	logger.Sugar.Infof("[Server] [%s] starting msgcenter server...", s.cfg.ListenAddr)

	if err := s.Transport.ListenAndAccept(); err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	close(s.readyCh)
	logger.Sugar.Infof("[Server] listening: addr=%s echo=%v", s.Transport.Addr(), s.cfg.Echo)

	if s.cfg.Discovery {
		s.advertise()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if s.cfg.MetricsInterval > 0 {
		go monitor.LogPeriodic(ctx, s.cfg.MetricsInterval)
	}
	if s.cfg.IdleTimeout > 0 {
		go s.monitorConns()
	}

	s.loop()
	return nil
}

func (s *Server) advertise() {
	_, portStr, err := net.SplitHostPort(s.Transport.Addr())
	if err != nil {
		logger.Sugar.Errorf("[Server] Failed to parse address: %v", err)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return
	}
	meta := map[string]string{
		"version": "1.0.0",
		"type":    "msgcenter",
	}
	if err := s.advertiser.Start(s.cfg.DiscoveryInstance, port, meta); err != nil {
		logger.Sugar.Errorf("[Server] Failed to start mDNS advertisement: %v", err)
		return
	}
	logger.Sugar.Infof("[Server] mDNS advertisement started on port %d", port)
}

func (s *Server) loop() {
	defer logger.Sugar.Info("[Server] stopped")

	for {
		select {
		case msg := <-s.Transport.Consume():
			if err := s.handleMessage(msg); err != nil {
				logger.Sugar.Errorf("[Server] handle message failed: from=%s conn=%s err=%v", msg.From, msg.ConnID, err)
			}
		case <-s.quitCh:
			return
		}
	}
}

func (s *Server) handleMessage(msg protocol.RPC) error {
	s.mu.Lock()
	s.frames++
	ci := s.conns[msg.ConnID]
	if ci != nil {
		ci.frames++
		ci.bytes += uint64(len(msg.Payload))
	}
	s.mu.Unlock()

	logger.Sugar.Debugf("[Server] frame: from=%s len=%d payload=%q", msg.From, len(msg.Payload), msg.Payload)

	for _, h := range s.handlers {
		h(msg)
	}

	if !s.cfg.Echo {
		return nil
	}
	if ci == nil || ci.Node == nil {
		return fmt.Errorf("connection %s not found", msg.ConnID)
	}
	if err := ci.Node.Send(msg.Payload); err != nil {
		return fmt.Errorf("echo to %s: %w", msg.From, err)
	}
	return nil
}

func (s *Server) OnPeer(peer transport.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conns[peer.ID()] = &connInfo{
		Node:        peer,
		RemoteAddr:  peer.Addr(),
		connectedAt: time.Now(),
	}
	logger.Sugar.Infof("[Server] client connected: remote=%s id=%s", peer.Addr(), peer.ID())
	return nil
}

func (s *Server) OnClose(peer transport.Node, err error) {
	s.mu.Lock()
	ci := s.conns[peer.ID()]
	delete(s.conns, peer.ID())
	s.mu.Unlock()

	var frames uint64
	if ci != nil {
		frames = ci.frames
	}
	if err != nil {
		logger.Sugar.Warnf("[Server] client dropped: remote=%s id=%s frames=%d err=%v", peer.Addr(), peer.ID(), frames, err)
		return
	}
	logger.Sugar.Infof("[Server] client disconnected: remote=%s id=%s frames=%d", peer.Addr(), peer.ID(), frames)
}

// monitorConns closes connections that have not delivered a frame within
// the idle timeout.
func (s *Server) monitorConns() {
	interval := s.cfg.IdleTimeout / 2
	if interval <= 0 {
		interval = s.cfg.IdleTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quitCh:
			return
		case <-ticker.C:
			s.reapIdle(time.Now())
		}
	}
}

func (s *Server) reapIdle(now time.Time) {
	var idle []transport.Node
	s.mu.Lock()
	for _, ci := range s.conns {
		if now.Sub(ci.Node.LastActive()) > s.cfg.IdleTimeout {
			idle = append(idle, ci.Node)
		}
	}
	s.mu.Unlock()

	for _, n := range idle {
		logger.Sugar.Warnf("[Server] client timed out: remote=%s id=%s", n.Addr(), n.ID())
		_ = n.Close()
	}
}

func (s *Server) GetStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := monitor.Global.Snapshot()
	status := fmt.Sprintf("Msgcenter Server Running on: %s\n", s.Transport.Addr())
	status += fmt.Sprintf("Connected Clients: %d\n", len(s.conns))
	status += fmt.Sprintf("Frames Handled: %d\n", s.frames)
	status += fmt.Sprintf("Bytes Received: %d | Stream Errors: %d | Uptime: %s\n",
		m.BytesReceived, m.StreamErrors, m.Uptime.Truncate(time.Second))
	return status
}

func (s *Server) GetConnList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []string
	for id, ci := range s.conns {
		list = append(list, fmt.Sprintf("%s (%s) frames=%d bytes=%d since=%s",
			ci.RemoteAddr, id, ci.frames, ci.bytes, ci.connectedAt.Format("15:04:05")))
	}
	sort.Strings(list)
	return list
}

func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.advertiser.Stop()
		close(s.quitCh)
		err = multierr.Append(err, s.Transport.Close())
	})
	return err
}

// Package communication exposes the registered cycler instances and the parameters to debugging
// clients over a WebSocket.
package communication

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/utils"
)

const (
	defaultPingInterval = 10 * time.Second
	writeTimeout        = 5 * time.Second
)

// ParameterStore is the part of the parameter store clients may use.
type ParameterStore interface {
	Document() map[string]any
	Update(path string, value any) error
}

// Option configures a Server.
type Option func(*Server)

// WithClock drives the keepalive pings from clk.
func WithClock(clk clock.Clock) Option {
	return func(s *Server) {
		s.clk = clk
	}
}

// WithPingInterval changes how often idle clients are pinged.
func WithPingInterval(interval time.Duration) Option {
	return func(s *Server) {
		s.pingInterval = interval
	}
}

// Server serves one WebSocket endpoint. Every text message is a Request and is answered by a
// Response, subscriptions additionally receive OutputUpdates.
type Server struct {
	registry     *cycler.Registry
	parameters   ParameterStore
	logger       logging.Logger
	clk          clock.Clock
	pingInterval time.Duration
	upgrader     websocket.Upgrader

	mu      sync.Mutex
	clients map[uuid.UUID]*client
	workers utils.StoppableWorkers
}

// NewServer returns a server for the instances of registry.
func NewServer(registry *cycler.Registry, parameters ParameterStore, logger logging.Logger, opts ...Option) *Server {
	s := &Server{
		registry:     registry,
		parameters:   parameters,
		logger:       logger,
		clk:          clock.New(),
		pingInterval: defaultPingInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: map[uuid.UUID]*client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start forwards the outputs of every registered instance until ctx is done or Close is called.
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workers != nil {
		return
	}
	s.workers = utils.NewStoppableWorkersWithContext(ctx, func(err *utils.PanicError) {
		s.logger.Errorw("communication worker panicked", "error", err)
	}, s.ping)
	for _, name := range s.registry.Instances() {
		instance, ok := s.registry.Instance(name)
		if !ok {
			continue
		}
		s.workers.AddWorkers(func(ctx context.Context) {
			s.forward(ctx, instance)
		})
	}
}

// forward pushes subscribed paths to clients after every published tick.
func (s *Server) forward(ctx context.Context, instance *cycler.Instance) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-instance.OutputsChanged():
			if !ok {
				return
			}
		}
		db := instance.Latest()
		for _, c := range s.snapshotClients() {
			for _, path := range c.paths(instance.Name()) {
				value, err := cycler.ResolvePath(db, path)
				if err != nil {
					// additional outputs are absent in ticks before the node saw the subscription
					continue
				}
				c.send(OutputUpdate{Kind: KindOutputUpdate, Cycler: instance.Name(), Path: path, Value: value})
			}
		}
	}
}

func (s *Server) ping(ctx context.Context) {
	ticker := s.clk.Ticker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, c := range s.snapshotClients() {
			if err := c.ping(); err != nil {
				s.logger.Debugw("ping failed", "client", c.id, "error", err)
			}
		}
	}
}

func (s *Server) snapshotClients() []*client {
	s.mu.Lock()
	defer s.mu.Unlock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

// ServeHTTP upgrades the connection and serves requests until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("websocket upgrade failed", "error", err)
		return
	}
	c := newClient(conn, s.logger)
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Infow("client connected", "client", c.id, "remote", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		s.unsubscribeAll(c)
		//nolint:errcheck
		conn.Close()
		s.logger.Infow("client disconnected", "client", c.id)
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugw("reading from client failed", "client", c.id, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var request Request
		if err := json.Unmarshal(data, &request); err != nil {
			c.send(Response{OK: false, Error: "malformed request: " + err.Error()})
			continue
		}
		s.handle(c, request)
	}
}

func (s *Server) handle(c *client, request Request) {
	value, err := s.dispatch(c, request)
	response := Response{ID: request.ID, OK: err == nil, Value: value}
	if err != nil {
		response.Error = err.Error()
	}
	c.send(response)

	// subscribers get the current value right away
	if err == nil && request.Kind == KindSubscribeOutput {
		if instance, ok := s.registry.Instance(request.Cycler); ok {
			if current, err := cycler.ResolvePath(instance.Latest(), request.Path); err == nil {
				c.send(OutputUpdate{Kind: KindOutputUpdate, Cycler: request.Cycler, Path: request.Path, Value: current})
			}
		}
	}
}

func (s *Server) dispatch(c *client, request Request) (any, error) {
	switch request.Kind {
	case KindSubscribeOutput:
		instance, err := s.instance(request.Cycler)
		if err != nil {
			return nil, err
		}
		if c.subscribed(request.Cycler, request.Path) {
			return nil, errors.Errorf("already subscribed to %s", request.Path)
		}
		if err := instance.Subscribe(request.Path); err != nil {
			return nil, err
		}
		c.subscribe(request.Cycler, request.Path)
		return nil, nil
	case KindUnsubscribeOutput:
		instance, err := s.instance(request.Cycler)
		if err != nil {
			return nil, err
		}
		if !c.unsubscribe(request.Cycler, request.Path) {
			return nil, errors.Errorf("not subscribed to %s", request.Path)
		}
		return nil, instance.Unsubscribe(request.Path)
	case KindGetCyclers:
		return s.registry.Instances(), nil
	case KindGetParameters:
		if s.parameters == nil {
			return nil, errors.New("no parameters available")
		}
		return s.parameters.Document(), nil
	case KindUpdateParameter:
		if s.parameters == nil {
			return nil, errors.New("no parameters available")
		}
		return nil, s.parameters.Update(request.Path, request.Value)
	default:
		return nil, errors.Errorf("unknown request kind %q", request.Kind)
	}
}

func (s *Server) instance(name string) (*cycler.Instance, error) {
	instance, ok := s.registry.Instance(name)
	if !ok {
		return nil, errors.Errorf("unknown cycler %q", name)
	}
	return instance, nil
}

func (s *Server) unsubscribeAll(c *client) {
	for name, paths := range c.allPaths() {
		instance, ok := s.registry.Instance(name)
		if !ok {
			continue
		}
		for _, path := range paths {
			if err := instance.Unsubscribe(path); err != nil {
				s.logger.Debugw("unsubscribing disconnected client failed", "client", c.id, "path", path, "error", err)
			}
		}
	}
}

// ListenAndServe serves on address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	s.Start(ctx)
	server := &http.Server{Addr: address, Handler: s, ReadHeaderTimeout: 5 * time.Second}
	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		shutdownDone <- server.Shutdown(shutdownCtx)
	}()
	s.logger.Infow("communication server listening", "address", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "communication server")
	}
	return multierr.Combine(<-shutdownDone, s.Close())
}

// Close stops forwarding and disconnects all clients.
func (s *Server) Close() error {
	s.mu.Lock()
	workers := s.workers
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	var err error
	for _, c := range clients {
		err = multierr.Append(err, c.close())
	}
	return err
}

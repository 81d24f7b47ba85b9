package communication

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/naosoccer/stack/logging"
)

// client is one connected WebSocket. Writes may come from the request handler and from the
// forwarding workers.
type client struct {
	id     uuid.UUID
	conn   *websocket.Conn
	logger logging.Logger

	writeMu sync.Mutex

	mu            sync.Mutex
	subscriptions map[string]map[string]struct{} // cycler -> paths
}

func newClient(conn *websocket.Conn, logger logging.Logger) *client {
	return &client{
		id:            uuid.New(),
		conn:          conn,
		logger:        logger,
		subscriptions: map[string]map[string]struct{}{},
	}
}

func (c *client) send(message any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	//nolint:errcheck
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(message); err != nil {
		c.logger.Debugw("writing to client failed", "client", c.id, "error", err)
	}
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *client) close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	//nolint:errcheck
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeTimeout))
	return c.conn.Close()
}

func (c *client) subscribed(cyclerName, path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[cyclerName][path]
	return ok
}

func (c *client) subscribe(cyclerName, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths, ok := c.subscriptions[cyclerName]
	if !ok {
		paths = map[string]struct{}{}
		c.subscriptions[cyclerName] = paths
	}
	paths[path] = struct{}{}
}

func (c *client) unsubscribe(cyclerName, path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscriptions[cyclerName][path]; !ok {
		return false
	}
	delete(c.subscriptions[cyclerName], path)
	return true
}

func (c *client) paths(cyclerName string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.subscriptions[cyclerName]))
	for path := range c.subscriptions[cyclerName] {
		paths = append(paths, path)
	}
	return paths
}

func (c *client) allPaths() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string][]string, len(c.subscriptions))
	for cyclerName, paths := range c.subscriptions {
		for path := range paths {
			result[cyclerName] = append(result[cyclerName], path)
		}
	}
	return result
}

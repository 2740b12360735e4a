// Package chatws serves the live chat websocket and tracks open connections.
package chatws

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks active chat connections per user. A user may hold
// several connections, one per browser tab.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
	log    *slog.Logger
}

// NewConnManager creates an empty manager.
func NewConnManager(logger *slog.Logger) *ConnManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
		log:    logger,
	}
}

// Get returns the connection registered as connID for userID.
func (m *ConnManager) Get(userID, connID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if conns, ok := m.active[userID]; ok {
		return conns[connID]
	}
	return nil
}

// Count returns the number of open connections for userID.
func (m *ConnManager) Count(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active[userID])
}

// Register adds conn for userID, replacing and closing any previous
// connection with the same connID.
func (m *ConnManager) Register(userID, connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}
	if existing, exists := m.active[userID][connID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}

	m.active[userID][connID] = conn
	m.log.Info("Chat connection registered", "user_id", userID, "conn_id", connID)
}

// Unregister removes conn if it is still the one registered as connID.
func (m *ConnManager) Unregister(userID, connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.active[userID]
	if !ok {
		return
	}
	if current, exists := conns[connID]; exists && current == conn {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(m.active, userID)
		}
		m.log.Info("Chat connection unregistered", "user_id", userID, "conn_id", connID)
	}
}

// CloseAll closes every tracked connection. Used on shutdown.
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, conns := range m.active {
		for connID, conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			m.log.Info("Chat connection closed", "user_id", userID, "conn_id", connID)
		}
	}
	m.active = make(map[string]map[string]*websocket.Conn)
}

// Package web provides the HTTP/WebSocket surface of the motion core:
// state queries, task status, tool triggering, emergency control and a
// live telemetry stream for the dashboard.
package web

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-g1/internal/log"
	"github.com/teslashibe/go-g1/pkg/action"
	"github.com/teslashibe/go-g1/pkg/bridge"
	"github.com/teslashibe/go-g1/pkg/hub"
	"github.com/teslashibe/go-g1/pkg/protocol"
)

var logger = log.Component("web")

const (
	maxLogEntries     = 500
	stateBroadcastGap = 500 * time.Millisecond
)

// Server is the dashboard and control server.
type Server struct {
	app  *fiber.App
	port string

	actions *action.Manager
	bridge  *bridge.Bridge

	// Log buffer (last 500 entries)
	logs   []protocol.LogEntry
	logsMu sync.RWMutex

	// Hubs for websocket broadcast (thread-safe!)
	statusHub *hub.Hub
	logHub    *hub.Hub

	stopBroadcast chan struct{}
}

// NewServer creates the web server on the given port.
func NewServer(port string, actions *action.Manager, b *bridge.Bridge) *Server {
	s := &Server{
		port:          port,
		actions:       actions,
		bridge:        b,
		logs:          make([]protocol.LogEntry, 0, maxLogEntries),
		statusHub:     hub.New("status"),
		logHub:        hub.New("logs"),
		stopBroadcast: make(chan struct{}),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s.app.Use(cors.New())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/tasks/:id", s.handleTaskStatus)
	api.Post("/tools/:name", s.handleTriggerTool)
	api.Post("/emergency", s.handleEmergency)
	api.Post("/recover", s.handleRecover)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/tools", s.handleListTools)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/status", websocket.New(s.handleStatusWS))
	s.app.Get("/ws/logs", websocket.New(s.handleLogsWS))
}

// Start runs the hubs, the state broadcaster and the HTTP listener.
// Blocks until Shutdown.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.logHub.Run()
	go s.broadcastLoop()

	logger.Info("web server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown stops the listener and the broadcast loop.
func (s *Server) Shutdown() error {
	close(s.stopBroadcast)
	return s.app.Shutdown()
}

// broadcastLoop pushes a state snapshot to dashboard clients twice a
// second. Task events arrive separately through TaskEvent.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(stateBroadcastGap)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopBroadcast:
			return
		case <-ticker.C:
			st := s.actions.State()
			msg, err := protocol.NewMessage(protocol.TypeState, protocol.StateData{
				VX:        st.VX,
				VY:        st.VY,
				VYaw:      st.VYaw,
				Action:    st.Action,
				Emergency: st.Emergency,
				Frequency: s.actions.Frequency(),
				QueueLen:  s.actions.QueueLength(),
			})
			if err != nil {
				continue
			}
			if data, err := msg.Bytes(); err == nil {
				s.statusHub.Broadcast(hub.NewJSONMessage(data))
			}
		}
	}
}

// TaskEvent broadcasts a task state change. Wire it to the manager via
// action.WithTaskListener.
func (s *Server) TaskEvent(task action.Task) {
	msg, err := protocol.NewMessage(protocol.TypeTask, protocol.TaskEvent{
		TaskID:   task.ID,
		Type:     task.Type,
		Status:   string(task.Status),
		Duration: task.Duration.Seconds(),
	})
	if err != nil {
		return
	}
	if data, err := msg.Bytes(); err == nil {
		s.statusHub.Broadcast(hub.NewJSONMessage(data))
	}
}

// AddLog appends a dashboard log line and broadcasts it.
func (s *Server) AddLog(level, message string) {
	entry := protocol.LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Level:   level,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[len(s.logs)-maxLogEntries:]
	}
	s.logsMu.Unlock()

	if msg, err := protocol.NewMessage(protocol.TypeLog, entry); err == nil {
		if data, err := msg.Bytes(); err == nil {
			s.logHub.Broadcast(hub.NewJSONMessage(data))
		}
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf(":%s", s.port)
}

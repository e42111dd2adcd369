package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-g1/pkg/bridge"
	"github.com/teslashibe/go-g1/pkg/hub"
	"github.com/teslashibe/go-g1/pkg/protocol"
)

func (s *Server) handleState(c *fiber.Ctx) error {
	st := s.actions.State()
	return c.JSON(protocol.StateData{
		VX:        st.VX,
		VY:        st.VY,
		VYaw:      st.VYaw,
		Action:    st.Action,
		Emergency: st.Emergency,
		Frequency: s.actions.Frequency(),
		QueueLen:  s.actions.QueueLength(),
	})
}

func (s *Server) handleTaskStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	task, ok := s.actions.TaskStatus(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "task not found",
		})
	}
	return c.JSON(task)
}

// handleTriggerTool routes a tool call through the bridge, the same
// path LLM tool calls take. The body is the tool's argument object.
func (s *Server) handleTriggerTool(c *fiber.Ctx) error {
	name := c.Params("name")

	args := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&args); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid arguments: " + err.Error(),
			})
		}
	}

	result := s.bridge.Execute(name, args)

	if msg, err := protocol.NewMessage(protocol.TypeTool, protocol.ToolEvent{
		Name:    name,
		Status:  result.Status,
		Message: result.Message,
		TaskID:  result.TaskID,
	}); err == nil {
		if data, err := msg.Bytes(); err == nil {
			s.statusHub.Broadcast(hub.NewJSONMessage(data))
		}
	}

	status := fiber.StatusOK
	if result.Status == bridge.StatusError {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(result)
}

func (s *Server) handleEmergency(c *fiber.Ctx) error {
	s.actions.EmergencyStop()

	if msg, err := protocol.NewMessage(protocol.TypeEstop, protocol.EstopEvent{Source: "api"}); err == nil {
		if data, err := msg.Bytes(); err == nil {
			s.statusHub.Broadcast(hub.NewJSONMessage(data))
		}
	}
	return c.JSON(fiber.Map{"status": "ok", "action": s.actions.State().Action})
}

func (s *Server) handleRecover(c *fiber.Ctx) error {
	if !s.actions.RecoverFromEmergency() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "not in emergency state",
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "action": s.actions.State().Action})
}

func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

func (s *Server) handleListTools(c *fiber.Ctx) error {
	return c.JSON(s.bridge.Tools())
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

func (s *Server) handleLogsWS(c *websocket.Conn) {
	client := hub.NewClient(s.logHub, c)
	client.Run()
}

package server

import (
	"chat-presence/domain"
	"chat-presence/errors"

	"github.com/gofiber/fiber/v2"
)

// join handles POST /participants.
func (s *Server) join(c *fiber.Ctx) error {
	var req JoinRequest
	if err := c.BodyParser(&req); err != nil {
		return s.writeError(c, errors.NewValidationError(errors.FieldError{
			Field: "body", Rule: "json", Message: "body must be a JSON object with a string name",
		}))
	}
	participant, err := s.presence.Join(c.UserContext(), domain.JoinCommand{Name: req.Name})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toParticipantResponse(participant))
}

// listParticipants handles GET /participants.
func (s *Server) listParticipants(c *fiber.Ctx) error {
	participants, err := s.presence.ListParticipants(c.UserContext())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toParticipantResponses(participants))
}

// postMessage handles POST /messages, the sender comes from the user header.
func (s *Server) postMessage(c *fiber.Ctx) error {
	var req PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return s.writeError(c, errors.NewValidationError(errors.FieldError{
			Field: "body", Rule: "json", Message: "body must be a JSON object with string to, text and type",
		}))
	}
	message, err := s.messages.PostMessage(c.UserContext(), domain.PostMessageCommand{
		From: c.Get(userHeader),
		To:   req.To,
		Text: req.Text,
		Type: domain.MessageType(req.Type),
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMessageResponse(message))
}

// listMessages handles GET /messages?limit=N for the viewer named in the user header.
func (s *Server) listMessages(c *fiber.Ctx) error {
	cmd := domain.ListMessagesCommand{Viewer: c.Get(userHeader)}
	if limit := c.Query("limit"); limit != "" {
		cmd.Limit = &limit
	}
	messages, err := s.messages.ListMessages(c.UserContext(), cmd)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMessageResponses(messages))
}

// heartbeat handles POST /status.
func (s *Server) heartbeat(c *fiber.Ctx) error {
	if err := s.presence.Heartbeat(c.UserContext(), domain.HeartbeatCommand{Name: c.Get(userHeader)}); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// health handles GET /health.
func (s *Server) health(c *fiber.Ctx) error {
	if s.monitor == nil {
		return c.JSON(fiber.Map{"status": "healthy"})
	}
	return c.JSON(fiber.Map{"status": "healthy", "stats": s.monitor.Snapshot()})
}

// Package client talks to the chat server over its HTTP API.
package client

import (
	"chat-presence/infrastructure/http/server"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 5 * time.Second

// Client speaks for one participant.
type Client struct {
	baseURL string
	name    string
	timeout time.Duration
}

func New(baseURL, name string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), name: name, timeout: defaultTimeout}
}

func (c *Client) Name() string {
	return c.name
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Body   server.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Body.Message == "" {
		return fmt.Sprintf("chat server answered %d", e.Status)
	}
	return fmt.Sprintf("chat server answered %d: %s", e.Status, e.Body.Message)
}

// Join registers the participant.
func (c *Client) Join() (server.ParticipantResponse, error) {
	var participant server.ParticipantResponse
	agent := fiber.Post(c.baseURL + "/participants").JSON(server.JoinRequest{Name: c.name})
	return participant, c.send(agent, &participant)
}

// Status sends a heartbeat.
func (c *Client) Status() error {
	return c.send(fiber.Post(c.baseURL+"/status").Set("user", c.name), nil)
}

// Send posts to one participant, or to everybody when to is "Todos".
func (c *Client) Send(to, text string, private bool) (server.MessageResponse, error) {
	messageType := "message"
	if private {
		messageType = "private_message"
	}
	var message server.MessageResponse
	agent := fiber.Post(c.baseURL+"/messages").
		Set("user", c.name).
		JSON(server.PostMessageRequest{To: to, Text: text, Type: messageType})
	return message, c.send(agent, &message)
}

// Messages returns the last limit readable messages, all of them when limit is zero or less.
func (c *Client) Messages(limit int) ([]server.MessageResponse, error) {
	agent := fiber.Get(c.baseURL+"/messages").Set("user", c.name)
	if limit > 0 {
		agent = agent.QueryString("limit=" + strconv.Itoa(limit))
	}
	var messages []server.MessageResponse
	return messages, c.send(agent, &messages)
}

func (c *Client) Participants() ([]server.ParticipantResponse, error) {
	var participants []server.ParticipantResponse
	return participants, c.send(fiber.Get(c.baseURL+"/participants"), &participants)
}

func (c *Client) send(agent *fiber.Agent, out any) error {
	code, body, errs := agent.Timeout(c.timeout).Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if code >= fiber.StatusBadRequest {
		apiErr := &APIError{Status: code}
		_ = json.Unmarshal(body, &apiErr.Body)
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unexpected answer: %w", err)
	}
	return nil
}

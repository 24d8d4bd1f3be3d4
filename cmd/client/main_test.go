package main

import (
	"chat-presence/infrastructure/http/server"
	"testing"

	"github.com/stretchr/testify/require"
)

func msg(text string) server.MessageResponse {
	return server.MessageResponse{From: "alice", To: "Todos", Text: text, Type: "message", Time: "12:00:00"}
}

func TestFeed_Unseen(t *testing.T) {
	req := require.New(t)
	f := newFeed()

	// First poll prints everything
	req.Equal([]server.MessageResponse{msg("a"), msg("b")}, f.unseen([]server.MessageResponse{msg("a"), msg("b")}))

	// Window slid by one
	req.Equal([]server.MessageResponse{msg("c")}, f.unseen([]server.MessageResponse{msg("b"), msg("c")}))

	// Nothing new
	req.Empty(f.unseen([]server.MessageResponse{msg("b"), msg("c")}))

	// No overlap at all after a long pause
	req.Equal([]server.MessageResponse{msg("x"), msg("y")}, f.unseen([]server.MessageResponse{msg("x"), msg("y")}))
}

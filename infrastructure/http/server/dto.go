package server

import (
	"chat-presence/domain"
	"chat-presence/errors"

	"github.com/samber/lo"
)

type JoinRequest struct {
	Name string `json:"name"`
}

type PostMessageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type ParticipantResponse struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type MessageResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  []errors.FieldError `json:"fields,omitempty"`
}

func toParticipantResponse(p domain.Participant) ParticipantResponse {
	return ParticipantResponse{Name: p.Name, LastStatus: p.LastStatus()}
}

func toParticipantResponses(participants []domain.Participant) []ParticipantResponse {
	return lo.Map(participants, func(p domain.Participant, _ int) ParticipantResponse {
		return toParticipantResponse(p)
	})
}

func toMessageResponse(m domain.Message) MessageResponse {
	return MessageResponse{From: m.From, To: m.To, Text: m.Text, Type: string(m.Type), Time: m.Time}
}

func toMessageResponses(messages []domain.Message) []MessageResponse {
	return lo.Map(messages, func(m domain.Message, _ int) MessageResponse {
		return toMessageResponse(m)
	})
}

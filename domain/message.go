// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once appended to the log.
package domain

import (
	"github.com/google/uuid"
)

// Broadcast is the reserved recipient meaning every participant.
const Broadcast = "Todos"

type MessageType string

const (
	PublicMessage  MessageType = "message"
	PrivateMessage MessageType = "private_message"
	StatusMessage  MessageType = "status"
)

const (
	JoinNoticeText  = "entra na sala..."
	LeaveNoticeText = "sai da sala..."
)

// Message represents an immutable chat event.
type Message struct {
	ID   uuid.UUID // unique identifier
	From string
	To   string
	Text string
	Type MessageType
	Time string // HH:MM:SS, assigned at append time
}

// NewJoinNotice builds the system message announcing a participant arrival.
func NewJoinNotice(name string, clock Clock) Message {
	return newStatus(name, JoinNoticeText, clock)
}

// NewLeaveNotice builds the system message announcing a participant eviction.
func NewLeaveNotice(name string, clock Clock) Message {
	return newStatus(name, LeaveNoticeText, clock)
}

func newStatus(name, text string, clock Clock) Message {
	return Message{
		ID:   uuid.New(),
		From: name,
		To:   Broadcast,
		Text: text,
		Type: StatusMessage,
		Time: FormatTime(clock.Now()),
	}
}

// IsVisibleTo tells whether viewer may read the message.
// Messages addressed to the viewer and broadcasts are always visible;
// messages sent by the viewer only when includeSent is set.
func (m Message) IsVisibleTo(viewer string, includeSent bool) bool {
	if m.To == viewer || m.To == Broadcast {
		return true
	}
	return includeSent && m.From == viewer
}

// IsUserType reports whether t may be used by a participant when posting.
func (t MessageType) IsUserType() bool {
	return t == PublicMessage || t == PrivateMessage
}

package domain

// Commands are the inbound operations of the chat core.
// Their validate tags are the single schema checked before any storage access.

type JoinCommand struct {
	Name string `validate:"required"`
}

type HeartbeatCommand struct {
	Name string `validate:"required"`
}

type PostMessageCommand struct {
	From string      `validate:"required"`
	To   string      `validate:"required"`
	Text string      `validate:"required"`
	Type MessageType `validate:"required,oneof=message private_message"`
}

// ListMessagesCommand carries the raw limit as received; nil means no limit.
type ListMessagesCommand struct {
	Viewer string  `validate:"required"`
	Limit  *string `validate:"omitempty,number"`
}

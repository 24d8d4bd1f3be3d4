package storage

// ParticipantModel is one row per live participant; the name is the primary key.
type ParticipantModel struct {
	Name       string `gorm:"primarykey;size:255"`
	LastStatus int64  `gorm:"not null;index"`
}

func (ParticipantModel) TableName() string {
	return "participants"
}

// MessageModel is one row of the append-only log.
// Position is an autoincrement key and defines log order.
type MessageModel struct {
	Position  uint   `gorm:"primarykey;autoIncrement"`
	ID        string `gorm:"size:36;not null;uniqueIndex"`
	Sender    string `gorm:"size:255;not null;index"`
	Recipient string `gorm:"size:255;not null;index"`
	Text      string `gorm:"not null"`
	Type      string `gorm:"size:32;not null"`
	Time      string `gorm:"size:8;not null"`
}

func (MessageModel) TableName() string {
	return "messages"
}

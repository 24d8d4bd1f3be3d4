package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func TestFormatTime_ZeroPadded(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 3, 7, 4, 5, 9, 0, time.UTC)
	req.Equal("04:05:09", FormatTime(at))
	req.Equal("23:59:59", FormatTime(time.Date(2024, 3, 7, 23, 59, 59, 999, time.UTC)))
}

func TestParticipant_IsInactive(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	threshold := 10 * time.Second

	req.True(NewParticipant("alice", now.Add(-11*time.Second)).IsInactive(now, threshold))
	req.False(NewParticipant("bob", now.Add(-5*time.Second)).IsInactive(now, threshold))
	// Exactly at the threshold is not yet expired
	req.False(NewParticipant("clara", now.Add(-threshold)).IsInactive(now, threshold))
}

func TestParticipant_LastStatus(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	require.Equal(t, int64(1_700_000_000_123), NewParticipant("alice", at).LastStatus())
}

func TestNotices_AreBroadcastStatusMessages(t *testing.T) {
	req := require.New(t)
	clock := fixedClock{at: time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)}

	join := NewJoinNotice("alice", clock)
	leave := NewLeaveNotice("alice", clock)

	for _, m := range []Message{join, leave} {
		req.Equal("alice", m.From)
		req.Equal(Broadcast, m.To)
		req.Equal(StatusMessage, m.Type)
		req.Equal("08:30:00", m.Time)
	}
	req.Equal(JoinNoticeText, join.Text)
	req.Equal(LeaveNoticeText, leave.Text)
	req.NotEqual(join.ID, leave.ID)
}

func TestMessage_IsVisibleTo(t *testing.T) {
	req := require.New(t)
	broadcast := Message{From: "alice", To: Broadcast, Type: PublicMessage}
	toBob := Message{From: "alice", To: "bob", Type: PrivateMessage}
	fromBob := Message{From: "bob", To: "alice", Type: PrivateMessage}

	req.True(broadcast.IsVisibleTo("bob", false))
	req.True(toBob.IsVisibleTo("bob", false))
	req.False(fromBob.IsVisibleTo("bob", false))
	req.True(fromBob.IsVisibleTo("bob", true))
	req.False(toBob.IsVisibleTo("clara", true))
}

func TestMessageType_IsUserType(t *testing.T) {
	req := require.New(t)
	req.True(PublicMessage.IsUserType())
	req.True(PrivateMessage.IsUserType())
	req.False(StatusMessage.IsUserType())
	req.False(MessageType("shout").IsUserType())
}

func TestManualClock_Advance(t *testing.T) {
	req := require.New(t)
	start := time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)
	clock := NewManualClock(start)

	clock.Advance(11 * time.Second)

	req.Equal(start.Add(11*time.Second), clock.Now())
	req.Equal("08:30:11", FormatTime(clock.Now()))
}

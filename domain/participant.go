// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Participant is a live chat member identified by its unique name.
// At most one Participant exists per name at any time.
type Participant struct {
	Name     string
	LastSeen time.Time
}

// NewParticipant creates a Participant seen at the given instant.
func NewParticipant(name string, at time.Time) Participant {
	return Participant{Name: name, LastSeen: at}
}

// LastStatus returns the last liveness signal in milliseconds since the Unix epoch.
func (p Participant) LastStatus() int64 {
	return p.LastSeen.UnixMilli()
}

// IsInactive reports whether the participant has been silent for longer than threshold.
// A participant exactly at the threshold is still considered alive.
func (p Participant) IsInactive(now time.Time, threshold time.Duration) bool {
	return now.Sub(p.LastSeen) > threshold
}

// InactivityCutoff returns the instant before which a last signal means eviction.
func InactivityCutoff(now time.Time, threshold time.Duration) time.Time {
	return now.Add(-threshold)
}

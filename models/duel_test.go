package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuelIsTerminal(t *testing.T) {
	tests := []struct {
		status   string
		terminal bool
	}{
		{DuelPending, false},
		{DuelActive, false},
		{DuelDeclined, true},
		{DuelExpired, true},
		{DuelCompleted, true},
		{DuelCancelled, true},
	}

	for _, tt := range tests {
		d := Duel{Status: tt.status}
		assert.Equal(t, tt.terminal, d.IsTerminal(), tt.status)
	}
}

func TestDuelParticipantSide(t *testing.T) {
	d := Duel{ChallengerID: "alice", OpponentID: "bob"}

	challenger, ok := d.ParticipantSide("alice")
	assert.True(t, ok)
	assert.True(t, challenger)

	challenger, ok = d.ParticipantSide("bob")
	assert.True(t, ok)
	assert.False(t, challenger)

	_, ok = d.ParticipantSide("mallory")
	assert.False(t, ok)
}

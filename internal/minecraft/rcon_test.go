package minecraft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/09wizardguy/SignalBox/internal/common/config"
	"github.com/09wizardguy/SignalBox/internal/common/logger"
)

func TestWhitelistClient_Unconfigured(t *testing.T) {
	c := NewWhitelistClient(config.RCONConfig{}, logger.NewTestLogger(t))

	assert.False(t, c.Add(context.Background(), "Notch"))
	assert.False(t, c.Remove(context.Background(), "Notch"))
}

func TestIsWhitelistAdded(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected bool
	}{
		{name: "fresh add", response: "Added Notch to the whitelist", expected: true},
		{name: "already whitelisted", response: "Player is already whitelisted", expected: true},
		{name: "unknown player", response: "That player does not exist", expected: false},
		{name: "empty response", response: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isWhitelistAdded(tt.response))
		})
	}
}

func TestIsWhitelistRemoved(t *testing.T) {
	assert.True(t, isWhitelistRemoved("Removed Notch from the whitelist"))
	assert.False(t, isWhitelistRemoved("That player does not exist"))
	assert.False(t, isWhitelistRemoved(""))
}

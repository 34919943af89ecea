package minecraft

import (
	"context"
	"strings"

	"github.com/gorcon/rcon"

	"github.com/09wizardguy/SignalBox/internal/common/config"
	commonerrors "github.com/09wizardguy/SignalBox/internal/common/errors"
	"github.com/09wizardguy/SignalBox/internal/common/logger"
)

// WhitelistClient executes whitelist commands on the game server over
// RCON. Every failure mode, including missing credentials, surfaces as
// false: the caller treats whitelisting as a best-effort side effect.
type WhitelistClient struct {
	cfg config.RCONConfig
	log logger.Logger
}

func NewWhitelistClient(cfg config.RCONConfig, log logger.Logger) *WhitelistClient {
	return &WhitelistClient{
		cfg: cfg,
		log: log.WithFields(map[string]interface{}{"component": "rcon"}),
	}
}

// Add whitelists username on the game server.
func (c *WhitelistClient) Add(ctx context.Context, username string) bool {
	resp, ok := c.execute(username, "whitelist add "+username)
	return ok && isWhitelistAdded(resp)
}

// Remove drops username from the whitelist.
func (c *WhitelistClient) Remove(ctx context.Context, username string) bool {
	resp, ok := c.execute(username, "whitelist remove "+username)
	return ok && isWhitelistRemoved(resp)
}

func (c *WhitelistClient) execute(username, command string) (string, bool) {
	if !c.cfg.Configured() {
		c.log.Error("rcon credentials not configured", nil)
		return "", false
	}

	timeout := config.GetDuration(c.cfg.Timeout)
	conn, err := rcon.Dial(c.cfg.Address(), c.cfg.Password,
		rcon.SetDialTimeout(timeout),
		rcon.SetDeadline(timeout),
	)
	if err != nil {
		c.log.WithError(commonerrors.NewWhitelistFailedError(username, err)).
			Error("rcon dial failed", nil)
		return "", false
	}
	defer conn.Close()

	resp, err := conn.Execute(command)
	if err != nil {
		c.log.WithError(commonerrors.NewWhitelistFailedError(username, err)).
			Error("rcon command failed", nil)
		return "", false
	}

	c.log.Info("rcon response", map[string]interface{}{"response": resp})
	return resp, true
}

// isWhitelistAdded accepts both a fresh add and an already-whitelisted
// player as success.
func isWhitelistAdded(response string) bool {
	return strings.Contains(response, "Added") || strings.Contains(response, "already")
}

func isWhitelistRemoved(response string) bool {
	return strings.Contains(response, "Removed")
}

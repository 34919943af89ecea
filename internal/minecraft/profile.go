// Package minecraft holds the external Minecraft integrations: the
// Mojang profile lookup and the RCON whitelist side channel.
package minecraft

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/09wizardguy/SignalBox/internal/common/http"
	"github.com/09wizardguy/SignalBox/internal/common/logger"
)

// Profile is a Mojang account profile. Valid is false when the username
// resolves to nothing; that is a normal outcome, not an error.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
}

// ProfileClient looks up Minecraft usernames against the Mojang profiles
// API, optionally read-through cached in Redis.
type ProfileClient struct {
	baseURL  string
	httpc    *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	log      logger.Logger
}

func NewProfileClient(baseURL string, timeout time.Duration, log logger.Logger) *ProfileClient {
	return &ProfileClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   http.NewClient(timeout),
		log:     log.WithFields(map[string]interface{}{"component": "mojang"}),
	}
}

// WithCache enables the Redis read-through cache for lookups.
func (c *ProfileClient) WithCache(cache *redis.Client, ttl time.Duration) *ProfileClient {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

func cacheKey(username string) string {
	return "mojang:profile:" + strings.ToLower(username)
}

// Lookup resolves username to a profile. An unknown username returns
// {Valid: false} with no error; only transport failures return an error,
// and even then the profile degrades to unverified so callers can
// continue.
func (c *ProfileClient) Lookup(ctx context.Context, username string) (Profile, error) {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey(username)).Result(); err == nil {
			var p Profile
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return p, nil
			}
		}
	}

	url := fmt.Sprintf("%s/users/profiles/minecraft/%s", c.baseURL, username)
	req, err := nethttp.NewRequest(nethttp.MethodGet, url, nil)
	if err != nil {
		return Profile{Name: username}, err
	}

	resp, err := c.httpc.DoWithContext(ctx, req)
	if err != nil {
		return Profile{Name: username}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		// Unknown username (404) or API refusal: a non-exceptional miss.
		return Profile{Name: username, Valid: false}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Profile{Name: username}, err
	}

	var payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Profile{Name: username}, err
	}

	profile := Profile{ID: payload.ID, Name: payload.Name, Valid: true}
	c.cacheProfile(ctx, username, profile)
	return profile, nil
}

func (c *ProfileClient) cacheProfile(ctx context.Context, username string, p Profile) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(username), data, c.cacheTTL).Err(); err != nil {
		c.log.Warn("profile cache write failed", map[string]interface{}{
			"username": username,
			"error":    err,
		})
	}
}

// FormatUUID inserts dashes into a compact 32-character Mojang UUID.
func FormatUUID(uuid string) string {
	if len(uuid) != 32 {
		return uuid
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		uuid[0:8], uuid[8:12], uuid[12:16], uuid[16:20], uuid[20:])
}

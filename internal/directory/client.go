// Package directory is a thin client for the telephony provider's
// list-membership API. It only answers queries; provider-side membership is
// never written from here.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrUnavailable = errors.New("directory: provider unavailable")

// Member is one enrolled phone number on a provider list.
type Member struct {
	Phone     string     `json:"phone"`
	Name      string     `json:"name,omitempty"`
	DateAdded *time.Time `json:"date_added,omitempty"`
}

// Client queries the provider API, with an optional short-lived redis cache
// in front of the member listings. The provider is eventually consistent, so
// a short TTL costs little accuracy and saves a burst of API calls when many
// callers hit the subscription menu together.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger

	cache    *redis.Client
	cacheTTL time.Duration
}

const defaultCacheTTL = time.Minute

func New(baseURL, token string, log *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		token:    token,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
		cacheTTL: defaultCacheTTL,
	}
}

// WithCache attaches a redis cache for member listings.
func (c *Client) WithCache(rdb *redis.Client, ttl time.Duration) *Client {
	c.cache = rdb
	if ttl > 0 {
		c.cacheTTL = ttl
	}
	return c
}

type listsResponse struct {
	Status string   `json:"status"`
	Lists  []string `json:"lists"`
}

type membersResponse struct {
	Status  string   `json:"status"`
	Members []Member `json:"members"`
}

// ListAll enumerates the provider's broadcast lists.
func (c *Client) ListAll(ctx context.Context) ([]string, error) {
	var out listsResponse
	if err := c.get(ctx, "/lists", nil, &out); err != nil {
		return nil, err
	}
	if out.Status != "OK" {
		return nil, fmt.Errorf("%w: status %q", ErrUnavailable, out.Status)
	}
	return out.Lists, nil
}

// ListMembers returns the members of one list, served from cache when fresh.
func (c *Client) ListMembers(ctx context.Context, list string) ([]Member, error) {
	if list == "" {
		return nil, errors.New("directory: empty list name")
	}

	cacheKey := "directory:list:" + list
	if members, ok := c.cached(ctx, cacheKey); ok {
		return members, nil
	}

	var out membersResponse
	if err := c.get(ctx, "/members", url.Values{"list": {list}}, &out); err != nil {
		return nil, err
	}
	if out.Status != "OK" {
		return nil, fmt.Errorf("%w: status %q", ErrUnavailable, out.Status)
	}

	c.store(ctx, cacheKey, out.Members)
	return out.Members, nil
}

// MembershipsOf returns the names of every list the phone is enrolled on.
func (c *Client) MembershipsOf(ctx context.Context, phone string) ([]string, error) {
	lists, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var memberships []string
	for _, list := range lists {
		members, err := c.ListMembers(ctx, list)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m.Phone == phone {
				memberships = append(memberships, list)
				break
			}
		}
	}
	return memberships, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return fmt.Errorf("%w: http %d", ErrUnavailable, res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// cached reads a member listing from redis. Any cache failure falls through
// to the provider.
func (c *Client) cached(ctx context.Context, key string) ([]Member, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("directory cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var members []Member
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, false
	}
	return members, true
}

func (c *Client) store(ctx context.Context, key string, members []Member) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(members)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
		c.log.Debug("directory cache write failed", "key", key, "error", err)
	}
}

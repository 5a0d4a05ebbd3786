package geoguessr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

var (
	ErrAuth     = errors.New("geoguessr: authentication failed")
	ErrNotFound = errors.New("geoguessr: game not found")
)

const (
	defaultFeedURL  = "https://www.geoguessr.com/api/v4/feed/private"
	defaultDuelsURL = "https://game-server.geoguessr.com/api/duels"
)

// Client talks to the game-results API with a session cookie. The credential
// is an opaque token supplied once at construction; an invalid or expired
// token surfaces as ErrAuth and is never retried here.
type Client struct {
	http     *http.Client
	token    string
	feedURL  string
	duelsURL string
	stopDate time.Time
	logger   *slog.Logger

	playerID string
}

// NewClient builds a client. timeout bounds every single request; stopDate is
// a pagination guardrail so a full history walk does not crawl into ancient,
// irrelevant entries.
func NewClient(ncfaToken string, timeout time.Duration, stopDate time.Time, logger *slog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		token:    ncfaToken,
		feedURL:  defaultFeedURL,
		duelsURL: defaultDuelsURL,
		stopDate: stopDate,
		logger:   logger,
	}
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values, out any) error {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "_ncfa", Value: c.token})

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("request %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return nil
}

// PlayerInfo returns the authenticated player's id and nick, taken from the
// newest feed entry. An empty feed means the session cookie did not resolve
// to an account.
func (c *Client) PlayerInfo(ctx context.Context) (*Player, error) {
	var page feedResponse
	if err := c.get(ctx, c.feedURL, nil, &page); err != nil {
		return nil, err
	}
	if len(page.Entries) == 0 {
		return nil, fmt.Errorf("%w: feed is empty, token may be invalid", ErrAuth)
	}
	p := page.Entries[0].User
	c.playerID = p.ID
	return &p, nil
}

// ListRecentGameIDs walks the activity feed newest-first and returns up to
// limit competitive duel ids. limit <= 0 walks the whole feed (full resync),
// bounded only by the stop date. Pages can be short or repeat games; callers
// must not assume a fixed page size.
func (c *Client) ListRecentGameIDs(ctx context.Context, limit int) ([]string, error) {
	var (
		ids       []string
		seen      = map[string]bool{}
		pageToken string
	)

	for {
		params := url.Values{}
		if pageToken != "" {
			params.Set("paginationToken", pageToken)
		}

		var page feedResponse
		if err := c.get(ctx, c.feedURL, params, &page); err != nil {
			return nil, err
		}
		if len(page.Entries) == 0 {
			break
		}

		for _, entry := range page.Entries {
			// The feed is newest-first, so the first entry older than
			// the stop date ends the walk; everything after it is older
			// still.
			if t := entry.Time; !t.IsZero() && t.Before(c.stopDate) {
				c.logger.Debug("feed reached stop date", "entry_time", t)
				return ids, nil
			}
			for _, id := range duelIDsFromEntry(entry, c.logger) {
				if seen[id] {
					continue
				}
				seen[id] = true
				ids = append(ids, id)
				if limit > 0 && len(ids) >= limit {
					return ids, nil
				}
			}
		}

		pageToken = page.PaginationToken
		if pageToken == "" {
			break
		}
	}
	return ids, nil
}

// FetchGame retrieves one duel and flattens it into a GameRecord oriented
// around the authenticated player.
func (c *Client) FetchGame(ctx context.Context, id string) (*duels.GameRecord, error) {
	if c.playerID == "" {
		if _, err := c.PlayerInfo(ctx); err != nil {
			return nil, err
		}
	}

	var raw duelResponse
	if err := c.get(ctx, c.duelsURL+"/"+id, nil, &raw); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return processGame(&raw, c.playerID)
}

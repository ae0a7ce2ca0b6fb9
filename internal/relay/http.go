package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"keyward/internal/domain"
)

// maxBody bounds how much of a response is decoded.
const maxBody = 1 << 20

// ErrNotFound is returned when the relay has no bundle for a user.
var ErrNotFound = errors.New("relay: user not found")

// HTTP fetches bundles from a relay at Base.
type HTTP struct {
	Base    string
	HTTP    *http.Client
	Timeout time.Duration // per request; zero means none
}

// NewHTTP returns a client for base. A nil client selects http.DefaultClient.
func NewHTTP(base string, client *http.Client, timeout time.Duration) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{Base: strings.TrimRight(base, "/"), HTTP: client, Timeout: timeout}
}

// FetchPreKeyBundle retrieves the published bundle for username.
func (c *HTTP) FetchPreKeyBundle(ctx context.Context, username domain.Username) (domain.PreKeyBundle, error) {
	if username == "" {
		return domain.PreKeyBundle{}, errors.New("relay: empty username")
	}
	var out domain.PreKeyBundle
	if err := c.getJSON(ctx, "/prekey/"+url.PathEscape(username.String()), &out); err != nil {
		return domain.PreKeyBundle{}, err
	}
	if out.Username == "" {
		out.Username = username
	}
	if out.Username != username {
		return domain.PreKeyBundle{}, fmt.Errorf("%w: relay returned bundle for %q, asked for %q", domain.ErrMalformedBundle, out.Username, username)
	}
	return out, nil
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: GET %s", ErrNotFound, path)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay GET %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("relay GET %s: decoding response: %w", path, err)
	}
	return nil
}

var _ domain.RelayClient = (*HTTP)(nil)

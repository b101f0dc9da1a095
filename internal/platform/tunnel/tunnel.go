// Package tunnel discovers the public base URL the server is reachable under
// by asking a local tunnel agent (ngrok's inspection API) for its tunnels.
package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"camstream/internal/platform/logger"
)

// DefaultAPIURL is the conventional address of the local tunnel inspection API.
const DefaultAPIURL = "http://127.0.0.1:4040/api/tunnels"

const defaultTimeout = 2 * time.Second

// Tunnel is one entry reported by the inspection API.
type Tunnel struct {
	Name      string `json:"name"`
	PublicURL string `json:"public_url"`
	Proto     string `json:"proto"`
}

type tunnelList struct {
	Tunnels []Tunnel `json:"tunnels"`
}

// Resolver queries the inspection API. Failures never escape Resolve; they
// turn into the fallback URL.
type Resolver struct {
	apiURL   string
	fallback string
	client   *http.Client
	log      *slog.Logger
}

// NewResolver returns a Resolver querying apiURL and answering fallback when
// no tunnel can be found. A nil client gets a 2s timeout.
func NewResolver(apiURL, fallback string, client *http.Client, log *slog.Logger) *Resolver {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{
		apiURL:   apiURL,
		fallback: strings.TrimRight(fallback, "/"),
		client:   client,
		log:      log,
	}
}

// Resolve returns the preferred public URL: the first https tunnel, else the
// first tunnel of any kind, else the fallback.
func (r *Resolver) Resolve(ctx context.Context) string {
	tunnels, err := r.fetch(ctx)
	if err != nil {
		r.log.Debug("tunnel lookup failed, using local base url",
			slog.String("api_url", r.apiURL),
			slog.String("fallback", r.fallback),
			slog.String("error", err.Error()))
		return r.fallback
	}
	if url := pick(tunnels); url != "" {
		return url
	}
	r.log.Debug("no tunnels reported, using local base url", slog.String("fallback", r.fallback))
	return r.fallback
}

func (r *Resolver) fetch(ctx context.Context) ([]Tunnel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var list tunnelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode tunnels: %w", err)
	}
	return list.Tunnels, nil
}

func pick(tunnels []Tunnel) string {
	for _, t := range tunnels {
		if t.Proto == "https" && t.PublicURL != "" {
			return strings.TrimRight(t.PublicURL, "/")
		}
	}
	if len(tunnels) > 0 {
		return strings.TrimRight(tunnels[0].PublicURL, "/")
	}
	return ""
}

// Endpoint is the process-wide base URL. It is resolved at most once; a tunnel
// that changes after that is not noticed until the process restarts, so
// published stream URLs may go stale for the rest of the process lifetime.
type Endpoint struct {
	once       sync.Once
	resolve    func(context.Context) string
	value      string
	resolvedAt time.Time
}

// NewEndpoint returns an Endpoint that resolves through r on first use. A
// non-empty override skips resolution entirely.
func NewEndpoint(r *Resolver, override string) *Endpoint {
	override = strings.TrimRight(override, "/")
	if override != "" {
		return StaticEndpoint(override)
	}
	return &Endpoint{resolve: r.Resolve}
}

// StaticEndpoint returns an Endpoint fixed to url.
func StaticEndpoint(url string) *Endpoint {
	return &Endpoint{resolve: func(context.Context) string { return url }}
}

// BaseURL returns the cached base URL, resolving it on the first call.
func (e *Endpoint) BaseURL(ctx context.Context) string {
	e.once.Do(func() {
		e.value = e.resolve(ctx)
		e.resolvedAt = time.Now().UTC()
	})
	return e.value
}

// ResolvedAt reports when BaseURL was computed. Only meaningful once BaseURL
// has returned.
func (e *Endpoint) ResolvedAt() time.Time {
	return e.resolvedAt
}

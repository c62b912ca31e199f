package harvia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// EndpointKind names one of the backend's per-function endpoints.
type EndpointKind string

const (
	EndpointUsers  EndpointKind = "users"
	EndpointDevice EndpointKind = "device"
	EndpointEvents EndpointKind = "events"
	EndpointData   EndpointKind = "data"
)

// Endpoint is one discovery document. The users document carries the
// Cognito pool configuration; the others carry the GraphQL URL.
type Endpoint struct {
	URL            string `json:"endpoint"`
	UserPoolID     string `json:"userPoolId"`
	ClientID       string `json:"clientId"`
	IdentityPoolID string `json:"identityPoolId"`
}

// endpointResolver fetches discovery documents lazily, one GET per kind,
// and caches them for the client lifetime. Failures cache nothing, so the
// next call retries. Concurrent first lookups for a kind collapse to one
// request.
type endpointResolver struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[EndpointKind]Endpoint
	group singleflight.Group
}

func newEndpointResolver(baseURL string, httpClient *http.Client) *endpointResolver {
	return &endpointResolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		cache:      make(map[EndpointKind]Endpoint),
	}
}

func (r *endpointResolver) Resolve(ctx context.Context, kind EndpointKind) (Endpoint, error) {
	r.mu.Lock()
	ep, ok := r.cache[kind]
	r.mu.Unlock()
	if ok {
		return ep, nil
	}

	v, err, _ := r.group.Do(string(kind), func() (any, error) {
		ep, err := r.fetch(ctx, kind)
		if err != nil {
			lookupFailure.WithLabelValues(string(kind)).Inc()
			return nil, err
		}
		lookupSuccess.WithLabelValues(string(kind)).Inc()
		r.mu.Lock()
		r.cache[kind] = ep
		r.mu.Unlock()
		return ep, nil
	})
	if err != nil {
		return Endpoint{}, err
	}
	return v.(Endpoint), nil
}

func (r *endpointResolver) fetch(ctx context.Context, kind EndpointKind) (Endpoint, error) {
	url := fmt.Sprintf("%s/%s/endpoint", r.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Endpoint{}, DiscoveryError{Kind: kind, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Endpoint{}, DiscoveryError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return Endpoint{}, DiscoveryError{
			Kind: kind,
			Err:  fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var ep Endpoint
	if err := json.NewDecoder(resp.Body).Decode(&ep); err != nil {
		return Endpoint{}, DiscoveryError{Kind: kind, Err: err}
	}

	// Each consumer needs different fields present.
	if kind == EndpointUsers {
		if ep.UserPoolID == "" || ep.ClientID == "" {
			return Endpoint{}, DiscoveryError{Kind: kind, Err: errors.New("document missing user pool configuration")}
		}
	} else if ep.URL == "" {
		return Endpoint{}, DiscoveryError{Kind: kind, Err: errors.New("document missing endpoint url")}
	}
	return ep, nil
}

package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

const (
	refScheme       = "secret://"
	defaultCacheTTL = 5 * time.Minute
)

var (
	// ErrInvalidRef is returned when a secret reference cannot be parsed.
	ErrInvalidRef = errors.New("secrets: invalid secret reference")
	// ErrFetcherClosed is returned after Close has been called.
	ErrFetcherClosed = errors.New("secrets: fetcher is closed")
)

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// Fetcher resolves secret:// references against Google Secret Manager with a
// short-lived in-memory cache. References take the form
// secret://projects/<project>/secrets/<name>[/versions/<version>]; the version
// defaults to "latest".
type Fetcher struct {
	client   *secretmanager.Client
	cacheTTL time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cache  map[string]cachedSecret
	closed bool
}

// FetcherOption customises Fetcher behaviour.
type FetcherOption func(*Fetcher)

// WithCacheTTL overrides how long resolved secrets stay cached.
func WithCacheTTL(ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if ttl > 0 {
			f.cacheTTL = ttl
		}
	}
}

// NewFetcher constructs a Fetcher backed by a Secret Manager client.
func NewFetcher(ctx context.Context, opts ...FetcherOption) (*Fetcher, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secrets: create client: %w", err)
	}

	fetcher := &Fetcher{
		client:   client,
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
		cache:    make(map[string]cachedSecret),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(fetcher)
		}
	}
	return fetcher, nil
}

// ResolveSecret implements config.SecretResolver.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	name, err := parseRef(ref)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return "", ErrFetcherClosed
	}
	if entry, ok := f.cache[name]; ok && f.now().Before(entry.expiresAt) {
		f.mu.Unlock()
		return entry.value, nil
	}
	f.mu.Unlock()

	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("secrets: access %s: %w", name, err)
	}
	value := string(resp.GetPayload().GetData())

	f.mu.Lock()
	if !f.closed {
		f.cache[name] = cachedSecret{value: value, expiresAt: f.now().Add(f.cacheTTL)}
	}
	f.mu.Unlock()

	return value, nil
}

// Close releases the underlying client.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.cache = nil
	f.mu.Unlock()
	return f.client.Close()
}

func parseRef(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, refScheme) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	path := strings.Trim(strings.TrimPrefix(trimmed, refScheme), "/")
	if path == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 4 && parts[0] == "projects" && parts[2] == "secrets":
		return path + "/versions/latest", nil
	case len(parts) == 6 && parts[0] == "projects" && parts[2] == "secrets" && parts[4] == "versions":
		return path, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
}

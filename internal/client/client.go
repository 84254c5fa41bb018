package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/crsod/crsod/internal/apperrors"
	"github.com/crsod/crsod/internal/cache"
	"github.com/crsod/crsod/internal/config"
	"github.com/crsod/crsod/internal/models"
)

// Platform is the fetch capability the coordinator uses for every derived
// request. The header set of the originally intercepted request is reused
// verbatim so follow-up fetches carry the viewer's cookies and tokens.
type Platform interface {
	// FetchMetadata retrieves and parses the metadata document of one
	// language-version of a media item.
	FetchMetadata(ctx context.Context, guid string, header http.Header) (*models.MediaDescriptor, error)

	// FetchDuration retrieves the playback duration of a media item in
	// milliseconds.
	FetchDuration(ctx context.Context, guid string, header http.Header) (int64, error)

	// FetchCaption retrieves a caption asset body as UTF-8 text.
	FetchCaption(ctx context.Context, captionURL string, header http.Header) (string, error)

	// Close releases any resources held by the client (e.g., cache connections).
	Close() error
}

type platformClient struct {
	httpClient *http.Client
	baseURL    string
	cache      cache.Cache
	retry      retrypolicy.RetryPolicy[[]byte]
}

// NewPlatform creates a platform client from config: proxy-aware transport
// with transparent decompression, retry policy for transient failures, and
// a URL-keyed response cache for fetch reuse across pending rewrites.
func NewPlatform(cfg *config.Config) (Platform, error) {
	timeout := 30 * time.Second // default
	if cfg.ClientTimeout != "" {
		if parsedTimeout, err := time.ParseDuration(cfg.ClientTimeout); err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("timeout", cfg.ClientTimeout).Msg("Invalid timeout duration, using default 30s")
		} else {
			timeout = parsedTimeout
		}
	}

	// Clone DefaultTransport to preserve its pooling and HTTP/2 settings.
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	cacheTTL := time.Hour
	if parsed, err := time.ParseDuration(cfg.Cache.TTL); err == nil {
		cacheTTL = parsed
	}
	responseCache, err := cache.New(cfg.Cache.Provider, cache.ProviderConfig{
		Size:          cfg.Cache.Size,
		TTL:           cacheTTL,
		RedisAddress:  cfg.Cache.RedisAddress,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	return &platformClient{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newCompressionTransport(baseTransport),
		},
		baseURL: cfg.PlatformBaseURL,
		cache:   responseCache,
		retry: retrypolicy.NewBuilder[[]byte]().
			WithMaxRetries(2).
			WithBackoff(200*time.Millisecond, 2*time.Second).
			Build(),
	}, nil
}

func (c *platformClient) Close() error {
	return c.cache.Close()
}

// playbackDocument is the wire shape of the duration endpoint.
type playbackDocument struct {
	DurationMs *int64 `json:"durationMs"`
}

func (c *platformClient) FetchMetadata(ctx context.Context, guid string, header http.Header) (*models.MediaDescriptor, error) {
	endpoint := fmt.Sprintf("%s/v1/media/%s", c.baseURL, guid)
	body, err := c.get(ctx, endpoint, header, false)
	if err != nil {
		return nil, err
	}
	return models.ParseMediaDescriptor(body)
}

func (c *platformClient) FetchDuration(ctx context.Context, guid string, header http.Header) (int64, error) {
	endpoint := fmt.Sprintf("%s/v1/media/%s/playback", c.baseURL, guid)
	body, err := c.get(ctx, endpoint, header, true)
	if err != nil {
		return 0, err
	}

	var doc playbackDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, apperrors.NewFormatError("playback JSON object")
	}
	if doc.DurationMs == nil {
		return 0, apperrors.NewLookupError("durationMs", "playback response")
	}
	return *doc.DurationMs, nil
}

func (c *platformClient) FetchCaption(ctx context.Context, captionURL string, header http.Header) (string, error) {
	body, err := c.get(ctx, captionURL, header, true)
	if err != nil {
		return "", err
	}

	// Caption assets occasionally arrive in legacy encodings.
	text, err := decodeToUTF8(body)
	if err != nil {
		return "", apperrors.NewFetchError(captionURL, err)
	}
	return text, nil
}

// get performs an authenticated GET with retries, consulting the response
// cache first when cacheable is set. Metadata is not cached: its caption
// map is the thing the core mutates per response.
func (c *platformClient) get(ctx context.Context, endpoint string, header http.Header, cacheable bool) ([]byte, error) {
	if cacheable {
		if cached, found := c.cache.Get(endpoint); found {
			return cached, nil
		}
	}

	body, err := failsafe.With[[]byte](c.retry).
		WithContext(ctx).
		Get(func() ([]byte, error) {
			return c.doGet(ctx, endpoint, header)
		})
	if err != nil {
		return nil, apperrors.NewFetchError(endpoint, err)
	}

	if cacheable {
		c.cache.Set(endpoint, body)
	}
	return body, nil
}

func (c *platformClient) doGet(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// The intercepted request's headers are reused unmodified so derived
	// fetches authenticate exactly like the original.
	for key, values := range header {
		req.Header[key] = append([]string(nil), values...)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", config.GetUserAgent())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

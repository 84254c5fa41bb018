package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/crsod/crsod/internal/client"
	"github.com/crsod/crsod/internal/config"
	"github.com/crsod/crsod/internal/coordinator"
	"github.com/crsod/crsod/internal/intercept"
	"github.com/crsod/crsod/internal/metrics"
)

// metadataPath matches the platform's media metadata endpoint.
var metadataPath = regexp.MustCompile(`^/v1/media/[^/]+$`)

func main() {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	logger.Info().
		Str("platform_base_url", cfg.PlatformBaseURL).
		Str("alternate_language", cfg.AlternateLanguage).
		Int("registry_capacity", cfg.RegistryCapacity).
		Int("server_port", cfg.Server.Port).
		Str("server_address", cfg.Server.Address).
		Msg("Application started with configuration")

	platform, err := client.NewPlatform(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create platform client")
	}
	defer func() {
		if err := platform.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close platform client")
		}
	}()

	coord, err := coordinator.New(cfg, platform, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create coordinator")
	}

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal().Err(err).Msg("Failed to serve metrics")
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown metrics server")
			}
		}()
	}

	proxy := &interceptProxy{
		upstream: cfg.PlatformBaseURL,
		client:   &http.Client{Timeout: 60 * time.Second},
		coord:    coord,
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	server := &http.Server{Addr: address, Handler: proxy}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown proxy server")
		}
	}()

	logger.Info().Str("address", address).Msg("Starting intercepting proxy")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("Failed to serve proxy")
	}

	logger.Info().Msg("Server stopped gracefully")
}

// interceptProxy forwards every request to the platform and runs the
// response body through the coordinator's transforms: metadata responses
// get their caption map rewritten, caption responses are resolved against
// the pending-rewrite registry, everything else passes through.
type interceptProxy struct {
	upstream string
	client   *http.Client
	coord    *coordinator.Coordinator
}

func (p *interceptProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := config.GetLogger().With().Str("intercept_id", uuid.NewString()).Logger()

	upstreamURL := p.upstream + r.URL.RequestURI()
	req, err := http.NewRequestWithContext(r.Context(), r.Method, upstreamURL, r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	req.Header = r.Header.Clone()

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("url", upstreamURL).Msg("Upstream request failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	for key, values := range resp.Header {
		if key == "Content-Length" {
			continue
		}
		w.Header()[key] = values
	}

	transform := p.transformFor(r, resp, upstreamURL)
	if transform == nil {
		w.WriteHeader(resp.StatusCode)
		defer resp.Body.Close()
		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.Debug().Err(err).Msg("Pass-through copy interrupted")
		}
		return
	}

	filter := &responseBodyFilter{
		upstream: resp.Body,
		writer:   w,
		status:   resp.StatusCode,
	}
	if err := intercept.Run(r.Context(), filter, transform, logger); err != nil {
		logger.Error().Err(err).Str("url", upstreamURL).Msg("Intercept failed")
	}
}

func (p *interceptProxy) transformFor(r *http.Request, resp *http.Response, upstreamURL string) intercept.Transform {
	if r.Method != http.MethodGet || resp.StatusCode != http.StatusOK {
		return nil
	}
	if metadataPath.MatchString(r.URL.Path) {
		return p.coord.MetadataTransform(r.Header)
	}
	// Caption-asset responses are recognised by registry lookup; buffering
	// is skipped entirely for URLs with no pending rewrite, so video
	// fragments and other bulk assets stream straight through.
	if p.coord.HasPending(upstreamURL) {
		return p.coord.CaptionTransform(upstreamURL)
	}
	return nil
}

// responseBodyFilter adapts an upstream response body and the downstream
// ResponseWriter to the intercept.StreamFilter contract.
type responseBodyFilter struct {
	upstream io.ReadCloser
	writer   http.ResponseWriter
	status   int
	chunk    [32 * 1024]byte
}

func (f *responseBodyFilter) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := f.upstream.Read(f.chunk[:])
	if n > 0 {
		return f.chunk[:n], nil
	}
	return nil, err
}

func (f *responseBodyFilter) Emit(body []byte) error {
	f.writer.Header().Set("Content-Length", strconv.Itoa(len(body)))
	f.writer.WriteHeader(f.status)
	_, err := f.writer.Write(body)
	return err
}

func (f *responseBodyFilter) Close() error {
	return f.upstream.Close()
}

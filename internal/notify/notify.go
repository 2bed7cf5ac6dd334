package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"sweeper/internal/config"
	"sweeper/internal/logging"
	"sweeper/internal/services"
)

const userAgent = "Sweeper-Go/0.1.0"

// Service triggers library scans on the downstream media managers after
// content lands in the destination tree. Calls are best effort; callers log
// failures and move on.
type Service interface {
	ScanSeries(ctx context.Context, path string) error
	ScanMovies(ctx context.Context, path string) error
}

// NewService builds a dispatcher from the configured scanner endpoints.
// With neither endpoint configured, a noop implementation is returned.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if !cfg.Sonarr.Enabled() && !cfg.Radarr.Enabled() {
		return noopService{}
	}
	return &httpService{
		sonarr: newScannerClient(cfg.Sonarr),
		radarr: newScannerClient(cfg.Radarr),
		logger: logging.WithComponent(logger, "notify"),
	}
}

type noopService struct{}

func (noopService) ScanSeries(context.Context, string) error { return nil }
func (noopService) ScanMovies(context.Context, string) error { return nil }

type scannerClient struct {
	url    string
	apiKey string
	client *http.Client
}

func newScannerClient(cfg config.Scanner) *scannerClient {
	if !cfg.Enabled() {
		return nil
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &scannerClient{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

type httpService struct {
	sonarr *scannerClient
	radarr *scannerClient
	logger *slog.Logger
}

type commandPayload struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

func (s *httpService) ScanSeries(ctx context.Context, path string) error {
	if s.sonarr == nil {
		return nil
	}
	return s.send(ctx, s.sonarr, commandPayload{Name: "DownloadedEpisodesScan", Path: path})
}

func (s *httpService) ScanMovies(ctx context.Context, path string) error {
	if s.radarr == nil {
		return nil
	}
	return s.send(ctx, s.radarr, commandPayload{Name: "DownloadedMoviesScan", Path: path})
}

func (s *httpService) send(ctx context.Context, scanner *scannerClient, payload commandPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode scan command: %w", err)
	}

	endpoint := scanner.url + "/api/v3/command"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build scan request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Api-Key", scanner.apiKey)
	request.Header.Set("User-Agent", userAgent)

	response, err := scanner.client.Do(request)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notifying", payload.Name, "scan request", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		_ = response.Body.Close()
	}()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return services.Wrap(services.ErrTransient, "notifying", payload.Name,
			fmt.Sprintf("unexpected status %d", response.StatusCode), nil)
	}

	s.logger.InfoContext(ctx, "scan triggered",
		logging.String("command", payload.Name),
		logging.String("path", payload.Path))
	return nil
}

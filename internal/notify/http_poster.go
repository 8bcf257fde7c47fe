package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const httpBodyLimit = 64 * 1024

type timingConfig struct {
	timeout      time.Duration
	rateInterval time.Duration
	rateBurst    int
}

var defaultTiming = timingConfig{
	timeout:      10 * time.Second,
	rateInterval: 1 * time.Second,
	rateBurst:    1,
}

// httpPoster sends one POST per call. Retries are disabled: a failed send is
// reported and the next cycle tries again.
type httpPoster struct {
	logger      zerolog.Logger
	channel     string
	url         string
	contentType string
	client      *retryablehttp.Client
	timing      timingConfig
	limiter     *rate.Limiter
}

func newHTTPPoster(logger zerolog.Logger, channel, url, contentType string, timing timingConfig) *httpPoster {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: timing.timeout}

	return &httpPoster{
		logger:      logger,
		channel:     channel,
		url:         url,
		contentType: contentType,
		client:      client,
		timing:      timing,
		limiter:     rate.NewLimiter(rate.Every(timing.rateInterval), timing.rateBurst),
	}
}

// post waits for the rate limiter, sends payload and returns the response body
// of a 2xx response.
func (p *httpPoster) post(ctx context.Context, payload []byte) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &DeliveryError{Channel: p.channel, Err: fmt.Errorf("rate limit: %w", err)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timing.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &DeliveryError{Channel: p.channel, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", p.contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &DeliveryError{Channel: p.channel, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, httpBodyLimit))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	msg := resp.Status
	if text := strings.TrimSpace(string(body)); text != "" {
		msg = fmt.Sprintf("%s (%s)", resp.Status, truncateText(text, 256))
	}
	p.logger.Debug().Str("channel", p.channel).Int("status", resp.StatusCode).Msg("delivery rejected")
	return body, &DeliveryError{Channel: p.channel, StatusCode: resp.StatusCode, Err: errors.New(msg)}
}

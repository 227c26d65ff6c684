// Package market hosts bar sources used for backtesting and live monitoring.
package market

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gnanam1990/ai-trading-signals/internal/metrics"
	"github.com/gnanam1990/ai-trading-signals/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic bars (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance fetches klines over REST and streams them over websockets.
	ProviderBinance = "binance"
	// ProviderCSV loads bars from a local CSV file.
	ProviderCSV = "csv"
)

const (
	defaultBaseURL  = "https://api.binance.com"
	defaultWSURL    = "wss://stream.binance.com:9443/ws"
	defaultLimit    = 500
	defaultInterval = "1h"
)

// Feed represents a pluggable bar source implementation.
type Feed struct {
	provider string
	symbol   string
	interval string
	limit    int
	baseURL  string
	wsURL    string
	csvPath  string
	client   *http.Client
	log      zerolog.Logger
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithBaseURL overrides the REST endpoint (used by tests to point at a local server).
func WithBaseURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithWSURL overrides the websocket endpoint.
func WithWSURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.wsURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithCSVPath points the csv provider at a local file.
func WithCSVPath(path string) Option {
	return func(f *Feed) { f.csvPath = path }
}

// WithLimit caps how many historical bars History fetches.
func WithLimit(limit int) Option {
	return func(f *Feed) {
		if limit > 0 {
			f.limit = limit
		}
	}
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Feed) {
		if client != nil {
			f.client = client
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, symbol, interval string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	if interval == "" {
		interval = defaultInterval
	}
	f := &Feed{
		provider: strings.ToLower(provider),
		symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		interval: interval,
		limit:    defaultLimit,
		baseURL:  defaultBaseURL,
		wsURL:    defaultWSURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Symbol returns the upper-cased symbol this feed tracks.
func (f *Feed) Symbol() string { return f.symbol }

// History returns the historical bar series for the configured symbol,
// ordered by timestamp ascending.
func (f *Feed) History(ctx context.Context) ([]signal.Bar, error) {
	switch f.provider {
	case ProviderBinance:
		return f.fetchKlines(ctx)
	case ProviderCSV:
		return f.readCSV()
	default:
		return f.stubHistory(), nil
	}
}

// Watch pushes freshly closed bars onto the provided channel until the
// context is canceled. The csv provider replays its file once and returns.
func (f *Feed) Watch(ctx context.Context, out chan<- signal.Bar) error {
	switch f.provider {
	case ProviderBinance:
		return f.watchBinance(ctx, out)
	case ProviderCSV:
		return f.replayCSV(ctx, out)
	default:
		return f.watchStub(ctx, out)
	}
}

// stubEpoch anchors stub timestamps so repeated calls yield identical series.
var stubEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// stubHistory generates a deterministic drifting sine wave so strategies have
// something to chew on without network access.
func (f *Feed) stubHistory() []signal.Bar {
	step, err := intervalDuration(f.interval)
	if err != nil {
		step = time.Hour
	}
	bars := make([]signal.Bar, f.limit)
	start := stubEpoch
	prev := 100.0
	for i := range bars {
		px := 100 + 0.02*float64(i) + 8*math.Sin(float64(i)/9)
		bars[i] = signal.Bar{
			Ts:     start.Add(time.Duration(i) * step),
			Open:   prev,
			High:   math.Max(prev, px) * 1.001,
			Low:    math.Min(prev, px) * 0.999,
			Close:  px,
			Volume: 1000,
		}
		prev = px
		metrics.BarsTotal.WithLabelValues(f.symbol).Inc()
	}
	return bars
}

func (f *Feed) watchStub(ctx context.Context, out chan<- signal.Bar) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	i := 0
	prev := 100.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px := 100 + 8*math.Sin(float64(i)/9)
			bar := signal.Bar{Ts: ts, Open: prev, High: math.Max(prev, px), Low: math.Min(prev, px), Close: px, Volume: 1000}
			prev = px
			i++
			select {
			case out <- bar:
				metrics.BarsTotal.WithLabelValues(f.symbol).Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (f *Feed) replayCSV(ctx context.Context, out chan<- signal.Bar) error {
	bars, err := f.readCSV()
	if err != nil {
		return err
	}
	for _, bar := range bars {
		select {
		case out <- bar:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func intervalDuration(interval string) (time.Duration, error) {
	if interval == "" {
		return 0, fmt.Errorf("empty interval")
	}
	unit := interval[len(interval)-1]
	var n int
	if _, err := fmt.Sscanf(interval[:len(interval)-1], "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
}

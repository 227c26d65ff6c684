package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gnanam1990/ai-trading-signals/internal/metrics"
	"github.com/gnanam1990/ai-trading-signals/internal/signal"
)

// fetchKlines pulls historical candles from the Binance REST API. The kline
// payload is a heterogeneous array per candle:
// [openTime, open, high, low, close, volume, closeTime, ...].
func (f *Feed) fetchKlines(ctx context.Context) ([]signal.Bar, error) {
	if f.symbol == "" {
		return nil, fmt.Errorf("binance feed requires a symbol")
	}

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.baseURL, url.Values{
		"symbol":   {f.symbol},
		"interval": {f.interval},
		"limit":    {strconv.Itoa(f.limit)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch klines: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw [][]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	bars := make([]signal.Bar, 0, len(raw))
	for i, k := range raw {
		bar, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		bars = append(bars, bar)
		metrics.BarsTotal.WithLabelValues(f.symbol).Inc()
	}
	f.log.Info().Str("symbol", f.symbol).Str("interval", f.interval).Int("bars", len(bars)).Msg("fetched history")
	return bars, nil
}

func parseKline(k []any) (signal.Bar, error) {
	if len(k) < 6 {
		return signal.Bar{}, fmt.Errorf("short kline entry: %d fields", len(k))
	}
	openTime, err := asFloat(k[0])
	if err != nil {
		return signal.Bar{}, fmt.Errorf("open time: %w", err)
	}
	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		v, err := asFloat(k[i])
		if err != nil {
			return signal.Bar{}, fmt.Errorf("field %d: %w", i, err)
		}
		fields[i-1] = v
	}
	return signal.Bar{
		Ts:     time.UnixMilli(int64(openTime)).UTC(),
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}

func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

type klineEnvelope struct {
	Event string     `json:"e"`
	Kline klineEvent `json:"k"`
}

type klineEvent struct {
	OpenTime int64  `json:"t"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

// watchBinance streams live klines and emits a bar whenever a candle closes,
// reconnecting with backoff on transport errors.
func (f *Feed) watchBinance(ctx context.Context, out chan<- signal.Bar) error {
	if f.symbol == "" {
		return fmt.Errorf("binance feed requires a symbol")
	}

	streamURL := fmt.Sprintf("%s/%s@kline_%s", f.wsURL, strings.ToLower(f.symbol), f.interval)
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeKlineStream(ctx, streamURL, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("binance stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeKlineStream(ctx context.Context, url string, out chan<- signal.Bar) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("symbol", f.symbol).Str("interval", f.interval).Msg("connected kline stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env klineEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode kline message")
			continue
		}
		if env.Event != "kline" || !env.Kline.Closed {
			continue
		}
		bar, err := env.Kline.bar()
		if err != nil {
			f.log.Warn().Err(err).Msg("invalid kline from binance")
			continue
		}

		select {
		case out <- bar:
			metrics.BarsTotal.WithLabelValues(f.symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (k klineEvent) bar() (signal.Bar, error) {
	vals := make([]float64, 5)
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return signal.Bar{}, err
		}
		vals[i] = v
	}
	return signal.Bar{
		Ts:     time.UnixMilli(k.OpenTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

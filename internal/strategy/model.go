package strategy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"

	sig "github.com/gnanam1990/ai-trading-signals/internal/signal"
)

// Model treats an external predictive model as an opaque signal source: it
// consumes one precomputed next-close prediction per bar and signals when the
// predicted edge over the current close clears a threshold. How the
// predictions were produced is not this package's business.
type Model struct {
	predictions []float64
	minEdge     float64
}

// NewModel wraps precomputed predictions aligned index-for-index with the
// bars that will be evaluated.
func NewModel(predictions []float64, minEdge float64) *Model {
	if minEdge <= 0 {
		minEdge = 0.002
	}
	return &Model{predictions: predictions, minEdge: minEdge}
}

// Name returns the configured identifier for logging.
func (m *Model) Name() string { return "Model" }

// Signals compares each prediction to the bar's close. Bars without a
// matching prediction are HOLDs.
func (m *Model) Signals(bars []sig.Bar) []sig.Signal {
	out := make([]sig.Signal, len(bars))
	for i, bar := range bars {
		out[i] = sig.Signal{Action: sig.Hold, Ts: bar.Ts}
		if i >= len(m.predictions) || bar.Close <= 0 {
			continue
		}
		edge := (m.predictions[i] - bar.Close) / bar.Close
		switch {
		case edge >= m.minEdge:
			out[i].Action = sig.Buy
		case edge <= -m.minEdge:
			out[i].Action = sig.Sell
		default:
			continue
		}
		conf := math.Abs(edge) / (m.minEdge * 10)
		if conf > 1 {
			conf = 1
		}
		out[i].Confidence = conf
		out[i].Reason = fmt.Sprintf("predicted=%.4f edge=%.4f%%", m.predictions[i], edge*100)
	}
	return out
}

type predictionLine struct {
	Predicted float64 `json:"predicted"`
}

// LoadPredictions reads a JSONL file with one {"predicted": <price>} object
// per bar, in bar order.
func LoadPredictions(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open predictions: %w", err)
	}
	defer file.Close()

	var preds []float64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p predictionLine
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("decode prediction line %d: %w", len(preds)+1, err)
		}
		preds = append(preds, p.Predicted)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read predictions: %w", err)
	}
	return preds, nil
}

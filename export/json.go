package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dnldd/screener/engine"
	"github.com/dnldd/screener/shared"
	"github.com/rs/zerolog"
)

// TimeframeRecord represents the exported breakdown of a timeframe.
type TimeframeRecord struct {
	Timeframe    string  `json:"timeframe"`
	Direction    string  `json:"direction"`
	Confidence   float64 `json:"confidence"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// TakeProfitRecord represents an exported take profit level.
type TakeProfitRecord struct {
	Level       float64 `json:"level"`
	Probability float64 `json:"probability"`
}

// SignalRecord represents an exported fused signal.
type SignalRecord struct {
	Asset      string             `json:"asset"`
	Direction  string             `json:"direction"`
	Confidence float64            `json:"confidence"`
	Strength   string             `json:"strength"`
	Score      float64            `json:"score"`
	Agreement  string             `json:"agreement"`
	Price      float64            `json:"price"`
	StopLoss   float64            `json:"stop_loss,omitempty"`
	TakeProfit []TakeProfitRecord `json:"take_profit,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Timeframes []TimeframeRecord  `json:"timeframes"`
}

// Document represents an exported analysis run.
type Document struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	MinConfidence float64           `json:"min_confidence"`
	Signals       []SignalRecord    `json:"signals"`
	Failures      map[string]string `json:"failures"`
}

// NewTimeframeRecords converts the provided breakdown into exportable records.
func NewTimeframeRecords(breakdown []shared.TimeframeBreakdown) []TimeframeRecord {
	records := make([]TimeframeRecord, 0, len(breakdown))
	for _, entry := range breakdown {
		records = append(records, TimeframeRecord{
			Timeframe:    entry.Timeframe.String(),
			Direction:    entry.Direction.String(),
			Confidence:   entry.Confidence,
			Weight:       entry.Weight,
			Contribution: entry.Contribution,
		})
	}

	return records
}

// NewTakeProfitRecords converts the provided take profits into exportable
// records, nil when there are none.
func NewTakeProfitRecords(takeProfit []shared.TakeProfit) []TakeProfitRecord {
	if len(takeProfit) == 0 {
		return nil
	}

	records := make([]TakeProfitRecord, 0, len(takeProfit))
	for _, entry := range takeProfit {
		records = append(records, TakeProfitRecord{
			Level:       entry.Level,
			Probability: entry.Probability,
		})
	}

	return records
}

// NewSignalRecord converts the provided fused signal into an exportable record.
func NewSignalRecord(signal *shared.FusedSignal) SignalRecord {
	return SignalRecord{
		Asset:      signal.Asset,
		Direction:  signal.Direction.String(),
		Confidence: signal.Confidence,
		Strength:   signal.Strength.String(),
		Score:      signal.Score,
		Agreement:  signal.Agreement.String(),
		Price:      signal.Price,
		StopLoss:   signal.StopLoss,
		TakeProfit: NewTakeProfitRecords(signal.TakeProfit),
		Timestamp:  signal.Timestamp.UTC(),
		Timeframes: NewTimeframeRecords(signal.Breakdown),
	}
}

// JSONExporterConfig represents the json exporter configuration.
type JSONExporterConfig struct {
	// Path is the output file path.
	Path string
	// MinConfidence is the confidence threshold the exported signals were ranked with.
	MinConfidence float64
	// Now returns the current time, defaults to time.Now in UTC.
	Now func() time.Time
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *JSONExporterConfig) Validate() error {
	var errs error

	if cfg.Path == "" {
		errs = errors.Join(errs, fmt.Errorf("output path cannot be an empty string"))
	}
	if !(cfg.MinConfidence >= 0 && cfg.MinConfidence <= 1) {
		errs = errors.Join(errs, fmt.Errorf("min confidence must be in [0, 1], got %f", cfg.MinConfidence))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// JSONExporter writes analysis reports to a json file.
type JSONExporter struct {
	cfg *JSONExporterConfig
}

// NewJSONExporter initializes a new json exporter.
func NewJSONExporter(cfg *JSONExporterConfig) (*JSONExporter, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating json exporter config: %w", err)
	}

	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &JSONExporter{cfg: cfg}, nil
}

// Document builds the exportable document of the provided report, keeping
// the report's signal order.
func (e *JSONExporter) Document(report *engine.Report) *Document {
	doc := &Document{
		GeneratedAt:   e.cfg.Now().UTC(),
		MinConfidence: e.cfg.MinConfidence,
		Signals:       make([]SignalRecord, 0, len(report.Signals)),
		Failures:      make(map[string]string, len(report.Failures)),
	}

	for idx := range report.Signals {
		doc.Signals = append(doc.Signals, NewSignalRecord(&report.Signals[idx]))
	}

	assets := make([]string, 0, len(report.Failures))
	for asset := range report.Failures {
		assets = append(assets, asset)
	}
	slices.Sort(assets)
	for _, asset := range assets {
		doc.Failures[asset] = report.Failures[asset].Error()
	}

	return doc
}

// Export writes the provided report to the configured path, creating parent
// directories as needed. The file is replaced atomically.
func (e *JSONExporter) Export(report *engine.Report) error {
	data, err := json.MarshalIndent(e.Document(report), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	dir := filepath.Dir(e.cfg.Path)
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("creating output directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(e.cfg.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary output file: %w", err)
	}

	_, err = tmp.Write(append(data, '\n'))
	closeErr := tmp.Close()
	if err = errors.Join(err, closeErr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing report: %w", err)
	}

	err = os.Rename(tmp.Name(), e.cfg.Path)
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing '%s': %w", e.cfg.Path, err)
	}

	e.cfg.Logger.Info().Msgf("exported %d signals to %s", len(report.Signals), e.cfg.Path)

	return nil
}

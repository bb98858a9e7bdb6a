package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/screener/export"
	"github.com/dnldd/screener/shared"
	"github.com/google/uuid"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createSignalTableSQL = "CREATE TABLE IF NOT EXISTS signal (id TEXT PRIMARY KEY, asset TEXT, direction TEXT, confidence REAL, strength TEXT, score REAL, agreement TEXT, price REAL, stoploss REAL, takeprofit TEXT, breakdown TEXT, createdon INTEGER)"
	createSignalIndexSQL = "CREATE INDEX IF NOT EXISTS signal_asset_createdon ON signal (asset, createdon)"
	persistSignalSQL     = "INSERT INTO signal(id, asset, direction, confidence, strength, score, agreement, price, stoploss, takeprofit, breakdown, createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)"
)

// SignalStorer defines the requirements for storing fused signals.
type SignalStorer interface {
	// PersistSignal stores the provided fused signal to the database.
	PersistSignal(ctx context.Context, signal *shared.FusedSignal) (string, error)
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Timeout is the database request timeout.
	Timeout time.Duration
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *DatabaseConfig) Validate() error {
	var errs error

	if cfg.Endpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.Timeout < 0 {
		errs = errors.Join(errs, fmt.Errorf("database timeout cannot be negative, got %s", cfg.Timeout))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the SignalStorer interface.
var _ SignalStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating database config: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Second * 5
	}

	httpc := &http.Client{Timeout: timeout}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Pass)
	}

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// execute runs the provided statements in a transaction.
func (db *Database) execute(ctx context.Context, statements rqlitehttp.SQLStatements) error {
	resp, err := db.client.Execute(ctx, statements, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("statement %d: %s", idx, errStr)
	}

	return nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	return db.execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createSignalTableSQL},
		{SQL: createSignalIndexSQL},
	})
}

// PersistSignal stores the provided fused signal to the database, returning
// its generated id.
func (db *Database) PersistSignal(ctx context.Context, signal *shared.FusedSignal) (string, error) {
	breakdown, err := json.Marshal(export.NewTimeframeRecords(signal.Breakdown))
	if err != nil {
		return "", fmt.Errorf("encoding %s signal breakdown: %w", signal.Asset, err)
	}

	takeProfit, err := json.Marshal(export.NewTakeProfitRecords(signal.TakeProfit))
	if err != nil {
		return "", fmt.Errorf("encoding %s signal take profit: %w", signal.Asset, err)
	}

	id := uuid.NewString()
	err = db.execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistSignalSQL,
			PositionalParams: []any{id, signal.Asset, signal.Direction.String(), signal.Confidence,
				signal.Strength.String(), signal.Score, signal.Agreement.String(), signal.Price,
				signal.StopLoss, string(takeProfit), string(breakdown), signal.Timestamp.Unix()},
		},
	})
	if err != nil {
		db.cfg.Logger.Error().Msgf("unable to persist signal: %s", spew.Sdump(signal))
		return "", fmt.Errorf("persisting %s signal: %w", signal.Asset, err)
	}

	return id, nil
}

// PersistSignals stores the provided fused signals, stopping at the first
// failure.
func (db *Database) PersistSignals(ctx context.Context, signals []shared.FusedSignal) error {
	for idx := range signals {
		_, err := db.PersistSignal(ctx, &signals[idx])
		if err != nil {
			return err
		}
	}

	return nil
}

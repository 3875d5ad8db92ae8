package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	pkgch "RiskPulse/pkg/clickhouse"
	applogger "RiskPulse/pkg/logger"
)

// CHUpdateLog implements the write-mostly audit trail in ClickHouse.
// Every computed snapshot and every band transition becomes one row.
type CHUpdateLog struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHUpdateLog(ch *pkgch.Client, database string) *CHUpdateLog {
	return &CHUpdateLog{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHUpdateLog) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHUpdateLog) table() string { return s.database + ".update_log" }

// Init ensures the audit table exists.
func (s *CHUpdateLog) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ts DateTime,
			symbol String,
			kind String,
			band String,
			risk_value Float64,
			price Float64,
			final_score Float64,
			detail String
		) ENGINE=MergeTree ORDER BY (symbol, ts)`, s.table()),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("update log schema: %w", err)
		}
	}
	return nil
}

func (s *CHUpdateLog) AppendSnapshot(ctx context.Context, snap *models.RiskSnapshot) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, kind, band, risk_value, price, final_score, detail) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table())
	_, err := s.db.ExecContext(ctx, q,
		snap.Timestamp,
		snap.Symbol,
		"snapshot",
		string(snap.Band),
		snap.RiskValue,
		snap.Price,
		snap.FinalScore,
		snap.SignalStatus,
	)
	if err != nil {
		s.logErr("append snapshot", snap.Symbol, err)
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

func (s *CHUpdateLog) AppendBandChange(ctx context.Context, a *models.BandChangeAlert) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, kind, band, risk_value, price, final_score, detail) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table())
	detail := fmt.Sprintf("%s -> %s", a.OldBand, a.NewBand)
	_, err := s.db.ExecContext(ctx, q,
		a.Timestamp,
		a.Symbol,
		"band_change",
		string(a.NewBand),
		a.RiskValue,
		a.Price,
		0.0,
		detail,
	)
	if err != nil {
		s.logErr("append band change", a.Symbol, err)
		return fmt.Errorf("append band change: %w", err)
	}
	return nil
}

// Recent returns the latest rows for a symbol, newest first. A non-zero
// from restricts the scan to rows at or after that time.
func (s *CHUpdateLog) Recent(ctx context.Context, symbol string, from time.Time, limit int) ([]models.UpdateLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("SELECT ts, symbol, kind, band, risk_value, price, final_score, detail FROM %s WHERE symbol = ?", s.table())
	args := []interface{}{symbol}
	if !from.IsZero() {
		q += " AND ts >= ?"
		args = append(args, from)
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logErr("recent query", symbol, err)
		return nil, fmt.Errorf("recent update logs: %w", err)
	}
	defer rows.Close()

	out := make([]models.UpdateLogEntry, 0, limit)
	for rows.Next() {
		var e models.UpdateLogEntry
		var ts time.Time
		var band string
		if err := rows.Scan(&ts, &e.Symbol, &e.Kind, &band, &e.RiskValue, &e.Price, &e.FinalScore, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan update log row: %w", err)
		}
		e.Timestamp = ts
		e.Band = models.BandKey(band)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *CHUpdateLog) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHUpdateLog) Close() error {
	return nil // connection pool owned by pkg/clickhouse
}

func (s *CHUpdateLog) logErr(op, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error("clickhouse update log error",
		applogger.String("op", op),
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}

var _ domrepo.UpdateLog = (*CHUpdateLog)(nil)

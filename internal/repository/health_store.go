package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"LendPulse/internal/domain/models"
	"LendPulse/internal/domain/repository"
	applogger "LendPulse/pkg/logger"
)

// ClickHouseHealthStore implements HealthStore for ClickHouse. Each computed
// report is one append-only row: indexed numeric columns for filtering plus
// the full report as JSON so history queries return exact decimals.
type ClickHouseHealthStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseHealthStore creates ClickHouse health snapshot storage.
func NewClickHouseHealthStore(db *sql.DB, table string) repository.HealthStore {
	return &ClickHouseHealthStore{db: db, table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseHealthStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseHealthStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseHealthStore) Store(ctx context.Context, r *models.HealthReport) error {
	return s.StoreBatch(ctx, []*models.HealthReport{r})
}

func (s *ClickHouseHealthStore) StoreBatch(ctx context.Context, reports []*models.HealthReport) error {
	if len(reports) == 0 {
		return nil
	}
	// Chunked multi-row VALUES to bound statement size on full-market scans.
	const chunkSize = 1000
	for start := 0; start < len(reports); start += chunkSize {
		end := start + chunkSize
		if end > len(reports) {
			end = len(reports)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, r := range reports[start:end] {
			if r == nil || r.Address == "" {
				continue
			}
			body, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("marshal report %s: %w", r.Address, err)
			}
			liq := uint8(0)
			if r.IsLiquidatable() {
				liq = 1
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.Address,
				r.MarketAddress,
				r.Slot,
				r.ComputedAt,
				r.TotalSupplyValue.InexactFloat64(),
				r.TotalBorrowValue.InexactFloat64(),
				r.BorrowUtilization.InexactFloat64(),
				liq,
				uint32(r.PositionCount),
				string(body),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (address, market, slot, computed_at, total_supply_value, total_borrow_value, borrow_utilization, liquidatable, position_count, report) VALUES %s",
			s.table, strings.Join(values, ","),
		)
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse store batch error",
					applogger.String("table", s.table),
					applogger.Int("rows", len(values)),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("store health batch: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseHealthStore) History(ctx context.Context, address string, from, to time.Time, limit int) ([]*models.HealthReport, error) {
	q := fmt.Sprintf(
		"SELECT report FROM %s WHERE address = ? AND computed_at >= ? AND computed_at <= ? ORDER BY computed_at DESC LIMIT ?",
		s.table,
	)
	return s.queryReports(ctx, q, address, from, to, limit)
}

func (s *ClickHouseHealthStore) Liquidatable(ctx context.Context, market string, limit int) ([]*models.HealthReport, error) {
	// Latest snapshot per obligation, then keep the flagged ones.
	q := fmt.Sprintf(
		"SELECT report FROM (SELECT report, liquidatable FROM %s WHERE market = ? ORDER BY computed_at DESC LIMIT 1 BY address) WHERE liquidatable = 1 LIMIT ?",
		s.table,
	)
	return s.queryReports(ctx, q, market, limit)
}

func (s *ClickHouseHealthStore) queryReports(ctx context.Context, q string, args ...interface{}) ([]*models.HealthReport, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse report query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.HealthReport
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var r models.HealthReport
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("decode stored report: %w", err)
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

func (s *ClickHouseHealthStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseHealthStore) Close() error {
	return nil // Managed by pkg
}

// Package maintenance owns the scheduled jobs around the partitioned
// schema: partition provisioning, retention, hourly rollups, and the
// materialized summary refresh.
package maintenance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var readingTables = []string{"vehicle_readings", "meter_readings"}

// PartitionManager provisions monthly partitions ahead of time and retires
// them past the retention horizon by detach-then-drop.
type PartitionManager struct {
	db              *pgxpool.Pool
	logger          *zap.Logger
	retentionMonths int
	aheadMonths     int
}

// NewPartitionManager returns the manager.
func NewPartitionManager(db *pgxpool.Pool, retentionMonths, aheadMonths int, logger *zap.Logger) *PartitionManager {
	return &PartitionManager{
		db:              db,
		logger:          logger,
		retentionMonths: retentionMonths,
		aheadMonths:     aheadMonths,
	}
}

// PartitionName renders the canonical <table>_YYYY_MM name retention tooling
// relies on.
func PartitionName(table string, month time.Time) string {
	return fmt.Sprintf("%s_%04d_%02d", table, month.Year(), int(month.Month()))
}

// MonthStart truncates t to the first instant of its UTC month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EnsureUpcoming creates partitions for the previous, current and next
// aheadMonths months of every reading table. Idempotent.
func (m *PartitionManager) EnsureUpcoming(ctx context.Context) error {
	base := MonthStart(time.Now())
	for _, table := range readingTables {
		for offset := -1; offset <= m.aheadMonths; offset++ {
			from := base.AddDate(0, offset, 0)
			to := from.AddDate(0, 1, 0)
			name := PartitionName(table, from)
			ddl := fmt.Sprintf(
				`CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM ('%s') TO ('%s')`,
				name, table, from.Format("2006-01-02"), to.Format("2006-01-02"))
			if _, err := m.db.Exec(ctx, ddl); err != nil {
				return fmt.Errorf("maintenance: create partition %s: %w", name, err)
			}
		}
	}
	return nil
}

// DropExpired detaches and drops every monthly partition older than the
// retention horizon. Detach runs CONCURRENTLY so the reading tables stay
// writable; nothing here touches individual rows.
func (m *PartitionManager) DropExpired(ctx context.Context) error {
	cutoff := MonthStart(time.Now()).AddDate(0, -m.retentionMonths, 0)
	for _, table := range readingTables {
		names, err := m.listPartitions(ctx, table)
		if err != nil {
			return err
		}
		for _, name := range names {
			month, ok := parsePartitionMonth(table, name)
			if !ok || !month.Before(cutoff) {
				continue
			}
			if _, err := m.db.Exec(ctx,
				fmt.Sprintf(`ALTER TABLE %s DETACH PARTITION %s CONCURRENTLY`, table, name)); err != nil {
				return fmt.Errorf("maintenance: detach %s: %w", name, err)
			}
			if _, err := m.db.Exec(ctx, fmt.Sprintf(`DROP TABLE %s`, name)); err != nil {
				return fmt.Errorf("maintenance: drop %s: %w", name, err)
			}
			m.logger.Info("dropped expired partition",
				zap.String("table", table), zap.String("partition", name))
		}
	}
	return nil
}

func (m *PartitionManager) listPartitions(ctx context.Context, table string) ([]string, error) {
	const query = `
		SELECT c.relname
		FROM pg_inherits i
		JOIN pg_class c ON c.oid = i.inhrelid
		JOIN pg_class p ON p.oid = i.inhparent
		WHERE p.relname = $1
	`
	rows, err := m.db.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("maintenance: list partitions of %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("maintenance: scan partition name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// parsePartitionMonth recovers the month from a <table>_YYYY_MM name. The
// default partition and anything else non-conforming report false.
func parsePartitionMonth(table, name string) (time.Time, bool) {
	suffix, ok := strings.CutPrefix(name, table+"_")
	if !ok {
		return time.Time{}, false
	}
	parts := strings.Split(suffix, "_")
	if len(parts) != 2 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || month < 1 || month > 12 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}

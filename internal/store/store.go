// Package store persists canonical bars in SQLite via Gorm so repeated
// fetches can be replayed without hitting the vendor.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"barprovider/internal/schema"
)

// barModel is the table shape. A bar is identified by the vendor that
// produced it, the symbol, the interval token and the bar timestamp;
// re-fetching the same window upserts in place.
type barModel struct {
	ID           int64    `gorm:"column:id;primaryKey"`
	Vendor       string   `gorm:"column:vendor;uniqueIndex:idx_bar_key"`
	Symbol       string   `gorm:"column:symbol;uniqueIndex:idx_bar_key"`
	Interval     string   `gorm:"column:interval;uniqueIndex:idx_bar_key"`
	BarTime      string   `gorm:"column:bar_time;uniqueIndex:idx_bar_key"`
	Open         float64  `gorm:"column:open"`
	High         float64  `gorm:"column:high"`
	Low          float64  `gorm:"column:low"`
	Close        float64  `gorm:"column:close"`
	Volume       *float64 `gorm:"column:volume"`
	VWAP         *float64 `gorm:"column:vwap"`
	Transactions *int64   `gorm:"column:transactions"`
	UpdatedAt    int64    `gorm:"column:updated_at"`
}

func (barModel) TableName() string { return "bars" }

// BarStore wraps a Gorm SQLite handle.
type BarStore struct {
	db *gorm.DB
}

// Open creates or opens the bar database at path and migrates the
// schema. WAL mode keeps concurrent reads cheap while a fetch writes.
func Open(path string) (*BarStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: empty database path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&barModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &BarStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *BarStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveBars upserts a batch keyed by vendor+symbol+interval+bar time.
// Bars without a symbol tag take fallbackSymbol (the single-symbol
// fetch case).
func (s *BarStore) SaveBars(ctx context.Context, vendor, fallbackSymbol, interval string, bars []schema.Bar) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store: not initialized")
	}
	if len(bars) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	models := make([]barModel, 0, len(bars))
	for _, b := range bars {
		sym := b.Symbol
		if sym == "" {
			sym = fallbackSymbol
		}
		models = append(models, barModel{
			Vendor:       vendor,
			Symbol:       strings.ToUpper(strings.TrimSpace(sym)),
			Interval:     interval,
			BarTime:      b.Date.String(),
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			VWAP:         b.VWAP,
			Transactions: b.Transactions,
			UpdatedAt:    now,
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "vendor"}, {Name: "symbol"}, {Name: "interval"}, {Name: "bar_time"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"open", "high", "low", "close", "volume", "vwap", "transactions", "updated_at",
			}),
		}).
		CreateInBatches(&models, 500).Error
}

// ListBars returns the stored bars for one vendor+symbol+interval,
// oldest first. limit <= 0 means no limit.
func (s *BarStore) ListBars(ctx context.Context, vendor, symbol, interval string, limit int) ([]schema.Bar, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store: not initialized")
	}
	query := s.db.WithContext(ctx).
		Where("vendor = ? AND symbol = ? AND interval = ?",
			vendor, strings.ToUpper(strings.TrimSpace(symbol)), interval).
		Order("bar_time ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []barModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]schema.Bar, 0, len(models))
	for _, m := range models {
		bar, err := modelToBar(m)
		if err != nil {
			return nil, err
		}
		out = append(out, bar)
	}
	return out, nil
}

// CountBars reports how many bars are stored for one series.
func (s *BarStore) CountBars(ctx context.Context, vendor, symbol, interval string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store: not initialized")
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&barModel{}).
		Where("vendor = ? AND symbol = ? AND interval = ?",
			vendor, strings.ToUpper(strings.TrimSpace(symbol)), interval).
		Count(&total).Error
	return total, err
}

func modelToBar(m barModel) (schema.Bar, error) {
	bt, err := schema.ParseBarTime(m.BarTime)
	if err != nil {
		return schema.Bar{}, fmt.Errorf("store: bad bar_time %q: %w", m.BarTime, err)
	}
	return schema.Bar{
		Date:         bt,
		Open:         m.Open,
		High:         m.High,
		Low:          m.Low,
		Close:        m.Close,
		Volume:       m.Volume,
		VWAP:         m.VWAP,
		Transactions: m.Transactions,
		Symbol:       m.Symbol,
	}, nil
}

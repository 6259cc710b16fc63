package analytics

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/talkincode/toughshop/internal/domain"
	"gorm.io/gorm"
)

const (
	DefaultDays = 7
	MaxDays     = 366

	dayLayout = "2006-01-02"
)

// Summary dashboard totals
type Summary struct {
	Users        int64           `json:"users"`
	Products     int64           `json:"products"`
	TotalSales   int64           `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// DailyPoint orders placed on one UTC calendar day
type DailyPoint struct {
	Date    string          `json:"date"`
	Sales   int64           `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Report everything the dashboard shows, read from one snapshot
type Report struct {
	Summary Summary      `json:"summary"`
	Daily   []DailyPoint `json:"daily"`
	Trend   Trend        `json:"trend"`
}

// Aggregator computes sales rollups from the order, user and product tables
type Aggregator struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db, now: time.Now}
}

// snapshot runs fn inside a read-only transaction so every query sees the same data
func (a *Aggregator) snapshot(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := a.db.WithContext(ctx)
	if strings.EqualFold(a.db.Name(), "postgres") {
		return db.Transaction(fn, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	// sqlite transactions are serializable already
	return db.Transaction(fn)
}

// ComputeSummary counts users, products and orders and sums order revenue
func (a *Aggregator) ComputeSummary(ctx context.Context) (*Summary, error) {
	var s *Summary
	err := a.snapshot(ctx, func(tx *gorm.DB) error {
		var err error
		s, err = summary(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ComputeDailySeries returns one point per UTC day for the days ending on end,
// oldest first. A zero end means today. days <= 0 yields an empty series.
func (a *Aggregator) ComputeDailySeries(ctx context.Context, days int, end time.Time) ([]DailyPoint, error) {
	var series []DailyPoint
	err := a.snapshot(ctx, func(tx *gorm.DB) error {
		var err error
		series, err = a.daily(tx, days, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return series, nil
}

// Report reads the summary and the daily series in one transaction
func (a *Aggregator) Report(ctx context.Context, days int, end time.Time) (*Report, error) {
	r := &Report{}
	err := a.snapshot(ctx, func(tx *gorm.DB) error {
		s, err := summary(tx)
		if err != nil {
			return err
		}
		series, err := a.daily(tx, days, end)
		if err != nil {
			return err
		}
		r.Summary = *s
		r.Daily = series
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.Trend = ComputeTrend(r.Daily)
	return r, nil
}

func summary(tx *gorm.DB) (*Summary, error) {
	var s Summary
	if err := tx.Model(&domain.User{}).Count(&s.Users).Error; err != nil {
		return nil, domain.WrapStore("count users", err)
	}
	if err := tx.Model(&domain.Product{}).Count(&s.Products).Error; err != nil {
		return nil, domain.WrapStore("count products", err)
	}
	if err := tx.Model(&domain.Order{}).Count(&s.TotalSales).Error; err != nil {
		return nil, domain.WrapStore("count orders", err)
	}
	var revenue decimal.NullDecimal
	err := tx.Model(&domain.Order{}).Select("SUM(total_amount)").Row().Scan(&revenue)
	if err != nil {
		return nil, domain.WrapStore("sum revenue", err)
	}
	if revenue.Valid {
		s.TotalRevenue = revenue.Decimal.Round(2)
	}
	return &s, nil
}

type orderRow struct {
	CreatedAt   time.Time
	TotalAmount decimal.Decimal
}

func (a *Aggregator) daily(tx *gorm.DB, days int, end time.Time) ([]DailyPoint, error) {
	if days <= 0 {
		return []DailyPoint{}, nil
	}
	if end.IsZero() {
		end = a.now()
	}
	last := truncateDay(end)
	first := last.AddDate(0, 0, -(days - 1))

	var rows []orderRow
	err := tx.Model(&domain.Order{}).
		Select("created_at, total_amount").
		Where("created_at >= ? AND created_at < ?", first, last.AddDate(0, 0, 1)).
		Find(&rows).Error
	if err != nil {
		return nil, domain.WrapStore("query daily orders", err)
	}

	series := make([]DailyPoint, days)
	index := make(map[string]int, days)
	for i := range series {
		date := first.AddDate(0, 0, i).Format(dayLayout)
		series[i] = DailyPoint{Date: date, Revenue: decimal.Zero}
		index[date] = i
	}
	for _, row := range rows {
		i, ok := index[row.CreatedAt.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		series[i].Sales++
		series[i].Revenue = series[i].Revenue.Add(row.TotalAmount)
	}
	for i := range series {
		series[i].Revenue = series[i].Revenue.Round(2)
	}
	return series, nil
}

// truncateDay returns midnight UTC of the day t falls on in UTC
func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

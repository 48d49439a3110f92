package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrax/internal/charts"
	"fintrax/internal/core"
	"fintrax/internal/log"
)

// ChartQuery selects the data behind one chart.
type ChartQuery struct {
	Period  core.TimePeriod
	Custom  *core.DateRange // only read for core.CustomPeriod
	Top     int             // categories kept before folding into "Other"; 0 keeps all
	Refresh bool
}

type CategoryBreakdown struct {
	Type       string                       `json:"type"`
	Period     string                       `json:"period"`
	Range      core.DateRange               `json:"range"`
	Total      decimal.Decimal              `json:"total"`
	TotalLabel string                       `json:"total_label"`
	Compact    string                       `json:"total_compact"`
	Categories []charts.ExpenseCategoryData `json:"categories"`
}

type BalanceHistory struct {
	Period  string                `json:"period"`
	Range   core.DateRange        `json:"range"`
	Opening decimal.Decimal       `json:"opening"`
	Points  []charts.BalancePoint `json:"points"`
}

type IncomeTrend struct {
	Period string                   `json:"period"`
	Range  core.DateRange           `json:"range"`
	Points []charts.IncomeTrendData `json:"points"`
	Totals charts.PeriodTotals      `json:"totals"`
}

type NetWorthSeries struct {
	Period      string                `json:"period"`
	Range       core.DateRange        `json:"range"`
	Points      []charts.NetWorthData `json:"points"`
	Current     charts.NetWorthPoint  `json:"current"`
	Growth      float64               `json:"growth"`
	GrowthLabel string                `json:"growth_label"`
}

// ChartService turns cached finance data into chart payloads.
type ChartService struct {
	finance *FinanceService
	now     func() time.Time
	loc     *time.Location
	logger  *log.Logger
}

type ChartOption func(*ChartService)

func WithClock(now func() time.Time) ChartOption {
	return func(s *ChartService) { s.now = now }
}

// WithLocation sets the zone in which months and periods are resolved.
func WithLocation(loc *time.Location) ChartOption {
	return func(s *ChartService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithChartLogger(l *log.Logger) ChartOption {
	return func(s *ChartService) { s.logger = l.WithComponent(log.ComponentCharts) }
}

func NewChartService(finance *FinanceService, opts ...ChartOption) *ChartService {
	s := &ChartService{
		finance: finance,
		now:     time.Now,
		loc:     time.UTC,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ChartService) clock() time.Time {
	return s.now().In(s.loc)
}

// Categories breaks down expenses (or income) of the period by category.
func (s *ChartService) Categories(ctx context.Context, typ core.TransactionType, q ChartQuery) (CategoryBreakdown, error) {
	txs, err := s.finance.Transactions(ctx, q.Refresh)
	if err != nil {
		return CategoryBreakdown{}, err
	}
	now := s.clock()
	r := charts.DateRangeForPeriod(q.Period, q.Custom, now)

	var data []charts.ExpenseCategoryData
	if typ == core.Income {
		data = charts.AggregateIncomeByCategory(charts.FilterTransactionsByDateRange(txs, r))
	} else {
		typ = core.Expense
		data = charts.ProcessExpenseDataForChart(txs, q.Period, q.Custom, now)
	}

	total := decimal.Zero
	for _, d := range data {
		total = total.Add(d.Amount)
	}
	if q.Top > 0 {
		data = charts.TopCategories(data, q.Top)
	}

	s.logger.DebugContext(ctx, "Category breakdown computed",
		log.FieldTxType, typ.String(),
		log.FieldPeriod, string(q.Period),
		"categories", len(data))
	return CategoryBreakdown{
		Type:       typ.String(),
		Period:     charts.TimePeriodLabel(q.Period),
		Range:      r,
		Total:      total,
		TotalLabel: charts.FormatCurrency(total),
		Compact:    charts.FormatCompactNumber(total.InexactFloat64()),
		Categories: data,
	}, nil
}

func (s *ChartService) IncomeTrend(ctx context.Context, q ChartQuery) (IncomeTrend, error) {
	txs, err := s.finance.Transactions(ctx, q.Refresh)
	if err != nil {
		return IncomeTrend{}, err
	}
	now := s.clock()
	r := charts.DateRangeForPeriod(q.Period, q.Custom, now)
	return IncomeTrend{
		Period: charts.TimePeriodLabel(q.Period),
		Range:  r,
		Points: charts.ProcessIncomeTrendData(txs, q.Period, q.Custom, now),
		Totals: charts.CalculatePeriodTotals(charts.FilterTransactionsByDateRange(txs, r)),
	}, nil
}

func (s *ChartService) NetWorth(ctx context.Context, q ChartQuery) (NetWorthSeries, error) {
	snap, err := s.finance.Snapshot(ctx, q.Refresh)
	if err != nil {
		return NetWorthSeries{}, err
	}
	now := s.clock()
	points := charts.ProcessNetWorthData(snap.Balance, snap.Savings, snap.Liabilities, snap.Transactions, q.Period, q.Custom, now)
	growth := charts.NetWorthGrowth(points)
	return NetWorthSeries{
		Period:      charts.TimePeriodLabel(q.Period),
		Range:       charts.DateRangeForPeriod(q.Period, q.Custom, now),
		Points:      points,
		Current:     charts.CalculateNetWorthAtDate(snap.Balance, snap.Savings, snap.Liabilities, nil, now, now),
		Growth:      growth,
		GrowthLabel: charts.FormatGrowthPercentage(growth),
	}, nil
}

// Balance replays the period's transactions on top of the balance held when
// the period started.
func (s *ChartService) Balance(ctx context.Context, q ChartQuery) (BalanceHistory, error) {
	snap, err := s.finance.Snapshot(ctx, q.Refresh)
	if err != nil {
		return BalanceHistory{}, err
	}
	now := s.clock()
	r := charts.DateRangeForPeriod(q.Period, q.Custom, now)

	// Undo everything from the start of the range up to today.
	sinceStart := charts.FilterTransactionsByDateRange(snap.Transactions, core.DateRange{
		StartDate: r.StartDate,
		EndDate:   core.Date{Time: now},
	})
	opening := snap.Balance.Sub(charts.CalculatePeriodTotals(sinceStart).Net)

	inRange := charts.FilterTransactionsByDateRange(snap.Transactions, r)
	return BalanceHistory{
		Period:  charts.TimePeriodLabel(q.Period),
		Range:   r,
		Opening: opening,
		Points:  charts.BalanceTrend(inRange, opening),
	}, nil
}

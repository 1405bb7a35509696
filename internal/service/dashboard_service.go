package service

import (
	"time"

	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	dashboardTopProducts = 5
	dashboardLowStock    = 10
	dashboardSeriesDays  = 14
)

type DailyRevenue struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Trx     int             `json:"trx"`
}

type DashboardSummary struct {
	TodayTrx     int64                   `json:"today_trx"`
	TodayRevenue decimal.Decimal         `json:"today_revenue"`
	TopProducts  []repository.TopProduct `json:"top_products"`
	LowStock     []model.Product         `json:"low_stock"`
	Series       []DailyRevenue          `json:"series"`
}

type DashboardService interface {
	Summary(now time.Time) (*DashboardSummary, error)
}

type dashboardService struct {
	reportRepo  repository.ReportRepository
	productRepo repository.ProductRepository
}

func NewDashboardService(reportRepo repository.ReportRepository, productRepo repository.ProductRepository) DashboardService {
	return &dashboardService{reportRepo: reportRepo, productRepo: productRepo}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *dashboardService) Summary(now time.Time) (*DashboardSummary, error) {
	today := startOfDay(now)

	trx, revenue, err := s.reportRepo.SalesTotals(today)
	if err != nil {
		return nil, err
	}
	top, err := s.reportRepo.TopProducts(dashboardTopProducts)
	if err != nil {
		return nil, err
	}
	low, err := s.productRepo.LowStock(dashboardLowStock)
	if err != nil {
		return nil, err
	}

	first := today.AddDate(0, 0, -(dashboardSeriesDays - 1))
	sales, err := s.reportRepo.SalesSince(first)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		TodayTrx:     trx,
		TodayRevenue: revenue,
		TopProducts:  top,
		LowStock:     low,
		Series:       dailySeries(first, dashboardSeriesDays, sales),
	}, nil
}

// dailySeries buckets sales per calendar day starting at first; days
// without sales stay at zero.
func dailySeries(first time.Time, days int, sales []model.Sale) []DailyRevenue {
	series := make([]DailyRevenue, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := first.AddDate(0, 0, i).Format(dateLayout)
		series[i] = DailyRevenue{Date: key, Revenue: decimal.Zero}
		index[key] = i
	}
	for _, sale := range sales {
		key := sale.CreatedAt.In(first.Location()).Format(dateLayout)
		if i, ok := index[key]; ok {
			series[i].Revenue = series[i].Revenue.Add(sale.Total)
			series[i].Trx++
		}
	}
	return series
}

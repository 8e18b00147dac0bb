package controllers

import (
	"net/http"
	"sort"
	"time"

	"spa-backoffice/config"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReportController handles all reporting functions
type ReportController struct{}

// AnalyticsSummary represents the Analytics data
type AnalyticsSummary struct {
	CurrentMonthRevenue   float64          `json:"currentMonthRevenue"`
	MonthGrowth           float64          `json:"monthGrowth"`
	CurrentQuarterRevenue float64          `json:"currentQuarterRevenue"`
	QuarterGrowth         float64          `json:"quarterGrowth"`
	CurrentYearRevenue    float64          `json:"currentYearRevenue"`
	YearGrowth            float64          `json:"yearGrowth"`
	TopServices           []ServiceSummary `json:"topServices"`
	TopClients            []ClientSummary  `json:"topClients"`
	QuickStats            QuickStatistics  `json:"quickStats"`
}

type ServiceSummary struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type ClientSummary struct {
	Name   string  `json:"name"`
	Phone  string  `json:"phone"`
	Visits int     `json:"visits"`
	Spent  float64 `json:"spent"`
}

type QuickStatistics struct {
	TotalClients     int     `json:"totalClients"`
	TotalBills       int     `json:"totalBills"`
	AvgMonthlyVisits float64 `json:"avgMonthlyVisits"`
	AvgOrderValue    float64 `json:"avgOrderValue"`
	SessionsLogged   int     `json:"sessionsLogged"`
}

// GetReportAnalytics returns revenue for the current month, quarter and year
// against the previous period, plus this month's best services and clients.
func (rc *ReportController) GetReportAnalytics(c *gin.Context) {
	now, ok := parseDateOr(c, "date", time.Now().In(location()))
	if !ok {
		return
	}

	firstOfMonth, nextMonth := utils.MonthRange(now)
	quarterStart, quarterEnd := rc.getQuarterStart(now), rc.getQuarterEnd(now)
	yearStart, nextYear := utils.YearRange(now)

	// one load covers every period compared below
	bills, err := rc.loadBills(config.DB, yearStart.AddDate(-1, 0, 0), nextYear)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load bills")
		return
	}

	currentMonthRevenue := rc.getRevenue(bills, firstOfMonth, nextMonth)
	lastMonthRevenue := rc.getRevenue(bills, firstOfMonth.AddDate(0, -1, 0), firstOfMonth)
	currentQuarterRevenue := rc.getRevenue(bills, quarterStart, quarterEnd)
	lastQuarterRevenue := rc.getRevenue(bills, quarterStart.AddDate(0, -3, 0), quarterStart)
	currentYearRevenue := rc.getRevenue(bills, yearStart, nextYear)
	lastYearRevenue := rc.getRevenue(bills, yearStart.AddDate(-1, 0, 0), yearStart)

	monthBills := filterBills(bills, firstOfMonth, nextMonth)

	quickStats, err := rc.getQuickStatistics(config.DB)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get quick statistics")
		return
	}

	summary := AnalyticsSummary{
		CurrentMonthRevenue:   currentMonthRevenue,
		MonthGrowth:           rc.calculateGrowthPercentage(currentMonthRevenue, lastMonthRevenue),
		CurrentQuarterRevenue: currentQuarterRevenue,
		QuarterGrowth:         rc.calculateGrowthPercentage(currentQuarterRevenue, lastQuarterRevenue),
		CurrentYearRevenue:    currentYearRevenue,
		YearGrowth:            rc.calculateGrowthPercentage(currentYearRevenue, lastYearRevenue),
		TopServices:           rc.getTopServices(monthBills, 4),
		TopClients:            rc.getTopClients(monthBills, 4),
		QuickStats:            quickStats,
	}

	c.JSON(http.StatusOK, summary)
}

func (rc *ReportController) loadBills(db *gorm.DB, start, end time.Time) ([]models.Bill, error) {
	var bills []models.Bill
	err := preloadItems(db).
		Where("date_from >= ? AND date_from < ?", start, end).
		Order("date_from ASC, created_at ASC").
		Find(&bills).Error
	return bills, err
}

func filterBills(bills []models.Bill, start, end time.Time) []models.Bill {
	var out []models.Bill
	for _, b := range bills {
		if inRange(b.DateFrom, start, end) {
			out = append(out, b)
		}
	}
	return out
}

func (rc *ReportController) getRevenue(bills []models.Bill, start, end time.Time) float64 {
	var total float64
	for _, b := range filterBills(bills, start, end) {
		total += b.Total
	}
	return utils.RoundMoney(total)
}

func (rc *ReportController) getQuarterStart(date time.Time) time.Time {
	quarter := (int(date.Month())-1)/3 + 1
	startMonth := time.Month((quarter-1)*3 + 1)
	return time.Date(date.Year(), startMonth, 1, 0, 0, 0, 0, date.Location())
}

// getQuarterEnd is exclusive: the first day of the next quarter.
func (rc *ReportController) getQuarterEnd(date time.Time) time.Time {
	return rc.getQuarterStart(date).AddDate(0, 3, 0)
}

func (rc *ReportController) calculateGrowthPercentage(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return utils.RoundMoney((current - previous) / previous * 100)
}

// getTopServices ranks service lines by revenue. Membership-paid lines have
// no amount and rank by count only.
func (rc *ReportController) getTopServices(bills []models.Bill, limit int) []ServiceSummary {
	byName := map[string]*ServiceSummary{}
	for _, b := range bills {
		for _, it := range b.Items {
			if it.ItemType != models.ItemTypeService {
				continue
			}
			s, ok := byName[it.Name]
			if !ok {
				s = &ServiceSummary{Name: it.Name}
				byName[it.Name] = s
			}
			s.Count += max(it.Quantity, 1)
			s.Revenue = utils.RoundMoney(s.Revenue + it.Amount)
		}
	}

	out := make([]ServiceSummary, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (rc *ReportController) getTopClients(bills []models.Bill, limit int) []ClientSummary {
	byKey := map[string]*ClientSummary{}
	for _, b := range bills {
		key := b.ClientPhone
		if key == "" {
			key = "name:" + b.ClientName
		}
		s, ok := byKey[key]
		if !ok {
			s = &ClientSummary{Name: b.ClientName, Phone: b.ClientPhone}
			byKey[key] = s
		}
		s.Visits++
		s.Spent = utils.RoundMoney(s.Spent + b.Total)
	}

	out := make([]ClientSummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spent != out[j].Spent {
			return out[i].Spent > out[j].Spent
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (rc *ReportController) getQuickStatistics(db *gorm.DB) (QuickStatistics, error) {
	var stats QuickStatistics

	var totalClients int64
	if err := db.Model(&models.Client{}).Count(&totalClients).Error; err != nil {
		return stats, err
	}
	stats.TotalClients = int(totalClients)

	var sessions int64
	if err := db.Model(&models.ServiceUsage{}).Count(&sessions).Error; err != nil {
		return stats, err
	}
	stats.SessionsLogged = int(sessions)

	var rows []struct {
		DateFrom time.Time
		Total    float64
	}
	if err := db.Model(&models.Bill{}).Select("date_from, total").Scan(&rows).Error; err != nil {
		return stats, err
	}
	stats.TotalBills = len(rows)
	if len(rows) == 0 {
		return stats, nil
	}

	months := map[string]bool{}
	var revenue float64
	for _, r := range rows {
		months[r.DateFrom.In(location()).Format("2006-01")] = true
		revenue += r.Total
	}
	stats.AvgMonthlyVisits = utils.RoundMoney(float64(len(rows)) / float64(len(months)))
	stats.AvgOrderValue = utils.RoundMoney(revenue / float64(len(rows)))
	return stats, nil
}

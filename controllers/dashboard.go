package controllers

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"spa-backoffice/config"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultDashboardDays = 30
	maxDashboardDays     = 366
)

type IncomeSummary struct {
	Day   float64 `json:"day"`
	Week  float64 `json:"week"`
	Month float64 `json:"month"`
	Year  float64 `json:"year"`
}

type DailyIncome struct {
	Date   string  `json:"date"` // "2 Jan 2006"
	ISO    string  `json:"iso"`  // "2006-01-02"
	Income float64 `json:"income"`
	Day    string  `json:"day"` // weekday name
}

type MembershipSale struct {
	MembershipID   string  `json:"membershipId"`
	MembershipName string  `json:"membershipName"`
	SoldCount      int     `json:"soldCount"`
	Revenue        float64 `json:"revenue"`
}

type RecentClient struct {
	Name      string `json:"name"`
	Service   string `json:"service"`
	VisitDate string `json:"visitDate"` // e.g. "Today", "Yesterday"
}

type DashboardOverview struct {
	Summary         IncomeSummary     `json:"summary"`
	Formatted       map[string]string `json:"formatted"`
	Labels          map[string]string `json:"labels"`
	List            []DailyIncome     `json:"list"`
	MembershipSales []MembershipSale  `json:"membershipSales"`
	MostSelling     *MembershipSale   `json:"mostSelling"`
	LeastSelling    *MembershipSale   `json:"leastSelling"`
	TotalClients    int64             `json:"totalClients"`
	TotalBills      int64             `json:"totalBills"`
	RecentClients   []RecentClient    `json:"recentClients"`
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// summarizeIncome totals bill income for today, the Monday-to-Saturday week,
// the month and the year containing now.
func summarizeIncome(bills []models.Bill, now time.Time) IncomeSummary {
	today := utils.BeginningOfDay(now)
	weekStart, weekEnd := utils.WeekRange(now)
	monthStart, monthEnd := utils.MonthRange(now)
	yearStart, yearEnd := utils.YearRange(now)

	var s IncomeSummary
	for _, b := range bills {
		d := b.DateFrom.In(now.Location())
		if inRange(d, today, today.AddDate(0, 0, 1)) {
			s.Day += b.Total
		}
		if inRange(d, weekStart, weekEnd) {
			s.Week += b.Total
		}
		if inRange(d, monthStart, monthEnd) {
			s.Month += b.Total
		}
		if inRange(d, yearStart, yearEnd) {
			s.Year += b.Total
		}
	}
	s.Day = utils.RoundMoney(s.Day)
	s.Week = utils.RoundMoney(s.Week)
	s.Month = utils.RoundMoney(s.Month)
	s.Year = utils.RoundMoney(s.Year)
	return s
}

// dailyIncome returns one row per day for the last n days, newest first.
func dailyIncome(bills []models.Bill, now time.Time, n int) []DailyIncome {
	byDay := make(map[string]float64)
	for _, b := range bills {
		byDay[b.DateFrom.In(now.Location()).Format(utils.DateLayout)] += b.Total
	}
	today := utils.BeginningOfDay(now)
	list := make([]DailyIncome, 0, n)
	for i := 0; i < n; i++ {
		d := today.AddDate(0, 0, -i)
		iso := d.Format(utils.DateLayout)
		list = append(list, DailyIncome{
			Date:   utils.FormatDay(d),
			ISO:    iso,
			Income: utils.RoundMoney(byDay[iso]),
			Day:    utils.Weekday(d),
		})
	}
	return list
}

// membershipSales groups membership lines by plan, best seller first.
func membershipSales(bills []models.Bill) []MembershipSale {
	sales := map[string]*MembershipSale{}
	for _, b := range bills {
		for _, it := range b.Items {
			if it.ItemType != models.ItemTypeMembership {
				continue
			}
			key := it.Name
			if it.MembershipPlanID != nil {
				key = it.MembershipPlanID.String()
			}
			s, ok := sales[key]
			if !ok {
				s = &MembershipSale{MembershipID: key, MembershipName: it.Name}
				sales[key] = s
			}
			s.SoldCount++
			s.Revenue = utils.RoundMoney(s.Revenue + it.Amount)
		}
	}

	out := make([]MembershipSale, 0, len(sales))
	for _, s := range sales {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SoldCount != out[j].SoldCount {
			return out[i].SoldCount > out[j].SoldCount
		}
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].MembershipName < out[j].MembershipName
	})
	return out
}

func visitLabel(visit, now time.Time) string {
	switch days := utils.DaysBetween(visit, now); days {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

// recentClients picks the last three distinct clients billed.
func recentClients(bills []models.Bill, now time.Time) []RecentClient {
	sorted := append([]models.Bill(nil), bills...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].DateFrom.Equal(sorted[j].DateFrom) {
			return sorted[i].DateFrom.After(sorted[j].DateFrom)
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	out := []RecentClient{}
	seen := map[string]bool{}
	for _, b := range sorted {
		if seen[b.ClientName] {
			continue
		}
		seen[b.ClientName] = true
		names := make([]string, 0, len(b.Items))
		for _, it := range b.Items {
			names = append(names, it.Name)
		}
		out = append(out, RecentClient{
			Name:      b.ClientName,
			Service:   strings.Join(names, ", "),
			VisitDate: visitLabel(b.DateFrom, now),
		})
		if len(out) == 3 {
			break
		}
	}
	return out
}

func periodLabels(now time.Time) map[string]string {
	monday, _ := utils.WeekRange(now)
	saturday := monday.AddDate(0, 0, 5)
	return map[string]string{
		"day":   utils.FormatDay(now),
		"week":  utils.FormatDay(monday) + " - " + utils.FormatDay(saturday),
		"month": now.Format("January 2006"),
		"year":  strconv.Itoa(now.Year()),
	}
}

// GetDashboardOverview serves income totals, the day-wise list for the last
// ?days= days (default 30) and membership sales over that window.
func GetDashboardOverview(c *gin.Context) {
	days := defaultDashboardDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDashboardDays {
			utils.RespondWithError(c, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	now := time.Now().In(location())
	if raw := c.Query("date"); raw != "" {
		d, ok := parseDateOr(c, "date", now)
		if !ok {
			return
		}
		now = d
	}

	today := utils.BeginningOfDay(now)
	windowStart := today.AddDate(0, 0, -(days - 1))
	yearStart, _ := utils.YearRange(now)
	weekStart, _ := utils.WeekRange(now)
	from := windowStart
	for _, t := range []time.Time{yearStart, weekStart} {
		if t.Before(from) {
			from = t
		}
	}

	var bills []models.Bill
	if err := preloadItems(config.DB).
		Where("date_from >= ? AND date_from < ?", from, today.AddDate(0, 0, 1)).
		Find(&bills).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load bills")
		return
	}

	var window []models.Bill
	for _, b := range bills {
		if !b.DateFrom.Before(windowStart) {
			window = append(window, b)
		}
	}

	overview := DashboardOverview{
		Summary:         summarizeIncome(bills, now),
		List:            dailyIncome(window, now, days),
		MembershipSales: membershipSales(window),
		Labels:          periodLabels(now),
		RecentClients:   recentClients(window, now),
	}
	overview.Formatted = map[string]string{
		"day":   utils.FormatCurrency(overview.Summary.Day),
		"week":  utils.FormatCurrency(overview.Summary.Week),
		"month": utils.FormatCurrency(overview.Summary.Month),
		"year":  utils.FormatCurrency(overview.Summary.Year),
	}
	if n := len(overview.MembershipSales); n > 0 {
		most := overview.MembershipSales[0]
		least := overview.MembershipSales[n-1]
		overview.MostSelling, overview.LeastSelling = &most, &least
	}

	config.DB.Model(&models.Client{}).Count(&overview.TotalClients)
	config.DB.Model(&models.Bill{}).Count(&overview.TotalBills)

	c.JSON(http.StatusOK, overview)
}

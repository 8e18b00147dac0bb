package controllers

import (
	"fmt"
	"net/http"
	"time"

	"spa-backoffice/config"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	dailyIncomeSheet     = "Daily Income"
	membershipSalesSheet = "Membership Sales"
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}

// buildIncomeWorkbook lays out income per day in [from, to] (oldest first)
// and membership sales over the same period.
func buildIncomeWorkbook(bills []models.Bill, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", dailyIncomeSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(membershipSalesSheet); err != nil {
		return nil, err
	}
	style, err := headerStyle(f)
	if err != nil {
		return nil, err
	}

	// Daily Income
	if err := writeRow(f, dailyIncomeSheet, 1, "Date", "Day", "Bills", "Income"); err != nil {
		return nil, err
	}
	f.SetCellStyle(dailyIncomeSheet, "A1", "D1", style)

	byDay := map[string]float64{}
	counts := map[string]int{}
	for _, b := range bills {
		iso := b.DateFrom.In(from.Location()).Format(utils.DateLayout)
		byDay[iso] += b.Total
		counts[iso]++
	}

	row := 2
	var total float64
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		iso := d.Format(utils.DateLayout)
		income := utils.RoundMoney(byDay[iso])
		if err := writeRow(f, dailyIncomeSheet, row, utils.FormatDay(d), utils.Weekday(d), counts[iso], income); err != nil {
			return nil, err
		}
		total += income
		row++
	}
	if err := writeRow(f, dailyIncomeSheet, row, "Total", "", len(bills), utils.RoundMoney(total)); err != nil {
		return nil, err
	}
	f.SetColWidth(dailyIncomeSheet, "A", "A", 16)
	f.SetColWidth(dailyIncomeSheet, "B", "D", 12)

	// Membership Sales
	if err := writeRow(f, membershipSalesSheet, 1, "Membership", "Sold", "Revenue"); err != nil {
		return nil, err
	}
	f.SetCellStyle(membershipSalesSheet, "A1", "C1", style)
	for i, s := range membershipSales(bills) {
		if err := writeRow(f, membershipSalesSheet, i+2, s.MembershipName, s.SoldCount, s.Revenue); err != nil {
			return nil, err
		}
	}
	f.SetColWidth(membershipSalesSheet, "A", "A", 30)
	f.SetColWidth(membershipSalesSheet, "B", "C", 12)

	return f, nil
}

// ExportReport streams the income workbook for ?from=&to= (inclusive dates,
// default: the current month so far).
func ExportReport(c *gin.Context) {
	now := utils.BeginningOfDay(time.Now().In(location()))
	monthStart, _ := utils.MonthRange(now)

	from, ok := parseDateOr(c, "from", monthStart)
	if !ok {
		return
	}
	to, ok := parseDateOr(c, "to", now)
	if !ok {
		return
	}
	from, to = utils.BeginningOfDay(from), utils.BeginningOfDay(to)
	if to.Before(from) {
		utils.RespondWithError(c, http.StatusBadRequest, "from must not be after to")
		return
	}
	if utils.DaysBetween(from, to) > maxDashboardDays {
		utils.RespondWithError(c, http.StatusBadRequest, "Export range is limited to one year")
		return
	}

	var bills []models.Bill
	if err := preloadItems(config.DB).
		Where("date_from >= ? AND date_from < ?", from, to.AddDate(0, 0, 1)).
		Order("date_from ASC, created_at ASC").
		Find(&bills).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load bills")
		return
	}

	f, err := buildIncomeWorkbook(bills, from, to)
	if err != nil {
		log.Error().Err(err).Msg("build income workbook")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build report")
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build report")
		return
	}

	name := fmt.Sprintf("income_%s_%s.xlsx", from.Format(utils.DateLayout), to.Format(utils.DateLayout))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

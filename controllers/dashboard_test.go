package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"spa-backoffice/config"
	"spa-backoffice/models"

	"github.com/google/uuid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func incomeBill(date time.Time, total float64, items ...models.BillItem) models.Bill {
	return models.Bill{ClientName: "Asha Rao", DateFrom: date, Total: total, Subtotal: total, Items: items}
}

func membershipLine(planID uuid.UUID, name string, amount float64) models.BillItem {
	id := planID
	return models.BillItem{ItemType: models.ItemTypeMembership, Name: name, Amount: amount, Quantity: 1, MembershipPlanID: &id}
}

func TestSummarizeIncome(t *testing.T) {
	// Wednesday
	now := day(2024, time.May, 15).Add(15 * time.Hour)
	bills := []models.Bill{
		incomeBill(day(2024, time.May, 15), 100),
		incomeBill(day(2024, time.May, 13), 50),   // Monday
		incomeBill(day(2024, time.May, 12), 30),   // Sunday of the previous week
		incomeBill(day(2024, time.April, 30), 20), // previous month
		incomeBill(day(2023, time.December, 31), 1000),
	}

	got := summarizeIncome(bills, now)
	want := IncomeSummary{Day: 100, Week: 150, Month: 180, Year: 200}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
}

func TestSummarizeIncomeWeekEndsSaturday(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"saturday counts", day(2024, time.May, 18), 70},
		{"sunday belongs to the ended week", day(2024, time.May, 19), 70},
		{"monday resets", day(2024, time.May, 20), 0},
	}
	bills := []models.Bill{
		incomeBill(day(2024, time.May, 13), 10),
		incomeBill(day(2024, time.May, 18), 60),
		incomeBill(day(2024, time.May, 19), 5),
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summarizeIncome(bills, tt.now).Week; got != tt.want {
				t.Errorf("week = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyIncome(t *testing.T) {
	now := day(2024, time.May, 15)
	bills := []models.Bill{
		incomeBill(day(2024, time.May, 15), 100),
		incomeBill(day(2024, time.May, 15), 25.5),
		incomeBill(day(2024, time.May, 13), 50),
	}

	list := dailyIncome(bills, now, 3)
	want := []DailyIncome{
		{Date: "15 May 2024", ISO: "2024-05-15", Income: 125.5, Day: "Wednesday"},
		{Date: "14 May 2024", ISO: "2024-05-14", Income: 0, Day: "Tuesday"},
		{Date: "13 May 2024", ISO: "2024-05-13", Income: 50, Day: "Monday"},
	}
	if len(list) != len(want) {
		t.Fatalf("got %d rows, want %d", len(list), len(want))
	}
	for i := range want {
		if list[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, list[i], want[i])
		}
	}
}

func TestMembershipSales(t *testing.T) {
	gold, silver := uuid.New(), uuid.New()
	bills := []models.Bill{
		incomeBill(day(2024, time.May, 1), 5000, membershipLine(gold, "Gold", 5000)),
		incomeBill(day(2024, time.May, 2), 4500, membershipLine(gold, "Gold", 4500)),
		incomeBill(day(2024, time.May, 3), 3000, membershipLine(silver, "Silver", 3000)),
		incomeBill(day(2024, time.May, 3), 800, models.BillItem{ItemType: models.ItemTypeService, Name: "Massage", Amount: 800}),
	}

	sales := membershipSales(bills)
	if len(sales) != 2 {
		t.Fatalf("got %d entries, want 2", len(sales))
	}
	if sales[0].MembershipName != "Gold" || sales[0].SoldCount != 2 || sales[0].Revenue != 9500 {
		t.Errorf("best seller = %+v", sales[0])
	}
	if sales[1].MembershipID != silver.String() || sales[1].SoldCount != 1 {
		t.Errorf("least seller = %+v", sales[1])
	}
	if got := membershipSales(nil); len(got) != 0 {
		t.Errorf("no bills should give no sales, got %v", got)
	}
}

func TestRecentClients(t *testing.T) {
	now := day(2024, time.May, 15)
	bills := []models.Bill{
		{ClientName: "A", DateFrom: day(2024, time.May, 15), Items: []models.BillItem{{Name: "Massage"}, {Name: "Hamam"}}},
		{ClientName: "B", DateFrom: day(2024, time.May, 14)},
		{ClientName: "A", DateFrom: day(2024, time.May, 10)},
		{ClientName: "C", DateFrom: day(2024, time.May, 10)},
		{ClientName: "D", DateFrom: day(2024, time.May, 1)},
	}

	got := recentClients(bills, now)
	want := []RecentClient{
		{Name: "A", Service: "Massage, Hamam", VisitDate: "Today"},
		{Name: "B", VisitDate: "Yesterday"},
		{Name: "C", VisitDate: "5 days ago"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestGetDashboardOverview(t *testing.T) {
	setupDB(t)
	r := newTestRouter()
	gold := uuid.New()
	for i, b := range []models.Bill{
		incomeBill(day(2024, time.May, 15), 5000, membershipLine(gold, "Gold", 5000)),
		incomeBill(day(2024, time.May, 14), 800, models.BillItem{ItemType: models.ItemTypeService, Name: "Massage", Amount: 800, Quantity: 1}),
		incomeBill(day(2024, time.January, 2), 1200),
	} {
		b.BillNumber = fmt.Sprintf("BILL-TEST-%d", i)
		if err := config.DB.Create(&b).Error; err != nil {
			t.Fatal(err)
		}
	}

	w := doRequest(t, r, http.MethodGet, "/dashboard?days=7&date=2024-05-15", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var overview DashboardOverview
	decode(t, w, &overview)

	if overview.Summary != (IncomeSummary{Day: 5000, Week: 5800, Month: 5800, Year: 7000}) {
		t.Errorf("summary = %+v", overview.Summary)
	}
	if overview.Formatted["day"] != "₹5000.00" {
		t.Errorf("formatted day = %q", overview.Formatted["day"])
	}
	if len(overview.List) != 7 || overview.List[0].ISO != "2024-05-15" || overview.List[1].Income != 800 {
		t.Errorf("list = %+v", overview.List)
	}
	if overview.MostSelling == nil || overview.MostSelling.MembershipName != "Gold" || overview.MostSelling.SoldCount != 1 {
		t.Errorf("most selling = %+v", overview.MostSelling)
	}
	if overview.TotalBills != 3 {
		t.Errorf("total bills = %d, want 3", overview.TotalBills)
	}
	if overview.Labels["week"] != "13 May 2024 - 18 May 2024" {
		t.Errorf("week label = %q", overview.Labels["week"])
	}

	for _, q := range []string{"?days=0", "?days=abc", "?days=400", "?date=yesterday"} {
		if w := doRequest(t, r, http.MethodGet, "/dashboard"+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, w.Code)
		}
	}
}

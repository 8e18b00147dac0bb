package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"spa-backoffice/config"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.BcryptCost = bcrypt.MinCost
	config.App = config.Defaults()
	config.App.JWTSecret = "test-secret"
	os.Exit(m.Run())
}

// setupDB points config.DB at a fresh in-memory database.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	config.DB = db
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestRouter() *gin.Engine {
	r := gin.New()
	r.POST("/auth/register", Register)
	r.POST("/auth/login", Login)

	r.POST("/services", CreateService)
	r.POST("/memberships", CreateMembershipPlan)
	r.GET("/memberships/:id", GetMembershipPlan)
	r.POST("/clients", CreateClient)
	r.GET("/clients", GetClients)

	r.POST("/bills", CreateBill)
	r.GET("/bills", GetBills)
	r.PUT("/bills/:id", UpdateBill)
	r.DELETE("/bills/:id", DeleteBill)

	r.POST("/service-usages", LogServiceUsage)
	r.GET("/service-usages", GetServiceUsages)
	r.PUT("/service-usages/:id", UpdateServiceUsage)
	r.DELETE("/service-usages/:id", DeleteServiceUsage)

	r.GET("/membership-purchases", GetMembershipPurchases)
	r.GET("/membership-purchases/:id", GetMembershipPurchase)

	reports := ReportController{}
	r.GET("/dashboard", GetDashboardOverview)
	r.GET("/reports", reports.GetReportAnalytics)
	r.GET("/reports/export", ExportReport)
	r.GET("/notifications", GetNotificationLogs)
	r.POST("/reminders/run", RunReminders(nil))
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func seedPlan(t *testing.T, name string, price float64, allotments models.Allotments) models.MembershipPlan {
	t.Helper()
	plan := models.MembershipPlan{Name: name, Price: price, SessionAllotments: allotments, IsActive: true}
	if err := config.DB.Create(&plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func seedService(t *testing.T, title, category string, price float64) models.Service {
	t.Helper()
	service := models.Service{Title: title, Category: category, Price: price, IsActive: true}
	if err := config.DB.Create(&service).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return service
}

// buyMembership sells plan to a client through the billing endpoint.
func buyMembership(t *testing.T, r http.Handler, plan models.MembershipPlan, phone string) models.Bill {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/bills", gin.H{
		"clientName":  "Asha Rao",
		"clientPhone": phone,
		"items": []gin.H{{
			"itemType":         models.ItemTypeMembership,
			"membershipPlanId": plan.ID.String(),
		}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("buy membership: status %d: %s", w.Code, w.Body.String())
	}
	var bill models.Bill
	decode(t, w, &bill)
	return bill
}

func countRows(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := config.DB.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

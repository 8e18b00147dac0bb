package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spa-backoffice/config"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setup(t *testing.T) config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.BcryptCost = bcrypt.MinCost

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := config.Migrate(db); err != nil {
		t.Fatal(err)
	}
	config.DB = db
	t.Cleanup(func() { sqlDB.Close() })

	cfg := config.Defaults()
	cfg.JWTSecret = "routes-test-secret"
	config.App = cfg
	return cfg
}

func send(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthFlow(t *testing.T) {
	cfg := setup(t)
	r := SetupRouter(cfg, nil)

	w := send(r, http.MethodPost, "/auth/register", gin.H{
		"email":    "Owner@Spa.test",
		"phone":    "+919876543210",
		"name":     "Owner",
		"password": "password123",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", w.Code, w.Body.String())
	}
	var reg struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	json.Unmarshal(w.Body.Bytes(), &reg)
	if reg.Token == "" || reg.User.Role != "owner" || reg.User.Email != "owner@spa.test" {
		t.Errorf("register response = %+v", reg)
	}

	w = send(r, http.MethodPost, "/auth/login", gin.H{"identifier": "owner@spa.test", "password": "password123"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &login)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"me", http.MethodGet, "/auth/me", login.Token, http.StatusOK},
		{"me without token", http.MethodGet, "/auth/me", "", http.StatusUnauthorized},
		{"api without token", http.MethodGet, "/api/services", "", http.StatusUnauthorized},
		{"api with bad token", http.MethodGet, "/api/services", "garbage", http.StatusUnauthorized},
		{"api", http.MethodGet, "/api/services", login.Token, http.StatusOK},
		{"reminders unconfigured", http.MethodPost, "/api/reminders/run", login.Token, http.StatusServiceUnavailable},
		{"wrong password", http.MethodPost, "/auth/login", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := send(r, tt.method, tt.path, nil, tt.token); w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}

	w = send(r, http.MethodPost, "/auth/login", gin.H{"identifier": "owner@spa.test", "password": "wrong-password"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad credentials: status %d, want 401", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	cfg := setup(t)

	r := SetupRouter(cfg, nil)
	if w := send(r, http.MethodGet, "/health", nil, ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
	send(r, http.MethodGet, "/health", nil, "")
	w := send(r, http.MethodGet, "/metrics", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "spa_backoffice_http_requests_total") {
		t.Errorf("metrics: %d", w.Code)
	}

	cfg.MetricsEnabled = false
	r = SetupRouter(cfg, nil)
	if w := send(r, http.MethodGet, "/metrics", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: status %d, want 404", w.Code)
	}
}

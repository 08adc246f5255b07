package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"figurachat/internal/admin"
	"figurachat/internal/auth"
	"figurachat/internal/config"
	"figurachat/internal/models"
	"figurachat/internal/storage"
)

type stubSessions struct{ active int }

func (s stubSessions) ActiveSessions() int { return s.active }

func newTestServer(t *testing.T) (*gin.Engine, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	adminSvc := admin.NewService(db)
	if err := adminSvc.SeedDefaultAdmin(context.Background(), "admin", "admin123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	authSvc := auth.NewService(db, time.Hour)
	handler := NewHandler(adminSvc, authSvc, stubSessions{active: 3})

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, db
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}

func loginAdmin(t *testing.T, router *gin.Engine) map[string]string {
	t.Helper()
	resp := doJSONRequest(t, router, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin",
		"password": "admin123",
	}, nil)
	assertStatus(t, resp, http.StatusOK)
	var body struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp.Body.Bytes(), &body)
	if body.Token == "" {
		t.Fatal("expected token from login")
	}
	return map[string]string{"Authorization": "Bearer " + body.Token}
}

func insertOrder(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(
		`INSERT INTO orders (user_id, customer_name, customer_phone, order_type, order_data, price, status, created_at, updated_at)
		 VALUES ('v1', ?, '', 'Figura Personalizada', '{"cabeza":"pelo azul"}', 0, 'pending', ?, ?)`,
		name, now, now,
	)
	if err != nil {
		t.Fatalf("insert order: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	resp := doJSONRequest(t, router, http.MethodGet, "/api/health", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	var body struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"active_sessions"`
	}
	decodeJSON(t, resp.Body.Bytes(), &body)
	if body.Status != "healthy" || body.ActiveSessions != 3 {
		t.Fatalf("health = %+v", body)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _ := newTestServer(t)

	resp := doJSONRequest(t, router, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin",
		"password": "wrong",
	}, nil)
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router, _ := newTestServer(t)

	resp := doJSONRequest(t, router, http.MethodGet, "/api/admin/orders", nil, nil)
	assertStatus(t, resp, http.StatusUnauthorized)

	resp = doJSONRequest(t, router, http.MethodGet, "/api/admin/orders", nil,
		map[string]string{"Authorization": "Bearer bogus"})
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestOrderLifecycle(t *testing.T) {
	router, db := newTestServer(t)
	authHeader := loginAdmin(t, router)
	orderID := insertOrder(t, db, "Ana")

	listResp := doJSONRequest(t, router, http.MethodGet, "/api/admin/orders", nil, authHeader)
	assertStatus(t, listResp, http.StatusOK)
	var listBody struct {
		Count  int                   `json:"count"`
		Orders []*models.StoredOrder `json:"orders"`
	}
	decodeJSON(t, listResp.Body.Bytes(), &listBody)
	if listBody.Count != 1 || listBody.Orders[0].CustomerName != "Ana" {
		t.Fatalf("list = %+v", listBody)
	}

	getResp := doJSONRequest(t, router, http.MethodGet, fmt.Sprintf("/api/admin/orders/%d", orderID), nil, authHeader)
	assertStatus(t, getResp, http.StatusOK)

	updResp := doJSONRequest(t, router, http.MethodPut, fmt.Sprintf("/api/admin/orders/%d", orderID),
		map[string]any{"price": 180.0, "status": "in_production"}, authHeader)
	assertStatus(t, updResp, http.StatusOK)
	var updBody struct {
		Order *models.StoredOrder `json:"order"`
	}
	decodeJSON(t, updResp.Body.Bytes(), &updBody)
	if updBody.Order.Price != 180 || updBody.Order.Status != "in_production" {
		t.Fatalf("update = %+v", updBody.Order)
	}

	missing := doJSONRequest(t, router, http.MethodGet, "/api/admin/orders/9999", nil, authHeader)
	assertStatus(t, missing, http.StatusNotFound)
}

func TestUserManagement(t *testing.T) {
	router, _ := newTestServer(t)
	authHeader := loginAdmin(t, router)

	createResp := doJSONRequest(t, router, http.MethodPost, "/api/admin/users", map[string]string{
		"username": "viewer1",
		"password": "clave",
		"role":     "viewer",
	}, authHeader)
	assertStatus(t, createResp, http.StatusCreated)
	var createBody struct {
		User *models.AdminUser `json:"user"`
	}
	decodeJSON(t, createResp.Body.Bytes(), &createBody)
	if createBody.User.ID == 0 {
		t.Fatal("missing user id")
	}

	dupResp := doJSONRequest(t, router, http.MethodPost, "/api/admin/users", map[string]string{
		"username": "viewer1",
		"password": "clave",
	}, authHeader)
	assertStatus(t, dupResp, http.StatusConflict)

	listResp := doJSONRequest(t, router, http.MethodGet, "/api/admin/users", nil, authHeader)
	assertStatus(t, listResp, http.StatusOK)
	var listBody struct {
		Count int `json:"count"`
	}
	decodeJSON(t, listResp.Body.Bytes(), &listBody)
	if listBody.Count != 2 {
		t.Fatalf("user count = %d", listBody.Count)
	}

	updResp := doJSONRequest(t, router, http.MethodPut, fmt.Sprintf("/api/admin/users/%d", createBody.User.ID),
		map[string]string{"full_name": "Visor Uno"}, authHeader)
	assertStatus(t, updResp, http.StatusOK)

	delResp := doJSONRequest(t, router, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", createBody.User.ID), nil, authHeader)
	assertStatus(t, delResp, http.StatusOK)
}

func TestDeleteLastAdminFails(t *testing.T) {
	router, db := newTestServer(t)
	authHeader := loginAdmin(t, router)

	var adminID int64
	if err := db.QueryRow(`SELECT id FROM admin_users WHERE username = 'admin'`).Scan(&adminID); err != nil {
		t.Fatalf("lookup admin: %v", err)
	}
	resp := doJSONRequest(t, router, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", adminID), nil, authHeader)
	assertStatus(t, resp, http.StatusConflict)
}

func TestLogoutRevokesToken(t *testing.T) {
	router, _ := newTestServer(t)
	authHeader := loginAdmin(t, router)

	resp := doJSONRequest(t, router, http.MethodPost, "/api/admin/logout", nil, authHeader)
	assertStatus(t, resp, http.StatusOK)

	resp = doJSONRequest(t, router, http.MethodGet, "/api/admin/orders", nil, authHeader)
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestWhatsAppLinkEndpoint(t *testing.T) {
	router, _ := newTestServer(t)
	authHeader := loginAdmin(t, router)

	resp := doJSONRequest(t, router, http.MethodPost, "/api/admin/whatsapp-link", map[string]string{
		"phone":   "987 654 321",
		"message": "Hola",
	}, authHeader)
	assertStatus(t, resp, http.StatusOK)
	var body struct {
		Link string `json:"link"`
	}
	decodeJSON(t, resp.Body.Bytes(), &body)
	if body.Link != "https://wa.me/51987654321?text=Hola" {
		t.Fatalf("link = %q", body.Link)
	}

	resp = doJSONRequest(t, router, http.MethodPost, "/api/admin/whatsapp-link", map[string]string{
		"phone": "",
	}, authHeader)
	assertStatus(t, resp, http.StatusBadRequest)
}

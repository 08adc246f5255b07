package notify

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"figurachat/internal/config"
	"figurachat/internal/models"
	"figurachat/internal/storage"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
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
	return db
}

type captureSender struct {
	mu      sync.Mutex
	subject string
	html    string
	photos  int
	err     error
}

func (s *captureSender) Send(_ context.Context, subject, html string, photos []models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.subject = subject
	s.html = html
	s.photos = len(photos)
	return nil
}

func TestFinalizeStoresAndSends(t *testing.T) {
	db := newTestDB(t)
	sender := &captureSender{}
	svc := NewService(db, sender)

	order := &models.Order{
		Contact: "Ana Torres",
		Head:    "pelo negro",
		Photos:  []models.Photo{{Filename: "a.jpg", Data: "QUJD"}},
	}
	orderID, emailSent := svc.Finalize(context.Background(), order, "v1")
	if orderID == 0 {
		t.Fatal("order not stored")
	}
	if !emailSent {
		t.Fatal("email not reported sent")
	}
	if sender.photos != 1 {
		t.Fatalf("attached photos = %d", sender.photos)
	}

	var name, status, descr string
	if err := db.QueryRow(`SELECT customer_name, status, description FROM orders WHERE id = ?`, orderID).Scan(&name, &status, &descr); err != nil {
		t.Fatalf("load order row: %v", err)
	}
	if name != "Ana Torres" || status != "pending" {
		t.Fatalf("row = (%q, %q)", name, status)
	}
	if !strings.Contains(descr, "Cabeza: pelo negro") {
		t.Fatalf("description = %q", descr)
	}
}

func TestFinalizeDefaultsCustomerName(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)

	orderID, emailSent := svc.Finalize(context.Background(), &models.Order{Head: "casco"}, "v1")
	if orderID == 0 {
		t.Fatal("order not stored")
	}
	if emailSent {
		t.Fatal("email reported sent without a sender")
	}
	var name string
	if err := db.QueryRow(`SELECT customer_name FROM orders WHERE id = ?`, orderID).Scan(&name); err != nil {
		t.Fatalf("load: %v", err)
	}
	if name != "Cliente Web" {
		t.Fatalf("customer name = %q", name)
	}
}

func TestFinalizeSurvivesSendFailure(t *testing.T) {
	db := newTestDB(t)
	sender := &captureSender{err: errors.New("smtp down")}
	svc := NewService(db, sender)

	orderID, emailSent := svc.Finalize(context.Background(), &models.Order{Contact: "Ana"}, "v1")
	if orderID == 0 {
		t.Fatal("persist leg should succeed despite email failure")
	}
	if emailSent {
		t.Fatal("failed send reported as sent")
	}
}

func TestNewSMTPSenderValidation(t *testing.T) {
	if _, err := NewSMTPSender(config.SMTPConfig{}); err == nil {
		t.Fatal("empty config accepted")
	}
	sender, err := NewSMTPSender(config.SMTPConfig{
		Host:      "smtp.example.com",
		FromEmail: "bot@example.com",
		ToEmail:   "studio@example.com",
	})
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if sender.cfg.Port != 465 {
		t.Fatalf("default port = %d", sender.cfg.Port)
	}
}

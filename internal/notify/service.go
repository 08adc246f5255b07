// Package notify finalizes confirmed orders: it stores the order row and
// emails the studio an HTML summary with the reference photos attached. The
// two legs fail independently; neither failure reverts the confirmation.
package notify

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"figurachat/internal/config"
	"figurachat/internal/models"

	mail "github.com/wneessen/go-mail"
)

// Sender delivers one rendered order email.
type Sender interface {
	Send(ctx context.Context, subject, html string, photos []models.Photo) error
}

// Service is the notification dispatcher.
type Service struct {
	db     *sql.DB
	sender Sender
}

// NewService builds the dispatcher. sender may be nil, in which case the email
// leg is reported as not sent.
func NewService(db *sql.DB, sender Sender) *Service {
	return &Service{db: db, sender: sender}
}

// Finalize persists the confirmed order and emails the summary. It returns the
// stored order id (0 when the persist leg failed) and whether the email went
// out. Failures are logged, never propagated: the confirmation stands.
func (s *Service) Finalize(ctx context.Context, order *models.Order, userID string) (int64, bool) {
	orderID, err := s.saveOrder(ctx, order, userID)
	if err != nil {
		log.Printf("persist order for %s failed: %v", userID, err)
	}

	emailSent := false
	if s.sender != nil {
		now := time.Now()
		html, err := RenderOrderHTML(order, userID, now)
		if err != nil {
			log.Printf("render order email for %s failed: %v", userID, err)
		} else {
			subject := fmt.Sprintf("🎯 Nuevo Pedido de Figura Personalizada - %s", now.Format("2006-01-02 15:04"))
			if err := s.sender.Send(ctx, subject, html, order.Photos); err != nil {
				log.Printf("send order email for %s failed: %v", userID, err)
			} else {
				emailSent = true
			}
		}
	}
	return orderID, emailSent
}

func (s *Service) saveOrder(ctx context.Context, order *models.Order, userID string) (int64, error) {
	data, err := json.Marshal(order)
	if err != nil {
		return 0, fmt.Errorf("encode order: %w", err)
	}
	customerName := strings.TrimSpace(order.Contact)
	if customerName == "" {
		customerName = "Cliente Web"
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (user_id, customer_name, customer_phone, order_type, description, order_data, price, status, created_at, updated_at)
		 VALUES (?, ?, '', 'Figura Personalizada', ?, ?, 0, 'pending', ?, ?)`,
		userID, customerName, order.Description(), string(data), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("order id: %w", err)
	}
	log.Printf("order %d stored for user %s", id, userID)
	return id, nil
}

// SMTPSender delivers order emails over SMTP with implicit TLS.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender validates the mail account config.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.FromEmail == "" || cfg.ToEmail == "" {
		return nil, fmt.Errorf("smtp host, from_email and to_email must be configured")
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send builds and delivers one order email, attaching each decodable photo.
func (s *SMTPSender) Send(ctx context.Context, subject, html string, photos []models.Photo) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	// The sender mailbox keeps a copy, like the studio inbox.
	if err := msg.To(s.cfg.ToEmail, s.cfg.FromEmail); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	for i, photo := range photos {
		raw := photoBase64(photo.Data)
		if raw == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			log.Printf("decode photo %d failed: %v", i, err)
			continue
		}
		name := photo.Filename
		if name == "" {
			name = fmt.Sprintf("referencia_%d.jpg", i+1)
		}
		opt := mail.WithFileContentType(mail.ContentType(photoContentType(name)))
		if err := msg.AttachReader(name, bytes.NewReader(decoded), opt); err != nil {
			log.Printf("attach photo %s failed: %v", name, err)
		}
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSSLPort(false),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func photoContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/models"
)

// Notifier delivers a payment receipt to the payer. Callers treat delivery as
// fire-and-forget: a failed send never affects the transaction record.
type Notifier interface {
	PaymentReceived(ctx context.Context, tx *models.Transaction) error
}

// SMTPNotifier sends a plain-text receipt email.
type SMTPNotifier struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPNotifier(host, port, username, password, from string) *SMTPNotifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPNotifier{addr: host + ":" + port, from: from, auth: auth}
}

func (n *SMTPNotifier) PaymentReceived(ctx context.Context, tx *models.Transaction) error {
	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Payment received\r\n\r\n"+
			"We have received your payment of KES %d.\r\n"+
			"M-Pesa receipt number: %s\r\nReference: %s\r\n",
		n.from, tx.Email, tx.Amount, tx.ReceiptNumber, tx.CheckoutRequestID,
	)
	return smtp.SendMail(n.addr, n.auth, n.from, []string{tx.Email}, []byte(body))
}

// NopNotifier is used when no SMTP host is configured.
type NopNotifier struct{}

func (NopNotifier) PaymentReceived(ctx context.Context, tx *models.Transaction) error {
	return nil
}

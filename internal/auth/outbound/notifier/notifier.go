// Package notifier delivers one-time codes to end users over email and SMS.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danwahyudi/authgate/internal/pkg/config"
	"github.com/danwahyudi/authgate/internal/pkg/instrument"
	"github.com/danwahyudi/authgate/internal/pkg/mail"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Notifier sends plaintext messages out of band. Errors are surfaced
// synchronously; there is no internal retry.
type Notifier struct {
	mailer mail.Mail
	client *http.Client
	cfg    config.Config
	ins    instrument.Instrumentation
}

func New(mailer mail.Mail, client *http.Client, cfg config.Config, ins instrument.Instrumentation) *Notifier {
	if client == nil {
		client = http.DefaultClient
	}

	return &Notifier{
		mailer: mailer,
		client: client,
		cfg:    cfg,
		ins:    ins,
	}
}

func (n *Notifier) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return n.ins.Tracer("auth.outbound.notifier").Start(ctx, name)
}

func (n *Notifier) SendEmail(ctx context.Context, to, subject, body string) (err error) {
	ctx, span := n.startSpan(ctx, "SendEmail")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	err = n.mailer.Send(ctx, mail.Message{
		To:       []string{to},
		Subject:  subject,
		TextBody: body,
	})
	return err
}

// SendSMS posts the message to the configured SMS gateway.
func (n *Notifier) SendSMS(ctx context.Context, to, body string) (err error) {
	ctx, span := n.startSpan(ctx, "SendSMS")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	payload, err := json.Marshal(map[string]string{
		"to":      to,
		"message": body,
	})
	if err != nil {
		return err
	}

	url := n.cfg.GetString("sms.gateway_url")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := n.cfg.GetString("sms.api_key"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = fmt.Errorf("sms gateway responded %d", resp.StatusCode)
		return err
	}
	return nil
}

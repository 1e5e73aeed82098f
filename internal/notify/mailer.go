package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"conference_registration/internal/logger"
	"conference_registration/internal/utils"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds configuration for the SMTP server
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether credentials were supplied.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// Transport sends built messages. *gomail.Dialer satisfies it.
type Transport interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer turns events into emails. Verified payments get a signed ticket
// rendered as a QR image, attached and also kept in the QR store.
type Mailer struct {
	from      string
	eventName string
	transport Transport
	tickets   *utils.TicketSigner
	qr        *QRStore
	log       zerolog.Logger
}

// NewMailer builds a Mailer. With no SMTP credentials it only logs what it
// would have sent, which keeps local development working.
func NewMailer(cfg SMTPConfig, eventName string, tickets *utils.TicketSigner, qr *QRStore) *Mailer {
	m := &Mailer{
		from:      cfg.From,
		eventName: eventName,
		tickets:   tickets,
		qr:        qr,
		log:       logger.With("component", "mailer"),
	}
	if m.from == "" {
		m.from = cfg.Username
	}
	if cfg.Configured() {
		m.transport = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// WithTransport replaces the SMTP transport.
func (m *Mailer) WithTransport(t Transport) *Mailer {
	m.transport = t
	return m
}

var templates = template.Must(template.New("mail").Parse(`
{{define "registration_pending"}}<html><body style="font-family: Arial, sans-serif;">
<h2>Registration received - {{.Event}}</h2>
<p>Hello {{.Name}},</p>
<p>Your registration for the <strong>{{.Track}}</strong> track has been received.
{{if eq .Method "cash"}}Please visit a campus ambassador to pay the registration fee in cash.{{else}}Your payment receipt will be reviewed shortly.{{end}}</p>
<p>You will receive your entry QR code once the payment is verified.</p>
</body></html>{{end}}
{{define "payment_verified"}}<html><body style="font-family: Arial, sans-serif;">
<h2>Payment verified - {{.Event}}</h2>
<p>Hello {{.Name}},</p>
<p>Your payment has been verified. Your registration for the <strong>{{.Track}}</strong> track{{if .Team}} with team <strong>{{.Team}}</strong>{{end}} is confirmed.</p>
<p>The attached QR code is your entry ticket. Please bring it to the event.</p>
</body></html>{{end}}
{{define "payment_rejected"}}<html><body style="font-family: Arial, sans-serif;">
<h2>Payment could not be verified - {{.Event}}</h2>
<p>Hello {{.Name}},</p>
<p>We could not verify the payment receipt you uploaded.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
<p>Please contact the organizers to complete your registration.</p>
</body></html>{{end}}
`))

var subjects = map[Kind]string{
	KindRegistrationPending: "Registration received",
	KindPaymentVerified:     "Payment verified - your entry ticket",
	KindPaymentRejected:     "Payment verification failed",
}

// Send builds and delivers the email for ev.
func (m *Mailer) Send(ctx context.Context, ev Event) error {
	subject, ok := subjects[ev.Kind]
	if !ok {
		return fmt.Errorf("unknown notification kind %q", ev.Kind)
	}

	var team string
	if ev.TeamName != nil {
		team = *ev.TeamName
	}
	var body bytes.Buffer
	err := templates.ExecuteTemplate(&body, string(ev.Kind), map[string]any{
		"Event":  m.eventName,
		"Name":   ev.FullName,
		"Track":  ev.Track,
		"Team":   team,
		"Method": string(ev.Method),
		"Reason": ev.Reason,
	})
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", ev.Kind, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", ev.Email)
	msg.SetHeader("Subject", fmt.Sprintf("%s - %s", subject, m.eventName))
	msg.SetBody("text/html", body.String())

	if ev.Kind == KindPaymentVerified {
		if ev.Ticket == nil {
			if ev, err = m.Prepare(ev); err != nil {
				return err
			}
		}
		png := ev.Ticket
		msg.Attach("ticket.png", gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(png)
			return err
		}), gomail.SetHeader(map[string][]string{"Content-Type": {"image/png"}}))
	}

	if m.transport == nil {
		m.log.Warn().Str("to", ev.Email).Str("kind", string(ev.Kind)).Msg("SMTP credentials not configured - email not sent")
		return nil
	}
	if err := m.transport.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send %s email to %s: %w", ev.Kind, ev.Email, err)
	}
	return nil
}

// Prepare renders the ticket of a verified payment and keeps a copy in the
// QR store. Other events are returned unchanged.
func (m *Mailer) Prepare(ev Event) (Event, error) {
	if ev.Kind != KindPaymentVerified || ev.Ticket != nil {
		return ev, nil
	}
	payload, err := m.tickets.Issue(ev.ParticipantID)
	if err != nil {
		return ev, err
	}
	png, err := RenderQR(payload)
	if err != nil {
		return ev, err
	}
	if m.qr != nil {
		path, err := m.qr.Save(ev.ParticipantID, png)
		if err != nil {
			m.log.Warn().Err(err).Int64("participant_id", ev.ParticipantID).Msg("failed to keep a copy of the ticket QR code")
		} else {
			m.log.Info().Int64("participant_id", ev.ParticipantID).Str("path", path).Msg("ticket QR code generated")
		}
	}
	ev.Ticket = png
	return ev, nil
}

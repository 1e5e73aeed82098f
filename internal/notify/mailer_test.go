package notify

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"conference_registration/internal/model"
	"conference_registration/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureTransport struct {
	messages []*gomail.Message
	err      error
}

func (c *captureTransport) DialAndSend(m ...*gomail.Message) error {
	c.messages = append(c.messages, m...)
	return c.err
}

// flakyTransport fails its first calls before handing messages to inner.
type flakyTransport struct {
	failures int
	calls    int
	inner    Transport
}

func (f *flakyTransport) DialAndSend(m ...*gomail.Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp unavailable")
	}
	return f.inner.DialAndSend(m...)
}

type countingMailer struct {
	*Mailer
	prepared   int
	withTicket int
}

func (c *countingMailer) Prepare(ev Event) (Event, error) {
	c.prepared++
	return c.Mailer.Prepare(ev)
}

func (c *countingMailer) Send(ctx context.Context, ev Event) error {
	if ev.Ticket != nil {
		c.withTicket++
	}
	return c.Mailer.Send(ctx, ev)
}

func newTestMailer(t *testing.T) (*Mailer, *captureTransport, string) {
	dir := t.TempDir()
	store, err := NewQRStore(dir)
	require.NoError(t, err)
	transport := &captureTransport{}
	m := NewMailer(SMTPConfig{From: "noreply@devcon.test"}, "DevCon", utils.NewTicketSigner("s", "DevCon"), store).
		WithTransport(transport)
	return m, transport, dir
}

func TestMailer_VerifiedAttachesTicket(t *testing.T) {
	m, transport, dir := newTestMailer(t)

	err := m.Send(context.Background(), Event{
		Kind:          KindPaymentVerified,
		ParticipantID: 5,
		Email:         "a@x.edu",
		FullName:      "Ada",
		Track:         model.TrackProgramming,
	})
	require.NoError(t, err)
	require.Len(t, transport.messages, 1)

	msg := transport.messages[0]
	assert.Equal(t, []string{"a@x.edu"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Payment verified - your entry ticket - DevCon"}, msg.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "ticket.png")

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, ".png", filepath.Ext(files[0].Name()))
}

func TestDispatcher_RetriedTicketIsRenderedOnce(t *testing.T) {
	m, transport, dir := newTestMailer(t)
	flaky := &flakyTransport{failures: 2, inner: transport}
	m.WithTransport(flaky)

	counting := &countingMailer{Mailer: m}

	d := NewDispatcher(counting, Config{Workers: 1, QueueSize: 1, MaxAttempts: 3, Backoff: time.Millisecond})
	d.Start(context.Background())
	d.Notify(Event{Kind: KindPaymentVerified, ParticipantID: 9, Email: "a@x.edu", FullName: "Ada"})
	d.Close()

	assert.Equal(t, 1, counting.prepared)
	assert.Equal(t, 3, counting.withTicket, "every attempt reuses the prepared ticket")
	assert.Equal(t, 3, flaky.calls)
	require.Len(t, transport.messages, 1)
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1, "one QR image for all attempts")
}

func TestMailer_RejectedIncludesReason(t *testing.T) {
	m, transport, _ := newTestMailer(t)

	err := m.Send(context.Background(), Event{Kind: KindPaymentRejected, Email: "a@x.edu", FullName: "Ada", Reason: "blurry receipt"})
	require.NoError(t, err)

	var raw bytes.Buffer
	_, err = transport.messages[0].WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "blurry receipt")
}

func TestMailer_TransportErrorIsReturned(t *testing.T) {
	m, transport, _ := newTestMailer(t)
	transport.err = errors.New("connection refused")

	err := m.Send(context.Background(), Event{Kind: KindRegistrationPending, Email: "a@x.edu", Method: model.PaymentMethodCash})
	assert.ErrorContains(t, err, "connection refused")
}

func TestMailer_UnknownKind(t *testing.T) {
	m, _, _ := newTestMailer(t)
	assert.Error(t, m.Send(context.Background(), Event{Kind: "bogus"}))
}

func TestRenderQR(t *testing.T) {
	png, err := RenderQR("payload")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

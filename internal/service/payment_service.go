package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/logger"
	"conference_registration/internal/model"
	"conference_registration/internal/notify"
	"conference_registration/internal/repository"
	"conference_registration/internal/utils"
)

// clockSkew tolerates verifier devices whose clocks run slightly ahead.
const clockSkew = time.Minute

// PaymentService owns the payment ledger and its verification workflow
type PaymentService interface {
	SelectMethod(ctx context.Context, principal model.Principal, method model.PaymentMethod) (*model.Payment, error)
	UploadReceipt(ctx context.Context, principal model.Principal, file *multipart.FileHeader, details model.ReceiptDetails) (*model.Payment, error)
	UploadProof(ctx context.Context, principal model.Principal, paymentID int64, file *multipart.FileHeader, details model.ReceiptDetails) (*model.Payment, error)
	MyPayment(ctx context.Context, principal model.Principal) (*model.Payment, error)
	ReceiptFile(ctx context.Context, principal model.Principal, paymentID int64) (string, string, error)

	VerifyCash(ctx context.Context, principal model.Principal, participantID int64, req model.VerifyCashRequest) (*model.Payment, error)
	VerifyOnline(ctx context.Context, principal model.Principal, paymentID int64, req model.VerifyOnlineRequest) (*model.Payment, error)
	Flag(ctx context.Context, principal model.Principal, req model.FlagRequest) error

	ListPendingCash(ctx context.Context, principal model.Principal, limit, offset int) ([]model.PaymentDetail, error)
	ListPendingOnline(ctx context.Context, principal model.Principal, limit, offset int) ([]model.PaymentDetail, error)
	MyVerifications(ctx context.Context, principal model.Principal, limit, offset int) ([]model.PaymentDetail, error)
	ListForDesk(ctx context.Context, principal model.Principal, limit, offset int) ([]model.PaymentDetail, error)
	List(ctx context.Context, principal model.Principal, filters model.PaymentFilters) ([]model.PaymentDetail, error)
	ExportCSV(ctx context.Context, principal model.Principal, filters model.PaymentFilters) (*bytes.Buffer, error)
}

type paymentService struct {
	participants repository.ParticipantRepository
	payments     repository.PaymentRepository
	audit        repository.AuditRepository
	tx           repository.Transactor
	files        FileStore
	notifier     Notifier
	settings     Settings
	now          func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	participants repository.ParticipantRepository,
	payments repository.PaymentRepository,
	audit repository.AuditRepository,
	tx repository.Transactor,
	files FileStore,
	notifier Notifier,
	settings Settings,
) PaymentService {
	return &paymentService{
		participants: participants,
		payments:     payments,
		audit:        audit,
		tx:           tx,
		files:        files,
		notifier:     notifier,
		settings:     settings,
		now:          time.Now,
	}
}

func (s *paymentService) participantDetail(ctx context.Context, id int64) (*model.ParticipantDetail, error) {
	d, err := s.participants.FindDetailByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	if d == nil {
		return nil, apperrors.NotFound("participant %d not found", id)
	}
	return d, nil
}

func (s *paymentService) ownParticipant(ctx context.Context, principal model.Principal) (*model.Participant, error) {
	p, err := s.participants.FindByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find participant profile: %w", err)
	}
	if p == nil {
		return nil, apperrors.NotFound("participant profile not found")
	}
	return p, nil
}

// SelectMethod creates the participant's payment in the method's initial state
func (s *paymentService) SelectMethod(ctx context.Context, principal model.Principal, method model.PaymentMethod) (*model.Payment, error) {
	if err := principal.Authorize(model.CapParticipate); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, apperrors.Validation("payment method must be online or cash")
	}
	p, err := s.ownParticipant(ctx, principal)
	if err != nil {
		return nil, err
	}
	existing, err := s.payments.FindByParticipantID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing payment: %w", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("payment method already selected")
	}

	payment := &model.Payment{
		ParticipantID: p.ID,
		TeamID:        p.TeamID,
		Amount:        s.settings.RegistrationFee,
		Method:        method,
		Status:        model.InitialStatus(method),
	}
	// The unique constraint on participant_id settles concurrent selections.
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	logger.Info().Int64("payment_id", payment.ID).Int64("participant_id", p.ID).Str("method", string(method)).Msg("payment method selected")

	if d, err := s.participantDetail(ctx, p.ID); err != nil {
		logger.Error().Err(err).Int64("participant_id", p.ID).Msg("payment created but participant lookup for notification failed")
	} else {
		s.notifier.Notify(eventFor(notify.KindRegistrationPending, d, payment))
	}
	return payment, nil
}

// UploadReceipt attaches proof to the caller's own online payment
func (s *paymentService) UploadReceipt(ctx context.Context, principal model.Principal, file *multipart.FileHeader, details model.ReceiptDetails) (*model.Payment, error) {
	if err := principal.Authorize(model.CapParticipate); err != nil {
		return nil, err
	}
	p, err := s.ownParticipant(ctx, principal)
	if err != nil {
		return nil, err
	}
	payment, err := s.payments.FindByParticipantID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if payment == nil {
		return nil, apperrors.NotFound("no payment record found, select a payment method first")
	}
	return s.attachReceipt(ctx, payment, file, details)
}

// UploadProof lets the registration desk attach proof for a participant
func (s *paymentService) UploadProof(ctx context.Context, principal model.Principal, paymentID int64, file *multipart.FileHeader, details model.ReceiptDetails) (*model.Payment, error) {
	if err := principal.Authorize(model.CapRegisterManual); err != nil {
		return nil, err
	}
	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.attachReceipt(ctx, payment, file, details)
}

func (s *paymentService) findPayment(ctx context.Context, id int64) (*model.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if payment == nil {
		return nil, apperrors.NotFound("payment %d not found", id)
	}
	return payment, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *paymentService) attachReceipt(ctx context.Context, payment *model.Payment, file *multipart.FileHeader, details model.ReceiptDetails) (*model.Payment, error) {
	if payment.Status.IsTerminal() {
		return nil, model.ErrAlreadyFinalized
	}
	if payment.Method != model.PaymentMethodOnline {
		return nil, apperrors.Validation("receipts can only be uploaded for online payments")
	}
	if file == nil {
		return nil, apperrors.Validation("receipt file is required")
	}
	if file.Size > s.settings.MaxUploadSize {
		return nil, apperrors.Validation("file too large, maximum size is %.1fMB", float64(s.settings.MaxUploadSize)/(1024*1024))
	}
	if !utils.ValidReceiptExt(file.Filename) {
		return nil, apperrors.Validation("invalid file format, only .jpg, .jpeg, .png and .pdf are allowed")
	}

	ref, err := s.files.Save(file, filepath.ToSlash(filepath.Join("receipts", strconv.FormatInt(payment.ID, 10))))
	if err != nil {
		return nil, err
	}

	receipt := model.Receipt{
		Path:          ref,
		TransactionID: optional(details.TransactionID),
		BankName:      optional(details.BankName),
		UploadedAt:    s.now(),
	}
	previous, err := s.payments.AttachReceipt(ctx, payment.ID, receipt)
	if err != nil {
		if delErr := s.files.Delete(ref); delErr != nil {
			logger.Warn().Err(delErr).Str("ref", ref).Msg("failed to clean up receipt after failed update")
		}
		if errors.Is(err, repository.ErrStaleState) {
			return nil, model.ErrAlreadyFinalized
		}
		return nil, err
	}

	// previous comes from under the row lock, not from the payment loaded above.
	if previous != nil && *previous != "" && *previous != ref {
		if err := s.files.Delete(*previous); err != nil {
			logger.Warn().Err(err).Str("ref", *previous).Msg("failed to delete replaced receipt")
		}
	}
	payment.ReceiptPath = &receipt.Path
	payment.TransactionID = receipt.TransactionID
	payment.BankName = receipt.BankName
	payment.UploadedAt = &receipt.UploadedAt
	logger.Info().Int64("payment_id", payment.ID).Str("ref", ref).Msg("receipt uploaded")
	return payment, nil
}

// MyPayment returns the caller's payment
func (s *paymentService) MyPayment(ctx context.Context, principal model.Principal) (*model.Payment, error) {
	p, err := s.ownParticipant(ctx, principal)
	if err != nil {
		return nil, err
	}
	payment, err := s.payments.FindByParticipantID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if payment == nil {
		return nil, apperrors.NotFound("no payment record found")
	}
	return payment, nil
}

// ReceiptFile resolves the stored receipt of a payment for download. Owners
// and online verifiers may read it.
func (s *paymentService) ReceiptFile(ctx context.Context, principal model.Principal, paymentID int64) (string, string, error) {
	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return "", "", err
	}
	if !principal.Roles.Can(model.CapVerifyOnline, model.CapRegisterManual) {
		p, err := s.participants.FindByUserID(ctx, principal.UserID)
		if err != nil {
			return "", "", fmt.Errorf("failed to find participant profile: %w", err)
		}
		if p == nil || p.ID != payment.ParticipantID {
			return "", "", apperrors.Permission("you do not have permission to view this receipt")
		}
	}
	if payment.ReceiptPath == nil || *payment.ReceiptPath == "" {
		return "", "", apperrors.NotFound("receipt not found for this payment")
	}
	path, err := s.files.FullPath(*payment.ReceiptPath)
	if err != nil {
		return "", "", err
	}
	return path, filepath.Base(path), nil
}

// VerifyCash records a cash collection and finalizes the payment. Only the
// first of several concurrent calls succeeds; the rest see "already finalized"
// and send nothing.
func (s *paymentService) VerifyCash(ctx context.Context, principal model.Principal, participantID int64, req model.VerifyCashRequest) (*model.Payment, error) {
	if err := principal.Authorize(model.CapCollectCash); err != nil {
		return nil, err
	}
	if req.AmountCollected <= 0 {
		return nil, apperrors.Validation("amount collected must be positive")
	}
	now := s.now()
	collectedAt := now
	if req.CollectedAt != nil {
		if req.CollectedAt.After(now.Add(clockSkew)) {
			return nil, apperrors.Validation("collection time cannot be in the future")
		}
		collectedAt = *req.CollectedAt
	}

	var payment *model.Payment
	var detail *model.ParticipantDetail
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.payments.FindByParticipantID(ctx, participantID)
		if err != nil {
			return fmt.Errorf("failed to find payment: %w", err)
		}
		if payment == nil {
			return apperrors.NotFound("no payment record found for participant %d", participantID)
		}
		if payment.Status.IsTerminal() {
			return model.ErrAlreadyFinalized
		}
		if payment.Method != model.PaymentMethodCash {
			return apperrors.Validation("payment %d is not a cash payment", payment.ID)
		}
		required, err := model.CheckTransition(payment.Method, payment.Status, model.PaymentStatusVerified)
		if err != nil {
			return err
		}
		if err := principal.Authorize(required); err != nil {
			return err
		}

		amount := req.AmountCollected
		t := model.Transition{
			PaymentID:       payment.ID,
			From:            payment.Status,
			To:              model.PaymentStatusVerified,
			VerifiedBy:      principal.UserID,
			VerifiedAt:      now,
			AmountCollected: &amount,
			CollectedAt:     &collectedAt,
			Notes:           req.Notes,
		}
		if err := s.applyTransition(ctx, payment, t); err != nil {
			return err
		}
		if err := writeAudit(ctx, s.audit, principal.UserID, model.AuditCashCollected, "payment", payment.ID, map[string]any{
			"participant_id":   participantID,
			"amount_collected": amount,
			"collected_at":     collectedAt,
		}); err != nil {
			return err
		}

		detail, err = s.participantDetail(ctx, participantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if payment.AmountCollected != nil && *payment.AmountCollected != payment.Amount {
		logger.Warn().Int64("payment_id", payment.ID).Int64("expected", payment.Amount).Int64("collected", *payment.AmountCollected).Msg("collected amount differs from registration fee")
	}
	logger.Info().Int64("payment_id", payment.ID).Int64("verified_by", principal.UserID).Msg("cash payment verified")
	s.notifier.Notify(eventFor(notify.KindPaymentVerified, detail, payment))
	return payment, nil
}

// VerifyOnline approves or rejects an online payment after receipt review
func (s *paymentService) VerifyOnline(ctx context.Context, principal model.Principal, paymentID int64, req model.VerifyOnlineRequest) (*model.Payment, error) {
	if err := principal.Authorize(model.CapVerifyOnline); err != nil {
		return nil, err
	}
	var to model.PaymentStatus
	switch req.Decision {
	case model.DecisionApprove:
		to = model.PaymentStatusVerified
	case model.DecisionReject:
		to = model.PaymentStatusRejected
	default:
		return nil, apperrors.Validation("decision must be approve or reject")
	}

	var payment *model.Payment
	var detail *model.ParticipantDetail
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.findPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		required, err := model.CheckTransition(payment.Method, payment.Status, to)
		if err != nil {
			return err
		}
		if err := principal.Authorize(required); err != nil {
			return err
		}
		if payment.ReceiptPath == nil {
			return apperrors.Validation("payment %d has no receipt to review", payment.ID)
		}

		t := model.Transition{
			PaymentID:  payment.ID,
			From:       payment.Status,
			To:         to,
			VerifiedBy: principal.UserID,
			VerifiedAt: s.now(),
			Notes:      req.Remarks,
		}
		if err := s.applyTransition(ctx, payment, t); err != nil {
			return err
		}
		action := model.AuditPaymentVerified
		if to == model.PaymentStatusRejected {
			action = model.AuditPaymentRejected
		}
		details := map[string]any{"participant_id": payment.ParticipantID}
		if req.Remarks != nil {
			details["remarks"] = *req.Remarks
		}
		if err := writeAudit(ctx, s.audit, principal.UserID, action, "payment", payment.ID, details); err != nil {
			return err
		}

		detail, err = s.participantDetail(ctx, payment.ParticipantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Int64("payment_id", payment.ID).Str("status", string(payment.Status)).Int64("verified_by", principal.UserID).Msg("online payment reviewed")
	if to == model.PaymentStatusVerified {
		s.notifier.Notify(eventFor(notify.KindPaymentVerified, detail, payment))
	} else {
		ev := eventFor(notify.KindPaymentRejected, detail, payment)
		if req.Remarks != nil {
			ev.Reason = *req.Remarks
		}
		s.notifier.Notify(ev)
	}
	return payment, nil
}

// applyTransition writes t and mirrors it on payment. Losing the race to
// another verifier surfaces as "already finalized".
func (s *paymentService) applyTransition(ctx context.Context, payment *model.Payment, t model.Transition) error {
	if err := s.payments.Transition(ctx, t); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return model.ErrAlreadyFinalized
		}
		return err
	}
	payment.Status = t.To
	payment.VerifiedBy = &t.VerifiedBy
	verifiedAt := t.VerifiedAt
	payment.VerifiedAt = &verifiedAt
	if t.AmountCollected != nil {
		payment.AmountCollected = t.AmountCollected
	}
	if t.CollectedAt != nil {
		payment.CollectedAt = t.CollectedAt
	}
	if t.Notes != nil {
		payment.Notes = t.Notes
	}
	return nil
}

// Flag marks a payment for admin attention without changing its status
func (s *paymentService) Flag(ctx context.Context, principal model.Principal, req model.FlagRequest) error {
	if err := principal.Authorize(model.CapRegisterManual); err != nil {
		return err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return apperrors.Validation("reason is required")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		payment, err := s.findPayment(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		note := fmt.Sprintf("[flagged by user %d at %s] %s", principal.UserID, s.now().Format(time.RFC3339), reason)
		if err := s.payments.AppendNote(ctx, payment.ID, note); err != nil {
			return err
		}
		return writeAudit(ctx, s.audit, principal.UserID, model.AuditPaymentFlagged, "payment", payment.ID, map[string]any{
			"reason": reason,
		})
	})
}

func (s *paymentService) listByStatus(ctx context.Context, status model.PaymentStatus, limit, offset int) ([]model.PaymentDetail, error) {
	limit, offset = Page(limit, offset)
	payments, err := s.payments.List(ctx, model.PaymentFilters{Status: &status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// ListPendingCash is the ambassador's work queue
func (s *paymentService) ListPendingCash(ctx context.Context, principal model.Principal, limit, offset int) ([]model.PaymentDetail, error) {
	if err := principal.Authorize(model.CapCollectCash); err != nil {
		return nil, err
	}
	return s.listByStatus(ctx, model.PaymentStatusPendingCash, limit, offset)
}

// ListPendingOnline is the admin's receipt review queue
func (s *paymentService) ListPendingOnline(ctx context.Context, principal model.Principal, limit, offset int) ([]model.PaymentDetail, error) {
	if err := principal.Authorize(model.CapVerifyOnline); err != nil {
		return nil, err
	}
	return s.listByStatus(ctx, model.PaymentStatusPending, limit, offset)
}

// MyVerifications lists payments the caller finalized
func (s *paymentService) MyVerifications(ctx context.Context, principal model.Principal, limit, offset int) ([]model.PaymentDetail, error) {
	if err := principal.Authorize(model.CapCollectCash, model.CapVerifyOnline); err != nil {
		return nil, err
	}
	limit, offset = Page(limit, offset)
	verifiedBy := principal.UserID
	payments, err := s.payments.List(ctx, model.PaymentFilters{VerifiedBy: &verifiedBy, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return payments, nil
}

// ListForDesk lets the registration desk review payments and their proof
func (s *paymentService) ListForDesk(ctx context.Context, principal model.Principal, limit, offset int) ([]model.PaymentDetail, error) {
	if err := principal.Authorize(model.CapRegisterManual); err != nil {
		return nil, err
	}
	limit, offset = Page(limit, offset)
	payments, err := s.payments.List(ctx, model.PaymentFilters{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// List returns payments for reporting
func (s *paymentService) List(ctx context.Context, principal model.Principal, filters model.PaymentFilters) ([]model.PaymentDetail, error) {
	if err := principal.Authorize(model.CapViewReports); err != nil {
		return nil, err
	}
	filters.Limit, filters.Offset = Page(filters.Limit, filters.Offset)
	payments, err := s.payments.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatInt(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ExportCSV writes every payment matching filters as CSV
func (s *paymentService) ExportCSV(ctx context.Context, principal model.Principal, filters model.PaymentFilters) (*bytes.Buffer, error) {
	if err := principal.Authorize(model.CapViewReports); err != nil {
		return nil, err
	}
	filters.Limit, filters.Offset = 0, 0
	payments, err := s.payments.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments for CSV export: %w", err)
	}

	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)

	header := []string{"ID", "ParticipantID", "FullName", "Email", "StudentID", "Track", "Amount", "Method", "Status",
		"TransactionID", "BankName", "AmountCollected", "CollectedAt", "VerifiedBy", "VerifiedAt", "CreatedAt"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range payments {
		row := []string{
			strconv.FormatInt(p.ID, 10),
			strconv.FormatInt(p.ParticipantID, 10),
			p.FullName,
			p.Email,
			p.StudentID,
			string(p.Track),
			strconv.FormatInt(p.Amount, 10),
			string(p.Method),
			string(p.Status),
			deref(p.TransactionID),
			deref(p.BankName),
			formatInt(p.AmountCollected),
			formatTime(p.CollectedAt),
			formatInt(p.VerifiedBy),
			formatTime(p.VerifiedAt),
			p.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("error flushing CSV writer: %w", err)
	}
	return buffer, nil
}

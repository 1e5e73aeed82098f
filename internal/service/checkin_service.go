package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/logger"
	"conference_registration/internal/model"
	"conference_registration/internal/repository"
	"conference_registration/internal/utils"
)

// CheckInService validates tickets at the venue entrance
type CheckInService interface {
	VerifyTicket(ctx context.Context, principal model.Principal, req model.QRRequest) (*model.TicketInfo, error)
	CheckIn(ctx context.Context, principal model.Principal, req model.QRRequest) (*model.CheckIn, error)
}

type checkInService struct {
	participants repository.ParticipantRepository
	checkins     repository.CheckInRepository
	audit        repository.AuditRepository
	tx           repository.Transactor
	tickets      *utils.TicketSigner
}

// NewCheckInService creates a new CheckInService
func NewCheckInService(
	participants repository.ParticipantRepository,
	checkins repository.CheckInRepository,
	audit repository.AuditRepository,
	tx repository.Transactor,
	tickets *utils.TicketSigner,
) CheckInService {
	return &checkInService{
		participants: participants,
		checkins:     checkins,
		audit:        audit,
		tx:           tx,
		tickets:      tickets,
	}
}

func eventType(req model.QRRequest) string {
	if t := strings.TrimSpace(req.EventType); t != "" {
		return t
	}
	return model.DefaultEventType
}

// resolve verifies the ticket signature and loads its participant.
func (s *checkInService) resolve(ctx context.Context, payload string) (*model.ParticipantDetail, error) {
	pid, err := s.tickets.Verify(strings.TrimSpace(payload))
	if err != nil {
		if errors.Is(err, utils.ErrWrongEvent) {
			return nil, apperrors.Validation("ticket was issued for a different event")
		}
		return nil, apperrors.Validation("invalid ticket")
	}
	d, err := s.participants.FindDetailByID(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	if d == nil {
		return nil, apperrors.NotFound("participant %d not found", pid)
	}
	return d, nil
}

// VerifyTicket reports who a ticket belongs to and whether they may enter
func (s *checkInService) VerifyTicket(ctx context.Context, principal model.Principal, req model.QRRequest) (*model.TicketInfo, error) {
	if err := principal.Authorize(model.CapCheckIn); err != nil {
		return nil, err
	}
	d, err := s.resolve(ctx, req.QRData)
	if err != nil {
		return nil, err
	}
	checkedIn, err := s.checkins.Exists(ctx, d.ID, eventType(req))
	if err != nil {
		return nil, fmt.Errorf("failed to check existing check-in: %w", err)
	}
	info := &model.TicketInfo{
		ParticipantID: d.ID,
		FullName:      d.FullName,
		Email:         d.Email,
		Track:         d.Track,
		CheckedIn:     checkedIn,
	}
	if d.PaymentStatus != nil {
		info.PaymentStatus = *d.PaymentStatus
	}
	return info, nil
}

// CheckIn records entry for a participant with a verified payment. A second
// scan for the same event is a conflict.
func (s *checkInService) CheckIn(ctx context.Context, principal model.Principal, req model.QRRequest) (*model.CheckIn, error) {
	if err := principal.Authorize(model.CapCheckIn); err != nil {
		return nil, err
	}
	d, err := s.resolve(ctx, req.QRData)
	if err != nil {
		return nil, err
	}
	if d.PaymentStatus == nil || *d.PaymentStatus != model.PaymentStatusVerified {
		return nil, apperrors.Conflict("payment for participant %d is not verified", d.ID)
	}

	c := &model.CheckIn{
		ParticipantID: d.ID,
		EventType:     eventType(req),
		CheckedBy:     principal.UserID,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkins.Create(ctx, c); err != nil {
			return err
		}
		return writeAudit(ctx, s.audit, principal.UserID, model.AuditCheckIn, "participant", d.ID, map[string]any{
			"event_type": c.EventType,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Int64("participant_id", d.ID).Str("event_type", c.EventType).Int64("checked_by", principal.UserID).Msg("participant checked in")
	return c, nil
}

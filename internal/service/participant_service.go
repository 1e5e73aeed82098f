package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/model"
	"conference_registration/internal/repository"
)

// ParticipantService serves staff lookups and admin reports on participants
type ParticipantService interface {
	Search(ctx context.Context, principal model.Principal, req model.SearchRequest) ([]model.ParticipantDetail, error)
	Get(ctx context.Context, principal model.Principal, id int64) (*model.ParticipantDetail, error)
	List(ctx context.Context, principal model.Principal, filters model.ParticipantFilters) ([]model.ParticipantDetail, error)
	ListRegisteredBy(ctx context.Context, principal model.Principal, limit, offset int) ([]model.ParticipantDetail, error)
	ExportCSV(ctx context.Context, principal model.Principal, filters model.ParticipantFilters) (*bytes.Buffer, error)
}

type participantService struct {
	participants repository.ParticipantRepository
}

// NewParticipantService creates a new ParticipantService
func NewParticipantService(participants repository.ParticipantRepository) ParticipantService {
	return &participantService{participants: participants}
}

// Search finds participants by email, student id, CNIC or phone
func (s *participantService) Search(ctx context.Context, principal model.Principal, req model.SearchRequest) ([]model.ParticipantDetail, error) {
	if err := principal.Authorize(model.CapLookupParticipants); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Email+req.StudentID+req.CNIC+req.Phone) == "" {
		return nil, apperrors.Validation("provide an email, student id, CNIC or phone number")
	}
	results, err := s.participants.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search participants: %w", err)
	}
	return results, nil
}

func (s *participantService) Get(ctx context.Context, principal model.Principal, id int64) (*model.ParticipantDetail, error) {
	if err := principal.Authorize(model.CapLookupParticipants); err != nil {
		return nil, err
	}
	d, err := s.participants.FindDetailByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	if d == nil {
		return nil, apperrors.NotFound("participant %d not found", id)
	}
	return d, nil
}

func (s *participantService) List(ctx context.Context, principal model.Principal, filters model.ParticipantFilters) ([]model.ParticipantDetail, error) {
	if err := principal.Authorize(model.CapViewReports); err != nil {
		return nil, err
	}
	if filters.Track != nil && !filters.Track.Valid() {
		return nil, apperrors.Validation("unknown track %q", *filters.Track)
	}
	filters.Limit, filters.Offset = Page(filters.Limit, filters.Offset)
	results, err := s.participants.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return results, nil
}

// ListRegisteredBy returns the desk member's own manual registrations
func (s *participantService) ListRegisteredBy(ctx context.Context, principal model.Principal, limit, offset int) ([]model.ParticipantDetail, error) {
	if err := principal.Authorize(model.CapRegisterManual); err != nil {
		return nil, err
	}
	limit, offset = Page(limit, offset)
	registeredBy := principal.UserID
	results, err := s.participants.List(ctx, model.ParticipantFilters{RegisteredBy: &registeredBy, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return results, nil
}

// ExportCSV writes every participant matching filters as CSV
func (s *participantService) ExportCSV(ctx context.Context, principal model.Principal, filters model.ParticipantFilters) (*bytes.Buffer, error) {
	if err := principal.Authorize(model.CapViewReports); err != nil {
		return nil, err
	}
	filters.Limit, filters.Offset = 0, 0
	participants, err := s.participants.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants for CSV export: %w", err)
	}

	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)

	header := []string{"ID", "FullName", "Email", "University", "Phone", "StudentID", "CNIC", "Track", "Team", "TeamLead",
		"TShirtSize", "PaymentMethod", "PaymentStatus", "CheckedIn", "RegisteredAt"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range participants {
		var method, status string
		if p.PaymentMethod != nil {
			method = string(*p.PaymentMethod)
		}
		if p.PaymentStatus != nil {
			status = string(*p.PaymentStatus)
		}
		row := []string{
			strconv.FormatInt(p.ID, 10),
			p.FullName,
			p.Email,
			deref(p.University),
			deref(p.PhoneNumber),
			p.StudentID,
			p.CNIC,
			string(p.Track),
			deref(p.TeamName),
			strconv.FormatBool(p.IsTeamLead),
			string(p.TShirtSize),
			method,
			status,
			strconv.FormatBool(p.CheckedIn),
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

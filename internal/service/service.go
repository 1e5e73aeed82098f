package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"

	"conference_registration/internal/model"
	"conference_registration/internal/notify"
	"conference_registration/internal/repository"
)

// Settings are the event rules the services enforce. They are built from
// config.AppConfig in main.
type Settings struct {
	EventName         string
	RegistrationFee   int64
	TeamMinSize       int
	TeamMaxSize       int
	MaxUploadSize     int64
	InitialAdminEmail string
	Universities      []string
}

// Notifier hands an event to asynchronous delivery. It must not block and is
// only called after the change it describes has committed.
type Notifier interface {
	Notify(ev notify.Event)
}

// FileStore persists uploads and returns references to store in the database.
type FileStore interface {
	Save(fileHeader *multipart.FileHeader, subPath string) (string, error)
	FullPath(ref string) (string, error)
	Delete(ref string) error
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Page clamps user supplied pagination values.
func Page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, userID int64, action, entity string, recordID int64, details map[string]any) error {
	entry := &model.AuditLog{
		UserID:   userID,
		Action:   action,
		Entity:   entity,
		RecordID: recordID,
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		s := string(raw)
		entry.Details = &s
	}
	if err := repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func eventFor(kind notify.Kind, d *model.ParticipantDetail, p *model.Payment) notify.Event {
	ev := notify.Event{
		Kind:          kind,
		ParticipantID: d.ID,
		Email:         d.Email,
		FullName:      d.FullName,
		Track:         d.Track,
		TeamName:      d.TeamName,
	}
	if p != nil {
		ev.PaymentID = p.ID
		ev.Method = p.Method
	}
	return ev
}

package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"conference_registration/internal/model"
	"conference_registration/internal/utils"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store    *memStore
	notifier *fakeNotifier
	files    *fakeFiles
	tickets  *utils.TicketSigner

	registration RegistrationService
	teams        TeamService
	payments     PaymentService
	checkins     CheckInService
	participants ParticipantService
	admin        AdminService
}

var testSettings = Settings{
	EventName:       "DevCon",
	RegistrationFee: 1000,
	TeamMinSize:     2,
	TeamMaxSize:     5,
	MaxUploadSize:   1024 * 1024,
	Universities:    []string{"UET Lahore", "Other"},
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	tx := &fakeTx{store: store}
	env := &testEnv{
		store:    store,
		notifier: &fakeNotifier{},
		files:    &fakeFiles{},
		tickets:  utils.NewTicketSigner("ticket-secret", testSettings.EventName),
	}
	users, participants, teams := userStore{store}, participantStore{store}, teamStore{store}
	payments, audit, stats := paymentStore{store}, auditStore{store}, statsStore{store}

	env.registration = NewRegistrationService(users, participants, teams, payments, stats, tx, env.notifier, testSettings)
	env.teams = NewTeamService(teams, participants, tx, testSettings)
	env.payments = NewPaymentService(participants, payments, audit, tx, env.files, env.notifier, testSettings)
	env.checkins = NewCheckInService(participants, checkInStore{store}, audit, tx, env.tickets)
	env.participants = NewParticipantService(participants)
	env.admin = NewAdminService(users, stats, audit, tx)
	return env
}

var seq atomic.Int64

func registerRequest(email string, track model.Track) model.RegisterRequest {
	n := seq.Add(1)
	return model.RegisterRequest{
		Email:            email,
		Password:         "correct-horse",
		FullName:         "Test Participant",
		Track:            track,
		StudentID:        fmt.Sprintf("STU%04d", n),
		CNIC:             fmt.Sprintf("35202-%07d-1", n),
		TShirtSize:       model.SizeM,
		EmergencyContact: "03001234567",
	}
}

// register signs a participant up and returns their principal.
func (e *testEnv) register(t *testing.T, req model.RegisterRequest) (model.Principal, *model.RegisterResponse) {
	t.Helper()
	resp, err := e.registration.Register(context.Background(), req)
	require.NoError(t, err)
	return model.Principal{UserID: resp.User.ID, Roles: resp.User.Roles}, resp
}

func staff(userID int64, roles ...model.Role) model.Principal {
	return model.Principal{UserID: userID, Roles: model.NewRoleSet(roles...)}
}

package service

import (
	"context"
	"sync"
	"testing"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// teamWithMembers creates a team led by one participant plus extra members.
func teamWithMembers(t *testing.T, env *testEnv, track model.Track, extra int) (*model.Team, []model.Principal) {
	t.Helper()
	ctx := context.Background()
	lead, _ := env.register(t, registerRequest("lead"+t.Name()+"@x.edu", track))
	team, err := env.teams.Create(ctx, lead, "Team "+string(track))
	require.NoError(t, err)

	members := []model.Principal{lead}
	for i := 0; i < extra; i++ {
		p, _ := env.register(t, registerRequest("m"+string(rune('a'+i))+t.Name()+"@x.edu", track))
		_, err := env.teams.Join(ctx, p, team.Code)
		require.NoError(t, err)
		members = append(members, p)
	}
	return team, members
}

func TestTeamJoin_CapacityAndTrack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	team, _ := teamWithMembers(t, env, model.TrackProgramming, testSettings.TeamMaxSize-1)
	stored, err := teamStore{env.store}.FindByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, testSettings.TeamMaxSize, stored.MemberCount)

	late, _ := env.register(t, registerRequest("late@x.edu", model.TrackProgramming))
	_, err = env.teams.Join(ctx, late, team.Code)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	wrongTrack, _ := env.register(t, registerRequest("gamer@x.edu", model.TrackGaming))
	_, err = env.teams.Join(ctx, wrongTrack, team.Code)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.teams.Join(ctx, late, "zzzzzzzz")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTeamJoin_LastSlotRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	team, _ := teamWithMembers(t, env, model.TrackIdeathon, testSettings.TeamMaxSize-2)
	first, _ := env.register(t, registerRequest("racer1@x.edu", model.TrackIdeathon))
	second, _ := env.register(t, registerRequest("racer2@x.edu", model.TrackIdeathon))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []model.Principal{first, second} {
		wg.Add(1)
		go func(i int, p model.Principal) {
			defer wg.Done()
			_, errs[i] = env.teams.Join(ctx, p, team.Code)
		}(i, p)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, apperrors.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	stored, err := teamStore{env.store}.FindByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, testSettings.TeamMaxSize, stored.MemberCount)
}

func TestTeamCreate_AlreadyInTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, members := teamWithMembers(t, env, model.TrackProgramming, 1)
	_, err := env.teams.Create(ctx, members[1], "Second Team")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	loner, _ := env.register(t, registerRequest("loner@x.edu", model.TrackProgramming))
	_, err = env.teams.Create(ctx, loner, "x")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTeamPaymentStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ambassador := staff(900, model.RoleAmbassador)

	team, members := teamWithMembers(t, env, model.TrackProgramming, 1)
	outsider, _ := env.register(t, registerRequest("outsider@x.edu", model.TrackProgramming))

	_, err := env.teams.PaymentStatus(ctx, outsider, team.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermission)

	status, err := env.teams.PaymentStatus(ctx, members[0], team.ID)
	require.NoError(t, err)
	assert.Len(t, status.Members, 2)
	assert.False(t, status.Complete)

	for _, m := range members {
		_, err := env.payments.SelectMethod(ctx, m, model.PaymentMethodCash)
		require.NoError(t, err)
		p, err := participantStore{env.store}.FindByUserID(ctx, m.UserID)
		require.NoError(t, err)
		_, err = env.payments.VerifyCash(ctx, ambassador, p.ID, model.VerifyCashRequest{AmountCollected: 1000})
		require.NoError(t, err)
	}

	status, err = env.teams.PaymentStatus(ctx, staff(1, model.RoleAdmin), team.ID)
	require.NoError(t, err)
	assert.True(t, status.Complete)

	_, err = env.teams.PaymentStatus(ctx, members[0], 999999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

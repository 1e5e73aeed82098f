package service

import (
	"context"
	"mime/multipart"
	"sort"
	"strings"
	"sync"
	"time"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/model"
	"conference_registration/internal/notify"
	"conference_registration/internal/repository"
)

// memStore is an in-memory stand-in for the database. Every table is held by
// value so a snapshot is a map copy.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	users        map[int64]model.User
	participants map[int64]model.Participant
	teams        map[int64]model.Team
	payments     map[int64]model.Payment
	checkins     []model.CheckIn
	audit        []model.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[int64]model.User{},
		participants: map[int64]model.Participant{},
		teams:        map[int64]model.Team{},
		payments:     map[int64]model.Payment{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

type snapshot struct {
	nextID       int64
	users        map[int64]model.User
	participants map[int64]model.Participant
	teams        map[int64]model.Team
	payments     map[int64]model.Payment
	checkins     []model.CheckIn
	audit        []model.AuditLog
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		nextID:       s.nextID,
		users:        copyMap(s.users),
		participants: copyMap(s.participants),
		teams:        copyMap(s.teams),
		payments:     copyMap(s.payments),
		checkins:     append([]model.CheckIn(nil), s.checkins...),
		audit:        append([]model.AuditLog(nil), s.audit...),
	}
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.users = snap.users
	s.participants = snap.participants
	s.teams = snap.teams
	s.payments = snap.payments
	s.checkins = snap.checkins
	s.audit = snap.audit
}

// detail builds the joined view of a participant. Callers hold s.mu.
func (s *memStore) detail(p model.Participant) model.ParticipantDetail {
	u := s.users[p.UserID]
	d := model.ParticipantDetail{
		Participant: p,
		Email:       u.Email,
		FullName:    u.FullName,
		University:  u.University,
		PhoneNumber: u.PhoneNumber,
	}
	if p.TeamID != nil {
		name := s.teams[*p.TeamID].Name
		d.TeamName = &name
	}
	for _, pay := range s.payments {
		if pay.ParticipantID == p.ID {
			status, method := pay.Status, pay.Method
			d.PaymentStatus = &status
			d.PaymentMethod = &method
		}
	}
	for _, c := range s.checkins {
		if c.ParticipantID == p.ID {
			d.CheckedIn = true
		}
	}
	return d
}

func (s *memStore) memberCount(teamID int64) int {
	n := 0
	for _, p := range s.participants {
		if p.TeamID != nil && *p.TeamID == teamID {
			n++
		}
	}
	return n
}

// fakeTx serializes transactions and rolls the store back when fn fails.
type fakeTx struct {
	store *memStore
	mu    sync.Mutex
}

type inTxKey struct{}

func (t *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type userStore struct{ *memStore }

func (s userStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperrors.Conflict("email already registered")
		}
	}
	u.ID = s.id()
	u.CreatedAt = time.Now()
	s.users[u.ID] = *u
	return nil
}

func (s userStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s userStore) FindByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s userStore) List(_ context.Context, limit, offset int) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return window(out, limit, offset), nil
}

func (s userStore) UpdateRoles(_ context.Context, id int64, roles model.RoleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrStaleState
	}
	u.Roles = roles
	s.users[id] = u
	return nil
}

func (s userStore) HasRole(_ context.Context, role model.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Roles.Has(role) {
			return true, nil
		}
	}
	return false, nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type participantStore struct{ *memStore }

func (s participantStore) Create(_ context.Context, p *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.participants {
		if existing.StudentID == p.StudentID {
			return apperrors.Conflict("student id already registered")
		}
		if existing.CNIC == p.CNIC {
			return apperrors.Conflict("CNIC already registered")
		}
	}
	p.ID = s.id()
	p.CreatedAt = time.Now()
	s.participants[p.ID] = *p
	return nil
}

func (s participantStore) FindByID(_ context.Context, id int64) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s participantStore) FindByUserID(_ context.Context, userID int64) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, nil
}

func (s participantStore) FindDetailByID(_ context.Context, id int64) (*model.ParticipantDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, nil
	}
	d := s.detail(p)
	return &d, nil
}

func (s participantStore) FindDetailByEmail(_ context.Context, email string) (*model.ParticipantDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if s.users[p.UserID].Email == strings.ToLower(strings.TrimSpace(email)) {
			d := s.detail(p)
			return &d, nil
		}
	}
	return nil, nil
}

func (s participantStore) Search(_ context.Context, req model.SearchRequest) ([]model.ParticipantDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ParticipantDetail
	for _, p := range s.participants {
		d := s.detail(p)
		if (req.Email != "" && d.Email == strings.ToLower(req.Email)) ||
			(req.StudentID != "" && d.StudentID == req.StudentID) ||
			(req.CNIC != "" && d.CNIC == req.CNIC) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s participantStore) List(_ context.Context, f model.ParticipantFilters) ([]model.ParticipantDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ParticipantDetail
	for _, p := range s.participants {
		d := s.detail(p)
		if f.Track != nil && d.Track != *f.Track {
			continue
		}
		if f.RegisteredBy != nil && (d.RegisteredBy == nil || *d.RegisteredBy != *f.RegisteredBy) {
			continue
		}
		if f.PaymentStatus != nil && (d.PaymentStatus == nil || *d.PaymentStatus != *f.PaymentStatus) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, f.Limit, f.Offset), nil
}

func (s participantStore) SetTeam(_ context.Context, participantID, teamID int64, isLead bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok || p.TeamID != nil {
		return repository.ErrStaleState
	}
	p.TeamID = &teamID
	p.IsTeamLead = isLead
	s.participants[participantID] = p
	return nil
}

type teamStore struct{ *memStore }

func (s teamStore) Create(_ context.Context, t *model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.teams {
		if existing.Code == t.Code {
			return repository.ErrTeamCodeTaken
		}
		if existing.Name == t.Name {
			return apperrors.Conflict("team name already taken")
		}
	}
	t.ID = s.id()
	t.CreatedAt = time.Now()
	s.teams[t.ID] = *t
	return nil
}

func (s teamStore) FindByID(_ context.Context, id int64) (*model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, nil
	}
	t.MemberCount = s.memberCount(t.ID)
	return &t, nil
}

func (s teamStore) FindByCode(_ context.Context, code string) (*model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.Code == code {
			t.MemberCount = s.memberCount(t.ID)
			return &t, nil
		}
	}
	return nil, nil
}

// LockByCode relies on fakeTx serializing whole transactions.
func (s teamStore) LockByCode(ctx context.Context, code string) (*model.Team, error) {
	return s.FindByCode(ctx, code)
}

func (s teamStore) MemberStatuses(_ context.Context, teamID int64) ([]model.TeamMemberStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TeamMemberStatus
	for _, p := range s.participants {
		if p.TeamID == nil || *p.TeamID != teamID {
			continue
		}
		d := s.detail(p)
		out = append(out, model.TeamMemberStatus{
			ParticipantID: p.ID,
			FullName:      d.FullName,
			IsTeamLead:    p.IsTeamLead,
			PaymentStatus: d.PaymentStatus,
		})
	}
	return out, nil
}

type paymentStore struct{ *memStore }

func (s paymentStore) Create(_ context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.ParticipantID == p.ParticipantID {
			return apperrors.Conflict("payment method already selected")
		}
	}
	p.ID = s.id()
	p.CreatedAt = time.Now()
	s.payments[p.ID] = *p
	return nil
}

func (s paymentStore) FindByID(_ context.Context, id int64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s paymentStore) FindByParticipantID(_ context.Context, participantID int64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ParticipantID == participantID {
			return &p, nil
		}
	}
	return nil, nil
}

func (s paymentStore) AttachReceipt(_ context.Context, id int64, r model.Receipt) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.Method != model.PaymentMethodOnline || p.Status != model.PaymentStatusPending {
		return nil, repository.ErrStaleState
	}
	previous := p.ReceiptPath
	path, uploaded := r.Path, r.UploadedAt
	p.ReceiptPath = &path
	p.TransactionID = r.TransactionID
	p.BankName = r.BankName
	p.UploadedAt = &uploaded
	s.payments[id] = p
	return previous, nil
}

func (s paymentStore) Transition(_ context.Context, t model.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[t.PaymentID]
	if !ok || p.Status != t.From {
		return repository.ErrStaleState
	}
	verifiedBy, verifiedAt := t.VerifiedBy, t.VerifiedAt
	p.Status = t.To
	p.VerifiedBy = &verifiedBy
	p.VerifiedAt = &verifiedAt
	p.AmountCollected = t.AmountCollected
	p.CollectedAt = t.CollectedAt
	p.Notes = t.Notes
	s.payments[t.PaymentID] = p
	return nil
}

func (s paymentStore) AppendNote(_ context.Context, id int64, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return repository.ErrStaleState
	}
	if p.Notes != nil {
		note = *p.Notes + "\n" + note
	}
	p.Notes = &note
	s.payments[id] = p
	return nil
}

func (s paymentStore) List(_ context.Context, f model.PaymentFilters) ([]model.PaymentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PaymentDetail
	for _, p := range s.payments {
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.Method != nil && p.Method != *f.Method {
			continue
		}
		if f.VerifiedBy != nil && (p.VerifiedBy == nil || *p.VerifiedBy != *f.VerifiedBy) {
			continue
		}
		if f.TransactionID != nil && (p.TransactionID == nil || *p.TransactionID != *f.TransactionID) {
			continue
		}
		if f.CreatedFrom != nil && p.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && p.CreatedAt.After(*f.CreatedTo) {
			continue
		}
		d := s.detail(s.participants[p.ParticipantID])
		if f.Email != nil && d.Email != strings.ToLower(*f.Email) {
			continue
		}
		if f.StudentID != nil && d.StudentID != *f.StudentID {
			continue
		}
		out = append(out, model.PaymentDetail{
			Payment:   p,
			FullName:  d.FullName,
			Email:     d.Email,
			StudentID: d.StudentID,
			Track:     d.Track,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, f.Limit, f.Offset), nil
}

type checkInStore struct{ *memStore }

func (s checkInStore) Create(_ context.Context, c *model.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.checkins {
		if existing.ParticipantID == c.ParticipantID && existing.EventType == c.EventType {
			return apperrors.Conflict("participant already checked in")
		}
	}
	c.ID = s.id()
	c.CheckedInAt = time.Now()
	s.checkins = append(s.checkins, *c)
	return nil
}

func (s checkInStore) Exists(_ context.Context, participantID int64, eventType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.checkins {
		if c.ParticipantID == participantID && c.EventType == eventType {
			return true, nil
		}
	}
	return false, nil
}

type auditStore struct{ *memStore }

func (s auditStore) Create(_ context.Context, e *model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.CreatedAt = time.Now()
	s.audit = append(s.audit, *e)
	return nil
}

func (s auditStore) List(_ context.Context, f model.AuditFilters) ([]model.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditLog
	for _, e := range s.audit {
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.UserID != nil && e.UserID != *f.UserID {
			continue
		}
		out = append(out, e)
	}
	return window(out, f.Limit, f.Offset), nil
}

func (s *memStore) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.audit {
		out = append(out, e.Action)
	}
	return out
}

type statsStore struct{ *memStore }

func (s statsStore) Public(_ context.Context) (*model.PublicStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &model.PublicStats{ByTrack: map[model.Track]int64{}}
	for _, p := range s.participants {
		stats.TotalParticipants++
		stats.ByTrack[p.Track]++
	}
	stats.TotalTeams = int64(len(s.teams))
	return stats, nil
}

func (s statsStore) Dashboard(_ context.Context) (*model.DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &model.DashboardStats{
		TotalParticipants: int64(len(s.participants)),
		TotalTeams:        int64(len(s.teams)),
		CheckedIn:         int64(len(s.checkins)),
		ByTrack:           map[model.Track]int64{},
		ByPaymentStatus:   map[model.PaymentStatus]int64{},
	}
	for _, p := range s.participants {
		stats.ByTrack[p.Track]++
	}
	for _, p := range s.payments {
		stats.ByPaymentStatus[p.Status]++
	}
	return stats, nil
}

func (s statsStore) Verifier(_ context.Context, userID int64) (*model.VerifierStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &model.VerifierStats{}
	for _, p := range s.payments {
		if p.VerifiedBy != nil && *p.VerifiedBy == userID && p.AmountCollected != nil {
			stats.VerifiedCount++
			stats.TotalCollected += *p.AmountCollected
		}
		if p.Status == model.PaymentStatusPendingCash {
			stats.PendingCash++
		}
	}
	return stats, nil
}

func (s statsStore) Desk(_ context.Context, userID int64) (*model.DeskStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &model.DeskStats{ByStatus: map[model.PaymentStatus]int64{}}
	for _, p := range s.participants {
		if p.RegisteredBy != nil && *p.RegisteredBy == userID {
			stats.Registered++
		}
	}
	return stats, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *fakeNotifier) Notify(ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *fakeNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Kind
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fakeFiles struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
}

func (f *fakeFiles) Save(fh *multipart.FileHeader, subPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := subPath + "/" + fh.Filename
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeFiles) FullPath(ref string) (string, error) {
	return "/uploads/" + ref, nil
}

func (f *fakeFiles) Delete(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

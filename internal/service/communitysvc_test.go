package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type memMember struct {
	userID string
	role   domain.MemberRole
}

type memCommunity struct {
	c       domain.Community
	members []memMember
}

// memCommunities keeps members in join order so the longest-serving admin
// comes first.
type memCommunities struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*memCommunity
}

func newMemCommunities() *memCommunities {
	return &memCommunities{byID: map[string]*memCommunity{}}
}

func (m *memCommunities) view(mc *memCommunity) domain.Community {
	c := mc.c
	c.Admins = []string{}
	for _, mm := range mc.members {
		if mm.role == domain.RoleAdmin {
			c.Admins = append(c.Admins, mm.userID)
		}
	}
	c.MembersCount = len(mc.members)
	return c
}

func (m *memCommunities) Create(_ context.Context, nc domain.NewCommunity, when time.Time) (domain.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mc := range m.byID {
		if strings.EqualFold(mc.c.Name, nc.Name) {
			return domain.Community{}, domain.ErrCommunityNameTaken
		}
	}
	m.seq++
	mc := &memCommunity{
		c: domain.Community{
			ID: fmt.Sprintf("c%d", m.seq), Name: nc.Name, Description: nc.Description,
			AuthorID: nc.AuthorID, Privacy: nc.Privacy, Tags: nc.Tags, CreatedAt: when, UpdatedAt: when,
		},
		members: []memMember{{userID: nc.AuthorID, role: domain.RoleAdmin}},
	}
	m.byID[mc.c.ID] = mc
	return m.view(mc), nil
}

func (m *memCommunities) Get(_ context.Context, id string) (domain.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.byID[id]
	if !ok {
		return domain.Community{}, domain.ErrNotFound
	}
	return m.view(mc), nil
}

func (m *memCommunities) List(context.Context) ([]domain.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Community{}
	for _, mc := range m.byID {
		out = append(out, m.view(mc))
	}
	return out, nil
}

func (m *memCommunities) ListForUser(_ context.Context, userID string) ([]domain.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Community{}
	for _, mc := range m.byID {
		if mc.role(userID) != domain.RoleNone {
			out = append(out, m.view(mc))
		}
	}
	return out, nil
}

func (mc *memCommunity) role(userID string) domain.MemberRole {
	for _, mm := range mc.members {
		if mm.userID == userID {
			return mm.role
		}
	}
	return domain.RoleNone
}

func (m *memCommunities) Role(_ context.Context, id, userID string) (domain.MemberRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.byID[id]
	if !ok {
		return domain.RoleNone, nil
	}
	return mc.role(userID), nil
}

func (m *memCommunities) AddMember(_ context.Context, id, userID string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if mc.role(userID) != domain.RoleNone {
		return false, nil
	}
	mc.members = append(mc.members, memMember{userID: userID, role: domain.RoleMember})
	return true, nil
}

func (m *memCommunities) SetRole(_ context.Context, id, userID string, from, to domain.MemberRole) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	for i, mm := range mc.members {
		if mm.userID == userID && mm.role == from {
			mc.members[i].role = to
			return true, nil
		}
	}
	return false, nil
}

func (mc *memCommunity) remove(userID string) bool {
	for i, mm := range mc.members {
		if mm.userID == userID {
			mc.members = append(mc.members[:i], mc.members[i+1:]...)
			return true
		}
	}
	return false
}

func (m *memCommunities) RemoveMember(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	return mc.remove(userID), nil
}

func (m *memCommunities) Leave(_ context.Context, id, userID string, _ time.Time) (domain.LeaveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.byID[id]
	if !ok {
		return domain.LeaveOutcome{}, domain.ErrNotFound
	}
	var others []string
	for _, mm := range mc.members {
		if mm.role == domain.RoleAdmin && mm.userID != userID {
			others = append(others, mm.userID)
		}
	}
	out, err := domain.PlanLeave(mc.c.AuthorID, userID, mc.role(userID), others)
	if err != nil {
		return domain.LeaveOutcome{}, err
	}
	if out.NewAuthorID != "" {
		mc.c.AuthorID = out.NewAuthorID
	}
	mc.remove(userID)
	return out, nil
}

func (m *memCommunities) Delete(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.byID, id)
	var ids []string
	for _, mm := range mc.members {
		ids = append(ids, mm.userID)
	}
	return ids, nil
}

func (m *memCommunities) Members(_ context.Context, id string) ([]domain.CommunityMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.CommunityMember{}
	if mc, ok := m.byID[id]; ok {
		for _, mm := range mc.members {
			out = append(out, domain.CommunityMember{
				User:     domain.UserSummary{ID: mm.userID},
				IsAdmin:  mm.role == domain.RoleAdmin,
				IsAuthor: mm.userID == mc.c.AuthorID,
			})
		}
	}
	return out, nil
}

type communityFixture struct {
	svc     *CommunityService
	store   *memCommunities
	inboxes *memNotificationsStore
}

func newCommunityFixture(ids ...string) communityFixture {
	store := newMemCommunities()
	inboxes := newMemNotificationsStore()
	return communityFixture{
		svc: &CommunityService{
			Communities: store,
			Users:       testUsers(ids...),
			Notifier:    &NotificationService{Store: inboxes},
		},
		store:   store,
		inboxes: inboxes,
	}
}

func (f communityFixture) create(t *testing.T, authorID string, privacy domain.CommunityPrivacy) domain.Community {
	t.Helper()
	c, err := f.svc.Create(context.Background(), authorID, CommunityInput{
		Name:        fmt.Sprintf("Gophers %s %s %d", authorID, privacy, len(f.store.byID)),
		Description: "all things Go",
		Privacy:     privacy,
	})
	if err != nil {
		t.Fatalf("create community: %v", err)
	}
	return c
}

func assertAdminsAreMembers(t *testing.T, store *memCommunities, id string) {
	t.Helper()
	c, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	mc := store.byID[id]
	if mc.role(c.AuthorID) != domain.RoleAdmin {
		t.Fatalf("author %s is not an admin", c.AuthorID)
	}
	for _, a := range c.Admins {
		if mc.role(a) == domain.RoleNone {
			t.Fatalf("admin %s is not a member", a)
		}
	}
}

func TestCommunityCreateDefaultsAndValidation(t *testing.T) {
	f := newCommunityFixture("a")
	ctx := context.Background()

	c, err := f.svc.Create(ctx, "a", CommunityInput{
		Name:        "  Rustaceans ",
		Description: "crabs",
		Tags:        []string{"#rust", "rust", " ", "a", "b", "c", "d", "e"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != "Rustaceans" || c.Privacy != domain.PrivacyPublic {
		t.Fatalf("unexpected community: %+v", c)
	}
	if len(c.Tags) != domain.MaxCommunityTags || c.Tags[0] != "rust" {
		t.Fatalf("unexpected tags: %v", c.Tags)
	}
	if len(c.Admins) != 1 || c.Admins[0] != "a" || c.MembersCount != 1 {
		t.Fatalf("author should be the only admin member: %+v", c)
	}

	if _, err := f.svc.Create(ctx, "a", CommunityInput{Name: "Rustaceans", Description: "again"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate name, got %v", err)
	}
	var verr *domain.ValidationError
	if _, err := f.svc.Create(ctx, "a", CommunityInput{Privacy: "secret"}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	} else if len(verr.Fields) != 3 {
		t.Fatalf("unexpected fields: %v", verr.Fields)
	}
}

func TestCommunityJoinIsIdempotentAndNotifiesAdmins(t *testing.T) {
	f := newCommunityFixture("a", "b", "c")
	ctx := context.Background()
	c := f.create(t, "a", domain.PrivacyPublic)

	if _, err := f.svc.Join(ctx, "b", c.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.svc.Promote(ctx, "a", c.ID, "b"); err != nil {
		t.Fatalf("promote: %v", err)
	}

	out, err := f.svc.Join(ctx, "c", c.ID)
	if err != nil || !out.Joined || out.Community.MembersCount != 3 {
		t.Fatalf("unexpected join: %+v %v", out, err)
	}
	again, err := f.svc.Join(ctx, "c", c.ID)
	if err != nil || again.Joined || again.Community.MembersCount != 3 {
		t.Fatalf("second join must be a no-op: %+v %v", again, err)
	}

	for _, admin := range []string{"a", "b"} {
		count := 0
		for _, n := range f.inboxes.inbox(admin) {
			if n.Type == domain.NotificationNewMember && n.SenderID == "c" {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("admin %s got %d new_member notifications", admin, count)
		}
	}
	if got := f.inboxes.inbox("c"); len(got) != 0 {
		t.Fatalf("the joiner should not be notified: %+v", got)
	}
	assertAdminsAreMembers(t, f.store, c.ID)
}

func TestCommunityPromoteAndDemoteRules(t *testing.T) {
	f := newCommunityFixture("a", "b", "c", "d")
	ctx := context.Background()
	c := f.create(t, "a", domain.PrivacyPublic)
	_, _ = f.svc.Join(ctx, "b", c.ID)
	_, _ = f.svc.Join(ctx, "c", c.ID)

	if _, err := f.svc.Promote(ctx, "b", c.ID, "c"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("members cannot promote, got %v", err)
	}
	if _, err := f.svc.Promote(ctx, "a", c.ID, "d"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("outsiders cannot be promoted, got %v", err)
	}
	if _, err := f.svc.Promote(ctx, "a", c.ID, "b"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if _, err := f.svc.Promote(ctx, "a", c.ID, "b"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("double promote should conflict, got %v", err)
	}
	if got := f.inboxes.inbox("b"); len(got) != 1 || got[0].Type != domain.NotificationAdminPromotion {
		t.Fatalf("expected promotion notification, got %+v", got)
	}

	if _, err := f.svc.Demote(ctx, "b", c.ID, "a"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("only the author may demote, got %v", err)
	}
	if _, err := f.svc.Demote(ctx, "a", c.ID, "a"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("the author cannot be demoted, got %v", err)
	}
	if _, err := f.svc.Demote(ctx, "a", c.ID, "c"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("a plain member cannot be demoted, got %v", err)
	}
	got, err := f.svc.Demote(ctx, "a", c.ID, "b")
	if err != nil || len(got.Admins) != 1 || got.MembersCount != 3 {
		t.Fatalf("unexpected demote result: %+v %v", got, err)
	}
	assertAdminsAreMembers(t, f.store, c.ID)
}

func TestCommunitySoleAdminCannotLeave(t *testing.T) {
	f := newCommunityFixture("a", "b")
	ctx := context.Background()
	c := f.create(t, "a", domain.PrivacyPublic)
	_, _ = f.svc.Join(ctx, "b", c.ID)

	_, err := f.svc.Leave(ctx, "a", c.ID)
	if !errors.Is(err, domain.ErrConflict) || !strings.HasPrefix(declineReason(t, err), "As the only admin, you cannot leave this community") {
		t.Fatalf("unexpected leave result: %v", err)
	}
	if after, _ := f.store.Get(ctx, c.ID); after.AuthorID != "a" || after.MembersCount != 2 {
		t.Fatalf("refused leave must not change state: %+v", after)
	}
}

func TestCommunityAuthorLeaveTransfersToOldestAdmin(t *testing.T) {
	f := newCommunityFixture("a", "b", "c")
	ctx := context.Background()
	c := f.create(t, "a", domain.PrivacyPublic)
	_, _ = f.svc.Join(ctx, "b", c.ID)
	_, _ = f.svc.Join(ctx, "c", c.ID)
	_, _ = f.svc.Promote(ctx, "a", c.ID, "c")
	_, _ = f.svc.Promote(ctx, "a", c.ID, "b")

	out, err := f.svc.Leave(ctx, "a", c.ID)
	if err != nil || out.NewAuthorID != "b" {
		t.Fatalf("expected b (earliest joiner) to take over, got %+v %v", out, err)
	}
	assertAdminsAreMembers(t, f.store, c.ID)

	if _, err := f.svc.Leave(ctx, "a", c.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("an outsider leaving should be declined, got %v", err)
	}
	if _, err := f.svc.Leave(ctx, "a", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommunityRemoveMemberAndDelete(t *testing.T) {
	f := newCommunityFixture("a", "b", "c")
	ctx := context.Background()
	c := f.create(t, "a", domain.PrivacyPublic)
	_, _ = f.svc.Join(ctx, "b", c.ID)
	_, _ = f.svc.Join(ctx, "c", c.ID)
	_, _ = f.svc.Promote(ctx, "a", c.ID, "b")

	if err := f.svc.RemoveMember(ctx, "c", c.ID, "b"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("members cannot remove, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, "b", c.ID, "a"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("the author cannot be removed, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, "a", c.ID, "b"); err != nil {
		t.Fatalf("remove admin: %v", err)
	}
	if role, _ := f.store.Role(ctx, c.ID, "b"); role != domain.RoleNone {
		t.Fatalf("removal must drop the admin role too, got %q", role)
	}
	if got := f.inboxes.inbox("b"); got[len(got)-1].Type != domain.NotificationCommunityRemoval {
		t.Fatalf("expected removal notification, got %+v", got)
	}

	if err := f.svc.Delete(ctx, "c", c.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("only the author may delete, got %v", err)
	}
	if err := f.svc.Delete(ctx, "a", c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := f.inboxes.inbox("c"); got[len(got)-1].Type != domain.NotificationCommunityDeleted {
		t.Fatalf("expected deletion notification, got %+v", got)
	}
	for _, n := range f.inboxes.inbox("a") {
		if n.Type == domain.NotificationCommunityDeleted {
			t.Fatalf("the author should not be notified of their own delete")
		}
	}
	if _, err := f.svc.Get(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCommunityCanPost(t *testing.T) {
	f := newCommunityFixture("a", "b", "c")
	ctx := context.Background()

	cases := []struct {
		privacy domain.CommunityPrivacy
		user    string
		want    bool
	}{
		{domain.PrivacyPublic, "b", true},
		{domain.PrivacyPublic, "c", false},
		{domain.PrivacyReadOnly, "b", false},
		{domain.PrivacyReadOnly, "a", true},
		{domain.PrivacyPrivate, "b", false},
	}
	for _, tc := range cases {
		c := f.create(t, "a", tc.privacy)
		_, _ = f.svc.Join(ctx, "b", c.ID)
		got, err := f.svc.CanPost(ctx, tc.user, c)
		if err != nil || got != tc.want {
			t.Fatalf("%s/%s: got %v %v, want %v", tc.privacy, tc.user, got, err, tc.want)
		}
	}
}

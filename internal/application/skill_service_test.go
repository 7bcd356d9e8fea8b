package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillvouch/skillvouch/internal/domain/entity"
	"github.com/skillvouch/skillvouch/internal/domain/model"
	"github.com/skillvouch/skillvouch/internal/infrastructure/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type seqIDs struct {
	n int
}

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("id-%03d", s.n)
}

func newTestService() (*Service, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(memory.NewStore(), clock, &seqIDs{}, nil, nil, ""), clock
}

func intptr(v int) *int { return &v }

func strptr(v string) *string { return &v }

func TestCreateUser(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice", Age: intptr(30)})
	require.NoError(t, err)
	assert.Equal(t, "id-001", u.ID)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, 30, *u.Age)
	assert.Empty(t, u.Skills)
	assert.Equal(t, clock.now, u.CreatedAt)

	// fresh, previously-unseen ids
	v, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Bob"})
	require.NoError(t, err)
	assert.NotEqual(t, u.ID, v.ID)
	assert.Nil(t, v.Age)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserArgs{Name: ""})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.CreateUser(ctx, CreateUserArgs{Name: "   "})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.CreateUser(ctx, CreateUserArgs{Name: "Alice", Age: intptr(-1)})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestGetUserAfterCreate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)

	got, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.GetUser(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListUsersStoreOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"Carol", "Alice", "Bob"} {
		_, err := svc.CreateUser(ctx, CreateUserArgs{Name: name})
		require.NoError(t, err)
	}

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	// sequential ids, so store order matches creation order here
	assert.Equal(t, "Carol", users[0].Name)
	assert.Equal(t, "Alice", users[1].Name)
	assert.Equal(t, "Bob", users[2].Name)
}

func TestUpdateUserPartialMerge(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice", Age: intptr(30)})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, u.ID, []string{"Go"})
	require.NoError(t, err)

	clock.advance(time.Minute)
	got, err := svc.UpdateUser(ctx, u.ID, UpdateUserArgs{Name: strptr("Alicia")})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Name)
	assert.Equal(t, 30, *got.Age)
	require.Len(t, got.Skills, 1)
	assert.Equal(t, "Go", got.Skills[0].Name)
	assert.Equal(t, clock.now, got.UpdatedAt)

	got, err = svc.UpdateUser(ctx, u.ID, UpdateUserArgs{Age: intptr(31)})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Name)
	assert.Equal(t, 31, *got.Age)
}

func TestUpdateUserFailures(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpdateUser(ctx, "nope", UpdateUserArgs{Name: strptr("x")})
	assert.ErrorIs(t, err, model.ErrNotFound)

	u, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, u.ID, UpdateUserArgs{Name: strptr("  ")})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.UpdateUser(ctx, u.ID, UpdateUserArgs{Age: intptr(-5)})
	assert.ErrorIs(t, err, model.ErrValidation)

	// failed validation must not have partially applied
	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Nil(t, got.Age)
}

func TestDeleteUserCascades(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, u.ID, []string{"Go"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, u.ID))

	_, err = svc.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = svc.ListSkills(ctx, u.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteUser(ctx, u.ID), model.ErrNotFound)
}

func TestAddSkillsPreservesOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)

	skills, err := svc.AddSkills(ctx, u.ID, []string{"X", "Y"})
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "X", skills[0].Name)
	assert.Equal(t, "Y", skills[1].Name)
	assert.False(t, skills[0].Verified)
	assert.False(t, skills[1].Verified)

	listed, err := svc.ListSkills(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, skills, listed)
}

func TestAddSkillsValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)

	_, err = svc.AddSkills(ctx, u.ID, nil)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.AddSkills(ctx, u.ID, []string{""})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.AddSkills(ctx, "nope", []string{"Go"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	// duplicates, both within a request and against existing skills
	_, err = svc.AddSkills(ctx, u.ID, []string{"Go", "Go"})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.AddSkills(ctx, u.ID, []string{"Go"})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, u.ID, []string{"Go"})
	assert.ErrorIs(t, err, model.ErrValidation)

	// a rejected batch must not be partially applied
	listed, err := svc.ListSkills(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestRemoveSkill(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, u.ID, []string{"X", "Y"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveSkill(ctx, u.ID, "X"))

	listed, err := svc.ListSkills(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Y", listed[0].Name)

	assert.ErrorIs(t, svc.RemoveSkill(ctx, u.ID, "X"), model.ErrNotFound)
	assert.ErrorIs(t, svc.RemoveSkill(ctx, "nope", "Y"), model.ErrNotFound)
}

func TestVerifySkill(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Bob"})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, alice.ID, []string{"Go"})
	require.NoError(t, err)

	clock.advance(time.Hour)
	skill, err := svc.VerifySkill(ctx, VerifySkillArgs{
		UserID:     alice.ID,
		SkillName:  "Go",
		VerifierID: bob.ID,
		Score:      4,
		Comment:    "ships clean code",
	})
	require.NoError(t, err)
	assert.True(t, skill.Verified)
	require.Len(t, skill.Ratings, 1)
	assert.Equal(t, bob.ID, skill.Ratings[0].UserID)
	assert.Equal(t, 4, skill.Ratings[0].Score)
	assert.Equal(t, "ships clean code", skill.Ratings[0].Comment)
	assert.Equal(t, clock.now, skill.Ratings[0].CreatedAt)

	// persisted on the aggregate
	got, err := svc.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got.Skills, 1)
	assert.True(t, got.Skills[0].Verified)
	require.Len(t, got.Skills[0].Ratings, 1)
}

func TestVerifySkillFailures(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Bob"})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, alice.ID, []string{"Go"})
	require.NoError(t, err)

	_, err = svc.VerifySkill(ctx, VerifySkillArgs{UserID: "nope", SkillName: "Go", VerifierID: bob.ID, Score: 3})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Go", VerifierID: "nope", Score: 3})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Rust", VerifierID: bob.ID, Score: 3})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Go", VerifierID: bob.ID})
	assert.ErrorIs(t, err, model.ErrValidation)

	// nothing recorded by the failed attempts
	skills, err := svc.ListSkills(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, skills[0].Verified)
	assert.Empty(t, skills[0].Ratings)
}

func TestVerifySkillScoreBoundaries(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, alice.ID, []string{"Go"})
	require.NoError(t, err)

	verifiers := make([]*entity.User, 0, 2)
	for _, name := range []string{"Bob", "Carol"} {
		v, err := svc.CreateUser(ctx, CreateUserArgs{Name: name})
		require.NoError(t, err)
		verifiers = append(verifiers, v)
	}

	for _, score := range []int{0, 6, -1} {
		_, err := svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Go", VerifierID: verifiers[0].ID, Score: score})
		assert.ErrorIs(t, err, model.ErrValidation, "score %d", score)
	}

	_, err = svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Go", VerifierID: verifiers[0].ID, Score: 1})
	assert.NoError(t, err)
	_, err = svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Go", VerifierID: verifiers[1].ID, Score: 5})
	assert.NoError(t, err)
}

func TestVerifySkillDuplicateVerifierConflicts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Bob"})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, alice.ID, []string{"Go"})
	require.NoError(t, err)

	_, err = svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Go", VerifierID: bob.ID, Score: 4})
	require.NoError(t, err)

	_, err = svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Go", VerifierID: bob.ID, Score: 5})
	assert.ErrorIs(t, err, model.ErrConflict)

	skills, err := svc.ListSkills(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, skills[0].Ratings, 1)
}

func TestVerifiedStaysTrueAcrossVerifications(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, alice.ID, []string{"Go"})
	require.NoError(t, err)

	for i, name := range []string{"Bob", "Carol", "Dave"} {
		v, err := svc.CreateUser(ctx, CreateUserArgs{Name: name})
		require.NoError(t, err)
		skill, err := svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Go", VerifierID: v.ID, Score: i + 1})
		require.NoError(t, err)
		assert.True(t, skill.Verified)
		assert.Len(t, skill.Ratings, i+1)
	}
}

func TestSearchUsersScanFallback(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"Alice", "Alicia", "Bob"} {
		_, err := svc.CreateUser(ctx, CreateUserArgs{Name: name})
		require.NoError(t, err)
	}

	users, err := svc.SearchUsers(ctx, "ali", 10)
	require.NoError(t, err)
	require.Len(t, users, 2)

	users, err = svc.SearchUsers(ctx, "ali", 1)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	users, err = svc.SearchUsers(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestEndToEndScenario(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Alice"})
	require.NoError(t, err)
	_, err = svc.AddSkills(ctx, alice.ID, []string{"Go"})
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, CreateUserArgs{Name: "Bob"})
	require.NoError(t, err)

	_, err = svc.VerifySkill(ctx, VerifySkillArgs{UserID: alice.ID, SkillName: "Go", VerifierID: bob.ID, Score: 4})
	require.NoError(t, err)

	got, err := svc.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got.Skills, 1)
	assert.Equal(t, "Go", got.Skills[0].Name)
	assert.True(t, got.Skills[0].Verified)
	require.Len(t, got.Skills[0].Ratings, 1)
	assert.Equal(t, bob.ID, got.Skills[0].Ratings[0].UserID)
	assert.Equal(t, 4, got.Skills[0].Ratings[0].Score)
}

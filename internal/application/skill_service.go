package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/skillvouch/skillvouch/internal/domain/entity"
	"github.com/skillvouch/skillvouch/internal/domain/model"
	repo "github.com/skillvouch/skillvouch/internal/domain/repository"
)

// Service is the skill-verification business-rule layer. Every mutation is a
// full-aggregate read-modify-write against the store, serialized per user id.
type Service struct {
	Store        repo.UserStore
	Clock        Clock
	IDs          IDSupplier
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string

	locks keyedMutex
}

func NewService(store repo.UserStore, clock Clock, ids IDSupplier, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string) *Service {
	return &Service{
		Store:        store,
		Clock:        clock,
		IDs:          ids,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
	}
}

type CreateUserArgs struct {
	Name string
	Age  *int
}

// UpdateUserArgs is an explicit partial update: nil means "leave unchanged".
type UpdateUserArgs struct {
	Name *string
	Age  *int
}

type VerifySkillArgs struct {
	UserID     string
	SkillName  string
	VerifierID string
	Score      int
	Comment    string
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name must be a non-empty string: %w", model.ErrValidation)
	}
	return nil
}

func validateAge(age *int) error {
	if age != nil && *age < 0 {
		return fmt.Errorf("age must not be negative: %w", model.ErrValidation)
	}
	return nil
}

// CreateUser creates a user with a fresh id and an empty skill list.
func (s *Service) CreateUser(ctx context.Context, args CreateUserArgs) (*entity.User, error) {
	if err := validateName(args.Name); err != nil {
		return nil, err
	}
	if err := validateAge(args.Age); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	u := &entity.User{
		ID:        s.IDs.NewID(),
		Name:      strings.TrimSpace(args.Name),
		Age:       args.Age,
		Skills:    []entity.Skill{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Insert(ctx, u.ID, u); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	s.indexUser(ctx, u)
	return u, nil
}

// GetUser returns the user stored at id.
func (s *Service) GetUser(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", id, err)
	}
	return u, nil
}

// ListUsers returns all users in store (ascending id) order.
func (s *Service) ListUsers(ctx context.Context) ([]entity.User, error) {
	users, err := s.Store.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// UpdateUser merges the provided fields onto the existing record. Skills are
// never touched here.
func (s *Service) UpdateUser(ctx context.Context, id string, args UpdateUserArgs) (*entity.User, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	u, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", id, err)
	}
	if args.Name != nil {
		if err := validateName(*args.Name); err != nil {
			return nil, err
		}
		u.Name = strings.TrimSpace(*args.Name)
	}
	if args.Age != nil {
		if err := validateAge(args.Age); err != nil {
			return nil, err
		}
		u.Age = args.Age
	}
	u.UpdatedAt = s.Clock.Now()

	if err := s.Store.Insert(ctx, id, u); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	s.indexUser(ctx, u)
	return u, nil
}

// DeleteUser removes the aggregate, cascading to all owned skills and ratings.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.Store.Remove(ctx, id); err != nil {
		return fmt.Errorf("user %q: %w", id, err)
	}
	s.deindexUser(ctx, id)
	return nil
}

// AddSkills appends one unverified skill per name and returns the updated
// skill list. Skill names are unique per user.
func (s *Service) AddSkills(ctx context.Context, userID string, names []string) ([]entity.Skill, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one skill name is required: %w", model.ErrValidation)
	}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("skill name must be a non-empty string: %w", model.ErrValidation)
		}
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	u, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", userID, err)
	}

	seen := make(map[string]struct{}, len(u.Skills))
	for _, sk := range u.Skills {
		seen[sk.Name] = struct{}{}
	}
	for _, n := range names {
		name := strings.TrimSpace(n)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("skill %q already exists: %w", name, model.ErrValidation)
		}
		seen[name] = struct{}{}
	}

	for _, n := range names {
		u.Skills = append(u.Skills, entity.Skill{Name: strings.TrimSpace(n), Verified: false, Ratings: []entity.Rating{}})
	}
	u.UpdatedAt = s.Clock.Now()

	if err := s.Store.Insert(ctx, userID, u); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return u.Skills, nil
}

// RemoveSkill discards the first skill matching name, ratings and all.
func (s *Service) RemoveSkill(ctx context.Context, userID, name string) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	u, err := s.Store.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %q: %w", userID, err)
	}

	idx := -1
	for i := range u.Skills {
		if u.Skills[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("skill %q: %w", name, model.ErrNotFound)
	}
	u.Skills = append(u.Skills[:idx], u.Skills[idx+1:]...)
	u.UpdatedAt = s.Clock.Now()

	if err := s.Store.Insert(ctx, userID, u); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// ListSkills returns the user's skill list in insertion order.
func (s *Service) ListSkills(ctx context.Context, userID string) ([]entity.Skill, error) {
	u, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", userID, err)
	}
	return u.Skills, nil
}

// VerifySkill records a peer rating on a skill and derives its verified flag.
// A verifier must exist and may rate a given skill only once.
func (s *Service) VerifySkill(ctx context.Context, args VerifySkillArgs) (*entity.Skill, error) {
	if strings.TrimSpace(args.VerifierID) == "" {
		return nil, fmt.Errorf("verifier id is required: %w", model.ErrValidation)
	}

	unlock := s.locks.lock(args.UserID)
	defer unlock()

	u, err := s.Store.Get(ctx, args.UserID)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", args.UserID, err)
	}
	if _, err := s.Store.Get(ctx, args.VerifierID); err != nil {
		return nil, fmt.Errorf("verifier %q: %w", args.VerifierID, err)
	}

	skill := u.FindSkill(args.SkillName)
	if skill == nil {
		return nil, fmt.Errorf("skill %q: %w", args.SkillName, model.ErrNotFound)
	}
	if args.Score < 1 || args.Score > 5 {
		return nil, fmt.Errorf("score must be an integer between 1 and 5: %w", model.ErrValidation)
	}
	if skill.HasRatingFrom(args.VerifierID) {
		return nil, fmt.Errorf("verifier %q already rated skill %q: %w", args.VerifierID, args.SkillName, model.ErrConflict)
	}

	skill.Ratings = append(skill.Ratings, entity.Rating{
		UserID:    args.VerifierID,
		Score:     args.Score,
		Comment:   args.Comment,
		CreatedAt: s.Clock.Now(),
	})
	skill.Verified = len(skill.Ratings) > 0
	u.UpdatedAt = s.Clock.Now()

	if err := s.Store.Insert(ctx, args.UserID, u); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}

	out := *skill
	return &out, nil
}

// SearchUsers matches users by name, via Elasticsearch when configured and a
// linear scan over the store otherwise.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]entity.User, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return []entity.User{}, nil
	}

	if s.ES != nil && s.ESUsersIndex != "" {
		if users, err := s.searchES(ctx, q, size); err == nil {
			return users, nil
		} else if s.Logger != nil {
			s.Logger.WithError(err).Warn("es search failed, falling back to scan")
		}
	}

	all, err := s.Store.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	needle := strings.ToLower(q)
	out := make([]entity.User, 0, size)
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Name), needle) {
			out = append(out, u)
			if len(out) == size {
				break
			}
		}
	}
	return out, nil
}

func (s *Service) searchES(ctx context.Context, q string, size int) ([]entity.User, error) {
	query := map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"name": q,
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search status %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.User, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		u, err := s.Store.Get(ctx, h.ID)
		if err != nil {
			// index can lag behind deletes
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

// indexUser pushes the latest profile to Elasticsearch, best effort; search
// indexing never fails the mutation that triggered it.
func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         u.ID,
		"name":       u.Name,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

func (s *Service) deindexUser(ctx context.Context, id string) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: id}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

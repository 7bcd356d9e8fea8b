package entity

import (
	"time"
)

// User is the aggregate root for the skill-verification domain. The whole
// record, including nested skills and ratings, is persisted and retrieved
// as one unit; skills and ratings have no lifecycle outside their owner.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       *int      `json:"age,omitempty"`
	Skills    []Skill   `json:"skills"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Skill is a claimed ability owned by a User. Verified is derived: it is
// true exactly when Ratings is non-empty and is never set independently.
type Skill struct {
	Name     string   `json:"name"`
	Verified bool     `json:"verified"`
	Ratings  []Rating `json:"ratings"`
}

// Rating is a single peer verification of a skill.
type Rating struct {
	// UserID identifies the verifier.
	UserID    string    `json:"userId"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FindSkill returns the first skill with the given name, or nil.
func (u *User) FindSkill(name string) *Skill {
	for i := range u.Skills {
		if u.Skills[i].Name == name {
			return &u.Skills[i]
		}
	}
	return nil
}

// HasRatingFrom reports whether the verifier already rated this skill.
func (s *Skill) HasRatingFrom(verifierID string) bool {
	for _, r := range s.Ratings {
		if r.UserID == verifierID {
			return true
		}
	}
	return false
}

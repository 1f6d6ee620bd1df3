package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Group represents a set of members sharing expenses in one currency
type Group struct {
	ID        uuid.UUID
	Name      string
	Currency  string
	Members   []Member
	CreatedAt time.Time
}

// Member represents a group member.
// The engine only uses ID; Name is kept for callers rendering balances.
type Member struct {
	ID       uuid.UUID
	GroupID  uuid.UUID
	Name     string
	JoinedAt time.Time
}

// Validate ensures the group adheres to domain rules
func (g *Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: group name cannot be empty", ErrValidation)
	}
	if _, err := LookupCurrency(g.Currency); err != nil {
		return err
	}

	seen := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		name := strings.ToLower(strings.TrimSpace(m.Name))
		if name == "" {
			return fmt.Errorf("%w: member name cannot be empty", ErrValidation)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate member name %q", ErrValidation, m.Name)
		}
		seen[name] = true
	}
	return nil
}

// HasMember reports whether the member belongs to the group
func (g *Group) HasMember(id uuid.UUID) bool {
	for _, m := range g.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// MemberIDs returns the IDs of all members in roster order
func (g *Group) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

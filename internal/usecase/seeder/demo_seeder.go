package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/splitledger-backend/internal/domain"
)

// Fixed UUIDs for the demo group so that clients can rely on them across restarts
var (
	DemoGroupID = uuid.MustParse("00000000-0000-0000-0000-00000000d000")
	DemoAnaID   = uuid.MustParse("00000000-0000-0000-0000-00000000d001")
	DemoBrunoID = uuid.MustParse("00000000-0000-0000-0000-00000000d002")
	DemoCarlaID = uuid.MustParse("00000000-0000-0000-0000-00000000d003")
)

// DemoSeeder creates a ready-to-use demo group for local runs
type DemoSeeder struct {
	repo domain.GroupRepository
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(repo domain.GroupRepository) *DemoSeeder {
	return &DemoSeeder{
		repo: repo,
	}
}

// Seed ensures the demo group exists. It reports whether the group was created.
// An existing demo group is left as it is.
func (s *DemoSeeder) Seed(ctx context.Context) (bool, error) {
	_, err := s.repo.GetByID(ctx, DemoGroupID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("failed to look up demo group: %w", err)
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:        DemoGroupID,
		Name:      "Demo group",
		Currency:  "EUR",
		CreatedAt: now,
	}
	for _, m := range []struct {
		id   uuid.UUID
		name string
	}{
		{DemoAnaID, "Ana"},
		{DemoBrunoID, "Bruno"},
		{DemoCarlaID, "Carla"},
	} {
		group.Members = append(group.Members, domain.Member{ID: m.id, GroupID: DemoGroupID, Name: m.name, JoinedAt: now})
	}

	// Validate before creating
	if err := group.Validate(); err != nil {
		return false, err
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return false, err
	}
	return true, nil
}

package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chatguard/internal/moderation/models"
	id "chatguard/pkg/domain"
)

type InMemoryDirectorySuite struct {
	suite.Suite
	dir *InMemoryDirectory
}

func TestInMemoryDirectorySuite(t *testing.T) {
	suite.Run(t, new(InMemoryDirectorySuite))
}

func (s *InMemoryDirectorySuite) SetupTest() {
	s.dir = New()
}

func (s *InMemoryDirectorySuite) TestStatus() {
	status, err := s.dir.Status(context.Background(), id.UserID(uuid.New()))
	s.NoError(err)
	s.Equal(models.UserStatusActive, status, "unknown users are active")
}

func (s *InMemoryDirectorySuite) TestSuspend() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s.Require().NoError(s.dir.Suspend(ctx, userID, "strike 3", first))
	status, err := s.dir.Status(ctx, userID)
	s.NoError(err)
	s.Equal(models.UserStatusSuspended, status)

	s.Run("repeat suspension keeps the original timestamp", func() {
		s.Require().NoError(s.dir.Suspend(ctx, userID, "again", first.Add(time.Hour)))
		s.Equal(first, *s.dir.SuspendedAt(userID))
	})
}

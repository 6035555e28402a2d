//go:build integration

package gate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chatguard/internal/moderation/gate"
	"chatguard/internal/moderation/lock"
	"chatguard/internal/moderation/models"
	"chatguard/internal/moderation/notify"
	ledgerstore "chatguard/internal/moderation/store/ledger"
	userstore "chatguard/internal/moderation/store/users"
	id "chatguard/pkg/domain"
	"chatguard/pkg/testutil/containers"
)

// Justification for integration tests: only a real database shows that the
// advisory lock and the joined transaction keep strikes distinct across
// connections.
type PostgresGateSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	ledger   *ledgerstore.PostgresLedger
	users    *userstore.PostgresDirectory
	notices  *notify.Recorder
	gate     *gate.Service
}

func TestPostgresGateSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresGateSuite))
}

func (s *PostgresGateSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.ledger = ledgerstore.NewPostgres(s.postgres.DB)
	s.users = userstore.NewPostgres(s.postgres.DB)

	locker, err := lock.NewPostgres(s.postgres.DB, 5*time.Second)
	s.Require().NoError(err)
	s.notices = notify.NewRecorder()
	s.gate, err = gate.New(s.users, s.ledger, locker, s.notices)
	s.Require().NoError(err)
}

func (s *PostgresGateSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "violation_events", "users"))
	s.notices.Reset()
}

func (s *PostgresGateSuite) TestConcurrentViolationsAcrossConnections() {
	senderID := id.UserID(uuid.New())
	const sends = 6

	var wg sync.WaitGroup
	decisions := make([]*models.Decision, sends)
	errs := make([]error, sends)
	for i := range sends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decisions[i], errs[i] = s.gate.Evaluate(context.Background(), senderID, "call me on 0712345678")
		}()
	}
	wg.Wait()

	strikes := map[models.StrikeNumber]int{}
	suspended := 0
	for i := range sends {
		s.Require().NoError(errs[i])
		switch decisions[i].Outcome {
		case models.OutcomePolicyBlocked:
			strikes[decisions[i].StrikeNumber]++
		case models.OutcomeSuspended:
			suspended++
		}
	}
	s.Equal(map[models.StrikeNumber]int{1: 1, 2: 1, 3: 1}, strikes)
	s.Equal(sends-3, suspended)

	count, err := s.ledger.CountSince(context.Background(), senderID, time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(3, count)

	status, err := s.users.Status(context.Background(), senderID)
	s.Require().NoError(err)
	s.Equal(models.UserStatusSuspended, status)
}

func (s *PostgresGateSuite) TestCleanMessageWritesNothing() {
	senderID := id.UserID(uuid.New())
	decision, err := s.gate.Evaluate(context.Background(), senderID, "see you at the venue")
	s.Require().NoError(err)
	s.True(decision.Allowed)

	count, err := s.ledger.CountSince(context.Background(), senderID, time.Time{})
	s.Require().NoError(err)
	s.Zero(count)
}

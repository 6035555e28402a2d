package gate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"chatguard/internal/moderation/models"
	"chatguard/internal/moderation/ports/mocks"
	id "chatguard/pkg/domain"
	dErrors "chatguard/pkg/domain-errors"
	"chatguard/pkg/platform/sentinel"
)

// =============================================================================
// Fail-Closed Tests
// =============================================================================
// Justification for unit tests: infrastructure faults cannot be produced on
// demand with real stores; mocks inject them at each step of the send path.

type GateFailureSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	users      *mocks.MockUserDirectory
	ledger     *mocks.MockLedger
	locker     *mocks.MockLocker
	dispatcher *mocks.MockNotificationDispatcher
	gate       *Service
	senderID   id.UserID
}

func TestGateFailureSuite(t *testing.T) {
	suite.Run(t, new(GateFailureSuite))
}

func (s *GateFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = mocks.NewMockUserDirectory(s.ctrl)
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.locker = mocks.NewMockLocker(s.ctrl)
	s.dispatcher = mocks.NewMockNotificationDispatcher(s.ctrl)
	var err error
	s.gate, err = New(s.users, s.ledger, s.locker, s.dispatcher)
	s.Require().NoError(err)
	s.senderID = id.UserID(uuid.New())
}

func (s *GateFailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

// runLocked makes the mock locker invoke fn directly.
func (s *GateFailureSuite) runLocked() {
	s.locker.EXPECT().WithUserLock(gomock.Any(), s.senderID, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ id.UserID, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

func (s *GateFailureSuite) assertFailedClosed(decision *models.Decision, err error) {
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "got %v", err)
	s.Require().NotNil(decision)
	s.False(decision.Allowed)
	s.Equal(models.OutcomeUnavailable, decision.Outcome)
}

func (s *GateFailureSuite) TestStatusReadFailure() {
	s.users.EXPECT().Status(gomock.Any(), s.senderID).Return(models.UserStatus(""), errors.New("timeout"))

	decision, err := s.gate.Evaluate(context.Background(), s.senderID, "hello")
	s.assertFailedClosed(decision, err)
}

func (s *GateFailureSuite) TestLockHeld() {
	s.users.EXPECT().Status(gomock.Any(), s.senderID).Return(models.UserStatusActive, nil)
	s.locker.EXPECT().WithUserLock(gomock.Any(), s.senderID, gomock.Any()).
		Return(sentinel.ErrLockHeld)

	decision, err := s.gate.Evaluate(context.Background(), s.senderID, "call me")
	s.assertFailedClosed(decision, err)
	s.ErrorIs(err, sentinel.ErrLockHeld)
}

func (s *GateFailureSuite) TestLockLeaseExpired() {
	s.users.EXPECT().Status(gomock.Any(), s.senderID).Return(models.UserStatusActive, nil)
	s.locker.EXPECT().WithUserLock(gomock.Any(), s.senderID, gomock.Any()).
		Return(fmt.Errorf("user lock: %w", sentinel.ErrLockExpired))

	decision, err := s.gate.Evaluate(context.Background(), s.senderID, "call me")
	s.assertFailedClosed(decision, err)
	s.ErrorIs(err, sentinel.ErrLockExpired)
}

func (s *GateFailureSuite) TestLedgerCountFailure() {
	s.users.EXPECT().Status(gomock.Any(), s.senderID).Return(models.UserStatusActive, nil).Times(2)
	s.runLocked()
	s.ledger.EXPECT().CountSince(gomock.Any(), s.senderID, gomock.Any()).Return(0, errors.New("connection refused"))

	decision, err := s.gate.Evaluate(context.Background(), s.senderID, "0712345678")
	s.assertFailedClosed(decision, err)
}

func (s *GateFailureSuite) TestLedgerAppendFailure() {
	s.users.EXPECT().Status(gomock.Any(), s.senderID).Return(models.UserStatusActive, nil).Times(2)
	s.runLocked()
	s.ledger.EXPECT().CountSince(gomock.Any(), s.senderID, gomock.Any()).Return(0, nil)
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	decision, err := s.gate.Evaluate(context.Background(), s.senderID, "0712345678")
	s.assertFailedClosed(decision, err)
}

func (s *GateFailureSuite) TestSuspendFailure() {
	s.users.EXPECT().Status(gomock.Any(), s.senderID).Return(models.UserStatusActive, nil).Times(2)
	s.runLocked()
	s.ledger.EXPECT().CountSince(gomock.Any(), s.senderID, gomock.Any()).Return(2, nil)
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.users.EXPECT().Suspend(gomock.Any(), s.senderID, gomock.Any(), gomock.Any()).Return(errors.New("replica lag"))

	decision, err := s.gate.Evaluate(context.Background(), s.senderID, "0712345678")
	s.assertFailedClosed(decision, err)
}

func (s *GateFailureSuite) TestCleanMessageSkipsLockAndLedger() {
	s.users.EXPECT().Status(gomock.Any(), s.senderID).Return(models.UserStatusActive, nil)

	decision, err := s.gate.Evaluate(context.Background(), s.senderID, "see you at noon")
	s.Require().NoError(err)
	s.True(decision.Allowed)
}

func (s *GateFailureSuite) TestDispatcherErrorIsIsolated() {
	s.users.EXPECT().Status(gomock.Any(), s.senderID).Return(models.UserStatusActive, nil).Times(2)
	s.runLocked()
	s.ledger.EXPECT().CountSince(gomock.Any(), s.senderID, gomock.Any()).Return(0, nil)
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	decision, err := s.gate.Evaluate(context.Background(), s.senderID, "telegram")
	s.Require().NoError(err)
	s.Equal(models.OutcomePolicyBlocked, decision.Outcome)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Require().NoError(s.gate.Drain(ctx))
}

func TestNew_RequiresCollaborators(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserDirectory(ctrl)
	ledger := mocks.NewMockLedger(ctrl)
	locker := mocks.NewMockLocker(ctrl)
	dispatcher := mocks.NewMockNotificationDispatcher(ctrl)

	cases := map[string]func() (*Service, error){
		"users":      func() (*Service, error) { return New(nil, ledger, locker, dispatcher) },
		"ledger":     func() (*Service, error) { return New(users, nil, locker, dispatcher) },
		"locker":     func() (*Service, error) { return New(users, ledger, nil, dispatcher) },
		"dispatcher": func() (*Service, error) { return New(users, ledger, locker, nil) },
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := build(); err == nil {
				t.Fatalf("expected error when %s is nil", name)
			}
		})
	}
}

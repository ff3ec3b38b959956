package logic

import (
	"context"
	"testing"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/event"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/repository"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fixture struct {
	db         *gorm.DB
	events     *event.Recorder
	currencies *money.Registry

	flowRepo         *repository.FlowRepository
	contributionRepo *repository.ContributionRepository
	notificationRepo *repository.NotificationRepository
	updateRepo       *repository.UpdateRepository
	userRepo         *repository.UserRepository

	flows         *FlowLogic
	contributions *ContributionLogic
	updates       *UpdateLogic
	users         *UserLogic
	notifications *NotificationLogic
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:               db,
		events:           &event.Recorder{},
		currencies:       money.NewRegistry(map[string]int32{"USDC": 6, "SOL": 9}),
		flowRepo:         repository.NewFlowRepository(db),
		contributionRepo: repository.NewContributionRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		updateRepo:       repository.NewUpdateRepository(db),
		userRepo:         repository.NewUserRepository(db),
	}
	f.flows = NewFlowLogic(f.flowRepo, f.currencies, f.events).WithClock(fixedClock)
	f.contributions = NewContributionLogic(f.flowRepo, f.contributionRepo, f.currencies, f.events).WithClock(fixedClock)
	f.updates = NewUpdateLogic(f.flowRepo, f.updateRepo, f.events).WithClock(fixedClock)
	f.users = NewUserLogic(f.userRepo, f.currencies)
	f.notifications = NewNotificationLogic(f.notificationRepo)
	return f
}

func usdc(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// directFlow 最简单的直接资助流程
func directFlow(creator string) CreateFlowInput {
	return CreateFlowInput{
		Title:        "Community garden",
		Description:  "Raised beds for the block",
		Goal:         usdc("1000"),
		Currency:     "USDC",
		StartDate:    testNow,
		DurationDays: 30,
		CreatorId:    creator,
		CreatorName:  "Ada",
		Rules:        model.FlowRules{Direct: true},
	}
}

func (f *fixture) createFlow(t *testing.T, in CreateFlowInput) *model.FlowModel {
	t.Helper()
	flow, err := f.flows.CreateFlow(context.Background(), in)
	require.NoError(t, err)
	return flow
}

func (f *fixture) contribute(t *testing.T, flowId, contributor, amount string) *ContributionReceipt {
	t.Helper()
	receipt, err := f.contributions.RecordContribution(context.Background(), RecordContributionInput{
		FlowId:        flowId,
		ContributorId: contributor,
		Amount:        usdc(amount),
		Currency:      "USDC",
	})
	require.NoError(t, err)
	return receipt
}

package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcoach/billing/pkg/billing"
)

func testRecord(subID, email string) billing.Record {
	return billing.Record{
		UserEmail:      email,
		Tier:           billing.TierTeam,
		CustomerID:     "cus_" + subID,
		SubscriptionID: subID,
		PlanDetails: billing.PlanDetails{
			Name:          "Team",
			Description:   "Advanced coaching for professional teams",
			BillingPeriod: "monthly",
			Price:         2999,
		},
		Status:           billing.StatusActive,
		CurrentPeriodEnd: time.Date(2026, 11, 16, 12, 0, 0, 0, time.UTC),
		CreatedAt:        time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}
}

// runStoreContract checks behaviour every Store implementation shares.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) billing.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		rec := testRecord("sub_1", " A@B.com ")
		require.NoError(t, s.Create(ctx, rec))

		got, err := s.GetBySubscriptionID(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", got.UserEmail)
		assert.Equal(t, rec.PlanDetails, got.PlanDetails)
		assert.True(t, rec.CurrentPeriodEnd.Equal(got.CurrentPeriodEnd))

		byEmail, err := s.GetByEmail(ctx, "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "sub_1", byEmail.SubscriptionID)
	})

	t.Run("unique subscription id", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, testRecord("sub_1", "a@b.com")))
		err := s.Create(ctx, testRecord("sub_1", "other@b.com"))
		assert.ErrorIs(t, err, billing.ErrDuplicateSubscription)
	})

	t.Run("unique email", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, testRecord("sub_1", "a@b.com")))
		err := s.Create(ctx, testRecord("sub_2", "A@B.COM"))
		assert.ErrorIs(t, err, billing.ErrEmailTaken)
	})

	t.Run("rejects invalid record", func(t *testing.T) {
		s := newStore(t)
		rec := testRecord("sub_1", "a@b.com")
		rec.Tier = "platinum"
		assert.ErrorIs(t, s.Create(ctx, rec), billing.ErrValidation)
	})

	t.Run("replace supersedes by email", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, testRecord("sub_old", "a@b.com")))

		prev, err := s.Replace(ctx, testRecord("sub_new", "a@b.com"))
		require.NoError(t, err)
		assert.Equal(t, "sub_old", prev.SubscriptionID)

		_, err = s.GetBySubscriptionID(ctx, "sub_old")
		assert.ErrorIs(t, err, billing.ErrRecordNotFound)
		got, err := s.GetByEmail(ctx, "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "sub_new", got.SubscriptionID)

		_, err = s.Replace(ctx, testRecord("sub_x", "nobody@b.com"))
		assert.ErrorIs(t, err, billing.ErrRecordNotFound)
	})

	t.Run("update", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, testRecord("sub_1", "a@b.com")))

		end := time.Date(2026, 12, 16, 12, 0, 0, 0, time.UTC)
		got, err := s.Update(ctx, "sub_1", billing.SubscriptionUpdate{
			Status:            billing.StatusPastDue,
			CurrentPeriodEnd:  end,
			CancelAtPeriodEnd: true,
		})
		require.NoError(t, err)
		assert.Equal(t, billing.StatusPastDue, got.Status)
		assert.True(t, got.CancelAtPeriodEnd)
		assert.True(t, end.Equal(got.CurrentPeriodEnd))

		// Zero period end keeps the stored value.
		got, err = s.Update(ctx, "sub_1", billing.SubscriptionUpdate{Status: billing.StatusActive})
		require.NoError(t, err)
		assert.True(t, end.Equal(got.CurrentPeriodEnd))
		assert.False(t, got.CancelAtPeriodEnd)

		_, err = s.Update(ctx, "sub_missing", billing.SubscriptionUpdate{Status: billing.StatusActive})
		assert.ErrorIs(t, err, billing.ErrRecordNotFound)

		_, err = s.Update(ctx, "sub_1", billing.SubscriptionUpdate{Status: "bogus"})
		assert.ErrorIs(t, err, billing.ErrValidation)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, testRecord("sub_1", "a@b.com")))
		require.NoError(t, s.Delete(ctx, "sub_1"))
		assert.ErrorIs(t, s.Delete(ctx, "sub_1"), billing.ErrRecordNotFound)

		// The email is free again.
		require.NoError(t, s.Create(ctx, testRecord("sub_2", "a@b.com")))
	})

	t.Run("list", func(t *testing.T) {
		s := newStore(t)
		empty, err := s.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		older := testRecord("sub_1", "a@b.com")
		newer := testRecord("sub_2", "c@d.com")
		newer.CreatedAt = older.CreatedAt.Add(time.Hour)
		require.NoError(t, s.Create(ctx, older))
		require.NoError(t, s.Create(ctx, newer))

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "sub_2", all[0].SubscriptionID)

		mine, err := s.ListByEmail(ctx, "A@b.com")
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "sub_1", mine[0].SubscriptionID)

		none, err := s.ListByEmail(ctx, "nobody@b.com")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(*testing.T) billing.Store { return billing.NewMemoryStore() })
}

func TestRecordValidate(t *testing.T) {
	t.Parallel()

	rec := testRecord("sub_1", "a@b.com")
	require.NoError(t, rec.Validate())

	long := rec
	long.UserEmail = string(make([]byte, 101))
	assert.ErrorIs(t, long.Validate(), billing.ErrInvalidRecord)

	missing := billing.Record{}
	err := missing.Validate()
	assert.ErrorIs(t, err, billing.ErrValidation)
	assert.ErrorIs(t, err, billing.ErrInvalidRecord)
}

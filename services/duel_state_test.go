package services

import (
	"context"
	"testing"
	"time"

	"social-rpg-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testClock drives the service's injectable Now hook so window and deadline
// behavior can be exercised without sleeping.
type testClock struct{ now time.Time }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newDuelTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserProgression{}, &models.Duel{}))
	return db
}

func newTestDuelService(t *testing.T) (*DuelService, *testClock, *gorm.DB) {
	t.Helper()
	db := newDuelTestDB(t)
	clock := &testClock{now: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)}
	svc := NewDuelService(db, nil)
	svc.Now = func() time.Time { return clock.now }
	return svc, clock, db
}

func seedUserXP(t *testing.T, db *gorm.DB, userID string, xp int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserProgression{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Username:       userID,
		TotalXP:        xp,
	}).Error)
}

func reloadDuel(t *testing.T, db *gorm.DB, duelID string) *models.Duel {
	t.Helper()
	var duel models.Duel
	require.NoError(t, db.Where("id = ?", duelID).First(&duel).Error)
	return &duel
}

func TestChallengeRejectsSelfAndBots(t *testing.T) {
	svc, _, _ := newTestDuelService(t)

	_, err := svc.Challenge("alice", "alice")
	assert.ErrorIs(t, err, ErrSelfChallenge)

	svc.IsBot = func(userID string) bool { return userID == "hal" }
	_, err = svc.Challenge("alice", "hal")
	assert.ErrorIs(t, err, ErrBotOpponent)
}

func TestChallengeConflictWhileDuelOpen(t *testing.T) {
	svc, _, _ := newTestDuelService(t)

	_, err := svc.Challenge("alice", "bob")
	require.NoError(t, err)

	_, err = svc.Challenge("carol", "bob")
	assert.ErrorIs(t, err, ErrDuelConflict)
}

func TestAcceptAfterWindowLeavesDuelUntouched(t *testing.T) {
	svc, clock, db := newTestDuelService(t)
	seedUserXP(t, db, "alice", 1000)
	seedUserXP(t, db, "bob", 2000)

	duel, err := svc.Challenge("alice", "bob")
	require.NoError(t, err)

	clock.advance(svc.AcceptWindow + time.Minute)

	_, err = svc.Accept(duel.ID, "bob")
	assert.ErrorIs(t, err, ErrAcceptWindowClosed)

	// The record is untouched — the sweep owns the expiry transition
	stored := reloadDuel(t, db, duel.ID)
	assert.Equal(t, models.DuelPending, stored.Status)
	assert.Nil(t, stored.StartTime)
	assert.Nil(t, stored.EndTime)
	assert.Zero(t, stored.ChallengerStartXP)
	assert.Zero(t, stored.OpponentStartXP)
}

func TestAcceptSnapshotsStartXP(t *testing.T) {
	svc, clock, db := newTestDuelService(t)
	seedUserXP(t, db, "alice", 1000)
	seedUserXP(t, db, "bob", 2000)

	duel, err := svc.Challenge("alice", "bob")
	require.NoError(t, err)

	clock.advance(10 * time.Minute)
	accepted, err := svc.Accept(duel.ID, "bob")
	require.NoError(t, err)

	assert.Equal(t, models.DuelActive, accepted.Status)
	assert.Equal(t, int64(1000), accepted.ChallengerStartXP)
	assert.Equal(t, int64(2000), accepted.OpponentStartXP)
	require.NotNil(t, accepted.EndTime)
	assert.WithinDuration(t, clock.now.Add(svc.Duration), *accepted.EndTime, time.Second)
}

func TestAcceptByChallengerRejected(t *testing.T) {
	svc, _, _ := newTestDuelService(t)

	duel, err := svc.Challenge("alice", "bob")
	require.NoError(t, err)

	_, err = svc.Accept(duel.ID, "alice")
	assert.ErrorIs(t, err, ErrNotOpponent)
}

func TestBalancePenaltyStaysSetWhenRatioReturnsToBand(t *testing.T) {
	svc, _, db := newTestDuelService(t)
	seedUserXP(t, db, "alice", 1000)
	seedUserXP(t, db, "bob", 2000)

	duel, err := svc.Challenge("alice", "bob")
	require.NoError(t, err)
	_, err = svc.Accept(duel.ID, "bob")
	require.NoError(t, err)

	// All-warrior burst drifts alice's share to 1.0 and trips the flag
	require.NoError(t, svc.RecordGainsForUser("alice", 100, 0))
	stored := reloadDuel(t, db, duel.ID)
	assert.True(t, stored.ChallengerBalancePenalty)
	assert.False(t, stored.OpponentBalancePenalty)

	// Mage gains bring her back to a 0.5 share; the flag stays set
	require.NoError(t, svc.RecordGainsForUser("alice", 0, 100))
	stored = reloadDuel(t, db, duel.ID)
	assert.InDelta(t, 0.5, WarriorShare(stored.ChallengerWarriorGain, stored.ChallengerMageGain), 1e-9)
	assert.False(t, OutOfBand(0.5, svc.Band))
	assert.True(t, stored.ChallengerBalancePenalty)
}

func TestRecordGainsInBandNeverPenalizes(t *testing.T) {
	svc, _, db := newTestDuelService(t)
	seedUserXP(t, db, "alice", 1000)
	seedUserXP(t, db, "bob", 2000)

	duel, err := svc.Challenge("alice", "bob")
	require.NoError(t, err)
	_, err = svc.Accept(duel.ID, "bob")
	require.NoError(t, err)

	require.NoError(t, svc.RecordGainsForUser("bob", 55, 45))
	stored := reloadDuel(t, db, duel.ID)
	assert.Equal(t, int64(55), stored.OpponentWarriorGain)
	assert.Equal(t, int64(45), stored.OpponentMageGain)
	assert.False(t, stored.OpponentBalancePenalty)
}

func TestRecordGainsWithoutActiveDuelIsNoop(t *testing.T) {
	svc, _, _ := newTestDuelService(t)
	assert.NoError(t, svc.RecordGainsForUser("alice", 10, 10))
}

func TestExpirePendingSweepIsIdempotent(t *testing.T) {
	svc, clock, db := newTestDuelService(t)

	duel, err := svc.Challenge("alice", "bob")
	require.NoError(t, err)

	clock.advance(svc.AcceptWindow + time.Minute)

	expired, err := svc.ExpirePending()
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)
	assert.Equal(t, models.DuelExpired, reloadDuel(t, db, duel.ID).Status)

	expired, err = svc.ExpirePending()
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestFinalizeDueDecidesWinnerByNetXP(t *testing.T) {
	svc, clock, db := newTestDuelService(t)
	seedUserXP(t, db, "alice", 1000)
	seedUserXP(t, db, "bob", 2000)

	duel, err := svc.Challenge("alice", "bob")
	require.NoError(t, err)
	_, err = svc.Accept(duel.ID, "bob")
	require.NoError(t, err)

	// Finalizing before the end time is refused
	_, err = svc.Finalize(duel.ID)
	assert.ErrorIs(t, err, ErrDuelStillRunning)

	// Alice nets +500, bob stands still
	require.NoError(t, db.Model(&models.UserProgression{}).
		Where("external_user_id = ?", "alice").
		Update("total_xp", 1500).Error)

	clock.advance(svc.Duration + time.Minute)

	done, err := svc.FinalizeDue()
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	stored := reloadDuel(t, db, duel.ID)
	assert.Equal(t, models.DuelCompleted, stored.Status)
	assert.Equal(t, int64(1500), stored.ChallengerFinalXP)
	assert.Equal(t, int64(2000), stored.OpponentFinalXP)
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, "alice", *stored.WinnerID)

	// Re-finalizing a completed duel is a no-op with the stored outcome
	again, err := svc.Finalize(duel.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DuelCompleted, again.Status)
	require.NotNil(t, again.WinnerID)
	assert.Equal(t, "alice", *again.WinnerID)
}

// fakeCooldown stands in for redis and counts SetNX attempts.
type fakeCooldown struct {
	calls int
	allow bool
}

func (f *fakeCooldown) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.calls++
	return redis.NewBoolResult(f.allow, nil)
}

func TestChallengeConflictDoesNotConsumeCooldown(t *testing.T) {
	svc, _, _ := newTestDuelService(t)
	cooldown := &fakeCooldown{allow: true}
	svc.Redis = cooldown

	_, err := svc.Challenge("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, cooldown.calls)

	// Bob already has an open duel: the conflict is detected before the
	// cooldown key is taken, so carol keeps her challenge
	_, err = svc.Challenge("carol", "bob")
	assert.ErrorIs(t, err, ErrDuelConflict)
	assert.Equal(t, 1, cooldown.calls)
}

func TestChallengeOnCooldownRejected(t *testing.T) {
	svc, _, _ := newTestDuelService(t)
	svc.Redis = &fakeCooldown{allow: false}

	_, err := svc.Challenge("alice", "bob")
	assert.ErrorIs(t, err, ErrChallengeCooldown)
}

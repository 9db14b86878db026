package services

import (
	"testing"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionInsertUnseen(t *testing.T) {
	payload := &BattlePayload{BattleID: "b1"}

	transition, _ := DecideBattleTransition("INSERT", nil, payload)
	assert.Equal(t, TransitionInsert, transition)
}

func TestTransitionDuplicateInsertSkipped(t *testing.T) {
	existing := &models.Battle{BattleID: "b1"}
	payload := &BattlePayload{BattleID: "b1"}

	transition, reason := DecideBattleTransition("INSERT", existing, payload)
	assert.Equal(t, TransitionSkipDuplicate, transition)
	assert.Contains(t, reason, "already exists")
}

func TestTransitionLiveUpdateDropped(t *testing.T) {
	existing := &models.Battle{BattleID: "b1", WinnerDecided: false}
	payload := &BattlePayload{BattleID: "b1", PoolA: 99, WinnerDecided: false}

	// High-frequency volume updates while active are dropped on purpose.
	transition, _ := DecideBattleTransition("UPDATE", existing, payload)
	assert.Equal(t, TransitionDropLiveUpdate, transition)
}

func TestTransitionCompletion(t *testing.T) {
	existing := &models.Battle{BattleID: "b1", WinnerDecided: false}
	payload := &BattlePayload{BattleID: "b1", WinnerDecided: true, WinnerIsA: boolPtr(true)}

	transition, _ := DecideBattleTransition("UPDATE", existing, payload)
	assert.Equal(t, TransitionComplete, transition)
}

func TestTransitionCompletionRequiresWinnerSide(t *testing.T) {
	existing := &models.Battle{BattleID: "b1", WinnerDecided: false}
	payload := &BattlePayload{BattleID: "b1", WinnerDecided: true, WinnerIsA: nil}

	transition, _ := DecideBattleTransition("UPDATE", existing, payload)
	assert.NotEqual(t, TransitionComplete, transition, "completion without a winner side must not persist")
}

func TestTransitionCompletedIsTerminal(t *testing.T) {
	existing := &models.Battle{BattleID: "b1", WinnerDecided: true, WinnerIsA: boolPtr(false)}

	// Any further event is a no-op — including a contradictory payload
	// claiming the battle is undecided again.
	payloads := []*BattlePayload{
		{BattleID: "b1", WinnerDecided: true, WinnerIsA: boolPtr(true)},
		{BattleID: "b1", WinnerDecided: false, PoolA: 1000},
	}
	for _, p := range payloads {
		transition, reason := DecideBattleTransition("UPDATE", existing, p)
		assert.Equal(t, TransitionSkipFinalized, transition)
		assert.Contains(t, reason, "already finalized")
	}

	transition, _ := DecideBattleTransition("INSERT", existing, payloads[0])
	assert.Equal(t, TransitionSkipDuplicate, transition)
}

func TestTransitionUpdateForUnseenBattle(t *testing.T) {
	payload := &BattlePayload{BattleID: "b1", WinnerDecided: true, WinnerIsA: boolPtr(true)}

	// UPDATE-before-INSERT race: surfaced as not-found so the source
	// retries after the INSERT lands, never silently applied.
	transition, _ := DecideBattleTransition("UPDATE", nil, payload)
	assert.Equal(t, TransitionNotFound, transition)
}

func TestTransitionUnknownEventTypesIgnored(t *testing.T) {
	existing := &models.Battle{BattleID: "b1"}
	payload := &BattlePayload{BattleID: "b1"}

	for _, eventType := range []string{"DELETE", "TRUNCATE", ""} {
		transition, _ := DecideBattleTransition(eventType, existing, payload)
		assert.Equal(t, TransitionIgnore, transition, "type %q must be acknowledged without action", eventType)
	}
}

func TestBattleFromPayloadClampsAndClassifies(t *testing.T) {
	payload := &BattlePayload{
		BattleID:        "b1",
		ArtistAName:     "Nova",
		ArtistATrackURL: "https://open.spotify.com/track/x",
		ArtistBName:     "Drift",
		ArtistBTrackURL: "https://open.spotify.com/track/y",
		PoolA:           -3,
		PoolB:           7,
		TotalVolumeA:    -1,
		TradeCount:      -4,
	}

	b := BattleFromPayload(payload)

	require.NotEmpty(t, b.ID)
	assert.Equal(t, "b1", b.BattleID)
	assert.Equal(t, 0.0, b.PoolA)
	assert.Equal(t, 7.0, b.PoolB)
	assert.Equal(t, 0.0, b.TotalVolumeA)
	assert.Equal(t, int64(0), b.TradeCount)
	assert.Equal(t, "active", b.Status)
	assert.True(t, b.IsQuickBattle, "quick flag is recomputed from the track links")
}

func TestCompletionUpdatesClampNegatives(t *testing.T) {
	payload := &BattlePayload{
		BattleID:      "b1",
		PoolA:         -2,
		PoolB:         9,
		TotalVolumeA:  -7,
		TotalVolumeB:  11,
		TradeCount:    -12,
		UniqueTraders: -1,
		WinnerDecided: true,
		WinnerIsA:     boolPtr(true),
	}

	updates := completionUpdates(payload)

	assert.Equal(t, 0.0, updates["pool_a"])
	assert.Equal(t, 9.0, updates["pool_b"])
	assert.Equal(t, 0.0, updates["total_volume_a"])
	assert.Equal(t, 11.0, updates["total_volume_b"])
	assert.Equal(t, int64(0), updates["trade_count"])
	assert.Equal(t, int64(0), updates["unique_traders"])
	assert.Equal(t, true, updates["winner_decided"])
	assert.Equal(t, "completed", updates["status"])
}

func TestBattleFromPayloadTestBattleNeverQuick(t *testing.T) {
	payload := &BattlePayload{
		BattleID:        "b1",
		ArtistATrackURL: "https://open.spotify.com/track/x",
		ArtistBTrackURL: "https://open.spotify.com/track/y",
		IsTestBattle:    true,
	}

	b := BattleFromPayload(payload)
	assert.False(t, b.IsQuickBattle)
	assert.True(t, b.IsTestBattle)
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"
	"github.com/CandyToyBox/analytics-wave-warz-sub001/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVolumeFetcher struct {
	volumes map[string]workers.BattleVolumes
	fail    map[string]error
	calls   []string
}

func (f *fakeVolumeFetcher) FetchBattleVolumes(ctx context.Context, battleID string) (workers.BattleVolumes, error) {
	f.calls = append(f.calls, battleID)
	if err, ok := f.fail[battleID]; ok {
		return workers.BattleVolumes{}, err
	}
	return f.volumes[battleID], nil
}

type memoryVolumeStore struct {
	updates map[string]workers.BattleVolumes
	fail    map[string]error
}

func (m *memoryVolumeStore) UpdateVolumes(battleID string, v workers.BattleVolumes, scannedAt time.Time) error {
	if err, ok := m.fail[battleID]; ok {
		return err
	}
	if m.updates == nil {
		m.updates = make(map[string]workers.BattleVolumes)
	}
	m.updates[battleID] = v
	return nil
}

func newTestScanService(fetcher *fakeVolumeFetcher, store *memoryVolumeStore) (*ScanService, *[]time.Duration) {
	var sleeps []time.Duration
	svc := &ScanService{
		Volumes: fetcher,
		Store:   store,
		Sleep:   func(d time.Duration) { sleeps = append(sleeps, d) },
		Now:     time.Now,
	}
	return svc, &sleeps
}

func scanCandidates(ids ...string) []models.Battle {
	battles := make([]models.Battle, len(ids))
	for i, id := range ids {
		battles[i] = models.Battle{BattleID: id}
	}
	return battles
}

func TestScanContinuesPastItemFailure(t *testing.T) {
	fetcher := &fakeVolumeFetcher{
		volumes: map[string]workers.BattleVolumes{
			"b1": {TotalVolumeA: 1}, "b2": {TotalVolumeA: 2},
			"b4": {TotalVolumeA: 4}, "b5": {TotalVolumeA: 5},
		},
		fail: map[string]error{"b3": errors.New("indexer timeout")},
	}
	store := &memoryVolumeStore{}
	svc, _ := newTestScanService(fetcher, store)

	summary := svc.runScan(context.Background(), scanCandidates("b1", "b2", "b3", "b4", "b5"), false)

	assert.Equal(t, 5, summary.Scanned)
	assert.Equal(t, 4, summary.Success)
	assert.Equal(t, 1, summary.Errors)
	require.Len(t, summary.Results, 5)

	assert.Equal(t, "b3", summary.Results[2].BattleID)
	assert.Equal(t, "error", summary.Results[2].Status)
	assert.Contains(t, summary.Results[2].Error, "indexer timeout")

	// items after the failure were still processed
	assert.Equal(t, []string{"b1", "b2", "b3", "b4", "b5"}, fetcher.calls)
	assert.Len(t, store.updates, 4)
}

func TestScanPacesIndexerCalls(t *testing.T) {
	fetcher := &fakeVolumeFetcher{
		volumes: map[string]workers.BattleVolumes{"b1": {}, "b2": {}, "b3": {}},
	}
	svc, sleeps := newTestScanService(fetcher, &memoryVolumeStore{})

	svc.runScan(context.Background(), scanCandidates("b1", "b2", "b3"), false)

	// one fixed delay between consecutive indexer calls, none before the first
	require.Len(t, *sleeps, 2)
	for _, d := range *sleeps {
		assert.Equal(t, scanDelay, d)
	}
}

func TestScanSkipsRecentlyScanned(t *testing.T) {
	fetcher := &fakeVolumeFetcher{volumes: map[string]workers.BattleVolumes{"b2": {}}}
	svc, _ := newTestScanService(fetcher, &memoryVolumeStore{})

	recent := time.Now().Add(-1 * time.Minute)
	candidates := []models.Battle{
		{BattleID: "b1", LastScannedAt: &recent},
		{BattleID: "b2"},
	}

	summary := svc.runScan(context.Background(), candidates, false)

	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, []string{"b2"}, fetcher.calls, "fresh battles are not re-fetched")
}

func TestScanForceRefreshIgnoresStaleness(t *testing.T) {
	fetcher := &fakeVolumeFetcher{volumes: map[string]workers.BattleVolumes{"b1": {}, "b2": {}}}
	svc, _ := newTestScanService(fetcher, &memoryVolumeStore{})

	recent := time.Now().Add(-1 * time.Minute)
	candidates := []models.Battle{
		{BattleID: "b1", LastScannedAt: &recent},
		{BattleID: "b2"},
	}

	summary := svc.runScan(context.Background(), candidates, true)

	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.Success)
}

func TestScanClampsNegativeIndexerVolumes(t *testing.T) {
	fetcher := &fakeVolumeFetcher{
		volumes: map[string]workers.BattleVolumes{
			"b1": {TotalVolumeA: -4, TotalVolumeB: 6, TradeCount: -9, UniqueTraders: -2},
		},
	}
	store := &memoryVolumeStore{}
	svc, _ := newTestScanService(fetcher, store)

	summary := svc.runScan(context.Background(), scanCandidates("b1"), false)

	require.Equal(t, 1, summary.Success)
	assert.Equal(t, 0.0, summary.Results[0].TotalVolumeA)
	assert.Equal(t, 6.0, summary.Results[0].TotalVolumeB)

	stored := store.updates["b1"]
	assert.Equal(t, 0.0, stored.TotalVolumeA)
	assert.Equal(t, int64(0), stored.TradeCount)
	assert.Equal(t, int64(0), stored.UniqueTraders)
}

func TestScanRecordsStoreFailures(t *testing.T) {
	fetcher := &fakeVolumeFetcher{volumes: map[string]workers.BattleVolumes{"b1": {}, "b2": {}}}
	store := &memoryVolumeStore{fail: map[string]error{"b1": errors.New("write conflict")}}
	svc, _ := newTestScanService(fetcher, store)

	summary := svc.runScan(context.Background(), scanCandidates("b1", "b2"), false)

	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, "error", summary.Results[0].Status)
	assert.Equal(t, "success", summary.Results[1].Status)
}

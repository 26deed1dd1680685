package lineup

import (
	"testing"

	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeItemChannel() (*models.Channel, *models.Lineup) {
	channel := &models.Channel{
		StartTimeMs: 0,
		DurationMs:  210000,
	}
	lineup := &models.Lineup{
		Items: []models.LineupItem{
			{Position: 0, Type: models.LineupItemOffline, DurationMs: 60000},
			{Position: 1, Type: models.LineupItemOffline, DurationMs: 120000},
			{Position: 2, Type: models.LineupItemOffline, DurationMs: 30000},
		},
	}
	return channel, lineup
}

func TestResolve_S1_SimpleResolve(t *testing.T) {
	channel, lineup := threeItemChannel()
	resolved, err := Resolve(channel, lineup, 70000)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.Index)
	assert.Equal(t, int64(10000), resolved.TimeIntoItem)
}

func TestResolve_S2_StartSnap(t *testing.T) {
	channel, lineup := threeItemChannel()
	resolved, err := Resolve(channel, lineup, 65000)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.Index)
	assert.Equal(t, int64(0), resolved.TimeIntoItem)
	assert.Equal(t, int64(5000), resolved.Item.BeginningOffsetMs)
}

func TestResolve_S3_BoundarySmoothing(t *testing.T) {
	channel, lineup := threeItemChannel()
	resolved, err := Resolve(channel, lineup, 59995)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.Index)
	assert.Equal(t, int64(0), resolved.TimeIntoItem)
}

func TestResolve_BeforeStartTime(t *testing.T) {
	channel, lineup := threeItemChannel()
	channel.StartTimeMs = 100000
	resolved, err := Resolve(channel, lineup, 40000)
	require.NoError(t, err)
	assert.Equal(t, -1, resolved.Index)
	assert.Equal(t, models.LineupItemOffline, resolved.Item.Type)
	assert.Equal(t, int64(60000), resolved.Item.DurationMs)
}

func TestResolve_EmptyLineup(t *testing.T) {
	channel := &models.Channel{StartTimeMs: 0, DurationMs: 1000}
	_, err := Resolve(channel, &models.Lineup{}, 0)
	require.Error(t, err)
	var streamErr *models.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, models.KindLineupEmpty, streamErr.Kind)
}

func TestResolve_DurationMismatch(t *testing.T) {
	channel := &models.Channel{StartTimeMs: 0, DurationMs: 999999999}
	lineup := &models.Lineup{Items: []models.LineupItem{
		{Position: 0, Type: models.LineupItemOffline, DurationMs: 1000},
	}}
	_, err := Resolve(channel, lineup, 0)
	require.Error(t, err)
	var streamErr *models.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, models.KindLineupDurationMismatch, streamErr.Kind)
}

func TestResolve_WrapsAcrossLoop(t *testing.T) {
	channel, lineup := threeItemChannel()
	resolved, err := Resolve(channel, lineup, channel.DurationMs*3+70000)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.Index)
	assert.Equal(t, int64(10000), resolved.TimeIntoItem)
}

func TestResolve_TimeConservation(t *testing.T) {
	channel, lineup := threeItemChannel()
	for now := int64(0); now < channel.DurationMs; now += 3700 {
		resolved, err := Resolve(channel, lineup, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, resolved.TimeIntoItem, int64(0))
		if resolved.Index >= 0 {
			assert.Less(t, resolved.TimeIntoItem, lineup.Items[resolved.Index].DurationMs)
		}
	}
}

func TestResolve_DoesNotMutateInputLineup(t *testing.T) {
	channel, lineup := threeItemChannel()
	before := lineup.Items[1].DurationMs
	_, err := Resolve(channel, lineup, 70000)
	require.NoError(t, err)
	assert.Equal(t, before, lineup.Items[1].DurationMs)
}

package redirect

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanestream/broadcastcore/internal/lineup"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/store"
)

type fakeStore struct {
	channels map[uuid.UUID]*models.Channel
	lineups  map[uuid.UUID]*models.Lineup
}

func (f *fakeStore) GetChannel(_ context.Context, id uuid.UUID) (*models.Channel, error) {
	ch, ok := f.channels[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return ch, nil
}

func (f *fakeStore) GetChannelByNumber(_ context.Context, number int) (*models.Channel, error) {
	for _, ch := range f.channels {
		if ch.Number == number {
			return ch, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) LoadLineup(_ context.Context, channelID uuid.UUID) (*models.Lineup, error) {
	l, ok := f.lineups[channelID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return l, nil
}

func (f *fakeStore) LoadChannelAndLineup(ctx context.Context, id uuid.UUID) (*models.Channel, *models.Lineup, error) {
	ch, err := f.GetChannel(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	l, err := f.LoadLineup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return ch, l, nil
}

func (f *fakeStore) GetProgram(_ context.Context, id uuid.UUID) (*models.Program, error) {
	return nil, models.ErrNotFound
}

func (f *fakeStore) GetFillerCollections(_ context.Context, channel *models.Channel) ([]store.FillerCollection, error) {
	return nil, nil
}

func (f *fakeStore) FFmpegSettings(_ context.Context) (*store.FFmpegSettings, error) {
	return &store.FFmpegSettings{}, nil
}

func (f *fakeStore) GetEncodingProfile(_ context.Context, _ uuid.UUID) (*models.EncodingProfile, error) {
	return nil, models.ErrNotFound
}

var _ store.Store = (*fakeStore)(nil)

func TestWalk_NonRedirect_ReturnsUnchanged(t *testing.T) {
	resolved := &models.ResolvedItem{
		Item: models.StreamLineupItem{LineupItem: models.LineupItem{Type: models.LineupItemContent}},
	}
	got, err := Walk(context.Background(), &fakeStore{}, &models.Channel{}, resolved, 0)
	require.NoError(t, err)
	assert.Same(t, resolved, got)
}

func TestWalk_SingleHopToContent(t *testing.T) {
	targetID := uuid.New()
	fs := &fakeStore{
		channels: map[uuid.UUID]*models.Channel{
			targetID: {BaseModel: models.BaseModel{ID: targetID}, StartTimeMs: 0, DurationMs: 100000},
		},
		lineups: map[uuid.UUID]*models.Lineup{
			targetID: {ChannelID: targetID, Items: []models.LineupItem{
				{Position: 0, Type: models.LineupItemContent, DurationMs: 100000},
			}},
		},
	}
	startID := uuid.New()
	resolved := &models.ResolvedItem{
		Item: models.StreamLineupItem{
			LineupItem: models.LineupItem{
				Type:            models.LineupItemRedirect,
				TargetChannelID: &targetID,
			},
			StreamDurationMs: 600000,
		},
	}

	got, err := Walk(context.Background(), fs, &models.Channel{BaseModel: models.BaseModel{ID: startID} }, resolved, 50000)
	require.NoError(t, err)
	assert.Equal(t, models.LineupItemContent, got.Item.Type)
}

func TestWalk_S5_RedirectCycle(t *testing.T) {
	xID := uuid.New()
	yID := uuid.New()
	fs := &fakeStore{
		channels: map[uuid.UUID]*models.Channel{
			xID: {BaseModel: models.BaseModel{ID: xID}, StartTimeMs: 0, DurationMs: 600000},
			yID: {BaseModel: models.BaseModel{ID: yID}, StartTimeMs: 0, DurationMs: 600000},
		},
		lineups: map[uuid.UUID]*models.Lineup{
			xID: {ChannelID: xID, Items: []models.LineupItem{
				{Position: 0, Type: models.LineupItemRedirect, DurationMs: 600000, TargetChannelID: &yID},
			}},
			yID: {ChannelID: yID, Items: []models.LineupItem{
				{Position: 0, Type: models.LineupItemRedirect, DurationMs: 600000, TargetChannelID: &xID},
			}},
		},
	}

	xResolved, err := lineup.Resolve(fs.channels[xID], fs.lineups[xID], 0)
	require.NoError(t, err)

	got, err := Walk(context.Background(), fs, fs.channels[xID], xResolved, 0)
	require.Error(t, err)
	var streamErr *models.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, models.KindRedirectCycle, streamErr.Kind)

	require.NotNil(t, got)
	assert.Equal(t, models.LineupItemOffline, got.Item.Type)
	assert.Equal(t, int64(60000), got.Item.DurationMs)
	assert.Contains(t, got.Item.Error, xID.String())
	assert.Contains(t, got.Item.Error, yID.String())
}

func TestWalk_ClampsStreamDurationToBound(t *testing.T) {
	targetID := uuid.New()
	fs := &fakeStore{
		channels: map[uuid.UUID]*models.Channel{
			targetID: {BaseModel: models.BaseModel{ID: targetID}, StartTimeMs: 0, DurationMs: 100000},
		},
		lineups: map[uuid.UUID]*models.Lineup{
			targetID: {ChannelID: targetID, Items: []models.LineupItem{
				{Position: 0, Type: models.LineupItemContent, DurationMs: 100000},
			}},
		},
	}
	startID := uuid.New()
	resolved := &models.ResolvedItem{
		Item: models.StreamLineupItem{
			LineupItem: models.LineupItem{
				Type:            models.LineupItemRedirect,
				TargetChannelID: &targetID,
			},
			StreamDurationMs: 5000,
		},
	}

	got, err := Walk(context.Background(), fs, &models.Channel{BaseModel: models.BaseModel{ID: startID} }, resolved, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, got.Item.StreamDurationMs, int64(5000))
}

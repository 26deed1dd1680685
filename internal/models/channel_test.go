package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_TableName(t *testing.T) {
	c := Channel{}
	assert.Equal(t, "channels", c.TableName())
}

func TestChannel_Validate(t *testing.T) {
	tests := []struct {
		name    string
		channel Channel
		wantErr error
	}{
		{
			name: "valid channel",
			channel: Channel{
				Name:       "Test Channel",
				Number:     1,
				DurationMs: 60_000,
			},
			wantErr: nil,
		},
		{
			name: "missing name",
			channel: Channel{
				Number:     1,
				DurationMs: 60_000,
			},
			wantErr: ErrNameRequired,
		},
		{
			name: "missing number",
			channel: Channel{
				Name:       "Test Channel",
				DurationMs: 60_000,
			},
			wantErr: ErrChannelNumberRequired,
		},
		{
			name: "missing duration",
			channel: Channel{
				Name:   "Test Channel",
				Number: 1,
			},
			wantErr: ErrChannelDurationRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.channel.Validate()
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChannel_FullModel(t *testing.T) {
	id := uuid.New()
	fillerShowID := uuid.New()

	c := Channel{
		BaseModel:   BaseModel{ID: id},
		Name:        "Classic Movies",
		Number:      100,
		GroupTitle:  "Movies",
		StartTimeMs: 0,
		DurationMs:  210_000,
		Watermark: Watermark{
			Enabled:  true,
			URL:      "http://example.com/logo.png",
			Position: WatermarkTopRight,
		},
		OfflinePolicy: OfflinePolicy{
			Mode: OfflineModeClip,
		},
		FillerCollections: []FillerCollectionRef{
			{FillerShowID: fillerShowID, Weight: 1, CooldownMs: 0},
		},
	}

	assert.Equal(t, id, c.GetID())
	assert.NoError(t, c.Validate())
}

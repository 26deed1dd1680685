package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolPtr(t *testing.T) {
	tests := []struct {
		name  string
		input bool
	}{
		{"true", true},
		{"false", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptr := BoolPtr(tt.input)
			require.NotNil(t, ptr)
			assert.Equal(t, tt.input, *ptr)
		})
	}
}

func TestBoolVal(t *testing.T) {
	truePtr := true
	falsePtr := false
	tests := []struct {
		name     string
		input    *bool
		expected bool
	}{
		{"nil defaults to true", nil, true},
		{"true pointer", &truePtr, true},
		{"false pointer", &falsePtr, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BoolVal(tt.input))
		})
	}
}

func TestBoolValDefault(t *testing.T) {
	truePtr := true
	tests := []struct {
		name       string
		input      *bool
		defaultVal bool
		expected   bool
	}{
		{"nil uses default true", nil, true, true},
		{"nil uses default false", nil, false, false},
		{"non-nil ignores default", &truePtr, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BoolValDefault(tt.input, tt.defaultVal))
		})
	}
}

func TestBaseModel_BeforeCreate(t *testing.T) {
	t.Run("generates ID when zero", func(t *testing.T) {
		m := &BaseModel{}
		assert.Equal(t, uuid.Nil, m.ID)

		err := m.BeforeCreate(nil)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, m.ID, "BeforeCreate should set a non-zero ID")
	})

	t.Run("preserves existing ID", func(t *testing.T) {
		existing := uuid.New()
		m := &BaseModel{ID: existing}

		err := m.BeforeCreate(nil)
		require.NoError(t, err)
		assert.Equal(t, existing, m.ID, "BeforeCreate should not overwrite existing ID")
	})
}

func TestBaseModel_GetID(t *testing.T) {
	id := uuid.New()
	m := &BaseModel{ID: id}
	assert.Equal(t, id, m.GetID())
}

func TestEpochMillis_Roundtrip(t *testing.T) {
	now := time.Now().Round(time.Millisecond)
	ms := EpochMillis(now)
	back := FromEpochMillis(ms)
	assert.True(t, now.Equal(back))
}

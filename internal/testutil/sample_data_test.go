package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSampleDataGenerator(t *testing.T) {
	gen := NewSampleDataGenerator()
	require.NotNil(t, gen)
	require.NotNil(t, gen.rng)
}

func TestNewSampleDataGeneratorWithSeed(t *testing.T) {
	gen1 := NewSampleDataGeneratorWithSeed(42)
	gen2 := NewSampleDataGeneratorWithSeed(42)

	// Same seed should produce same results
	assert.Equal(t, gen1.RandomBroadcaster(), gen2.RandomBroadcaster())
}

func TestRandomBroadcaster(t *testing.T) {
	gen := NewSampleDataGenerator()

	for i := 0; i < 10; i++ {
		broadcaster := gen.RandomBroadcaster()
		assert.NotEmpty(t, broadcaster)
		assert.Contains(t, Broadcasters, broadcaster)
	}
}

func TestRandomQuality(t *testing.T) {
	gen := NewSampleDataGenerator()

	for i := 0; i < 10; i++ {
		quality := gen.RandomQuality()
		assert.NotEmpty(t, quality)
		assert.Contains(t, QualityVariants, quality)
	}
}

func TestRandomTimeshift(t *testing.T) {
	gen := NewSampleDataGenerator()

	for i := 0; i < 10; i++ {
		timeshift := gen.RandomTimeshift()
		assert.NotEmpty(t, timeshift)
		assert.Contains(t, TimeshiftVariants, timeshift)
	}
}

func TestGenerateChannelName(t *testing.T) {
	gen := NewSampleDataGenerator()

	tests := []struct {
		category      string
		expectedParts []string
	}{
		{"sports", []string{"Sports", "Racing", "Football"}},
		{"news", []string{"News", "Breaking", "World", "Local"}},
		{"movies", []string{"Movies", "Action", "Classic", "Cinema"}},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			name := gen.GenerateChannelName(tt.category)
			assert.NotEmpty(t, name)

			hasBroadcaster := false
			for _, b := range Broadcasters {
				if strings.Contains(name, b) {
					hasBroadcaster = true
					break
				}
			}
			assert.True(t, hasBroadcaster, "Channel name should contain a broadcaster: %s", name)

			hasCategory := false
			for _, p := range tt.expectedParts {
				if strings.Contains(name, p) {
					hasCategory = true
					break
				}
			}
			assert.True(t, hasCategory, "Channel name should contain category text: %s", name)
		})
	}
}

func TestGenerateTimeshiftChannelName(t *testing.T) {
	gen := NewSampleDataGenerator()

	name := gen.GenerateTimeshiftChannelName("sports")
	assert.NotEmpty(t, name)

	hasTimeshift := false
	for _, ts := range TimeshiftVariants {
		if strings.Contains(name, ts) {
			hasTimeshift = true
			break
		}
	}
	assert.True(t, hasTimeshift, "Channel name should contain timeshift: %s", name)
}

func TestGenerateSampleChannels(t *testing.T) {
	gen := NewSampleDataGenerator()
	opts := DefaultGenerateOptions()
	opts.Category = "sports"
	opts.TimeshiftRatio = 0.0 // No timeshift for predictable testing

	channels := gen.GenerateSampleChannels(10, opts)
	assert.Len(t, channels, 10)

	for i, ch := range channels {
		assert.Equal(t, 101+i, ch.Number)
		assert.NotEmpty(t, ch.Name)
		assert.NotEmpty(t, ch.IconURL)
		assert.Contains(t, ch.IconURL, "example.com")
		assert.Equal(t, "Sports", ch.GroupTitle)
		assert.Equal(t, opts.DurationMs, ch.DurationMs)
		assert.False(t, ch.Stealth)
	}
}

func TestGenerateSportsChannels(t *testing.T) {
	gen := NewSampleDataGenerator()
	channels := gen.GenerateSportsChannels(5)

	assert.Len(t, channels, 5)
	for _, ch := range channels {
		assert.Equal(t, "Sports", ch.GroupTitle)
	}
}

func TestGenerateNewsChannels(t *testing.T) {
	gen := NewSampleDataGenerator()
	channels := gen.GenerateNewsChannels(5)

	assert.Len(t, channels, 5)
	for _, ch := range channels {
		assert.Equal(t, "News", ch.GroupTitle)
	}
}

func TestGenerateStealthChannels(t *testing.T) {
	gen := NewSampleDataGenerator()
	channels := gen.GenerateStealthChannels(3)

	assert.Len(t, channels, 3)
	for _, ch := range channels {
		assert.Equal(t, "Stealth", ch.GroupTitle)
		assert.True(t, ch.Stealth)
	}
}

func TestGenerateTimeshiftChannels(t *testing.T) {
	gen := NewSampleDataGenerator()
	channels := gen.GenerateTimeshiftChannels(5, "news")

	assert.Len(t, channels, 5)
	for _, ch := range channels {
		hasTimeshift := false
		for _, ts := range TimeshiftVariants {
			if strings.Contains(ch.Name, ts) {
				hasTimeshift = true
				break
			}
		}
		assert.True(t, hasTimeshift, "Channel should have timeshift: %s", ch.Name)
	}
}

func TestGenerateStandardChannels(t *testing.T) {
	gen := NewSampleDataGenerator()
	channels := gen.GenerateStandardChannels(5, "movies")

	assert.Len(t, channels, 5)
	for _, ch := range channels {
		hasTimeshift := false
		for _, ts := range TimeshiftVariants {
			if strings.Contains(ch.Name, ts) {
				hasTimeshift = true
				break
			}
		}
		assert.False(t, hasTimeshift, "Channel should not have timeshift: %s", ch.Name)
	}
}

func TestGenerateMixedChannels(t *testing.T) {
	gen := NewSampleDataGenerator()
	channels := gen.GenerateMixedChannels(20)

	assert.Len(t, channels, 20)

	groupTitles := make(map[string]int)
	for _, ch := range channels {
		groupTitles[ch.GroupTitle]++
	}

	assert.GreaterOrEqual(t, len(groupTitles), 2, "Should have variety in categories")
}

func TestSampleChannelToChannel(t *testing.T) {
	sample := SampleChannel{
		Number:     101,
		Name:       "StreamCast Sports HD",
		GroupTitle: "Sports",
		IconURL:    "https://logos.example.com/channel1.png",
		DurationMs: 86400000,
		Stealth:    false,
	}

	channel := sample.ToChannel()

	assert.Equal(t, "StreamCast Sports HD", channel.Name)
	assert.Equal(t, 101, channel.Number)
	assert.Equal(t, "https://logos.example.com/channel1.png", channel.IconURL)
	assert.Equal(t, "Sports", channel.GroupTitle)
	assert.Equal(t, int64(86400000), channel.DurationMs)
	assert.False(t, channel.Stealth)
}

func TestProgramTemplates(t *testing.T) {
	assert.GreaterOrEqual(t, len(ProgramTemplates), 10, "Should have at least 10 program templates")

	for _, template := range ProgramTemplates {
		assert.NotEmpty(t, template.Title, "Template should have a title")
		assert.NotEmpty(t, template.Summary, "Template should have a summary")
		assert.NotEmpty(t, template.Category, "Template should have a category")
	}
}

func TestGeneratePrograms(t *testing.T) {
	gen := NewSampleDataGeneratorWithSeed(42)
	opts := DefaultProgramGenerateOptions()
	opts.Durations = []int{30, 60} // Use fixed durations for predictable testing

	programs := gen.GeneratePrograms(10, opts)
	assert.Len(t, programs, 10)

	for i, p := range programs {
		assert.Equal(t, opts.SourceID, p.ExternalSourceID)
		assert.Equal(t, fmt.Sprintf("prog-%d", i), p.ExternalKey)
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Summary)
		assert.NotEmpty(t, p.Category)
		assert.Greater(t, p.DurationMs, int64(0))
	}
}

func TestGenerateProgramsForChannels(t *testing.T) {
	gen := NewSampleDataGeneratorWithSeed(42)

	channels := gen.GenerateMixedChannels(5)
	opts := DefaultProgramGenerateOptions()

	byChannel := gen.GenerateProgramsForChannels(channels, 50, opts)
	assert.Equal(t, 5, len(byChannel), "Should have programs for all 5 channels")

	total := 0
	for _, ch := range channels {
		programs := byChannel[ch.Number]
		total += len(programs)
		assert.GreaterOrEqual(t, len(programs), 9, "Channel %d should have at least 9 programs", ch.Number)
		assert.LessOrEqual(t, len(programs), 11, "Channel %d should have at most 11 programs", ch.Number)
	}
	assert.Equal(t, 50, total)
}

func TestSampleProgramToProgram(t *testing.T) {
	sample := SampleProgram{
		ExternalSourceID: "sample",
		ExternalKey:      "prog-0",
		Type:             "episode",
		Title:            "Morning Report",
		Summary:          "Start your day with comprehensive news coverage.",
		Category:         "News",
		DurationMs:       1800000,
		Season:           1,
		Episode:          5,
		IconURL:          "https://icons.example.com/program/prog-0.jpg",
		Rating:           "TV-PG",
	}

	program := sample.ToProgram()

	assert.Equal(t, "sample", program.ExternalSourceID)
	assert.Equal(t, "prog-0", program.ExternalKey)
	assert.Equal(t, "Morning Report", program.Title)
	assert.Equal(t, "Start your day with comprehensive news coverage.", program.Summary)
	assert.Equal(t, int64(1800000), program.DurationMs)
	assert.Equal(t, 1, program.Season)
	assert.Equal(t, 5, program.Episode)
	assert.Equal(t, "https://icons.example.com/program/prog-0.jpg", program.IconURL)
	assert.Equal(t, "TV-PG", program.Rating)
}

func TestProgramDurations(t *testing.T) {
	assert.Contains(t, ProgramDurations, 30)
	assert.Contains(t, ProgramDurations, 60)
	assert.GreaterOrEqual(t, len(ProgramDurations), 4, "Should have at least 4 duration options")
}

func TestGenerateLineup(t *testing.T) {
	gen := NewSampleDataGeneratorWithSeed(7)
	opts := DefaultProgramGenerateOptions()
	samples := gen.GeneratePrograms(5, opts)

	programs := make([]*models.Program, len(samples))
	for i := range samples {
		programs[i] = samples[i].ToProgram()
		programs[i].ID = uuid.New()
	}

	channelID := uuid.New()
	lineup := GenerateLineup(channelID, programs)

	require.Len(t, lineup.Items, 5)
	assert.Equal(t, channelID, lineup.ChannelID)

	var total int64
	for i, item := range lineup.Items {
		assert.Equal(t, i, item.Position)
		assert.Equal(t, models.LineupItemContent, item.Type)
		require.NotNil(t, item.ProgramID)
		assert.Equal(t, programs[i].ID, *item.ProgramID)
		total += item.DurationMs
	}
	assert.Equal(t, total, lineup.TotalDurationMs())
}

func TestGenerateFillerShow(t *testing.T) {
	gen := NewSampleDataGeneratorWithSeed(7)
	show := gen.GenerateFillerShow("bumpers", 4)

	assert.Equal(t, "bumpers", show.Name)
	require.Len(t, show.Clips, 4)
	for _, clip := range show.Clips {
		assert.NotEqual(t, uuid.Nil, clip.ID)
		assert.Greater(t, clip.DurationMs, int64(0))
		assert.NotEmpty(t, clip.Title)
		assert.NotEmpty(t, clip.FilePath)
	}
}

func TestContainsTimeshift(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"StreamCast News +1", true},
		{"ViewMedia Sports +2", true},
		{"AeroVision Movies +24", true},
		{"GlobalStream Entertainment +1h", true},
		{"NationalNet Music HD", false},
		{"SportsCentral Kids", false},
		{"CinemaMax News", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := containsTimeshift(tt.name)
			assert.Equal(t, tt.expected, result, "containsTimeshift(%q)", tt.name)
		})
	}
}

func TestNoRealBrandNames(t *testing.T) {
	realBrands := []string{
		"BBC", "CNN", "ESPN", "HBO", "Sky", "Fox", "NBC", "CBS",
		"Netflix", "Disney", "Paramount", "Discovery", "MTV",
	}

	for _, brand := range Broadcasters {
		for _, real := range realBrands {
			assert.NotEqual(t, strings.ToUpper(brand), strings.ToUpper(real),
				"Broadcaster should not be a real brand: %s", real)
		}
	}

	gen := NewSampleDataGenerator()
	for i := 0; i < 100; i++ {
		name := gen.GenerateChannelName("entertainment")
		words := strings.Fields(name)
		if len(words) > 0 {
			firstWord := strings.ToUpper(words[0])
			for _, real := range realBrands {
				assert.NotEqual(t, firstWord, strings.ToUpper(real),
					"Generated channel name should not start with real brand: %s in %s", real, name)
			}
		}
	}
}

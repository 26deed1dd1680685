// Package testutil provides test utilities including sample data generation.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/lanestream/broadcastcore/internal/models"
)

// Standard fictional broadcasters for test data.
// NEVER use real brand names like BBC, ESPN, HBO, Sky, etc.
var (
	Broadcasters = []string{
		"StreamCast",
		"ViewMedia",
		"AeroVision",
		"GlobalStream",
		"NationalNet",
		"SportsCentral",
		"CinemaMax",
		"MusicMax",
		"NewsFirst",
		"PrimeTV",
	}

	ChannelVariants = []string{
		"One",
		"Two",
		"Three",
		"Prime",
		"Plus",
		"Max",
		"Gold",
		"Extra",
	}

	QualityVariants = []string{
		"HD",
		"SD",
		"4K",
		"UHD",
	}

	TimeshiftVariants = []string{
		"+1",
		"+2",
		"+24",
		"+1h",
	}

	// Categories with their associated channel name suffixes
	Categories = map[string][]string{
		"news": {
			"News",
			"News HD",
			"Breaking News",
			"World News",
			"Local News",
		},
		"sports": {
			"Sports",
			"Sports HD",
			"Racing HD",
			"Football HD",
			"Sports Extra",
		},
		"movies": {
			"Movies",
			"Movies HD",
			"Action Movies HD",
			"Classic Movies",
			"Cinema",
		},
		"entertainment": {
			"Entertainment",
			"Entertainment HD",
			"Lifestyle",
			"Comedy",
			"Drama",
		},
		"stealth": {
			"After Hours",
			"Late Night",
			"Backlot",
			"Reserve",
		},
		"music": {
			"Music",
			"Music HD",
			"Hits",
			"Classic Hits",
			"Dance",
		},
		"kids": {
			"Kids",
			"Kids HD",
			"Cartoons",
			"Junior",
			"Family",
		},
	}

	// ProgramTemplates provides fictional program titles and summaries.
	// NEVER use real show names, movie titles, or trademarked content.
	ProgramTemplates = []ProgramTemplate{
		// News programs
		{Title: "Morning Report", Summary: "Start your day with comprehensive news coverage and weather updates.", Category: "News"},
		{Title: "Midday Bulletin", Summary: "Midday news roundup with the latest headlines.", Category: "News"},
		{Title: "Evening Edition", Summary: "In-depth coverage of the day's major stories.", Category: "News"},
		{Title: "World Tonight", Summary: "International news and global affairs.", Category: "News"},
		{Title: "Business Update", Summary: "Financial markets and business news analysis.", Category: "News"},
		{Title: "Weather Watch", Summary: "Detailed weather forecasts and climate updates.", Category: "News"},

		// Entertainment programs
		{Title: "Morning Show Live", Summary: "Wake up with interviews, music, and lifestyle features.", Category: "Entertainment"},
		{Title: "Talk of the Town", Summary: "Celebrity interviews and entertainment news.", Category: "Entertainment"},
		{Title: "Quiz Masters", Summary: "Test your knowledge in this exciting game show.", Category: "Entertainment"},
		{Title: "Talent Search", Summary: "Discover the next big star in this competition series.", Category: "Entertainment"},
		{Title: "Cooking Challenge", Summary: "Chefs compete to create the ultimate dish.", Category: "Entertainment"},
		{Title: "Home Renovation", Summary: "Transform living spaces with expert designers.", Category: "Lifestyle"},
		{Title: "Garden Time", Summary: "Tips and ideas for your outdoor spaces.", Category: "Lifestyle"},
		{Title: "Travel Journeys", Summary: "Explore destinations around the world.", Category: "Lifestyle"},

		// Drama programs
		{Title: "City Hospital", Summary: "Drama unfolds in a busy metropolitan medical center.", Category: "Drama"},
		{Title: "Legal Eagles", Summary: "Lawyers fight for justice in complex cases.", Category: "Drama"},
		{Title: "Family Matters", Summary: "A family navigates the challenges of modern life.", Category: "Drama"},
		{Title: "Crime Division", Summary: "Detectives solve mysterious cases in the city.", Category: "Drama"},
		{Title: "Historical Tales", Summary: "Period drama set in a bygone era.", Category: "Drama"},

		// Comedy programs
		{Title: "Laugh Track", Summary: "Stand-up comedy from emerging talents.", Category: "Comedy"},
		{Title: "Sitcom Central", Summary: "Hilarious adventures of quirky characters.", Category: "Comedy"},
		{Title: "Comedy Hour", Summary: "The best in sketch comedy and improvisation.", Category: "Comedy"},

		// Sports programs
		{Title: "Sports Central", Summary: "All the latest sports news and highlights.", Category: "Sports"},
		{Title: "Match Day", Summary: "Live coverage of today's big game.", Category: "Sports"},
		{Title: "Sports Analysis", Summary: "Expert commentary and game breakdowns.", Category: "Sports"},
		{Title: "Fitness Focus", Summary: "Workout tips and health advice.", Category: "Sports"},
		{Title: "Extreme Sports", Summary: "Adrenaline-pumping action sports coverage.", Category: "Sports"},

		// Movies (generic summaries, no real titles)
		{Title: "Action Feature", Summary: "High-octane thrills and explosive excitement.", Category: "Movies"},
		{Title: "Drama Feature", Summary: "A compelling story of human triumph.", Category: "Movies"},
		{Title: "Comedy Feature", Summary: "Laugh-out-loud entertainment for the whole family.", Category: "Movies"},
		{Title: "Thriller Feature", Summary: "Edge-of-your-seat suspense and mystery.", Category: "Movies"},
		{Title: "Romance Feature", Summary: "A heartwarming tale of love and connection.", Category: "Movies"},
		{Title: "Sci-Fi Feature", Summary: "Journey to new worlds and distant futures.", Category: "Movies"},
		{Title: "Classic Cinema", Summary: "Timeless storytelling from the golden age.", Category: "Movies"},

		// Documentary programs
		{Title: "Nature World", Summary: "Stunning wildlife and natural wonders.", Category: "Documentary"},
		{Title: "History Uncovered", Summary: "Revealing secrets from the past.", Category: "Documentary"},
		{Title: "Science Today", Summary: "The latest discoveries and innovations.", Category: "Documentary"},
		{Title: "True Stories", Summary: "Real-life accounts of extraordinary events.", Category: "Documentary"},
		{Title: "Ocean Explorer", Summary: "Dive into the mysteries of the deep sea.", Category: "Documentary"},

		// Kids programs
		{Title: "Cartoon Time", Summary: "Fun animated adventures for young viewers.", Category: "Kids"},
		{Title: "Learning Fun", Summary: "Educational entertainment for children.", Category: "Kids"},
		{Title: "Story Corner", Summary: "Classic tales brought to life.", Category: "Kids"},
		{Title: "Art Studio", Summary: "Creative activities and crafts for kids.", Category: "Kids"},
		{Title: "Animal Friends", Summary: "Meet amazing animals from around the world.", Category: "Kids"},

		// Music programs
		{Title: "Music Mix", Summary: "The hottest tracks and artist interviews.", Category: "Music"},
		{Title: "Classic Sounds", Summary: "Timeless music from legendary artists.", Category: "Music"},
		{Title: "Live Sessions", Summary: "Exclusive live performances.", Category: "Music"},
		{Title: "Chart Show", Summary: "This week's top music countdown.", Category: "Music"},
	}

	// ProgramDurations contains common program lengths in minutes.
	ProgramDurations = []int{10, 15, 30, 60, 90, 120}
)

// ProgramTemplate represents a template for generating program data.
type ProgramTemplate struct {
	Title    string
	Summary  string
	Category string
}

// SampleChannel represents a generated sample channel for testing.
type SampleChannel struct {
	Number     int
	Name       string
	GroupTitle string
	IconURL    string
	DurationMs int64
	Stealth    bool
}

// ToChannel converts a SampleChannel to a models.Channel.
func (s *SampleChannel) ToChannel() *models.Channel {
	return &models.Channel{
		Name:        s.Name,
		Number:      s.Number,
		GroupTitle:  s.GroupTitle,
		IconURL:     s.IconURL,
		DurationMs:  s.DurationMs,
		StartTimeMs: models.EpochMillis(models.Now()),
		Stealth:     s.Stealth,
	}
}

// SampleDataGenerator generates realistic but fictional broadcast data for testing.
type SampleDataGenerator struct {
	rng *rand.Rand
}

// NewSampleDataGenerator creates a new sample data generator with a random seed.
func NewSampleDataGenerator() *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
}

// NewSampleDataGeneratorWithSeed creates a new generator with a fixed seed for reproducibility.
func NewSampleDataGeneratorWithSeed(seed int64) *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// RandomBroadcaster returns a random broadcaster name.
func (g *SampleDataGenerator) RandomBroadcaster() string {
	return Broadcasters[g.rng.Intn(len(Broadcasters))]
}

// RandomQuality returns a random quality variant (HD, SD, 4K, UHD).
func (g *SampleDataGenerator) RandomQuality() string {
	return QualityVariants[g.rng.Intn(len(QualityVariants))]
}

// RandomTimeshift returns a random timeshift variant (+1, +2, etc).
func (g *SampleDataGenerator) RandomTimeshift() string {
	return TimeshiftVariants[g.rng.Intn(len(TimeshiftVariants))]
}

// RandomChannelFromCategory returns a random channel suffix for the given category.
func (g *SampleDataGenerator) RandomChannelFromCategory(category string) string {
	channels, ok := Categories[category]
	if !ok {
		channels = Categories["entertainment"]
	}
	return channels[g.rng.Intn(len(channels))]
}

// GenerateChannelName generates a full channel name with broadcaster.
func (g *SampleDataGenerator) GenerateChannelName(category string) string {
	broadcaster := g.RandomBroadcaster()
	suffix := g.RandomChannelFromCategory(category)
	return fmt.Sprintf("%s %s", broadcaster, suffix)
}

// GenerateTimeshiftChannelName generates a channel name with timeshift suffix.
func (g *SampleDataGenerator) GenerateTimeshiftChannelName(category string) string {
	base := g.GenerateChannelName(category)
	timeshift := g.RandomTimeshift()
	return fmt.Sprintf("%s %s", base, timeshift)
}

// GenerateOptions configures channel generation.
type GenerateOptions struct {
	Category        string  // Category filter (news, sports, movies, entertainment, stealth, music, kids)
	TimeshiftRatio  float64 // Ratio of timeshift channels (0.0-1.0)
	StartChannelNum int     // Starting channel number
	LogoURLBase     string  // Base URL for logos (defaults to logos.example.com)
	DurationMs      int64   // Lineup loop length each generated channel carries
}

// DefaultGenerateOptions returns default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Category:        "entertainment",
		TimeshiftRatio:  0.2,
		StartChannelNum: 101,
		LogoURLBase:     "https://logos.example.com/channel",
		DurationMs:      (24 * time.Hour).Milliseconds(),
	}
}

// GenerateSampleChannels generates multiple sample channels for testing.
func (g *SampleDataGenerator) GenerateSampleChannels(count int, opts GenerateOptions) []SampleChannel {
	channels := make([]SampleChannel, count)

	for i := 0; i < count; i++ {
		var channelName string
		if g.rng.Float64() < opts.TimeshiftRatio {
			channelName = g.GenerateTimeshiftChannelName(opts.Category)
		} else {
			channelName = g.GenerateChannelName(opts.Category)
		}

		groupTitle := opts.Category
		if groupTitle == "" {
			groupTitle = "entertainment"
		}
		// Capitalize first letter
		if len(groupTitle) > 0 {
			groupTitle = string(groupTitle[0]-32) + groupTitle[1:]
		}

		channels[i] = SampleChannel{
			Number:     opts.StartChannelNum + i,
			Name:       channelName,
			GroupTitle: groupTitle,
			IconURL:    fmt.Sprintf("%s%d.png", opts.LogoURLBase, i+1),
			DurationMs: opts.DurationMs,
			Stealth:    opts.Category == "stealth",
		}
	}

	return channels
}

// GenerateSportsChannels generates sports channels.
func (g *SampleDataGenerator) GenerateSportsChannels(count int) []SampleChannel {
	opts := DefaultGenerateOptions()
	opts.Category = "sports"
	return g.GenerateSampleChannels(count, opts)
}

// GenerateNewsChannels generates news channels.
func (g *SampleDataGenerator) GenerateNewsChannels(count int) []SampleChannel {
	opts := DefaultGenerateOptions()
	opts.Category = "news"
	return g.GenerateSampleChannels(count, opts)
}

// GenerateMovieChannels generates movie channels.
func (g *SampleDataGenerator) GenerateMovieChannels(count int) []SampleChannel {
	opts := DefaultGenerateOptions()
	opts.Category = "movies"
	return g.GenerateSampleChannels(count, opts)
}

// GenerateStealthChannels generates stealth channels (hidden from public listings).
func (g *SampleDataGenerator) GenerateStealthChannels(count int) []SampleChannel {
	opts := DefaultGenerateOptions()
	opts.Category = "stealth"
	return g.GenerateSampleChannels(count, opts)
}

// GenerateTimeshiftChannels generates channels with timeshift suffixes.
func (g *SampleDataGenerator) GenerateTimeshiftChannels(count int, category string) []SampleChannel {
	opts := DefaultGenerateOptions()
	opts.Category = category
	opts.TimeshiftRatio = 1.0 // All channels will be timeshift
	return g.GenerateSampleChannels(count, opts)
}

// GenerateStandardChannels generates channels without timeshift suffixes.
func (g *SampleDataGenerator) GenerateStandardChannels(count int, category string) []SampleChannel {
	opts := DefaultGenerateOptions()
	opts.Category = category
	opts.TimeshiftRatio = 0.0 // No timeshift channels
	return g.GenerateSampleChannels(count, opts)
}

// GenerateMixedChannels generates a mix of channels from different categories.
func (g *SampleDataGenerator) GenerateMixedChannels(count int) []SampleChannel {
	categories := []string{"news", "sports", "movies", "entertainment", "music", "kids"}
	channels := make([]SampleChannel, count)

	for i := 0; i < count; i++ {
		category := categories[g.rng.Intn(len(categories))]
		opts := DefaultGenerateOptions()
		opts.Category = category
		opts.StartChannelNum = 101 + i

		generated := g.GenerateSampleChannels(1, opts)
		if len(generated) > 0 {
			channels[i] = generated[0]
			channels[i].Number = 101 + i
		}
	}

	return channels
}

// SampleProgram represents a generated sample program for testing.
type SampleProgram struct {
	ExternalSourceID string
	ExternalKey      string
	Type             models.ProgramType
	Title            string
	Summary          string
	Category         string
	DurationMs       int64
	Season           int
	Episode          int
	IconURL          string
	Rating           string
}

// ToProgram converts a SampleProgram to a models.Program.
func (s *SampleProgram) ToProgram() *models.Program {
	return &models.Program{
		SourceType:       models.SourceType("testutil"),
		ExternalSourceID: s.ExternalSourceID,
		ExternalKey:      s.ExternalKey,
		Type:             s.Type,
		DurationMs:       s.DurationMs,
		Title:            s.Title,
		Summary:          s.Summary,
		Season:           s.Season,
		Episode:          s.Episode,
		IconURL:          s.IconURL,
		Rating:           s.Rating,
	}
}

// ProgramGenerateOptions configures program generation.
type ProgramGenerateOptions struct {
	Durations        []int  // Available durations in minutes
	SourceID         string // ExternalSourceID stamped on every generated program
	KeyPrefix        string // Prefix for the generated ExternalKey sequence
	IconURLBase      string // Base URL for program icons
	IncludeRating    bool   // Whether to include ratings
	IncludeEpisode   bool   // Whether to include season/episode numbers
}

// DefaultProgramGenerateOptions returns default program generation options.
func DefaultProgramGenerateOptions() ProgramGenerateOptions {
	return ProgramGenerateOptions{
		Durations:      ProgramDurations,
		SourceID:       "sample",
		KeyPrefix:      "prog",
		IconURLBase:    "https://icons.example.com/program",
		IncludeRating:  true,
		IncludeEpisode: true,
	}
}

// Ratings for program content.
var programRatings = []string{"TV-G", "TV-PG", "TV-14", "TV-MA", "G", "PG", "PG-13", "R", ""}

// programTypeForCategory maps a template category onto a models.ProgramType.
func programTypeForCategory(category string) models.ProgramType {
	switch category {
	case "Movies":
		return models.ProgramTypeMovie
	case "Music":
		return models.ProgramTypeTrack
	default:
		return models.ProgramTypeEpisode
	}
}

// GeneratePrograms generates count standalone sample programs.
func (g *SampleDataGenerator) GeneratePrograms(count int, opts ProgramGenerateOptions) []SampleProgram {
	programs := make([]SampleProgram, count)

	for i := 0; i < count; i++ {
		duration := opts.Durations[g.rng.Intn(len(opts.Durations))]
		template := ProgramTemplates[g.rng.Intn(len(ProgramTemplates))]

		var season, episode int
		if opts.IncludeEpisode && g.rng.Float32() > 0.5 {
			season = g.rng.Intn(10) + 1
			episode = g.rng.Intn(20) + 1
		}

		var rating string
		if opts.IncludeRating {
			rating = programRatings[g.rng.Intn(len(programRatings))]
		}

		var icon string
		if g.rng.Float32() > 0.3 {
			icon = fmt.Sprintf("%s/%s_%d.jpg", opts.IconURLBase, opts.KeyPrefix, i)
		}

		programs[i] = SampleProgram{
			ExternalSourceID: opts.SourceID,
			ExternalKey:      fmt.Sprintf("%s-%d", opts.KeyPrefix, i),
			Type:             programTypeForCategory(template.Category),
			Title:            template.Title,
			Summary:          template.Summary,
			Category:         template.Category,
			DurationMs:       int64(time.Duration(duration) * time.Minute / time.Millisecond),
			Season:           season,
			Episode:          episode,
			IconURL:          icon,
			Rating:           rating,
		}
	}

	return programs
}

// GenerateProgramsForChannels distributes totalPrograms across channels, keyed
// by channel number, to seed each channel's content pool before building a lineup.
func (g *SampleDataGenerator) GenerateProgramsForChannels(channels []SampleChannel, totalPrograms int, opts ProgramGenerateOptions) map[int][]SampleProgram {
	if len(channels) == 0 {
		return nil
	}

	result := make(map[int][]SampleProgram, len(channels))
	perChannel := totalPrograms / len(channels)
	extra := totalPrograms % len(channels)

	for i, ch := range channels {
		count := perChannel
		if i < extra {
			count++
		}
		channelOpts := opts
		channelOpts.KeyPrefix = fmt.Sprintf("%s-ch%d", opts.KeyPrefix, ch.Number)
		result[ch.Number] = g.GeneratePrograms(count, channelOpts)
	}

	return result
}

// GenerateLineup builds a looping content lineup for channelID out of programs,
// assigning sequential positions and durations that match each program's own.
func GenerateLineup(channelID uuid.UUID, programs []*models.Program) *models.Lineup {
	items := make([]models.LineupItem, len(programs))
	for i, p := range programs {
		id := p.ID
		items[i] = models.LineupItem{
			ChannelID:  channelID,
			Position:   i,
			Type:       models.LineupItemContent,
			DurationMs: p.DurationMs,
			ProgramID:  &id,
		}
	}
	return &models.Lineup{ChannelID: channelID, Items: items}
}

// GenerateFillerShow builds a filler show with clipCount clips of fictional
// short-form content, each with a random duration drawn from ProgramDurations.
func (g *SampleDataGenerator) GenerateFillerShow(name string, clipCount int) *models.FillerShow {
	clips := make([]models.FillerClip, clipCount)
	for i := 0; i < clipCount; i++ {
		durationMin := ProgramDurations[g.rng.Intn(len(ProgramDurations))]
		clips[i] = models.FillerClip{
			ID:         uuid.New(),
			DurationMs: int64(time.Duration(durationMin) * time.Minute / time.Millisecond),
			Title:      fmt.Sprintf("%s clip %d", name, i+1),
			FilePath:   fmt.Sprintf("/filler/%s/clip-%d.mp4", name, i+1),
		}
	}
	return &models.FillerShow{Name: name, Clips: clips}
}

// containsTimeshift checks if a channel name indicates a timeshift channel.
func containsTimeshift(name string) bool {
	timeshiftIndicators := []string{"+1", "+2", "+24", "+1h", "+2h"}
	for _, indicator := range timeshiftIndicators {
		if len(name) >= len(indicator) {
			// Check if the name ends with or contains the indicator
			for i := 0; i <= len(name)-len(indicator); i++ {
				if name[i:i+len(indicator)] == indicator {
					return true
				}
			}
		}
	}
	return false
}

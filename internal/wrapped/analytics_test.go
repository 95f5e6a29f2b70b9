package wrapped

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testYear = 2025

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Couple{},
		&models.Prompt{},
		&models.Entry{},
		&models.WrappedSnapshot{},
	))
	return db
}

type fixture struct {
	db     *gorm.DB
	couple *models.Couple
	alice  *models.User
	bob    *models.User

	promptSeq int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	alice := &models.User{Email: "alice@example.com", Username: "alice"}
	bob := &models.User{Email: "bob@example.com", Username: "bob"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	couple := &models.Couple{
		Member1ID:  alice.ID,
		Member2ID:  &bob.ID,
		InviteCode: "wrapped-test",
		Timezone:   "UTC",
	}
	require.NoError(t, db.Create(couple).Error)

	return &fixture{db: db, couple: couple, alice: alice, bob: bob}
}

// addPrompt seeds a prompt on a unique date inside the test year.
func (f *fixture) addPrompt(t *testing.T, category string) *models.Prompt {
	t.Helper()
	f.promptSeq++
	p := &models.Prompt{
		Text:       fmt.Sprintf("prompt %d", f.promptSeq),
		Category:   category,
		ActiveDate: time.Date(testYear, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, f.promptSeq-1),
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) addEntry(t *testing.T, userID, promptID uint, text string, score *float64, at time.Time) {
	t.Helper()
	e := &models.Entry{
		UserID:         userID,
		PromptID:       promptID,
		CoupleID:       &f.couple.ID,
		TextContent:    text,
		SentimentScore: score,
	}
	require.NoError(t, f.db.Create(e).Error)
	require.NoError(t, f.db.Model(e).UpdateColumn("created_at", at).Error)
}

// addPair seeds one prompt answered by both members with the given scores.
func (f *fixture) addPair(t *testing.T, s1, s2 *float64, at time.Time) *models.Prompt {
	t.Helper()
	p := f.addPrompt(t, models.VibeWholesome)
	f.addEntry(t, f.alice.ID, p.ID, "alice words here", s1, at)
	f.addEntry(t, f.bob.ID, p.ID, "bob words here", s2, at)
	return p
}

func ptr(v float64) *float64 { return &v }

func midYear(month time.Month, day int) time.Time {
	return time.Date(testYear, month, day, 12, 0, 0, 0, time.UTC)
}

func TestSyncScore(t *testing.T) {
	cases := []struct {
		name   string
		s1, s2 float64
		want   float64
	}{
		{"perfect sync", 0.5, 0.5, 1.0},
		{"opposite poles", 1.0, -1.0, 0.0},
		{"half unit apart", 0.2, -0.3, 0.75},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.addPair(t, ptr(tc.s1), ptr(tc.s2), midYear(time.March, 1))

			summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
			require.NoError(t, err)
			require.NotNil(t, summary.SyncScore)
			assert.InDelta(t, tc.want, *summary.SyncScore, 0.0005)
		})
	}

	t.Run("no scored pairs yields none", func(t *testing.T) {
		f := newFixture(t)
		f.addPair(t, nil, nil, midYear(time.March, 1))

		summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
		require.NoError(t, err)
		assert.Nil(t, summary.SyncScore)
	})
}

func TestResponseRate(t *testing.T) {
	t.Run("four of ten prompts paired", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < 4; i++ {
			f.addPair(t, ptr(0.1), ptr(0.1), midYear(time.April, i+1))
		}
		// Six more prompts in the year nobody paired on.
		for i := 0; i < 6; i++ {
			f.addPrompt(t, models.VibeLore)
		}

		summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 0.4, summary.ResponseRate, 0.0005)
	})

	t.Run("no prompts yields zero", func(t *testing.T) {
		f := newFixture(t)
		summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
		require.NoError(t, err)
		assert.Zero(t, summary.ResponseRate)
	})
}

func TestJoyToughAndSupportMoments(t *testing.T) {
	f := newFixture(t)

	// Two joy days, the second one stronger.
	f.addPair(t, ptr(0.4), ptr(0.5), midYear(time.February, 1))
	joyPrompt := f.addPair(t, ptr(0.9), ptr(0.8), midYear(time.February, 2))
	// One tough day.
	f.addPair(t, ptr(-0.5), ptr(-0.3), midYear(time.February, 3))
	// One support moment: gap 0.9 >= 0.5.
	f.addPair(t, ptr(0.6), ptr(-0.3), midYear(time.February, 4))
	// Boundary cases: exactly at thresholds count.
	f.addPair(t, ptr(0.3), ptr(0.3), midYear(time.February, 5))
	f.addPair(t, ptr(-0.2), ptr(-0.2), midYear(time.February, 6))

	summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.SharedJoyCount)
	require.NotNil(t, summary.TopJoyMoment)
	assert.Equal(t, joyPrompt.Text, summary.TopJoyMoment.PromptText)

	assert.Equal(t, 2, summary.ToughDaysCount)
	// Only the 0.6 / -0.3 pair has a gap of at least 0.5.
	assert.Equal(t, 1, summary.SupportMoments)
}

func TestWordAndVibeAggregates(t *testing.T) {
	f := newFixture(t)

	p1 := f.addPrompt(t, models.VibeLore)
	f.addEntry(t, f.alice.ID, p1.ID, "one two three", nil, midYear(time.May, 1))
	f.addEntry(t, f.bob.ID, p1.ID, "four five six seven eight", nil, midYear(time.May, 1))

	p2 := f.addPrompt(t, models.VibeLore)
	f.addEntry(t, f.alice.ID, p2.ID, "nine ten", nil, midYear(time.May, 2))

	p3 := f.addPrompt(t, models.VibeChaos)
	f.addEntry(t, f.bob.ID, p3.ID, "eleven", nil, midYear(time.May, 3))

	summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 11, summary.TotalWords)

	require.NotNil(t, summary.MostWordsPrompt)
	assert.Equal(t, p1.Text, summary.MostWordsPrompt.PromptText)
	assert.Equal(t, 8, summary.MostWordsPrompt.Total)

	require.NotEmpty(t, summary.TopVibes)
	assert.Equal(t, models.VibeLore, summary.TopVibes[0].Category)
	assert.Equal(t, 3, summary.TopVibes[0].Count)
}

func TestMonthlySentimentAndHappiestMonth(t *testing.T) {
	f := newFixture(t)

	f.addPair(t, ptr(0.2), ptr(0.4), midYear(time.January, 10))
	f.addPair(t, ptr(0.8), ptr(0.8), midYear(time.June, 10))
	f.addPair(t, ptr(-0.4), ptr(-0.6), midYear(time.November, 10))

	summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.MonthlySentiment, 3)
	assert.Equal(t, "January", summary.MonthlySentiment[0].Month)
	assert.InDelta(t, 0.3, summary.MonthlySentiment[0].AvgScore, 0.0005)

	require.NotNil(t, summary.HappiestMonth)
	assert.Equal(t, "June", summary.HappiestMonth.Month)
	assert.InDelta(t, 0.8, summary.HappiestMonth.AvgScore, 0.0005)

	require.NotNil(t, summary.CoupleSentiment)
	assert.InDelta(t, 0.2, *summary.CoupleSentiment, 0.0005)
}

func TestEmptyYearDegradesGracefully(t *testing.T) {
	f := newFixture(t)

	summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testYear, summary.Year)
	assert.Equal(t, []string{"alice", "bob"}, summary.Users)
	assert.Nil(t, summary.CoupleSentiment)
	assert.Nil(t, summary.HappiestMonth)
	assert.Nil(t, summary.SyncScore)
	assert.Zero(t, summary.SharedJoyCount)
	assert.Nil(t, summary.TopJoyMoment)
	assert.Zero(t, summary.ToughDaysCount)
	assert.Zero(t, summary.SupportMoments)
	assert.Zero(t, summary.TotalWords)
	assert.Zero(t, summary.ResponseRate)
	assert.Empty(t, summary.TopVibes)
	assert.Nil(t, summary.MostWordsPrompt)
	assert.Empty(t, summary.MonthlySentiment)
	assert.Nil(t, summary.DaysTogether)
	assert.Nil(t, summary.YearsTogether)
}

func TestRelationshipDuration(t *testing.T) {
	f := newFixture(t)
	now := time.Date(testYear+1, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no anniversary", func(t *testing.T) {
		days, years := NewAnalytics(f.db, f.couple, testYear).togetherFor(now)
		assert.Nil(t, days)
		assert.Nil(t, years)
	})

	anniversary := time.Date(testYear-1, 12, 31, 0, 0, 0, 0, time.UTC)
	f.couple.AnniversaryDate = &anniversary

	t.Run("measured at year end for past years", func(t *testing.T) {
		days, years := NewAnalytics(f.db, f.couple, testYear).togetherFor(now)
		require.NotNil(t, days)
		assert.Equal(t, 365, *days)
		assert.Equal(t, 1, *years)
	})

	t.Run("capped at now for the current year", func(t *testing.T) {
		days, _ := NewAnalytics(f.db, f.couple, testYear+1).togetherFor(now)
		require.NotNil(t, days)
		assert.Equal(t, 517, *days)
	})

	t.Run("anniversary in the future", func(t *testing.T) {
		future := now.AddDate(1, 0, 0)
		f.couple.AnniversaryDate = &future
		days, years := NewAnalytics(f.db, f.couple, testYear).togetherFor(now)
		assert.Nil(t, days)
		assert.Nil(t, years)
	})
}

func TestSoloVaultHasNoPairedMetrics(t *testing.T) {
	f := newFixture(t)

	// Detach member2 and write a solo entry.
	require.NoError(t, f.db.Model(f.couple).Update("member2_id", nil).Error)
	f.couple.Member2ID = nil

	p := f.addPrompt(t, models.VibeGrind)
	f.addEntry(t, f.alice.ID, p.ID, "solo words", ptr(0.9), midYear(time.July, 1))

	summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, summary.Users)
	assert.Nil(t, summary.SyncScore)
	assert.Zero(t, summary.SharedJoyCount)
	assert.Equal(t, 2, summary.TotalWords)
	require.NotNil(t, summary.CoupleSentiment)
	assert.InDelta(t, 0.9, *summary.CoupleSentiment, 0.0005)
}

func TestYearScoping(t *testing.T) {
	f := newFixture(t)

	// A pair inside the year and entries straddling its bounds.
	f.addPair(t, ptr(0.5), ptr(0.5), midYear(time.August, 1))

	outside := f.addPrompt(t, models.VibeWildcard)
	f.addEntry(t, f.alice.ID, outside.ID, "december of previous year", ptr(0.1),
		time.Date(testYear-1, 12, 31, 23, 0, 0, 0, time.UTC))

	summary, err := NewAnalytics(f.db, f.couple, testYear).Generate(context.Background())
	require.NoError(t, err)

	// Only the in-year entries count: 3+3 words from the pair.
	assert.Equal(t, 6, summary.TotalWords)
	require.NotNil(t, summary.SyncScore)
	assert.InDelta(t, 1.0, *summary.SyncScore, 0.0005)
}

func TestSnapshotCaching(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db)
	ctx := context.Background()

	f.addPair(t, ptr(0.5), ptr(0.5), midYear(time.March, 1))

	first, err := svc.Generate(ctx, f.couple, f.alice.ID, testYear)
	require.NoError(t, err)
	require.NotNil(t, first.SyncScore)

	var count int64
	require.NoError(t, f.db.Model(&models.WrappedSnapshot{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// New entries after snapshotting do not change the cached past year.
	f.addPair(t, ptr(-1.0), ptr(1.0), midYear(time.March, 2))

	second, err := svc.Generate(ctx, f.couple, f.alice.ID, testYear)
	require.NoError(t, err)
	require.NotNil(t, second.SyncScore)
	assert.InDelta(t, *first.SyncScore, *second.SyncScore, 0.0005)

	require.NoError(t, f.db.Model(&models.WrappedSnapshot{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGenerateRequiresMembership(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db)

	mallory := &models.User{Email: "mallory@example.com", Username: "mallory"}
	require.NoError(t, f.db.Create(mallory).Error)

	_, err := svc.Generate(context.Background(), f.couple, mallory.ID, testYear)
	assert.Error(t, err)
}

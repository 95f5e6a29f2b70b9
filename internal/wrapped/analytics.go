// Package wrapped computes the year-end couple analytics for a vault: paired
// entries, sentiment sync, joy and tough days, and aggregate writing stats.
package wrapped

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/thevault-app/thevault/internal/apperr"
	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
)

// Thresholds for sentiment-derived moments, scores range [-1, 1].
const (
	joyThreshold   = 0.3
	toughThreshold = -0.2
	supportGap     = 0.5
)

// PairedEntry is one prompt both members answered, with member1's entry
// first.
type PairedEntry struct {
	Prompt models.Prompt
	Entry1 models.Entry
	Entry2 models.Entry
}

// scored reports whether both sides carry a sentiment score.
func (p *PairedEntry) scored() bool {
	return p.Entry1.SentimentScore != nil && p.Entry2.SentimentScore != nil
}

// MonthScore is the average sentiment for one calendar month.
type MonthScore struct {
	Month    string  `json:"month"`
	AvgScore float64 `json:"avg_score"`
}

// VibeCount is how often one prompt category was answered.
type VibeCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Moment is a paired exchange surfaced in the summary.
type Moment struct {
	PromptText string    `json:"prompt_text"`
	Date       time.Time `json:"date"`
	Score1     *float64  `json:"score_1,omitempty"`
	Score2     *float64  `json:"score_2,omitempty"`
}

// WordsMoment is the paired exchange with the highest combined word count.
type WordsMoment struct {
	PromptText string `json:"prompt_text"`
	Words1     int    `json:"words_1"`
	Words2     int    `json:"words_2"`
	Total      int    `json:"total"`
}

// Summary is the wrapped output contract. Field names and shapes are the
// interface consumed by the presentation layer; change them deliberately.
type Summary struct {
	Year             int          `json:"year"`
	Users            []string     `json:"users"`
	CoupleSentiment  *float64     `json:"couple_sentiment"`
	HappiestMonth    *MonthScore  `json:"happiest_month"`
	SyncScore        *float64     `json:"sync_score"`
	SharedJoyCount   int          `json:"shared_joy_count"`
	TopJoyMoment     *Moment      `json:"top_joy_moment"`
	ToughDaysCount   int          `json:"tough_days_count"`
	SupportMoments   int          `json:"support_moments"`
	TotalWords       int          `json:"total_words"`
	ResponseRate     float64      `json:"response_rate"`
	TopVibes         []VibeCount  `json:"top_vibes"`
	MostWordsPrompt  *WordsMoment `json:"most_words_prompt"`
	MonthlySentiment []MonthScore `json:"monthly_sentiment"`

	// Only present when the vault has an anniversary date set.
	DaysTogether  *int `json:"days_together,omitempty"`
	YearsTogether *int `json:"years_together,omitempty"`
}

// Analytics computes metrics for one (vault, year). Every aggregate degrades
// to none/zero/empty on missing data instead of erroring; a solo vault
// produces an all-empty summary.
type Analytics struct {
	db     *gorm.DB
	couple *models.Couple
	year   int
}

func NewAnalytics(db *gorm.DB, couple *models.Couple, year int) *Analytics {
	return &Analytics{db: db, couple: couple, year: year}
}

// yearEntries loads the vault's entries for the year with prompts attached.
func (a *Analytics) yearEntries(ctx context.Context) ([]models.Entry, error) {
	start := time.Date(a.year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var entries []models.Entry
	err := a.db.WithContext(ctx).
		Preload("Prompt").
		Where("couple_id = ? AND created_at >= ? AND created_at < ?", a.couple.ID, start, end).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load year entries", err)
	}
	return entries, nil
}

// pairedEntries intersects the prompt ids answered by each member and
// hydrates the triples, ordered by entry date.
func (a *Analytics) pairedEntries(entries []models.Entry) []PairedEntry {
	if !a.couple.IsPaired() {
		return nil
	}
	m1, m2 := a.couple.Member1ID, *a.couple.Member2ID

	byPrompt1 := map[uint]*models.Entry{}
	byPrompt2 := map[uint]*models.Entry{}
	for i := range entries {
		switch entries[i].UserID {
		case m1:
			byPrompt1[entries[i].PromptID] = &entries[i]
		case m2:
			byPrompt2[entries[i].PromptID] = &entries[i]
		}
	}

	var paired []PairedEntry
	for promptID, e1 := range byPrompt1 {
		e2, ok := byPrompt2[promptID]
		if !ok {
			continue
		}
		paired = append(paired, PairedEntry{Prompt: e1.Prompt, Entry1: *e1, Entry2: *e2})
	}
	sort.Slice(paired, func(i, j int) bool {
		return paired[i].Entry1.CreatedAt.Before(paired[j].Entry1.CreatedAt)
	})
	return paired
}

// syncScore maps the average pairwise sentiment distance onto [0, 1].
// Scores span [-1, 1], so the largest possible distance is 2.
func syncScore(paired []PairedEntry) *float64 {
	var sum float64
	var n int
	for i := range paired {
		if !paired[i].scored() {
			continue
		}
		sum += math.Abs(*paired[i].Entry1.SentimentScore - *paired[i].Entry2.SentimentScore)
		n++
	}
	if n == 0 {
		return nil
	}
	score := round3(1 - (sum/float64(n))/2)
	return &score
}

// joyMoments returns paired entries where both scores clear the joy
// threshold, best first by summed score.
func joyMoments(paired []PairedEntry) []PairedEntry {
	var joy []PairedEntry
	for i := range paired {
		p := paired[i]
		if !p.scored() {
			continue
		}
		if *p.Entry1.SentimentScore >= joyThreshold && *p.Entry2.SentimentScore >= joyThreshold {
			joy = append(joy, p)
		}
	}
	sort.Slice(joy, func(i, j int) bool {
		si := *joy[i].Entry1.SentimentScore + *joy[i].Entry2.SentimentScore
		sj := *joy[j].Entry1.SentimentScore + *joy[j].Entry2.SentimentScore
		return si > sj
	})
	return joy
}

func toughDaysCount(paired []PairedEntry) int {
	n := 0
	for i := range paired {
		p := paired[i]
		if !p.scored() {
			continue
		}
		if *p.Entry1.SentimentScore <= toughThreshold && *p.Entry2.SentimentScore <= toughThreshold {
			n++
		}
	}
	return n
}

func supportMomentsCount(paired []PairedEntry) int {
	n := 0
	for i := range paired {
		p := paired[i]
		if !p.scored() {
			continue
		}
		if math.Abs(*p.Entry1.SentimentScore-*p.Entry2.SentimentScore) >= supportGap {
			n++
		}
	}
	return n
}

// responseRate divides paired prompts by the number of prompts active in the
// year; an empty catalog yields 0 rather than a division error.
func (a *Analytics) responseRate(ctx context.Context, pairedCount int) (float64, error) {
	start := time.Date(a.year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var total int64
	err := a.db.WithContext(ctx).Model(&models.Prompt{}).
		Where("active_date >= ? AND active_date < ?", start, end).
		Count(&total).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeInternal, "failed to count prompts", err)
	}
	if total == 0 {
		return 0, nil
	}
	return round3(float64(pairedCount) / float64(total)), nil
}

// coupleSentiment averages every scored entry from either member.
func coupleSentiment(entries []models.Entry) *float64 {
	var sum float64
	var n int
	for i := range entries {
		if entries[i].SentimentScore == nil {
			continue
		}
		sum += *entries[i].SentimentScore
		n++
	}
	if n == 0 {
		return nil
	}
	avg := round3(sum / float64(n))
	return &avg
}

// monthlySentiment averages scored entries per calendar month, in month
// order. Months with no scored entries are omitted.
func monthlySentiment(entries []models.Entry) []MonthScore {
	sums := map[time.Month]float64{}
	counts := map[time.Month]int{}
	for i := range entries {
		if entries[i].SentimentScore == nil {
			continue
		}
		m := entries[i].CreatedAt.UTC().Month()
		sums[m] += *entries[i].SentimentScore
		counts[m]++
	}

	var out []MonthScore
	for m := time.January; m <= time.December; m++ {
		if counts[m] == 0 {
			continue
		}
		out = append(out, MonthScore{
			Month:    m.String(),
			AvgScore: round3(sums[m] / float64(counts[m])),
		})
	}
	return out
}

func happiestMonth(monthly []MonthScore) *MonthScore {
	var best *MonthScore
	for i := range monthly {
		if best == nil || monthly[i].AvgScore > best.AvgScore {
			best = &monthly[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// topVibes counts answered prompts per category and keeps the top three.
func topVibes(entries []models.Entry) []VibeCount {
	counts := map[string]int{}
	for i := range entries {
		counts[entries[i].Prompt.Category]++
	}

	out := make([]VibeCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, VibeCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

func totalWords(entries []models.Entry) int {
	sum := 0
	for i := range entries {
		sum += entries[i].WordCount
	}
	return sum
}

func mostWordsPrompt(paired []PairedEntry) *WordsMoment {
	var best *WordsMoment
	for i := range paired {
		p := paired[i]
		total := p.Entry1.WordCount + p.Entry2.WordCount
		if best == nil || total > best.Total {
			best = &WordsMoment{
				PromptText: p.Prompt.Text,
				Words1:     p.Entry1.WordCount,
				Words2:     p.Entry2.WordCount,
				Total:      total,
			}
		}
	}
	return best
}

// Generate assembles the full summary.
func (a *Analytics) Generate(ctx context.Context) (*Summary, error) {
	entries, err := a.yearEntries(ctx)
	if err != nil {
		return nil, err
	}
	paired := a.pairedEntries(entries)

	rate, err := a.responseRate(ctx, len(paired))
	if err != nil {
		return nil, err
	}

	users, err := a.usernames(ctx)
	if err != nil {
		return nil, err
	}

	joy := joyMoments(paired)
	var topJoy *Moment
	if len(joy) > 0 {
		topJoy = &Moment{
			PromptText: joy[0].Prompt.Text,
			Date:       joy[0].Entry1.CreatedAt,
			Score1:     joy[0].Entry1.SentimentScore,
			Score2:     joy[0].Entry2.SentimentScore,
		}
	}

	monthly := monthlySentiment(entries)
	days, years := a.togetherFor(time.Now())

	return &Summary{
		Year:             a.year,
		Users:            users,
		CoupleSentiment:  coupleSentiment(entries),
		HappiestMonth:    happiestMonth(monthly),
		SyncScore:        syncScore(paired),
		SharedJoyCount:   len(joy),
		TopJoyMoment:     topJoy,
		ToughDaysCount:   toughDaysCount(paired),
		SupportMoments:   supportMomentsCount(paired),
		TotalWords:       totalWords(entries),
		ResponseRate:     rate,
		TopVibes:         topVibes(entries),
		MostWordsPrompt:  mostWordsPrompt(paired),
		MonthlySentiment: monthly,
		DaysTogether:     days,
		YearsTogether:    years,
	}, nil
}

// togetherFor measures the relationship duration from the anniversary date up
// to the end of the wrapped year, capped at the given current time for an
// in-progress year. Nil when no anniversary is set.
func (a *Analytics) togetherFor(now time.Time) (*int, *int) {
	if a.couple.AnniversaryDate == nil {
		return nil, nil
	}

	until := time.Date(a.year, 12, 31, 0, 0, 0, 0, time.UTC)
	if now.Before(until) {
		until = now.UTC()
	}
	if until.Before(*a.couple.AnniversaryDate) {
		return nil, nil
	}

	days := int(until.Sub(*a.couple.AnniversaryDate).Hours() / 24)
	years := days / 365
	return &days, &years
}

func (a *Analytics) usernames(ctx context.Context) ([]string, error) {
	ids := []uint{a.couple.Member1ID}
	if a.couple.Member2ID != nil {
		ids = append(ids, *a.couple.Member2ID)
	}

	var users []models.User
	if err := a.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load members", err)
	}

	byID := map[uint]string{}
	for _, u := range users {
		byID[u.ID] = u.Username
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, byID[id])
	}
	return names, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

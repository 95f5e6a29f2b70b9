// Package journal implements the daily prompt cycle and the unlock-on-both
// reveal protocol: a member never sees their partner's answer until their own
// is in.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/thevault-app/thevault/internal/apperr"
	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
)

// EntryState describes one member's view of today's exchange.
type EntryState string

const (
	// StateUnanswered: the member has not written yet. The partner's entry,
	// if any, stays hidden.
	StateUnanswered EntryState = "unanswered"
	// StateWaiting: the member answered, the partner has not.
	StateWaiting EntryState = "waiting"
	// StateUnlocked: both answered, both entries are visible.
	StateUnlocked EntryState = "unlocked"
)

// EventSink receives domain events for asynchronous delivery. The worker
// package provides the real implementation; a nil sink drops events.
type EventSink interface {
	EntrySubmitted(ctx context.Context, couple *models.Couple, entry *models.Entry, partnerID *uint, unlocked bool)
}

// Service resolves daily prompts and mediates the reveal protocol.
type Service struct {
	db     *gorm.DB
	events EventSink
}

func NewService(db *gorm.DB, events EventSink) *Service {
	return &Service{db: db, events: events}
}

// Submission is the caller-provided entry content.
type Submission struct {
	Text        string
	PhotoRef    string
	LocationTag string
}

// DailyView is the resolved state of today's prompt for one member.
type DailyView struct {
	Prompt       *models.Prompt
	State        EntryState
	OwnEntry     *models.Entry
	PartnerEntry *models.Entry
}

// TodaysPrompt resolves the prompt for "today" in the vault's timezone.
// Prompts match on month and day only, so the catalog cycles every year.
// When several prompts share a calendar day the earliest active date wins,
// then the lowest id, which keeps the choice stable across requests.
func (s *Service) TodaysPrompt(ctx context.Context, couple *models.Couple) (*models.Prompt, error) {
	loc, err := time.LoadLocation(couple.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	return s.promptFor(ctx, int(now.Month()), now.Day())
}

func (s *Service) promptFor(ctx context.Context, month, day int) (*models.Prompt, error) {
	var prompt models.Prompt
	err := s.db.WithContext(ctx).
		Where("active_month = ? AND active_day = ?", month, day).
		Order("active_date ASC, id ASC").
		First(&prompt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNoPromptToday
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to resolve today's prompt", err)
	}
	return &prompt, nil
}

// Today returns the member's view of today's exchange. The partner's entry is
// populated only in the unlocked state.
func (s *Service) Today(ctx context.Context, couple *models.Couple, userID uint) (*DailyView, error) {
	if !couple.IncludesUser(userID) {
		return nil, apperr.ErrNotVaultMember
	}
	prompt, err := s.TodaysPrompt(ctx, couple)
	if err != nil {
		return nil, err
	}
	return s.viewFor(ctx, couple, userID, prompt)
}

// Submit records the member's answer to today's prompt. Both members must be
// present and the vault must be active. The unique index on
// (user, prompt, couple) closes the double-submit race; the duplicate key
// error is surfaced as DuplicateSubmission.
func (s *Service) Submit(ctx context.Context, couple *models.Couple, userID uint, sub Submission) (*DailyView, error) {
	if !couple.IncludesUser(userID) {
		return nil, apperr.ErrNotVaultMember
	}
	if !couple.IsPaired() {
		return nil, apperr.ErrNotPaired
	}
	if couple.IsEnded {
		return nil, apperr.ErrVaultReadOnly
	}
	if strings.TrimSpace(sub.Text) == "" {
		return nil, apperr.ErrEmptyEntry
	}

	prompt, err := s.TodaysPrompt(ctx, couple)
	if err != nil {
		return nil, err
	}

	coupleID := couple.ID
	entry := &models.Entry{
		UserID:      userID,
		PromptID:    prompt.ID,
		CoupleID:    &coupleID,
		TextContent: sub.Text,
		PhotoRef:    sub.PhotoRef,
		LocationTag: sub.LocationTag,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrDuplicateSubmission
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to save entry", err)
	}

	view, err := s.viewFor(ctx, couple, userID, prompt)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.EntrySubmitted(ctx, couple, entry, couple.PartnerID(userID), view.State == StateUnlocked)
	}
	return view, nil
}

// CheckUnlock re-evaluates the reveal state for a prompt; the client polls it
// while waiting on the partner.
func (s *Service) CheckUnlock(ctx context.Context, couple *models.Couple, userID, promptID uint) (*DailyView, error) {
	if !couple.IncludesUser(userID) {
		return nil, apperr.ErrNotVaultMember
	}

	var prompt models.Prompt
	if err := s.db.WithContext(ctx).First(&prompt, promptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNoPromptToday
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load prompt", err)
	}
	return s.viewFor(ctx, couple, userID, &prompt)
}

func (s *Service) viewFor(ctx context.Context, couple *models.Couple, userID uint, prompt *models.Prompt) (*DailyView, error) {
	var entries []models.Entry
	err := s.db.WithContext(ctx).
		Where("prompt_id = ? AND couple_id = ?", prompt.ID, couple.ID).
		Find(&entries).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load entries", err)
	}

	view := &DailyView{Prompt: prompt, State: StateUnanswered}
	var partnerEntry *models.Entry
	for i := range entries {
		if entries[i].UserID == userID {
			view.OwnEntry = &entries[i]
		} else {
			partnerEntry = &entries[i]
		}
	}

	switch {
	case view.OwnEntry != nil && partnerEntry != nil:
		view.State = StateUnlocked
		view.PartnerEntry = partnerEntry
	case view.OwnEntry != nil:
		view.State = StateWaiting
	}
	return view, nil
}

// MonthGroup is one month of a member's entry history, newest entries first.
type MonthGroup struct {
	Year    int
	Month   time.Month
	Entries []models.Entry
}

// History returns the member's own entries in the vault grouped by calendar
// month, newest month first. Partner entries are not included; they are
// reachable entry-by-entry through Detail, which enforces the reveal rule.
func (s *Service) History(ctx context.Context, couple *models.Couple, userID uint) ([]MonthGroup, error) {
	if !couple.IncludesUser(userID) {
		return nil, apperr.ErrNotVaultMember
	}

	var entries []models.Entry
	err := s.db.WithContext(ctx).
		Preload("Prompt").
		Where("couple_id = ? AND user_id = ?", couple.ID, userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load history", err)
	}

	loc, err := time.LoadLocation(couple.Timezone)
	if err != nil {
		loc = time.UTC
	}

	var groups []MonthGroup
	for _, e := range entries {
		ts := e.CreatedAt.In(loc)
		y, m := ts.Year(), ts.Month()
		if len(groups) == 0 || groups[len(groups)-1].Year != y || groups[len(groups)-1].Month != m {
			groups = append(groups, MonthGroup{Year: y, Month: m})
		}
		groups[len(groups)-1].Entries = append(groups[len(groups)-1].Entries, e)
	}
	return groups, nil
}

// Detail returns a single entry. A member always sees their own entries;
// a partner's entry is visible only once the member's matching answer exists.
func (s *Service) Detail(ctx context.Context, couple *models.Couple, userID, entryID uint) (*models.Entry, error) {
	if !couple.IncludesUser(userID) {
		return nil, apperr.ErrNotVaultMember
	}

	var entry models.Entry
	err := s.db.WithContext(ctx).
		Preload("Prompt").
		Where("id = ? AND couple_id = ?", entryID, couple.ID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrEntryNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load entry", err)
	}

	if entry.UserID == userID {
		return &entry, nil
	}

	// Partner's entry: locked until the viewer has answered the same prompt.
	var count int64
	err = s.db.WithContext(ctx).Model(&models.Entry{}).
		Where("prompt_id = ? AND couple_id = ? AND user_id = ?", entry.PromptID, couple.ID, userID).
		Count(&count).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to check unlock", err)
	}
	if count == 0 {
		return nil, apperr.ErrEntryLocked
	}
	return &entry, nil
}

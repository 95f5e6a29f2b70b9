package notify

// PartnerAnsweredMessage is sent to a member when their partner submits an
// entry for today's prompt.
type PartnerAnsweredMessage struct {
	UserID      uint   `json:"user_id"`
	PartnerName string `json:"partner_name"`
	PromptText  string `json:"prompt_text"`
	// True when the recipient has also answered, so the exchange is
	// already unlocked.
	Unlocked bool `json:"unlocked"`
}

// DailyReminderMessage nudges a member who has not answered today.
type DailyReminderMessage struct {
	UserID     uint   `json:"user_id"`
	PromptText string `json:"prompt_text"`
}

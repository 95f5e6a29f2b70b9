package apperr

// Domain errors — returned by vault, journal and spark services and matched
// with errors.Is in handlers and tests.
var (
	// Vault pairing
	ErrInvalidCode     = NotFound("invalid invite code")
	ErrAlreadyPaired   = Conflict("this vault already has two members")
	ErrSelfJoin        = Conflict("you can't join your own vault")
	ErrNotVaultMember  = Forbidden("you are not a member of this vault")
	ErrVaultNotEnded   = FailedPrecondition("vault is not ended")
	ErrNoReactivation  = FailedPrecondition("no reactivation request is pending")
	ErrOwnReactivation = Forbidden("the requesting member cannot approve their own request")
	ErrCodeGeneration  = Internal("could not generate a unique invite code")
	ErrVaultNotFound   = NotFound("vault not found")
	ErrMissingInvite   = InvalidArg("please enter an invite code")

	// Journal / reveal
	ErrNotPaired           = FailedPrecondition("connect with a partner before journaling")
	ErrVaultReadOnly       = Forbidden("this vault is read-only")
	ErrNoPromptToday       = NotFound("no prompt available today")
	ErrDuplicateSubmission = Conflict("you already answered this prompt")
	ErrEntryNotFound       = NotFound("entry not found")
	ErrEntryLocked         = Forbidden("answer today's prompt to unlock your partner's entry")
	ErrEmptyEntry          = InvalidArg("write something before submitting")

	// Spark
	ErrSparkNotFound   = NotFound("spark not found")
	ErrInvalidCategory = InvalidArg("unknown spark category")
	ErrInvalidVibe     = InvalidArg("unknown vibe")
	ErrNoSparksInPool  = NotFound("no sparks available for this category")

	// Profile
	ErrInvalidTimezone = InvalidArg("unknown timezone")
	ErrUserNotFound    = NotFound("user not found")
)

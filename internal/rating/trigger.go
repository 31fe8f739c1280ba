package rating

// Trigger names the ledger mutation that caused a recompute.
type Trigger string

const (
	TriggerReviewCreated Trigger = "review_created"
	TriggerReviewUpdated Trigger = "review_updated"
	TriggerReviewDeleted Trigger = "review_deleted"
	TriggerLiked         Trigger = "liked"
	TriggerUnliked       Trigger = "unliked"
	TriggerUserDeleted   Trigger = "user_deleted"
)

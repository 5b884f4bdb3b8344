package notifications

// Event types carried by dispatched notifications and realtime messages.
const (
	EventPostApproved        = "post_approved"
	EventPostRejected        = "post_rejected"
	EventPostBanned          = "post_banned"
	EventPostUnbanned        = "post_unbanned"
	EventPostLiked           = "post_liked"
	EventPostShared          = "post_shared"
	EventReturnStatusUpdated = "return_status_updated"
	EventContactReply        = "contact_reply"
	EventContactCreated      = "contact_created"
	EventUserBlocked         = "user_blocked"
	EventUserUnblocked       = "user_unblocked"
)

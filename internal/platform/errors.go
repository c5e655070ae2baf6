package platform

import (
	"errors"
	"fmt"
)

// ProtocolFault reports a request the platform cannot interpret: a nil or
// unsupported command type. It is a programming error, never a data
// condition, and stops the dispatch loop.
type ProtocolFault struct {
	// AgentID identifies the sender.
	AgentID int64

	// Command is the offending command's Go type.
	Command string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ProtocolFault) Error() string {
	return fmt.Sprintf("protocol fault: %s (agent=%d, command=%s)", e.Message, e.AgentID, e.Command)
}

// IsProtocolFault reports whether err is or wraps a ProtocolFault.
func IsProtocolFault(err error) bool {
	var pf *ProtocolFault
	return errors.As(err, &pf)
}

// Rejection messages returned in result maps. They are part of the wire
// contract with agents.
const (
	msgLikeExists            = "Like record already exists."
	msgLikeMissing           = "Like record does not exist."
	msgDislikeExists         = "Dislike record already exists."
	msgDislikeMissing        = "Dislike record does not exist."
	msgCommentLikeExists     = "Comment like record already exists."
	msgCommentLikeMissing    = "Comment like record does not exist."
	msgCommentDislikeExists  = "Comment dislike record already exists."
	msgCommentDislikeMissing = "Comment dislike record does not exist."
	msgSelfRatePost          = "Users are not allowed to like/dislike their own posts."
	msgSelfRateComment       = "Users are not allowed to like/dislike their own comments."
	msgFollowExists          = "Follow record already exists."
	msgFollowMissing         = "Follow record does not exist."
	msgMuteExists            = "Mute record already exists."
	msgMuteMissing           = "No mute record exists."
	msgPostNotFound          = "Post not found."
	msgCommentNotFound       = "Comment not found."
	msgUserNotFound          = "User not found."
	msgRepostExists          = "Repost record already exists."
	msgNoProduct             = "No such product."
	msgBadQuantity           = "Purchase quantity must be positive."
	msgNoPostsMatch          = "No posts found matching the query."
	msgNoUsersMatch          = "No users found matching the query."
	msgNoTrending            = "No trending posts in the specified period."
	msgEmptyFeed             = "No posts found."
	msgNoLatestPosts         = "Fail to get latest posts count"
)

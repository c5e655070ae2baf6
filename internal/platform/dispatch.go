package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/store"
)

// dispatch routes a request to its handler. The switch is exhaustive over
// the command set; anything else is a ProtocolFault.
func (p *Platform) dispatch(ctx context.Context, req action.Request) (action.Result, error) {
	agent := req.AgentID

	switch cmd := req.Command.(type) {
	case action.SignUp:
		return p.signUp(ctx, agent, cmd)
	case action.SignUpProduct:
		return p.signUpProduct(ctx, cmd)
	case action.PurchaseProduct:
		return p.purchaseProduct(ctx, agent, cmd)
	case action.Refresh:
		return p.refresh(ctx, agent)
	case action.CreatePost:
		return p.createPost(ctx, agent, cmd)
	case action.Repost:
		return p.repost(ctx, agent, cmd)
	case action.LikePost:
		return p.rate(ctx, agent, cmd.PostID, rateLikePost)
	case action.UnlikePost:
		return p.unrate(ctx, agent, cmd.PostID, rateLikePost)
	case action.DislikePost:
		return p.rate(ctx, agent, cmd.PostID, rateDislikePost)
	case action.UndoDislikePost:
		return p.unrate(ctx, agent, cmd.PostID, rateDislikePost)
	case action.SearchPosts:
		return p.searchPosts(ctx, agent, cmd)
	case action.SearchUser:
		return p.searchUser(ctx, agent, cmd)
	case action.Follow:
		return p.follow(ctx, agent, cmd)
	case action.Unfollow:
		return p.unfollow(ctx, agent, cmd)
	case action.Mute:
		return p.mute(ctx, agent, cmd)
	case action.Unmute:
		return p.unmute(ctx, agent, cmd)
	case action.Trend:
		return p.trend(ctx, agent)
	case action.CreateComment:
		return p.createComment(ctx, agent, cmd)
	case action.LikeComment:
		return p.rate(ctx, agent, cmd.CommentID, rateLikeComment)
	case action.UnlikeComment:
		return p.unrate(ctx, agent, cmd.CommentID, rateLikeComment)
	case action.DislikeComment:
		return p.rate(ctx, agent, cmd.CommentID, rateDislikeComment)
	case action.UndoDislikeComment:
		return p.unrate(ctx, agent, cmd.CommentID, rateDislikeComment)
	case action.DoNothing:
		return p.doNothing(ctx, agent)
	case action.UpdateRecTable:
		return p.updateRecTable(ctx)
	case action.Exit:
		return nil, &ProtocolFault{AgentID: agent, Command: "action.Exit", Message: "exit must be handled by the loop"}
	case nil:
		return nil, &ProtocolFault{AgentID: agent, Command: "<nil>", Message: "request carries no command"}
	default:
		return nil, &ProtocolFault{AgentID: agent, Command: fmt.Sprintf("%T", cmd), Message: "unsupported command type"}
	}
}

// trace appends the audit row for an accepted action, stamped with the
// same instant as the rows the handler wrote.
func (p *Platform) trace(ctx context.Context, userID int64, at clock.Stamp, kind action.Kind, info any) error {
	return p.store.AppendTrace(ctx, userID, at, string(kind), info)
}

// found converts store.ErrNotFound into (false, nil).
func found(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

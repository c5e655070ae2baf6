package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/agora/internal/action"
)

// repostMarker separates the provenance prefix from the original text.
const repostMarker = "original_post: "

func (p *Platform) createPost(ctx context.Context, agentID int64, cmd action.CreatePost) (action.Result, error) {
	now := p.clock.Now()
	id, err := p.store.CreatePost(ctx, agentID, cmd.Content, now, 0)
	if err != nil {
		return nil, err
	}

	info := map[string]any{"content": cmd.Content, "post_id": id}
	if err := p.trace(ctx, agentID, now, action.KindCreatePost, info); err != nil {
		return nil, err
	}
	return action.OK("post_id", id), nil
}

// repost copies a post with a provenance prefix. The new post starts with
// the original's like count. A user who already has a post containing the
// unwrapped original text cannot repost it again.
func (p *Platform) repost(ctx context.Context, agentID int64, cmd action.Repost) (action.Result, error) {
	now := p.clock.Now()
	orig, err := p.store.Post(ctx, cmd.PostID)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if !ok {
		return action.Fail(msgPostNotFound), nil
	}

	text := orig.Content
	if i := strings.LastIndex(text, repostMarker); i >= 0 {
		text = text[i+len(repostMarker):]
	}
	dup, err := p.store.HasPostContaining(ctx, agentID, text)
	if err != nil {
		return nil, err
	}
	if dup {
		return action.Fail(msgRepostExists), nil
	}

	content := fmt.Sprintf("user%d repost from user%d. %s%s", agentID, orig.UserID, repostMarker, orig.Content)
	id, err := p.store.CreatePost(ctx, agentID, content, now, orig.NumLikes)
	if err != nil {
		return nil, err
	}

	info := map[string]any{"post_id": id, "original_post_id": orig.PostID}
	if err := p.trace(ctx, agentID, now, action.KindRepost, info); err != nil {
		return nil, err
	}
	return action.OK("post_id", id), nil
}

func (p *Platform) createComment(ctx context.Context, agentID int64, cmd action.CreateComment) (action.Result, error) {
	now := p.clock.Now()
	_, err := p.store.Post(ctx, cmd.PostID)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if !ok {
		return action.Fail(msgPostNotFound), nil
	}

	id, err := p.store.CreateComment(ctx, cmd.PostID, agentID, cmd.Content, now)
	if err != nil {
		return nil, err
	}

	info := map[string]any{"content": cmd.Content, "comment_id": id, "post_id": cmd.PostID}
	if err := p.trace(ctx, agentID, now, action.KindCreateComment, info); err != nil {
		return nil, err
	}
	return action.OK("comment_id", id), nil
}

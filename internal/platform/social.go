package platform

import (
	"context"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/store"
)

func (p *Platform) follow(ctx context.Context, agentID int64, cmd action.Follow) (action.Result, error) {
	now := p.clock.Now()
	_, err := p.store.FindEdge(ctx, store.Follow, agentID, cmd.FolloweeID)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if ok {
		return action.Fail(msgFollowExists), nil
	}

	id, err := p.store.AddEdge(ctx, store.Follow, agentID, cmd.FolloweeID, now)
	if err != nil {
		return nil, err
	}

	info := map[string]any{"follow_id": id, "followee_id": cmd.FolloweeID}
	if err := p.trace(ctx, agentID, now, action.KindFollow, info); err != nil {
		return nil, err
	}
	return action.OK("follow_id", id), nil
}

func (p *Platform) unfollow(ctx context.Context, agentID int64, cmd action.Unfollow) (action.Result, error) {
	now := p.clock.Now()
	id, err := p.store.FindEdge(ctx, store.Follow, agentID, cmd.FolloweeID)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if !ok {
		return action.Fail(msgFollowMissing), nil
	}

	if err := p.store.RemoveEdge(ctx, store.Follow, id, agentID, cmd.FolloweeID); err != nil {
		return nil, err
	}

	if err := p.trace(ctx, agentID, now, action.KindUnfollow, map[string]any{"followee_id": cmd.FolloweeID}); err != nil {
		return nil, err
	}
	return action.OK("follow_id", id), nil
}

// mute and unmute touch only the mute relation; feeds ignore it.
func (p *Platform) mute(ctx context.Context, agentID int64, cmd action.Mute) (action.Result, error) {
	now := p.clock.Now()
	_, err := p.store.FindEdge(ctx, store.Mute, agentID, cmd.MuteeID)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if ok {
		return action.Fail(msgMuteExists), nil
	}

	id, err := p.store.AddEdge(ctx, store.Mute, agentID, cmd.MuteeID, now)
	if err != nil {
		return nil, err
	}

	if err := p.trace(ctx, agentID, now, action.KindMute, map[string]any{"mutee_id": cmd.MuteeID}); err != nil {
		return nil, err
	}
	return action.OK("mute_id", id), nil
}

func (p *Platform) unmute(ctx context.Context, agentID int64, cmd action.Unmute) (action.Result, error) {
	now := p.clock.Now()
	id, err := p.store.FindEdge(ctx, store.Mute, agentID, cmd.MuteeID)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if !ok {
		return action.Fail(msgMuteMissing), nil
	}

	if err := p.store.RemoveEdge(ctx, store.Mute, id, agentID, cmd.MuteeID); err != nil {
		return nil, err
	}

	if err := p.trace(ctx, agentID, now, action.KindUnmute, map[string]any{"mutee_id": cmd.MuteeID}); err != nil {
		return nil, err
	}
	return action.OK("mute_id", id), nil
}

package platform

import (
	"context"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/store"
)

// rateSpec binds one rating relation to its wire vocabulary.
type rateSpec struct {
	rel        store.Rating
	add        action.Kind
	remove     action.Kind
	subjectKey string // "post_id" or "comment_id"
	idKey      string // "like_id", "comment_dislike_id", ...
	exists     string
	missing    string
	notFound   string
	selfRating string
}

var (
	rateLikePost = rateSpec{
		rel: store.PostLike, add: action.KindLikePost, remove: action.KindUnlikePost,
		subjectKey: "post_id", idKey: "like_id",
		exists: msgLikeExists, missing: msgLikeMissing,
		notFound: msgPostNotFound, selfRating: msgSelfRatePost,
	}
	rateDislikePost = rateSpec{
		rel: store.PostDislike, add: action.KindDislikePost, remove: action.KindUndoDislikePost,
		subjectKey: "post_id", idKey: "dislike_id",
		exists: msgDislikeExists, missing: msgDislikeMissing,
		notFound: msgPostNotFound, selfRating: msgSelfRatePost,
	}
	rateLikeComment = rateSpec{
		rel: store.CommentLike, add: action.KindLikeComment, remove: action.KindUnlikeComment,
		subjectKey: "comment_id", idKey: "comment_like_id",
		exists: msgCommentLikeExists, missing: msgCommentLikeMissing,
		notFound: msgCommentNotFound, selfRating: msgSelfRateComment,
	}
	rateDislikeComment = rateSpec{
		rel: store.CommentDislike, add: action.KindDislikeComment, remove: action.KindUndoDislikeComment,
		subjectKey: "comment_id", idKey: "comment_dislike_id",
		exists: msgCommentDislikeExists, missing: msgCommentDislikeMissing,
		notFound: msgCommentNotFound, selfRating: msgSelfRateComment,
	}
)

// rate inserts a rating row and bumps the subject's counter.
func (p *Platform) rate(ctx context.Context, agentID, subjectID int64, rs rateSpec) (action.Result, error) {
	now := p.clock.Now()

	author, err := p.store.SubjectAuthor(ctx, rs.rel, subjectID)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if !ok {
		return action.Fail(rs.notFound), nil
	}
	if !p.cfg.AllowSelfRating && author == agentID {
		return action.Fail(rs.selfRating), nil
	}

	_, err = p.store.FindRating(ctx, rs.rel, agentID, subjectID)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if ok {
		return action.Fail(rs.exists), nil
	}

	id, err := p.store.AddRating(ctx, rs.rel, agentID, subjectID, now)
	if err != nil {
		return nil, err
	}

	info := map[string]any{rs.subjectKey: subjectID, rs.idKey: id}
	if err := p.trace(ctx, agentID, now, rs.add, info); err != nil {
		return nil, err
	}
	return action.OK(rs.idKey, id), nil
}

// unrate deletes the acting user's rating row and reports its ID.
func (p *Platform) unrate(ctx context.Context, agentID, subjectID int64, rs rateSpec) (action.Result, error) {
	now := p.clock.Now()

	id, err := p.store.FindRating(ctx, rs.rel, agentID, subjectID)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if !ok {
		return action.Fail(rs.missing), nil
	}

	if err := p.store.RemoveRating(ctx, rs.rel, id, subjectID); err != nil {
		return nil, err
	}

	info := map[string]any{rs.subjectKey: subjectID, rs.idKey: id}
	if err := p.trace(ctx, agentID, now, rs.remove, info); err != nil {
		return nil, err
	}
	return action.OK(rs.idKey, id), nil
}

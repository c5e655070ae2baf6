package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/recsys"
	"github.com/roach88/agora/internal/store"
)

func TestLikePost_Lifecycle(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 2)
	ctx := context.Background()

	postID := requireID(t, f.do(t, 1, action.CreatePost{Content: "Hello"}), "post_id")
	assert.Equal(t, int64(1), postID)

	assert.Equal(t, int64(1), requireID(t, f.do(t, 2, action.LikePost{PostID: 1}), "like_id"))

	res := f.do(t, 2, action.LikePost{PostID: 1})
	assert.False(t, res.Success())
	assert.Equal(t, "Like record already exists.", res.Error())

	post, err := f.store.Post(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.NumLikes)

	assert.Equal(t, int64(1), requireID(t, f.do(t, 2, action.UnlikePost{PostID: 1}), "like_id"))

	post, err = f.store.Post(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, post.NumLikes)

	res = f.do(t, 2, action.UnlikePost{PostID: 1})
	assert.Equal(t, "Like record does not exist.", res.Error())

	assert.Equal(t, 1, countTrace(t, f.store, action.KindLikePost))
	assert.Equal(t, 1, countTrace(t, f.store, action.KindUnlikePost))
}

func TestDislikePost(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 2)
	f.do(t, 1, action.CreatePost{Content: "meh"})

	assert.Equal(t, int64(1), requireID(t, f.do(t, 2, action.DislikePost{PostID: 1}), "dislike_id"))
	assert.Equal(t, "Dislike record already exists.", f.do(t, 2, action.DislikePost{PostID: 1}).Error())

	post, err := f.store.Post(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.NumDislikes)

	requireID(t, f.do(t, 2, action.UndoDislikePost{PostID: 1}), "dislike_id")
	assert.Equal(t, "Dislike record does not exist.", f.do(t, 2, action.UndoDislikePost{PostID: 1}).Error())
}

func TestRate_MissingSubject(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 1)

	assert.Equal(t, "Post not found.", f.do(t, 1, action.LikePost{PostID: 42}).Error())
	assert.Equal(t, "Comment not found.", f.do(t, 1, action.LikeComment{CommentID: 42}).Error())
}

func TestRate_SelfRatingDisallowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowSelfRating = false
	f := setupPlatform(t, cfg)
	f.signUp(t, 2)
	f.do(t, 1, action.CreatePost{Content: "mine"})
	f.do(t, 1, action.CreateComment{PostID: 1, Content: "also mine"})

	res := f.do(t, 1, action.LikePost{PostID: 1})
	assert.Equal(t, "Users are not allowed to like/dislike their own posts.", res.Error())
	res = f.do(t, 1, action.DislikeComment{CommentID: 1})
	assert.Equal(t, "Users are not allowed to like/dislike their own comments.", res.Error())

	requireID(t, f.do(t, 2, action.LikePost{PostID: 1}), "like_id")
	assert.Zero(t, countTrace(t, f.store, action.KindDislikeComment))
}

func TestRate_SelfRatingAllowedByDefault(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 1)
	f.do(t, 1, action.CreatePost{Content: "mine"})

	requireID(t, f.do(t, 1, action.LikePost{PostID: 1}), "like_id")
}

func TestComments_Ratings(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 2)
	f.do(t, 1, action.CreatePost{Content: "post"})

	commentID := requireID(t, f.do(t, 2, action.CreateComment{PostID: 1, Content: "nice"}), "comment_id")
	assert.Equal(t, int64(1), commentID)

	assert.Equal(t, "Post not found.", f.do(t, 2, action.CreateComment{PostID: 9, Content: "x"}).Error())

	requireID(t, f.do(t, 1, action.LikeComment{CommentID: 1}), "comment_like_id")
	assert.Equal(t, "Comment like record already exists.", f.do(t, 1, action.LikeComment{CommentID: 1}).Error())
	requireID(t, f.do(t, 1, action.DislikeComment{CommentID: 1}), "comment_dislike_id")

	c, err := f.store.Comment(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.NumLikes)
	assert.Equal(t, int64(1), c.NumDislikes)

	requireID(t, f.do(t, 1, action.UnlikeComment{CommentID: 1}), "comment_like_id")
	requireID(t, f.do(t, 1, action.UndoDislikeComment{CommentID: 1}), "comment_dislike_id")
	assert.Equal(t, "Comment like record does not exist.", f.do(t, 1, action.UnlikeComment{CommentID: 1}).Error())
	assert.Equal(t, "Comment dislike record does not exist.", f.do(t, 1, action.UndoDislikeComment{CommentID: 1}).Error())
}

func TestFollow_Counters(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 2)
	ctx := context.Background()

	followID := requireID(t, f.do(t, 1, action.Follow{FolloweeID: 2}), "follow_id")
	assert.Equal(t, "Follow record already exists.", f.do(t, 1, action.Follow{FolloweeID: 2}).Error())

	a, err := f.store.User(ctx, 1)
	require.NoError(t, err)
	b, err := f.store.User(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.NumFollowings)
	assert.Equal(t, int64(1), b.NumFollowers)

	assert.Equal(t, followID, requireID(t, f.do(t, 1, action.Unfollow{FolloweeID: 2}), "follow_id"))
	assert.Equal(t, "Follow record does not exist.", f.do(t, 1, action.Unfollow{FolloweeID: 2}).Error())

	a, err = f.store.User(ctx, 1)
	require.NoError(t, err)
	b, err = f.store.User(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, a.NumFollowings)
	assert.Zero(t, b.NumFollowers)
}

func TestMute(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 2)

	muteID := requireID(t, f.do(t, 1, action.Mute{MuteeID: 2}), "mute_id")
	assert.Equal(t, "Mute record already exists.", f.do(t, 1, action.Mute{MuteeID: 2}).Error())
	assert.Equal(t, muteID, requireID(t, f.do(t, 1, action.Unmute{MuteeID: 2}), "mute_id"))
	assert.Equal(t, "No mute record exists.", f.do(t, 1, action.Unmute{MuteeID: 2}).Error())

	u, err := f.store.User(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, u.NumFollowers, "muting never touches follow counters")
}

func TestRepost(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 3)
	ctx := context.Background()

	f.do(t, 1, action.CreatePost{Content: "original"})
	f.do(t, 3, action.LikePost{PostID: 1})

	id := requireID(t, f.do(t, 2, action.Repost{PostID: 1}), "post_id")
	repost, err := f.store.Post(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user2 repost from user1. original_post: original", repost.Content)
	assert.Equal(t, int64(1), repost.NumLikes, "repost inherits the like count")

	assert.Equal(t, "Repost record already exists.", f.do(t, 2, action.Repost{PostID: 1}).Error())
	assert.Equal(t, "Repost record already exists.", f.do(t, 2, action.Repost{PostID: id}).Error(),
		"reposting the copy unwraps to the same original")

	nested := requireID(t, f.do(t, 3, action.Repost{PostID: id}), "post_id")
	post, err := f.store.Post(ctx, nested)
	require.NoError(t, err)
	assert.Contains(t, post.Content, "user3 repost from user2.")

	assert.Equal(t, "Post not found.", f.do(t, 2, action.Repost{PostID: 99}).Error())
	assert.Equal(t, 2, countTrace(t, f.store, action.KindRepost))
}

func TestProducts(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 1)

	assert.Equal(t, int64(5), requireID(t, f.do(t, 0, action.SignUpProduct{ProductID: 5, ProductName: "apple"}), "product_id"))
	assert.Equal(t, int64(5), requireID(t, f.do(t, 1, action.PurchaseProduct{ProductName: "apple", Quantity: 3}), "product_id"))
	assert.Equal(t, "No such product.", f.do(t, 1, action.PurchaseProduct{ProductName: "pear", Quantity: 1}).Error())
	for _, n := range []int64{0, -2} {
		assert.Equal(t, "Purchase quantity must be positive.",
			f.do(t, 1, action.PurchaseProduct{ProductName: "apple", Quantity: n}).Error(), "quantity %d", n)
	}

	p, err := f.store.ProductByName(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Sales)
	assert.Equal(t, 1, countTrace(t, f.store, action.KindPurchaseProduct))
}

func TestUnregisteredUser_Rejected(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 1)
	ctx := context.Background()

	assert.Equal(t, "User not found.", f.do(t, 9, action.CreatePost{Content: "ghost"}).Error())
	assert.Equal(t, "User not found.", f.do(t, 1, action.Follow{FolloweeID: 9}).Error())
	assert.Equal(t, "User not found.", f.do(t, 9, action.Follow{FolloweeID: 1}).Error())

	u, err := f.store.User(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, u.NumFollowings)
	assert.Zero(t, u.NumFollowers)
	assert.Zero(t, countTrace(t, f.store, action.KindCreatePost))
	assert.Zero(t, countTrace(t, f.store, action.KindFollow))
}

func TestDoNothing_Traced(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 1)

	assert.True(t, f.do(t, 1, action.DoNothing{}).Success())

	entries, err := f.store.ReadTrace(context.Background(), store.TraceFilter{Actions: []string{string(action.KindDoNothing)}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "{}", entries[0].Info)
}

func TestTrend_WindowAndTopK(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrendTopK = 2
	f := setupPlatform(t, cfg)
	f.signUp(t, 3)

	f.do(t, 1, action.CreatePost{Content: "old"}) // tick 0
	f.do(t, 2, action.LikePost{PostID: 1})
	f.do(t, 3, action.LikePost{PostID: 1})

	f.clock.Set(8 * clock.MinutesPerDay)
	f.do(t, 1, action.CreatePost{Content: "fresh"})
	f.do(t, 1, action.CreatePost{Content: "fresher"})
	f.do(t, 2, action.LikePost{PostID: 3})

	res := f.do(t, 2, action.Trend{})
	require.True(t, res.Success())
	views := res["posts"].([]PostView)
	require.Len(t, views, 2)
	assert.Equal(t, int64(3), views[0].PostID)
	assert.Equal(t, int64(2), views[1].PostID)

	f.clock.Set(30 * clock.MinutesPerDay)
	res = f.do(t, 2, action.Trend{})
	assert.Equal(t, "No trending posts in the specified period.", res.Message())
	assert.Equal(t, 1, countTrace(t, f.store, action.KindTrend))
}

func TestRefresh_EmptyFeed(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.signUp(t, 1)

	res := f.do(t, 1, action.Refresh{})
	assert.False(t, res.Success())
	assert.Equal(t, "No posts found.", res.Message())
	assert.Zero(t, countTrace(t, f.store, action.KindRefresh))
}

func TestRefresh_BoundedByConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRecPostLen = 5
	cfg.RefreshRecPostCount = 2
	cfg.FollowingPostCount = 1
	f := setupPlatform(t, cfg)
	f.signUp(t, 3)

	for range 6 {
		f.do(t, 2, action.CreatePost{Content: "from two"})
	}
	f.do(t, 3, action.CreatePost{Content: "from three"})
	f.do(t, 1, action.Follow{FolloweeID: 3})
	require.True(t, f.do(t, 0, action.UpdateRecTable{}).Success())

	res := f.do(t, 1, action.Refresh{})
	require.True(t, res.Success(), "refresh: %v", res)
	views := res["posts"].([]PostView)
	assert.LessOrEqual(t, len(views), cfg.RefreshRecPostCount+cfg.FollowingPostCount)
	assert.Equal(t, int64(7), views[0].PostID, "followee posts lead the feed")

	seen := map[int64]bool{}
	for _, v := range views {
		assert.False(t, seen[v.PostID], "duplicate post %d", v.PostID)
		seen[v.PostID] = true
	}
	assert.Equal(t, 1, countTrace(t, f.store, action.KindRefresh))
}

func TestRefresh_TrendingIgnoresFollowGraph(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recsys = recsys.Trending
	cfg.MaxRecPostLen = 1
	f := setupPlatform(t, cfg)
	f.signUp(t, 3)

	f.do(t, 2, action.CreatePost{Content: "popular"})
	f.do(t, 3, action.CreatePost{Content: "followed"})
	f.do(t, 3, action.LikePost{PostID: 1})
	f.do(t, 1, action.Follow{FolloweeID: 3})
	f.do(t, 0, action.UpdateRecTable{})

	views := f.do(t, 1, action.Refresh{})["posts"].([]PostView)
	require.Len(t, views, 1)
	assert.Equal(t, int64(1), views[0].PostID)
}

func TestRender_ScoreVisibility(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrendTopK = 5
	f := setupPlatform(t, cfg)
	f.signUp(t, 2)
	f.do(t, 1, action.CreatePost{Content: "p"})
	f.do(t, 2, action.LikePost{PostID: 1})
	f.do(t, 2, action.CreateComment{PostID: 1, Content: "c"})

	views := f.do(t, 1, action.Trend{})["posts"].([]PostView)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].Score)
	require.NotNil(t, views[0].NumLikes)
	assert.Equal(t, int64(1), *views[0].NumLikes)
	require.Len(t, views[0].Comments, 1)
	assert.Equal(t, "c", views[0].Comments[0].Content)

	f.p.cfg.ShowScore = true
	views = f.do(t, 1, action.Trend{})["posts"].([]PostView)
	require.NotNil(t, views[0].Score)
	assert.Equal(t, int64(1), *views[0].Score)
	assert.Nil(t, views[0].NumLikes)
	assert.Nil(t, views[0].NumDislikes)
	require.NotNil(t, views[0].Comments[0].Score)
	assert.Zero(t, *views[0].Comments[0].Score)
}

func TestSearch(t *testing.T) {
	f := setupPlatform(t, DefaultConfig())
	f.do(t, 1, action.SignUp{UserName: "alice", Name: "Alice", Bio: "likes Go"})
	f.do(t, 2, action.SignUp{UserName: "bob", Name: "Bob", Bio: "rust"})
	f.do(t, 1, action.CreatePost{Content: "Gophers unite"})

	res := f.do(t, 2, action.SearchPosts{Query: "gophers"})
	require.True(t, res.Success())
	assert.Len(t, res["posts"].([]PostView), 1)

	res = f.do(t, 2, action.SearchPosts{Query: "nothing here"})
	assert.Equal(t, "No posts found matching the query.", res.Message())
	assert.Equal(t, 2, countTrace(t, f.store, action.KindSearchPosts), "searches are traced even when empty")

	res = f.do(t, 2, action.SearchUser{Query: "ALICE"})
	require.True(t, res.Success())
	assert.Len(t, res["users"], 1)

	res = f.do(t, 2, action.SearchUser{Query: "carol"})
	assert.Equal(t, "No users found matching the query.", res.Message())
}

func TestUpdateRecTable_IncrementalNeedsPosts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recsys = recsys.Incremental
	f := setupPlatform(t, cfg)
	f.signUp(t, 1)

	res := f.do(t, 0, action.UpdateRecTable{})
	assert.Equal(t, "Fail to get latest posts count", res.Message())

	f.do(t, 1, action.CreatePost{Content: "p"})
	assert.True(t, f.do(t, 0, action.UpdateRecTable{}).Success())
}

func TestUpdateRecTable_BoundsEveryRow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRecPostLen = 3
	f := setupPlatform(t, cfg)
	f.signUp(t, 4)
	for i := int64(1); i <= 4; i++ {
		for range 3 {
			f.do(t, i, action.CreatePost{Content: "p"})
		}
	}

	require.True(t, f.do(t, 0, action.UpdateRecTable{}).Success())

	cache, err := f.store.AllRecs(context.Background())
	require.NoError(t, err)
	for user := int64(1); user <= 4; user++ {
		assert.LessOrEqual(t, len(cache[user]), 3, "user %d", user)
	}
	assert.Zero(t, countTrace(t, f.store, action.KindUpdateRecTable))
}

// Package action defines the closed vocabulary of platform commands.
//
// Every command is a concrete struct implementing the sealed Command
// interface. The platform dispatches with an exhaustive type switch; a value
// outside this set is a protocol fault, not a data error.
package action

import (
	"fmt"
	"sort"
)

// Kind is the wire name of an action.
type Kind string

const (
	KindSignUp             Kind = "sign_up"
	KindSignUpProduct      Kind = "sign_up_product"
	KindPurchaseProduct    Kind = "purchase_product"
	KindRefresh            Kind = "refresh"
	KindCreatePost         Kind = "create_post"
	KindRepost             Kind = "repost"
	KindLikePost           Kind = "like_post"
	KindUnlikePost         Kind = "unlike_post"
	KindDislikePost        Kind = "dislike_post"
	KindUndoDislikePost    Kind = "undo_dislike_post"
	KindSearchPosts        Kind = "search_posts"
	KindSearchUser         Kind = "search_user"
	KindFollow             Kind = "follow"
	KindUnfollow           Kind = "unfollow"
	KindMute               Kind = "mute"
	KindUnmute             Kind = "unmute"
	KindTrend              Kind = "trend"
	KindCreateComment      Kind = "create_comment"
	KindLikeComment        Kind = "like_comment"
	KindUnlikeComment      Kind = "unlike_comment"
	KindDislikeComment     Kind = "dislike_comment"
	KindUndoDislikeComment Kind = "undo_dislike_comment"
	KindDoNothing          Kind = "do_nothing"
	KindExit               Kind = "exit"

	// KindUpdateRecTable rebuilds the recommendation cache. It is issued by
	// the simulation driver, never by agents.
	KindUpdateRecTable Kind = "update_rec_table"
)

// Command is a platform action with its typed payload.
type Command interface {
	Kind() Kind
	command() // sealed
}

// Request is one message on the platform channel.
type Request struct {
	AgentID int64
	Command Command
}

// Response is the platform's reply to one Request.
type Response struct {
	AgentID int64  `json:"agent_id"`
	Result  Result `json:"result"`
}

type (
	// SignUp registers the agent's account; the user ID equals the agent ID.
	SignUp struct {
		UserName string `json:"user_name"`
		Name     string `json:"name"`
		Bio      string `json:"bio"`
	}

	// SignUpProduct adds a product to the ledger.
	SignUpProduct struct {
		ProductID   int64  `json:"product_id"`
		ProductName string `json:"product_name"`
	}

	// PurchaseProduct adds Quantity to a product's sales.
	PurchaseProduct struct {
		ProductName string `json:"product_name"`
		Quantity    int64  `json:"purchase_num"`
	}

	Refresh struct{}

	CreatePost struct {
		Content string `json:"content"`
	}

	Repost struct {
		PostID int64 `json:"post_id"`
	}

	LikePost struct {
		PostID int64 `json:"post_id"`
	}

	UnlikePost struct {
		PostID int64 `json:"post_id"`
	}

	DislikePost struct {
		PostID int64 `json:"post_id"`
	}

	UndoDislikePost struct {
		PostID int64 `json:"post_id"`
	}

	SearchPosts struct {
		Query string `json:"query"`
	}

	SearchUser struct {
		Query string `json:"query"`
	}

	Follow struct {
		FolloweeID int64 `json:"followee_id"`
	}

	Unfollow struct {
		FolloweeID int64 `json:"followee_id"`
	}

	Mute struct {
		MuteeID int64 `json:"mutee_id"`
	}

	Unmute struct {
		MuteeID int64 `json:"mutee_id"`
	}

	Trend struct{}

	CreateComment struct {
		PostID  int64  `json:"post_id"`
		Content string `json:"content"`
	}

	LikeComment struct {
		CommentID int64 `json:"comment_id"`
	}

	UnlikeComment struct {
		CommentID int64 `json:"comment_id"`
	}

	DislikeComment struct {
		CommentID int64 `json:"comment_id"`
	}

	UndoDislikeComment struct {
		CommentID int64 `json:"comment_id"`
	}

	DoNothing struct{}

	// Exit terminates the platform loop.
	Exit struct{}

	// UpdateRecTable rebuilds the recommendation cache.
	UpdateRecTable struct{}
)

func (SignUp) Kind() Kind             { return KindSignUp }
func (SignUpProduct) Kind() Kind      { return KindSignUpProduct }
func (PurchaseProduct) Kind() Kind    { return KindPurchaseProduct }
func (Refresh) Kind() Kind            { return KindRefresh }
func (CreatePost) Kind() Kind         { return KindCreatePost }
func (Repost) Kind() Kind             { return KindRepost }
func (LikePost) Kind() Kind           { return KindLikePost }
func (UnlikePost) Kind() Kind         { return KindUnlikePost }
func (DislikePost) Kind() Kind        { return KindDislikePost }
func (UndoDislikePost) Kind() Kind    { return KindUndoDislikePost }
func (SearchPosts) Kind() Kind        { return KindSearchPosts }
func (SearchUser) Kind() Kind         { return KindSearchUser }
func (Follow) Kind() Kind             { return KindFollow }
func (Unfollow) Kind() Kind           { return KindUnfollow }
func (Mute) Kind() Kind               { return KindMute }
func (Unmute) Kind() Kind             { return KindUnmute }
func (Trend) Kind() Kind              { return KindTrend }
func (CreateComment) Kind() Kind      { return KindCreateComment }
func (LikeComment) Kind() Kind        { return KindLikeComment }
func (UnlikeComment) Kind() Kind      { return KindUnlikeComment }
func (DislikeComment) Kind() Kind     { return KindDislikeComment }
func (UndoDislikeComment) Kind() Kind { return KindUndoDislikeComment }
func (DoNothing) Kind() Kind          { return KindDoNothing }
func (Exit) Kind() Kind               { return KindExit }
func (UpdateRecTable) Kind() Kind     { return KindUpdateRecTable }

func (SignUp) command()             {}
func (SignUpProduct) command()      {}
func (PurchaseProduct) command()    {}
func (Refresh) command()            {}
func (CreatePost) command()         {}
func (Repost) command()             {}
func (LikePost) command()           {}
func (UnlikePost) command()         {}
func (DislikePost) command()        {}
func (UndoDislikePost) command()    {}
func (SearchPosts) command()        {}
func (SearchUser) command()         {}
func (Follow) command()             {}
func (Unfollow) command()           {}
func (Mute) command()               {}
func (Unmute) command()             {}
func (Trend) command()              {}
func (CreateComment) command()      {}
func (LikeComment) command()        {}
func (UnlikeComment) command()      {}
func (DislikeComment) command()     {}
func (UndoDislikeComment) command() {}
func (DoNothing) command()          {}
func (Exit) command()               {}
func (UpdateRecTable) command()     {}

// registry maps each kind to a constructor of its zero-valued payload.
var registry = map[Kind]func() Command{
	KindSignUp:             func() Command { return &SignUp{} },
	KindSignUpProduct:      func() Command { return &SignUpProduct{} },
	KindPurchaseProduct:    func() Command { return &PurchaseProduct{} },
	KindRefresh:            func() Command { return &Refresh{} },
	KindCreatePost:         func() Command { return &CreatePost{} },
	KindRepost:             func() Command { return &Repost{} },
	KindLikePost:           func() Command { return &LikePost{} },
	KindUnlikePost:         func() Command { return &UnlikePost{} },
	KindDislikePost:        func() Command { return &DislikePost{} },
	KindUndoDislikePost:    func() Command { return &UndoDislikePost{} },
	KindSearchPosts:        func() Command { return &SearchPosts{} },
	KindSearchUser:         func() Command { return &SearchUser{} },
	KindFollow:             func() Command { return &Follow{} },
	KindUnfollow:           func() Command { return &Unfollow{} },
	KindMute:               func() Command { return &Mute{} },
	KindUnmute:             func() Command { return &Unmute{} },
	KindTrend:              func() Command { return &Trend{} },
	KindCreateComment:      func() Command { return &CreateComment{} },
	KindLikeComment:        func() Command { return &LikeComment{} },
	KindUnlikeComment:      func() Command { return &UnlikeComment{} },
	KindDislikeComment:     func() Command { return &DislikeComment{} },
	KindUndoDislikeComment: func() Command { return &UndoDislikeComment{} },
	KindDoNothing:          func() Command { return &DoNothing{} },
	KindExit:               func() Command { return &Exit{} },
	KindUpdateRecTable:     func() Command { return &UpdateRecTable{} },
}

// ParseKind validates a wire action name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := registry[k]; !ok {
		return "", fmt.Errorf("unknown action %q", name)
	}
	return k, nil
}

// Kinds returns every action kind in sorted order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// AgentFacing reports whether agents may issue k. Exit and the cache
// rebuild are reserved for the driver.
func AgentFacing(k Kind) bool {
	switch k {
	case KindExit, KindUpdateRecTable:
		return false
	default:
		_, ok := registry[k]
		return ok
	}
}

package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/agora/internal/action"
)

// Style selects the action space and phrasing of the system prompt.
type Style string

const (
	StyleTwitter Style = "twitter"
	StyleReddit  Style = "reddit"
)

// Profile describes the persona an agent plays.
type Profile struct {
	UserName string `yaml:"user_name" json:"user_name"`
	Name     string `yaml:"name" json:"name"`
	Bio      string `yaml:"bio" json:"bio"`

	// Description is free text appended to the persona, such as
	// demographics or interests.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type actionDoc struct {
	kind action.Kind
	desc string
	args string
}

var actionDocs = map[action.Kind]actionDoc{
	action.KindDoNothing:      {action.KindDoNothing, "Most of the time you just want to look at the posts. In such cases choose this action.", ""},
	action.KindCreatePost:     {action.KindCreatePost, "Create a new post with the given content.", `"content" (str): the content of the post.`},
	action.KindRepost:         {action.KindRepost, "Repost a post you want to spread.", `"post_id" (integer): the post to repost.`},
	action.KindLikePost:       {action.KindLikePost, "Like a post you find interesting or agree with.", `"post_id" (integer): the post to like.`},
	action.KindDislikePost:    {action.KindDislikePost, "Dislike a post you disagree with or find uninteresting.", `"post_id" (integer): the post to dislike.`},
	action.KindFollow:         {action.KindFollow, "Follow a user you respect or care about.", `"followee_id" (integer): the user to follow.`},
	action.KindMute:           {action.KindMute, "Mute a user you no longer want to hear from.", `"mutee_id" (integer): the user to mute.`},
	action.KindCreateComment:  {action.KindCreateComment, "Comment on a post to share your thoughts.", `"post_id" (integer), "content" (str).`},
	action.KindLikeComment:    {action.KindLikeComment, "Like a comment you appreciate.", `"comment_id" (integer).`},
	action.KindDislikeComment: {action.KindDislikeComment, "Dislike a comment you find unhelpful.", `"comment_id" (integer).`},
	action.KindSearchPosts:    {action.KindSearchPosts, "Search posts by keyword, post ID or user ID.", `"query" (str).`},
	action.KindSearchUser:     {action.KindSearchUser, "Search users by name, bio or user ID.", `"query" (str).`},
	action.KindTrend:          {action.KindTrend, "See the trending posts of recent days.", ""},
	action.KindRefresh:        {action.KindRefresh, "Refresh your feed.", ""},
}

var styleActions = map[Style][]action.Kind{
	StyleTwitter: {
		action.KindDoNothing, action.KindCreatePost, action.KindRepost,
		action.KindLikePost, action.KindDislikePost, action.KindFollow,
		action.KindCreateComment, action.KindLikeComment, action.KindDislikeComment,
	},
	StyleReddit: {
		action.KindLikeComment, action.KindDislikeComment, action.KindLikePost,
		action.KindDislikePost, action.KindSearchPosts, action.KindSearchUser,
		action.KindTrend, action.KindRefresh, action.KindDoNothing,
		action.KindCreateComment, action.KindFollow, action.KindMute,
	},
}

const responseFormat = `Your answer should follow the response format:

{
    "reason": "your feeling about these posts and users, then choose some functions based on the feeling. Reasons and explanations can only appear here.",
    "functions": [{
        "name": "Function name 1",
        "arguments": {
            "argument_1": "Function argument",
            "argument_2": "Function argument"
        }
    }]
}

Ensure that your output can be directly converted into **JSON format**, and avoid outputting anything unnecessary! Don't forget the key ` + "`name`."

// SystemPrompt renders the persona and action space for style.
func SystemPrompt(p Profile, style Style) string {
	kinds, ok := styleActions[style]
	if !ok {
		kinds = styleActions[StyleTwitter]
		style = StyleTwitter
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You're a %s user, and I'll present you with some posts. ", displayName(style))
	b.WriteString("After you see the posts, choose some actions from the following functions.\n\n")
	for _, k := range kinds {
		doc := actionDocs[k]
		fmt.Fprintf(&b, "- %s: %s\n", doc.kind, doc.desc)
		if doc.args != "" {
			fmt.Fprintf(&b, "    - Arguments: %s\n", doc.args)
		}
	}

	b.WriteString("\nYour actions should be consistent with your self-description and personality.\n\n")
	if p.Name != "" {
		fmt.Fprintf(&b, "Your name is %s.\n", p.Name)
	}
	if p.Bio != "" {
		fmt.Fprintf(&b, "Your have profile: %s.\n", p.Bio)
	}
	if p.Description != "" {
		b.WriteString(p.Description)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(responseFormat)
	return b.String()
}

func displayName(s Style) string {
	if s == StyleReddit {
		return "Reddit"
	}
	return "Twitter"
}

// EnvironmentPrompt renders a refresh result as the observation shown to
// the model.
func EnvironmentPrompt(feed action.Result) string {
	posts, ok := feed["posts"]
	if !feed.Success() || !ok {
		return "After refreshing, there are no existing posts."
	}
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return "After refreshing, there are no existing posts."
	}
	return "After refreshing, you see some posts " + string(data)
}

func userTurn(env string) string {
	return "You are not a AI assistant, you are a real human. " +
		"Please perform social media actions after observing the platform environments. " +
		"Here is your social media environment: " + env
}

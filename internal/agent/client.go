package agent

import (
	"context"
	"fmt"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/platform"
)

// Conn issues platform commands on behalf of one agent.
type Conn interface {
	Do(ctx context.Context, cmd action.Command) (action.Result, error)
}

// Client is a Conn over an in-process platform channel.
type Client struct {
	agentID int64
	ch      *platform.Channel
}

// NewClient creates a client that acts as agentID.
func NewClient(agentID int64, ch *platform.Channel) *Client {
	return &Client{agentID: agentID, ch: ch}
}

// AgentID returns the identity the client acts as.
func (c *Client) AgentID() int64 { return c.agentID }

// Do submits cmd and waits for its result.
func (c *Client) Do(ctx context.Context, cmd action.Command) (action.Result, error) {
	resp, err := c.ch.Call(ctx, action.Request{AgentID: c.agentID, Command: cmd})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Kind(), err)
	}
	return resp.Result, nil
}

// Convenience wrappers for the commands callers issue directly.

func (c *Client) SignUp(ctx context.Context, userName, name, bio string) (action.Result, error) {
	return c.Do(ctx, action.SignUp{UserName: userName, Name: name, Bio: bio})
}

func (c *Client) Refresh(ctx context.Context) (action.Result, error) {
	return c.Do(ctx, action.Refresh{})
}

func (c *Client) CreatePost(ctx context.Context, content string) (action.Result, error) {
	return c.Do(ctx, action.CreatePost{Content: content})
}

func (c *Client) LikePost(ctx context.Context, postID int64) (action.Result, error) {
	return c.Do(ctx, action.LikePost{PostID: postID})
}

func (c *Client) Follow(ctx context.Context, followeeID int64) (action.Result, error) {
	return c.Do(ctx, action.Follow{FolloweeID: followeeID})
}

// UpdateRecTable asks the platform to rebuild its recommendation cache.
func (c *Client) UpdateRecTable(ctx context.Context) (action.Result, error) {
	return c.Do(ctx, action.UpdateRecTable{})
}

// Exit stops the platform loop.
func (c *Client) Exit(ctx context.Context) (action.Result, error) {
	return c.Do(ctx, action.Exit{})
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/roach88/agora/internal/action"
)

// Client is an agent.Conn over a gateway websocket. One Client may carry
// requests for several agents when created with DialAs per agent.
type Client struct {
	conn    *websocket.Conn
	agentID int64

	next    atomic.Int64
	mu      sync.Mutex
	waiters map[string]chan Reply
	err     error
	done    chan struct{}
}

// Dial connects to the gateway at url (ws://host/ws) acting as agentID.
func Dial(ctx context.Context, url string, agentID int64) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	c := &Client{
		conn:    conn,
		agentID: agentID,
		waiters: make(map[string]chan Reply),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Do sends cmd and waits for its result.
func (c *Client) Do(ctx context.Context, cmd action.Command) (action.Result, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Kind(), err)
	}
	ref := strconv.FormatInt(c.next.Add(1), 10)
	frame := Frame{Ref: ref, AgentID: c.agentID, Action: string(cmd.Kind()), Payload: payload}

	wait := make(chan Reply, 1)
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil, c.err
	}
	c.waiters[ref] = wait
	c.mu.Unlock()

	if err := writeJSON(ctx, c.conn, frame); err != nil {
		c.forget(ref)
		return nil, fmt.Errorf("send %s: %w", cmd.Kind(), err)
	}

	select {
	case reply := <-wait:
		return reply.Result, nil
	case <-c.done:
		return nil, c.closedErr()
	case <-ctx.Done():
		c.forget(ref)
		return nil, ctx.Err()
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Client) readLoop() {
	defer close(c.done)
	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			c.err = fmt.Errorf("gateway connection closed: %w", err)
			c.mu.Unlock()
			return
		}
		var reply Reply
		if err := json.Unmarshal(data, &reply); err != nil {
			continue
		}
		c.mu.Lock()
		wait, ok := c.waiters[reply.Ref]
		delete(c.waiters, reply.Ref)
		c.mu.Unlock()
		if ok {
			wait <- reply
		}
	}
}

func (c *Client) forget(ref string) {
	c.mu.Lock()
	delete(c.waiters, ref)
	c.mu.Unlock()
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

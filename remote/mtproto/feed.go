package mtproto

import (
	"context"
	"errors"

	"github.com/gotd/td/tg"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
)

var errFeedClosed = errors.New("mtproto: live feed closed")

type subscription struct {
	client *Client
	chatID int64
	ch     chan remote.RawMessage
	closed chan struct{}
}

// Subscribe registers a buffered feed of new messages scoped to chat. The
// update dispatcher fans incoming messages out to matching subscriptions;
// a full buffer drops the oldest pending message rather than blocking the
// dispatcher.
func (c *Client) Subscribe(ctx context.Context, chat remote.Chat) (remote.Subscription, error) {
	if _, err := c.inputPeer(chat); err != nil {
		return nil, err
	}
	sub := &subscription{
		client: c,
		chatID: chat.ID,
		ch:     make(chan remote.RawMessage, liveFeedBuffer),
		closed: make(chan struct{}),
	}
	c.subMu.Lock()
	c.subs[chat.ID] = append(c.subs[chat.ID], sub)
	c.subMu.Unlock()
	return sub, nil
}

func (s *subscription) Recv(ctx context.Context) (remote.RawMessage, error) {
	select {
	case msg, ok := <-s.ch:
		if !ok {
			return remote.RawMessage{}, errFeedClosed
		}
		return msg, nil
	case <-s.closed:
		return remote.RawMessage{}, errFeedClosed
	case <-ctx.Done():
		return remote.RawMessage{}, ctx.Err()
	}
}

func (s *subscription) Close() error {
	s.client.unsubscribe(s)
	return nil
}

func (c *Client) unsubscribe(sub *subscription) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	subs := c.subs[sub.chatID]
	for i, candidate := range subs {
		if candidate == sub {
			c.subs[sub.chatID] = append(subs[:i], subs[i+1:]...)
			close(sub.closed)
			return
		}
	}
}

// handleUpdate runs on the dispatcher goroutine for every new message.
func (c *Client) handleUpdate(e tg.Entities, msg tg.MessageClass) {
	m, ok := msg.(*tg.Message)
	if !ok {
		return
	}
	raw, ok := convertMessage(m)
	if !ok {
		return
	}
	for _, user := range e.Users {
		c.harvestUsers([]tg.UserClass{user})
	}

	chatID := peerID(m.PeerID)
	// Outgoing messages in a user dialog carry the peer in PeerID as well,
	// so one key covers both directions.
	c.subMu.Lock()
	subs := append([]*subscription(nil), c.subs[chatID]...)
	c.subMu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- raw:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- raw:
			default:
			}
		}
	}
}

// dropSubscriptions terminates every open feed when the run loop exits.
func (c *Client) dropSubscriptions() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for chatID, subs := range c.subs {
		for _, sub := range subs {
			close(sub.closed)
		}
		delete(c.subs, chatID)
	}
}

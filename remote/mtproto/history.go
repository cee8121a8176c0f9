package mtproto

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
)

// HistoryCount asks for one page of history and reads the server-side total.
// Small chats answer with the full listing, whose length is the total.
func (c *Client) HistoryCount(ctx context.Context, chat remote.Chat) (int, error) {
	peer, err := c.inputPeer(chat)
	if err != nil {
		return 0, err
	}
	raw, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: 1,
	})
	if err != nil {
		return 0, fmt.Errorf("mtproto: count history: %w", err)
	}
	switch h := raw.(type) {
	case *tg.MessagesMessages:
		return len(h.Messages), nil
	case *tg.MessagesMessagesSlice:
		return h.Count, nil
	case *tg.MessagesChannelMessages:
		return h.Count, nil
	}
	return 0, fmt.Errorf("mtproto: unexpected history type %T", raw)
}

// History pages the backlog newest-first, keeps up to limit messages and
// yields them oldest-first.
func (c *Client) History(ctx context.Context, chat remote.Chat, limit int) (remote.MessageIter, error) {
	peer, err := c.inputPeer(chat)
	if err != nil {
		return nil, err
	}

	var collected []remote.RawMessage
	offsetID := 0
	for limit <= 0 || len(collected) < limit {
		batch := historyBatchSize
		if limit > 0 && limit-len(collected) < batch {
			batch = limit - len(collected)
		}
		raw, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			Limit:    batch,
			OffsetID: offsetID,
		})
		if err != nil {
			return nil, fmt.Errorf("mtproto: fetch history: %w", err)
		}

		messages, users, err := splitHistory(raw)
		if err != nil {
			return nil, err
		}
		c.harvestUsers(users)
		if len(messages) == 0 {
			break
		}
		for _, mc := range messages {
			switch m := mc.(type) {
			case *tg.Message:
				offsetID = m.ID
				if converted, ok := convertMessage(m); ok {
					collected = append(collected, converted)
				}
			case *tg.MessageService:
				offsetID = m.ID
			case *tg.MessageEmpty:
				offsetID = m.ID
			}
		}
		if len(messages) < batch {
			break
		}
	}

	// Reverse into remote chronological order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return &sliceIter{messages: collected}, nil
}

func splitHistory(raw tg.MessagesMessagesClass) ([]tg.MessageClass, []tg.UserClass, error) {
	switch h := raw.(type) {
	case *tg.MessagesMessages:
		return h.Messages, h.Users, nil
	case *tg.MessagesMessagesSlice:
		return h.Messages, h.Users, nil
	case *tg.MessagesChannelMessages:
		return h.Messages, h.Users, nil
	}
	return nil, nil, fmt.Errorf("mtproto: unexpected history type %T", raw)
}

type sliceIter struct {
	messages []remote.RawMessage
	pos      int
	current  remote.RawMessage
	err      error
}

func (it *sliceIter) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		it.err = err
		return false
	}
	if it.pos >= len(it.messages) {
		return false
	}
	it.current = it.messages[it.pos]
	it.pos++
	return true
}

func (it *sliceIter) Value() remote.RawMessage { return it.current }

func (it *sliceIter) Err() error { return it.err }

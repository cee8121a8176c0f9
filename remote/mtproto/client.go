// Package mtproto implements the remote boundary over an MTProto user
// account session using gotd. It satisfies remote.Authenticator and
// remote.Client; the pipeline never imports gotd directly.
package mtproto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
)

const (
	historyBatchSize = 100
	dialogsPageSize  = 100
	liveFeedBuffer   = 64
)

type Options struct {
	APIID          int
	APIHash        string
	SessionStorage session.Storage
	Logger         *slog.Logger
}

// Client owns one live MTProto connection. Connect starts the gotd run loop
// on a background goroutine; Disconnect stops it. All message-plane calls
// require a prior successful Connect.
type Client struct {
	opts   Options
	logger *slog.Logger

	client     *telegram.Client
	api        *tg.Client
	dispatcher tg.UpdateDispatcher

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runErr error

	peerMu sync.RWMutex
	peers  map[int64]tg.InputPeerClass
	names  map[int64]string

	subMu sync.Mutex
	subs  map[int64][]*subscription
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		opts:   opts,
		logger: logger,
		peers:  make(map[int64]tg.InputPeerClass),
		names:  make(map[int64]string),
		subs:   make(map[int64][]*subscription),
	}
}

var (
	_ remote.Authenticator = (*Client)(nil)
	_ remote.Client        = (*Client)(nil)
)

// Connect starts the client run loop and waits until the transport is up.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return nil
	}

	c.dispatcher = tg.NewUpdateDispatcher()
	c.dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		c.handleUpdate(e, u.Message)
		return nil
	})
	c.dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		c.handleUpdate(e, u.Message)
		return nil
	})

	c.client = telegram.NewClient(c.opts.APIID, c.opts.APIHash, telegram.Options{
		SessionStorage: c.opts.SessionStorage,
		UpdateHandler:  c.dispatcher,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		err := c.client.Run(runCtx, func(ctx context.Context) error {
			c.api = c.client.API()
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
		c.mu.Lock()
		if err != nil && !errors.Is(err, context.Canceled) {
			c.runErr = err
		}
		c.mu.Unlock()
		c.dropSubscriptions()
	}()

	select {
	case <-ready:
		return nil
	case <-done:
		c.mu.Lock()
		err := c.runErr
		c.cancel, c.done = nil, nil
		c.mu.Unlock()
		if err != nil {
			return err
		}
		return errors.New("mtproto: client stopped during connect")
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Disconnect stops the run loop and waits for it to exit.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return nil
}

func (c *Client) IsAuthorized(ctx context.Context) (bool, error) {
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Authorized, nil
}

func (c *Client) SendCode(ctx context.Context, phone string) (string, error) {
	sent, err := c.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", err
	}
	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return "", fmt.Errorf("mtproto: unexpected sent code type %T", sent)
	}
	return code.PhoneCodeHash, nil
}

func (c *Client) SignInCode(ctx context.Context, phone, code, codeHash string) error {
	_, err := c.client.Auth().SignIn(ctx, phone, code, codeHash)
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		return fmt.Errorf("%w: %v", remote.ErrPasswordNeeded, err)
	}
	return err
}

func (c *Client) SignInPassword(ctx context.Context, password string) error {
	_, err := c.client.Auth().Password(ctx, password)
	return err
}

// Resolve maps an @handle through contacts.resolveUsername and a bare
// numeric id through the account's dialog list, caching the access-hash
// bearing input peer either way.
func (c *Client) Resolve(ctx context.Context, chatRef string) (remote.Chat, error) {
	chatRef = strings.TrimSpace(chatRef)
	if chatRef == "" {
		return remote.Chat{}, fmt.Errorf("%w: empty chat ref", remote.ErrNotFound)
	}
	if id, err := strconv.ParseInt(chatRef, 10, 64); err == nil {
		return c.resolveByID(ctx, id)
	}
	return c.resolveUsername(ctx, strings.TrimPrefix(chatRef, "@"))
}

func (c *Client) resolveUsername(ctx context.Context, username string) (remote.Chat, error) {
	resolved, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		return remote.Chat{}, fmt.Errorf("%w: @%s: %v", remote.ErrNotFound, username, err)
	}
	c.harvestUsers(resolved.Users)

	id := peerID(resolved.Peer)
	switch peer := resolved.Peer.(type) {
	case *tg.PeerUser:
		for _, u := range resolved.Users {
			user, ok := u.(*tg.User)
			if !ok || user.ID != peer.UserID {
				continue
			}
			c.putPeer(id, &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash})
			return remote.Chat{ID: user.ID, Username: user.Username, Title: displayName(user)}, nil
		}
	case *tg.PeerChannel:
		for _, ch := range resolved.Chats {
			channel, ok := ch.(*tg.Channel)
			if !ok || channel.ID != peer.ChannelID {
				continue
			}
			c.putPeer(id, &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash})
			return remote.Chat{ID: channel.ID, Username: channel.Username, Title: channel.Title}, nil
		}
	}
	return remote.Chat{}, fmt.Errorf("%w: @%s: peer missing from response", remote.ErrNotFound, username)
}

func (c *Client) resolveByID(ctx context.Context, id int64) (remote.Chat, error) {
	raw, err := c.api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogsPageSize,
	})
	if err != nil {
		return remote.Chat{}, fmt.Errorf("%w: id %d: %v", remote.ErrNotFound, id, err)
	}

	var users []tg.UserClass
	var chats []tg.ChatClass
	switch d := raw.(type) {
	case *tg.MessagesDialogs:
		users, chats = d.Users, d.Chats
	case *tg.MessagesDialogsSlice:
		users, chats = d.Users, d.Chats
	default:
		return remote.Chat{}, fmt.Errorf("%w: id %d: unexpected dialogs type %T", remote.ErrNotFound, id, raw)
	}
	c.harvestUsers(users)

	for _, u := range users {
		if user, ok := u.(*tg.User); ok && user.ID == id {
			c.putPeer(id, &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash})
			return remote.Chat{ID: user.ID, Username: user.Username, Title: displayName(user)}, nil
		}
	}
	for _, ch := range chats {
		switch chat := ch.(type) {
		case *tg.Chat:
			if chat.ID == id {
				c.putPeer(id, &tg.InputPeerChat{ChatID: chat.ID})
				return remote.Chat{ID: chat.ID, Title: chat.Title}, nil
			}
		case *tg.Channel:
			if chat.ID == id {
				c.putPeer(id, &tg.InputPeerChannel{ChannelID: chat.ID, AccessHash: chat.AccessHash})
				return remote.Chat{ID: chat.ID, Username: chat.Username, Title: chat.Title}, nil
			}
		}
	}
	return remote.Chat{}, fmt.Errorf("%w: id %d not among recent dialogs", remote.ErrNotFound, id)
}

func (c *Client) SenderName(ctx context.Context, senderID int64) (string, error) {
	c.peerMu.RLock()
	name, ok := c.names[senderID]
	c.peerMu.RUnlock()
	if ok {
		return name, nil
	}

	res, err := c.api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUser{UserID: senderID}})
	if err != nil {
		return "", err
	}
	for _, u := range res {
		if user, ok := u.(*tg.User); ok && user.ID == senderID {
			c.harvestUsers([]tg.UserClass{user})
			return displayName(user), nil
		}
	}
	return "", fmt.Errorf("mtproto: user %d not returned", senderID)
}

// Download streams the file behind ref to path using gotd's downloader.
func (c *Client) Download(ctx context.Context, ref remote.MediaRef, path string) error {
	loc, ok := ref.(fileLocation)
	if !ok {
		return fmt.Errorf("mtproto: unexpected media ref %T", ref)
	}
	_, err := downloader.NewDownloader().Download(c.api, loc.loc).ToPath(ctx, path)
	return err
}

func (c *Client) putPeer(id int64, peer tg.InputPeerClass) {
	c.peerMu.Lock()
	c.peers[id] = peer
	c.peerMu.Unlock()
}

func (c *Client) inputPeer(chat remote.Chat) (tg.InputPeerClass, error) {
	c.peerMu.RLock()
	peer, ok := c.peers[chat.ID]
	c.peerMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mtproto: chat %d not resolved", chat.ID)
	}
	return peer, nil
}

func (c *Client) harvestUsers(users []tg.UserClass) {
	c.peerMu.Lock()
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			if name := displayName(user); name != "" {
				c.names[user.ID] = name
			}
		}
	}
	c.peerMu.Unlock()
}

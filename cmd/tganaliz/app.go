package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/FeldmanGot/ai-tg-analiz/account"
	"github.com/FeldmanGot/ai-tg-analiz/archive"
	"github.com/FeldmanGot/ai-tg-analiz/internal/fsstore"
	"github.com/FeldmanGot/ai-tg-analiz/internal/logutil"
	"github.com/FeldmanGot/ai-tg-analiz/internal/statepaths"
	"github.com/FeldmanGot/ai-tg-analiz/llm"
	"github.com/FeldmanGot/ai-tg-analiz/profile"
	"github.com/FeldmanGot/ai-tg-analiz/providers/gemini"
	"github.com/FeldmanGot/ai-tg-analiz/providers/openai"
	"github.com/FeldmanGot/ai-tg-analiz/remote/mtproto"
	"github.com/FeldmanGot/ai-tg-analiz/store"
	"github.com/FeldmanGot/ai-tg-analiz/transcribe/whisper"
)

// app wires the pipeline from viper config. One app is one account session.
type app struct {
	logger   *slog.Logger
	client   *mtproto.Client
	session  *account.Session
	store    *store.Store
	acquirer *archive.Acquirer
	synth    *profile.Synthesizer
	statuses *archive.StatusRegistry
}

func buildApp() (*app, error) {
	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return nil, err
	}

	apiID := viper.GetInt("telegram.api_id")
	apiHash := viper.GetString("telegram.api_hash")
	phone := viper.GetString("telegram.phone")
	if apiID == 0 || apiHash == "" || phone == "" {
		return nil, fmt.Errorf("telegram.api_id, telegram.api_hash and telegram.phone are required (config or %s_* env)", envPrefix)
	}

	for _, dir := range statepaths.All() {
		if err := fsstore.EnsureDir(dir); err != nil {
			return nil, err
		}
	}

	accStore := account.NewStore(statepaths.SessionsDir())
	client := mtproto.New(mtproto.Options{
		APIID:   apiID,
		APIHash: apiHash,
		SessionStorage: &mtproto.SessionStorage{
			Store:     accStore,
			AccountID: int64(apiID),
			Phone:     phone,
		},
		Logger: logger,
	})
	session := account.NewSession(int64(apiID), phone, client, accStore, logger)

	st := store.New(statepaths.LiveDir(), statepaths.ProfilesDir(), statepaths.LocksDir())
	transcriber := whisper.New(
		viper.GetString("transcribe.base_url"),
		viper.GetString("transcribe.api_key"),
		viper.GetString("transcribe.model"),
	)
	acquirer := archive.NewAcquirer(
		statepaths.MediaDir(),
		client,
		transcriber,
		viper.GetString("transcribe.language"),
		logger,
	)

	llmClient, err := llmClientFromViper()
	if err != nil {
		return nil, err
	}
	synth := profile.NewSynthesizer(llmClient, viper.GetString("llm.model"), st, logger)
	synth.Timeout = llmTimeout()

	return &app{
		logger:   logger,
		client:   client,
		session:  session,
		store:    st,
		acquirer: acquirer,
		synth:    synth,
		statuses: archive.NewStatusRegistry(),
	}, nil
}

func llmClientFromViper() (llm.Client, error) {
	apiKey := viper.GetString("llm.api_key")
	switch provider := viper.GetString("llm.provider"); provider {
	case "", "openai":
		return openai.New(viper.GetString("llm.base_url"), apiKey), nil
	case "gemini":
		return gemini.New(apiKey), nil
	default:
		return nil, fmt.Errorf("unknown llm.provider: %s", provider)
	}
}

func llmTimeout() time.Duration {
	seconds := viper.GetInt("llm.timeout_seconds")
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

func (a *app) archiver() *archive.Archiver {
	return &archive.Archiver{
		Client:   a.client,
		Store:    a.store,
		Acquirer: a.acquirer,
		Synth:    a.synth,
		Statuses: a.statuses,
		Guard:    a.session,
		Logger:   a.logger,
	}
}

func (a *app) listener() *archive.Listener {
	return &archive.Listener{
		Client:         a.client,
		Store:          a.store,
		Acquirer:       a.acquirer,
		Synth:          a.synth,
		Guard:          a.session,
		Logger:         a.logger,
		RefreshTimeout: llmTimeout(),
	}
}

// ensureAuthorized connects and restores the persisted session. It does not
// start an interactive login; that is the login command's job.
func (a *app) ensureAuthorized(ctx context.Context) error {
	if err := a.session.Connect(ctx); err != nil {
		return err
	}
	ok, err := a.session.CheckAuthorized(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account is not authorized; run 'tganaliz login' first")
	}
	return nil
}

func (a *app) close() {
	if err := a.client.Disconnect(); err != nil {
		a.logger.Warn("disconnect_failed", "error", err.Error())
	}
}

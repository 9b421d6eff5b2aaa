package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"estate-advisor/internal/telegram"
)

const pollTimeoutSec = 30

// UpdateSource is the inbound side of the chat transport.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
}

// RunPolling drives the bot off long polling until ctx is cancelled. Updates
// are handled one at a time in arrival order; turns from different chats are
// not interleaved.
func RunPolling(ctx context.Context, source UpdateSource, b *Bot, log zerolog.Logger) error {
	var offset int64
	for {
		updates, err := source.GetUpdates(ctx, offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Msg("poll failed, backing off")
			select {
			case <-time.After(3 * time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for _, upd := range updates {
			b.HandleUpdate(ctx, upd)
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
		}
	}
}

// WebhookServer receives updates pushed by the Bot API. The update path
// embeds the bot token, which is the API's own recommendation for keeping
// the endpoint unguessable.
type WebhookServer struct {
	bot *Bot
	log zerolog.Logger
}

func NewWebhookServer(b *Bot, token string, log zerolog.Logger) http.Handler {
	s := &WebhookServer{bot: b, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/"+token, s.handleUpdate)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *WebhookServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.log.Warn().Err(err).Msg("malformed webhook update")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.bot.HandleUpdate(r.Context(), upd)
	w.WriteHeader(http.StatusOK)
}

func (s *WebhookServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

// ServeWebhook registers the webhook with the Bot API and serves it until
// ctx is cancelled.
func ServeWebhook(ctx context.Context, client *telegram.Client, b *Bot, token, baseURL, addr string, log zerolog.Logger) error {
	if err := client.SetWebhook(ctx, fmt.Sprintf("%s/webhook/%s", baseURL, token)); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.DeleteWebhook(cleanupCtx); err != nil {
			log.Warn().Err(err).Msg("delete webhook failed")
		}
	}()

	srv := &http.Server{Addr: addr, Handler: NewWebhookServer(b, token, log)}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

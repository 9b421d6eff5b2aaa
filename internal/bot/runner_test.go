package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"estate-advisor/internal/telegram"
)

type scriptedSource struct {
	batches [][]telegram.Update
	offsets []int64
	cancel  context.CancelFunc
}

func (s *scriptedSource) GetUpdates(ctx context.Context, offset int64, _ int) ([]telegram.Update, error) {
	s.offsets = append(s.offsets, offset)
	if len(s.batches) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func TestRunPollingAdvancesOffset(t *testing.T) {
	f := newFixture(t, &stubCaller{narrative: "x"})
	ctx, cancel := context.WithCancel(context.Background())
	source := &scriptedSource{
		batches: [][]telegram.Update{
			{{UpdateID: 5, Message: &telegram.Message{From: &telegram.User{ID: 42}, Chat: telegram.Chat{ID: 42}, Text: "/start"}}},
			{{UpdateID: 6, Message: &telegram.Message{From: &telegram.User{ID: 42}, Chat: telegram.Chat{ID: 42}, Text: "/start"}}},
		},
		cancel: cancel,
	}

	err := RunPolling(ctx, source, f.bot, zerolog.Nop())
	if err != context.Canceled {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(source.offsets) != 3 || source.offsets[1] != 6 || source.offsets[2] != 7 {
		t.Fatalf("unexpected offsets: %v", source.offsets)
	}
	if len(f.api.messages) != 2 {
		t.Fatalf("expected both updates handled, got %d messages", len(f.api.messages))
	}
}

func TestWebhookServerDispatchesUpdate(t *testing.T) {
	f := newFixture(t, &stubCaller{narrative: "x"})
	handler := NewWebhookServer(f.bot, "test-token", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhook/test-token",
		strings.NewReader(`{"update_id":1,"message":{"message_id":1,"from":{"id":42},"chat":{"id":42},"text":"/start"}}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if f.api.lastMessage() != msgChooseAction {
		t.Fatalf("update not dispatched: %q", f.api.lastMessage())
	}
}

func TestWebhookServerRejectsMalformedBody(t *testing.T) {
	f := newFixture(t, &stubCaller{})
	handler := NewWebhookServer(f.bot, "test-token", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhook/test-token", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestWebhookServerGetNotAllowed(t *testing.T) {
	f := newFixture(t, &stubCaller{})
	handler := NewWebhookServer(f.bot, "test-token", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/webhook/test-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, &stubCaller{})
	handler := NewWebhookServer(f.bot, "test-token", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}

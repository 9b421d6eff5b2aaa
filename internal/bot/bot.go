// Package bot owns the conversation: routing updates, the per-chat input
// state machine, and the analyze → grade → persist → render turn pipeline.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"estate-advisor/internal/analysis"
	"estate-advisor/internal/listing"
	"estate-advisor/internal/report"
	"estate-advisor/internal/store"
	"estate-advisor/internal/telegram"
)

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	SendDocument(ctx context.Context, chatID int64, filename string, document []byte) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Analyzer produces a narrative and grade for one listing. Soft remote
// failures come back as fallback results, never as errors.
type Analyzer interface {
	Analyze(ctx context.Context, rec listing.Record) analysis.Result
}

// ReportStore persists completed analyses.
type ReportStore interface {
	SaveAnalysis(ctx context.Context, userID int64, rec listing.Record, narrative string) error
	RecentAnalyses(ctx context.Context, userID int64, limit int) ([]store.Analysis, error)
}

// Renderer turns results into a PDF buffer.
type Renderer interface {
	Render(ctx context.Context, items []report.Item) ([]byte, error)
}

type Bot struct {
	api      Messenger
	analyzer Analyzer
	store    ReportStore
	renderer Renderer
	sessions *SessionStore
	log      zerolog.Logger
	tracer   trace.Tracer
}

func New(api Messenger, analyzer Analyzer, st ReportStore, renderer Renderer, sessions *SessionStore, log zerolog.Logger) *Bot {
	return &Bot{
		api:      api,
		analyzer: analyzer,
		store:    st,
		renderer: renderer,
		sessions: sessions,
		log:      log,
		tracer:   otel.Tracer("estate-advisor/bot"),
	}
}

// HandleUpdate processes one update as one turn. Unexpected failures are
// recovered here: the turn is logged, the user gets a generic retry message,
// and the session state stays consistent for the next turn.
func (b *Bot) HandleUpdate(ctx context.Context, upd telegram.Update) {
	chatID, userID := updateIdentity(upd)
	if chatID == 0 {
		return
	}

	turnID := uuid.NewString()
	ctx, span := b.tracer.Start(ctx, "bot.turn", trace.WithAttributes(
		attribute.String("turn.id", turnID),
		attribute.Int64("chat.id", chatID),
	))
	defer span.End()

	log := b.log.With().Str("turn_id", turnID).Int64("chat_id", chatID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("turn handler panicked")
			b.sessions.Reset(chatID)
			b.reply(ctx, log, chatID, msgErrUnexpected)
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, log, chatID, upd.CallbackQuery)
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		b.handleCommand(ctx, log, chatID, userID, upd.Message.Text)
	case upd.Message != nil:
		b.handleText(ctx, log, chatID, userID, upd.Message.Text)
	}
}

func updateIdentity(upd telegram.Update) (chatID, userID int64) {
	switch {
	case upd.Message != nil:
		chatID = upd.Message.Chat.ID
		if upd.Message.From != nil {
			userID = upd.Message.From.ID
		}
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		chatID = upd.CallbackQuery.Message.Chat.ID
		userID = upd.CallbackQuery.From.ID
	}
	return chatID, userID
}

func (b *Bot) handleCommand(ctx context.Context, log zerolog.Logger, chatID, userID int64, text string) {
	cmd := strings.Fields(text)[0]
	switch cmd {
	case "/start":
		b.sessions.Reset(chatID)
		markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "Анализ объекта", CallbackData: "analyze"}},
			{{Text: "Сравнить объекты", CallbackData: "compare"}},
		}}
		if err := b.api.SendMessage(ctx, chatID, msgChooseAction, markup); err != nil {
			log.Error().Err(err).Msg("send start menu failed")
		}
	case "/history":
		b.handleHistory(ctx, log, chatID, userID)
	default:
		b.reply(ctx, log, chatID, msgNeedStart)
	}
}

func (b *Bot) handleHistory(ctx context.Context, log zerolog.Logger, chatID, userID int64) {
	rows, err := b.store.RecentAnalyses(ctx, userID, 5)
	if err != nil {
		log.Error().Err(err).Msg("history lookup failed")
		b.reply(ctx, log, chatID, msgErrStorage)
		return
	}
	if len(rows) == 0 {
		b.reply(ctx, log, chatID, "История анализов пуста.")
		return
	}
	var sb strings.Builder
	sb.WriteString("📜 *Последние анализы*:\n")
	for _, row := range rows {
		fmt.Fprintf(&sb, "\n• %s, %g м², %d руб (%s)\n", row.Location, row.Area, row.Price, row.Type)
	}
	b.reply(ctx, log, chatID, sb.String())
}

func (b *Bot) handleCallback(ctx context.Context, log zerolog.Logger, chatID int64, cq *telegram.CallbackQuery) {
	if err := b.api.AnswerCallbackQuery(ctx, cq.ID); err != nil {
		log.Warn().Err(err).Msg("answer callback failed")
	}
	switch cq.Data {
	case "analyze":
		b.sessions.Set(chatID, ModeAnalysis)
		b.reply(ctx, log, chatID, msgPromptAnalyze)
	case "compare":
		b.sessions.Set(chatID, ModeComparison)
		b.reply(ctx, log, chatID, msgPromptCompare)
	default:
		log.Warn().Str("data", cq.Data).Msg("unknown callback data")
	}
}

func (b *Bot) handleText(ctx context.Context, log zerolog.Logger, chatID, userID int64, text string) {
	mode := b.sessions.Get(chatID)
	b.sessions.Reset(chatID)

	switch mode {
	case ModeAnalysis:
		if len(nonBlankLines(text)) != 1 {
			b.reply(ctx, log, chatID, msgErrOneObject)
			return
		}
		b.runSingle(ctx, log, chatID, userID, text)
	case ModeComparison:
		b.runComparison(ctx, log, chatID, userID, text)
	default:
		// Free-form input still works for a single listing, the way the
		// first bot revision behaved before the button flow existed.
		if strings.Contains(text, "|") {
			b.runSingle(ctx, log, chatID, userID, text)
			return
		}
		b.reply(ctx, log, chatID, msgNeedStart)
	}
}

func (b *Bot) runSingle(ctx context.Context, log zerolog.Logger, chatID, userID int64, text string) {
	rec, err := listing.Parse(strings.TrimSpace(text))
	if err != nil {
		log.Info().Err(err).Msg("listing rejected")
		b.reply(ctx, log, chatID, formatErrorMessage(err))
		return
	}

	res := b.analyzer.Analyze(ctx, rec)
	if res.Fallback {
		// A failed remote analysis is not a successful analysis: nothing is
		// persisted and no report is produced.
		b.reply(ctx, log, chatID, res.Narrative)
		return
	}

	if err := b.store.SaveAnalysis(ctx, userID, rec, res.Narrative); err != nil {
		log.Error().Err(err).Msg("persist failed")
		b.reply(ctx, log, chatID, msgErrStorage)
		return
	}

	b.reply(ctx, log, chatID, analysisReplyText(res))
	b.sendReport(ctx, log, chatID, "report.pdf", []report.Item{{Record: rec, Narrative: res.Narrative, Grade: res.Grade}})
}

func (b *Bot) runComparison(ctx context.Context, log zerolog.Logger, chatID, userID int64, text string) {
	records, err := listing.ParseAll(text)
	if err != nil {
		log.Info().Err(err).Msg("comparison listing rejected")
		b.reply(ctx, log, chatID, formatErrorMessage(err))
		return
	}
	if len(records) < 2 {
		b.reply(ctx, log, chatID, msgErrNeedTwo)
		return
	}

	var items []report.Item
	fallbacks := 0
	for _, rec := range records {
		res := b.analyzer.Analyze(ctx, rec)
		if res.Fallback {
			fallbacks++
			continue
		}
		if err := b.store.SaveAnalysis(ctx, userID, rec, res.Narrative); err != nil {
			log.Error().Err(err).Msg("persist failed")
			b.reply(ctx, log, chatID, msgErrStorage)
			return
		}
		items = append(items, report.Item{Record: rec, Narrative: res.Narrative, Grade: res.Grade})
	}

	if len(items) == 0 {
		b.reply(ctx, log, chatID, analysis.FallbackNarrative)
		return
	}

	replyText := comparisonReplyText(items)
	if fallbacks > 0 {
		replyText += fmt.Sprintf("\n⚠️ Объектов без анализа: %d (сервис анализа был недоступен).", fallbacks)
	}
	b.reply(ctx, log, chatID, replyText)
	b.sendReport(ctx, log, chatID, "comparison_report.pdf", items)
}

func (b *Bot) sendReport(ctx context.Context, log zerolog.Logger, chatID int64, filename string, items []report.Item) {
	pdf, err := b.renderer.Render(ctx, items)
	if err != nil {
		log.Error().Err(err).Msg("render failed")
		b.reply(ctx, log, chatID, msgErrReport)
		return
	}
	if err := b.api.SendDocument(ctx, chatID, filename, pdf); err != nil {
		log.Error().Err(err).Msg("send document failed")
	}
}

func (b *Bot) reply(ctx context.Context, log zerolog.Logger, chatID int64, text string) {
	if err := b.api.SendMessage(ctx, chatID, text, nil); err != nil {
		log.Error().Err(err).Msg("send message failed")
	}
}

func nonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

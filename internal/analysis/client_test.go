package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"estate-advisor/internal/listing"
)

type stubCaller struct {
	narrative string
	err       error
	calls     int
}

func (s *stubCaller) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.narrative, nil
}

func testRecord() listing.Record {
	return listing.Record{Location: "Moscow", Area: 50, Price: 10000000, PropertyType: "Apartment"}
}

func newTestClient(caller Caller) *Client {
	return NewClient(caller, NewMemoCache(10, time.Minute), DefaultGrader(), time.Second, zerolog.Nop())
}

func TestAnalyzeReturnsNarrativeAndGrade(t *testing.T) {
	narrative := strings.Repeat("б", 190) + " потенциал"
	stub := &stubCaller{narrative: narrative}
	res := newTestClient(stub).Analyze(context.Background(), testRecord())
	if res.Fallback {
		t.Fatal("unexpected fallback")
	}
	if res.Narrative != narrative {
		t.Fatalf("unexpected narrative: %q", res.Narrative)
	}
	if res.Grade != 40 {
		t.Fatalf("expected grade 40, got %d", res.Grade)
	}
}

func TestAnalyzeMemoizesIdenticalRecords(t *testing.T) {
	stub := &stubCaller{narrative: "анализ объекта"}
	c := newTestClient(stub)
	first := c.Analyze(context.Background(), testRecord())
	second := c.Analyze(context.Background(), testRecord())
	if stub.calls != 1 {
		t.Fatalf("expected one remote call, got %d", stub.calls)
	}
	if first.Narrative != second.Narrative {
		t.Fatalf("cached narrative differs: %q vs %q", first.Narrative, second.Narrative)
	}
}

func TestAnalyzeDistinctRecordsMissCache(t *testing.T) {
	stub := &stubCaller{narrative: "анализ объекта"}
	c := newTestClient(stub)
	c.Analyze(context.Background(), testRecord())
	other := testRecord()
	other.Price = 9000000
	c.Analyze(context.Background(), other)
	if stub.calls != 2 {
		t.Fatalf("expected two remote calls, got %d", stub.calls)
	}
}

func TestAnalyzeFallbackOnTransportError(t *testing.T) {
	stub := &stubCaller{err: errors.New("status code: 500 upstream error")}
	res := newTestClient(stub).Analyze(context.Background(), testRecord())
	if !res.Fallback {
		t.Fatal("expected fallback result")
	}
	if res.Narrative != FallbackNarrative {
		t.Fatalf("unexpected narrative: %q", res.Narrative)
	}
	if res.Grade != 0 {
		t.Fatalf("fallback grade should be 0, got %d", res.Grade)
	}
}

func TestAnalyzeFallbackNotCached(t *testing.T) {
	stub := &stubCaller{err: errors.New("status code: 500")}
	c := newTestClient(stub)
	c.Analyze(context.Background(), testRecord())

	// Outage over; the next identical request must reach the remote again.
	stub.err = nil
	stub.narrative = "анализ объекта"
	res := c.Analyze(context.Background(), testRecord())
	if res.Fallback {
		t.Fatal("expected recovery after outage")
	}
	if stub.calls != 2 {
		t.Fatalf("expected two remote calls, got %d", stub.calls)
	}
}

func TestAnalyzeFallbackOnEmptyNarrative(t *testing.T) {
	stub := &stubCaller{narrative: ""}
	res := newTestClient(stub).Analyze(context.Background(), testRecord())
	if !res.Fallback {
		t.Fatal("expected fallback on empty narrative")
	}
}

func TestBuildPromptEmbedsAllFields(t *testing.T) {
	prompt := BuildPrompt(testRecord())
	for _, want := range []string{"Moscow", "50", "10000000", "Apartment", "Арендный потенциал", "Риски инвестиций"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestClassifyTransportError(t *testing.T) {
	if got := classifyTransportError(context.DeadlineExceeded); got != failureTimeout {
		t.Fatalf("expected timeout, got %s", got)
	}
	if got := classifyTransportError(errors.New("status code: 429")); got != failureRateLimit {
		t.Fatalf("expected rate limit, got %s", got)
	}
	if got := classifyTransportError(errors.New("status code: 400 bad request")); got != failureClient {
		t.Fatalf("expected client, got %s", got)
	}
	if got := classifyTransportError(errors.New("connection reset")); got != failureServer {
		t.Fatalf("expected server default, got %s", got)
	}
}

func TestNewAnthropicCallerRequiresKey(t *testing.T) {
	if _, err := NewAnthropicCaller("  "); err == nil {
		t.Fatal("expected error for blank api key")
	}
}

package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const reportStyle = `
body{font-family:'DejaVu Sans','Helvetica Neue',Arial,sans-serif;font-size:12px;color:#1c1917;margin:0;padding:0.6rem;}
h1{font-size:20px;border-bottom:2px solid #92400e;padding-bottom:0.3rem;}
h2{font-size:15px;margin-top:1.2rem;}
ul{margin:0.4rem 0;}
strong{color:#78350f;}
`

// Renderer prints report markdown to a PDF byte buffer with headless
// chromium, the only dependable way to get Cyrillic text shaped correctly
// without bundling fonts.
type Renderer struct {
	chromePath string
	timeout    time.Duration
}

func NewRenderer() *Renderer {
	return &Renderer{
		chromePath: detectChromePath(),
		timeout:    30 * time.Second,
	}
}

// Render returns a complete in-memory PDF for the given items. The buffer is
// whole and positioned at its start; it never fails for well-formed items
// unless chromium itself is unavailable.
func (r *Renderer) Render(ctx context.Context, items []Item) ([]byte, error) {
	htmlDoc, err := BuildHTML(items)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.5).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, err
	}
	return pdf, nil
}

// BuildHTML converts the report markdown to a full printable HTML document.
func BuildHTML(items []Item) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(BuildMarkdown(items)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Отчет</title>" +
		"<style>" + reportStyle + "</style></head><body>" +
		content.String() +
		"</body></html>", nil
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

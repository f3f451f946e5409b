// Package browser provides headless-browser page rendering, used as
// the last retrieval tier for sources that block plain HTTP clients.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const defaultNavigationTimeout = 60 * time.Second

// captureExpression serializes the rendered document: XML documents
// are serialized as XML, HTML documents fall back to visible text or
// full markup. Mirrors what a browser shows for a raw feed URL.
const captureExpression = `(() => {
	const root = document.documentElement;
	if (root && root.tagName.toLowerCase() !== 'html') {
		return new XMLSerializer().serializeToString(document);
	}
	if (document.body && document.body.innerText.trim().length > 0) {
		return document.body.innerText;
	}
	return root ? root.outerHTML : '';
})()`

// Renderer drives a headless browser. Every Render call launches an
// isolated browser context and tears it down on all exit paths; no
// session state is shared between calls.
type Renderer struct {
	userAgent string
	timeout   time.Duration
}

func NewRenderer(userAgent string) *Renderer {
	return &Renderer{
		userAgent: userAgent,
		timeout:   defaultNavigationTimeout,
	}
}

// Render navigates to the URL and returns the document as a string.
// The raw network response body is preferred (for feeds served with an
// XML content type); the serialized DOM is the in-tier fallback.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, r.timeout)
	defer cancelTimeout()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.UserAgent(r.userAgent),
		)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var requestID network.RequestID
	var status int64
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			requestID = e.RequestID
			status = e.Response.Status
		}
	})

	if err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(url),
	); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	// Prefer the raw response body over the rendered DOM: for XML
	// feeds the DOM is a browser-generated viewer document.
	if requestID != "" && status >= 200 && status < 300 {
		var body []byte
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(requestID).Do(ctx)
			return err
		}))
		if err == nil && len(strings.TrimSpace(string(body))) > 0 {
			return string(body), nil
		}
		if err != nil {
			slog.Debug("Raw response body unavailable, serializing document", "url", url, "error", err)
		}
	}
	if status >= 400 {
		return "", fmt.Errorf("HTTP %d while rendering %s", status, url)
	}

	var content string
	if err := chromedp.Run(browserCtx, chromedp.Evaluate(captureExpression, &content)); err != nil {
		return "", fmt.Errorf("document serialization failed: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty document for %s", url)
	}

	return content, nil
}

package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"sigrank/internal/pipeline"

	"github.com/chromedp/chromedp"
)

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable reports whether a headless browser can be started. The probe runs once
// per process.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		parent, cancel := chromedp.NewContext(ctx)
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// RenderPNG screenshots the HTML report in a headless browser.
func RenderPNG(ctx context.Context, res pipeline.Result) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, fmt.Errorf("headless browser unavailable: %w", err)
	}
	html, err := RenderHTML(res)
	if err != nil {
		return nil, err
	}
	return renderHTMLToPNG(ctx, html, chartWidthPx+40, 2*chartHeightPx+80)
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 100),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}

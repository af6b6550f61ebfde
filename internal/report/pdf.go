package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

// ChromiumPDFRenderer prints a profile report to PDF through a headless
// Chromium. stylePath, when set, overrides the built-in stylesheet.
type ChromiumPDFRenderer struct {
	stylePath  string
	chromePath string
	styleOnce  sync.Once
	styleCSS   string
	styleErr   error
}

func NewChromiumPDFRenderer(stylePath string) *ChromiumPDFRenderer {
	return &ChromiumPDFRenderer{
		stylePath:  stylePath,
		chromePath: detectChromePath(),
	}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, p vehicle.Profile) ([]byte, error) {
	htmlDoc, err := r.buildHTML(p)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
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
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;padding-right:8px;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
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

func (r *ChromiumPDFRenderer) buildHTML(p vehicle.Profile) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(BuildMarkdown(p)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	contentHTML := applyPrintLayoutHooks(content.String())

	styleCSS, err := r.loadStyleCSS()
	if err != nil {
		return "", err
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Vehicle Profile Report</title>" +
		"<style>" + styleCSS + "</style></head><body>" +
		"<div class='pdf-wrap'><section class='report-viewer'><div class='report-header'>" +
		"<div class='report-meta'>" + buildMetaHTML(p) + "</div>" +
		"<div class='report-badges'>" + buildBadgeHTML(p) + "</div>" +
		"</div><div class='report-html'>" + contentHTML + "</div></section></div>" +
		"</body></html>", nil
}

// applyPrintLayoutHooks starts the raw data sections on a fresh page so the
// AI analysis reads as a standalone summary.
func applyPrintLayoutHooks(contentHTML string) string {
	reDetails := regexp.MustCompile(`(?i)<h2([^>]*)>\s*Vehicle Details\s*</h2>`)
	return reDetails.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">Vehicle Details</h2>`)
}

func (r *ChromiumPDFRenderer) loadStyleCSS() (string, error) {
	r.styleOnce.Do(func() {
		if r.stylePath == "" {
			r.styleCSS = defaultStyleCSS
			return
		}
		b, err := os.ReadFile(r.stylePath)
		if err != nil {
			r.styleErr = fmt.Errorf("read stylesheet: %w", err)
			return
		}
		r.styleCSS = string(b)
	})
	return r.styleCSS, r.styleErr
}

func buildMetaHTML(p vehicle.Profile) string {
	var out strings.Builder
	basic := p.Detailed.Basic
	out.WriteString("<div><strong>Vehicle:</strong> " + html.EscapeString(vehicleTitle(basic)) + "</div>")
	if basic.VIN != "" {
		out.WriteString("<div><strong>VIN:</strong> " + html.EscapeString(basic.VIN) + "</div>")
	}
	if basic.VRM != "" {
		out.WriteString("<div><strong>Registration:</strong> " + html.EscapeString(basic.VRM) + "</div>")
	}
	if ts, err := time.Parse(time.RFC3339, p.LastUpdated); err == nil {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(ts.Format("January 2, 2006")) + "</div>")
	} else if p.LastUpdated != "" {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(p.LastUpdated) + "</div>")
	}
	return out.String()
}

func buildBadgeHTML(p vehicle.Profile) string {
	var out strings.Builder
	basic := p.Detailed.Basic
	if basic.MOTStatus != "" {
		out.WriteString("<span class='report-badge'>MOT: " + html.EscapeString(basic.MOTStatus) + "</span>")
	}
	if basic.TaxStatus != "" {
		out.WriteString("<span class='report-badge'>Tax: " + html.EscapeString(basic.TaxStatus) + "</span>")
	}
	if rel := p.AIInsights.Reliability; rel != nil {
		out.WriteString(fmt.Sprintf("<span class='report-badge'>Reliability %.1f/10</span>", rel.Score))
	}
	if p.AIInsights.Fallback {
		out.WriteString("<span class='report-badge report-badge-warn'>AI analysis unavailable</span>")
	}
	return out.String()
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

const defaultStyleCSS = `
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
body{font-family:Georgia,'Times New Roman',serif;color:#1c1917;background:#fff;padding:0.6rem;font-size:0.9rem;line-height:1.5;}
.pdf-wrap{max-width:1000px;margin:0 auto;}
.report-viewer{background:#fff;}
.report-header{border-bottom:2px solid #0f766e;padding-bottom:0.6rem;margin-bottom:0.9rem;}
.report-meta{color:#44403c;font-size:0.85rem;}
.report-meta strong{color:#1c1917;}
.report-badges{margin-top:0.4rem;}
.report-badge{display:inline-block;background:#ccfbf1;color:#134e4a;border:1px solid #5eead4;border-radius:4px;padding:0.1rem 0.4rem;margin-right:0.3rem;font-size:0.75rem;}
.report-badge-warn{background:#fef3c7;color:#78350f;border-color:#fcd34d;}
.report-html h1{font-size:1.4rem;border-bottom:1px solid #d6d3d1;padding-bottom:0.3rem;}
.report-html h2{font-size:1.1rem;color:#0f766e;margin-top:1.1rem;}
.report-html h3{font-size:0.95rem;margin-top:0.8rem;}
.report-html a{color:#1d4ed8;text-decoration:underline;}
.report-html table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.8rem;}
.report-html th,.report-html td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
.report-html thead th{background:#f1f5f9;font-weight:700;}
.report-html pre{background:#f5f5f4;border:1px solid #d6d3d1;padding:0.5rem;font-size:0.7rem;overflow-x:auto;}
h2[data-page-break-before="true"]{break-before:page;page-break-before:always;}
@media print{ @page{size:auto;margin:12mm;} body{padding:0;} .pdf-wrap{max-width:none;} }
`

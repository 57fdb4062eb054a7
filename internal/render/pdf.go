package render

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
	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/joelkehle/feasibility-study/internal/logger"
	"github.com/joelkehle/feasibility-study/internal/narrative"
	"github.com/joelkehle/feasibility-study/internal/payload"
)

// PDFRenderer turns a report into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, r *narrative.Report, meta Meta) ([]byte, error)
}

type ChromiumPDFRenderer struct {
	chromePath string
	stylePath  string
	timeout    time.Duration
	log        *logger.Logger

	styleOnce sync.Once
	styleCSS  string
	styleErr  error
}

// NewChromiumPDFRenderer prints through a headless Chromium. An empty
// chromePath looks in the usual install locations; an empty stylePath uses
// the built-in stylesheet.
func NewChromiumPDFRenderer(chromePath, stylePath string, log *logger.Logger) *ChromiumPDFRenderer {
	if chromePath == "" {
		chromePath = detectChromePath()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ChromiumPDFRenderer{
		chromePath: chromePath,
		stylePath:  stylePath,
		timeout:    60 * time.Second,
		log:        log,
	}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, rep *narrative.Report, meta Meta) ([]byte, error) {
	htmlDoc, err := r.HTML(rep, meta)
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
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	r.log.Info("report rendered", "project", meta.ProjectName, "size", humanize.Bytes(uint64(len(pdf))))
	return pdf, nil
}

// HTML is the printable document: the report Markdown converted with GFM
// tables, wrapped with the stylesheet and the text direction of the
// report language.
func (r *ChromiumPDFRenderer) HTML(rep *narrative.Report, meta Meta) (string, error) {
	var content strings.Builder
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAttribute()),
	)
	if err := md.Convert([]byte(Markdown(rep, meta)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	contentHTML := applyPrintLayoutHooks(content.String())

	styleCSS, err := r.loadStyleCSS()
	if err != nil {
		return "", err
	}
	lang := payload.BaseLanguage(meta.Language)
	dir := "ltr"
	if payload.IsRTL(lang) {
		dir = "rtl"
	}
	title := firstNonBlank(rep.Title, meta.ProjectName, "Feasibility Study")
	return "<!doctype html><html lang='" + html.EscapeString(lang) + "' dir='" + dir + "'><head><meta charset='utf-8'>" +
		"<title>" + html.EscapeString(title) + "</title>" +
		"<style>" + styleCSS + "\n" +
		"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
		`h2[data-page-break-before="true"],h1[data-page-break-before="true"]{break-before:page;page-break-before:always;} ` +
		"@media print{ @page{size:auto;margin:12mm;} body{background:#fff !important;padding:0;} }" +
		"</style></head><body>" +
		"<div class='report-watermark'>Feasibility Study Simulator</div>" +
		"<main class='report-html'>" + contentHTML + "</main>" +
		"</body></html>", nil
}

var (
	reSectionHeading = regexp.MustCompile(`<h2 id="((?:sec-|comparison-)[^"]*)">`)
	rePageHeading    = regexp.MustCompile(`<h2 id="(summary|contents|disclaimers)">`)
)

// applyPrintLayoutHooks starts the summary, the contents, every section, the
// comparison and the disclaimers on a new page.
func applyPrintLayoutHooks(contentHTML string) string {
	out := reSectionHeading.ReplaceAllString(contentHTML, `<h2 id="$1" data-page-break-before="true">`)
	return rePageHeading.ReplaceAllString(out, `<h2 id="$1" data-page-break-before="true">`)
}

func (r *ChromiumPDFRenderer) loadStyleCSS() (string, error) {
	r.styleOnce.Do(func() {
		if r.stylePath == "" {
			r.styleCSS = defaultStyle
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

const defaultStyle = `
body{font-family:"Segoe UI","Noto Sans","Noto Naskh Arabic",Arial,sans-serif;color:#1c1917;line-height:1.55;font-size:11pt;}
.report-html{max-width:1000px;margin:0 auto;text-align:justify;}
.report-html h1{text-align:center;font-size:22pt;margin-top:3rem;}
.report-html h2{font-size:15pt;border-bottom:1px solid #d6d3d1;padding-bottom:0.2rem;}
.report-html h3{font-size:12pt;}
.report-html table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:9pt;margin:0.5rem 0 1rem;}
.report-html th,.report-html td{border:1px solid #a8a29e;padding:0.3rem 0.4rem;text-align:start;vertical-align:top;}
.report-html thead th{background:#f1f5f9;font-weight:700;}
.report-html em{color:#666;}
.report-watermark{position:fixed;top:45%;left:0;right:0;text-align:center;font-size:40pt;color:rgba(0,0,0,0.04);transform:rotate(-30deg);z-index:-1;}
`

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

package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout bounds one headless-chrome rendering run.
const DefaultRenderTimeout = 30 * time.Second

// Renderer turns finalized documents into PDF bytes.
type Renderer interface {
	RenderCV(ctx context.Context, cvJSON, theme string) ([]byte, error)
	RenderCoverLetter(ctx context.Context, text, theme string) ([]byte, error)
}

// PDFRenderer renders documents to PDF with chromedp.
type PDFRenderer struct {
	timeout time.Duration
}

// NewPDFRenderer creates a renderer with the default timeout.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{timeout: DefaultRenderTimeout}
}

// cvDocument is the loose shape of the tailored CV JSON. Unknown keys
// are ignored; absent sections render empty.
type cvDocument struct {
	Name    string            `json:"name"`
	Title   string            `json:"title"`
	Summary string            `json:"summary"`
	Contact map[string]string `json:"contact"`
	Skills  []string          `json:"skills"`

	Experience []struct {
		Company    string   `json:"company"`
		Role       string   `json:"role"`
		Period     string   `json:"period"`
		Highlights []string `json:"highlights"`
	} `json:"experience"`

	Education []struct {
		School string `json:"school"`
		Degree string `json:"degree"`
		Period string `json:"period"`
	} `json:"education"`
}

// RenderCV generates a PDF from the tailored CV JSON.
func (p *PDFRenderer) RenderCV(ctx context.Context, cvJSON, theme string) ([]byte, error) {
	var doc cvDocument
	if err := json.Unmarshal([]byte(cvJSON), &doc); err != nil {
		return nil, fmt.Errorf("parse cv json: %w", err)
	}

	html, err := renderTemplate(cvTemplate, map[string]any{
		"CV":  doc,
		"CSS": template.CSS(themeCSS(theme)),
	})
	if err != nil {
		return nil, fmt.Errorf("render HTML: %w", err)
	}

	return p.htmlToPDF(ctx, html)
}

// RenderCoverLetter generates a PDF from the cover letter text.
func (p *PDFRenderer) RenderCoverLetter(ctx context.Context, text, theme string) ([]byte, error) {
	html, err := renderTemplate(coverLetterTemplate, map[string]any{
		"Paragraphs": strings.Split(strings.TrimSpace(text), "\n\n"),
		"Date":       time.Now().Format("2006-01-02"),
		"CSS":        template.CSS(themeCSS(theme)),
	})
	if err != nil {
		return nil, fmt.Errorf("render HTML: %w", err)
	}

	return p.htmlToPDF(ctx, html)
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var result strings.Builder
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return result.String(), nil
}

// htmlToPDF converts HTML to PDF using a headless chrome instance.
func (p *PDFRenderer) htmlToPDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cctx, cancel := chromedp.NewExecAllocator(ctx,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	defer cancel()

	cctx, cancel = chromedp.NewContext(cctx)
	defer cancel()

	var pdfBuf []byte
	if err := chromedp.Run(cctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	return pdfBuf, nil
}

func themeCSS(theme string) string {
	switch theme {
	case "classic":
		return `body { font-family: Georgia, serif; color: #1a1a1a; }
h1 { border-bottom: 2px solid #1a1a1a; }
h2 { font-variant: small-caps; }`
	default: // modern
		return `body { font-family: 'Helvetica Neue', Arial, sans-serif; color: #222; }
h1 { color: #0b5394; }
h2 { color: #0b5394; border-bottom: 1px solid #d0d0d0; }`
	}
}

var cvTemplate = template.Must(template.New("cv").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body { margin: 40px; font-size: 13px; line-height: 1.5; }
h1 { margin-bottom: 0; } .title { color: #666; margin-top: 2px; }
.contact { font-size: 11px; color: #666; margin-bottom: 18px; }
ul { margin: 4px 0; padding-left: 18px; }
.period { float: right; color: #888; }
{{.CSS}}
</style></head><body>
<h1>{{.CV.Name}}</h1>
{{if .CV.Title}}<div class="title">{{.CV.Title}}</div>{{end}}
<div class="contact">{{range $k, $v := .CV.Contact}}{{$k}}: {{$v}} &nbsp; {{end}}</div>
{{if .CV.Summary}}<h2>Summary</h2><p>{{.CV.Summary}}</p>{{end}}
{{if .CV.Skills}}<h2>Skills</h2><p>{{range $i, $s := .CV.Skills}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}
{{if .CV.Experience}}<h2>Experience</h2>
{{range .CV.Experience}}<div><strong>{{.Role}}</strong> at {{.Company}}<span class="period">{{.Period}}</span>
<ul>{{range .Highlights}}<li>{{.}}</li>{{end}}</ul></div>{{end}}{{end}}
{{if .CV.Education}}<h2>Education</h2>
{{range .CV.Education}}<div>{{.Degree}}, {{.School}}<span class="period">{{.Period}}</span></div>{{end}}{{end}}
</body></html>`))

var coverLetterTemplate = template.Must(template.New("cover").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body { margin: 60px; font-size: 13px; line-height: 1.7; }
.date { text-align: right; color: #666; margin-bottom: 30px; }
{{.CSS}}
</style></head><body>
<div class="date">{{.Date}}</div>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}
</body></html>`))

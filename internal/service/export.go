package service

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"what-to-do/internal/calendar"
	"what-to-do/internal/logger"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Renderer turns a day summary into a downloadable document.
type Renderer interface {
	Render(summary string, date time.Time) ([]byte, error)
	ContentType() string
	Extension() string
}

type MarkdownRenderer struct{}

func (MarkdownRenderer) ContentType() string { return "text/markdown; charset=utf-8" }
func (MarkdownRenderer) Extension() string   { return "md" }

func (MarkdownRenderer) Render(summary string, date time.Time) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Day summary - %s, %s\n\n", date.Weekday(), calendar.Format(date))
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")
	return []byte(b.String()), nil
}

// CardRenderer draws the summary onto a PNG card.
type CardRenderer struct {
	Width    int
	Margin   float64
	FontSize float64
}

func NewCardRenderer() *CardRenderer {
	return &CardRenderer{Width: 800, Margin: 48, FontSize: 22}
}

func (*CardRenderer) ContentType() string { return "image/png" }
func (*CardRenderer) Extension() string   { return "png" }

func (r *CardRenderer) Render(summary string, date time.Time) ([]byte, error) {
	body, err := loadFace(r.FontSize)
	if err != nil {
		return nil, err
	}
	title, err := loadFace(r.FontSize * 1.4)
	if err != nil {
		return nil, err
	}

	textWidth := float64(r.Width) - 2*r.Margin
	lineHeight := r.FontSize * 1.5

	measure := gg.NewContext(r.Width, 1)
	measure.SetFontFace(body)
	var lines []string
	for _, para := range strings.Split(strings.TrimSpace(summary), "\n") {
		if strings.TrimSpace(para) == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, measure.WordWrap(para, textWidth)...)
	}

	header := r.Margin + r.FontSize*1.4 + lineHeight
	height := int(header + float64(len(lines))*lineHeight + r.Margin)

	dc := gg.NewContext(r.Width, height)
	dc.SetColor(color.NRGBA{R: 0xfa, G: 0xf7, B: 0xf2, A: 0xff})
	dc.Clear()

	dc.SetColor(color.NRGBA{R: 0x33, G: 0x4e, B: 0x68, A: 0xff})
	dc.SetFontFace(title)
	dc.DrawStringAnchored(fmt.Sprintf("%s, %s", date.Weekday(), calendar.Format(date)), r.Margin, r.Margin, 0, 1)

	dc.SetColor(color.NRGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff})
	dc.SetFontFace(body)
	y := header
	for _, line := range lines {
		dc.DrawStringAnchored(line, r.Margin, y, 0, 1)
		y += lineHeight
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func loadFace(size float64) (font.Face, error) {
	parsed, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}

type ExportFile struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
	ContentType string `json:"content_type"`
}

// Exporter writes rendered summaries into a directory; files not fetched
// within ttl are removed.
type Exporter struct {
	dir       string
	ttl       time.Duration
	renderers map[string]Renderer
}

func NewExporter(dir string) *Exporter {
	return &Exporter{
		dir: dir,
		ttl: 5 * time.Minute,
		renderers: map[string]Renderer{
			"md":  MarkdownRenderer{},
			"png": NewCardRenderer(),
		},
	}
}

// Keep disables the removal timer, for exports written from the command line.
func (x *Exporter) Keep() *Exporter {
	x.ttl = 0
	return x
}

// Export renders summary for uid. The file name carries the owner so only
// they can fetch it through Path.
func (x *Exporter) Export(uid int, format, summary string, date time.Time) (*ExportFile, error) {
	if format == "" {
		format = "md"
	}
	r, ok := x.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	data, err := r.Render(summary, date)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}

	if err := os.MkdirAll(x.dir, 0755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	name := fmt.Sprintf("%s%s_%s.%s", ownerPrefix(uid), calendar.Format(date), uuid.NewString()[:8], r.Extension())
	path := filepath.Join(x.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}
	if x.ttl > 0 {
		time.AfterFunc(x.ttl, func() { os.Remove(path) })
	}
	logger.Info("export.write", "uid", uid, "file", name, "bytes", len(data))

	return &ExportFile{Name: name, DownloadURL: "/api/files/" + name, ContentType: r.ContentType()}, nil
}

func ownerPrefix(uid int) string { return fmt.Sprintf("summary_u%d_", uid) }

// Path resolves one of uid's exported files inside the export dir. Names
// with path components, or belonging to another user, are not found.
func (x *Exporter) Path(uid int, name string) (string, error) {
	if name == "" || filepath.Base(name) != name || !strings.HasPrefix(name, ownerPrefix(uid)) {
		return "", ErrNotFound
	}
	path := filepath.Join(x.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

package generators

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // template backgrounds may be JPEG
	_ "image/png"
	"strconv"
	"strings"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/options"
	"github.com/MacJediWizard/learning-credentials/internal/storage"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// FuncImage is the registered name of the PNG generator.
const FuncImage = "learning_credentials.generate_image_credential"

const (
	defaultWidth     = 1650
	defaultHeight    = 1275
	defaultTitle     = "Certificate of Achievement"
	defaultTextColor = "#1a1a1a"
	dateLayout       = "January 2, 2006"
)

// ImageGenerator renders credentials as PNG images and stores them.
type ImageGenerator struct {
	store  storage.ObjectStore
	assets AssetSource
	logger zerolog.Logger
}

// NewImageGenerator creates an ImageGenerator.
func NewImageGenerator(store storage.ObjectStore, assets AssetSource, logger zerolog.Logger) *ImageGenerator {
	return &ImageGenerator{
		store:  store,
		assets: assets,
		logger: logger.With().Str("component", "image_generator").Logger(),
	}
}

// Register adds the generator to reg.
func (g *ImageGenerator) Register(reg *Registry) {
	reg.Register(FuncImage, g.Generate)
}

// IssueDate formats the date printed on a credential. It is the creation
// date of the row, so re-rendering a credential keeps its date.
func IssueDate(c *models.Credential) string {
	issued := c.CreatedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	return issued.Format(dateLayout)
}

// ObjectKey returns the storage key of a credential's image.
func ObjectKey(c *models.Credential) string {
	return fmt.Sprintf("learning_credentials/%s.png", c.UUID)
}

// Generate renders and uploads the credential image, or deletes it when invalidating.
//
// Options: template (asset slug of a background image), font (asset slug of a
// TrueType font), title, text_color, name_y, context_name_y, date_y (fractions
// of the image height).
func (g *ImageGenerator) Generate(ctx context.Context, c *models.Credential, opts map[string]any, invalidate bool) (string, error) {
	key := ObjectKey(c)
	if invalidate {
		if err := g.store.Delete(ctx, key); err != nil {
			return "", fmt.Errorf("delete credential image: %w", err)
		}
		g.logger.Info().Str("credential_uuid", c.UUID.String()).Msg("credential image deleted")
		return "", nil
	}

	png, err := g.render(ctx, c, opts)
	if err != nil {
		return "", fmt.Errorf("render credential image: %w", err)
	}

	if err := g.store.Put(ctx, key, bytes.NewReader(png), "image/png"); err != nil {
		return "", fmt.Errorf("store credential image: %w", err)
	}

	g.logger.Info().
		Str("credential_uuid", c.UUID.String()).
		Int("bytes", len(png)).
		Msg("credential image generated")

	return g.store.URL(key), nil
}

func (g *ImageGenerator) render(ctx context.Context, c *models.Credential, opts map[string]any) ([]byte, error) {
	dc, err := g.canvas(ctx, options.String(opts, "template", ""))
	if err != nil {
		return nil, err
	}
	w, h := float64(dc.Width()), float64(dc.Height())

	ttf, err := g.fontBytes(ctx, options.String(opts, "font", ""))
	if err != nil {
		return nil, err
	}
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	textColor, err := parseHexColor(options.String(opts, "text_color", defaultTextColor))
	if err != nil {
		return nil, err
	}
	dc.SetColor(textColor)

	lines := []struct {
		text string
		y    float64
		size float64
	}{
		{options.String(opts, "title", defaultTitle), options.Float(opts, "title_y", 0.25), h / 18},
		{c.UserFullName, options.Float(opts, "name_y", 0.45), h / 14},
		{c.LearningContextName, options.Float(opts, "context_name_y", 0.6), h / 24},
		{IssueDate(c), options.Float(opts, "date_y", 0.75), h / 32},
	}
	for _, line := range lines {
		if line.text == "" {
			continue
		}
		dc.SetFontFace(truetype.NewFace(parsed, &truetype.Options{
			Size:    line.size,
			DPI:     72,
			Hinting: font.HintingNone,
		}))
		dc.DrawStringAnchored(line.text, w/2, h*line.y, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// canvas starts from the template image, or a plain bordered page.
func (g *ImageGenerator) canvas(ctx context.Context, templateSlug string) (*gg.Context, error) {
	if templateSlug != "" {
		data, err := g.assets.AssetBytes(ctx, templateSlug)
		if err != nil {
			return nil, fmt.Errorf("load template: %w", err)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode template %s: %w", templateSlug, err)
		}
		return gg.NewContextForImage(img), nil
	}

	dc := gg.NewContext(defaultWidth, defaultHeight)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.NRGBA{R: 0x2b, G: 0x4c, B: 0x7e, A: 0xff})
	dc.SetLineWidth(12)
	dc.DrawRectangle(30, 30, defaultWidth-60, defaultHeight-60)
	dc.Stroke()
	return dc, nil
}

func (g *ImageGenerator) fontBytes(ctx context.Context, fontSlug string) ([]byte, error) {
	if fontSlug == "" {
		return goregular.TTF, nil
	}
	data, err := g.assets.AssetBytes(ctx, fontSlug)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return data, nil
}

func parseHexColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return nil, fmt.Errorf("invalid text_color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid text_color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

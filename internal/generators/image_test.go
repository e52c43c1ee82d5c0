package generators

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeAssets map[string][]byte

func (f fakeAssets) AssetBytes(_ context.Context, slug string) ([]byte, error) {
	data, ok := f[slug]
	if !ok {
		return nil, errors.New("missing asset " + slug)
	}
	return data, nil
}

func newTestGenerator(t *testing.T, assets fakeAssets) (*ImageGenerator, *storage.LocalStore) {
	t.Helper()
	store, err := storage.NewLocalStore(storage.LocalConfig{
		Dir:     t.TempDir(),
		BaseURL: "https://lms.example.com/media",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return NewImageGenerator(store, assets, zerolog.Nop()), store
}

func testCredential() *models.Credential {
	c := models.NewCredential(7, 3)
	c.UUID = uuid.MustParse("6f1d3c1e-4b2a-4f58-9a0b-0d6c5e7a9b11")
	c.UserFullName = "Ada Lovelace"
	c.LearningContextName = "Analytical Engines 101"
	c.CreatedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return c
}

func TestIssueDate(t *testing.T) {
	c := testCredential()
	if got := IssueDate(c); got != "March 14, 2026" {
		t.Errorf("expected March 14, 2026, got %q", got)
	}

	c.UpdatedAt = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	c.MarkFailed()
	c.StartGeneration(c.UserFullName, c.LearningContextName, "retry")
	if got := IssueDate(c); got != "March 14, 2026" {
		t.Errorf("expected regeneration to keep the issue date, got %q", got)
	}
}

func TestImageGenerator_Generate(t *testing.T) {
	g, store := newTestGenerator(t, fakeAssets{})
	ctx := context.Background()
	c := testCredential()

	url, err := g.Generate(ctx, c, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "https://lms.example.com/media/learning_credentials/6f1d3c1e-4b2a-4f58-9a0b-0d6c5e7a9b11.png"
	if url != expected {
		t.Errorf("expected URL %s, got %s", expected, url)
	}

	data, err := storage.ReadAll(ctx, store, ObjectKey(c))
	if err != nil {
		t.Fatalf("failed to read image: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("stored object is not a PNG: %v", err)
	}
	if cfg.Width != defaultWidth || cfg.Height != defaultHeight {
		t.Errorf("expected %dx%d, got %dx%d", defaultWidth, defaultHeight, cfg.Width, cfg.Height)
	}
}

func TestImageGenerator_Template(t *testing.T) {
	bg := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for x := 0; x < 400; x++ {
		for y := 0; y < 300; y++ {
			bg.Set(x, y, color.RGBA{R: 240, G: 230, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, bg); err != nil {
		t.Fatalf("failed to encode template: %v", err)
	}

	g, store := newTestGenerator(t, fakeAssets{"parchment": buf.Bytes()})
	ctx := context.Background()
	c := testCredential()

	opts := map[string]any{"template": "parchment", "text_color": "#003366", "title": ""}
	if _, err := g.Generate(ctx, c, opts, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := storage.ReadAll(ctx, store, ObjectKey(c))
	if err != nil {
		t.Fatalf("failed to read image: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("stored object is not a PNG: %v", err)
	}
	if cfg.Width != 400 || cfg.Height != 300 {
		t.Errorf("expected template size 400x300, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestImageGenerator_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
	}{
		{"missing template", map[string]any{"template": "nope"}},
		{"missing font", map[string]any{"font": "nope"}},
		{"invalid font", map[string]any{"font": "garbage"}},
		{"invalid color", map[string]any{"text_color": "blue"}},
	}

	g, _ := newTestGenerator(t, fakeAssets{"garbage": []byte("not a font")})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := g.Generate(context.Background(), testCredential(), tt.opts, false)
			if err == nil {
				t.Fatal("expected error")
			}
			if url != "" {
				t.Errorf("expected empty URL, got %s", url)
			}
		})
	}
}

func TestImageGenerator_Invalidate(t *testing.T) {
	g, store := newTestGenerator(t, fakeAssets{})
	ctx := context.Background()
	c := testCredential()

	if _, err := g.Generate(ctx, c, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := g.Generate(ctx, c, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "" {
		t.Errorf("expected empty URL after invalidation, got %s", url)
	}

	exists, err := store.Exists(ctx, ObjectKey(c))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected image to be deleted")
	}
}

func TestRegister(t *testing.T) {
	g, _ := newTestGenerator(t, fakeAssets{})
	reg := NewRegistry()
	g.Register(reg)

	if err := reg.Validate(FuncImage); err != nil {
		t.Errorf("expected %s to be registered, got %v", FuncImage, err)
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#ff8000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != (color.NRGBA{R: 0xff, G: 0x80, B: 0x00, A: 0xff}) {
		t.Errorf("unexpected color %v", c)
	}
}

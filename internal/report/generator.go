package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/flowscribe/internal/config"
	"github.com/dshills/flowscribe/internal/flow"
	"github.com/dshills/flowscribe/internal/inference"
	"github.com/dshills/flowscribe/internal/redact"
)

// SchemaVersion is the version of the JSON report layout.
const SchemaVersion = "1.0"

// Requester performs one model request. *inference.Client implements it.
type Requester interface {
	Request(ctx context.Context, kind inference.Kind, params map[string]any) (inference.Response, error)
}

// Generator runs the report pipeline.
type Generator struct {
	client   Requester
	cfg      config.Config
	logger   *zap.Logger
	progress io.Writer
	http     *http.Client
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithProgress sets where human-readable progress lines are written.
func WithProgress(w io.Writer) Option {
	return func(g *Generator) {
		if w != nil {
			g.progress = w
		}
	}
}

// WithHTTPClient sets the client used to download generated images.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Generator) {
		if c != nil {
			g.http = c
		}
	}
}

// New returns a Generator that sends model requests through client.
func New(client Requester, cfg config.Config, opts ...Option) *Generator {
	g := &Generator{
		client:   client,
		cfg:      cfg,
		logger:   zap.NewNop(),
		progress: io.Discard,
		http:     &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Run produces a report for f.
func (g *Generator) Run(ctx context.Context, f *flow.Flow) (*Report, error) {
	if f == nil {
		return nil, errors.New("no flow to report on")
	}
	start := g.now()

	g.stage("Step 1: Identifying User Interactions")
	actions, err := g.userActions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("identifying user interactions: %w", err)
	}

	g.stage("Step 2: Generating Summary")
	summary, err := g.chat(ctx, g.cfg.Models.Chat, []any{
		message("system", summarySystem),
		message("user", summaryPrompt(f.Name, actions)),
	}, 0.5, 800, false)
	if err != nil {
		return nil, fmt.Errorf("summarizing flow: %w", err)
	}

	g.stage("Step 3: Generating Social Media Images")
	prompts, err := g.imagePrompts(ctx, title(f), summary)
	if err != nil {
		return nil, fmt.Errorf("creating image prompts: %w", err)
	}
	images, sources, err := g.generateImages(ctx, prompts)
	if err != nil {
		return nil, fmt.Errorf("generating images: %w", err)
	}

	g.stage("Step 4: Selecting Best Image")
	selection, err := g.selectImage(ctx, title(f), summary, images, sources)
	if err != nil {
		return nil, fmt.Errorf("selecting image: %w", err)
	}

	return &Report{
		Tool:        "flowscribe",
		Version:     SchemaVersion,
		Flow:        f,
		GeneratedAt: g.now(),
		UserActions: actions,
		Summary:     summary,
		Images:      images,
		Selection:   selection,
		Timing:      Timing{TotalMs: g.now().Sub(start).Milliseconds()},
	}, nil
}

func title(f *flow.Flow) string {
	if f.Name == "" {
		return "Untitled Flow"
	}
	return f.Name
}

func (g *Generator) stage(name string) {
	fmt.Fprintf(g.progress, "\n=== %s ===\n", name)
}

func (g *Generator) userActions(ctx context.Context, f *flow.Flow) (string, error) {
	if g.cfg.Report.AnalyzeVideos {
		enriched, err := flow.Enrich(ctx, f.Steps, f.CapturedEvents, g.describeVideo)
		if err != nil {
			return "", err
		}
		return g.chat(ctx, g.cfg.Models.Chat, []any{
			message("system", organizeSystem),
			message("user", g.scrub(organizePrompt(flow.Narrative(enriched)))),
		}, 0.3, 1000, false)
	}

	var steps any = f.RawSteps
	if g.cfg.Privacy.RedactSecrets {
		steps = redact.Value(steps)
	}
	data, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding steps: %w", err)
	}
	return g.chat(ctx, g.cfg.Models.Chat, []any{
		message("system", interactionsSystem),
		message("user", interactionsPrompt(string(data))),
	}, 0.3, 1500, false)
}

func (g *Generator) describeVideo(ctx context.Context, vc flow.VideoContext) (string, error) {
	parts := []any{textPart(g.scrub(videoPrompt(vc)))}
	if vc.Step.VideoThumbnailURL != "" {
		parts = append(parts, imagePart(vc.Step.VideoThumbnailURL))
	}
	desc, err := g.chat(ctx, g.cfg.Models.Vision, []any{
		message("system", videoSystem),
		message("user", parts),
	}, 0.2, 100, false)
	if err != nil {
		return "", err
	}
	desc = strings.TrimSpace(desc)
	fmt.Fprintf(g.progress, "  Video step %d: %s\n", vc.Index+1, desc)
	return desc, nil
}

type imagePrompt struct {
	Variation string `json:"variation"`
	Prompt    string `json:"prompt"`
}

func (g *Generator) imagePrompts(ctx context.Context, name, summary string) ([]imagePrompt, error) {
	n := g.cfg.Image.Variations
	if n < 1 {
		n = 1
	}
	if n > maxVariations {
		return nil, fmt.Errorf("at most %d image variations are supported, got %d", maxVariations, n)
	}

	content, err := g.chat(ctx, g.cfg.Models.Chat, []any{
		message("system", variationsSystem),
		message("user", variationsPrompt(name, summary, n)),
	}, 0.8, 800, true)
	if err != nil {
		return nil, err
	}

	var out struct {
		Prompts []imagePrompt `json:"prompts"`
	}
	if err := ExtractJSON(content, &out); err != nil {
		return nil, err
	}
	var prompts []imagePrompt
	for _, p := range out.Prompts {
		if strings.TrimSpace(p.Prompt) == "" {
			continue
		}
		if p.Variation == "" {
			p.Variation = "Standard"
		}
		prompts = append(prompts, p)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: response has no image prompts", ErrNoJSON)
	}
	if len(prompts) > n {
		prompts = prompts[:n]
	}
	if len(prompts) < n {
		g.logger.Warn("fewer image prompts than requested", zap.Int("requested", n), zap.Int("received", len(prompts)))
	}
	return prompts, nil
}

// generateImages returns the images and, for each, the source the vision
// model is shown: the image URL or a data URL of the returned payload.
func (g *Generator) generateImages(ctx context.Context, prompts []imagePrompt) ([]Image, []string, error) {
	images := make([]Image, 0, len(prompts))
	sources := make([]string, 0, len(prompts))
	for i, p := range prompts {
		num := i + 1
		fmt.Fprintf(g.progress, "\n  Image %d (%s): %s\n", num, p.Variation, preview(p.Prompt, 80))

		params := map[string]any{
			"model":   g.cfg.Models.Image,
			"prompt":  p.Prompt,
			"size":    g.cfg.Image.Size,
			"quality": g.cfg.Image.Quality,
			"n":       1,
		}
		if g.cfg.Image.ResponseFormat == "b64_json" {
			params["response_format"] = "b64_json"
		}
		resp, err := g.client.Request(ctx, inference.KindImage, params)
		if err != nil {
			return nil, nil, err
		}
		data, err := resp.ImageData()
		if err != nil {
			return nil, nil, fmt.Errorf("image %d: %w", num, err)
		}
		generated := data[0]

		img := Image{
			Number:        num,
			Variation:     p.Variation,
			Prompt:        p.Prompt,
			RevisedPrompt: generated.RevisedPrompt,
			URL:           generated.URL,
			Path:          filepath.Join(g.cfg.Report.ImageDir, imageFilename(num)),
		}
		source := generated.URL
		switch {
		case generated.URL != "":
			err = download(ctx, g.http, generated.URL, img.Path)
		case generated.B64JSON != "":
			source = "data:image/png;base64," + generated.B64JSON
			err = decodeB64(generated.B64JSON, img.Path)
		default:
			err = errors.New("response has neither url nor b64_json")
		}
		if err != nil {
			g.logger.Warn("image not saved", zap.Int("image", num), zap.String("path", img.Path), zap.Error(err))
			fmt.Fprintf(g.progress, "  Failed to save %s\n", img.Path)
		} else {
			img.Saved = true
			fmt.Fprintf(g.progress, "  Saved %s\n", img.Path)
		}
		images = append(images, img)
		sources = append(sources, source)
	}
	return images, sources, nil
}

func (g *Generator) selectImage(ctx context.Context, name, summary string, images []Image, sources []string) (*Selection, error) {
	switch len(images) {
	case 0:
		return nil, errors.New("no images were generated")
	case 1:
		images[0].Selected = true
		return nil, nil
	}

	parts := []any{textPart(selectionPrompt(name, summary, len(images)))}
	for i, img := range images {
		if sources[i] != "" {
			parts = append(parts, imagePart(sources[i]))
		}
		parts = append(parts, textPart(fmt.Sprintf("Image %d (%s)", img.Number, img.Variation)))
	}
	content, err := g.chat(ctx, g.cfg.Models.Vision, []any{
		message("system", selectionSystem),
		message("user", parts),
	}, 0.3, 1000, true)
	if err != nil {
		return nil, err
	}

	var sel Selection
	if err := ExtractJSON(content, &sel); err != nil {
		return nil, err
	}
	if sel.Selected < 1 || sel.Selected > len(images) {
		return nil, fmt.Errorf("selected image %d is out of range 1..%d", sel.Selected, len(images))
	}
	images[sel.Selected-1].Selected = true
	fmt.Fprintf(g.progress, "\n  Selected Image %d (%s)\n", sel.Selected, images[sel.Selected-1].Variation)
	for _, img := range images {
		if sc, ok := sel.ScoreFor(img.Number); ok {
			fmt.Fprintf(g.progress, "    %s: Overall %g/10\n", scoreKey(img.Number), sc.Overall)
		}
	}
	return &sel, nil
}

func (g *Generator) chat(ctx context.Context, model string, messages []any, temperature float64, maxTokens int, jsonMode bool) (string, error) {
	params := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}
	if jsonMode {
		params["response_format"] = map[string]any{"type": "json_object"}
	}
	resp, err := g.client.Request(ctx, inference.KindChat, params)
	if err != nil {
		return "", err
	}
	return resp.Text()
}

func (g *Generator) scrub(s string) string {
	if g.cfg.Privacy.RedactSecrets {
		return redact.Secrets(s)
	}
	return s
}

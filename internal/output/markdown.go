package output

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dshills/flowscribe/internal/report"
)

// MarkdownWriter outputs a human-readable markdown report.
type MarkdownWriter struct {
	// BaseDir is the directory image links are made relative to.
	BaseDir string
}

func (m *MarkdownWriter) Write(w io.Writer, r *report.Report) error {
	name, description := "Untitled Flow", ""
	var uploadID, createdWith, useCase string
	steps := 0
	if r.Flow != nil {
		if r.Flow.Name != "" {
			name = r.Flow.Name
		}
		description = r.Flow.Description
		uploadID, createdWith, useCase = r.Flow.UploadID, r.Flow.CreatedWith, r.Flow.UseCase
		steps = len(r.Flow.Steps)
	}

	fmt.Fprintf(w, "# Flow Analysis Report\n\n")
	fmt.Fprintf(w, "## Flow Information\n\n")
	fmt.Fprintf(w, "**Name:** %s\n\n", name)
	fmt.Fprintf(w, "**Description:** %s\n\n", orDefault(description, "No description provided"))
	fmt.Fprintf(w, "**Generated:** %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "---\n\n")

	fmt.Fprintf(w, "## 1. User Interactions\n\n%s\n\n---\n\n", r.UserActions)
	fmt.Fprintf(w, "## 2. Summary\n\n%s\n\n---\n\n", r.Summary)

	fmt.Fprintf(w, "## 3. Social Media Image\n\n")
	if best := r.Best(); best != nil {
		fmt.Fprintf(w, "![%s](%s)\n\n", name, m.link(best.Path))
		if best.URL != "" {
			fmt.Fprintf(w, "**Image URL:** %s\n\n", best.URL)
		}
	} else {
		fmt.Fprintf(w, "No image was generated.\n\n")
	}
	fmt.Fprintf(w, "---\n\n")

	fmt.Fprintf(w, "## Technical Details\n\n")
	fmt.Fprintf(w, "- **Total Steps:** %d\n", steps)
	fmt.Fprintf(w, "- **Flow ID:** %s\n", orDefault(uploadID, "N/A"))
	fmt.Fprintf(w, "- **Created With:** %s\n", orDefault(createdWith, "N/A"))
	fmt.Fprintf(w, "- **Use Case:** %s\n\n", orDefault(useCase, "N/A"))
	fmt.Fprintf(w, "---\n\n")
	fmt.Fprintf(w, "*Generated in %dms with cached model responses.*\n", r.Timing.TotalMs)

	if len(r.Images) > 1 {
		m.writeAddendum(w, r)
	}
	return nil
}

func (m *MarkdownWriter) writeAddendum(w io.Writer, r *report.Report) {
	fmt.Fprintf(w, "\n---\n\n## Addendum: Image Selection Process\n\n")

	best := r.Best()
	if r.Selection == nil || best == nil {
		fmt.Fprintf(w, "Multiple images were generated and evaluated.\n\n")
	} else {
		fmt.Fprintf(w, "**Selected Image:** Image %d (%s)\n\n", best.Number, best.Variation)
		fmt.Fprintf(w, "**Selection Reasoning:**\n%s\n\n", r.Selection.Reasoning)
		fmt.Fprintf(w, "**Evaluation Scores:**\n\n")
		fmt.Fprintf(w, "| Image | Visual Appeal | Professionalism | Relevance | Engagement | Overall |\n")
		fmt.Fprintf(w, "|-------|--------------|-----------------|-----------|------------|---------|\n")
		for _, img := range r.Images {
			sc, ok := r.Selection.ScoreFor(img.Number)
			if !ok {
				fmt.Fprintf(w, "| Image %d (%s) | - | - | - | - | - |\n", img.Number, img.Variation)
				continue
			}
			fmt.Fprintf(w, "| Image %d (%s) | %g/10 | %g/10 | %g/10 | %g/10 | **%g/10** |\n",
				img.Number, img.Variation, sc.VisualAppeal, sc.Professionalism, sc.Relevance, sc.Engagement, sc.Overall)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "### All Generated Images\n\n")
	for _, img := range r.Images {
		marker := ""
		if img.Selected {
			marker = " ✓ **SELECTED**"
		}
		fmt.Fprintf(w, "#### Image %d%s\n\n", img.Number, marker)
		fmt.Fprintf(w, "![Image %d](%s)\n\n", img.Number, m.link(img.Path))
		fmt.Fprintf(w, "**Prompt Variation:** %s\n\n", orDefault(img.Variation, "Standard"))
		if img.URL != "" {
			fmt.Fprintf(w, "**URL:** %s\n\n", img.URL)
		}
	}
}

// link returns path relative to BaseDir when both are local and related.
func (m *MarkdownWriter) link(path string) string {
	if m.BaseDir == "" {
		return filepath.ToSlash(path)
	}
	base, err := filepath.Abs(m.BaseDir)
	if err != nil {
		return filepath.ToSlash(path)
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

package flow

import (
	"context"
	"fmt"
)

// Action is a click that leads into or out of a step.
type Action struct {
	Element     string
	ElementType string
	PageURL     string
}

// Surrounding holds the clicks immediately before and after a step. Either
// may be nil when the neighbour is missing or is not an IMAGE step.
type Surrounding struct {
	Previous *Action
	Next     *Action
}

// SurroundingContext returns the click actions around steps[i].
func SurroundingContext(steps []Step, i int) Surrounding {
	var sc Surrounding
	if i > 0 && i-1 < len(steps) {
		sc.Previous = clickAction(steps[i-1])
	}
	if i >= 0 && i+1 < len(steps) {
		sc.Next = clickAction(steps[i+1])
	}
	return sc
}

func clickAction(s Step) *Action {
	if s.Type != StepImage {
		return nil
	}
	a := &Action{Element: "unknown", ElementType: "unknown"}
	if s.ClickContext != nil {
		a.Element = orDefault(s.ClickContext.Text, "unknown")
		a.ElementType = orDefault(s.ClickContext.ElementType, "unknown")
	}
	if s.PageContext != nil {
		a.PageURL = s.PageContext.URL
	}
	return a
}

// EventsInRange returns the events that fall inside the segment a VIDEO step
// covers, bounds inclusive.
func EventsInRange(events []Event, s Step) []Event {
	start, end := s.TimeRange()
	var out []Event
	for _, e := range events {
		t := e.TimeMs / 1000
		if t >= start && t <= end {
			out = append(out, e)
		}
	}
	return out
}

// EnrichedKind is the kind of an enriched step.
type EnrichedKind string

const (
	KindChapter EnrichedKind = "chapter"
	KindImage   EnrichedKind = "image"
	KindVideo   EnrichedKind = "video"
)

// EnrichedStep is a step reduced to what a reader needs to follow the flow.
type EnrichedStep struct {
	Kind         EnrichedKind `json:"type"`
	Title        string       `json:"title,omitempty"`
	Subtitle     string       `json:"subtitle,omitempty"`
	Action       string       `json:"action,omitempty"`
	PageURL      string       `json:"page_url,omitempty"`
	PageTitle    string       `json:"page_title,omitempty"`
	HotspotLabel string       `json:"hotspot_label,omitempty"`
	Duration     float64      `json:"duration,omitempty"`
}

// VideoContext is what a VideoDescriber knows about a VIDEO step.
type VideoContext struct {
	Index       int
	Step        Step
	Surrounding Surrounding
	Events      []Event
}

// VideoDescriber returns a one-sentence description of a VIDEO step.
type VideoDescriber func(ctx context.Context, vc VideoContext) (string, error)

// Enrich converts steps into enriched steps. VIDEO steps are described by
// describe; steps of any other unknown type are skipped.
func Enrich(ctx context.Context, steps []Step, events []Event, describe VideoDescriber) ([]EnrichedStep, error) {
	out := make([]EnrichedStep, 0, len(steps))
	for i, s := range steps {
		switch s.Type {
		case StepChapter:
			out = append(out, EnrichedStep{Kind: KindChapter, Title: s.Title, Subtitle: s.Subtitle})
		case StepImage:
			es := EnrichedStep{Kind: KindImage}
			if s.ClickContext != nil {
				es.Action = fmt.Sprintf("Clicked on '%s' (%s)",
					orDefault(s.ClickContext.Text, "element"),
					orDefault(s.ClickContext.ElementType, "unknown"))
			}
			if s.PageContext != nil {
				es.PageURL = s.PageContext.URL
				es.PageTitle = s.PageContext.Title
			}
			if len(s.Hotspots) > 0 {
				es.HotspotLabel = s.Hotspots[0].Label
			}
			out = append(out, es)
		case StepVideo:
			if describe == nil {
				return nil, fmt.Errorf("step %d: no describer for video step", i)
			}
			desc, err := describe(ctx, VideoContext{
				Index:       i,
				Step:        s,
				Surrounding: SurroundingContext(steps, i),
				Events:      EventsInRange(events, s),
			})
			if err != nil {
				return nil, fmt.Errorf("describing video step %d: %w", i, err)
			}
			out = append(out, EnrichedStep{Kind: KindVideo, Action: desc, Duration: s.ClipDuration()})
		}
	}
	return out, nil
}

// Narrative returns the action lines of enriched steps in order. Chapters
// contribute a "**title**: subtitle" line only when both are set.
func Narrative(steps []EnrichedStep) []string {
	var lines []string
	for _, s := range steps {
		switch s.Kind {
		case KindChapter:
			if s.Title != "" && s.Subtitle != "" {
				lines = append(lines, fmt.Sprintf("**%s**: %s", s.Title, s.Subtitle))
			}
		case KindImage, KindVideo:
			if s.Action != "" {
				lines = append(lines, s.Action)
			}
		}
	}
	return lines
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

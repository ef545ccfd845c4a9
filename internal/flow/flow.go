package flow

import (
	"encoding/json"
	"fmt"
	"os"
)

// StepType identifies the kind of a recorded step.
type StepType string

const (
	StepChapter StepType = "CHAPTER"
	StepImage   StepType = "IMAGE"
	StepVideo   StepType = "VIDEO"
)

// Flow is a recorded flow.
type Flow struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	UploadID       string  `json:"uploadId"`
	CreatedWith    string  `json:"createdWith"`
	UseCase        string  `json:"useCase"`
	Steps          []Step  `json:"steps"`
	CapturedEvents []Event `json:"capturedEvents"`

	// RawSteps holds the steps exactly as recorded, for prompting.
	RawSteps []any `json:"-"`
}

// Step is one recorded step. Fields not relevant to its Type are zero.
type Step struct {
	ID                string        `json:"id,omitempty"`
	Type              StepType      `json:"type"`
	Title             string        `json:"title,omitempty"`
	Subtitle          string        `json:"subtitle,omitempty"`
	ClickContext      *ClickContext `json:"clickContext,omitempty"`
	PageContext       *PageContext  `json:"pageContext,omitempty"`
	Hotspots          []Hotspot     `json:"hotspots,omitempty"`
	VideoThumbnailURL string        `json:"videoThumbnailUrl,omitempty"`
	StartTimeFrac     float64       `json:"startTimeFrac,omitempty"`
	EndTimeFrac       float64       `json:"endTimeFrac,omitempty"`
	Duration          float64       `json:"duration,omitempty"`
}

// ClickContext describes the element clicked to reach an IMAGE step.
type ClickContext struct {
	Text        string `json:"text"`
	ElementType string `json:"elementType"`
}

// PageContext describes the page shown in a step.
type PageContext struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Hotspot is a highlighted region on an IMAGE step.
type Hotspot struct {
	Label string `json:"label"`
}

// Event is a raw captured input event. TimeMs is relative to the start of
// the recording.
type Event struct {
	Type   string  `json:"type"`
	TimeMs float64 `json:"timeMs"`
}

// Load reads a flow from a JSON file.
func Load(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading flow: %w", err)
	}
	return Parse(data)
}

// Parse decodes a flow document.
func Parse(data []byte) (*Flow, error) {
	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing flow: %w", err)
	}
	var raw struct {
		Steps []any `json:"steps"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing flow: %w", err)
	}
	f.RawSteps = raw.Steps
	if f.RawSteps == nil {
		f.RawSteps = []any{}
	}
	return &f, nil
}

// TimeRange returns the start and end of a VIDEO step in seconds.
func (s Step) TimeRange() (start, end float64) {
	return s.StartTimeFrac * s.Duration, s.EndTimeFrac * s.Duration
}

// ClipDuration returns the length of the recorded segment a VIDEO step covers.
func (s Step) ClipDuration() float64 {
	return (s.EndTimeFrac - s.StartTimeFrac) * s.Duration
}

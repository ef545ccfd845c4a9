package report

import (
	"time"

	"github.com/dshills/flowscribe/internal/flow"
)

// Image is one generated candidate image.
type Image struct {
	Number        int    `json:"number"`
	Variation     string `json:"variation"`
	Prompt        string `json:"prompt"`
	RevisedPrompt string `json:"revisedPrompt,omitempty"`
	URL           string `json:"url,omitempty"`
	Path          string `json:"path"`
	Saved         bool   `json:"saved"`
	Selected      bool   `json:"selected"`
}

// Score is the vision model's rating of one image, each criterion 1-10.
type Score struct {
	VisualAppeal    float64 `json:"visual_appeal"`
	Professionalism float64 `json:"professionalism"`
	Relevance       float64 `json:"relevance"`
	Engagement      float64 `json:"engagement"`
	Overall         float64 `json:"overall"`
}

// Selection is the vision model's choice among the candidate images.
type Selection struct {
	// Selected is the 1-based number of the chosen image.
	Selected  int              `json:"selected_image"`
	Reasoning string           `json:"reasoning"`
	Scores    map[string]Score `json:"scores,omitempty"`
}

// ScoreFor returns the score recorded for image n, if any.
func (s *Selection) ScoreFor(n int) (Score, bool) {
	if s == nil {
		return Score{}, false
	}
	sc, ok := s.Scores[scoreKey(n)]
	return sc, ok
}

// Timing contains performance metrics.
type Timing struct {
	TotalMs int64 `json:"totalMs"`
}

// Report is the result of a generator run.
type Report struct {
	Tool        string     `json:"tool"`
	Version     string     `json:"version"`
	Flow        *flow.Flow `json:"flow"`
	GeneratedAt time.Time  `json:"generatedAt"`
	UserActions string     `json:"userActions"`
	Summary     string     `json:"summary"`
	Images      []Image    `json:"images"`
	Selection   *Selection `json:"selection,omitempty"`
	Timing      Timing     `json:"timing"`
}

// Best returns the selected image, or nil when there is none.
func (r *Report) Best() *Image {
	for i := range r.Images {
		if r.Images[i].Selected {
			return &r.Images[i]
		}
	}
	return nil
}

package report

import (
	"fmt"
	"strings"

	"github.com/dshills/flowscribe/internal/flow"
)

// imageStyles are the creative directions offered for image prompts, in
// the order they are requested.
var imageStyles = []struct {
	Name  string
	Brief string
}{
	{"Minimalist", "Minimalist/clean design approach"},
	{"Vibrant", "Vibrant/colorful approach"},
	{"Illustrative", "Illustrative/conceptual approach"},
	{"Photographic", "Photographic/realistic approach"},
	{"Geometric", "Abstract/geometric approach"},
}

// maxVariations is the largest number of image variations a run can request.
var maxVariations = len(imageStyles)

const (
	interactionsSystem = "You are an expert at analyzing user interaction flows from recorded product walkthroughs. Provide clear, human-readable descriptions of user actions."
	organizeSystem     = "You are an expert at creating clear, bulleted lists of user actions."
	summarySystem      = "You are an expert at creating clear, concise summaries of user workflows."
	variationsSystem   = "You are an expert at creating engaging image-generation prompts for social media images. Always respond with valid JSON only."
	selectionSystem    = "You are an expert at evaluating social media images for engagement, professionalism, and brand appeal."
	videoSystem        = "You are an expert at describing user actions in web interfaces. Be specific and concise."
)

func message(role string, content any) map[string]any {
	return map[string]any{"role": role, "content": content}
}

func textPart(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

func imagePart(url string) map[string]any {
	return map[string]any{"type": "image_url", "image_url": map[string]any{"url": url}}
}

func interactionsPrompt(stepsJSON string) string {
	return fmt.Sprintf(`Analyze this flow data and create a bulleted list of user interactions in human-readable format.

Flow data:
%s

For each significant user action, describe what the user did (e.g., "Clicked on checkout", "Searched for product X", "Scrolled through results").
Focus on the meaningful interactions, not technical details. Format as a markdown bulleted list.`, stepsJSON)
}

func organizePrompt(narrative []string) string {
	var b strings.Builder
	b.WriteString("Convert these user actions into a clean, bulleted markdown list.\n\nActions:\n")
	for _, line := range narrative {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString(`
Create a well-organized bulleted list that:
1. Lists the actions the user took in human readable form (e.g. "Clicked on checkout", "Searched for X", "Typed Y into Z")
2. Uses clear, active voice
3. Maintains chronological order

Format as markdown with proper bullets.`)
	return b.String()
}

func summaryPrompt(name, actions string) string {
	return fmt.Sprintf(`Based on this flow titled "%s", create a clear, readable summary (2-3 paragraphs) of what the user was trying to accomplish.

Flow name: %s
User interactions: %s

Write a friendly, informative summary that explains the user's goal and the steps they took.`, name, name, actions)
}

func variationsPrompt(title, summary string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Create %d DIFFERENT compelling image-generation prompts for social media images based on this flow:

Title: %s
Summary: %s

Each prompt should have a different creative approach but all should be:
- Professional and modern
- Eye-catching for social media
- Representative of the flow's purpose
- Suitable for platforms like LinkedIn, Twitter, etc.

Variations to try:
`, n, title, summary)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d. %s\n", i+1, imageStyles[i].Brief)
	}
	b.WriteString("\nRespond in JSON format:\n{\n  \"prompts\": [\n")
	for i := 0; i < n; i++ {
		sep := ","
		if i == n-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    {\"variation\": %q, \"prompt\": \"...\"}%s\n", imageStyles[i].Name, sep)
	}
	b.WriteString("  ]\n}")
	return b.String()
}

func scoreKey(n int) string {
	return fmt.Sprintf("image_%d", n)
}

func selectionPrompt(title, summary string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Evaluate these %d social media images for the flow: "%s"

Flow Summary: %s

Please analyze each image based on:
1. Visual appeal and eye-catching quality
2. Professional appearance
3. Relevance to the flow's purpose
4. Social media engagement potential
5. Brand suitability

Select the BEST image and explain your reasoning.

Respond in JSON format:
{
  "selected_image": <number from 1 to %d>,
  "reasoning": "Detailed explanation of why this image is best...",
  "scores": {
`, n, title, summary, n)
	for i := 1; i <= n; i++ {
		sep := ","
		if i == n {
			sep = ""
		}
		fmt.Fprintf(&b, "    %q: {\"visual_appeal\": X, \"professionalism\": X, \"relevance\": X, \"engagement\": X, \"overall\": X}%s\n", scoreKey(i), sep)
	}
	b.WriteString("  }\n}\n\nRate each criterion from 1-10.")
	return b.String()
}

func videoPrompt(vc flow.VideoContext) string {
	var b strings.Builder
	b.WriteString("Describe what the user is doing in this video segment.\n\nContext:\n")
	if p := vc.Surrounding.Previous; p != nil {
		fmt.Fprintf(&b, "- User just clicked on: '%s' (%s)\n", p.Element, p.ElementType)
		fmt.Fprintf(&b, "- Previous page: %s\n", p.PageURL)
	}
	if n := vc.Surrounding.Next; n != nil {
		fmt.Fprintf(&b, "- Next action will be: clicking '%s' (%s)\n", n.Element, n.ElementType)
		fmt.Fprintf(&b, "- Next page: %s\n", n.PageURL)
	}
	b.WriteString("\nEvents during this video:\n")
	for _, e := range vc.Events {
		b.WriteString("- ")
		b.WriteString(describeEvent(e.Type))
		b.WriteString("\n")
	}
	b.WriteString(`
Based on the screenshot, context, and events, write a single clear sentence describing the user's action.
Example: "Typed 'scooter' into the search bar"
Example: "Scrolled through the search results"
Example: "Selected the blue color option"

Respond with just the action description, no preamble.`)
	return b.String()
}

func describeEvent(t string) string {
	switch t {
	case "typing":
		return "User typed text"
	case "scrolling":
		return "User scrolled the page"
	case "click":
		return "User clicked"
	case "dragging":
		return "User dragged"
	case "":
		return "unknown"
	default:
		return t
	}
}

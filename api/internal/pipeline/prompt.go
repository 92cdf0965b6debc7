package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxPromptHints caps how many hints are embedded in one prompt.
const MaxPromptHints = 50

const promptTemplate = `You are reading page %[1]d of a patent drawing set.

[Local OCR hints]
Boxes are [ymin, xmin, ymax, xmax] on a 0-1000 scale:
%[2]s

[Task]
List every component label visible on the page, including:
1. Plain reference numerals (10, 140, 1601).
2. Numerals with primes or letter suffixes (140', 150", 181a).
3. Dimension letters (G, W1, e1).
4. Labels attached to arrows or leader lines (1a).

[Output]
Answer with a JSON array only, one object per figure on the page:
[{"page": %[1]d, "figure": "FIG. X", "components": ["10", "1a", "G"], "hierarchy": [{"parent": "20", "children": ["201", "202"]}]}]
Use the hints to locate labels and add any label the hints missed.`

// BuildPrompt renders the extraction instructions for one page, embedding at
// most MaxPromptHints hints.
func BuildPrompt(page int, hints []Hint) (string, error) {
	if len(hints) > MaxPromptHints {
		hints = hints[:MaxPromptHints]
	}
	if hints == nil {
		hints = []Hint{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(hints); err != nil {
		return "", fmt.Errorf("encode hints: %w", err)
	}

	return fmt.Sprintf(promptTemplate, page, bytes.TrimSpace(buf.Bytes())), nil
}

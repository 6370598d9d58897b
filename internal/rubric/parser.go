// Package rubric turns the paragraphs of a grading rubric into flat metric records.
//
// Parsing runs in three pure stages: Classify tags each line, Rubric.Apply folds the
// tokens into a question/part tree, and Materialize flattens the tree in document order.
package rubric

import (
	"errors"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// ErrEmptyDocument indicates the document has no non-blank line.
var ErrEmptyDocument = errors.New("rubric document has no content")

// DroppedLine is a line outside the general section that matched no rule.
type DroppedLine struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Result is the outcome of parsing one document.
type Result struct {
	Metrics   []models.Metric
	Dropped   []DroppedLine
	Questions int
	Lines     int
}

// Build classifies every non-blank line and folds the tokens into a parse tree. Line
// numbers in the dropped list are 1-based positions in the input sequence.
func Build(lines []string) (Rubric, []DroppedLine, int) {
	var (
		tree    Rubric
		dropped []DroppedLine
		seen    int
	)
	state := InitialState()

	for idx, raw := range lines {
		line := NormalizeLine(raw)
		if line == "" {
			continue
		}
		seen++

		tok := Classify(line, state.Context())
		if tok.Kind == TokenUnmatched {
			dropped = append(dropped, DroppedLine{Number: idx + 1, Text: line})
			continue
		}
		state = tree.Apply(state, tok)
	}

	return tree, dropped, seen
}

// Parse runs the full pipeline for the given exam.
func Parse(examID uint, lines []string) (Result, error) {
	tree, dropped, seen := Build(lines)
	if seen == 0 {
		return Result{}, ErrEmptyDocument
	}

	return Result{
		Metrics:   Materialize(examID, tree),
		Dropped:   dropped,
		Questions: len(tree.Questions),
		Lines:     seen,
	}, nil
}

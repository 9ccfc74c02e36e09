package dto

import "fmt"

// Score labels shown next to an evaluation score.
const (
	ScoreLabelExcellent = "Excellent"
	ScoreLabelGood      = "Good"
	ScoreLabelFair      = "Fair"
	ScoreLabelNeedsWork = "Needs Work"
	ScoreLabelMissing   = "N/A"
	ScoreLabelInvalid   = "Invalid"
)

// ScoreDisplay is the presentation form of an overall score.
type ScoreDisplay struct {
	Value *int   `json:"value"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// NewScoreDisplay derives the label and text for a score. A nil score is not an error.
func NewScoreDisplay(score *int) ScoreDisplay {
	if score == nil {
		return ScoreDisplay{Label: ScoreLabelMissing, Text: ScoreLabelMissing}
	}

	value := *score
	display := ScoreDisplay{Value: &value, Text: fmt.Sprintf("%d/100", value)}
	switch {
	case value < 0 || value > 100:
		display.Label = ScoreLabelInvalid
		display.Text = ScoreLabelMissing
	case value >= 90:
		display.Label = ScoreLabelExcellent
	case value >= 70:
		display.Label = ScoreLabelGood
	case value >= 50:
		display.Label = ScoreLabelFair
	default:
		display.Label = ScoreLabelNeedsWork
	}

	return display
}

// ScoreLabel is shorthand for NewScoreDisplay(score).Label.
func ScoreLabel(score *int) string {
	return NewScoreDisplay(score).Label
}

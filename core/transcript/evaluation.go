package transcript

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ProceedAverage is the lowest average score that still recommends the
// candidate for the next round.
const ProceedAverage = 4.0

const maxEvaluationComments = 3

var scoreLine = regexp.MustCompile(`^(.*?):\s*([0-5](?:\.\d)?)\b`)

// Evaluation is the interviewer's assessment of a finished interview.
type Evaluation struct {
	Scores         map[string]float64 `json:"scores"`
	Comments       []string           `json:"comments,omitempty"`
	Recommendation string             `json:"recommendation,omitempty"`
	Proceed        bool               `json:"proceed"`
}

// ParseEvaluation reads a free-form model reply. Lines of the form
// "<criterion>: <score>" become scores out of 5, bullet lines become
// comments (at most three) and the first line mentioning a recommendation
// is kept as is. Proceed is decided from the average score, not from the
// wording of the reply.
func ParseEvaluation(reply string) Evaluation {
	evaluation := Evaluation{Scores: map[string]float64{}}
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "*", ""))
		if line == "" {
			continue
		}

		if match := scoreLine.FindStringSubmatch(line); match != nil {
			criterion := strings.TrimSpace(strings.TrimLeft(match[1], "-•# "))
			score, err := strconv.ParseFloat(match[2], 64)
			if criterion != "" && err == nil {
				evaluation.Scores[criterion] = score
				continue
			}
		}

		switch {
		case strings.HasPrefix(line, "•"), strings.HasPrefix(line, "-"):
			if len(evaluation.Comments) < maxEvaluationComments {
				evaluation.Comments = append(evaluation.Comments, strings.TrimSpace(strings.TrimLeft(line, "-• ")))
			}
		case evaluation.Recommendation == "" && strings.Contains(strings.ToLower(line), "recommend"):
			evaluation.Recommendation = line
		}
	}

	evaluation.Proceed = len(evaluation.Scores) > 0 && evaluation.Average() >= ProceedAverage
	return evaluation
}

// Average is the mean score, 0 without scores.
func (e Evaluation) Average() float64 {
	if len(e.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, score := range e.Scores {
		sum += score
	}
	return sum / float64(len(e.Scores))
}

func writeEvaluation(w io.Writer, e Evaluation) error {
	if _, err := fmt.Fprintln(w, "\nEvaluation:"); err != nil {
		return err
	}
	criteria := make([]string, 0, len(e.Scores))
	for criterion := range e.Scores {
		criteria = append(criteria, criterion)
	}
	slices.Sort(criteria)
	for _, criterion := range criteria {
		if _, err := fmt.Fprintf(w, "%s: %.1f/5\n", criterion, e.Scores[criterion]); err != nil {
			return err
		}
	}
	for _, comment := range e.Comments {
		if _, err := fmt.Fprintf(w, "- %s\n", comment); err != nil {
			return err
		}
	}
	decision := "do not proceed"
	if e.Proceed {
		decision = "proceed"
	}
	if _, err := fmt.Fprintf(w, "Average: %.1f/5, %s\n", e.Average(), decision); err != nil {
		return err
	}
	if e.Recommendation != "" {
		if _, err := fmt.Fprintln(w, e.Recommendation); err != nil {
			return err
		}
	}
	return nil
}

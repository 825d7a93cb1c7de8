package interviewer

import (
	"context"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-interview/core/conversation"
	"google.golang.org/genai"
)

// Criteria are scored out of 5 when an interview is evaluated.
var Criteria = []string{"Communication", "Technical Skills", "Fluency", "Listening & Clarity", "Confidence"}

// Evaluator assesses a finished interview. The reply is free-form text,
// see transcript.ParseEvaluation for the lines that are picked up.
type Evaluator interface {
	Evaluate(ctx context.Context, interview Interview) (string, error)
}

// ScriptedEvaluator scores every criterion from the length of the answers.
// Answers of MinWords words or more on average score 4, shorter ones 3.
type ScriptedEvaluator struct {
	MinWords int
}

func NewScriptedEvaluator() *ScriptedEvaluator {
	return &ScriptedEvaluator{MinWords: 12}
}

func (e *ScriptedEvaluator) Evaluate(_ context.Context, interview Interview) (string, error) {
	answers, words := 0, 0
	for _, turn := range interview.History {
		if turn.Role == conversation.RoleUser {
			answers++
			words += len(strings.Fields(turn.Text))
		}
	}

	score := 3
	if answers > 0 && words/answers >= e.MinWords {
		score = 4
	}

	var b strings.Builder
	for _, criterion := range Criteria {
		fmt.Fprintf(&b, "%s: %d/5\n", criterion, score)
	}
	fmt.Fprintf(&b, "- Answered %d question(s).\n", answers)
	if answers > 0 {
		fmt.Fprintf(&b, "- Answers averaged %d words.\n", words/answers)
	}
	if score >= 4 {
		b.WriteString("Recommendation: I recommend the candidate proceeds to the next round.\n")
	} else {
		b.WriteString("Recommendation: I do not recommend the candidate proceeds to the next round.\n")
	}
	return b.String(), nil
}

// Evaluate asks the model to score the interview it just ran.
func (q *GeminiQuestioner) Evaluate(ctx context.Context, interview Interview) (string, error) {
	contents := historyContents(interview.History)
	contents = append(contents, genai.NewContentFromText(evaluationPrompt(), genai.RoleUser))

	resp, err := q.client.Models.GenerateContent(ctx, q.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(interview), genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate evaluation: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("model returned an empty evaluation")
	}
	return text, nil
}

func evaluationPrompt() string {
	var b strings.Builder
	b.WriteString("Now that the interview is over, please evaluate the candidate on:\n")
	for _, criterion := range Criteria {
		fmt.Fprintf(&b, "• %s\n", criterion)
	}
	b.WriteString("Give each a score out of 5, one per line as \"<criterion>: <score>\".\n")
	b.WriteString("Also provide 2-3 bullet points summarizing strengths or improvement areas.\n")
	b.WriteString("Finally, recommend whether they should proceed to the next round. ")
	b.WriteString("Do not proceed if the average score is below 4.")
	return b.String()
}

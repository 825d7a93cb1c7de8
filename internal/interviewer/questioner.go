package interviewer

import (
	"context"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-interview/core/conversation"
	"google.golang.org/genai"
)

// ClosingLine ends every interview.
const ClosingLine = "That concludes our interview. Thanks for joining. You may now close the session."

type Turn struct {
	Role conversation.Role
	Text string
}

// Interview is what a questioner sees when asked for the next line.
type Interview struct {
	Resume       string
	MaxQuestions int
	History      []Turn
}

// Questioner produces the interviewer's next line: the greeting when the
// history is empty, otherwise the next question.
type Questioner interface {
	Ask(ctx context.Context, interview Interview) (string, error)
}

// ScriptedQuestioner walks a fixed list of questions.
type ScriptedQuestioner struct {
	Greeting  string
	Questions []string
}

func NewScriptedQuestioner() *ScriptedQuestioner {
	return &ScriptedQuestioner{
		Greeting: "Hello, tell me about yourself",
		Questions: []string{
			"What project are you most proud of, and what was your role in it?",
			"How do you approach debugging a problem you cannot reproduce locally?",
			"Describe a time you had to make a trade-off between speed and quality.",
			"How do you keep a codebase maintainable as a team grows?",
			"What would you want to learn in your next role?",
		},
	}
}

func (q *ScriptedQuestioner) Ask(_ context.Context, interview Interview) (string, error) {
	asked := 0
	for _, turn := range interview.History {
		if turn.Role == conversation.RoleAssistant {
			asked++
		}
	}
	if asked == 0 {
		return q.Greeting, nil
	}
	if len(q.Questions) == 0 {
		return "", fmt.Errorf("no scripted questions")
	}
	return q.Questions[(asked-1)%len(q.Questions)], nil
}

// GeminiQuestioner asks a Gemini model for the next question. It is also
// an Evaluator.
type GeminiQuestioner struct {
	client *genai.Client
	model  string
}

func NewGeminiQuestioner(ctx context.Context, apiKey, model string) (*GeminiQuestioner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiQuestioner{client: client, model: model}, nil
}

func (q *GeminiQuestioner) Ask(ctx context.Context, interview Interview) (string, error) {
	contents := historyContents(interview.History)
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText("Start the interview.", genai.RoleUser))
	}

	resp, err := q.client.Models.GenerateContent(ctx, q.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(interview), genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate question: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("model returned an empty question")
	}
	return text, nil
}

func historyContents(history []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	return contents
}

func systemPrompt(interview Interview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI interviewer. Greet the candidate by name if the resume below has one. "+
		"Ask exactly %d different technical questions about their skills, one at a time.\n", interview.MaxQuestions)
	b.WriteString("Do not repeat or rephrase a previous question. Do not number the questions.\n")
	b.WriteString("Ignore spelling mistakes, answers are transcribed from speech.\n")
	b.WriteString("After each answer do not give feedback. Acknowledge briefly and ask the next question.\n")
	if interview.Resume != "" {
		b.WriteString("Candidate resume: ")
		b.WriteString(interview.Resume)
		b.WriteString("\nUse it to personalize the questions.")
	}
	return b.String()
}

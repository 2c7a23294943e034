// Package openai turns the rendered message corpus into a report via a
// single chat completion.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"jubo/internal/report"
)

// Params carries everything the prompt needs besides the corpus itself.
type Params struct {
	Corpus       string // rendered message lines
	Kind         string // report.KindDaily or report.KindWeekly
	DateLabel    string
	Guide        string // operator-maintained report guide, may be empty
	FeedbackText string // accumulated team feedback block, may be empty
}

const systemTemplate = `You are a senior manager of an accommodation channel operations team.
Analyze Slack channel messages and write a report.
{{if .Guide}}
Follow this guide:

{{.Guide}}
{{end}}
Additional instructions:
- CRITICAL: ONLY state facts explicitly mentioned in the messages
- NEVER infer, assume, or fabricate information not in the messages
- If something is unclear, say '확인 필요' rather than guessing
- Numbers must exactly match what appears in the messages
- When citing any number, show the criteria used to count, not individual items
- Keep the report compact and scannable
- Include specific names (venues, staff) ONLY if they appear in messages
- Write in Korean
- CRITICAL: Use Slack mrkdwn format, NOT standard Markdown
- Bold: *single asterisk* (NOT **double**)
- No ### or #### headers. Use *bold text* with emoji for sections
- Italic: _underscore_
- Divider: use three dashes
`

const userTemplate = `Below are Slack channel messages for {{.DateLabel}}.
Messages marked [reply] are thread replies.
Please write the report in {{.CaseInstruction}}.
Current time for context: {{.CurrentTime}}.
{{if .FeedbackText}}
---ACCUMULATED TEAM FEEDBACK---
Below is accumulated feedback from team members across all previous reports.
These are PERMANENT corrections and preferences. ALWAYS apply them:
- If feedback says something is NOT a certain category, never categorize it that way
- If feedback corrects a factual error, always use the corrected version
- If feedback requests a format change, always apply it

{{.FeedbackText}}
---FEEDBACK END---
{{end}}
---SLACK MESSAGES START---
{{.Corpus}}
---SLACK MESSAGES END---`

// GenerateReport runs one completion over the corpus. No streaming, no tool
// calls; an empty choice list is an error.
func GenerateReport(client *goopenai.Client, p Params, logger *zap.Logger) (string, error) {
	system, user, err := buildPrompts(p)
	if err != nil {
		return "", err
	}

	logger.Info("Requesting report generation",
		zap.String("kind", p.Kind),
		zap.String("date_label", p.DateLabel),
		zap.Int("corpus_chars", len(p.Corpus)))

	resp, err := client.CreateChatCompletion(
		context.Background(),
		goopenai.ChatCompletionRequest{
			Model: goopenai.GPT4oMini20240718,
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleSystem, Content: system},
				{Role: goopenai.ChatMessageRoleUser, Content: user},
			},
			MaxTokens:   2000,
			Temperature: 0.3,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai returned empty report")
	}
	logger.Info("Report generated", zap.Int("chars", len(resp.Choices[0].Message.Content)))
	return resp.Choices[0].Message.Content, nil
}

func buildPrompts(p Params) (system, user string, err error) {
	caseInstruction := "[Case A] daily quick report format"
	if p.Kind == report.KindWeekly {
		caseInstruction = "[Case B] weekly operation report format"
	}

	sysTmpl, err := template.New("system").Parse(systemTemplate)
	if err != nil {
		return "", "", fmt.Errorf("parsing system template: %w", err)
	}
	var sysBuf bytes.Buffer
	if err := sysTmpl.Execute(&sysBuf, struct{ Guide string }{p.Guide}); err != nil {
		return "", "", fmt.Errorf("executing system template: %w", err)
	}

	userTmpl, err := template.New("user").Parse(userTemplate)
	if err != nil {
		return "", "", fmt.Errorf("parsing user template: %w", err)
	}
	var userBuf bytes.Buffer
	data := struct {
		DateLabel       string
		CaseInstruction string
		FeedbackText    string
		Corpus          string
		CurrentTime     string
	}{
		DateLabel:       p.DateLabel,
		CaseInstruction: caseInstruction,
		FeedbackText:    p.FeedbackText,
		Corpus:          p.Corpus,
		CurrentTime:     time.Now().In(report.KST).Format("2006-01-02 15:04 KST"),
	}
	if err := userTmpl.Execute(&userBuf, data); err != nil {
		return "", "", fmt.Errorf("executing user template: %w", err)
	}
	return sysBuf.String(), userBuf.String(), nil
}

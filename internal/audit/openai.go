package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/item-bank/itembank/internal/bank"
	"github.com/item-bank/itembank/internal/gate"
)

const verdictToolName = "record_verdict"

// OpenAIJudge reviews items with a chat model. The reply is forced
// through a function call so it arrives as structured JSON matching
// the auditor's rubric, and anything that does not parse cleanly
// becomes a tool-failure verdict rather than a judgment.
type OpenAIJudge struct {
	client *openai.Client
	model  string
}

func NewOpenAIJudge(apiKey, baseURL, model string) *OpenAIJudge {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIJudge{client: openai.NewClientWithConfig(cfg), model: model}
}

func (j *OpenAIJudge) Evaluate(ctx context.Context, auditor string, it bank.Item) (gate.Verdict, error) {
	rubric, ok := gate.RubricFor(auditor)
	if !ok {
		return gate.Verdict{}, fmt.Errorf("unknown auditor %q", auditor)
	}

	resp, err := j.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: j.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleSystem,
					Content: fmt.Sprintf(
						"You are a strict %s reviewer for quiz questions. Judge every criterion independently and reply only through the %s function.",
						auditor, verdictToolName),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildPrompt(rubric, it),
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        verdictToolName,
						Description: "Record the structured review of one quiz item",
						Parameters:  verdictSchema(rubric),
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: verdictToolName},
			},
		},
	)
	if err != nil {
		return gate.Verdict{}, fmt.Errorf("evaluate item %s: %w", it.ID, err)
	}

	if len(resp.Choices) == 0 {
		return gate.ToolFailureVerdict(auditor, "no choices in model response"), nil
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return gate.ToolFailureVerdict(auditor, "model returned no tool call"), nil
	}
	if name := calls[0].Function.Name; name != verdictToolName {
		return gate.ToolFailureVerdict(auditor, fmt.Sprintf("unexpected tool call %q", name)), nil
	}
	return parseVerdict(rubric, calls[0].Function.Arguments), nil
}

// verdictSchema builds the function parameters for one rubric: every
// gate and signal criterion as a required boolean, plus the advisory
// fields remediation feeds on.
func verdictSchema(r gate.Rubric) map[string]interface{} {
	difficulties := make([]string, 0, 3)
	for _, d := range bank.Difficulties() {
		difficulties = append(difficulties, string(d))
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"gates": checkSchema(r.Gates,
				"Blocking criteria. Any false here keeps the item out of quizzes."),
			"signals": checkSchema(r.Signals,
				"Advisory criteria. These never block the item; they drive cleanup."),
			"severity": map[string]interface{}{
				"type":        "string",
				"enum":        []string{string(gate.SeverityCritical), string(gate.SeverityMinor), string(gate.SeveritySuggestion)},
				"description": "How bad the worst failed criterion is. Use suggestion when everything passes.",
			},
			"note": map[string]interface{}{
				"type":        "string",
				"description": "One sentence naming the main problem, empty when all criteria pass.",
			},
			"suggested_difficulty": map[string]interface{}{
				"type":        "string",
				"enum":        difficulties,
				"description": "Only when difficulty_label_ok is false: the label that actually fits.",
			},
			"remove_variations": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Only when variations_consistent is false: the exact variation strings to drop.",
			},
		},
		"required": []string{"gates", "signals", "severity", "note"},
	}
}

func checkSchema(names []string, desc string) map[string]interface{} {
	props := make(map[string]interface{}, len(names))
	for _, name := range names {
		props[name] = map[string]interface{}{
			"type":        "boolean",
			"description": criterionHelp[name],
		}
	}
	return map[string]interface{}{
		"type":        "object",
		"description": desc,
		"properties":  props,
		"required":    names,
	}
}

// parseVerdict turns the tool-call arguments into a conformed verdict.
// Anything missing, extra, or malformed becomes a tool failure; checks
// are never invented for criteria the model skipped.
func parseVerdict(r gate.Rubric, raw string) gate.Verdict {
	var args struct {
		Gates               map[string]bool `json:"gates"`
		Signals             map[string]bool `json:"signals"`
		Severity            string          `json:"severity"`
		Note                string          `json:"note"`
		SuggestedDifficulty string          `json:"suggested_difficulty"`
		RemoveVariations    []string        `json:"remove_variations"`
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return gate.ToolFailureVerdict(r.Auditor, fmt.Sprintf("parse tool arguments: %v", err))
	}

	v := gate.Verdict{
		Auditor:          r.Auditor,
		Gates:            checksFrom(args.Gates),
		Signals:          checksFrom(args.Signals),
		Severity:         gate.Severity(args.Severity),
		Note:             args.Note,
		RemoveVariations: args.RemoveVariations,
	}
	if args.SuggestedDifficulty != "" {
		d := bank.Difficulty(args.SuggestedDifficulty)
		v.SuggestedDifficulty = &d
	}

	conformed, err := r.Conform(v)
	if err != nil {
		return gate.ToolFailureVerdict(r.Auditor, fmt.Sprintf("malformed review: %v", err))
	}
	return conformed
}

// checksFrom flattens a criterion map; Conform restores rubric order.
func checksFrom(m map[string]bool) []gate.Check {
	out := make([]gate.Check, 0, len(m))
	for name, passed := range m {
		out = append(out, gate.Check{Name: name, Passed: passed})
	}
	return out
}

func buildPrompt(r gate.Rubric, it bank.Item) string {
	var sb strings.Builder

	sb.WriteString("Review the following quiz item.\n\n")
	sb.WriteString(fmt.Sprintf("Unit: %s\n", it.Unit))
	sb.WriteString(fmt.Sprintf("Topic: %s\n", it.Topic))
	sb.WriteString(fmt.Sprintf("Type: %s\n", it.Type))
	sb.WriteString(fmt.Sprintf("Difficulty: %s\n\n", it.Difficulty))
	sb.WriteString(fmt.Sprintf("Question: %s\n", it.Question))

	if len(it.Options) > 0 {
		sb.WriteString("Options:\n")
		for _, option := range it.Options {
			marker := " "
			if option == it.CanonicalAnswer {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf("%s %s\n", marker, option))
		}
	}

	sb.WriteString(fmt.Sprintf("Correct answer: %s\n", it.CanonicalAnswer))
	if len(it.Variations) > 0 {
		sb.WriteString(fmt.Sprintf("Accepted variations: %s\n", strings.Join(it.Variations, "; ")))
	}
	if it.Explanation != "" {
		sb.WriteString(fmt.Sprintf("Explanation: %s\n", it.Explanation))
	}

	sb.WriteString("\nCriteria:\n")
	for _, name := range r.Gates {
		sb.WriteString(fmt.Sprintf("- %s (gate): %s\n", name, criterionHelp[name]))
	}
	for _, name := range r.Signals {
		sb.WriteString(fmt.Sprintf("- %s (signal): %s\n", name, criterionHelp[name]))
	}

	sb.WriteString("\nJudge each criterion on its own; one failure must not bleed into the others.")
	return sb.String()
}

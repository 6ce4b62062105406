package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
)

type promptKind int

const (
	promptDelete promptKind = iota + 1
	promptDuplicate
	promptMerge
	promptCreateName
	promptCreateTemplate
)

// promptState is the question shown in the footer. Delete prompts are y/n;
// the others read a line of text.
type promptState struct {
	kind     promptKind
	question string
	input    textinput.Model
	answers  []bool
	name     string
}

func newTextPrompt(kind promptKind, question, placeholder string, suggestions []string) *promptState {
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = placeholder
	in.CharLimit = 255
	if len(suggestions) > 0 {
		in.ShowSuggestions = true
		in.SetSuggestions(suggestions)
	}
	in.Focus()
	return &promptState{kind: kind, question: question, input: in}
}

func (p *promptState) isText() bool {
	return p.kind != promptDelete
}

// PromptConfirmer feeds answers collected by the UI's y/n prompts to the
// session's delete. The UI asks first, then lets the session decide from the
// queued answers.
type PromptConfirmer struct {
	answers []bool
}

// NewPromptConfirmer returns an empty confirmer; unanswered prompts decline.
func NewPromptConfirmer() *PromptConfirmer {
	return &PromptConfirmer{}
}

func (c *PromptConfirmer) push(answers ...bool) {
	c.answers = append(c.answers, answers...)
}

func (c *PromptConfirmer) reset() {
	c.answers = nil
}

// Confirm pops the next queued answer.
func (c *PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(c.answers) == 0 {
		return false, nil
	}
	a := c.answers[0]
	c.answers = c.answers[1:]
	return a, nil
}

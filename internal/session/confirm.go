package session

import (
	"context"
	"fmt"
)

// Confirmer answers yes/no questions before destructive operations.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm accepts every prompt (the CLI's --yes).
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
	return true, nil
})

type declineAll struct{}

func (declineAll) Confirm(context.Context, string) (bool, error) { return false, nil }

// DeletePrompts returns the two questions asked before a task is deleted.
func DeletePrompts(name string) []string {
	return []string{
		fmt.Sprintf("Delete task %s?", name),
		fmt.Sprintf("Really delete %s? This cannot be undone.", name),
	}
}

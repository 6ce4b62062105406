// Package main implements the task management commands.
// Every mutating command goes through a session so edits follow the same
// rules as the interactive editor and land in the audit trail.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"taskgen/internal/session"
	"taskgen/internal/store"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	groupFlag    string
	showRaw      bool
	mergeInto    string
	templateName string
	assumeYes    bool
)

// renderMarkdown is a package-level variable to allow stubbing in tests.
var renderMarkdown = func(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// =============================================================================
// TASK COMMANDS
// =============================================================================

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List task files",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a task's product groups and extra filters",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var setCmd = &cobra.Command{
	Use:   "set <name> <field> <value>",
	Short: "Set a field for every row of a product group and save",
	Long: `Set a field for every row of a product group and save.

Fields: product, presale, price_range, extra_filter. Tasks with more than one
product need --group.`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

var duplicateCmd = &cobra.Command{
	Use:   "duplicate <source> <new-name>",
	Short: "Copy a task under a new name",
	Args:  cobra.ExactArgs(2),
	RunE:  runDuplicate,
}

var mergeCmd = &cobra.Command{
	Use:   "merge <task> <task>... --into <new-name>",
	Short: "Concatenate tasks, in order, into a new task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runMerge,
}

var createCmd = &cobra.Command{
	Use:   "create <name> --template <template>",
	Short: "Create a task from a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplates,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a task (asks twice unless --yes)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runList(cmd *cobra.Command, args []string) error {
	names, err := newStore().List()
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "No tasks found in %s\n", cfg.Tasks.Dir)
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	sess := session.New(newStore())
	if err := sess.Select(args[0]); err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	md, err := taskMarkdown(sess, groupFlag)
	if err != nil {
		return err
	}
	if showRaw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	rendered, err := renderMarkdown(md)
	if err != nil {
		logger.Debug("markdown render failed, printing raw", zap.Error(err))
		rendered = md
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

// taskMarkdown summarises the open task, one section per product group.
func taskMarkdown(sess *session.Session, only string) (string, error) {
	groups := sess.Groups()
	if only != "" {
		if err := sess.SwitchGroup(only); err != nil {
			return "", fmt.Errorf("%w (groups: %s)", err, strings.Join(groups, ", "))
		}
		groups = []string{only}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", sess.Name())
	for _, g := range groups {
		if err := sess.SwitchGroup(g); err != nil {
			return "", err
		}
		title := g
		if title == "" {
			title = "All rows"
		}
		fmt.Fprintf(&sb, "## %s\n\n| Field | Value |\n|---|---|\n", title)
		for _, f := range sess.Fields() {
			if f == store.ColumnProduct {
				continue
			}
			fmt.Fprintf(&sb, "| %s | %s |\n", f, mdCell(sess.Field(f)))
		}
		sb.WriteString("\n")

		rows := sess.FilterRows()
		if len(rows) == 0 {
			sb.WriteString("_No extra filter._\n\n")
			continue
		}
		sb.WriteString("| Section | Price |\n|---|---|\n")
		for _, p := range rows {
			fmt.Fprintf(&sb, "| %s | %s |\n", mdCell(p.Section), mdCell(p.Price))
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func mdCell(s string) string {
	if s == "" {
		return " "
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

func runSet(cmd *cobra.Command, args []string) error {
	name, field, value := args[0], args[1], args[2]

	sess := session.New(newStore())
	if err := sess.Select(name); err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	groups := sess.Groups()
	switch {
	case groupFlag != "":
		if err := sess.SwitchGroup(groupFlag); err != nil {
			return fmt.Errorf("%w (groups: %s)", err, strings.Join(groups, ", "))
		}
	case len(groups) > 1:
		return fmt.Errorf("%s has several products (%s); pass --group", name, strings.Join(groups, ", "))
	}

	if err := sess.EditField(field, value); err != nil {
		return err
	}
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	logger.Info("field updated", zap.String("task", name), zap.String("group", sess.ActiveGroup()), zap.String("field", field))
	fmt.Fprintln(cmd.OutOrStdout(), sess.Message())
	return nil
}

func runDuplicate(cmd *cobra.Command, args []string) error {
	sess := session.New(newStore())
	if err := sess.Select(args[0]); err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	name, err := sess.Duplicate(args[1])
	if err != nil {
		return fmt.Errorf("failed to duplicate %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Duplicated %s as %s\n", args[0], name)
	return nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	if mergeInto == "" {
		return errors.New("--into is required")
	}
	sess := session.New(newStore())
	name, err := sess.Merge(args, mergeInto)
	if err != nil {
		return fmt.Errorf("failed to merge: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s\n", strings.Join(args, ", "), name)
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	if templateName == "" {
		return errors.New("--template is required")
	}
	sess := session.New(newStore())
	if _, err := sess.Create(args[0], templateName); err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), sess.Message())
	return nil
}

func runTemplates(cmd *cobra.Command, args []string) error {
	names, err := newStore().ListTemplates()
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "No templates found in %s\n", cfg.TemplatesPath())
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	var conf session.Confirmer = session.AlwaysConfirm
	if !assumeYes {
		conf = &lineConfirmer{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
	}

	sess := session.New(newStore(), session.WithConfirmer(conf))
	if err := sess.Select(args[0]); err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	err := sess.Delete(commandContext(cmd))
	if errors.Is(err, session.ErrDeclined) {
		fmt.Fprintln(cmd.OutOrStdout(), sess.Message())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}
	logger.Info("task deleted", zap.String("task", args[0]))
	fmt.Fprintln(cmd.OutOrStdout(), sess.Message())
	return nil
}

// lineConfirmer asks on out and reads one answer line from in.
// Only "y" and "yes" confirm; EOF declines.
type lineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (c *lineConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

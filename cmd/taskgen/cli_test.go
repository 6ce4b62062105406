package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskgen/internal/config"
	"taskgen/internal/session"
	"taskgen/internal/store"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const showCSV = `event_id,product,presale,price_range,extra_filter
1,GA,2025-01-01,50-100,"FLR1:350, FLR2,FLR3:326"
2,VIP,2025-01-02,200-400,
3,GA,2025-01-01,50-100,"FLR1:350, FLR2,FLR3:326"
`

const plainCSV = `presale,price_range,extra_filter
2025-03-03,10-20,A:1
`

// setupWorkspace points the global config at a fresh task directory.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	logger = zap.NewNop()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "show.csv"), []byte(showCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.csv"), []byte(plainCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "base.csv"), []byte(plainCSV), 0o644))

	cfg = config.DefaultConfig()
	cfg.Tasks.Dir = dir

	t.Cleanup(func() {
		cfg = nil
		groupFlag, showRaw, mergeInto, templateName, assumeYes = "", false, "", "", false
		watchFor = 0
		configPath, dirFlag, templatesFlag = "", "", ""
	})
	return dir
}

func execute(t *testing.T, fn func(*cobra.Command, []string) error, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := fn(cmd, args)
	return out.String(), err
}

func TestListCmd(t *testing.T) {
	setupWorkspace(t)

	out, err := execute(t, runList, "")
	require.NoError(t, err)
	assert.Equal(t, "plain.csv\nshow.csv\n", out)
}

func TestListCmd_Empty(t *testing.T) {
	setupWorkspace(t)
	cfg.Tasks.Dir = t.TempDir()

	out, err := execute(t, runList, "")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks found")
}

func TestListCmd_MissingDir(t *testing.T) {
	setupWorkspace(t)
	cfg.Tasks.Dir = filepath.Join(t.TempDir(), "missing")

	_, err := execute(t, runList, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrIO)
}

func TestShowCmd(t *testing.T) {
	setupWorkspace(t)
	orig := renderMarkdown
	renderMarkdown = func(md string) (string, error) { return "RENDERED\n" + md, nil }
	t.Cleanup(func() { renderMarkdown = orig })

	out, err := execute(t, runShow, "", "show.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "RENDERED\n"))
	assert.Contains(t, out, "# show.csv")
	assert.Contains(t, out, "## GA")
	assert.Contains(t, out, "| FLR2,FLR3 | 326 |")
	assert.Contains(t, out, "## VIP")
	assert.Contains(t, out, "_No extra filter._")

	groupFlag = "VIP"
	out, err = execute(t, runShow, "", "show.csv")
	require.NoError(t, err)
	assert.NotContains(t, out, "## GA")
	assert.Contains(t, out, "| presale | 2025-01-02 |")

	groupFlag = "NOPE"
	_, err = execute(t, runShow, "", "show.csv")
	assert.ErrorIs(t, err, session.ErrUnknownGroup)
}

func TestShowCmd_RawAndRenderFailure(t *testing.T) {
	setupWorkspace(t)
	orig := renderMarkdown
	renderMarkdown = func(string) (string, error) { return "", errors.New("no terminal") }
	t.Cleanup(func() { renderMarkdown = orig })

	out, err := execute(t, runShow, "", "plain.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "## All rows", "render failure falls back to markdown")

	showRaw = true
	out, err = execute(t, runShow, "", "plain.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "| A | 1 |")
}

func TestShowCmd_NotFound(t *testing.T) {
	setupWorkspace(t)
	_, err := execute(t, runShow, "", "nope.csv")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetCmd(t *testing.T) {
	dir := setupWorkspace(t)

	_, err := execute(t, runSet, "", "show.csv", "price_range", "60-120")
	require.Error(t, err, "multi-product task needs --group")
	assert.Contains(t, err.Error(), "--group")

	groupFlag = "GA"
	out, err := execute(t, runSet, "", "show.csv", "price_range", "60-120")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved show.csv")

	c, err := store.New(dir).Load("show.csv")
	require.NoError(t, err)
	assert.Equal(t, "60-120", c.Rows[0][store.ColumnPriceRange])
	assert.Equal(t, "200-400", c.Rows[1][store.ColumnPriceRange])
	assert.Equal(t, "60-120", c.Rows[2][store.ColumnPriceRange])
}

func TestSetCmd_SingleGroup(t *testing.T) {
	dir := setupWorkspace(t)

	_, err := execute(t, runSet, "", "plain.csv", "extra_filter", "A:2, B,C:3")
	require.NoError(t, err)

	c, err := store.New(dir).Load("plain.csv")
	require.NoError(t, err)
	assert.Equal(t, "A:2, B,C:3", c.Rows[0][store.ColumnExtraFilter])
}

func TestSetCmd_SingleProductRename(t *testing.T) {
	dir := setupWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.csv"), []byte("product,presale\nP,d1\n,d1\n"), 0o644))

	out, err := execute(t, runSet, "", "one.csv", "product", "Q")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved one.csv")

	c, err := store.New(dir).Load("one.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q"}, c.Products())
	for _, r := range c.Rows {
		assert.Equal(t, "Q", r[store.ColumnProduct])
		assert.Equal(t, "d1", r[store.ColumnPresale])
	}
}

func TestSetCmd_UnknownField(t *testing.T) {
	setupWorkspace(t)
	_, err := execute(t, runSet, "", "plain.csv", "colour", "red")
	assert.ErrorIs(t, err, session.ErrUnknownField)
}

func TestDuplicateCmd(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := execute(t, runDuplicate, "", "show.csv", "copy")
	require.NoError(t, err)
	assert.Equal(t, "Duplicated show.csv as copy.csv\n", out)
	assert.FileExists(t, filepath.Join(dir, "copy.csv"))

	_, err = execute(t, runDuplicate, "", "show.csv", "plain.csv")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestMergeCmd(t *testing.T) {
	dir := setupWorkspace(t)

	mergeInto = "both"
	out, err := execute(t, runMerge, "", "plain.csv", "show.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "into both.csv")

	c, err := store.New(dir).Load("both.csv")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, "2025-03-03", c.Rows[0][store.ColumnPresale])
	assert.Equal(t, "", c.Rows[0]["event_id"], "union columns are filled with empty strings")
}

func TestMergeCmd_RequiresInto(t *testing.T) {
	setupWorkspace(t)
	_, err := execute(t, runMerge, "", "plain.csv", "show.csv")
	require.Error(t, err)
}

func TestCreateAndTemplatesCmd(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := execute(t, runTemplates, "")
	require.NoError(t, err)
	assert.Equal(t, "base.csv\n", out)

	templateName = "base.csv"
	out, err = execute(t, runCreate, "", "fresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Created fresh.csv from base.csv")

	got, err := os.ReadFile(filepath.Join(dir, "fresh.csv"))
	require.NoError(t, err)
	assert.Equal(t, plainCSV, string(got), "templates are copied byte for byte")

	templateName = "missing.csv"
	_, err = execute(t, runCreate, "", "other")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTemplatesCmd_None(t *testing.T) {
	setupWorkspace(t)
	cfg.Tasks.TemplatesDir = "nowhere"

	out, err := execute(t, runTemplates, "")
	require.NoError(t, err)
	assert.Contains(t, out, "No templates found")
}

func TestDeleteCmd(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		yes     bool
		deleted bool
	}{
		{"both confirmed", "y\nyes\n", false, true},
		{"second declined", "y\nn\n", false, false},
		{"first declined", "n\n", false, false},
		{"no input", "", false, false},
		{"assume yes", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupWorkspace(t)
			assumeYes = tt.yes

			out, err := execute(t, runDelete, tt.stdin, "show.csv")
			require.NoError(t, err)

			_, statErr := os.Stat(filepath.Join(dir, "show.csv"))
			if tt.deleted {
				assert.True(t, os.IsNotExist(statErr), "show.csv should be gone")
				assert.Contains(t, out, "Deleted show.csv")
			} else {
				assert.NoError(t, statErr, "show.csv should remain")
				assert.Contains(t, out, "Delete cancelled")
			}
			if !tt.yes {
				assert.Contains(t, out, "Delete task show.csv? [y/N]")
			}
		})
	}
}

func TestLineConfirmer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	c := &lineConfirmer{out: &out}
	_, err := c.Confirm(ctx, "Delete?")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String(), "no prompt after cancellation")
}

func TestFilterCmds(t *testing.T) {
	out, err := execute(t, runFilterDecode, "", "FLR1:350, FLR2,FLR3:326")
	require.NoError(t, err)
	assert.Equal(t, "FLR1\t350\nFLR2,FLR3\t326\n", out)

	out, err = execute(t, runFilterEncode, "", "FLR1:350", "FLR2,FLR3:326", "DANGLING")
	require.NoError(t, err)
	assert.Equal(t, "FLR1:350, FLR2,FLR3:326\n", out)
}

func TestWatchCmd(t *testing.T) {
	dir := setupWorkspace(t)
	watchFor = 1500 * time.Millisecond

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	done := make(chan error, 1)
	go func() { done <- runWatch(cmd, nil) }()

	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.csv"), []byte(plainCSV), 0o644))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after --for elapsed")
	}
	assert.Contains(t, out.String(), "Watching")
	assert.Contains(t, out.String(), "created")
	assert.Contains(t, out.String(), "new.csv")
}

func TestWatchCmd_MissingDir(t *testing.T) {
	setupWorkspace(t)
	cfg.Tasks.Dir = filepath.Join(t.TempDir(), "missing")
	_, err := execute(t, runWatch, "")
	require.Error(t, err)
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	setupWorkspace(t)
	t.Setenv("TASKGEN_TASKS_DIR", "")
	t.Setenv("TASKGEN_TEMPLATES_DIR", "")
	t.Setenv("TASKGEN_DEBUG", "")

	configPath = filepath.Join(t.TempDir(), "absent.yaml")
	dirFlag = "tasks"
	templatesFlag = "tpl"

	c, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "tasks", c.Tasks.Dir)
	assert.True(t, filepath.IsAbs(c.Tasks.TemplatesDir))
	assert.Equal(t, c.Tasks.TemplatesDir, c.TemplatesPath(), "absolute templates path is not rebased")
}

func TestLoadConfig_BadFile(t *testing.T) {
	setupWorkspace(t)
	configPath = filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("tasks: [unclosed"), 0o644))

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

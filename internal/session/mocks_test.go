package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"taskgen/internal/store"

	"github.com/stretchr/testify/require"
)

// --- FailingStore ---

// FailingStore wraps a real store and fails selected operations.
type FailingStore struct {
	*store.Store
	SaveError   error
	DeleteError error
	saves       int
}

func (f *FailingStore) Save(name string, c *store.Collection) error {
	f.saves++
	if f.SaveError != nil {
		return f.SaveError
	}
	return f.Store.Save(name, c)
}

func (f *FailingStore) Delete(name string) error {
	if f.DeleteError != nil {
		return f.DeleteError
	}
	return f.Store.Delete(name)
}

// --- MockConfirmer ---

// MockConfirmer answers prompts from a script and records them.
type MockConfirmer struct {
	Answers []bool
	Err     error
	prompts []string
}

func (m *MockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	m.prompts = append(m.prompts, prompt)
	if m.Err != nil {
		return false, m.Err
	}
	if len(m.prompts) > len(m.Answers) {
		return false, nil
	}
	return m.Answers[len(m.prompts)-1], nil
}

// --- fixtures ---

const showCSV = `event_id,product,presale,price_range,extra_filter
1,GA,2025-01-01,50-100,"FLR1:350, FLR2,FLR3:326"
2,VIP,2025-01-02,200-400,
3,GA,2025-01-01,50-100,"FLR1:350, FLR2,FLR3:326"
`

const plainCSV = `presale,price_range,extra_filter
2025-03-03,10-20,A:1
2025-03-04,10-20,
`

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTask(t, dir, "show.csv", showCSV)
	writeTask(t, dir, "plain.csv", plainCSV)
	return dir
}

func writeTask(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func readTask(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

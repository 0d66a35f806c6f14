package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/vsinha/seasonplan/pkg/infrastructure/testing"
)

// writeScenario writes a season file plus the stores, history and actuals it points at
func writeScenario(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	stores := testhelpers.BuildRegionalStores()

	var sb strings.Builder
	sb.WriteString("store_id,name,size_sqft,income_index,tier,cluster_id\n")
	for _, s := range stores {
		fmt.Fprintf(&sb, "%s,%s,%d,%s,%d,%s\n", s.ID, s.Name, s.SizeSqFt, s.IncomeIndex, s.Tier, s.ClusterID)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stores.csv"), []byte(sb.String()), 0o644))

	sb.Reset()
	sb.WriteString("date,store_id,category,units\n")
	for _, h := range testhelpers.BuildHistory(stores, testhelpers.Category, 12) {
		fmt.Fprintf(&sb, "%s,%s,%s,%d\n", h.Date.Format("2006-01-02"), h.StoreID, h.Category, h.Units)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.csv"), []byte(sb.String()), 0o644))

	sb.Reset()
	sb.WriteString("week,store_id,units\n")
	for w := 1; w <= 12; w++ {
		for _, s := range stores {
			fmt.Fprintf(&sb, "%d,%s,60\n", w, s.ID)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "actuals.csv"), []byte(sb.String()), 0o644))

	season := `category: outerwear
weeks: 12
category_total: 8000
data:
  stores: stores.csv
  history: history.csv
  actuals: actuals.csv
` + extra
	path := filepath.Join(dir, "season.yaml")
	require.NoError(t, os.WriteFile(path, []byte(season), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPlanCommand_Text(t *testing.T) {
	out, err := run(t, "plan", "--config", writeScenario(t, ""))
	require.NoError(t, err)

	assert.Contains(t, out, "Phase: InSeason")
	assert.Contains(t, out, "Forecast v1 (initial): 8000 units over 12 weeks")
	assert.Contains(t, out, "Manufacturing order: 8800")
	assert.Contains(t, out, "S009")
}

func TestPlanCommand_PendingOrderApproval(t *testing.T) {
	out, err := run(t, "plan", "-c", writeScenario(t, "require_order_approval: true\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "Pending approval: manufacturing_order")
	assert.Contains(t, out, "Manufacturing order: 8800")
}

func TestSimulateCommand_JSON(t *testing.T) {
	out, err := run(t, "simulate", "-c", writeScenario(t, "require_markdown_approval: true\n"), "-f", "json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	status := report["status"].(map[string]any)
	assert.Equal(t, "SeasonEnd", status["phase"])
	assert.Len(t, report["weeks"], 12)

	summary := report["summary"].(map[string]any)
	assert.Equal(t, float64(12*9*60), summary["units_sold"])
	assert.Equal(t, float64(8800), summary["manufacturing_order"])

	// the checkpoint week carries the released markdown and its replenishment
	checkpoint := report["weeks"].([]any)[5].(map[string]any)
	assert.Equal(t, false, checkpoint["deferred_cycle"])
	assert.Contains(t, checkpoint, "markdown")
	assert.Contains(t, checkpoint, "cycle")
}

func TestSimulateCommand_StopsEarly(t *testing.T) {
	out, err := run(t, "simulate", "-c", writeScenario(t, ""), "--weeks", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Phase: InSeason")
	assert.Contains(t, out, "Week: 3 of 12")
	assert.NotContains(t, out, "Season summary")
}

func TestSimulateCommand_BlockedSeason(t *testing.T) {
	path := writeScenario(t, "")
	// drop the override so the category total comes from a history that is too short
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	season := strings.Replace(string(data), "category_total: 8000\n", "demand:\n  min_history_weeks: 52\n", 1)
	require.NoError(t, os.WriteFile(path, []byte(season), 0o644))

	out, err := run(t, "simulate", "-c", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient_data")
	assert.Contains(t, out, "Phase: Blocked")
}

func TestCommands_InputErrors(t *testing.T) {
	_, err := run(t, "plan")
	assert.ErrorContains(t, err, `required flag(s) "config" not set`)

	_, err = run(t, "plan", "-c", writeScenario(t, ""), "-f", "xml")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = run(t, "simulate", "-c", writeScenario(t, ""), "--markdown-depth", "deep")
	assert.ErrorContains(t, err, "invalid --markdown-depth")

	_, err = run(t, "plan", "-c", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read season file")
}

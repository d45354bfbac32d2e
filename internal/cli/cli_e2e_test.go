package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/taskboard/internal/cli"
)

func person(id, name string) map[string]any {
	return map[string]any{"id": id, "name": name}
}

// fixture: t1 and t2 are open and assigned to ann, t3 is done, t4 is open
// without an assignee and waits for bob's review.
func newBoard(t *testing.T) *cli.CLI {
	t.Helper()

	c := cli.NewCLI(t)
	c.WriteRecords([]map[string]any{
		{"id": "t1", "title": "Fix login", "status": "open", "priority": "later", "assignedTo": person("ann", "Ann"), "createdBy": person("bob", "Bob")},
		{"id": "t2", "title": "Write docs", "status": "open", "priority": "urgent", "assignedTo": person("ann", "Ann")},
		{"id": "t3", "title": "Ship release", "status": "done", "priority": "today", "assignedTo": person("ann", "Ann"), "verifier": person("bob", "Bob")},
		{"id": "t4", "title": "Review budget", "status": "open", "createdBy": person("ann", "Ann"), "verifier": person("bob", "Bob")},
	})

	return c
}

func rowIndex(t *testing.T, out, id string) int {
	t.Helper()

	for i, line := range strings.Split(out, "\n") {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), ">"))
		if len(fields) > 0 && fields[0] == id {
			return i
		}
	}

	return -1
}

func Test_Bare_Command_Prints_Usage_When_Invoked(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	exitCode := cli.Run(nil, &stdout, &stderr, []string{"tb"}, nil, nil)

	assert.Equal(t, 0, exitCode)
	assert.Empty(t, stderr.String())
	cli.AssertContains(t, stdout.String(), "--cwd")
	cli.AssertContains(t, stdout.String(), "locate <id>")
	cli.AssertContains(t, stdout.String(), "view set [flags]")

	// Contract: commands are listed under their section headings.
	cli.AssertContains(t, stdout.String(), "\nViews:\n")
	cli.AssertContains(t, stdout.String(), "\nDashboards:\n")
	assert.Less(t, strings.Index(stdout.String(), "Views:"), strings.Index(stdout.String(), "Rows:"))
}

func Test_Unknown_Command_Fails_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("frobnicate")

	cli.AssertContains(t, stderr, "unknown command")
}

func Test_Command_Help_Prints_Flags_When_Help_Flag_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	out := c.MustRun("view", "set", "--help")

	cli.AssertContains(t, out, "Usage: tb view set")
	cli.AssertContains(t, out, "--filter")
	cli.AssertContains(t, out, "any_of")
}

func Test_Query_Shows_Assigned_Open_Records_When_Views_Are_Fresh(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	out := c.MustRun("query")

	assert.GreaterOrEqual(t, rowIndex(t, out, "t1"), 0)
	assert.GreaterOrEqual(t, rowIndex(t, out, "t2"), 0)
	assert.Equal(t, -1, rowIndex(t, out, "t3"), "done records are not in assigned")
	assert.Equal(t, -1, rowIndex(t, out, "t4"), "unassigned records are not in assigned")
	cli.AssertContains(t, out, "Ann")
	cli.AssertContains(t, out, "2 rows (Tasks, assigned)")
}

func Test_Query_Limits_Rows_When_Limit_Given(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	out := c.MustRun("query", "--limit", "1")

	cli.AssertContains(t, out, "1 rows")
	c.MustFail("query", "--limit", "-1")
}

func Test_Query_Fails_When_Records_File_Is_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("query")

	cli.AssertContains(t, stderr, "fetch failed")
}

func Test_View_Set_Filter_Persists_When_Run_Again(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	out := c.MustRun("view", "set", "--filter", "title:contains:docs")
	cli.AssertContains(t, out, "filter.0=title:contains:docs")

	// Contract: a later process sees the filter through the saved store.
	out = c.MustRun("query")
	assert.Equal(t, -1, rowIndex(t, out, "t1"))
	assert.GreaterOrEqual(t, rowIndex(t, out, "t2"), 0)

	_, err := os.Stat(filepath.Join(c.StoreDir(), "tasks.json"))
	require.NoError(t, err)

	c.MustRun("view", "set", "--clear-filters")
	out = c.MustRun("query")
	assert.GreaterOrEqual(t, rowIndex(t, out, "t1"), 0)
}

func Test_View_Set_Or_Logic_Widens_When_Second_Filter_Joined_With_Or(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("view", "set", "--filter", "title:contains:docs", "--filter", "title:contains:login:or")

	out := c.MustRun("query")
	assert.GreaterOrEqual(t, rowIndex(t, out, "t1"), 0)
	assert.GreaterOrEqual(t, rowIndex(t, out, "t2"), 0)
}

func Test_View_Set_Rejects_Filter_When_Invalid(t *testing.T) {
	t.Parallel()

	c := newBoard(t)

	tests := []struct {
		name   string
		filter string
		want   string
	}{
		{name: "unknown column", filter: "nope:is:x", want: "unknown column"},
		{name: "unknown operator", filter: "title:resembles:x", want: "unknown operator"},
		{name: "operator not allowed on date", filter: "dueDate:contains:2024", want: "not allowed"},
		{name: "missing operator", filter: "title", want: "invalid filter clause"},
	}

	for _, tt := range tests {
		stderr := c.MustFail("view", "set", "--filter", tt.filter)
		cli.AssertContains(t, stderr, tt.want)
	}

	out := c.MustRun("query")
	assert.GreaterOrEqual(t, rowIndex(t, out, "t1"), 0, "rejected filters are not saved")
}

func Test_View_Set_Sort_Priority_Puts_Most_Urgent_First_When_Descending(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("view", "set", "--sort", "priority")

	out := c.MustRun("query")
	assert.Less(t, rowIndex(t, out, "t2"), rowIndex(t, out, "t1"))

	c.MustRun("view", "set", "--order", "asc")
	out = c.MustRun("query")
	assert.Less(t, rowIndex(t, out, "t1"), rowIndex(t, out, "t2"))

	c.MustFail("view", "set", "--order", "sideways")
}

func Test_Rows_Move_Reorders_Rows_When_View_Is_Unsorted(t *testing.T) {
	t.Parallel()

	c := newBoard(t)

	out := c.MustRun("query")
	require.Less(t, rowIndex(t, out, "t1"), rowIndex(t, out, "t2"))

	c.MustRun("rows", "move", "t2")

	out = c.MustRun("query")
	assert.Less(t, rowIndex(t, out, "t2"), rowIndex(t, out, "t1"))

	c.MustRun("rows", "move")

	out = c.MustRun("query")
	assert.Less(t, rowIndex(t, out, "t1"), rowIndex(t, out, "t2"))
}

func Test_Rows_Move_Warns_When_View_Is_Sorted(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("view", "set", "--sort", "title")

	stdout, stderr, code := c.Run("rows", "move", "t2")

	assert.Equal(t, 1, code)
	cli.AssertContains(t, stdout, "Row order: t2")
	cli.AssertContains(t, stderr, "view is sorted by title")
}

func Test_Rows_Move_Warns_When_Row_Is_Not_In_View(t *testing.T) {
	t.Parallel()

	c := newBoard(t)

	// t3 is done, so the default assigned partition does not show it.
	stdout, stderr, code := c.Run("rows", "move", "t3", "t1")

	assert.Equal(t, 1, code)
	cli.AssertContains(t, stdout, "Row order: t3 t1")
	cli.AssertContains(t, stderr, "row t3 is not in view")
	cli.AssertNotContains(t, stderr, "row t1")

	out := c.MustRun("query")
	assert.Equal(t, -1, rowIndex(t, out, "t3"))
	assert.Less(t, rowIndex(t, out, "t1"), rowIndex(t, out, "t2"))
}

func Test_View_Lifecycle_When_Adding_Renaming_Moving_And_Closing(t *testing.T) {
	t.Parallel()

	c := newBoard(t)

	out := c.MustRun("view", "add")
	cli.AssertContains(t, out, "View 1")

	out = c.MustRun("view", "add", "--title", "Review queue")
	cli.AssertContains(t, out, "Review queue")

	ids := c.ViewIDs()
	require.Len(t, ids, 3)

	views := c.MustRun("views")
	cli.AssertContains(t, views, "* "+ids[2])

	c.MustRun("view", "rename", ids[1], "Second", "tab")
	cli.AssertContains(t, c.MustRun("views"), "Second tab")

	c.MustRun("view", "move", ids[2], ids[0], ids[1])
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, c.ViewIDs())

	c.MustFail("view", "move", ids[0], ids[1])

	c.MustRun("view", "use", ids[0])
	cli.AssertContains(t, c.MustRun("views"), "* "+ids[0])

	// Contract: closing the active view activates its left neighbour.
	c.MustRun("view", "close", ids[0])
	assert.Equal(t, []string{ids[2], ids[1]}, c.ViewIDs())
	cli.AssertContains(t, c.MustRun("views"), "* "+ids[2])

	c.MustRun("view", "close", ids[2])
	stderr := c.MustFail("view", "close", ids[1])
	cli.AssertContains(t, stderr, "cannot close the last view")

	stderr = c.MustFail("view", "use", "nope")
	cli.AssertContains(t, stderr, "view not found")
}

func Test_View_Set_Partition_Shows_Done_Records_When_Completed(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("view", "set", "--partition", "completed")

	out := c.MustRun("query")
	assert.GreaterOrEqual(t, rowIndex(t, out, "t3"), 0)
	assert.Equal(t, -1, rowIndex(t, out, "t1"))

	stderr := c.MustFail("view", "set", "--partition", "everything")
	cli.AssertContains(t, stderr, "unknown partition")
}

func Test_View_Set_Columns_Limits_Output_When_Columns_Given(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	out := c.MustRun("view", "set", "--columns", "priority,title", "--width", "title=400")

	// Contract: visible columns keep their existing relative order.
	cli.AssertContains(t, out, "columns=title,priority")

	out = c.MustRun("query")
	cli.AssertContains(t, out, "PRIORITY")
	cli.AssertNotContains(t, out, "ASSIGNEDTO")

	cols := c.MustRun("columns")
	cli.AssertContains(t, cols, "* title")
	cli.AssertContains(t, cols, " 400")

	c.MustFail("view", "set", "--width", "title")
}

func Test_Locate_Activates_Matching_Partition_When_Record_Exists(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("view", "add", "--title", "Second")

	// t3 is done, so the first view shows it only in the completed partition.
	out := c.MustRun("locate", "t3")

	cli.AssertContains(t, out, "Found t3 in Tasks (completed)")
	assert.Regexp(t, `(?m)^>\s+t3\s`, out)

	views := c.MustRun("views")
	cli.AssertContains(t, views, "Tasks")
	cli.AssertContains(t, views, "partition=completed")
	assert.Equal(t, c.ViewIDs()[0], activeID(t, views))
}

func Test_Locate_Skips_Views_Whose_Filters_Hide_Record(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("view", "set", "--filter", "title:contains:docs")
	c.MustRun("view", "add", "--title", "Everything")

	out := c.MustRun("locate", "t1")

	cli.AssertContains(t, out, "Found t1 in Everything (assigned)")
}

func Test_Locate_Falls_Back_When_Record_Is_Nowhere(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("view", "add", "--title", "Second")

	stdout, stderr, code := c.Run("locate", "t99")

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	cli.AssertContains(t, stderr, "record t99 not found in 10 view/partition pairs")
	cli.AssertContains(t, stderr, "record not found in any view")

	// Contract: the fallback is the first view's default partition.
	views := c.MustRun("views")
	assert.Equal(t, c.ViewIDs()[0], activeID(t, views))

	c.MustFail("locate")
}

func activeID(t *testing.T, views string) string {
	t.Helper()

	for _, line := range strings.Split(views, "\n") {
		if strings.HasPrefix(line, "*") {
			return strings.Fields(line[1:])[0]
		}
	}

	t.Fatalf("no active view in:\n%s", views)

	return ""
}

func Test_SQLite_Backend_Persists_Views_When_Selected(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("--backend", "sqlite", "view", "add", "--title", "Stored")

	_, err := os.Stat(filepath.Join(c.StoreDir(), "views.sqlite"))
	require.NoError(t, err)

	out := c.MustRun("--backend", "sqlite", "views")
	cli.AssertContains(t, out, "Stored")

	// Contract: backends do not share state.
	cli.AssertNotContains(t, c.MustRun("views"), "Stored")
}

func Test_Dashboards_Are_Independent_When_Keys_Differ(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("--dashboard", "alpha", "view", "add", "--title", "Alpha only")

	cli.AssertContains(t, c.MustRun("--dashboard", "alpha", "views"), "Alpha only")
	cli.AssertNotContains(t, c.MustRun("--dashboard", "beta", "views"), "Alpha only")
}

func Test_Subject_Narrows_Partitions_When_Given(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.MustRun("view", "set", "--partition", "review")

	out := c.MustRun("--subject", "bob", "query")
	assert.GreaterOrEqual(t, rowIndex(t, out, "t4"), 0)

	out = c.MustRun("--subject", "ann", "query")
	assert.Equal(t, -1, rowIndex(t, out, "t4"))

	// Contract: a view-level subject overrides the dashboard subject.
	c.MustRun("view", "set", "--subject", "bob")
	out = c.MustRun("--subject", "ann", "query")
	assert.GreaterOrEqual(t, rowIndex(t, out, "t4"), 0)
}

func Test_Custom_Columns_And_Priorities_When_Configured(t *testing.T) {
	t.Parallel()

	c := newBoard(t)
	c.WriteConfig(`{
		// project config
		"custom_columns": [{"id": "estimate", "kind": "number", "label": "Estimate"}],
		"custom_priorities": ["someday"],
	}`)

	cols := c.MustRun("columns")
	cli.AssertContains(t, cols, "estimate")
	cli.AssertContains(t, cols, "custom")

	prios := c.MustRun("priorities")
	cli.AssertContains(t, prios, "1  urgent")
	cli.AssertContains(t, prios, "100  someday custom")

	out := c.MustRun("view", "set", "--filter", "estimate:is:3")
	cli.AssertContains(t, out, "filter.0=estimate:is:3")
}

func Test_Print_Config_Shows_Sources_When_Layered(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	out := c.MustRun("print-config")
	cli.AssertContains(t, out, "backend=file")
	cli.AssertContains(t, out, "dashboard=tasks")
	cli.AssertContains(t, out, "(defaults only)")

	c.WriteConfig(`{"dashboard": "mine"}`)
	c.Env["TB_BACKEND"] = "sqlite"

	out = c.MustRun("print-config")
	cli.AssertContains(t, out, "dashboard=mine")
	cli.AssertContains(t, out, "backend=sqlite")
	cli.AssertContains(t, out, "project_config=")
	cli.AssertContains(t, out, "env=TB_BACKEND")

	stderr := c.MustFail("--backend", "tape", "print-config")
	cli.AssertContains(t, stderr, "backend must be file or sqlite")
}

func Test_Shell_Runs_Commands_When_Reading_Lines(t *testing.T) {
	t.Parallel()

	c := newBoard(t)

	input := strings.Join([]string{
		`view add --title "Shell view"`,
		`# comment`,
		`views`,
		`frobnicate`,
		`shell`,
		`view set --filter 'title:contains:Write docs'`,
		`query`,
		`exit`,
		`views`,
	}, "\n")

	stdout, stderr, code := c.RunWithInput(input, "shell")

	assert.Equal(t, 0, code)
	cli.AssertContains(t, stdout, "Shell view")
	cli.AssertContains(t, stdout, "1 rows (Shell view, assigned)")
	cli.AssertContains(t, stderr, "unknown command")
	cli.AssertContains(t, stderr, "already in a shell")

	// Contract: the shell saved through the same store a later run reads.
	cli.AssertContains(t, c.MustRun("views"), "Shell view")
}

func Test_Priority_Add_Refreshes_Group_Order_When_View_Grouped_By_Priority(t *testing.T) {
	t.Parallel()

	c := newBoard(t)

	input := strings.Join([]string{
		`view set --group priority`,
		`priority add blocked`,
		`priority add urgent`,
		`priorities`,
		`view set`,
	}, "\n")

	stdout, stderr, code := c.RunWithInput(input, "shell")

	assert.Equal(t, 0, code)
	cli.AssertContains(t, stdout, "group=priority (urgent,today,thisWeek,thisMonth,later)\n")
	cli.AssertContains(t, stdout, "Added priority blocked (rank 100)")
	cli.AssertContains(t, stdout, "100  blocked custom")
	cli.AssertContains(t, stderr, "already ranked")

	// Contract: the cached group order of the grouped view picks up the new rank.
	cli.AssertContains(t, stdout, "group=priority (urgent,today,thisWeek,thisMonth,later,blocked)")
	cli.AssertContains(t, c.MustRun("view", "set"), "later,blocked)")
}

func Test_Dashboards_Lists_And_Deletes_When_Keys_Differ(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			c := newBoard(t)
			c.MustRun("--backend", backend, "--dashboard", "alpha", "views")
			c.MustRun("--backend", backend, "--dashboard", "beta", "views")

			out := c.MustRun("--backend", backend, "--dashboard", "beta", "dashboards")
			assert.Regexp(t, `(?m)^\s*alpha$`, out)
			assert.Regexp(t, `(?m)^\*\s+beta$`, out)

			stderr := c.MustFail("--backend", backend, "--dashboard", "beta", "dashboard", "delete", "beta")
			cli.AssertContains(t, stderr, "cannot delete the open dashboard")

			c.MustRun("--backend", backend, "--dashboard", "beta", "dashboard", "delete", "alpha")

			stderr = c.MustFail("--backend", backend, "--dashboard", "beta", "dashboard", "delete", "alpha")
			cli.AssertContains(t, stderr, "dashboard not found")

			out = c.MustRun("--backend", backend, "--dashboard", "beta", "dashboards")
			cli.AssertNotContains(t, out, "alpha")
		})
	}
}

func Test_Environ_Keeps_Only_Config_Variables_When_Given_Process_Env(t *testing.T) {
	t.Parallel()

	got := cli.Environ([]string{
		"TB_BACKEND=sqlite",
		"TB_SUBJECT=a=b",
		"PATH=/usr/bin",
		"HOME=/home/ann",
		"XDG_CONFIG_HOME=/home/ann/.config",
		"malformed",
	})

	assert.Equal(t, map[string]string{
		"TB_BACKEND":      "sqlite",
		"TB_SUBJECT":      "a=b",
		"HOME":            "/home/ann",
		"XDG_CONFIG_HOME": "/home/ann/.config",
	}, got)
}

package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/taskboard/internal/query"
	"github.com/calvinalkan/taskboard/internal/source"
	"github.com/calvinalkan/taskboard/internal/view"
)

func Test_Registry_Lists_Builtin_Then_Custom_Columns_When_Customs_Configured(t *testing.T) {
	t.Parallel()

	r, err := source.NewRegistry([]view.KnownColumn{{ID: "budget", Kind: query.KindNumber}}, nil)
	require.NoError(t, err)

	cols := r.Columns()
	require.Len(t, cols, len(view.BuiltinColumns)+1)

	last := cols[len(cols)-1]
	assert.Equal(t, view.KnownColumn{ID: "budget", Label: "budget", DefaultWidth: 150, Kind: query.KindNumber, Custom: true}, last)
	assert.True(t, r.Known("budget"))
	assert.True(t, r.Known("title"))
	assert.False(t, r.Known("nope"))

	kind, ok := r.Kind("dueDate")
	require.True(t, ok)
	assert.Equal(t, query.KindDate, kind)
}

func Test_Registry_Rejects_Column_When_Id_Is_Taken_Or_Kind_Is_Unknown(t *testing.T) {
	t.Parallel()

	_, err := source.NewRegistry([]view.KnownColumn{{ID: "title"}}, nil)
	require.ErrorIs(t, err, source.ErrColumnExists)

	r, err := source.NewRegistry(nil, nil)
	require.NoError(t, err)

	require.ErrorIs(t, r.AddColumn(view.KnownColumn{ID: "x", Kind: "blob"}), source.ErrColumnInvalid)
	require.ErrorIs(t, r.AddColumn(view.KnownColumn{}), source.ErrColumnInvalid)

	require.NoError(t, r.AddColumn(view.KnownColumn{ID: "x"}))
	require.ErrorIs(t, r.AddColumn(view.KnownColumn{ID: "x"}), source.ErrColumnExists)
}

func Test_Registry_RefFields_Lists_Reference_Columns_When_Custom_Ref_Added(t *testing.T) {
	t.Parallel()

	r, err := source.NewRegistry([]view.KnownColumn{{ID: "reviewer", Kind: query.KindRef}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"client", "assignedTo", "createdBy", "verifier", "secondVerifier", "finalVerifier", "reviewer",
	}, r.RefFields())
}

func Test_Registry_Priorities_Ranks_Customs_After_Builtins_When_Configured(t *testing.T) {
	t.Parallel()

	r, err := source.NewRegistry(nil, []string{"someday", "urgent"})
	require.NoError(t, err)

	want := []query.Priority{
		{Name: "urgent", Rank: 1},
		{Name: "today", Rank: 2},
		{Name: "thisWeek", Rank: 3},
		{Name: "thisMonth", Rank: 4},
		{Name: "later", Rank: 5},
		{Name: "someday", Rank: 100, Custom: true},
	}

	assert.Equal(t, want, r.Priorities())
	assert.Equal(t, 999, r.Ranks().Rank("never"))
}

func Test_Registry_AddPriority_Ranks_After_Customs_When_Name_Is_New(t *testing.T) {
	t.Parallel()

	r, err := source.NewRegistry(nil, []string{"someday"})
	require.NoError(t, err)

	require.NoError(t, r.AddPriority("blocked"))
	assert.Equal(t, 101, r.Ranks().Rank("blocked"))

	require.ErrorIs(t, r.AddPriority(""), source.ErrPriorityInvalid)
	require.ErrorIs(t, r.AddPriority("blocked"), source.ErrPriorityInvalid)
	require.ErrorIs(t, r.AddPriority("urgent"), source.ErrPriorityInvalid)
}

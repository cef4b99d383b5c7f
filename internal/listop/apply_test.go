package listop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var strEq = Comparable[string]()

func TestApply_AddItemAt_EndIsAppend(t *testing.T) {
	res, err := Apply(AddItemAt(2, "c"), []string{"a", "b"}, strEq)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, res.Items)
	assert.True(t, res.Modified)
	assert.Equal(t, Change{Type: ChangeInsert, Position: 2, Count: 1}, res.Change)
}

func TestApply_AddItemAt_PastEndRejected(t *testing.T) {
	current := []string{"a", "b"}
	res, err := Apply(AddItemAt(3, "c"), current, strEq)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, current, res.Items)
	assert.False(t, res.Modified)
}

func TestApply_AddItemsAt_PreservesOrder(t *testing.T) {
	res, err := Apply(AddItemsAt(1, []string{"x", "y"}), []string{"a", "b"}, strEq)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "x", "y", "b"}, res.Items)
	assert.Equal(t, Change{Type: ChangeInsert, Position: 1, Count: 2}, res.Change)
}

func TestApply_AddItemsAt_EmptyIsNoop(t *testing.T) {
	// An empty batch is accepted even with an out-of-range index.
	res, err := Apply(AddItemsAt[string](10, nil), []string{"a"}, strEq)
	require.NoError(t, err)
	assert.False(t, res.Modified)
}

func TestApply_RemoveAt(t *testing.T) {
	res, err := Apply(RemoveAt[string](0), []string{"a", "b"}, strEq)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, res.Items)

	_, err = Apply(RemoveAt[string](2), []string{"a", "b"}, strEq)
	assert.True(t, IsValidation(err))
}

func TestApply_RemoveItem_FirstIdentityMatch(t *testing.T) {
	type row struct {
		ID   int
		Name string
	}
	eq := ByKey(func(r row) int { return r.ID }, nil)
	current := []row{{1, "a"}, {2, "b"}, {2, "b2"}}

	res, err := Apply(RemoveItem(row{ID: 2}), current, eq)
	require.NoError(t, err)
	assert.Equal(t, []row{{1, "a"}, {2, "b2"}}, res.Items)

	_, err = Apply(RemoveItem(row{ID: 9}), current, eq)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item not found")
}

func TestApply_ReplaceItemAt(t *testing.T) {
	current := []string{"a", "b"}
	res, err := Apply(ReplaceItemAt(1, "B"), current, strEq)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "B"}, res.Items)
	assert.Equal(t, []string{"a", "b"}, current, "input must not be mutated")

	_, err = Apply(ReplaceItemAt(2, "c"), current, strEq)
	assert.True(t, IsValidation(err))
}

func TestApply_MoveItem(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"forward", 0, 3, []string{"b", "c", "d", "a"}},
		{"backward", 3, 1, []string{"a", "d", "b", "c"}},
		{"adjacent", 1, 2, []string{"a", "c", "b", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := []string{"a", "b", "c", "d"}
			res, err := Apply(MoveItem[string](tt.from, tt.to), current, strEq)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Items)
			assert.Equal(t, []string{"a", "b", "c", "d"}, current)
		})
	}
}

func TestApply_MoveItem_SamePositionIsNoop(t *testing.T) {
	res, err := Apply(MoveItem[string](1, 1), []string{"a", "b"}, strEq)
	require.NoError(t, err)
	assert.False(t, res.Modified)
}

func TestApply_MoveItem_InvalidIndices(t *testing.T) {
	_, err := Apply(MoveItem[string](0, 2), []string{"a", "b"}, strEq)
	assert.True(t, IsValidation(err))
	_, err = Apply(MoveItem[string](-1, 0), []string{"a", "b"}, strEq)
	assert.True(t, IsValidation(err))
}

func TestApply_RemoveAll_EmptyIsNoop(t *testing.T) {
	res, err := Apply(RemoveAll[string](), nil, strEq)
	require.NoError(t, err)
	assert.False(t, res.Modified)

	res, err = Apply(RemoveAll[string](), []string{"a", "b"}, strEq)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, Change{Type: ChangeRemove, Position: 0, Count: 2}, res.Change)
}

func TestApply_SetItems_CopiesInput(t *testing.T) {
	src := []string{"x", "y"}
	op := SetItems(src)
	src[0] = "mutated"

	res, err := Apply(op, []string{"a"}, strEq)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, res.Items)
	assert.Equal(t, ChangeFull, res.Change.Type)
}

func TestApply_UpdateItems(t *testing.T) {
	current := []string{"a", "b"}
	op := UpdateItems(func(items []string) []string {
		items[0] = "z"
		return append(items, "c")
	})
	res, err := Apply(op, current, strEq)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "b", "c"}, res.Items)
	assert.Equal(t, []string{"a", "b"}, current)

	_, err = Apply(Operation[string]{Kind: KindUpdateItems}, current, strEq)
	assert.True(t, IsValidation(err))
}

func TestOperation_Key(t *testing.T) {
	assert.Equal(t, "SetItems", SetItems[string](nil).Key())
	assert.Equal(t, "custom", AddItem("a").WithMergeKey("custom").Key())
	assert.Equal(t, "AddItem", AddItem("a").Name())
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("Nope")
	assert.False(t, ok)
}

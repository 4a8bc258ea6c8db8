package deltamap

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// savedWidget returns a clean record as it would look right after a
// successful write.
func savedWidget(t *testing.T, assign func(r *Record)) *Record {
	t.Helper()
	r := widgetSchema(t).NewRecord()
	require.NoError(t, r.Set("id", "w1"))
	if assign != nil {
		assign(r)
	}
	r.commitAll()
	return r
}

func pendingOps(t *testing.T, r *Record) []Op {
	t.Helper()
	ops, err := r.PendingOps()
	require.NoError(t, err)
	return ops
}

func TestPendingOpsScalar(t *testing.T) {
	t.Run("clean record yields no ops", func(t *testing.T) {
		r := savedWidget(t, nil)
		assert.Empty(t, pendingOps(t, r))
	})

	t.Run("first assignment yields SET", func(t *testing.T) {
		r := savedWidget(t, nil)
		require.NoError(t, r.Set("name", "gizmo"))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{
			Name:   "name",
			Action: ActionSet,
			Value:  &types.AttributeValueMemberS{Value: "gizmo"},
		}, ops[0])
	})

	t.Run("numeric change yields ADD of the delta", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("count", 5))
		})
		require.NoError(t, r.Set("count", 8))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{
			Name:   "count",
			Action: ActionAdd,
			Value:  &types.AttributeValueMemberN{Value: "3"},
		}, ops[0])
	})

	t.Run("negative numeric delta", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("count", 5))
		})
		require.NoError(t, r.Set("count", 2))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, ActionAdd, ops[0].Action)
		assert.Equal(t, &types.AttributeValueMemberN{Value: "-3"}, ops[0].Value)
	})

	t.Run("reassigning the same value yields nothing", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("name", "gizmo"))
			require.NoError(t, r.Set("count", 5))
		})
		require.NoError(t, r.Set("name", "gizmo"))
		require.NoError(t, r.Set("count", 5))
		assert.Empty(t, pendingOps(t, r))
	})

	t.Run("transition to default yields REMOVE", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("name", "gizmo"))
		})
		require.NoError(t, r.Set("name", nil))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{Name: "name", Action: ActionRemove}, ops[0])
	})

	t.Run("default assigned over default yields nothing", func(t *testing.T) {
		r := savedWidget(t, nil)
		require.NoError(t, r.Set("name", ""))
		assert.Empty(t, pendingOps(t, r))
	})

	t.Run("key attributes never appear", func(t *testing.T) {
		r := widgetSchema(t).NewRecord()
		require.NoError(t, r.Set("id", "w1"))
		assert.Empty(t, pendingOps(t, r))
	})
}

func TestPendingOpsSets(t *testing.T) {
	t.Run("element additions yield ADD", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("tags", []string{"a"}))
		})
		r.GetStringSet("tags").Add("b")

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{
			Name:   "tags",
			Action: ActionAdd,
			Value:  &types.AttributeValueMemberSS{Value: []string{"b"}},
		}, ops[0])
	})

	t.Run("element removals yield DELETE", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("tags", []string{"a", "b"}))
		})
		r.GetStringSet("tags").Discard("a")

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{
			Name:   "tags",
			Action: ActionDelete,
			Value:  &types.AttributeValueMemberSS{Value: []string{"a"}},
		}, ops[0])
	})

	t.Run("mixed mutation yields ADD then DELETE", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("scores", []int64{1, 2}))
		})
		set := r.GetNumberSet("scores")
		set.Add(3)
		set.Discard(1)

		ops := pendingOps(t, r)
		require.Len(t, ops, 2)
		assert.Equal(t, ActionAdd, ops[0].Action)
		assert.Equal(t, &types.AttributeValueMemberNS{Value: []string{"3"}}, ops[0].Value)
		assert.Equal(t, ActionDelete, ops[1].Action)
		assert.Equal(t, &types.AttributeValueMemberNS{Value: []string{"1"}}, ops[1].Value)
	})

	t.Run("wholesale reassignment yields a full SET", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("tags", []string{"a", "b"}))
		})
		require.NoError(t, r.Set("tags", []string{"b", "c"}))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{
			Name:   "tags",
			Action: ActionSet,
			Value:  &types.AttributeValueMemberSS{Value: []string{"b", "c"}},
		}, ops[0])
	})

	t.Run("reassignment equal to baseline yields nothing", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("tags", []string{"a"}))
		})
		require.NoError(t, r.Set("tags", []string{"a"}))
		assert.Empty(t, pendingOps(t, r))
	})

	t.Run("emptying a set yields REMOVE", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("tags", []string{"a"}))
		})
		r.GetStringSet("tags").Clear()

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{Name: "tags", Action: ActionRemove}, ops[0])
	})

	t.Run("binary set mutation", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("blobs", [][]byte{[]byte("a")}))
		})
		r.GetBinarySet("blobs").Add([]byte("b"))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, &types.AttributeValueMemberBS{Value: [][]byte{[]byte("b")}}, ops[0].Value)
	})
}

func TestPendingOpsContainers(t *testing.T) {
	t.Run("mutated list yields a full SET", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("items", []any{"a"}))
		})
		r.GetList("items").Append("b")

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, "items", ops[0].Name)
		assert.Equal(t, ActionSet, ops[0].Action)
		assert.IsType(t, &types.AttributeValueMemberL{}, ops[0].Value)
	})

	t.Run("mutated map yields a full SET", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("meta", map[string]any{"a": "1"}))
		})
		r.GetMap("meta").Set("b", "2")

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, ActionSet, ops[0].Action)
		assert.IsType(t, &types.AttributeValueMemberM{}, ops[0].Value)
	})

	t.Run("emptying a map yields REMOVE", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("meta", map[string]any{"a": "1"}))
		})
		r.GetMap("meta").Delete("a")

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{Name: "meta", Action: ActionRemove}, ops[0])
	})
}

func TestPendingOpsExtras(t *testing.T) {
	t.Run("numeric extra diffs to ADD", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("hits", 10))
		})
		require.NoError(t, r.Set("hits", 13))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{
			Name:   "hits",
			Action: ActionAdd,
			Value:  &types.AttributeValueMemberN{Value: "3"},
		}, ops[0])
	})

	t.Run("tracked set extra diffs element-wise", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("labels", map[string]struct{}{"a": {}}))
		})
		r.Extra()["labels"].(*StringSet).Add("b")

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, ActionAdd, ops[0].Action)
		assert.Equal(t, &types.AttributeValueMemberSS{Value: []string{"b"}}, ops[0].Value)
	})

	t.Run("reassigned set extra replaces wholesale", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("labels", map[string]struct{}{"a": {}}))
		})
		require.NoError(t, r.Set("labels", map[string]struct{}{"b": {}}))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{
			Name:   "labels",
			Action: ActionSet,
			Value:  &types.AttributeValueMemberSS{Value: []string{"b"}},
		}, ops[0])
	})

	t.Run("set extra reassigned to its baseline yields nothing", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("labels", map[string]struct{}{"a": {}}))
		})
		require.NoError(t, r.Set("labels", NewStringSet("a")))
		assert.Empty(t, pendingOps(t, r))
	})

	t.Run("mapping extra reassigned to an equal value yields nothing", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("obj", map[string]any{"foo": 1}))
		})
		require.NoError(t, r.Set("obj", map[string]any{"foo": 1.0}))
		assert.Empty(t, pendingOps(t, r))
	})

	t.Run("string extra replaces wholesale", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("note", "old"))
		})
		require.NoError(t, r.Set("note", "new"))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, ActionSet, ops[0].Action)
		assert.Equal(t, &types.AttributeValueMemberS{Value: `"new"`}, ops[0].Value)
	})

	t.Run("clearing an extra yields REMOVE", func(t *testing.T) {
		r := savedWidget(t, func(r *Record) {
			require.NoError(t, r.Set("note", "old"))
		})
		require.NoError(t, r.Set("note", nil))

		ops := pendingOps(t, r)
		require.Len(t, ops, 1)
		assert.Equal(t, Op{Name: "note", Action: ActionRemove}, ops[0])
	})
}

func TestUpdateExpression(t *testing.T) {
	t.Run("clauses grouped by action", func(t *testing.T) {
		ops := []Op{
			{Name: "name", Action: ActionSet, Value: &types.AttributeValueMemberS{Value: "gizmo"}},
			{Name: "count", Action: ActionAdd, Value: &types.AttributeValueMemberN{Value: "3"}},
			{Name: "tags", Action: ActionDelete, Value: &types.AttributeValueMemberSS{Value: []string{"a"}}},
			{Name: "note", Action: ActionRemove},
		}

		expr, names, values := updateExpression(ops)
		assert.Equal(t, "SET #a0 = :v0 ADD #a1 :v1 DELETE #a2 :v2 REMOVE #a3", expr)
		assert.Equal(t, map[string]string{
			"#a0": "name", "#a1": "count", "#a2": "tags", "#a3": "note",
		}, names)
		assert.Len(t, values, 3)
		assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, values[":v1"])
	})

	t.Run("remove-only expression carries no values", func(t *testing.T) {
		expr, names, values := updateExpression([]Op{{Name: "note", Action: ActionRemove}})
		assert.Equal(t, "REMOVE #a0", expr)
		assert.Equal(t, map[string]string{"#a0": "note"}, names)
		assert.Nil(t, values)
	})
}

func TestOpString(t *testing.T) {
	op := Op{Name: "count", Action: ActionAdd, Value: &types.AttributeValueMemberN{Value: "3"}}
	assert.Contains(t, op.String(), "ADD count")
	assert.Equal(t, "REMOVE note", Op{Name: "note", Action: ActionRemove}.String())
}

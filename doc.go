// Package deltamap projects typed entity records onto DynamoDB while
// tracking exactly which attributes changed, so writes carry the minimal
// per-attribute delta instead of replacing whole items.
//
// # Key Concepts
//
// A Schema is an immutable descriptor table built once at startup; each
// Field declares an attribute's name, wire kind, coercion policy, optional
// validation check and key role. Records are instances of a schema: values
// are normalized and validated eagerly on assignment, container attributes
// (sets, lists, maps) observe their own mutations, and every record carries
// a snapshot of its last-persisted state as the diff baseline.
//
// Attributes holding their kind's default value are sparse: they are never
// written to the table and never appear in delta operations. Clearing a
// previously stored attribute emits an explicit REMOVE.
//
// # Basic Usage
//
//	schema, err := deltamap.NewSchema("widget", []deltamap.Field{
//	    deltamap.NewField("id", deltamap.KindString, deltamap.AsHashKey()),
//	    deltamap.NewField("count", deltamap.KindNumber),
//	    deltamap.NewField("tags", deltamap.KindStringSet),
//	})
//
//	table := deltamap.NewTable("widgets", deltamap.KeyDef{Name: "id", Kind: deltamap.KindString})
//	engine := deltamap.New(client, table)
//
//	w := schema.NewRecord()
//	w.Set("id", "W1")
//	w.Set("count", 5)
//	err = engine.Save(ctx, w)
//
//	// in-place mutations are observed; Sync writes only the delta
//	w.GetStringSet("tags").Add("new")
//	w.Set("count", 8) // syncs as an atomic ADD of 3
//	err = engine.Sync(ctx, w)
//
// # Synchronization
//
// Save writes the whole item unconditionally. Sync diffs the record against
// its snapshot and issues a single UpdateItem carrying only SET, ADD,
// DELETE and REMOVE actions for changed attributes; an unchanged record
// issues no request at all. Snapshots move forward only when the store
// reports success, so a failed sync can simply be retried.
//
// # Extra Attributes
//
// Names with no declared Field are stored with inferred wire kinds:
// integers and floats as numbers, tracked sets as native sets, and
// everything else as a JSON string that is transparently decoded on read.
package deltamap

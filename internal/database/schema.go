package database

import (
	"fmt"
	"strings"
)

// schemaVersion is bumped whenever the table layout below changes.
const schemaVersion = 1

type Collection string

const (
	PendingOrders Collection = "pending_orders"
	Receipts      Collection = "receipts"
	Pools         Collection = "pools"
	SyncQueue     Collection = "sync_queue"
)

type Index string

const (
	ByTimestamp Index = "by_timestamp"
	ByStatus    Index = "by_status"
	BySender    Index = "by_sender"
	ByOrder     Index = "by_order"
	ByType      Index = "by_type"
	ByRegion    Index = "by_region"
	ByPriority  Index = "by_priority"
	ByCreated   Index = "by_created"
)

type columnKind int

const (
	kindText columnKind = iota
	kindInt
)

type column struct {
	name string
	kind columnKind
}

// indexDef maps an index to the column it filters on and the ordering of
// its results.
type indexDef struct {
	name    Index
	column  string
	orderBy []string
}

type collectionDef struct {
	name    Collection
	columns []column
	indexes []indexDef
}

var schema = []collectionDef{
	{
		name:    PendingOrders,
		columns: []column{{"created_at", kindInt}, {"status", kindText}},
		indexes: []indexDef{
			{ByTimestamp, "created_at", []string{"created_at", "id"}},
			{ByStatus, "status", []string{"created_at", "id"}},
		},
	},
	{
		name:    Receipts,
		columns: []column{{"ts", kindInt}, {"sender", kindText}, {"order_id", kindText}},
		indexes: []indexDef{
			{ByTimestamp, "ts", []string{"ts", "id"}},
			{BySender, "sender", []string{"ts", "id"}},
			{ByOrder, "order_id", []string{"ts", "id"}},
		},
	},
	{
		name:    Pools,
		columns: []column{{"type", kindText}, {"region", kindText}},
		indexes: []indexDef{
			{ByType, "type", []string{"id"}},
			{ByRegion, "region", []string{"id"}},
		},
	},
	{
		name:    SyncQueue,
		columns: []column{{"priority", kindInt}, {"created_at", kindInt}, {"order_id", kindText}},
		indexes: []indexDef{
			{ByPriority, "priority", []string{"priority", "created_at", "id"}},
			{ByCreated, "created_at", []string{"created_at", "id"}},
			{ByOrder, "order_id", []string{"created_at", "id"}},
		},
	},
}

// Collections lists every collection in schema order.
func Collections() []Collection {
	out := make([]Collection, 0, len(schema))
	for _, c := range schema {
		out = append(out, c.name)
	}
	return out
}

func lookup(c Collection) (*collectionDef, error) {
	for i := range schema {
		if schema[i].name == c {
			return &schema[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
}

func (c *collectionDef) index(name Index) (*indexDef, error) {
	for i := range c.indexes {
		if c.indexes[i].name == name {
			return &c.indexes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q on %q", ErrUnknownIndex, name, c.name)
}

// dialect captures the few places where SQLite and Postgres disagree.
type dialect struct {
	docType  string
	intType  string
	bindVar  func(n int) string
	metaDDL  string
	metaSeed string
}

var sqliteDialect = dialect{
	docType:  "BLOB",
	intType:  "INTEGER",
	bindVar:  func(int) string { return "?" },
	metaDDL:  `CREATE TABLE IF NOT EXISTS schema_version (id INTEGER PRIMARY KEY CHECK (id = 1), version INTEGER NOT NULL)`,
	metaSeed: `INSERT INTO schema_version (id, version) VALUES (1, ?) ON CONFLICT (id) DO NOTHING`,
}

var postgresDialect = dialect{
	docType:  "JSONB",
	intType:  "BIGINT",
	bindVar:  func(n int) string { return fmt.Sprintf("$%d", n) },
	metaDDL:  `CREATE TABLE IF NOT EXISTS schema_version (id INTEGER PRIMARY KEY CHECK (id = 1), version INTEGER NOT NULL)`,
	metaSeed: `INSERT INTO schema_version (id, version) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`,
}

// ddl returns the idempotent statements creating the full schema.
func (d dialect) ddl() []string {
	stmts := []string{d.metaDDL}
	for _, c := range schema {
		cols := []string{"id TEXT PRIMARY KEY", "doc " + d.docType + " NOT NULL"}
		for _, col := range c.columns {
			typ := "TEXT"
			if col.kind == kindInt {
				typ = d.intType
			}
			cols = append(cols, col.name+" "+typ)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", c.name, strings.Join(cols, ", ")))
		for _, idx := range c.indexes {
			keyCols := append([]string{idx.column}, idx.orderBy...)
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
				c.name, idx.name, c.name, strings.Join(dedupe(keyCols), ", ")))
		}
	}
	return stmts
}

func (d dialect) upsertSQL(c *collectionDef) string {
	names := []string{"id", "doc"}
	for _, col := range c.columns {
		names = append(names, col.name)
	}
	binds := make([]string, len(names))
	for i := range names {
		binds[i] = d.bindVar(i + 1)
	}
	sets := make([]string, 0, len(names)-1)
	for _, n := range names[1:] {
		sets = append(sets, n+" = excluded."+n)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		c.name, strings.Join(names, ", "), strings.Join(binds, ", "), strings.Join(sets, ", "))
}

func (d dialect) getSQL(c *collectionDef) string {
	return fmt.Sprintf("SELECT doc FROM %s WHERE id = %s", c.name, d.bindVar(1))
}

func (d dialect) deleteSQL(c *collectionDef) string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", c.name, d.bindVar(1))
}

// querySQL selects documents through an index. Without a value the whole
// collection is returned in index order.
func (d dialect) querySQL(c *collectionDef, idx *indexDef, withValue bool) string {
	order := strings.Join(dedupe(append([]string{idx.column}, idx.orderBy...)), ", ")
	if !withValue {
		return fmt.Sprintf("SELECT doc FROM %s ORDER BY %s", c.name, order)
	}
	return fmt.Sprintf("SELECT doc FROM %s WHERE %s = %s ORDER BY %s", c.name, idx.column, d.bindVar(1), order)
}

// args flattens a document into upsert arguments in column order.
func (c *collectionDef) args(doc Document) []any {
	out := []any{doc.Key, doc.Body}
	for _, col := range c.columns {
		v, ok := doc.Fields[col.name]
		if !ok {
			out = append(out, nil)
			continue
		}
		out = append(out, v)
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

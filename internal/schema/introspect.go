package schema

import (
	"fmt"
	"strings"

	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
)

// columnsQuery returns the introspection query that enumerates every table,
// its columns, and their primary/foreign key status in one pass.
func columnsQuery(kind connection.DatabaseKind) (string, error) {
	switch kind {
	case connection.KindPostgreSQL:
		return `
			SELECT c.table_name, c.column_name, c.data_type, c.is_nullable,
			       COALESCE(pk.is_primary_key, false),
			       COALESCE(fk.foreign_table, ''), COALESCE(fk.foreign_column, '')
			FROM information_schema.columns c
			LEFT JOIN (
				SELECT ku.table_name, ku.column_name, true AS is_primary_key
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage ku
					ON tc.constraint_name = ku.constraint_name AND tc.table_schema = ku.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = 'public'
			) pk ON pk.table_name = c.table_name AND pk.column_name = c.column_name
			LEFT JOIN (
				SELECT ku.table_name, ku.column_name,
				       ccu.table_name AS foreign_table, ccu.column_name AS foreign_column
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage ku
					ON tc.constraint_name = ku.constraint_name AND tc.table_schema = ku.table_schema
				JOIN information_schema.constraint_column_usage ccu
					ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
				WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public'
			) fk ON fk.table_name = c.table_name AND fk.column_name = c.column_name
			WHERE c.table_schema = 'public'
			ORDER BY c.table_name, c.ordinal_position
		`, nil
	case connection.KindMySQL:
		return `
			SELECT c.TABLE_NAME, c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE,
			       c.COLUMN_KEY = 'PRI',
			       COALESCE(k.REFERENCED_TABLE_NAME, ''), COALESCE(k.REFERENCED_COLUMN_NAME, '')
			FROM information_schema.COLUMNS c
			LEFT JOIN information_schema.KEY_COLUMN_USAGE k
				ON k.TABLE_SCHEMA = c.TABLE_SCHEMA AND k.TABLE_NAME = c.TABLE_NAME
				AND k.COLUMN_NAME = c.COLUMN_NAME AND k.REFERENCED_TABLE_NAME IS NOT NULL
			WHERE c.TABLE_SCHEMA = DATABASE()
			ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
		`, nil
	default:
		return "", fmt.Errorf("columns query not defined for database kind %q", kind)
	}
}

// rowCountQuery returns the estimate query paired with columnsQuery's table
// list. Estimates come from planner statistics rather than COUNT(*), which
// would be too slow to run against every table on every connect.
func rowCountQuery(kind connection.DatabaseKind) (string, error) {
	switch kind {
	case connection.KindPostgreSQL:
		return `SELECT relname, reltuples::bigint FROM pg_class WHERE relkind = 'r'`, nil
	case connection.KindMySQL:
		return `SELECT TABLE_NAME, TABLE_ROWS FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE()`, nil
	default:
		return "", fmt.Errorf("row count query not defined for database kind %q", kind)
	}
}

// parseColumnsRows turns columnsQuery's result into one TableInfo per table,
// in first-seen order.
func parseColumnsRows(rows contracts.Rows) ([]*TableInfo, error) {
	if len(rows.Columns) != 7 {
		return nil, fmt.Errorf("columns introspection: expected 7 columns, got %d", len(rows.Columns))
	}

	order := make([]string, 0)
	byName := make(map[string]*TableInfo)

	for _, row := range rows.Data {
		if len(row) != 7 {
			return nil, fmt.Errorf("columns introspection: expected 7 fields, got %d", len(row))
		}
		tableName := asString(row[0])
		table, ok := byName[tableName]
		if !ok {
			table = &TableInfo{Name: tableName}
			byName[tableName] = table
			order = append(order, tableName)
		}
		table.Columns = append(table.Columns, contracts.Column{
			Name:             asString(row[1]),
			Type:             asString(row[2]),
			Nullable:         strings.EqualFold(asString(row[3]), "YES"),
			IsPrimaryKey:     asBool(row[4]),
			IsForeignKey:     asString(row[5]) != "",
			ReferencedTable:  asString(row[5]),
			ReferencedColumn: asString(row[6]),
		})
	}

	tables := make([]*TableInfo, 0, len(order))
	for _, name := range order {
		tables = append(tables, byName[name])
	}
	return tables, nil
}

// applyRowCounts attaches rowCountQuery's estimates onto tables, matched by name.
func applyRowCounts(tables []*TableInfo, rows contracts.Rows) {
	estimates := make(map[string]int64, len(rows.Data))
	for _, row := range rows.Data {
		if len(row) != 2 {
			continue
		}
		estimates[asString(row[0])] = asInt64(row[1])
	}
	for _, t := range tables {
		if n, ok := estimates[t.Name]; ok {
			estimate := n
			t.RowCountEstimate = &estimate
		}
	}
}

// mongoListCollectionsCommand is DocumentDriver's introspection convention
// for enumerating a database's collections: MongoDB has no fixed schema, so
// there is no information_schema equivalent to query through QueryRunner's
// plain-string interface. A small JSON command vocabulary stands in its
// place; the document driver behind QueryRunner recognizes these commands
// and returns their result as ordinary contracts.Rows.
const mongoListCollectionsCommand = `{"op":"listCollections"}`

// mongoSampleCommand asks for up to limit sample documents from collection,
// used to infer a shape for collections that have none.
func mongoSampleCommand(collection string, limit int) string {
	return fmt.Sprintf(`{"op":"sample","collection":%q,"limit":%d}`, collection, limit)
}

// parseMongoCollections reads listCollections's result: one collection name per row.
func parseMongoCollections(rows contracts.Rows) []string {
	names := make([]string, 0, len(rows.Data))
	for _, row := range rows.Data {
		if len(row) == 0 {
			continue
		}
		names = append(names, asString(row[0]))
	}
	return names
}

// parseMongoSample infers a TableInfo from a sample command's result: the
// union of fields observed across the sampled documents, each typed by the
// Go type of the first non-null value seen for it. Fields are reported in
// first-seen order across the sample, not sorted, so the inferred shape
// reads in the order a human skimming sample documents would notice fields.
func parseMongoSample(collection string, rows contracts.Rows) *TableInfo {
	table := &TableInfo{Name: collection}
	seen := make(map[string]bool)

	for _, row := range rows.Data {
		for i, columnName := range rows.Columns {
			if i >= len(row) || seen[columnName] {
				continue
			}
			value := row[i]
			if value == nil {
				continue
			}
			seen[columnName] = true
			table.Columns = append(table.Columns, contracts.Column{
				Name:         columnName,
				Type:         mongoTypeName(value),
				IsPrimaryKey: columnName == "_id",
			})
		}
	}

	inferMongoReferences(table)

	count := int64(len(rows.Data))
	table.RowCountEstimate = &count
	return table
}

// inferMongoReferences flags fields shaped like "<singular>Id" or
// "<singular>_id" (other than the document's own "_id") as foreign keys
// into a collection named by pluralizing the prefix with a trailing "s".
// This is a naming-convention heuristic, the same kind QuerySynthesizer and
// SchemaIngestor already lean on elsewhere when a database carries no
// declared constraints; it only ever produces RelationshipKind Inferred
// edges, never ForeignKey ones.
func inferMongoReferences(table *TableInfo) {
	for i := range table.Columns {
		col := &table.Columns[i]
		if col.Name == "_id" {
			continue
		}
		prefix, ok := mongoReferencePrefix(col.Name)
		if !ok {
			continue
		}
		col.IsForeignKey = true
		col.ReferencedTable = prefix + "s"
		col.ReferencedColumn = "_id"
	}
}

func mongoReferencePrefix(column string) (string, bool) {
	switch {
	case strings.HasSuffix(column, "_id") && column != "_id":
		return strings.TrimSuffix(column, "_id"), true
	case strings.HasSuffix(column, "Id") && len(column) > 2:
		return strings.TrimSuffix(column, "Id"), true
	default:
		return "", false
	}
}

func mongoTypeName(value interface{}) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int32, int64:
		return "int"
	case float32, float64:
		return "double"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "unknown"
	}
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asBool(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

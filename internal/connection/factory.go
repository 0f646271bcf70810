package connection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// queryableHandle is implemented by driverHandle strategies that can run
// an application query, as distinct from the bare Ping/Close every
// driverHandle supports. Service.resolveQueryable type-asserts for it rather than
// requiring it of driverHandle itself, so a future kind can plug in
// health-check-only support first and query support later.
type queryableHandle interface {
	Query(ctx context.Context, query string, maxRows int) (contracts.Rows, error)
}

// LiveConnectionFactory opens a driverHandle for a DatabaseKind. New kinds
// plug in by registering a strategy under a new DatabaseKind value.
type LiveConnectionFactory interface {
	Open(ctx context.Context, target dialTarget) (driverHandle, error)
}

// liveConnectionFactory dispatches to a kind-keyed strategy table.
type liveConnectionFactory struct {
	strategies map[DatabaseKind]func(ctx context.Context, target dialTarget) (driverHandle, error)
}

// NewLiveConnectionFactory builds the default factory covering every
// supported DatabaseKind.
func NewLiveConnectionFactory() LiveConnectionFactory {
	return &liveConnectionFactory{
		strategies: map[DatabaseKind]func(ctx context.Context, target dialTarget) (driverHandle, error){
			KindPostgreSQL: openPostgres,
			KindMySQL:      openMySQL,
			KindMongoDB:    openMongo,
		},
	}
}

func (f *liveConnectionFactory) Open(ctx context.Context, target dialTarget) (driverHandle, error) {
	strategy, ok := f.strategies[target.kind]
	if !ok {
		return nil, fmt.Errorf("unsupported database kind: %s", target.kind)
	}
	return strategy(ctx, target)
}

// sqlHandle wraps a database/sql.DB as a driverHandle, used by both the
// POSTGRESQL and MYSQL strategies.
type sqlHandle struct {
	db *sql.DB
}

func (h *sqlHandle) Ping(ctx context.Context) error { return h.db.PingContext(ctx) }
func (h *sqlHandle) Close() error                   { return h.db.Close() }

// Query runs query as-is against the underlying database/sql.DB and bounds
// the result at maxRows (0 means unbounded). The database driver, not this
// method, is what rejects a malformed query.
func (h *sqlHandle) Query(ctx context.Context, query string, maxRows int) (contracts.Rows, error) {
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return contracts.Rows{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return contracts.Rows{}, err
	}

	result := contracts.Rows{Columns: columns}
	for rows.Next() {
		if maxRows > 0 && len(result.Data) >= maxRows {
			break
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return contracts.Rows{}, err
		}
		result.Data = append(result.Data, contracts.Row(values))
	}
	return result, rows.Err()
}

var _ queryableHandle = (*sqlHandle)(nil)

func openPostgres(ctx context.Context, target dialTarget) (driverHandle, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(target.username), url.QueryEscape(target.password),
		target.host, target.port, target.databaseName)

	if len(target.additionalProperties) > 0 {
		dsn += "?" + encodeProperties(target.additionalProperties)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %v", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres connection unreachable: %v", err)
	}
	return &sqlHandle{db: db}, nil
}

func openMySQL(ctx context.Context, target dialTarget) (driverHandle, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		target.username, target.password, target.host, target.port, target.databaseName)

	if len(target.additionalProperties) > 0 {
		dsn += "?" + encodeProperties(target.additionalProperties)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %v", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql connection unreachable: %v", err)
	}
	return &sqlHandle{db: db}, nil
}

// mongoHandle wraps a mongo.Client as a driverHandle.
type mongoHandle struct {
	client       *mongo.Client
	databaseName string
}

func (h *mongoHandle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, nil)
}

func (h *mongoHandle) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.client.Disconnect(ctx)
}

// mongoCommand is the small JSON vocabulary QuerySynthesizer and
// SchemaIngestor address MongoDB through, since a document database has
// no single query-string grammar the way SQL does. Op selects an
// introspection command; an empty Op means "find", the shape a
// synthesized query takes.
type mongoCommand struct {
	Op         string                 `json:"op,omitempty"`
	Collection string                 `json:"collection,omitempty"`
	Filter     map[string]interface{} `json:"filter,omitempty"`
	Limit      int                    `json:"limit,omitempty"`
}

// Query decodes query as a mongoCommand and runs it against the dialed
// database. maxRows, when positive, overrides the command's own limit.
func (h *mongoHandle) Query(ctx context.Context, query string, maxRows int) (contracts.Rows, error) {
	var cmd mongoCommand
	if err := json.Unmarshal([]byte(query), &cmd); err != nil {
		return contracts.Rows{}, fmt.Errorf("invalid mongo command: %w", err)
	}

	db := h.client.Database(h.databaseName)
	limit := cmd.Limit
	if maxRows > 0 {
		limit = maxRows
	}
	if limit <= 0 {
		limit = 1000
	}

	switch cmd.Op {
	case "listCollections":
		names, err := db.ListCollectionNames(ctx, bson.D{})
		if err != nil {
			return contracts.Rows{}, err
		}
		rows := contracts.Rows{Columns: []string{"name"}}
		for _, name := range names {
			rows.Data = append(rows.Data, contracts.Row{name})
		}
		return rows, nil
	case "sample", "":
		if cmd.Collection == "" {
			return contracts.Rows{}, fmt.Errorf("mongo command missing collection")
		}
		return findDocuments(ctx, db.Collection(cmd.Collection), cmd.Filter, limit)
	default:
		return contracts.Rows{}, fmt.Errorf("unsupported mongo command op %q", cmd.Op)
	}
}

// findDocuments runs filter (nil means match everything) against
// collection and flattens up to limit result documents into contracts.Rows
// whose column set is the union of fields seen, in first-seen order.
func findDocuments(ctx context.Context, collection *mongo.Collection, filter map[string]interface{}, limit int) (contracts.Rows, error) {
	findOpts := options.Find().SetLimit(int64(limit))
	cursor, err := collection.Find(ctx, bsonFilter(filter), findOpts)
	if err != nil {
		return contracts.Rows{}, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return contracts.Rows{}, err
	}
	return documentsToRows(docs), nil
}

func bsonFilter(filter map[string]interface{}) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}

// documentsToRows flattens top-level document fields into contracts.Rows;
// nested documents and arrays are preserved as-is in the cell value.
func documentsToRows(docs []bson.M) contracts.Rows {
	var columns []string
	seen := make(map[string]bool)
	for _, doc := range docs {
		for field := range doc {
			if !seen[field] {
				seen[field] = true
				columns = append(columns, field)
			}
		}
	}

	rows := contracts.Rows{Columns: columns}
	for _, doc := range docs {
		row := make(contracts.Row, len(columns))
		for i, field := range columns {
			row[i] = doc[field]
		}
		rows.Data = append(rows.Data, row)
	}
	return rows
}

var _ queryableHandle = (*mongoHandle)(nil)

func openMongo(ctx context.Context, target dialTarget) (driverHandle, error) {
	var uri string
	if target.username != "" || target.password != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%d/%s",
			url.QueryEscape(target.username), url.QueryEscape(target.password),
			target.host, target.port, target.databaseName)
	} else {
		uri = fmt.Sprintf("mongodb://%s:%d/%s", target.host, target.port, target.databaseName)
	}
	if len(target.additionalProperties) > 0 {
		uri += "?" + encodeProperties(target.additionalProperties)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to open mongodb connection: %v", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb connection unreachable: %v", err)
	}
	return &mongoHandle{client: client, databaseName: target.databaseName}, nil
}

// encodeProperties renders additionalProperties as a stable-ordered query
// string, preserved verbatim across every supported databaseKind.
func encodeProperties(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(props[k]))
	}
	return strings.Join(parts, "&")
}

package contracts

import "time"

// DatabaseKind is the target database engine family. It determines both
// the LiveConnectionFactory strategy and the QuerySynthesizer dialect.
type DatabaseKind string

const (
	Postgres DatabaseKind = "POSTGRESQL"
	MySQL    DatabaseKind = "MYSQL"
	Mongo    DatabaseKind = "MONGODB"
)

// Supported reports whether kind is one this deployment's strategy table
// knows how to open a LiveConnection for.
func (k DatabaseKind) Supported() bool {
	switch k {
	case Postgres, MySQL, Mongo:
		return true
	default:
		return false
	}
}

// Classification is the Classifier's verdict on a single user turn.
type Classification string

const (
	General     Classification = "GENERAL"
	QueryIntent Classification = "QUERY_INTENT"
)

// Column describes one column of a SchemaUnit.
type Column struct {
	Name              string
	Type              string
	Nullable          bool
	IsPrimaryKey      bool
	IsForeignKey      bool
	ReferencedTable   string
	ReferencedColumn  string
}

// SchemaUnit is the indexed representation of one table or collection.
type SchemaUnit struct {
	ConnectionID     string
	TableName        string
	UserID           string
	DatabaseKind     DatabaseKind
	Columns          []Column
	RowCountEstimate *int64
	Description      string
	Embedding        []float32
}

// RelationshipKind distinguishes a declared foreign key from one inferred
// by naming convention during schema ingestion.
type RelationshipKind string

const (
	ForeignKey RelationshipKind = "FOREIGN_KEY"
	Inferred   RelationshipKind = "INFERRED"
)

// TableRelationship is a directed edge between two columns of two tables,
// scoped to one connection.
type TableRelationship struct {
	ConnectionID string
	FromTable    string
	FromColumn   string
	ToTable      string
	ToColumn     string
	Kind         RelationshipKind
}

// ContextTable is one table handed to the QuerySynthesizer: its columns
// plus the relationships that touch it, drawn from VectorIndex/GraphIndex.
type ContextTable struct {
	Name          string
	Columns       []Column
	Relationships []TableRelationship
}

// QueryResult is the bounded tabular result of an executed query.
type QueryResult struct {
	Columns      []string
	Rows         [][]interface{}
	RowCount     int
	ExecutionMs  int64
	Truncated    bool
}

// Timings records per-step durations for one ConversationTurn, in milliseconds.
type Timings struct {
	ClassifyMs   int64
	ContextMs    int64
	SynthesizeMs int64
	ExecuteMs    int64
	TotalMs      int64
}

// ConversationTurn is the ephemeral per-request state the Orchestrator
// owns and mutates as the pipeline advances. It is created by the Router
// and destroyed once the reply is sent.
type ConversationTurn struct {
	RequestID       string
	UserID          string
	SessionID       string
	ConnectionID    string
	UserText        string
	SeedTables      []string
	Classification  Classification
	ContextTables   []string
	GeneratedQuery  string
	Explanation     string
	QueryResult     *QueryResult
	Error           *Error
	Timings         Timings
	CreatedAt       time.Time
}

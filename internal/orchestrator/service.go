package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/google/uuid"
)

// Service implements the Orchestrator's single operation, HandleTurn, over
// the component's seven collaborators. It holds no state of its own beyond
// the turn it is currently handling.
type Service struct {
	classifier  Classifier
	vectors     VectorSearcher
	graph       GraphNeighbors
	embedder    contracts.EmbeddingModel
	synthesizer Synthesizer
	executor    Executor
	connections ConnectionKind
	logger      *logging.Logger
	contextK    int
}

// NewService binds the component's seven collaborators.
func NewService(classifier Classifier, vectors VectorSearcher, graph GraphNeighbors, embedder contracts.EmbeddingModel, synthesizer Synthesizer, executor Executor, connections ConnectionKind, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewLoggerWithName("orchestrator")
	}
	return &Service{
		classifier:  classifier,
		vectors:     vectors,
		graph:       graph,
		embedder:    embedder,
		synthesizer: synthesizer,
		executor:    executor,
		connections: connections,
		logger:      logger,
		contextK:    defaultContextK,
	}
}

// HandleTurn drives turn through the pipeline, mutating it in place with
// each step's output. It never returns an error itself: every failure is
// recorded on turn.Error so the Router always has a complete turn to
// translate into an HTTP response.
func (s *Service) HandleTurn(ctx context.Context, turn *contracts.ConversationTurn) {
	start := time.Now()
	defer func() { turn.Timings.TotalMs = time.Since(start).Milliseconds() }()

	if ctx.Err() != nil {
		turn.Error = contracts.NewError(contracts.ErrTimeout, "deadline exceeded before processing began")
		return
	}

	classifyStart := time.Now()
	requiresQuery := s.classifier.RequiresQueryGeneration(ctx, turn.UserText)
	turn.Timings.ClassifyMs = time.Since(classifyStart).Milliseconds()

	if !requiresQuery {
		turn.Classification = contracts.General
		s.respondGeneral(ctx, turn)
		return
	}
	turn.Classification = contracts.QueryIntent

	if turn.ConnectionID == "" {
		turn.Error = contracts.NewError(contracts.ErrNoActiveConnection, "")
		return
	}

	if ctx.Err() != nil {
		turn.Error = contracts.NewError(contracts.ErrTimeout, "deadline exceeded before context retrieval")
		return
	}

	kind, contextTables, err := s.prepareSynthesisInputs(ctx, turn)
	if err != nil {
		turn.Error = contracts.AsError(err)
		return
	}
	turn.ContextTables = tableNames(contextTables)

	if ctx.Err() != nil {
		turn.Error = contracts.NewError(contracts.ErrTimeout, "deadline exceeded before synthesis")
		return
	}

	synthStart := time.Now()
	query, explanation, err := s.synthesizer.Synthesize(ctx, turn.UserText, kind, contextTables, turn.UserID, turn.SessionID)
	turn.Timings.SynthesizeMs = time.Since(synthStart).Milliseconds()
	if err != nil {
		turn.Error = translateTimeout(ctx, err)
		return
	}
	turn.GeneratedQuery = query
	turn.Explanation = explanation

	if ctx.Err() != nil {
		turn.Error = contracts.NewError(contracts.ErrTimeout, "deadline exceeded before execution")
		return
	}

	execStart := time.Now()
	result, err := s.executor.Execute(ctx, query, turn.ConnectionID, turn.UserID, defaultExecuteMax)
	turn.Timings.ExecuteMs = time.Since(execStart).Milliseconds()
	if err != nil {
		turn.Error = translateTimeout(ctx, err)
		return
	}
	turn.QueryResult = &result
}

func (s *Service) respondGeneral(ctx context.Context, turn *contracts.ConversationTurn) {
	reply, err := s.classifier.RespondGeneral(ctx, turn.UserText, turn.UserID, turn.SessionID)
	if err != nil {
		turn.Error = translateTimeout(ctx, err)
		return
	}
	turn.Explanation = reply
}

// prepareSynthesisInputs resolves the target dialect and assembles the
// QuerySynthesizer's context tables. The VectorIndex search and, when
// turn.SeedTables is non-empty, the GraphIndex neighbor lookups run
// concurrently; step 5's merge only begins once both return. A failure in
// either sub-query is non-fatal — the Orchestrator proceeds with whichever
// context arrived.
func (s *Service) prepareSynthesisInputs(ctx context.Context, turn *contracts.ConversationTurn) (contracts.DatabaseKind, []contracts.ContextTable, error) {
	connectionID, err := uuid.Parse(turn.ConnectionID)
	if err != nil {
		return "", nil, contracts.NewError(contracts.ErrValidation, "connectionId is not a valid identifier")
	}
	userID, err := uuid.Parse(turn.UserID)
	if err != nil {
		return "", nil, contracts.NewError(contracts.ErrValidation, "userId is not a valid identifier")
	}

	connKind, err := s.connections.Kind(ctx, connectionID, userID)
	if err != nil {
		return "", nil, err
	}

	vectorHits, neighborNames := s.gatherContext(ctx, turn, connectionID, userID)
	contextTables := mergeContext(vectorHits, neighborNames, s.contextK)
	return toDialectKind(connKind), contextTables, nil
}

func (s *Service) gatherContext(ctx context.Context, turn *contracts.ConversationTurn, connectionID, userID uuid.UUID) ([]contracts.VectorScored, []string) {
	var (
		vectorHits    []contracts.VectorScored
		neighborNames []string
		wg            sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		vector, err := s.embedder.Embed(ctx, turn.UserText)
		if err != nil {
			s.logger.Warn("embedding user text for context retrieval failed: %v", err)
			return
		}
		hits, err := s.vectors.Search(ctx, vector, s.contextK, contracts.VectorFilter{UserID: turn.UserID, ConnectionID: turn.ConnectionID})
		if err != nil {
			s.logger.Warn("vector context retrieval failed: %v", err)
			return
		}
		vectorHits = hits
	}()

	if len(turn.SeedTables) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			neighborNames = s.relatedToSeeds(ctx, connectionID, turn.SeedTables)
		}()
	}

	wg.Wait()
	return vectorHits, neighborNames
}

// relatedToSeeds asks GraphIndex for every table one hop out from each seed,
// one call per seed since RelatedTables takes a single seed table, merging
// the results into a deduplicated, distance-ordered name list.
func (s *Service) relatedToSeeds(ctx context.Context, connectionID uuid.UUID, seeds []string) []string {
	type found struct {
		name     string
		distance int
	}
	var (
		all []found
		mu  sync.Mutex
		wg  sync.WaitGroup
	)
	for _, seed := range seeds {
		seed := seed
		wg.Add(1)
		go func() {
			defer wg.Done()
			related, err := s.graph.RelatedTables(ctx, connectionID, seed, defaultGraphDepth)
			if err != nil {
				s.logger.Warn("graph neighbor lookup for seed %s failed: %v", seed, err)
				return
			}
			mu.Lock()
			for _, r := range related {
				all = append(all, found{name: r.Table, distance: r.Distance})
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, len(all))
	names := make([]string, 0, len(all))
	for _, f := range all {
		if seen[f.name] {
			continue
		}
		seen[f.name] = true
		names = append(names, f.name)
	}
	return names
}

// mergeContext combines VectorIndex hits (each carrying its own columns
// and relationships) with GraphIndex neighbor names (name only) into the
// QuerySynthesizer's context list, capped at k entries with vector hits
// taking priority since they are ranked by semantic relevance.
func mergeContext(vectorHits []contracts.VectorScored, neighborNames []string, k int) []contracts.ContextTable {
	seen := make(map[string]bool, len(vectorHits)+len(neighborNames))
	tables := make([]contracts.ContextTable, 0, k)

	for _, hit := range vectorHits {
		if len(tables) >= k {
			break
		}
		name := hit.Payload["tableName"]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tables = append(tables, contextTableFromPayload(hit.Payload))
	}
	for _, name := range neighborNames {
		if len(tables) >= k {
			break
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		tables = append(tables, contracts.ContextTable{Name: name})
	}
	return tables
}

// contextTableFromPayload decodes the JSON-encoded "columns" field a
// VectorIndex payload carries and derives its foreign-key relationships
// from it, mirroring how SchemaIngestor emits GraphIndex edges.
func contextTableFromPayload(payload map[string]string) contracts.ContextTable {
	table := contracts.ContextTable{Name: payload["tableName"]}

	var columns []contracts.Column
	if raw := payload["columns"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &columns); err == nil {
			table.Columns = columns
		}
	}

	connectionID := payload["connectionId"]
	for _, col := range table.Columns {
		if !col.IsForeignKey {
			continue
		}
		table.Relationships = append(table.Relationships, contracts.TableRelationship{
			ConnectionID: connectionID,
			FromTable:    table.Name,
			FromColumn:   col.Name,
			ToTable:      col.ReferencedTable,
			ToColumn:     col.ReferencedColumn,
			Kind:         contracts.ForeignKey,
		})
	}
	return table
}

func tableNames(tables []contracts.ContextTable) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

// translateTimeout reports Timeout when ctx's deadline is what actually
// caused err, so a caller sees the reason per the propagation policy
// rather than whatever error shape the failing collaborator happened to
// return for a cancelled context.
func translateTimeout(ctx context.Context, err error) *contracts.Error {
	if ctx.Err() != nil {
		return contracts.NewError(contracts.ErrTimeout, "request deadline exceeded")
	}
	return contracts.AsError(err)
}

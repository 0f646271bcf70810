package executor

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
)

// denyRule pairs a denylisted keyword with the compiled whole-word pattern
// used to find it, so a match can report which keyword triggered it
// without having to parse that back out of the regexp itself.
type denyRule struct {
	keyword string
	pattern *regexp.Regexp
}

// Service implements the QueryExecutor procedure: validate, then dispatch
// to ConnectionManager for the live handle. It never holds a driver handle
// itself.
type Service struct {
	conn     ConnectionRunner
	denylist []denyRule
	warnOnly bool
	logger   *logging.Logger
}

// NewService binds the component's collaborators. A nil or empty denylist
// falls back to defaultDenylist.
func NewService(conn ConnectionRunner, denylist []string, warnOnly bool, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewLoggerWithName("query-executor")
	}
	if len(denylist) == 0 {
		denylist = defaultDenylist
	}
	return &Service{
		conn:     conn,
		denylist: compileDenylist(denylist),
		warnOnly: warnOnly,
		logger:   logger,
	}
}

func compileDenylist(keywords []string) []denyRule {
	rules := make([]denyRule, 0, len(keywords))
	for _, kw := range keywords {
		rules = append(rules, denyRule{
			keyword: kw,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}
	return rules
}

// Validate inspects query against the configured denylist. A match returns
// Blocked with the offending keyword unless warnOnly is set, in which case
// the match is logged and the query is allowed through.
func (s *Service) Validate(query string) error {
	keyword, blocked := s.matchDenylist(query)
	if !blocked {
		return nil
	}
	if s.warnOnly {
		s.logger.Warn("query matches denylisted keyword %q (warn-only, not blocked): %s", keyword, query)
		return nil
	}
	return contracts.NewErrorf(contracts.ErrBlocked, "query contains denylisted keyword %q", keyword)
}

func (s *Service) matchDenylist(query string) (string, bool) {
	normalized := strings.TrimSpace(query)
	for _, rule := range s.denylist {
		if rule.pattern.MatchString(normalized) {
			return rule.keyword, true
		}
	}
	return "", false
}

// Execute validates query, then runs it on connectionID's live connection
// owned by userID, bounding the result at maxRows. maxRows==0 is a literal
// zero-row budget, not "use the default": it fetches a single probe row,
// returns no data rows, and reports Truncated iff that probe row existed.
// A negative maxRows is treated the same way, since there is no sane
// positive budget to infer from it.
func (s *Service) Execute(ctx context.Context, query, connectionID, userID string, maxRows int) (contracts.QueryResult, error) {
	if err := s.Validate(query); err != nil {
		return contracts.QueryResult{}, err
	}
	if maxRows < 0 {
		maxRows = 0
	}

	start := time.Now()
	// Ask for one extra row so a full maxRows-worth of driver results can
	// be distinguished from a result that was actually truncated.
	rows, err := s.conn.Query(ctx, query, connectionID, userID, maxRows+1)
	if err != nil {
		ce := contracts.AsError(err)
		if ce.Kind == contracts.ErrNotFound {
			return contracts.QueryResult{}, ce
		}
		return contracts.QueryResult{}, contracts.NewErrorf(contracts.ErrDriverError, "%v", err)
	}

	truncated := len(rows.Data) > maxRows
	if truncated {
		rows.Data = rows.Data[:maxRows]
	}

	return contracts.QueryResult{
		Columns:     rows.Columns,
		Rows:        rowsToSlice(rows.Data),
		RowCount:    len(rows.Data),
		ExecutionMs: time.Since(start).Milliseconds(),
		Truncated:   truncated,
	}, nil
}

func rowsToSlice(data []contracts.Row) [][]interface{} {
	out := make([][]interface{}, len(data))
	for i, row := range data {
		out[i] = row
	}
	return out
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// QueryOptions holds parameters for candidate queries.
type QueryOptions struct {
	// Query is an FTS5 full-text search over sentence text.
	Query string

	// Set restricts results to one candidate set.
	Set string

	// Label matches candidates with either span carrying it.
	Label string

	// DocID restricts results to one document.
	DocID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Set == "" && q.Label == "" && q.DocID == ""
}

// SpanResult is one span of a stored candidate with its surface text.
type SpanResult struct {
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Text  string `json:"text" yaml:"text"`
}

// QueryResult is a stored candidate with its sentence.
type QueryResult struct {
	Set      string              `json:"set" yaml:"set"`
	ID       int                 `json:"id" yaml:"id"`
	Kind     types.CandidateKind `json:"kind" yaml:"kind"`
	DocID    string              `json:"doc_id" yaml:"doc_id"`
	SentID   int                 `json:"sent_id" yaml:"sent_id"`
	Sentence string              `json:"sentence" yaml:"sentence"`
	Spans    []SpanResult        `json:"spans" yaml:"spans"`
}

// Retrieve queries stored candidates. Full-text queries are ranked by
// relevance; structured-only queries are ordered by set and candidate id.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	const columns = `c.set_name, c.id, st.kind, se.doc_id, se.sent_id, se.text,
		c.start1, c.end1, c.label1, c.text1, c.start2, c.end2, c.label2, c.text2`

	if useFTS {
		qb.WriteString(`SELECT ` + columns + `
			FROM sentences_fts
			JOIN sentences se ON se.rowid = sentences_fts.rowid
			JOIN candidates c ON c.sentence = se.rowid
			JOIN sets st ON st.name = c.set_name
			WHERE sentences_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + columns + `
			FROM candidates c
			JOIN sentences se ON se.rowid = c.sentence
			JOIN sets st ON st.name = c.set_name
			WHERE 1=1`)
	}

	if opts.Set != "" {
		qb.WriteString(` AND c.set_name = ?`)
		args = append(args, opts.Set)
	}
	if opts.Label != "" {
		qb.WriteString(` AND (c.label1 = ? OR c.label2 = ?)`)
		args = append(args, opts.Label, opts.Label)
	}
	if opts.DocID != "" {
		qb.WriteString(` AND se.doc_id = ?`)
		args = append(args, opts.DocID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY sentences_fts.rank, c.set_name, c.id`)
	} else {
		qb.WriteString(` ORDER BY c.set_name, c.id`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying candidate store: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr           QueryResult
			kind         string
			first        SpanResult
			start2, end2 sql.NullInt64
			label2       sql.NullString
			text2        sql.NullString
		)
		if err := rows.Scan(
			&qr.Set, &qr.ID, &kind, &qr.DocID, &qr.SentID, &qr.Sentence,
			&first.Start, &first.End, &first.Label, &first.Text,
			&start2, &end2, &label2, &text2,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		qr.Kind = types.CandidateKind(kind)
		qr.Spans = []SpanResult{first}
		if start2.Valid {
			qr.Spans = append(qr.Spans, SpanResult{
				Start: int(start2.Int64),
				End:   int(end2.Int64),
				Label: label2.String,
				Text:  text2.String,
			})
		}
		results = append(results, qr)
	}

	return results, rows.Err()
}

// SetInfo describes one indexed candidate set.
type SetInfo struct {
	Name       string              `json:"name" yaml:"name"`
	Kind       types.CandidateKind `json:"kind" yaml:"kind"`
	Candidates int                 `json:"candidates" yaml:"candidates"`
}

// Sets lists the indexed candidate sets by name.
func (s *Store) Sets(ctx context.Context) ([]SetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, kind, candidates FROM sets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing sets: %w", err)
	}
	defer rows.Close()

	var sets []SetInfo
	for rows.Next() {
		var (
			info SetInfo
			kind string
		)
		if err := rows.Scan(&info.Name, &kind, &info.Candidates); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		info.Kind = types.CandidateKind(kind)
		sets = append(sets, info)
	}
	return sets, rows.Err()
}

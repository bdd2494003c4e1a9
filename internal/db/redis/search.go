package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/hirestack/candidex/internal/db"
)

// SearchTags runs an attribute-filtered lookup via FT.SEARCH.
// Tag fields match any-of within a field and all-of across fields.
func (s *Store) SearchTags(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	queryStr := buildTagQuery(q)
	if queryStr == "" {
		queryStr = "*"
	}

	args := []string{q.IndexName, queryStr}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw)
}

// SearchText runs a full-text lookup over a single TEXT field via FT.SEARCH.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	queryStr := fmt.Sprintf("@%s:(%s)", q.Field, escapeText(q.Query))

	args := []string{q.IndexName, queryStr}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw)
}

// SearchSimilar runs a fuzzy lookup (edit distance 1 per term) over a TEXT field.
func (s *Store) SearchSimilar(ctx context.Context, q *db.SimilarQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	terms := strings.Fields(escapeText(q.Text))
	for i, t := range terms {
		terms[i] = "%" + t + "%"
	}
	queryStr := fmt.Sprintf("@%s:(%s)", q.Field, strings.Join(terms, " "))

	args := []string{q.IndexName, queryStr,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw)
}

// --- Query building ---

// buildTagQuery assembles the filter string: tag clauses are OR within a
// field, AND across fields, plus an optional experience range.
func buildTagQuery(q *db.TagQuery) string {
	var parts []string

	for field, values := range q.Tags {
		escaped := make([]string, 0, len(values))
		for _, v := range values {
			if v == "" {
				continue
			}
			escaped = append(escaped, escapeTag(v))
		}
		if len(escaped) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, "|")))
	}

	if q.MinExperience != nil || q.MaxExperience != nil {
		lo, hi := "-inf", "+inf"
		if q.MinExperience != nil {
			lo = strconv.FormatFloat(*q.MinExperience, 'f', -1, 64)
		}
		if q.MaxExperience != nil {
			hi = strconv.FormatFloat(*q.MaxExperience, 'f', -1, 64)
		}
		parts = append(parts, fmt.Sprintf("@experience:[%s %s]", lo, hi))
	}

	return strings.Join(parts, " ")
}

// tagEscaper escapes characters with query syntax meaning inside TAG values.
var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>", "{", "\\{", "}", "\\}",
	"[", "\\[", "]", "\\]", "\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;",
	"!", "\\!", "@", "\\@", "#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+",
	"=", "\\=", "~", "\\~", "|", "\\|", "/", "\\/", " ", "\\ ",
)

func escapeTag(s string) string {
	return tagEscaper.Replace(s)
}

// textEscaper neutralizes query operators in free text while keeping terms searchable.
var textEscaper = strings.NewReplacer(
	"@", "\\@", "{", "\\{", "}", "\\}", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "|", "\\|", "-", "\\-", "\"", "\\\"",
	"~", "\\~", "*", "\\*", "%", "\\%", ":", "\\:",
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// --- Result parsing ---

// parseSearchResult parses a RESP2 WITHSCORES reply:
// [total, key1, score1, fields1, key2, score2, fields2, ...]
func parseSearchResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		var score float64
		if scoreStr, err := raw[i+1].ToString(); err == nil {
			score, _ = strconv.ParseFloat(scoreStr, 64)
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(raw []rueidis.RedisMessage) map[string]string {
	fields := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		k, err := raw[i].ToString()
		if err != nil {
			continue
		}
		v, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		fields[k] = v
	}
	return fields
}

package query

import (
	"fmt"
	"strings"
)

// Filter field sentinels. "all" and the empty string are equivalent: the
// condition is inactive.
const (
	MatchAll       = "all"
	FieldHostname  = "hostname"
	FieldShareName = "share_name"
)

// SensitiveFileCount is the aggregate counting distinct sensitive files per
// share under the join condition. The FILTER clause matters: on a LEFT JOIN
// the unmatched row's (NULL, NULL) pair is a non-null composite, so a bare
// COUNT(DISTINCT ...) would report 1 for a share with no matching files.
const SensitiveFileCount = "COUNT(DISTINCT (sf.file_path, sf.file_name)) FILTER (WHERE sf.id IS NOT NULL)"

// ShareFilter describes the optional, user-supplied conditions applied when
// listing shares. All active conditions combine with AND. The zero value
// matches everything scoped to the latest share row per (hostname,
// share_name) pair.
//
// Scope is an explicit field rather than an implicit "no session id" branch:
// SessionID > 0 restricts to that session's rows, otherwise LatestOnly
// decides whether the listing deduplicates by natural key (keeping the most
// recent scan_time) or returns every row.
type ShareFilter struct {
	Search        string
	DetectionType string
	MatchField    string
	MatchValue    string
	SessionID     int64
	LatestOnly    bool
}

// Predicate is the output of ShareFilter.Build: SQL fragments with
// positional placeholders already numbered, ready for the store to splice
// into its share listing query.
//
// Join is ANDed into the LEFT JOIN against sensitive_files, so the per-share
// sensitive_file_count only counts rows matching the detection-type
// condition. Having is non-empty only when a detection type is requested: a
// share with zero matching files is excluded, not annotated with count 0.
type Predicate struct {
	Join   string
	Where  []string
	Having string
	Args   []interface{}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE metacharacters so user input matches as a literal
// substring. File names like "Q1 50%.xlsx" or "db_backup" are common in
// share inventories.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// WhereClause renders the WHERE fragments as one AND-joined condition, or
// "TRUE" when no condition is active.
func (p Predicate) WhereClause() string {
	if len(p.Where) == 0 {
		return "TRUE"
	}
	return strings.Join(p.Where, " AND ")
}

// Build translates the filter into a Predicate. Placeholder numbering starts
// at startArg; arguments are appended in the same order the fragments appear
// in the final query (join condition first, then where, then having reuses
// the join's argument).
func (f ShareFilter) Build(startArg int) Predicate {
	p := Predicate{}
	argIdx := startArg

	// The detection-type condition lives on the join so the aggregate only
	// sees matching rows.
	if f.DetectionType != "" && f.DetectionType != MatchAll {
		p.Join = fmt.Sprintf(" AND sf.detection_type = $%d", argIdx)
		p.Args = append(p.Args, f.DetectionType)
		argIdx++
		p.Having = SensitiveFileCount + " > 0"
	}

	if f.SessionID > 0 {
		p.Where = append(p.Where, fmt.Sprintf("s.session_id = $%d", argIdx))
		p.Args = append(p.Args, f.SessionID)
		argIdx++
	} else if f.LatestOnly {
		// Most recent row per natural key across all sessions, id as the
		// deterministic tie-break.
		p.Where = append(p.Where, `s.id IN (
			SELECT DISTINCT ON (hostname, share_name) id FROM shares
			ORDER BY hostname, share_name, scan_time DESC, id DESC
		)`)
	}

	if f.MatchField != "" && f.MatchField != MatchAll && f.MatchValue != "" {
		column := "s.hostname"
		if f.MatchField == FieldShareName {
			column = "s.share_name"
		}
		p.Where = append(p.Where, fmt.Sprintf("%s ILIKE $%d", column, argIdx))
		p.Args = append(p.Args, "%"+escapeLike(f.MatchValue)+"%")
		argIdx++
	}

	if f.Search != "" {
		p.Where = append(p.Where, fmt.Sprintf(`(
			s.hostname ILIKE $%[1]d
			OR s.share_name ILIKE $%[1]d
			OR EXISTS (
				SELECT 1 FROM sensitive_files x
				WHERE x.share_id = s.id AND (x.file_name ILIKE $%[1]d OR x.file_path ILIKE $%[1]d)
			)
			OR EXISTS (
				SELECT 1 FROM root_files rf
				WHERE rf.share_id = s.id AND rf.file_name ILIKE $%[1]d
			)
		)`, argIdx))
		p.Args = append(p.Args, "%"+escapeLike(f.Search)+"%")
	}

	return p
}

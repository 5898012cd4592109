package detect

import (
	"strconv"
	"strings"

	"github.com/huangsam/querylens/core/fingerprint"
	"github.com/huangsam/querylens/schema"
)

// clauseEnd holds keywords that end a FROM item, a join condition or a WHERE clause.
var clauseEnd = map[string]struct{}{
	"join": {}, "inner": {}, "left": {}, "right": {}, "full": {}, "cross": {}, "natural": {},
	"where": {}, "group": {}, "order": {}, "having": {}, "limit": {}, "qualify": {},
	"union": {}, "intersect": {}, "except": {}, "minus": {}, "window": {}, ";": {},
	"asof": {}, "match_condition": {},
}

// whereEnd ends a WHERE clause.
var whereEnd = map[string]struct{}{
	"group": {}, "order": {}, "having": {}, "limit": {}, "qualify": {}, "window": {},
	"union": {}, "intersect": {}, "except": {}, "minus": {}, ";": {},
}

// filterFuncs wrap a column and defeat partition pruning when used in WHERE.
var filterFuncs = map[string]struct{}{
	"year": {}, "month": {}, "day": {}, "dayofweek": {}, "dayofmonth": {}, "hour": {}, "week": {}, "quarter": {},
	"date": {}, "to_date": {}, "date_trunc": {}, "trunc": {}, "extract": {}, "date_part": {}, "to_timestamp": {},
	"upper": {}, "lower": {}, "trim": {}, "ltrim": {}, "rtrim": {}, "substr": {}, "substring": {}, "left": {}, "right": {},
	"cast": {}, "try_cast": {}, "to_char": {}, "to_varchar": {}, "to_number": {}, "coalesce": {}, "nvl": {}, "ifnull": {},
	"concat": {}, "replace": {}, "abs": {}, "round": {}, "floor": {}, "ceil": {},
}

// nonColumn are words that may appear inside a function call without being
// a column reference.
var nonColumn = map[string]struct{}{
	"as": {}, "from": {}, "null": {}, "true": {}, "false": {}, "and": {}, "or": {}, "not": {}, "interval": {},
	"date": {}, "time": {}, "timestamp": {}, "timestamp_ntz": {}, "timestamp_ltz": {}, "timestamp_tz": {},
	"varchar": {}, "string": {}, "text": {}, "char": {}, "number": {}, "numeric": {}, "decimal": {},
	"int": {}, "integer": {}, "bigint": {}, "float": {}, "double": {}, "boolean": {},
	"year": {}, "month": {}, "day": {}, "hour": {}, "minute": {}, "second": {}, "week": {}, "quarter": {},
	"current_date": {}, "current_timestamp": {}, "current_time": {}, "sysdate": {}, "getdate": {},
	"both": {}, "leading": {}, "trailing": {},
}

// checkSelectStar flags a * projection item at the same depth as its SELECT.
func checkSelectStar(b *Batch, i int) []schema.Finding {
	tokens := b.Tokens[i]
	for s, tok := range tokens {
		if !tok.Is("select") || existsSubquery(tokens, s) {
			continue
		}
		if star, ok := projectedStar(tokens, s); ok {
			return one(queryHit(schema.IssueSelectStar, &b.Records[i], star))
		}
	}
	return nil
}

// existsSubquery reports whether the SELECT at s opens EXISTS (SELECT ...).
func existsSubquery(tokens []fingerprint.Token, s int) bool {
	return s >= 2 && tokens[s-1].Is("(") && tokens[s-2].Is("exists")
}

func projectedStar(tokens []fingerprint.Token, s int) (string, bool) {
	depth := tokens[s].Depth
	for j := s + 1; j < len(tokens); j++ {
		tok := tokens[j]
		if tok.Depth < depth || (tok.Depth == depth && (tok.Is("from") || tok.Is(";"))) {
			return "", false
		}
		if tok.Depth != depth || !tok.Is("*") {
			continue
		}
		prev := tokens[j-1]
		switch {
		case prev.Is("."):
			if j >= 2 {
				return tokens[j-2].Text + ".*", true
			}
			return "*", true
		case prev.Is("select") || prev.Is(",") || prev.Is("distinct") || prev.Is("all") || prev.IsLiteral():
			// a literal before * only qualifies after TOP n
			if prev.IsLiteral() && (j < 3 || !tokens[j-2].Is("top")) {
				continue
			}
			return "SELECT *", true
		}
	}
	return "", false
}

// checkCartesianJoin flags CROSS JOIN, joins with no ON or USING, and row
// explosion relative to the bytes read.
func checkCartesianJoin(b *Batch, i int) []schema.Finding {
	rec := &b.Records[i]
	tokens := b.Tokens[i]
	var reasons []string

	crossJoins, bareJoins := 0, 0
	for j, tok := range tokens {
		if !tok.Is("join") {
			continue
		}
		if j > 0 && tokens[j-1].Is("cross") {
			crossJoins++
			continue
		}
		if joinMissingCondition(tokens, j) {
			bareJoins++
		}
	}
	if crossJoins > 0 {
		reasons = append(reasons, pluralize(crossJoins, "explicit CROSS JOIN", "explicit CROSS JOINs"))
	}
	if bareJoins > 0 {
		reasons = append(reasons, pluralize(bareJoins, "JOIN without ON or USING", "JOINs without ON or USING"))
	}

	th := b.Thresholds
	if rec.RowsProduced > th.CartesianRowFloor {
		bytes := max(rec.BytesScanned, 1)
		if float64(rec.RowsProduced)/float64(bytes) > th.CartesianRowsPerByte {
			reasons = append(reasons, fmtCount(rec.RowsProduced, "row", "rows")+" produced from "+fmtBytes(rec.BytesScanned)+" scanned")
		}
	}

	if len(reasons) == 0 {
		return nil
	}
	return one(queryHit(schema.IssueCartesianJoin, rec, strings.Join(reasons, "; ")))
}

// joinMissingCondition scans from the JOIN at j to the end of its FROM item.
func joinMissingCondition(tokens []fingerprint.Token, j int) bool {
	if j > 0 && tokens[j-1].Is("natural") {
		return false
	}
	// lateral joins such as JOIN LATERAL FLATTEN(...) or JOIN TABLE(fn(...)) correlate implicitly
	if j+1 < len(tokens) && (tokens[j+1].Is("lateral") || tokens[j+1].Is("table") || tokens[j+1].Is("unnest")) {
		return false
	}
	depth := tokens[j].Depth
	for k := j + 1; k < len(tokens); k++ {
		tok := tokens[k]
		if tok.Depth < depth {
			return true
		}
		if tok.Depth > depth {
			continue
		}
		if tok.Is("on") || tok.Is("using") {
			return false
		}
		if _, ok := clauseEnd[tok.Text]; ok {
			return true
		}
	}
	return true
}

// checkUnionDedup flags UNION (or UNION DISTINCT) without ALL. Records carry no
// per-branch row counts, so every deduplicating UNION is reported.
func checkUnionDedup(b *Batch, i int) []schema.Finding {
	tokens := b.Tokens[i]
	n := 0
	for j, tok := range tokens {
		if tok.Is("union") && (j+1 >= len(tokens) || !tokens[j+1].Is("all")) {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return one(queryHit(schema.IssueUnionDedup, &b.Records[i], pluralize(n, "UNION", "UNIONs")))
}

// checkFilterFunction flags WHERE predicates that apply a function to a column.
func checkFilterFunction(b *Batch, i int) []schema.Finding {
	tokens := b.Tokens[i]
	for w, tok := range tokens {
		if !tok.Is("where") {
			continue
		}
		depth := tok.Depth
		for k := w + 1; k < len(tokens); k++ {
			cur := tokens[k]
			if cur.Depth < depth {
				break
			}
			if cur.Depth == depth {
				if _, ok := whereEnd[cur.Text]; ok {
					break
				}
			}
			if cur.Kind != fingerprint.Word || k+1 >= len(tokens) || !tokens[k+1].Is("(") {
				continue
			}
			if _, ok := filterFuncs[cur.Text]; !ok {
				continue
			}
			if col, ok := columnArgument(tokens, k+1); ok {
				return one(queryHit(schema.IssueFilterFunction, &b.Records[i], cur.Text+"("+col+")"))
			}
		}
	}
	return nil
}

// columnArgument returns the first column reference inside the parenthesized
// argument list opened at open.
func columnArgument(tokens []fingerprint.Token, open int) (string, bool) {
	inner := tokens[open].Depth + 1
	for k := open + 1; k < len(tokens); k++ {
		tok := tokens[k]
		if tok.Depth < inner {
			return "", false
		}
		switch tok.Kind {
		case fingerprint.QuotedIdent:
			return tok.Text, true
		case fingerprint.Word:
			if _, skip := nonColumn[tok.Text]; skip {
				continue
			}
			if k+1 < len(tokens) && (tokens[k+1].Is("(") || tokens[k+1].Is(".")) {
				if tokens[k+1].Is(".") && k+2 < len(tokens) && tokens[k+2].Kind == fingerprint.Word {
					return tok.Text + "." + tokens[k+2].Text, true
				}
				continue
			}
			return tok.Text, true
		}
	}
	return "", false
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return strconv.Itoa(n) + " " + plural
}

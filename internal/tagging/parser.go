package tagging

import (
	"fmt"
	"regexp"
	"strings"
)

// Operator combines sibling nodes of a Query.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// Node is one element of a parsed tag expression: either a single Term or a
// nested Query group. The closed set keeps the filter compiler's type switch
// exhaustive.
type Node interface {
	node()
}

// Term is a single tag criterion. Name is always canonical (normalized and
// alias-resolved); an empty Type matches the tag regardless of type.
type Term struct {
	Name    string
	Type    string
	Exclude bool
}

func (Term) node() {}

// Query is an ordered group of terms and nested groups combined with a
// single operator. Queries are transient: built per search request,
// discarded once the filter is compiled.
type Query struct {
	Operator Operator
	Nodes    []Node
}

func (Query) node() {}

// Empty reports whether the query places no restriction at all.
func (q Query) Empty() bool {
	return len(q.Nodes) == 0
}

var (
	quotedRe  = regexp.MustCompile(`"([^"]+)"`)
	orSplitRe = regexp.MustCompile(`(?i)\s+OR\s+`)
)

// Parse turns a raw search expression into a Query tree.
//
// The grammar is deliberately forgiving: OR (any case, whitespace-separated)
// splits top-level branches, whitespace separates implicitly-ANDed terms, a
// leading "-" excludes, "type:name" scopes a term to a tag type and quoted
// strings protect spaces. Parsing is total: malformed input (unbalanced
// quotes, stray colons) degrades to barewords instead of failing, because a
// search box must never reject its input. OR only applies at the top level;
// parenthesized grouping is not part of the grammar.
//
//	Parse(`fantasy -romance genre:scifi`, r)
//	Parse(`author:"Gene Wolfe" OR author:"Ursula Le Guin"`, r)
func Parse(expr string, r *Resolver) Query {
	if strings.TrimSpace(expr) == "" {
		return Query{Operator: OperatorAnd}
	}

	// Pull quoted substrings out first so their spaces and reserved
	// characters survive tokenization. Unmatched quote characters stay in
	// place and end up normalized away as part of a bareword.
	var quotedValues []string
	for i, match := range quotedRe.FindAllStringSubmatch(expr, -1) {
		placeholder := quotedPlaceholder(i)
		quotedValues = append(quotedValues, match[1])
		expr = strings.Replace(expr, match[0], placeholder, 1)
	}

	branches := orSplitRe.Split(expr, -1)
	if len(branches) == 1 {
		return parseAndExpression(expr, quotedValues, r)
	}

	query := Query{Operator: OperatorOr}
	for _, branch := range branches {
		sub := parseAndExpression(branch, quotedValues, r)
		switch len(sub.Nodes) {
		case 0:
		case 1:
			query.Nodes = append(query.Nodes, sub.Nodes[0])
		default:
			query.Nodes = append(query.Nodes, sub)
		}
	}
	return query
}

// parseAndExpression parses a branch containing no OR operators into an
// implicit AND group.
func parseAndExpression(branch string, quotedValues []string, r *Resolver) Query {
	query := Query{Operator: OperatorAnd}

	for _, token := range strings.Fields(branch) {
		for i, value := range quotedValues {
			token = strings.ReplaceAll(token, quotedPlaceholder(i), value)
		}

		exclude := strings.HasPrefix(token, "-")
		if exclude {
			token = token[1:]
		}

		var tagType string
		if idx := strings.Index(token, ":"); idx >= 0 {
			tagType = token[:idx]
			token = token[idx+1:]
		}

		name := r.Resolve(token)
		if name == "" {
			// Bare "-" or a token that normalized to nothing.
			continue
		}

		query.Nodes = append(query.Nodes, Term{
			Name:    name,
			Type:    tagType,
			Exclude: exclude,
		})
	}

	return query
}

func quotedPlaceholder(i int) string {
	return fmt.Sprintf("__QUOTED_%d__", i)
}

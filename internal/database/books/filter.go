package books

import (
	"strings"

	"gorm.io/gorm"

	"github.com/nvoss/shelfmark/internal/tagging"
)

// ApplyTagFilter parses a booru-style tag expression and attaches the
// compiled filter to tx. An empty expression (or one that parses to no
// terms) returns tx unmodified, so an empty search box matches everything.
//
// The compiler never validates tag existence: a term naming an unknown tag
// simply matches zero books.
func (r *Repository) ApplyTagFilter(tx *gorm.DB, expr string, resolver *tagging.Resolver) *gorm.DB {
	query := tagging.Parse(expr, resolver)

	cond, args := buildTagCondition(query)
	if cond == "" {
		return tx
	}
	return tx.Where(cond, args...)
}

// buildTagCondition walks the expression tree and emits a single SQL
// predicate over books.id. Each term becomes a membership test against the
// book_tags edge set, negated for exclusions; siblings combine with the
// group's operator and nested groups are parenthesized. The set algebra
// itself is the database's job.
func buildTagCondition(query tagging.Query) (string, []any) {
	var (
		parts []string
		args  []any
	)

	for _, node := range query.Nodes {
		switch n := node.(type) {
		case tagging.Term:
			cond, termArgs := termCondition(n)
			parts = append(parts, cond)
			args = append(args, termArgs...)
		case tagging.Query:
			cond, subArgs := buildTagCondition(n)
			if cond == "" {
				continue
			}
			parts = append(parts, cond)
			args = append(args, subArgs...)
		}
	}

	if len(parts) == 0 {
		return "", nil
	}
	if len(parts) == 1 {
		return parts[0], args
	}

	separator := " AND "
	if query.Operator == tagging.OperatorOr {
		separator = " OR "
	}
	return "(" + strings.Join(parts, separator) + ")", args
}

func termCondition(term tagging.Term) (string, []any) {
	sub := "SELECT book_id FROM book_tags JOIN tags ON tags.id = book_tags.tag_id WHERE tags.name = ?"
	args := []any{term.Name}

	if term.Type != "" {
		sub += " AND tags.type = ?"
		args = append(args, term.Type)
	}

	membership := "IN"
	if term.Exclude {
		membership = "NOT IN"
	}
	return "books.id " + membership + " (" + sub + ")", args
}

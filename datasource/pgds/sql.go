package pgds

import (
	"fmt"
	"strings"

	"github.com/veldtlabs/steward/model"
)

// sqlBuilder accumulates positional arguments while predicates fold into
// SQL fragments.
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// fold renders one predicate node into a SQL condition. Column names come
// from the resolve callback so the caller controls the field-to-column map;
// unknown fields are an error rather than a silent non-match.
func (b *sqlBuilder) fold(pred model.Predicate, resolve func(string) (string, error)) (string, error) {
	switch p := pred.(type) {
	case model.AndPredicate:
		return b.foldGroup(p.Predicates, " AND ", resolve)
	case model.OrPredicate:
		return b.foldGroup(p.Predicates, " OR ", resolve)
	case model.StringPredicate:
		col, err := resolve(p.Field)
		if err != nil {
			return "", err
		}
		return b.foldString(col, p)
	case model.NumberPredicate:
		col, err := resolve(p.Field)
		if err != nil {
			return "", err
		}
		op, ok := numberSQLOps[p.Op]
		if !ok {
			return "", fmt.Errorf("pgds: unsupported number op %q", p.Op)
		}
		return fmt.Sprintf("%s %s %s", col, op, b.bind(p.Value)), nil
	case model.BoolPredicate:
		col, err := resolve(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", col, b.bind(p.Value)), nil
	case model.DatePredicate:
		col, err := resolve(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s::date = %s", col, b.bind(p.Value.Format("2006-01-02"))), nil
	case model.DateRangePredicate:
		col, err := resolve(p.Field)
		if err != nil {
			return "", err
		}
		var parts []string
		if p.After != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", col, b.bind(*p.After)))
		}
		if p.Before != nil {
			parts = append(parts, fmt.Sprintf("%s <= %s", col, b.bind(*p.Before)))
		}
		if len(parts) == 0 {
			return "TRUE", nil
		}
		return strings.Join(parts, " AND "), nil
	case model.InPredicate:
		col, err := resolve(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = ANY(%s)", col, b.bind(p.Values)), nil
	}
	return "", fmt.Errorf("pgds: unsupported predicate %T", pred)
}

func (b *sqlBuilder) foldGroup(preds []model.Predicate, sep string, resolve func(string) (string, error)) (string, error) {
	if len(preds) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, 0, len(preds))
	for _, pred := range preds {
		frag, err := b.fold(pred, resolve)
		if err != nil {
			return "", err
		}
		parts = append(parts, frag)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (b *sqlBuilder) foldString(col string, p model.StringPredicate) (string, error) {
	switch p.Op {
	case model.StringExact:
		if p.CaseSensitive {
			return fmt.Sprintf("%s = %s", col, b.bind(p.Value)), nil
		}
		return fmt.Sprintf("lower(%s) = lower(%s)", col, b.bind(p.Value)), nil
	case model.StringStartsWith:
		return fmt.Sprintf("%s %s %s", col, likeOp(p.CaseSensitive), b.bind(likeEscape(p.Value)+"%")), nil
	case model.StringEndsWith:
		return fmt.Sprintf("%s %s %s", col, likeOp(p.CaseSensitive), b.bind("%"+likeEscape(p.Value))), nil
	case model.StringContains:
		return fmt.Sprintf("%s %s %s", col, likeOp(p.CaseSensitive), b.bind("%"+likeEscape(p.Value)+"%")), nil
	case model.StringPattern:
		if p.CaseSensitive {
			return fmt.Sprintf("%s ~ %s", col, b.bind(p.Value)), nil
		}
		return fmt.Sprintf("%s ~* %s", col, b.bind(p.Value)), nil
	}
	return "", fmt.Errorf("pgds: unsupported string op %q", p.Op)
}

var numberSQLOps = map[model.NumberOp]string{
	model.NumberEq:  "=",
	model.NumberGt:  ">",
	model.NumberGte: ">=",
	model.NumberLt:  "<",
	model.NumberLte: "<=",
}

func likeOp(caseSensitive bool) string {
	if caseSensitive {
		return "LIKE"
	}
	return "ILIKE"
}

// likeEscape neutralizes LIKE wildcards in user input.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// buildWhere folds the predicate conjunction into a WHERE clause body and
// its positional arguments. An empty predicate list yields "TRUE".
func buildWhere(preds []model.Predicate, resolve func(string) (string, error)) (string, []any, error) {
	b := &sqlBuilder{}
	clause, err := b.foldGroup(preds, " AND ", resolve)
	if err != nil {
		return "", nil, err
	}
	return clause, b.args, nil
}

// buildOrderBy renders the ORDER BY body, or "" when unordered.
func buildOrderBy(rules []model.SortRule, resolve func(string) (string, error)) (string, error) {
	if len(rules) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(rules))
	for _, rule := range rules {
		col, err := resolve(rule.Field)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if rule.Dir == model.SortDesc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

package database

import "strings"

// Where accumulates AND-ed predicates written with ? placeholders.
// Pass the final statement through sqlx.DB.Rebind before executing it.
type Where struct {
	parts []string
	args  []any
}

// And appends a predicate. The number of ? in expr must match len(args).
func (w *Where) And(expr string, args ...any) *Where {
	w.parts = append(w.parts, expr)
	w.args = append(w.args, args...)
	return w
}

// SQL returns " WHERE ..." or an empty string when no predicate was added.
func (w *Where) SQL() string {
	if len(w.parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.parts, " AND ")
}

// Args returns the bound values in predicate order.
func (w *Where) Args() []any {
	out := make([]any, len(w.args))
	copy(out, w.args)
	return out
}

// EscapeLike escapes LIKE wildcards so user input is matched literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

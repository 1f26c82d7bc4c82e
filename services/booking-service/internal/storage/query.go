package storage

import (
	"slices"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

// where accumulates AND-ed predicates. Each "?" in a clause is bound to the clause's argument.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *where) raw(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// next is the placeholder number for an argument appended after the predicates.
func (w *where) next() string {
	return "$" + strconv.Itoa(len(w.args)+1)
}

func listWhere(f model.Filter) *where {
	w := &where{}
	if !f.IncludeDeleted {
		w.raw("deleted_at IS NULL")
	}
	if len(f.Types) > 0 {
		types := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			types = append(types, string(t))
		}
		w.add("booking_type = ANY(?)", types)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		w.add("booking_status = ANY(?)", statuses)
	}
	if f.From != nil {
		w.add("start_at >= ?", *f.From)
	}
	if f.To != nil {
		w.add("start_at < ?", *f.To)
	}
	if f.SpaceName != "" {
		w.add("space_name = ?", f.SpaceName)
	}
	if f.Search != "" {
		w.add("(title ILIKE ? OR description ILIKE ? OR contact_name ILIKE ? OR contact_email ILIKE ? OR contact_phone ILIKE ?)",
			"%"+escapeLike(f.Search)+"%")
	}
	return w
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// spaceLockKeys returns the advisory lock keys for spaces, deduplicated and sorted so that
// concurrent writers always lock in the same order.
func spaceLockKeys(spaces []string) []string {
	seen := make(map[string]struct{}, len(spaces))
	keys := make([]string, 0, len(spaces))
	for _, s := range spaces {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		keys = append(keys, "booking-space:"+s)
	}
	slices.Sort(keys)
	return keys
}

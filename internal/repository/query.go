package repository

import (
	"context"
	"fmt"
	"strings"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
)

// filter accumulates WHERE conditions and their positional arguments. Each
// condition is a format string whose %d verbs receive the argument index.
type filter struct {
	conds []string
	args  []any
}

func (f *filter) add(cond string, arg any) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, strings.ReplaceAll(cond, "%d", fmt.Sprint(len(f.args))))
}

// raw adds a condition that takes no argument.
func (f *filter) raw(cond string) {
	f.conds = append(f.conds, cond)
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(f.conds, " AND ")
}

// next returns the index the next positional argument will take.
func (f *filter) next() int {
	return len(f.args) + 1
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// loadTags fetches the tags linked through joinTable to each owner ID.
func loadTags(ctx context.Context, q DBTX, joinTable, ownerColumn string, ownerIDs []uuid.UUID) (map[uuid.UUID][]domain.Tag, error) {
	out := make(map[uuid.UUID][]domain.Tag, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`
		SELECT j.%[2]s, t.id, t.name, t.created_at
		FROM %[1]s j
		JOIN tags t ON t.id = j.tag_id
		WHERE j.%[2]s = ANY($1::uuid[])
		ORDER BY t.name ASC
	`, joinTable, ownerColumn)

	rows, err := q.QueryContext(ctx, query, idStrings(ownerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner uuid.UUID
		var tag domain.Tag
		if err := rows.Scan(&owner, &tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		out[owner] = append(out[owner], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return out, nil
}

// replaceTags makes tagIDs the complete tag set of owner.
func replaceTags(ctx context.Context, q DBTX, joinTable, ownerColumn string, owner uuid.UUID, tagIDs []uuid.UUID) error {
	del := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, joinTable, ownerColumn)
	if _, err := q.ExecContext(ctx, del, owner); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	if len(tagIDs) == 0 {
		return nil
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (%s, tag_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING
	`, joinTable, ownerColumn)
	if _, err := q.ExecContext(ctx, ins, owner, idStrings(tagIDs)); err != nil {
		return fmt.Errorf("failed to set tags: %w", err)
	}
	return nil
}

package place

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"backend-places/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const placeSelect = `SELECT p.id::text, p.address, p.code, p.location_lat, p.location_lon, p.name,
		p.reward_checkin_points, p.type,
		ARRAY(
			SELECT t.name FROM place_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.place_id = p.id ORDER BY t.name COLLATE "C"
		) AS tags
	FROM places p`

// orderingFields maps the names accepted by the ordering query parameter to
// columns.
var orderingFields = map[string]string{
	"code": "p.code",
}

type ListParams struct {
	Search   string
	Ordering string
}

type Repository struct {
	db db.Querier
}

func NewRepository(db db.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, input Place) (Place, error) {
	input.ID = uuid.NewString()
	input.Tags = NormalizeTags(input.Tags)

	err := db.WithTx(ctx, r.db, func(tx db.Querier) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO places (id, address, code, location_lat, location_lon, name, reward_checkin_points, type)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, input.ID, input.Address, input.Code, input.Lat, input.Lon, input.Name, input.RewardCheckinPoints, input.Type)
		if err != nil {
			return err
		}
		return addTags(ctx, tx, input.ID, input.Tags)
	})
	if err != nil {
		return Place{}, err
	}
	return input, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Place, error) {
	return getPlace(ctx, r.db, id, false)
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Place, error) {
	var (
		conds []string
		args  []any
	)
	for _, term := range searchTerms(params.Search) {
		args = append(args, likePattern(term))
		conds = append(conds, "p.address ILIKE $"+strconv.Itoa(len(args)))
	}

	sql := placeSelect
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += orderClause(params.Ordering)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	places := []Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return places, nil
}

// Update locks the row, merges changes into it and writes it back. With
// partial set only supplied fields change.
func (r *Repository) Update(ctx context.Context, id string, changes Changes, partial bool) (Place, error) {
	var updated Place
	err := db.WithTx(ctx, r.db, func(tx db.Querier) error {
		current, err := getPlace(ctx, tx, id, true)
		if err != nil {
			return err
		}
		updated = changes.Apply(current, partial)

		_, err = tx.Exec(ctx, `
			UPDATE places
			SET address=$2, code=$3, location_lat=$4, location_lon=$5, name=$6,
			    reward_checkin_points=$7, type=$8
			WHERE id=$1
		`, updated.ID, updated.Address, updated.Code, updated.Lat, updated.Lon, updated.Name, updated.RewardCheckinPoints, updated.Type)
		if err != nil {
			return err
		}
		if changes.TagsChanged(partial) {
			return replaceTags(ctx, tx, updated.ID, updated.Tags)
		}
		return nil
	})
	if err != nil {
		return Place{}, err
	}
	return updated, nil
}

// Delete removes the place and returns it as it was before deletion. Tag
// associations go with it; the tags themselves stay.
func (r *Repository) Delete(ctx context.Context, id string) (Place, error) {
	var snapshot Place
	err := db.WithTx(ctx, r.db, func(tx db.Querier) error {
		var err error
		snapshot, err = getPlace(ctx, tx, id, true)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM places WHERE id=$1`, snapshot.ID)
		return err
	})
	if err != nil {
		return Place{}, err
	}
	return snapshot, nil
}

func getPlace(ctx context.Context, q db.Querier, id string, lock bool) (Place, error) {
	sql := placeSelect + " WHERE p.id = $1"
	if lock {
		sql += " FOR UPDATE"
	}
	p, err := scanPlace(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Place{}, ErrNotFound
	}
	if err != nil {
		return Place{}, err
	}
	return p, nil
}

func scanPlace(row pgx.Row) (Place, error) {
	var p Place
	if err := row.Scan(&p.ID, &p.Address, &p.Code, &p.Lat, &p.Lon, &p.Name, &p.RewardCheckinPoints, &p.Type, &p.Tags); err != nil {
		return Place{}, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, nil
}

func addTags(ctx context.Context, q db.Querier, placeID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO tags (name) SELECT unnest($1::text[])
		ON CONFLICT (name) DO NOTHING
	`, tags); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `
		INSERT INTO place_tags (place_id, tag_id)
		SELECT $1::uuid, id FROM tags WHERE name = ANY($2)
		ON CONFLICT DO NOTHING
	`, placeID, tags)
	return err
}

func replaceTags(ctx context.Context, q db.Querier, placeID string, tags []string) error {
	if _, err := q.Exec(ctx, `DELETE FROM place_tags WHERE place_id=$1`, placeID); err != nil {
		return err
	}
	return addTags(ctx, q, placeID, tags)
}

// searchTerms splits a search query on whitespace and commas. Every term has
// to match for a place to be listed. NUL characters are dropped.
func searchTerms(search string) []string {
	search = strings.ReplaceAll(search, "\x00", "")
	return strings.FieldsFunc(search, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// orderClause turns "code", "-code" or a comma separated list of such terms
// into an ORDER BY clause. Unknown fields are dropped; insertion order is
// always the final tie-breaker.
func orderClause(ordering string) string {
	var cols []string
	seen := map[string]bool{}
	for _, term := range strings.Split(ordering, ",") {
		term = strings.TrimSpace(term)
		name := strings.TrimPrefix(term, "-")
		col, ok := orderingFields[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		if strings.HasPrefix(term, "-") {
			col += " DESC"
		}
		cols = append(cols, col)
	}
	cols = append(cols, "p.seq")
	return " ORDER BY " + strings.Join(cols, ", ")
}

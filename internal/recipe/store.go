package recipe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/indigolab/indigo-core/internal/infrastructure/database"
)

// Store persists recipe versions. One recipe per lane is active at a time.
//
// Thread Safety:
//   - Safe for concurrent use; writes are serialised by the database's
//     single connection and each Upsert runs in one transaction.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore creates a recipe store on a migrated database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

const recipeColumns = `id, lane, name, cycle_type, fixed_hold_time, autopinbreak_enabled,
	num_autopinbreaks, attempt_time_s, thermal_temp_c, reflux_enabled, reflux_temp_c,
	purge_vac_switchpoint, stir_speed_rpm, purge_set_pressure, sha256, active, created_at`

// Upsert stores payload as the lane's active recipe.
//
// If the active recipe already has the payload's hash nothing is written and
// the result reports Updated=false. Otherwise the current active recipe is
// deactivated and a new version with its steps is inserted, all in one
// transaction.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - lane: Lane address the recipe belongs to
//   - payload: Decoded JSON object in the legacy key format
//
// Returns:
//   - UpsertResult: The active recipe's ID and hash
//   - error: ErrInvalidPayload, or a database failure
func (s *Store) Upsert(ctx context.Context, lane uint8, payload map[string]any) (UpsertResult, error) {
	sum, err := PayloadHash(payload)
	if err != nil {
		return UpsertResult{}, err
	}

	res := UpsertResult{Lane: lane, SHA256: sum}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var activeID, activeSum string
		err := tx.QueryRowContext(ctx,
			`SELECT id, sha256 FROM recipes WHERE lane = ? AND active = 1`, lane,
		).Scan(&activeID, &activeSum)
		switch {
		case err == nil && activeSum == sum:
			res.RecipeID = activeID
			return nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("loading active recipe for lane %d: %w", lane, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE recipes SET active = 0 WHERE lane = ? AND active = 1`, lane,
		); err != nil {
			return fmt.Errorf("deactivating recipes for lane %d: %w", lane, err)
		}

		r := ParsePayload(payload)
		r.ID = uuid.NewString()
		r.Lane = lane
		r.SHA256 = sum
		r.Active = true
		r.CreatedAt = s.now().UTC()

		if err := insertRecipe(ctx, tx, &r); err != nil {
			return err
		}

		res.RecipeID = r.ID
		res.Updated = true
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return res, nil
}

func insertRecipe(ctx context.Context, tx *sql.Tx, r *Recipe) error {
	const query = `INSERT INTO recipes (` + recipeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, query,
		r.ID, r.Lane, nullStr(r.Name), r.CycleType, r.FixedHoldTime, r.AutopinbreakEnabled,
		r.NumAutopinbreaks, r.AttemptTimeS, r.ThermalTempC, r.RefluxEnabled, r.RefluxTempC,
		r.PurgeVacSwitchpoint, r.StirSpeedRPM, r.PurgeSetPressure, r.SHA256, r.Active,
		r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting recipe %s: %w", r.ID, err)
	}

	const stepQuery = `INSERT INTO recipe_pinbreak_steps (recipe_id, step_index,
		autopinbreak_time_ms, autopinbreak_pressure, postpinbreak_thermal_temp_c,
		postpinbreak_pressure, postpinbreak_reflux_temp_c, postpinbreak_stir_speed_rpm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, st := range r.Steps {
		_, err := tx.ExecContext(ctx, stepQuery,
			r.ID, st.Index,
			nullInt(st.AutopinbreakTimeMS), nullFloat(st.AutopinbreakPressure),
			nullFloat(st.PostpinbreakThermalTempC), nullFloat(st.PostpinbreakPressure),
			nullFloat(st.PostpinbreakRefluxTempC), nullInt(st.PostpinbreakStirSpeedRPM))
		if err != nil {
			return fmt.Errorf("inserting step %d of recipe %s: %w", st.Index, r.ID, err)
		}
	}
	return nil
}

// Active returns the lane's active recipe with its steps.
//
// Returns:
//   - *Recipe: The active recipe
//   - error: ErrRecipeNotFound if the lane has none
func (s *Store) Active(ctx context.Context, lane uint8) (*Recipe, error) {
	const query = `SELECT ` + recipeColumns + ` FROM recipes WHERE lane = ? AND active = 1`
	r, err := scanRecipe(s.db.QueryRowContext(ctx, query, lane))
	if err != nil {
		return nil, err
	}
	if r.Steps, err = s.steps(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns every stored version for the lane, newest first.
func (s *Store) List(ctx context.Context, lane uint8) ([]Recipe, error) {
	const query = `SELECT ` + recipeColumns + ` FROM recipes WHERE lane = ?
		ORDER BY created_at DESC, rowid DESC`
	rows, err := s.db.QueryContext(ctx, query, lane)
	if err != nil {
		return nil, fmt.Errorf("listing recipes for lane %d: %w", lane, err)
	}
	defer rows.Close()

	var out []Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recipes: %w", err)
	}
	rows.Close() //nolint:errcheck // frees the single connection for the step queries

	for i := range out {
		if out[i].Steps, err = s.steps(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) steps(ctx context.Context, recipeID string) ([]PinbreakStep, error) {
	const query = `SELECT step_index, autopinbreak_time_ms, autopinbreak_pressure,
		postpinbreak_thermal_temp_c, postpinbreak_pressure, postpinbreak_reflux_temp_c,
		postpinbreak_stir_speed_rpm
		FROM recipe_pinbreak_steps WHERE recipe_id = ? ORDER BY step_index`
	rows, err := s.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, fmt.Errorf("loading steps for recipe %s: %w", recipeID, err)
	}
	defer rows.Close()

	steps := []PinbreakStep{}
	for rows.Next() {
		var st PinbreakStep
		var tms, stir sql.NullInt64
		var press, thermal, post, reflux sql.NullFloat64
		if err := rows.Scan(&st.Index, &tms, &press, &thermal, &post, &reflux, &stir); err != nil {
			return nil, fmt.Errorf("scanning step row: %w", err)
		}
		st.AutopinbreakTimeMS = intPtr(tms)
		st.AutopinbreakPressure = floatPtr(press)
		st.PostpinbreakThermalTempC = floatPtr(thermal)
		st.PostpinbreakPressure = floatPtr(post)
		st.PostpinbreakRefluxTempC = floatPtr(reflux)
		st.PostpinbreakStirSpeedRPM = intPtr(stir)
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating steps: %w", err)
	}
	return steps, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row scanner) (*Recipe, error) {
	var r Recipe
	var name sql.NullString
	var createdAt string

	err := row.Scan(&r.ID, &r.Lane, &name, &r.CycleType, &r.FixedHoldTime, &r.AutopinbreakEnabled,
		&r.NumAutopinbreaks, &r.AttemptTimeS, &r.ThermalTempC, &r.RefluxEnabled, &r.RefluxTempC,
		&r.PurgeVacSwitchpoint, &r.StirSpeedRPM, &r.PurgeSetPressure, &r.SHA256, &r.Active, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("scanning recipe: %w", err)
	}

	if name.Valid {
		r.Name = &name.String
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // written by insertRecipe
	return &r, nil
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

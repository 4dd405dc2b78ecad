package healthplan

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const planCols = `id, patient_id, goal, plan_name, duration_weeks, progress, status,
	weekly_goals, diet_recommendations, exercise_plan, created_at, updated_at`

func scanPlan(row pgx.Row) (*HealthPlan, error) {
	var p HealthPlan
	err := row.Scan(&p.ID, &p.PatientID, &p.Goal, &p.PlanName, &p.DurationWeeks, &p.Progress, &p.Status,
		&p.WeeklyGoals, &p.DietRecommendations, &p.ExercisePlan, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *HealthPlan) error {
	conn := db.Conn(ctx, r.pool)
	err := conn.QueryRow(ctx, `
		INSERT INTO health_plans (id, patient_id, goal, plan_name, duration_weeks, progress, status,
			weekly_goals, diet_recommendations, exercise_plan)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.Goal, p.PlanName, p.DurationWeeks, p.Progress, p.Status,
		p.WeeklyGoals, p.DietRecommendations, p.ExercisePlan,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, t := range p.DailyTasks {
		batch.Queue(`INSERT INTO health_plan_tasks (id, plan_id, position, task, category, completed)
			VALUES ($1,$2,$3,$4,$5,$6)`, t.ID, p.ID, t.Position, t.Task, t.Category, t.Completed)
	}
	return conn.SendBatch(ctx, batch).Close()
}

func (r *repoPG) tasks(ctx context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*Task, error) {
	out := make(map[uuid.UUID][]*Task, len(planIDs))
	if len(planIDs) == 0 {
		return out, nil
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, plan_id, position, task, category, completed
		FROM health_plan_tasks WHERE plan_id = ANY($1) ORDER BY plan_id, position`, planIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.PlanID, &t.Position, &t.Task, &t.Category, &t.Completed); err != nil {
			return nil, err
		}
		out[t.PlanID] = append(out[t.PlanID], &t)
	}
	return out, rows.Err()
}

func (r *repoPG) withTasks(ctx context.Context, plans ...*HealthPlan) error {
	ids := make([]uuid.UUID, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
	}
	byPlan, err := r.tasks(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range plans {
		p.DailyTasks = byPlan[p.ID]
		if p.DailyTasks == nil {
			p.DailyTasks = []*Task{}
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*HealthPlan, error) {
	p, err := scanPlan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+planCols+` FROM health_plans WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return p, r.withTasks(ctx, p)
}

func (r *repoPG) Lock(ctx context.Context, id uuid.UUID) (*HealthPlan, error) {
	return scanPlan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+planCols+` FROM health_plans WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*HealthPlan, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM health_plans WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+planCols+` FROM health_plans WHERE patient_id = $1 `+
		p.Sort.OrderBy()+` `+p.SQL(), patientID)
	if err != nil {
		return nil, 0, err
	}
	var items []*HealthPlan
	for rows.Next() {
		hp, err := scanPlan(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		items = append(items, hp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, r.withTasks(ctx, items...)
}

func (r *repoPG) Active(ctx context.Context, patientID uuid.UUID) (*HealthPlan, error) {
	p, err := scanPlan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+planCols+` FROM health_plans
		WHERE patient_id = $1 AND status = 'active' ORDER BY created_at DESC LIMIT 1`, patientID))
	if err != nil {
		return nil, err
	}
	return p, r.withTasks(ctx, p)
}

func (r *repoPG) ArchiveActive(ctx context.Context, patientID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE health_plans SET status = 'archived', updated_at = NOW() WHERE patient_id = $1 AND status = 'active'`, patientID)
	return err
}

func (r *repoPG) ToggleTask(ctx context.Context, planID, taskID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE health_plan_tasks SET completed = NOT completed WHERE id = $1 AND plan_id = $2`, taskID, planID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) CountTasks(ctx context.Context, planID uuid.UUID) (int, int, error) {
	var done, total int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE completed), COUNT(*) FROM health_plan_tasks WHERE plan_id = $1`, planID,
	).Scan(&done, &total)
	return done, total, err
}

func (r *repoPG) SetProgress(ctx context.Context, planID uuid.UUID, progress int) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE health_plans SET progress = $2, updated_at = NOW() WHERE id = $1`, planID, progress)
	return err
}

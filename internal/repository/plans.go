package repository

import (
	"context"
	"errors"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/invoice-ingest/internal/entity"
)

const TablePlans = "reimbursement_plans"

// ErrPlanNotFound is returned when a plan ID does not exist.
var ErrPlanNotFound = errors.New("reimbursement plan not found")

type PlanRepository interface {
	Create(ctx context.Context, name string, description *string) (*entity.ReimbursementPlan, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ReimbursementPlan, error)
	List(ctx context.Context) ([]*entity.ReimbursementPlan, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type planRepository struct {
	pool   *pgxpool.Pool
	qb     sq.StatementBuilderType
	logger *slog.Logger
}

func NewPlanRepository(pool *pgxpool.Pool, logger *slog.Logger) PlanRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &planRepository{
		pool:   pool,
		qb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}
}

func (r *planRepository) Create(ctx context.Context, name string, description *string) (*entity.ReimbursementPlan, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Insert(TablePlans).
		Columns("name", "description").
		Values(name, description).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	plan := &entity.ReimbursementPlan{Name: name, Description: description}
	if err := db.QueryRow(ctx, sql, args...).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
		return nil, scanRowError(err)
	}

	r.logger.Info("repository.plan.created", "plan_id", plan.ID, "name", name)
	return plan, nil
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ReimbursementPlan, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("id", "name", "description", "created_at", "updated_at").
		From(TablePlans).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}
	plan, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[entity.ReimbursementPlan])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, collectRowsError(err)
	}
	return plan, nil
}

func (r *planRepository) List(ctx context.Context) ([]*entity.ReimbursementPlan, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("id", "name", "description", "created_at", "updated_at").
		From(TablePlans).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}
	plans, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[entity.ReimbursementPlan])
	if err != nil {
		return nil, collectRowsError(err)
	}
	return plans, nil
}

func (r *planRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("1").
		From(TablePlans).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, createQueryError(err)
	}

	var one int
	err = db.QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, scanRowError(err)
	}
	return true, nil
}

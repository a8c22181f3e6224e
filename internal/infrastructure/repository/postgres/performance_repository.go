package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	qb "github.com/harivignesh/cp-tracker/internal/platform/querybuilder"
)

type PerformanceRepository struct {
	db *sqlx.DB
}

func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

func (r *PerformanceRepository) InsertIfAbsent(ctx context.Context, item contest.Performance) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, err
	}

	query, args, err := qb.InsertInto("contest_performances").
		Columns("public_id", "reg_no", "platform", "contest_name", "contest_date",
			"rating", "rank", "problems_solved", "easy", "medium", "hard", "total_problems").
		Values(item.ID, item.RegNo, string(item.Platform), item.ContestName, item.Date,
			item.Rating, item.Rank, item.ProblemsSolved, item.Easy, item.Medium, item.Hard, item.TotalProblems).
		Suffix("ON CONFLICT (reg_no, platform, contest_name) DO NOTHING").
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build insert performance query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert performance reg_no=%s contest=%s: %w", item.RegNo, item.ContestName, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert performance rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *PerformanceRepository) ListByStudent(ctx context.Context, regNo string) ([]contest.Performance, error) {
	return r.list(ctx, qb.Expr("LOWER(reg_no) = LOWER(?)", regNo))
}

func (r *PerformanceRepository) ListByPlatform(ctx context.Context, platform stats.Platform) ([]contest.Performance, error) {
	return r.list(ctx, qb.Eq("platform", string(platform)))
}

func (r *PerformanceRepository) list(ctx context.Context, match qb.Condition) ([]contest.Performance, error) {
	query, args, err := qb.Select("*").From("contest_performances").
		Where(match).
		OrderBy("contest_date", "LOWER(reg_no)").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select performances query: %w", err)
	}

	var rows []performanceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select performances: %w", err)
	}

	out := make([]contest.Performance, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

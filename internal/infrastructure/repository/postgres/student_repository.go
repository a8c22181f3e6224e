package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	qb "github.com/harivignesh/cp-tracker/internal/platform/querybuilder"
)

// uniqueViolation is the postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

type StudentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) List(ctx context.Context, filter student.Filter) ([]student.Student, error) {
	conditions := []qb.Condition{qb.IsNull("deleted_at")}
	if strings.TrimSpace(filter.Department) != "" {
		conditions = append(conditions, qb.Expr("LOWER(department) = LOWER(?)", filter.Department))
	}
	if filter.Year != 0 {
		conditions = append(conditions, qb.Eq("year", filter.Year))
	}

	query, args, err := qb.Select("*").From("students").
		Where(conditions...).
		OrderBy("LOWER(reg_no)").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select students query: %w", err)
	}

	var rows []studentTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select students: %w", err)
	}

	out := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		item, convErr := row.toDomain()
		if convErr != nil {
			return nil, fmt.Errorf("decode student reg_no=%s: %w", row.RegNo, convErr)
		}
		out = append(out, item)
	}

	return out, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (student.Student, bool, error) {
	return r.getOne(ctx, qb.Eq("public_id", id))
}

func (r *StudentRepository) GetByRegNo(ctx context.Context, regNo string) (student.Student, bool, error) {
	return r.getOne(ctx, qb.Expr("LOWER(reg_no) = LOWER(?)", regNo))
}

func (r *StudentRepository) getOne(ctx context.Context, match qb.Condition) (student.Student, bool, error) {
	query, args, err := qb.Select("*").From("students").
		Where(match, qb.IsNull("deleted_at")).
		Limit(1).
		ToSQL()
	if err != nil {
		return student.Student{}, false, fmt.Errorf("build select student query: %w", err)
	}

	var row studentTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return student.Student{}, false, nil
		}
		return student.Student{}, false, fmt.Errorf("select student: %w", err)
	}

	item, err := row.toDomain()
	if err != nil {
		return student.Student{}, false, fmt.Errorf("decode student reg_no=%s: %w", row.RegNo, err)
	}
	return item, true, nil
}

func (r *StudentRepository) Create(ctx context.Context, item student.Student) (student.Student, error) {
	encoded, err := encodeStats(item.Stats)
	if err != nil {
		return student.Student{}, fmt.Errorf("encode stats: %w", err)
	}

	query, args, err := qb.InsertInto("students").
		Columns("public_id", "reg_no", "name", "department", "year",
			"leetcode_handle", "codeforces_handle", "codechef_handle", "hackerrank_handle",
			"stats").
		Values(item.ID, item.RegNo, item.Name, item.Department, item.Year,
			item.Handles.LeetCode, item.Handles.Codeforces, item.Handles.CodeChef, item.Handles.HackerRank,
			encoded).
		ToSQL()
	if err != nil {
		return student.Student{}, fmt.Errorf("build insert student query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return student.Student{}, fmt.Errorf("%w: %s", student.ErrDuplicateRegNo, item.RegNo)
		}
		return student.Student{}, fmt.Errorf("insert student reg_no=%s: %w", item.RegNo, err)
	}

	created, found, err := r.GetByID(ctx, item.ID)
	if err != nil {
		return student.Student{}, err
	}
	if !found {
		return student.Student{}, fmt.Errorf("student vanished after insert reg_no=%s", item.RegNo)
	}
	return created, nil
}

func (r *StudentRepository) Update(ctx context.Context, item student.Student) error {
	query, args, err := qb.Update("students").
		Set("name", item.Name).
		Set("department", item.Department).
		Set("year", item.Year).
		Set("leetcode_handle", item.Handles.LeetCode).
		Set("codeforces_handle", item.Handles.Codeforces).
		Set("codechef_handle", item.Handles.CodeChef).
		Set("hackerrank_handle", item.Handles.HackerRank).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", item.ID), qb.IsNull("deleted_at")).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update student query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update student id=%s: %w", item.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("student id=%s does not exist", item.ID)
	}
	return nil
}

func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	query, args, err := qb.Update("students").
		SetExpr("deleted_at", "NOW()").
		Where(qb.Eq("public_id", id), qb.IsNull("deleted_at")).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete student query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete student id=%s: %w", id, err)
	}
	return nil
}

func (r *StudentRepository) UpsertStats(ctx context.Context, id string, profile stats.ProfileStats) error {
	encoded, err := encodeStats(profile)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	query, args, err := qb.Update("students").
		Set("stats", encoded).
		SetExpr("last_updated", "NOW()").
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", id), qb.IsNull("deleted_at")).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert stats query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert stats id=%s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert stats rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("student id=%s does not exist", id)
	}
	return nil
}

package postgres

import (
	"database/sql"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
)

type studentTableModel struct {
	ID               int64        `db:"id"`
	PublicID         string       `db:"public_id"`
	RegNo            string       `db:"reg_no"`
	Name             string       `db:"name"`
	Department       string       `db:"department"`
	Year             int          `db:"year"`
	LeetCodeHandle   string       `db:"leetcode_handle"`
	CodeforcesHandle string       `db:"codeforces_handle"`
	CodeChefHandle   string       `db:"codechef_handle"`
	HackerRankHandle string       `db:"hackerrank_handle"`
	Stats            []byte       `db:"stats"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
	LastUpdated      sql.NullTime `db:"last_updated"`
	DeletedAt        *time.Time   `db:"deleted_at"`
}

func (m studentTableModel) toDomain() (student.Student, error) {
	out := student.Student{
		ID:         m.PublicID,
		RegNo:      m.RegNo,
		Name:       m.Name,
		Department: m.Department,
		Year:       m.Year,
		Handles: student.Handles{
			LeetCode:   m.LeetCodeHandle,
			Codeforces: m.CodeforcesHandle,
			CodeChef:   m.CodeChefHandle,
			HackerRank: m.HackerRankHandle,
		},
		CreatedAt: m.CreatedAt,
	}
	if m.LastUpdated.Valid {
		lastUpdated := m.LastUpdated.Time
		out.LastUpdated = &lastUpdated
	}
	if len(m.Stats) > 0 {
		var profile stats.ProfileStats
		if err := sonic.Unmarshal(m.Stats, &profile); err != nil {
			return student.Student{}, err
		}
		out.Stats = profile
	}
	return out, nil
}

func encodeStats(profile stats.ProfileStats) ([]byte, error) {
	if len(profile) == 0 {
		return []byte("{}"), nil
	}
	return sonic.Marshal(profile)
}

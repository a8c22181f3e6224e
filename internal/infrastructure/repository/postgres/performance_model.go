package postgres

import (
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
)

type performanceTableModel struct {
	ID             int64     `db:"id"`
	PublicID       string    `db:"public_id"`
	RegNo          string    `db:"reg_no"`
	Platform       string    `db:"platform"`
	ContestName    string    `db:"contest_name"`
	ContestDate    string    `db:"contest_date"`
	Rating         int       `db:"rating"`
	Rank           int       `db:"rank"`
	ProblemsSolved int       `db:"problems_solved"`
	Easy           int       `db:"easy"`
	Medium         int       `db:"medium"`
	Hard           int       `db:"hard"`
	TotalProblems  int       `db:"total_problems"`
	CreatedAt      time.Time `db:"created_at"`
}

func (m performanceTableModel) toDomain() contest.Performance {
	return contest.Performance{
		ID:             m.PublicID,
		RegNo:          m.RegNo,
		Platform:       stats.Platform(m.Platform),
		ContestName:    m.ContestName,
		Date:           m.ContestDate,
		Rating:         m.Rating,
		Rank:           m.Rank,
		ProblemsSolved: m.ProblemsSolved,
		Easy:           m.Easy,
		Medium:         m.Medium,
		Hard:           m.Hard,
		TotalProblems:  m.TotalProblems,
		CreatedAt:      m.CreatedAt,
	}
}

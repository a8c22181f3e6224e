package httpapi

import (
	"context"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
)

type studentDTO struct {
	ID          string             `json:"id"`
	RegNo       string             `json:"reg_no"`
	Name        string             `json:"name"`
	Department  string             `json:"department"`
	Year        int                `json:"year"`
	Handles     student.Handles    `json:"handles"`
	Stats       stats.ProfileStats `json:"stats,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	LastUpdated *time.Time         `json:"last_updated,omitempty"`
}

func studentToDTO(_ context.Context, item student.Student) studentDTO {
	return studentDTO{
		ID:          item.ID,
		RegNo:       item.RegNo,
		Name:        item.Name,
		Department:  item.Department,
		Year:        item.Year,
		Handles:     item.Handles,
		Stats:       item.Stats,
		CreatedAt:   item.CreatedAt,
		LastUpdated: item.LastUpdated,
	}
}

type performanceDTO struct {
	RegNo          string `json:"reg_no"`
	Platform       string `json:"platform"`
	ContestName    string `json:"contest_name"`
	Date           string `json:"date"`
	Rating         int    `json:"rating"`
	Rank           int    `json:"rank"`
	ProblemsSolved int    `json:"problems_solved"`
}

func performanceToDTO(_ context.Context, item contest.Performance) performanceDTO {
	return performanceDTO{
		RegNo:          item.RegNo,
		Platform:       string(item.Platform),
		ContestName:    item.ContestName,
		Date:           item.Date,
		Rating:         item.Rating,
		Rank:           item.Rank,
		ProblemsSolved: item.ProblemsSolved,
	}
}

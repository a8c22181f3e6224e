package httpapi

import (
	"testing"

	"github.com/harivignesh/cp-tracker/internal/domain/report"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
)

func TestCohortFilterFromKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		key  report.Key
		want student.Filter
	}{
		{
			name: "department and year",
			key:  report.Key{Department: "CSE", Year: "3", Type: report.TypePerformance},
			want: student.Filter{Department: "CSE", Year: 3},
		},
		{
			name: "all department keeps year",
			key:  report.Key{Department: "All", Year: "2", Type: report.TypePerformance},
			want: student.Filter{Year: 2},
		},
		{
			name: "all year keeps department",
			key:  report.Key{Department: "ECE", Year: "All", Type: report.TypeContest},
			want: student.Filter{Department: "ECE"},
		},
		{
			name: "non-numeric year means unfiltered",
			key:  report.Key{Department: "CSE", Year: "final", Type: report.TypePerformance},
			want: student.Filter{Department: "CSE"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := cohortFilterFromKey(tc.key); got != tc.want {
				t.Fatalf("unexpected filter: got=%+v want=%+v", got, tc.want)
			}
		})
	}
}

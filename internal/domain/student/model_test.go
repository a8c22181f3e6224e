package student

import (
	"testing"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
)

func TestStudentValidate(t *testing.T) {
	t.Parallel()

	valid := Student{RegNo: "21CS001", Name: "Asha", Department: "CSE", Year: 3}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid student, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Student)
	}{
		{"missing reg no", func(s *Student) { s.RegNo = "  " }},
		{"missing name", func(s *Student) { s.Name = "" }},
		{"missing department", func(s *Student) { s.Department = "" }},
		{"year too small", func(s *Student) { s.Year = 0 }},
		{"year too large", func(s *Student) { s.Year = 6 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			item := valid
			tc.mutate(&item)
			if err := item.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestHandlesGetTrimsWhitespace(t *testing.T) {
	t.Parallel()

	h := Handles{LeetCode: "  asha_lc  ", Codeforces: "asha_cf"}
	if got := h.Get(stats.PlatformLeetCode); got != "asha_lc" {
		t.Fatalf("unexpected leetcode handle: %q", got)
	}
	if got := h.Get(stats.PlatformCodeChef); got != "" {
		t.Fatalf("expected empty codechef handle, got %q", got)
	}
}

func TestHandlesIsEmpty(t *testing.T) {
	t.Parallel()

	if !(Handles{}).IsEmpty() {
		t.Fatalf("expected zero handles to be empty")
	}
	if (Handles{HackerRank: "hr_user"}).IsEmpty() {
		t.Fatalf("expected handles with hackerrank to be non-empty")
	}
}

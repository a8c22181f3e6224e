package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/report"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

const (
	sheetLeetCode   = "LeetCode"
	sheetCodeforces = "Codeforces"
	sheetCodeChef   = "CodeChef"
	sheetHackerRank = "HackerRank"
	sheetDaily      = "Daily Performance"

	absentMarker = "Absent"
)

// ReportService builds in-memory sheet sets from the cohort's cached
// snapshots. Persistence is the reconciler's job; everything here is pure
// assembly.
type ReportService struct {
	students  student.Repository
	standings ContestStandingsClient
	logger    *logging.Logger
	now       func() time.Time
}

func NewReportService(
	students student.Repository,
	standings ContestStandingsClient,
	logger *logging.Logger,
) (*ReportService, error) {
	if students == nil {
		return nil, fmt.Errorf("student repository is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ReportService{
		students:  students,
		standings: standings,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// BuildCohortSheets emits the four fixed per-platform sheets plus the dated
// daily sheet. One row per student per sheet, ordered by reg no
// case-insensitively; a platform the student has no snapshot for renders as
// zeroes with their handle still shown.
func (s *ReportService) BuildCohortSheets(ctx context.Context, filter student.Filter) ([]report.Sheet, error) {
	ctx, span := startUsecaseSpan(ctx, "ReportService.BuildCohortSheets")
	defer span.End()

	cohort, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	sortByRegNo(cohort)

	today := s.now().Format("2006-01-02")
	sheets := []report.Sheet{
		s.buildLeetCodeSheet(cohort),
		s.buildCodeforcesSheet(cohort),
		s.buildCodeChefSheet(cohort),
		s.buildHackerRankSheet(cohort),
		s.buildDailySheet(cohort, today),
	}
	return sheets, nil
}

func (s *ReportService) buildLeetCodeSheet(cohort []student.Student) report.Sheet {
	sheet := report.Sheet{
		Name: sheetLeetCode,
		Header: []string{
			"S.No", "Reg No", "Name", "Department", "Handle",
			"Easy", "Medium", "Hard", "Total Solved", "Contest Count",
			"Rating", "Global Rank", "Top Percentage",
		},
	}
	for idx, item := range cohort {
		record := item.Stats[stats.PlatformLeetCode]
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(idx + 1), item.RegNo, item.Name, item.Department,
			handleOrDash(item.Handles.Get(stats.PlatformLeetCode)),
			strconv.Itoa(record.Easy), strconv.Itoa(record.Medium), strconv.Itoa(record.Hard),
			strconv.Itoa(record.TotalSolved), strconv.Itoa(record.ContestCount),
			strconv.Itoa(record.Rating), strconv.Itoa(record.GlobalRank),
			strconv.FormatFloat(record.TopPercentage, 'f', 2, 64),
		})
	}
	return sheet
}

func (s *ReportService) buildCodeforcesSheet(cohort []student.Student) report.Sheet {
	sheet := report.Sheet{
		Name: sheetCodeforces,
		Header: []string{
			"S.No", "Reg No", "Name", "Department", "Handle",
			"Rating", "Max Rating", "Rank", "Total Solved", "Contest Count",
		},
	}
	for idx, item := range cohort {
		record := item.Stats[stats.PlatformCodeforces]
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(idx + 1), item.RegNo, item.Name, item.Department,
			handleOrDash(item.Handles.Get(stats.PlatformCodeforces)),
			strconv.Itoa(record.Rating), strconv.Itoa(record.MaxRating), record.RankLabel,
			strconv.Itoa(record.TotalSolved), strconv.Itoa(record.ContestCount),
		})
	}
	return sheet
}

func (s *ReportService) buildCodeChefSheet(cohort []student.Student) report.Sheet {
	sheet := report.Sheet{
		Name: sheetCodeChef,
		Header: []string{
			"S.No", "Reg No", "Name", "Department", "Handle",
			"Rating", "Global Rank", "Stars", "Total Solved", "Contest Count",
		},
	}
	for idx, item := range cohort {
		record := item.Stats[stats.PlatformCodeChef]
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(idx + 1), item.RegNo, item.Name, item.Department,
			handleOrDash(item.Handles.Get(stats.PlatformCodeChef)),
			strconv.Itoa(record.Rating), strconv.Itoa(record.GlobalRank), strconv.Itoa(record.Stars),
			strconv.Itoa(record.TotalSolved), strconv.Itoa(record.ContestCount),
		})
	}
	return sheet
}

func (s *ReportService) buildHackerRankSheet(cohort []student.Student) report.Sheet {
	sheet := report.Sheet{
		Name: sheetHackerRank,
		Header: []string{
			"S.No", "Reg No", "Name", "Department", "Handle",
			"Badges", "Approx Solved",
		},
	}
	for idx, item := range cohort {
		record := item.Stats[stats.PlatformHackerRank]
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(idx + 1), item.RegNo, item.Name, item.Department,
			handleOrDash(item.Handles.Get(stats.PlatformHackerRank)),
			strconv.Itoa(record.Badges), strconv.Itoa(record.TotalSolved),
		})
	}
	return sheet
}

// buildDailySheet is the date-partitioned sheet the reconciler merges by
// day: today's rows replace today's rows, other days stay untouched.
func (s *ReportService) buildDailySheet(cohort []student.Student, today string) report.Sheet {
	sheet := report.Sheet{
		Name: sheetDaily,
		Header: []string{
			"Reg No", "Name", "Date",
			"LeetCode Solved", "LeetCode Rating",
			"Codeforces Solved", "Codeforces Rating",
			"CodeChef Solved", "CodeChef Rating",
			"HackerRank Badges",
		},
	}
	for _, item := range cohort {
		leetcode := item.Stats[stats.PlatformLeetCode]
		codeforces := item.Stats[stats.PlatformCodeforces]
		codechef := item.Stats[stats.PlatformCodeChef]
		hackerrank := item.Stats[stats.PlatformHackerRank]
		sheet.Rows = append(sheet.Rows, []string{
			item.RegNo, item.Name, today,
			strconv.Itoa(leetcode.TotalSolved), strconv.Itoa(leetcode.Rating),
			strconv.Itoa(codeforces.TotalSolved), strconv.Itoa(codeforces.Rating),
			strconv.Itoa(codechef.TotalSolved), strconv.Itoa(codechef.Rating),
			strconv.Itoa(hackerrank.Badges),
		})
	}
	return sheet
}

// BuildContestSheet emits a single-contest snapshot. A Codeforces numeric
// contest id triggers a live standings fetch with one column per problem;
// every other case matches against each student's cached contest history.
// Students with no trace of the contest are marked "Absent", never zeroed.
func (s *ReportService) BuildContestSheet(ctx context.Context, platform stats.Platform, contestName string, filter student.Filter) (report.Sheet, error) {
	ctx, span := startUsecaseSpan(ctx, "ReportService.BuildContestSheet")
	defer span.End()

	contestName = strings.TrimSpace(contestName)
	if contestName == "" {
		return report.Sheet{}, fmt.Errorf("%w: contest name is required", ErrInvalidInput)
	}

	cohort, err := s.students.List(ctx, filter)
	if err != nil {
		return report.Sheet{}, fmt.Errorf("list students: %w", err)
	}
	sortByRegNo(cohort)

	if platform == stats.PlatformCodeforces && s.standings != nil {
		if contestID, parseErr := strconv.ParseInt(contestName, 10, 64); parseErr == nil && contestID > 0 {
			return s.buildLiveStandingsSheet(ctx, contestID, cohort)
		}
	}
	return s.buildHistoryContestSheet(platform, contestName, cohort), nil
}

func (s *ReportService) buildLiveStandingsSheet(ctx context.Context, contestID int64, cohort []student.Student) (report.Sheet, error) {
	handles := make([]string, 0, len(cohort))
	for _, item := range cohort {
		if handle := item.Handles.Get(stats.PlatformCodeforces); handle != "" {
			handles = append(handles, handle)
		}
	}

	var standings ExternalContestStandings
	if len(handles) > 0 {
		var err error
		standings, err = s.standings.FetchContestStandings(ctx, contestID, handles)
		if err != nil {
			return report.Sheet{}, fmt.Errorf("%w: fetch standings contest_id=%d: %v", ErrDependencyUnavailable, contestID, err)
		}
	} else {
		standings = ExternalContestStandings{ContestID: contestID}
	}

	header := []string{"S.No", "Reg No", "Name", "Handle", "Rank"}
	for _, problem := range standings.Problems {
		header = append(header, problem.Index)
	}
	header = append(header, "Total Solved")

	sheetName := standings.ContestName
	if sheetName == "" {
		sheetName = fmt.Sprintf("Contest %d", contestID)
	}
	sheet := report.Sheet{Name: sheetName, Header: header}

	rowsByHandle := make(map[string]ExternalStandingsRow, len(standings.Rows))
	for _, row := range standings.Rows {
		rowsByHandle[strings.ToLower(row.Handle)] = row
	}

	for idx, item := range cohort {
		handle := item.Handles.Get(stats.PlatformCodeforces)
		cells := []string{strconv.Itoa(idx + 1), item.RegNo, item.Name, handleOrDash(handle)}

		row, participated := rowsByHandle[strings.ToLower(handle)]
		if handle == "" || !participated {
			cells = append(cells, absentMarker)
			for range standings.Problems {
				cells = append(cells, "-")
			}
			cells = append(cells, "-")
			sheet.Rows = append(sheet.Rows, cells)
			continue
		}

		cells = append(cells, strconv.Itoa(row.Rank))
		solved := make(map[string]struct{}, len(row.Solved))
		for _, index := range row.Solved {
			solved[index] = struct{}{}
		}
		for _, problem := range standings.Problems {
			if _, ok := solved[problem.Index]; ok {
				cells = append(cells, "1")
			} else {
				cells = append(cells, "0")
			}
		}
		cells = append(cells, strconv.Itoa(len(row.Solved)))
		sheet.Rows = append(sheet.Rows, cells)
	}

	return sheet, nil
}

func (s *ReportService) buildHistoryContestSheet(platform stats.Platform, contestName string, cohort []student.Student) report.Sheet {
	sheet := report.Sheet{
		Name: contestName,
		Header: []string{
			"S.No", "Reg No", "Name", "Handle",
			"Contest", "Date", "Rating", "Rank", "Problems Solved",
		},
	}

	needle := normalizeContestName(contestName)
	for idx, item := range cohort {
		handle := item.Handles.Get(platform)
		cells := []string{strconv.Itoa(idx + 1), item.RegNo, item.Name, handleOrDash(handle)}

		record := item.Stats[platform]
		matched, found := matchContestHistory(record.History, needle)
		if !found {
			cells = append(cells, absentMarker, "-", "-", "-", "-")
			sheet.Rows = append(sheet.Rows, cells)
			continue
		}

		date := "-"
		if !matched.Date.IsZero() {
			date = matched.Date.Format("2006-01-02")
		}
		cells = append(cells,
			matched.ContestName, date,
			strconv.Itoa(matched.RatingAfter), strconv.Itoa(matched.Rank),
			strconv.Itoa(matched.ProblemsSolved),
		)
		sheet.Rows = append(sheet.Rows, cells)
	}

	return sheet
}

func matchContestHistory(history []stats.ContestResult, needle string) (stats.ContestResult, bool) {
	if needle == "" {
		return stats.ContestResult{}, false
	}
	for _, entry := range history {
		title := normalizeContestName(entry.ContestName)
		code := normalizeContestName(entry.ContestCode)
		if title != "" && (strings.Contains(title, needle) || strings.Contains(needle, title)) {
			return entry, true
		}
		if code != "" && (strings.Contains(code, needle) || strings.Contains(needle, code)) {
			return entry, true
		}
	}
	return stats.ContestResult{}, false
}

// normalizeContestName lowers and strips everything but letters and digits so
// "Starters 100 (Rated)" matches "starters100".
func normalizeContestName(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContestSheetSlug names the persisted sheet for a single-contest snapshot.
// Deterministic so a re-export replaces the previous snapshot of the same
// contest.
func ContestSheetSlug(platform stats.Platform, contestName string) string {
	prefix := string(platform)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	slug := normalizeContestName(contestName)
	if len(slug) > 20 {
		slug = slug[:20]
	}
	return prefix + "_" + slug
}

func handleOrDash(handle string) string {
	if handle == "" {
		return "-"
	}
	return handle
}

func sortByRegNo(cohort []student.Student) {
	sort.Slice(cohort, func(i, j int) bool {
		return strings.ToLower(cohort[i].RegNo) < strings.ToLower(cohort[j].RegNo)
	})
}

package codechef

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/platform/fetch"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/platform/resilience"
)

const (
	defaultBaseURL = "https://www.codechef.com"

	// Profile pages are served to browsers only; a bare client UA gets an
	// interstitial page with none of the profile markup.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

var (
	ratingNumberRegex = regexp.MustCompile(`class="rating-number">\s*(\d+)`)
	starsRegex        = regexp.MustCompile(`class="rating"\s*>\s*(\d+)\s*★`)
	maxRatingRegex    = regexp.MustCompile(`Highest Rating\s+(\d+)`)
	globalRankRegex   = regexp.MustCompile(`(?i)(\d+)\s*Global\s*Rank`)
	countryRankRegex  = regexp.MustCompile(`(?i)(\d+)\s*Country\s*Rank`)
	totalSolvedRegex  = regexp.MustCompile(`(?i)Total Problems Solved:?\s*(\d+)`)
	contestsRegex     = regexp.MustCompile(`(?i)(?:No\.?\s*of\s*)?Contests Participated:?\s*(\d+)`)
	ratingHistRegex   = regexp.MustCompile(`all_rating\s*=\s*(\[.*?\]);`)
	tagRegex          = regexp.MustCompile(`<[^>]+>`)
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	UserAgent      string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	http    *fetch.Client
	baseURL string
	logger  *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		http: fetch.New(fetch.Config{
			HTTPClient:     cfg.HTTPClient,
			Timeout:        cfg.Timeout,
			UserAgent:      userAgent,
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
		}),
		baseURL: baseURL,
		logger:  logger,
	}
}

func (c *Client) Platform() stats.Platform { return stats.PlatformCodeChef }

// FetchProfile extracts the snapshot from the public profile page. An
// extraction failure on a page that did load is reported distinctly from a
// network failure so callers can tell "layout changed" from "site down".
func (c *Client) FetchProfile(ctx context.Context, handle string) (stats.Record, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return stats.Record{}, fmt.Errorf("handle is required")
	}

	page, err := c.http.GetDocument(ctx, fmt.Sprintf("%s/users/%s", c.baseURL, handle))
	if err != nil {
		return stats.Record{}, fmt.Errorf("fetch codechef profile handle=%s: %w", handle, err)
	}

	text := flattenMarkup(page)
	rating, ratingFound := matchInt(ratingNumberRegex, page)
	solved, solvedFound := matchInt(totalSolvedRegex, text)
	if !ratingFound && !solvedFound {
		return stats.Record{}, crerr.Wrapf(stats.ErrExtraction,
			"codechef profile markup not recognized handle=%s", handle)
	}

	record := stats.Record{
		Platform:    stats.PlatformCodeChef,
		Handle:      handle,
		Rating:      rating,
		TotalSolved: solved,
		Division:    divisionForRating(rating),
		FetchedAt:   time.Now().UTC(),
	}
	record.Stars, _ = matchInt(starsRegex, page)
	record.MaxRating, _ = matchInt(maxRatingRegex, text)
	record.GlobalRank, _ = matchInt(globalRankRegex, text)
	record.CountryRank, _ = matchInt(countryRankRegex, text)
	record.ContestCount, _ = matchInt(contestsRegex, text)

	record.History = c.parseRatingHistory(ctx, handle, page)
	if record.ContestCount == 0 {
		record.ContestCount = len(record.History)
	}

	return record, nil
}

type ratingHistoryItem struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Rating string `json:"rating"`
	Rank   string `json:"rank"`
	Year   string `json:"getyear"`
	Month  string `json:"getmonth"`
	Day    string `json:"getday"`
}

// parseRatingHistory reads the rating graph data the page embeds as a script
// variable. A missing or unparsable blob degrades to an empty history.
func (c *Client) parseRatingHistory(ctx context.Context, handle, page string) []stats.ContestResult {
	match := ratingHistRegex.FindStringSubmatch(page)
	if match == nil {
		return nil
	}

	var items []ratingHistoryItem
	if err := sonic.Unmarshal([]byte(match[1]), &items); err != nil {
		c.logger.DebugContext(ctx, "codechef rating history blob unparsable", "handle", handle, "error", err)
		return nil
	}

	history := make([]stats.ContestResult, 0, len(items))
	for _, item := range items {
		result := stats.ContestResult{
			ContestName: item.Name,
			ContestCode: item.Code,
		}
		result.RatingAfter, _ = strconv.Atoi(item.Rating)
		result.Rank, _ = strconv.Atoi(item.Rank)
		year, _ := strconv.Atoi(item.Year)
		month, _ := strconv.Atoi(item.Month)
		day, _ := strconv.Atoi(item.Day)
		if year > 0 && month >= 1 && month <= 12 && day >= 1 {
			result.Date = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		}
		history = append(history, result)
	}
	return history
}

func divisionForRating(rating int) string {
	switch {
	case rating >= 2000:
		return "Div 1"
	case rating >= 1600:
		return "Div 2"
	case rating > 0:
		return "Div 3"
	default:
		return "Unrated"
	}
}

// flattenMarkup strips tags so label-value regexes can run against the
// rendered text regardless of the surrounding element structure.
func flattenMarkup(page string) string {
	return tagRegex.ReplaceAllString(page, " ")
}

func matchInt(re *regexp.Regexp, input string) (int, bool) {
	match := re.FindStringSubmatch(input)
	if match == nil {
		return 0, false
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return value, true
}

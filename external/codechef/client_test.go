package codechef

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

const profilePage = `<html><body>
<div class="rating-header">
  <div class="rating-number">1745</div>
  <small>(Highest Rating 1810)</small>
</div>
<span class="rating">3★</span>
<div class="rating-ranks">
  <ul>
    <li><a href="/ratings/all">10543</a> Global Rank</li>
    <li><a href="/ratings/all?country=IN">892</a> Country Rank</li>
  </ul>
</div>
<section class="problems-solved">
  <h3>Total Problems Solved: 412</h3>
</section>
<div>No. of Contests Participated: 27</div>
<script>
var all_rating = [{"code":"START100","name":"Starters 100","rating":"1745","rank":"230","getyear":"2023","getmonth":"8","getday":"16"}];
</script>
</body></html>`

func newStubClient(t *testing.T, page string, status int) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(page))
	}))

	client := NewClient(ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Logger:     logging.NewNop(),
	})
	return client, server
}

func TestFetchProfile_ExtractsFieldsFromMarkup(t *testing.T) {
	t.Parallel()

	client, server := newStubClient(t, profilePage, http.StatusOK)
	defer server.Close()

	record, err := client.FetchProfile(context.Background(), "chef_user")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}

	if record.Rating != 1745 {
		t.Fatalf("expected rating=1745, got %d", record.Rating)
	}
	if record.MaxRating != 1810 {
		t.Fatalf("expected max_rating=1810, got %d", record.MaxRating)
	}
	if record.Stars != 3 {
		t.Fatalf("expected stars=3, got %d", record.Stars)
	}
	if record.GlobalRank != 10543 || record.CountryRank != 892 {
		t.Fatalf("unexpected ranks %d/%d", record.GlobalRank, record.CountryRank)
	}
	if record.TotalSolved != 412 {
		t.Fatalf("expected total_solved=412, got %d", record.TotalSolved)
	}
	if record.ContestCount != 27 {
		t.Fatalf("expected contest_count=27, got %d", record.ContestCount)
	}
	if record.Division != "Div 2" {
		t.Fatalf("expected Div 2, got %q", record.Division)
	}
}

func TestFetchProfile_ParsesEmbeddedRatingHistory(t *testing.T) {
	t.Parallel()

	client, server := newStubClient(t, profilePage, http.StatusOK)
	defer server.Close()

	record, err := client.FetchProfile(context.Background(), "chef_user")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}

	if len(record.History) != 1 {
		t.Fatalf("expected one history entry, got %d", len(record.History))
	}
	entry := record.History[0]
	if entry.ContestCode != "START100" || entry.RatingAfter != 1745 || entry.Rank != 230 {
		t.Fatalf("unexpected history entry %+v", entry)
	}
	if entry.Date.Year() != 2023 || entry.Date.Month() != 8 || entry.Date.Day() != 16 {
		t.Fatalf("unexpected history date %v", entry.Date)
	}
}

func TestFetchProfile_UnrecognizedMarkupIsExtractionFailure(t *testing.T) {
	t.Parallel()

	client, server := newStubClient(t, `<html><body>Checking your browser</body></html>`, http.StatusOK)
	defer server.Close()

	_, err := client.FetchProfile(context.Background(), "chef_user")
	if err == nil {
		t.Fatal("expected error for unrecognized markup")
	}
	if !stats.IsExtraction(err) {
		t.Fatalf("expected extraction classification, got %v", err)
	}
	if stats.IsTransient(err) {
		t.Fatalf("extraction failure must not classify as transient: %v", err)
	}
}

func TestFetchProfile_MissingProfileIsNotFound(t *testing.T) {
	t.Parallel()

	client, server := newStubClient(t, "", http.StatusNotFound)
	defer server.Close()

	_, err := client.FetchProfile(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error for missing profile")
	}
	if !stats.IsNotFound(err) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestDivisionForRating_Bands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		rating int
		want   string
	}{
		{rating: 2450, want: "Div 1"},
		{rating: 2000, want: "Div 1"},
		{rating: 1999, want: "Div 2"},
		{rating: 1600, want: "Div 2"},
		{rating: 1599, want: "Div 3"},
		{rating: 1, want: "Div 3"},
		{rating: 0, want: "Unrated"},
	}
	for _, tc := range cases {
		if got := divisionForRating(tc.rating); got != tc.want {
			t.Fatalf("rating=%d: expected %q, got %q", tc.rating, tc.want, got)
		}
	}
}

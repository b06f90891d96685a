// Package scraper reads the exam listing of the Bavarian fishing exam
// portal. The portal shows a search page with an overview table and a
// print view with one detail panel per exam; both are needed because only
// the overview names the district.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

// DefaultURL is the exam search page of the portal.
const DefaultURL = "https://fischerpruefung-online.bayern.de/fprApp/verwaltung/Pruefungssuche"

const requestTimeout = 30 * time.Second

const (
	searchForm  = "pruefungsterminSearch"
	printButton = "Druckansicht"
	flowState   = "e1s1"
)

// Scraper fetches and parses the exam listing.
type Scraper struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// New builds a Scraper for the search page at pageURL.
func New(pageURL string, logger *slog.Logger) (*Scraper, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("scraper.New: %w", err)
	}
	return &Scraper{
		url:    pageURL,
		client: &http.Client{Jar: jar, Timeout: requestTimeout},
		logger: logger,
	}, nil
}

// Fetch downloads both views and returns the parsed exams. Exams carry the
// raw district and status text of the portal.
func (s *Scraper) Fetch(ctx context.Context) ([]domain.Exam, error) {
	overview, detail, err := s.pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("scraper.Scraper.Fetch: %w", err)
	}

	exams, err := Parse(overview, detail)
	if err != nil {
		return nil, fmt.Errorf("scraper.Scraper.Fetch: %w", err)
	}
	s.logger.InfoContext(ctx, "exam listing scraped", "exams", len(exams))
	return exams, nil
}

// pages loads the search page, then posts its form to get the print view.
// The session cookie and CSRF token of the first request carry over.
func (s *Scraper) pages(ctx context.Context) (overview, detail *goquery.Document, err error) {
	overview, err = s.document(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("search page: %w", err)
	}

	token, ok := overview.Find(`input[name="_csrf"]`).First().Attr("value")
	if !ok {
		return nil, nil, fmt.Errorf("%w: csrf token not found", domain.ErrStructure)
	}
	button, ok := overview.Find(`input[type="submit"][value="` + printButton + `"]`).First().Attr("name")
	if !ok {
		return nil, nil, fmt.Errorf("%w: print button not found", domain.ErrStructure)
	}

	form := url.Values{}
	form.Set(searchForm, searchForm)
	form.Set("_csrf", token)
	form.Set(button, printButton)
	form.Set("javax.faces.ViewState", flowState)

	detail, err = s.document(ctx, http.MethodPost, s.url+"?execution="+flowState, form)
	if err != nil {
		return nil, nil, fmt.Errorf("print view: %w", err)
	}
	return overview, detail, nil
}

func (s *Scraper) document(ctx context.Context, method, target string, form url.Values) (*goquery.Document, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

package scraper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

const (
	overviewRows = `[id="pruefungsterminSearch:pruefungsterminList"] > tbody > tr`
	detailPanels = `#pruefungverwaltung > div:nth-child(2) > div.rf-p-b > div > div.rf-p-b`
)

// Columns of the overview table. Column 0 is blank, the participant count
// after the district is unused.
const (
	colDate = iota + 1
	colVenue
	colCity
	colDistrict
)

const startLayout = "02.01.2006 15:04"

type overviewRow struct {
	date     string // "02.01.2006, 15:04"
	venue    string
	city     string
	district string
}

// Parse combines the overview table and the print view detail panels.
// Both views must list the same number of exams and every panel must match
// exactly one overview row by venue, city and start; anything else is
// domain.ErrStructure.
func Parse(overview, detail *goquery.Document) ([]domain.Exam, error) {
	rows := parseOverview(overview)
	panels := detail.Find(detailPanels)

	if len(rows) != panels.Length() {
		return nil, fmt.Errorf("%w: %d overview rows but %d detail panels",
			domain.ErrStructure, len(rows), panels.Length())
	}

	exams := make([]domain.Exam, 0, len(rows))
	var perr error
	panels.EachWithBreak(func(i int, panel *goquery.Selection) bool {
		e, err := parsePanel(panel, rows)
		if err != nil {
			perr = fmt.Errorf("detail panel %d: %w", i+1, err)
			return false
		}
		exams = append(exams, e)
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return exams, nil
}

func parseOverview(doc *goquery.Document) []overviewRow {
	var rows []overviewRow
	doc.Find(overviewRows).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= colDistrict {
			return
		}
		cell := func(i int) string { return strings.TrimSpace(cells.Eq(i).Text()) }
		rows = append(rows, overviewRow{
			date:     cell(colDate),
			venue:    cell(colVenue),
			city:     cell(colCity),
			district: cell(colDistrict),
		})
	})
	return rows
}

// panelFields reads the name/value pairs of a detail panel. A value without
// text is a checkbox: "checked" when ticked, empty otherwise.
func panelFields(panel *goquery.Selection) map[string]string {
	names := panel.Find(".prop > .name")
	values := panel.Find(".prop > .value")

	fields := make(map[string]string, names.Length())
	names.Each(func(i int, name *goquery.Selection) {
		if i >= values.Length() {
			return
		}
		value := values.Eq(i)
		v := strings.TrimSpace(value.Text())
		if v == "" {
			if _, checked := value.Find(".checkbox").First().Attr("checked"); checked {
				v = "checked"
			}
		}
		fields[strings.TrimSpace(name.Text())] = v
	})
	return fields
}

func parsePanel(panel *goquery.Selection, rows []overviewRow) (domain.Exam, error) {
	f := panelFields(panel)

	get := func(key string) (string, error) {
		v, ok := f[key]
		if !ok {
			return "", fmt.Errorf("%w: field %q missing", domain.ErrStructure, key)
		}
		return v, nil
	}
	atoi := func(key string) (int, error) {
		v, err := get(key)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q: %v", domain.ErrStructure, key, err)
		}
		return n, nil
	}

	var e domain.Exam
	var err error
	var date, begin string
	for key, dst := range map[string]*string{
		"Prüfungs-Nr.":   &e.ExamID,
		"Prüfungslokal":  &e.Name,
		"Straße":         &e.Street,
		"Haus-Nr.":       &e.StreetNumber,
		"Ort":            &e.City,
		"PLZ":            &e.PostalCode,
		"Prüfungstermin": &date,
		"Prüfungsbeginn": &begin,
	} {
		if *dst, err = get(key); err != nil {
			return domain.Exam{}, err
		}
	}

	if e.MinParticipants, err = atoi("Min. Teilnehmer"); err != nil {
		return domain.Exam{}, err
	}
	if e.MaxParticipants, err = atoi("Max. Teilnehmer"); err != nil {
		return domain.Exam{}, err
	}
	if e.CurrentParticipants, err = atoi("Aktuelle Teilnehmer"); err != nil {
		return domain.Exam{}, err
	}

	status, err := get("Status")
	if err != nil {
		return domain.Exam{}, err
	}
	e.Status = domain.ExamStatus(status)
	e.DisabledAccess = f["Behindertengerecht"] != ""
	e.Headphones = f["Kopfhörer"] != ""

	e.Start, err = time.ParseInLocation(startLayout, date+" "+begin, domain.Berlin)
	if err != nil {
		return domain.Exam{}, fmt.Errorf("%w: exam %s start: %v", domain.ErrStructure, e.ExamID, err)
	}

	district, err := matchDistrict(rows, e.Name, e.City, date+", "+begin)
	if err != nil {
		return domain.Exam{}, fmt.Errorf("exam %s: %w", e.ExamID, err)
	}
	e.District = domain.District(district)
	return e, nil
}

func matchDistrict(rows []overviewRow, venue, city, date string) (string, error) {
	var found []overviewRow
	for _, r := range rows {
		if r.venue == venue && r.city == city && r.date == date {
			found = append(found, r)
		}
	}
	if len(found) != 1 {
		return "", fmt.Errorf("%w: %d overview rows match %q, %q, %q",
			domain.ErrStructure, len(found), venue, city, date)
	}
	return found[0].district, nil
}

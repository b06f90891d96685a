package service

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	texttemplate "text/template"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

const (
	subscribeSubject   = "Anmeldung - Fischereiprüfungs Alarm!"
	unsubscribeSubject = "Abmeldung - Fischereiprüfungs Alarm!"
	startLayout        = "02.01.2006 15:04"
)

// Links are the public URLs mails point to.
type Links struct {
	ExamURL        string
	SubscribeURL   string
	UnsubscribeURL string
}

// Filter is one line of the preference summary in a subscribe confirmation.
type Filter struct {
	Name  string
	Value string
}

// FiltersFor summarizes the preferences a subscriber is matched with.
// Unset preferences are left out.
func FiltersFor(sub domain.Subscriber) []Filter {
	filters := []Filter{{Name: "Teilnehmer", Value: string(domain.StatusOpen)}}
	if len(sub.Districts) > 0 {
		filters = append(filters, Filter{Name: "Regierungsbezirk", Value: domain.JoinDistricts(sub.Districts)})
	}
	if sub.PostalCode != "" {
		filters = append(filters, Filter{Name: "PLZ", Value: sub.PostalCode})
	}
	if sub.MaxTravelMinutes != nil {
		filters = append(filters, Filter{Name: "Fahrzeit zur Prüfung (in Minuten)", Value: strconv.Itoa(*sub.MaxTravelMinutes)})
	}
	var equipment []string
	if sub.NeedDisabledAccess {
		equipment = append(equipment, "Behindertengerecht")
	}
	if sub.NeedHeadphones {
		equipment = append(equipment, "Kopfhörer")
	}
	if len(equipment) > 0 {
		filters = append(filters, Filter{Name: "Ausstattung", Value: strings.Join(equipment, ", ")})
	}
	return filters
}

// Renderer turns matches and subscriber state into German mail content.
// Output is deterministic: the same input always yields the same Text,
// which the ledger relies on.
type Renderer struct {
	links Links
}

// NewRenderer constructs a Renderer linking to the given URLs.
func NewRenderer(links Links) *Renderer {
	return &Renderer{links: links}
}

// examRow is one row of the exam table in a notification mail.
type examRow struct {
	ExamID         string
	Name           string
	Address        string
	District       string
	Start          string
	Seats          string
	DisabledAccess string
	Headphones     string
	TravelMinutes  string
	TravelKm       string
	Route          string
}

type mailData struct {
	Username string
	Count    int
	Table    string // pre-rendered plain text table
	Rows     []examRow
	Travel   bool
	Filters  []Filter
	Links    Links
}

// NotificationMessage renders the alert mail for a set of matches.
func (r *Renderer) NotificationMessage(sub domain.Subscriber, matches []domain.Match) (domain.Message, error) {
	data := mailData{
		Username: sub.Username(),
		Count:    len(matches),
		Links:    r.links,
	}
	for _, m := range matches {
		if m.HasTravel() {
			data.Travel = true
		}
	}
	for _, m := range matches {
		data.Rows = append(data.Rows, newExamRow(m))
	}
	data.Table = plainTable(data.Rows, data.Travel)

	msg, err := render(notificationText, notificationHTML, data)
	if err != nil {
		return domain.Message{}, fmt.Errorf("service.Renderer.NotificationMessage: %w", err)
	}
	msg.To = sub.Email
	msg.Subject = fmt.Sprintf("Fischereiprüfungen - Update - Es gibt %d freie Termine!", len(matches))
	return msg, nil
}

// SubscribeMessage renders the confirmation for a (re)subscription.
func (r *Renderer) SubscribeMessage(sub domain.Subscriber, filters []Filter) (domain.Message, error) {
	data := mailData{Username: sub.Username(), Filters: filters, Links: r.links}
	msg, err := render(subscribeText, subscribeHTML, data)
	if err != nil {
		return domain.Message{}, fmt.Errorf("service.Renderer.SubscribeMessage: %w", err)
	}
	msg.To = sub.Email
	msg.Subject = subscribeSubject
	return msg, nil
}

// UnsubscribeMessage renders the confirmation for an unsubscription.
func (r *Renderer) UnsubscribeMessage(sub domain.Subscriber) (domain.Message, error) {
	data := mailData{Username: sub.Username(), Links: r.links}
	msg, err := render(unsubscribeText, unsubscribeHTML, data)
	if err != nil {
		return domain.Message{}, fmt.Errorf("service.Renderer.UnsubscribeMessage: %w", err)
	}
	msg.To = sub.Email
	msg.Subject = unsubscribeSubject
	return msg, nil
}

func newExamRow(m domain.Match) examRow {
	e := m.Exam
	row := examRow{
		ExamID:         e.ExamID,
		Name:           e.Name,
		Address:        m.AddressLine,
		District:       string(e.District),
		Start:          e.Start.In(domain.Berlin).Format(startLayout),
		Seats:          fmt.Sprintf("%d / %d", e.CurrentParticipants, e.MaxParticipants),
		DisabledAccess: yesNo(e.DisabledAccess),
		Headphones:     yesNo(e.Headphones),
	}
	if m.HasTravel() {
		row.TravelMinutes = strconv.Itoa(*m.TravelSeconds / 60)
		row.TravelKm = strconv.Itoa(*m.TravelMeters / 1000)
		row.Route = RouteURL(m.StartAddressLine, m.AddressLine)
	}
	return row
}

// RouteURL links to the Google Maps directions between two addresses.
func RouteURL(start, end string) string {
	return "https://www.google.com/maps/dir/" + url.QueryEscape(start) + "/" + url.QueryEscape(end)
}

func yesNo(b bool) string {
	if b {
		return "Ja"
	}
	return "Nein"
}

func plainTable(rows []examRow, travel bool) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	header := "Prüfungs-Nr\tPrüfungslokal\tAdresse\tRegierungsbezirk\tPrüfungsbeginn\tBelegte Plätze\tBehindertengerecht\tKopfhörer"
	if travel {
		header += "\tFahrzeit [min]\tEntfernung [km]\tRoute"
	}
	fmt.Fprintln(w, header)
	for _, r := range rows {
		line := strings.Join([]string{r.ExamID, r.Name, r.Address, r.District, r.Start, r.Seats, r.DisabledAccess, r.Headphones}, "\t")
		if travel {
			line += "\t" + strings.Join([]string{r.TravelMinutes, r.TravelKm, r.Route}, "\t")
		}
		fmt.Fprintln(w, line)
	}
	_ = w.Flush()
	return buf.String()
}

func render(text *texttemplate.Template, html *htmltemplate.Template, data mailData) (domain.Message, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return domain.Message{}, fmt.Errorf("text: %w", err)
	}
	if err := html.Execute(&hb, data); err != nil {
		return domain.Message{}, fmt.Errorf("html: %w", err)
	}
	return domain.Message{Text: tb.String(), HTML: hb.String()}, nil
}

var notificationText = texttemplate.Must(texttemplate.New("notification").Parse(`Hi {{.Username}},

es gibt {{.Count}} Prüfungen, die deinen Filterkriterien entsprechen:

{{.Table}}
Du kannst dich hier für die Fischereiprüfung anmelden: {{.Links.ExamURL}}.

Du bekommst diese Mail, weil du dich für den Fischereiprüfungs Alarm angemeldet hast.
Wenn du keine Benachrichtigungen mehr erhalten möchtest oder du fälschlicherweise diese Mail erhalten hast, kannst du dich hier abmelden: {{.Links.UnsubscribeURL}}.
`))

var notificationHTML = htmltemplate.Must(htmltemplate.New("notification").Parse(`<p>Hi {{.Username}},<br/>
es gibt {{.Count}} Prüfungen, die deinen Filterkriterien entsprechen:</p>
<table border="1">
<thead><tr><th>Prüfungs-Nr</th><th>Prüfungslokal</th><th>Adresse</th><th>Regierungsbezirk</th><th>Prüfungsbeginn</th><th>Belegte Plätze</th><th>Behindertengerecht</th><th>Kopfhörer</th>{{if .Travel}}<th>Fahrzeit [min]</th><th>Entfernung [km]</th><th>Route</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.ExamID}}</td><td>{{.Name}}</td><td>{{.Address}}</td><td>{{.District}}</td><td>{{.Start}}</td><td>{{.Seats}}</td><td>{{.DisabledAccess}}</td><td>{{.Headphones}}</td>{{if $.Travel}}<td>{{.TravelMinutes}}</td><td>{{.TravelKm}}</td><td>{{if .Route}}<a href="{{.Route}}">Route</a>{{end}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
<p>Du kannst dich hier für die Fischereiprüfung anmelden: <a href="{{.Links.ExamURL}}">{{.Links.ExamURL}}</a>.</p>
<p>Du bekommst diese Mail, weil du dich für den Fischereiprüfungs Alarm angemeldet hast.<br/>
Wenn du keine Benachrichtigungen mehr erhalten möchtest oder du fälschlicherweise diese Mail erhalten hast, kannst du dich <a href="{{.Links.UnsubscribeURL}}">hier</a> abmelden.</p>
`))

var subscribeText = texttemplate.Must(texttemplate.New("subscribe").Parse(`Hi {{.Username}},

du erhältst diese Mail, weil du dich für den Fischereiprüfungs Alarm angemeldet hast.
Ab sofort wirst du über alle Termine informiert, wenn die folgenden Filter zutreffen:

{{range .Filters}}	- {{.Name}}: {{.Value}}
{{end}}
Wenn du keine Benachrichtigungen mehr erhalten möchtest oder du fälschlicherweise diese Mail erhalten hast, kannst du dich hier abmelden: {{.Links.UnsubscribeURL}}.
`))

var subscribeHTML = htmltemplate.Must(htmltemplate.New("subscribe").Parse(`<p>Hi {{.Username}},<br/>
du erhältst diese Mail, weil du dich für den Fischereiprüfungs Alarm angemeldet hast.<br/>
Ab sofort wirst du über alle Termine informiert, wenn die folgenden Filter zutreffen:</p>
<ul>
{{- range .Filters}}
<li>{{.Name}}: {{.Value}}</li>
{{- end}}
</ul>
<p>Wenn du keine Benachrichtigungen mehr erhalten möchtest oder du fälschlicherweise diese Mail erhalten hast, kannst du dich <a href="{{.Links.UnsubscribeURL}}">hier</a> abmelden.</p>
`))

var unsubscribeText = texttemplate.Must(texttemplate.New("unsubscribe").Parse(`Hi {{.Username}},

du wurdest erfolgreich abgemeldet! Du erhältst zukünftig keine Benachrichtigungen mehr.

Wenn du fälschlicherweise abgemeldet wurdest oder dich wieder anmelden möchtest, kannst du dich hier wieder anmelden: {{.Links.SubscribeURL}}.
`))

var unsubscribeHTML = htmltemplate.Must(htmltemplate.New("unsubscribe").Parse(`<p>Hi {{.Username}},<br/>
du wurdest erfolgreich abgemeldet! Du erhältst zukünftig keine Benachrichtigungen mehr.</p>
<p>Wenn du fälschlicherweise abgemeldet wurdest oder dich wieder anmelden möchtest, kannst du dich <a href="{{.Links.SubscribeURL}}">hier</a> wieder anmelden.</p>
`))

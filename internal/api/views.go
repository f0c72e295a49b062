package api

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"housingadmin/console/internal/validation"
)

type tableRow struct {
	ID      string
	Cells   []string
	Badge   string
	Pending bool
}

type listView struct {
	Title         string
	Path          string
	Columns       []string
	Rows          []tableRow
	Search        string
	Filter        string
	FilterLabel   string
	FilterOptions []string
	BadgeLabel    string
	Loading       bool
	Error         string
	CanEdit       bool
	// ReadOnly hides the search box and every row action.
	ReadOnly bool
}

type field struct {
	Name     string
	Label    string
	Type     string
	Value    string
	Error    string
	Options  []string
	Multiple bool
	Accept   string
}

type formView struct {
	Title     string
	Action    string
	Cancel    string
	Fields    []field
	Error     string
	Multipart bool
	Images    []template.URL
}

type pair struct {
	Label string
	Value string
}

type link struct {
	Label string
	URL   string
}

type detailTab struct {
	Key    string
	Label  string
	Fields []pair
	Images []string
	Links  []link
	Note   string
}

type statusButton struct {
	Value   string
	Current bool
	Allowed bool
}

type detailView struct {
	Title    string
	Path     string
	ID       string
	Badge    string
	Active   string
	Tabs     []detailTab
	Statuses []statusButton
	CanEdit  bool
}

type confirmView struct {
	Title   string
	Message string
	Action  string
	Cancel  string
}

// page wraps every rendered view with the layout data.
type page struct {
	Title   string
	Nav     string
	Admin   string
	Flashes []string
	Body    any
}

func (v *formView) add(errs validation.FieldErrors, name, label, typ, value string) *field {
	v.Fields = append(v.Fields, field{Name: name, Label: label, Type: typ, Value: value, Error: errs[name]})
	return &v.Fields[len(v.Fields)-1]
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatMoney(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func optionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func optionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

// imageURLs marks thumbnails as safe for src attributes. Inline previews are
// data URLs built from files the admin just picked; anything else that is not
// http(s) is dropped.
func imageURLs(in []string) []template.URL {
	var out []template.URL
	for _, u := range in {
		if strings.HasPrefix(u, "data:image/") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://") {
			out = append(out, template.URL(u))
		}
	}
	return out
}

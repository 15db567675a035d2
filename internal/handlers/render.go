package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/types"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{
	"login",
	"dashboard",
	"profile",
	"employees",
	"employee_form",
	"employee_view",
	"departments",
	"department_form",
	"department_employees",
	"attendance",
	"mark_attendance",
	"attendance_history",
	"attendance_report",
	"reports",
	"users",
	"user_form",
}

var templateFuncs = template.FuncMap{
	"date":    formatDate,
	"clock":   formatClock,
	"money":   formatMoney,
	"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"dict":    dict,
	"statuses": func() []string { return types.EmployeeStatuses },
	"deref": func(v *int) int {
		if v == nil {
			return 0
		}
		return *v
	},
}

// Page is the data passed to every template.
type Page struct {
	Title    string
	Identity *types.Identity
	Notice   string
	Error    string
	// Form holds submitted values when a form is re-rendered.
	Form   map[string]string
	Errors map[string]string
	Data   any

	guard *Guard
}

// Can reports whether the current identity may perform action on resource.
func (p Page) Can(resource, action string) bool {
	if p.Identity == nil || p.guard == nil {
		return false
	}
	return p.guard.Can(*p.Identity, resource, action)
}

// Value returns a submitted form value.
func (p Page) Value(name string) string {
	return p.Form[name]
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
	guard *Guard
}

func NewRenderer(guard *Guard) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templatesFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, guard: guard}, nil
}

// Render writes the named page. Notices passed through the query string are
// picked up unless the page already carries one.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := rd.pages[name]
	if !ok {
		logging.Logger(r.Context(), nil).ErrorContext(r.Context(), "unknown template", "template", name)
		http.Error(w, genericErrorMessage, http.StatusInternalServerError)
		return
	}

	if identity, ok := identityFromRequest(r); ok && page.Identity == nil {
		page.Identity = &identity
	}
	if page.Notice == "" {
		page.Notice = r.URL.Query().Get("success")
	}
	if page.Error == "" {
		page.Error = r.URL.Query().Get("error")
	}
	page.guard = rd.guard

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		logging.Logger(r.Context(), nil).ErrorContext(r.Context(), "render template failed", "template", name, "error", err)
		http.Error(w, genericErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// dict builds the argument map of a nested template call.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	case *time.Time:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	}
	return ""
}

func formatClock(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("15:04")
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

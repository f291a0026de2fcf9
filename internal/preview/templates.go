package preview

import (
	"embed"
	"html/template"
	"strconv"
	"strings"

	"cv-builder/internal/domain"
)

// Template discriminators. The three variants consume the identical
// templateData shape, so switching costs nothing but a re-render.
const (
	TemplateDefault = "default"
	TemplateLyxig   = "lyxig"
	TemplateElegant = "elegant"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

type visibleSection struct {
	Kind  domain.SectionKind
	Title string
}

type templateData struct {
	Doc         *domain.Document
	Sections    []visibleSection
	Font        string
	FontSizePx  string
	TextColor   string
	HeaderColor string
	WidthMM     int
	HeightMM    int
}

var monthNames = []string{
	"Januari", "Februari", "Mars", "April", "Maj", "Juni",
	"Juli", "Augusti", "September", "Oktober", "November", "December",
}

// formatDate turns a month number + year into "Mars 2021".
func formatDate(month, year string) string {
	name := ""
	if n, err := strconv.Atoi(month); err == nil && n >= 1 && n <= 12 {
		name = monthNames[n-1]
	}
	return strings.TrimSpace(name + " " + year)
}

// formatPeriod renders a date range, with "Nuvarande" for ongoing entries.
func formatPeriod(startDate, startYear, endDate, endYear string, current bool) string {
	start := formatDate(startDate, startYear)
	end := formatDate(endDate, endYear)
	if current {
		end = "Nuvarande"
	}
	if start == "" && end == "" {
		return ""
	}
	if end == "" {
		return start
	}
	if start == "" {
		return end
	}
	return start + " – " + end
}

var templateFuncs = template.FuncMap{
	"formatDate":   formatDate,
	"formatPeriod": formatPeriod,
	// rich renders the user's own rich-text description markup
	"rich": func(s string) template.HTML { return template.HTML(s) },
	"skillPercent": func(level int) int {
		if level < 0 {
			level = 0
		}
		if level > 5 {
			level = 5
		}
		return level * 20
	},
	"skillDots": func(level int) []bool {
		if level < 0 {
			level = 0
		}
		if level > 5 {
			level = 5
		}
		out := make([]bool, 5)
		for i := 0; i < level; i++ {
			out[i] = true
		}
		return out
	},
}

var templates = map[string]*template.Template{}

func init() {
	for _, name := range []string{TemplateDefault, TemplateLyxig, TemplateElegant} {
		templates[name] = template.Must(
			template.New(name + ".html.tmpl").Funcs(templateFuncs).ParseFS(templateFS, "templates/"+name+".html.tmpl"),
		)
	}
}

// templateFor selects a variant by discriminator. The set is closed; an
// unknown name falls back to the default variant the way the original
// editor did.
func templateFor(name string) *template.Template {
	switch name {
	case TemplateLyxig:
		return templates[TemplateLyxig]
	case TemplateElegant:
		return templates[TemplateElegant]
	}
	return templates[TemplateDefault]
}

// TemplateNames lists the selectable variants.
func TemplateNames() []string {
	return []string{TemplateDefault, TemplateLyxig, TemplateElegant}
}

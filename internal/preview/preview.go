package preview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	"cv-builder/internal/domain"
)

// A4 size in mm. The preview is one continuous block sized to a whole number
// of pages; when content outgrows the allotted height another page unit is
// added, it does not reflow.
const (
	a4WidthMM  = 210
	a4HeightMM = 297
)

// Input is the full tuple the renderer is a pure function of.
type Input struct {
	Doc         *domain.Document           `json:"doc"`
	Order       []domain.SectionKind       `json:"order"`
	Sections    []domain.SectionDescriptor `json:"sections"`
	Template    string                     `json:"template"`
	Font        string                     `json:"font"`
	FontSizePx  string                     `json:"fontSizePx"`
	TextColor   string                     `json:"textColor"`
	HeaderColor string                     `json:"headerColor"`
}

// Output is a rendered preview document.
type Output struct {
	HTML     string
	Pages    int
	HeightMM int
}

// Renderer turns an Input into styled HTML through one of the template
// variants. It memoizes the last render on the whole input tuple so repeated
// renders with unchanged inputs are free.
type Renderer struct {
	mu       sync.Mutex
	lastHash uint64
	lastKey  []byte
	last     Output
	hasLast  bool
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// VisibleSections intersects the ordered present sections with the
// descriptors whose Hidden flag is off, preserving order.
func VisibleSections(order []domain.SectionKind, sections []domain.SectionDescriptor) []domain.SectionKind {
	hidden := make(map[domain.SectionKind]bool, len(sections))
	known := make(map[domain.SectionKind]bool, len(sections))
	for _, s := range sections {
		known[s.Kind] = true
		hidden[s.Kind] = s.Hidden
	}
	out := make([]domain.SectionKind, 0, len(order))
	for _, k := range order {
		if known[k] && !hidden[k] {
			out = append(out, k)
		}
	}
	return out
}

// Render produces the preview for the given inputs.
func (r *Renderer) Render(in Input) (Output, error) {
	key, hash, err := inputKey(in)
	if err != nil {
		return Output{}, err
	}
	r.mu.Lock()
	// the hash is a fast reject; the key bytes make the memo exact
	if r.hasLast && r.lastHash == hash && bytes.Equal(r.lastKey, key) {
		out := r.last
		r.mu.Unlock()
		return out, nil
	}
	r.mu.Unlock()

	out, err := render(in)
	if err != nil {
		return Output{}, err
	}

	r.mu.Lock()
	r.lastHash = hash
	r.lastKey = key
	r.last = out
	r.hasLast = true
	r.mu.Unlock()
	return out, nil
}

func inputKey(in Input) ([]byte, uint64, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, 0, fmt.Errorf("hash preview input: %w", err)
	}
	h := fnv.New64a()
	h.Write(b)
	return b, h.Sum64(), nil
}

func render(in Input) (Output, error) {
	if in.Doc == nil {
		return Output{}, fmt.Errorf("render: nil document")
	}
	visible := VisibleSections(in.Order, in.Sections)

	heightMM := estimateHeightMM(in.Doc, visible)
	pages := 1
	for pages*a4HeightMM < heightMM {
		pages++
	}

	titles := make(map[domain.SectionKind]string, len(in.Sections))
	for _, s := range in.Sections {
		titles[s.Kind] = s.Title
	}

	data := templateData{
		Doc:         in.Doc,
		Font:        in.Font,
		FontSizePx:  in.FontSizePx,
		TextColor:   in.TextColor,
		HeaderColor: in.HeaderColor,
		WidthMM:     a4WidthMM,
		HeightMM:    pages * a4HeightMM,
	}
	for _, k := range visible {
		data.Sections = append(data.Sections, visibleSection{Kind: k, Title: titles[k]})
	}

	tpl := templateFor(in.Template)
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return Output{}, fmt.Errorf("execute template %q: %w", in.Template, err)
	}
	return Output{HTML: buf.String(), Pages: pages, HeightMM: pages * a4HeightMM}, nil
}

// estimateHeightMM approximates rendered content height. The browser measured
// real pixels in the original; server-side we count lines instead. Rough is
// fine: pagination only grows the canvas, it never clips.
func estimateHeightMM(d *domain.Document, visible []domain.SectionKind) int {
	const (
		headerMM       = 42 // name block, contact row
		sectionTitleMM = 12
		lineMM         = 6
	)
	h := headerMM
	textLines := func(s string) int {
		if s == "" {
			return 0
		}
		// ~90 chars per A4 line at default size
		return 1 + len(s)/90
	}
	for _, k := range visible {
		switch k {
		case domain.SectionPersonalInfo:
			h += lineMM * (2 + len(d.PersonalInfo.OptionalFields))
			h += lineMM * textLines(d.PersonalInfo.Summary)
		case domain.SectionExperience:
			h += sectionTitleMM
			for _, e := range d.Experience {
				h += 2*lineMM + lineMM*textLines(e.Description)
			}
		case domain.SectionEducation:
			h += sectionTitleMM
			for _, e := range d.Education {
				h += 2*lineMM + lineMM*textLines(e.Description)
			}
		case domain.SectionSkills:
			h += sectionTitleMM + lineMM*len(d.Skills)
		case domain.SectionLanguages:
			h += sectionTitleMM + lineMM*len(d.Languages)
		case domain.SectionCourses:
			h += sectionTitleMM
			for _, e := range d.Sections.Courses {
				h += 2*lineMM + lineMM*textLines(e.Description)
			}
		case domain.SectionInternship:
			h += sectionTitleMM
			for _, e := range d.Sections.Internship {
				h += 2*lineMM + lineMM*textLines(e.Description)
			}
		case domain.SectionProfile:
			h += sectionTitleMM
			for _, e := range d.Sections.Profile {
				h += lineMM + lineMM*textLines(e.Description)
			}
		case domain.SectionReferences:
			h += sectionTitleMM + 3*lineMM*len(d.Sections.References)
		case domain.SectionTraits:
			h += sectionTitleMM
			for _, e := range d.Sections.Traits {
				h += lineMM + lineMM*textLines(e.Description)
			}
		case domain.SectionCertificates:
			h += sectionTitleMM
			for _, e := range d.Sections.Certificates {
				h += lineMM + lineMM*textLines(e.Description)
			}
		case domain.SectionAchievements:
			h += sectionTitleMM
			for _, e := range d.Sections.Achievements {
				h += lineMM + lineMM*textLines(e.Description)
			}
		}
	}
	return h
}

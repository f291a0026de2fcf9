package domain

import "strings"

// Go model of the CV document the editor mutates and the templates render.
// This is also the canonical persisted shape: the whole tree goes into the
// cvs.data JSONB column as-is.

type PersonalInfo struct {
	Title          string          `json:"title"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Location       string          `json:"location"`
	Summary        string          `json:"summary"`
	Photo          string          `json:"photo"`
	Address        string          `json:"address"`
	PostalCode     string          `json:"postalCode"`
	OptionalFields []OptionalField `json:"optionalFields"`
}

type ExperienceEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	StartYear   string `json:"startYear"`
	EndDate     string `json:"endDate"`
	EndYear     string `json:"endYear"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

type EducationEntry struct {
	Degree      string `json:"degree"`
	School      string `json:"school"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	StartYear   string `json:"startYear"`
	EndDate     string `json:"endDate"`
	EndYear     string `json:"endYear"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

type SkillEntry struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type LanguageEntry struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type CourseEntry struct {
	Title       string `json:"title"`
	Institution string `json:"institution"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	StartYear   string `json:"startYear"`
	EndDate     string `json:"endDate"`
	EndYear     string `json:"endYear"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

type InternshipEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	StartYear   string `json:"startYear"`
	EndDate     string `json:"endDate"`
	EndYear     string `json:"endYear"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

type ProfileEntry struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ReferenceEntry struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

type TraitEntry struct {
	Trait       string `json:"trait"`
	Description string `json:"description"`
}

type CertificateEntry struct {
	Name        string `json:"name"`
	Issuer      string `json:"issuer"`
	Date        string `json:"date"`
	Year        string `json:"year"`
	Description string `json:"description"`
}

type AchievementEntry struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Year        string `json:"year"`
	Description string `json:"description"`
}

// DynamicSections groups the lists that live under the nested "sections" key
// of the persisted document.
type DynamicSections struct {
	Courses      []CourseEntry      `json:"courses"`
	Internship   []InternshipEntry  `json:"internship"`
	Profile      []ProfileEntry     `json:"profile"`
	References   []ReferenceEntry   `json:"references"`
	Traits       []TraitEntry       `json:"traits"`
	Certificates []CertificateEntry `json:"certificates"`
	Achievements []AchievementEntry `json:"achievements"`
}

// Document is the root of one CV. It is owned by exactly one editor session
// and mutated only through the form state store.
type Document struct {
	PersonalInfo PersonalInfo      `json:"personalInfo"`
	Experience   []ExperienceEntry `json:"experience"`
	Education    []EducationEntry  `json:"education"`
	Skills       []SkillEntry      `json:"skills"`
	Languages    []LanguageEntry   `json:"languages"`
	Sections     DynamicSections   `json:"sections"`
}

// NewDocument returns an empty document that already satisfies the
// no-headless-section invariant: every repeated list holds one blank entry.
func NewDocument() *Document {
	d := &Document{}
	d.Normalize()
	return d
}

// Normalize defensively fills a document so the editor never binds against a
// missing value: nil slices become non-empty (one blank entry per list, since
// the form always shows at least one), optional fields get ids, and entries
// marked current have their end dates cleared.
func (d *Document) Normalize() {
	if d.Experience == nil || len(d.Experience) == 0 {
		d.Experience = []ExperienceEntry{{}}
	}
	if d.Education == nil || len(d.Education) == 0 {
		d.Education = []EducationEntry{{}}
	}
	if d.Skills == nil || len(d.Skills) == 0 {
		d.Skills = []SkillEntry{{}}
	}
	if d.Languages == nil || len(d.Languages) == 0 {
		d.Languages = []LanguageEntry{{}}
	}
	if len(d.Sections.Courses) == 0 {
		d.Sections.Courses = []CourseEntry{{}}
	}
	if len(d.Sections.Internship) == 0 {
		d.Sections.Internship = []InternshipEntry{{}}
	}
	if len(d.Sections.Profile) == 0 {
		d.Sections.Profile = []ProfileEntry{{}}
	}
	if len(d.Sections.References) == 0 {
		d.Sections.References = []ReferenceEntry{{}}
	}
	if len(d.Sections.Traits) == 0 {
		d.Sections.Traits = []TraitEntry{{}}
	}
	if len(d.Sections.Certificates) == 0 {
		d.Sections.Certificates = []CertificateEntry{{}}
	}
	if len(d.Sections.Achievements) == 0 {
		d.Sections.Achievements = []AchievementEntry{{}}
	}
	if d.PersonalInfo.OptionalFields == nil {
		d.PersonalInfo.OptionalFields = []OptionalField{}
	}
	for i := range d.PersonalInfo.OptionalFields {
		d.PersonalInfo.OptionalFields[i].ensureID()
	}
	for i := range d.Experience {
		if d.Experience[i].Current {
			d.Experience[i].EndDate = ""
			d.Experience[i].EndYear = ""
		}
	}
	for i := range d.Education {
		if d.Education[i].Current {
			d.Education[i].EndDate = ""
			d.Education[i].EndYear = ""
		}
	}
	for i := range d.Sections.Courses {
		if d.Sections.Courses[i].Current {
			d.Sections.Courses[i].EndDate = ""
			d.Sections.Courses[i].EndYear = ""
		}
	}
	for i := range d.Sections.Internship {
		if d.Sections.Internship[i].Current {
			d.Sections.Internship[i].EndDate = ""
			d.Sections.Internship[i].EndYear = ""
		}
	}
}

// Clone deep-copies the document. All entry types are value types, so copying
// the slices is enough; optional fields are copied as well.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.PersonalInfo.OptionalFields = append([]OptionalField(nil), d.PersonalInfo.OptionalFields...)
	out.Experience = append([]ExperienceEntry(nil), d.Experience...)
	out.Education = append([]EducationEntry(nil), d.Education...)
	out.Skills = append([]SkillEntry(nil), d.Skills...)
	out.Languages = append([]LanguageEntry(nil), d.Languages...)
	out.Sections.Courses = append([]CourseEntry(nil), d.Sections.Courses...)
	out.Sections.Internship = append([]InternshipEntry(nil), d.Sections.Internship...)
	out.Sections.Profile = append([]ProfileEntry(nil), d.Sections.Profile...)
	out.Sections.References = append([]ReferenceEntry(nil), d.Sections.References...)
	out.Sections.Traits = append([]TraitEntry(nil), d.Sections.Traits...)
	out.Sections.Certificates = append([]CertificateEntry(nil), d.Sections.Certificates...)
	out.Sections.Achievements = append([]AchievementEntry(nil), d.Sections.Achievements...)
	return &out
}

// DerivedTitle builds the saved-CV title from the name fields, or the fixed
// fallback when both are empty.
func (d *Document) DerivedTitle() string {
	first := strings.TrimSpace(d.PersonalInfo.FirstName)
	last := strings.TrimSpace(d.PersonalInfo.LastName)
	if first == "" && last == "" {
		return "Untitled CV"
	}
	name := strings.TrimSpace(first + " " + last)
	return name + "'s CV"
}

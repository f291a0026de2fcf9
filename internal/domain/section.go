package domain

// SectionKind is the closed set of résumé sections the editor knows about.
// Adding a section type means adding a constant here and extending the
// exhaustive switches in the editor store and the preview templates.
type SectionKind string

const (
	SectionPersonalInfo SectionKind = "personalInfo"
	SectionExperience   SectionKind = "experience"
	SectionEducation    SectionKind = "education"
	SectionSkills       SectionKind = "skills"
	SectionLanguages    SectionKind = "languages"
	SectionCourses      SectionKind = "courses"
	SectionInternship   SectionKind = "internship"
	SectionProfile      SectionKind = "profile"
	SectionReferences   SectionKind = "references"
	SectionTraits       SectionKind = "traits"
	SectionCertificates SectionKind = "certificates"
	SectionAchievements SectionKind = "achievements"
)

// AllSectionKinds lists every kind in catalog order.
var AllSectionKinds = []SectionKind{
	SectionPersonalInfo,
	SectionEducation,
	SectionExperience,
	SectionSkills,
	SectionLanguages,
	SectionCourses,
	SectionInternship,
	SectionTraits,
	SectionCertificates,
	SectionAchievements,
	SectionProfile,
	SectionReferences,
}

// ParseSectionKind maps a wire string to a known kind.
func ParseSectionKind(s string) (SectionKind, bool) {
	k := SectionKind(s)
	for _, known := range AllSectionKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// SectionDescriptor is one immutable catalog entry. Hidden is the only field
// the editor flips at runtime (on its own copy of the catalog).
type SectionDescriptor struct {
	Kind      SectionKind `json:"id"`
	Title     string      `json:"title"`
	Removable bool        `json:"removable"`
	Hidden    bool        `json:"hidden"`
}

// DefaultDescriptors returns the section catalog with the product's display
// titles and default visibility: the four base sections plus personal info
// render by default, the dynamic sections start hidden.
func DefaultDescriptors() []SectionDescriptor {
	return []SectionDescriptor{
		{Kind: SectionPersonalInfo, Title: "Personuppgifter", Removable: false, Hidden: false},
		{Kind: SectionEducation, Title: "Utbildning", Removable: true, Hidden: false},
		{Kind: SectionExperience, Title: "Arbetslivserfarenhet", Removable: true, Hidden: false},
		{Kind: SectionSkills, Title: "Färdigheter", Removable: true, Hidden: false},
		{Kind: SectionLanguages, Title: "Språk", Removable: true, Hidden: false},
		{Kind: SectionCourses, Title: "Kurser", Removable: true, Hidden: true},
		{Kind: SectionInternship, Title: "Praktik", Removable: true, Hidden: true},
		{Kind: SectionTraits, Title: "Egenskaper", Removable: true, Hidden: true},
		{Kind: SectionCertificates, Title: "Certifikat", Removable: true, Hidden: true},
		{Kind: SectionAchievements, Title: "Prestationer", Removable: true, Hidden: true},
		{Kind: SectionProfile, Title: "Profil", Removable: true, Hidden: true},
		{Kind: SectionReferences, Title: "Referenser", Removable: true, Hidden: true},
	}
}

// DefaultSectionOrder is the order sections appear in a fresh editor.
// Experience deliberately sits above education.
func DefaultSectionOrder() []SectionKind {
	return []SectionKind{
		SectionPersonalInfo,
		SectionExperience,
		SectionEducation,
		SectionSkills,
		SectionLanguages,
		SectionCourses,
		SectionInternship,
		SectionTraits,
		SectionCertificates,
		SectionAchievements,
		SectionProfile,
		SectionReferences,
	}
}

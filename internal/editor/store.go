package editor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"cv-builder/internal/domain"
)

var (
	ErrUnknownPath     = errors.New("unknown field path")
	ErrIndexOutOfRange = errors.New("list index out of range")
	ErrBadValue        = errors.New("value has wrong type for field")
)

// Store is the form state store: it owns one Document for the lifetime of an
// editor session and is the only thing that mutates it. All operations are
// synchronous; watchers see every mutation immediately.
//
// Paths are dotted, mirroring the form field names:
//
//	personalInfo.firstName
//	personalInfo.optionalFields.<id>.value
//	experience.0.title
//	sections.courses.1.institution
type Store struct {
	mu       sync.Mutex
	doc      *domain.Document
	version  uint64
	watchers map[int]func(*domain.Document)
	nextID   int
}

func NewStore() *Store {
	return &Store{
		doc:      domain.NewDocument(),
		watchers: map[int]func(*domain.Document){},
	}
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() *domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Version returns the mutation counter. Every successful write bumps it under
// the store lock, so a caller doing async work can detect edits that landed
// in the meantime with ResetIfUnchanged.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Watch registers a callback invoked with a fresh snapshot after every
// mutation. The returned function unsubscribes.
func (s *Store) Watch(fn func(*domain.Document)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Reset atomically replaces the whole document. The replacement is normalized
// first so observers never see missing defaults.
func (s *Store) Reset(doc *domain.Document) {
	if doc == nil {
		doc = domain.NewDocument()
	}
	doc.Normalize()
	s.mu.Lock()
	s.doc = doc.Clone()
	s.version++
	s.mu.Unlock()
	s.notify()
}

// ResetIfUnchanged replaces the whole document only if no mutation landed
// since the caller observed version. The check and the swap happen under one
// lock, so a write racing the replacement either bumps the version first and
// wins, or applies on top of the new document. Reports whether the
// replacement was applied.
func (s *Store) ResetIfUnchanged(doc *domain.Document, version uint64) bool {
	if doc == nil {
		doc = domain.NewDocument()
	}
	doc.Normalize()
	s.mu.Lock()
	if s.version != version {
		s.mu.Unlock()
		return false
	}
	s.doc = doc.Clone()
	s.version++
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.doc.Clone()
	fns := make([]func(*domain.Document), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// GetValue reads one field by path.
func (s *Store) GetValue(path string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(path, nil, false)
}

// SetValue writes one field by path and notifies watchers.
func (s *Store) SetValue(path string, value interface{}) error {
	s.mu.Lock()
	_, err := s.resolve(path, value, true)
	if err == nil {
		s.version++
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// AppendItem appends a blank entry of the correct shape to the list at
// listPath and returns its index.
func (s *Store) AppendItem(listPath string) (int, error) {
	kind, ok := listKind(listPath)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPath, listPath)
	}
	s.mu.Lock()
	idx, err := appendBlank(s.doc, kind)
	if err == nil {
		s.version++
	}
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	s.notify()
	return idx, nil
}

// RemoveItem removes the entry at index from the list at listPath. A list
// never ends up empty: removing the last entry leaves one blank entry so the
// form keeps something to bind to.
func (s *Store) RemoveItem(listPath string, index int) error {
	kind, ok := listKind(listPath)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPath, listPath)
	}
	s.mu.Lock()
	err := removeAt(s.doc, kind, index)
	if err == nil {
		s.doc.Normalize()
		s.version++
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// AddOptionalField activates an optional personal-info field in place.
func (s *Store) AddOptionalField(t domain.OptionalFieldType) domain.OptionalField {
	s.mu.Lock()
	f := s.doc.PersonalInfo.AddOptionalField(t)
	s.version++
	s.mu.Unlock()
	s.notify()
	return f
}

// RemoveOptionalField deactivates an optional field, returning its type to
// the available pool.
func (s *Store) RemoveOptionalField(id string) {
	s.mu.Lock()
	s.doc.PersonalInfo.RemoveOptionalField(id)
	s.version++
	s.mu.Unlock()
	s.notify()
}

// listKind maps a list path ("experience", "sections.courses") to its kind.
func listKind(listPath string) (domain.SectionKind, bool) {
	p := strings.TrimPrefix(listPath, "sections.")
	kind, ok := domain.ParseSectionKind(p)
	if !ok || kind == domain.SectionPersonalInfo {
		return "", false
	}
	return kind, true
}

func appendBlank(d *domain.Document, kind domain.SectionKind) (int, error) {
	switch kind {
	case domain.SectionExperience:
		d.Experience = append(d.Experience, domain.ExperienceEntry{})
		return len(d.Experience) - 1, nil
	case domain.SectionEducation:
		d.Education = append(d.Education, domain.EducationEntry{})
		return len(d.Education) - 1, nil
	case domain.SectionSkills:
		d.Skills = append(d.Skills, domain.SkillEntry{})
		return len(d.Skills) - 1, nil
	case domain.SectionLanguages:
		d.Languages = append(d.Languages, domain.LanguageEntry{})
		return len(d.Languages) - 1, nil
	case domain.SectionCourses:
		d.Sections.Courses = append(d.Sections.Courses, domain.CourseEntry{})
		return len(d.Sections.Courses) - 1, nil
	case domain.SectionInternship:
		d.Sections.Internship = append(d.Sections.Internship, domain.InternshipEntry{})
		return len(d.Sections.Internship) - 1, nil
	case domain.SectionProfile:
		d.Sections.Profile = append(d.Sections.Profile, domain.ProfileEntry{})
		return len(d.Sections.Profile) - 1, nil
	case domain.SectionReferences:
		d.Sections.References = append(d.Sections.References, domain.ReferenceEntry{})
		return len(d.Sections.References) - 1, nil
	case domain.SectionTraits:
		d.Sections.Traits = append(d.Sections.Traits, domain.TraitEntry{})
		return len(d.Sections.Traits) - 1, nil
	case domain.SectionCertificates:
		d.Sections.Certificates = append(d.Sections.Certificates, domain.CertificateEntry{})
		return len(d.Sections.Certificates) - 1, nil
	case domain.SectionAchievements:
		d.Sections.Achievements = append(d.Sections.Achievements, domain.AchievementEntry{})
		return len(d.Sections.Achievements) - 1, nil
	case domain.SectionPersonalInfo:
		return 0, fmt.Errorf("%w: personalInfo is not a list", ErrUnknownPath)
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownPath, kind)
}

func removeAt(d *domain.Document, kind domain.SectionKind, i int) error {
	oob := func(n int) error {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
		}
		return nil
	}
	switch kind {
	case domain.SectionExperience:
		if err := oob(len(d.Experience)); err != nil {
			return err
		}
		d.Experience = append(d.Experience[:i], d.Experience[i+1:]...)
	case domain.SectionEducation:
		if err := oob(len(d.Education)); err != nil {
			return err
		}
		d.Education = append(d.Education[:i], d.Education[i+1:]...)
	case domain.SectionSkills:
		if err := oob(len(d.Skills)); err != nil {
			return err
		}
		d.Skills = append(d.Skills[:i], d.Skills[i+1:]...)
	case domain.SectionLanguages:
		if err := oob(len(d.Languages)); err != nil {
			return err
		}
		d.Languages = append(d.Languages[:i], d.Languages[i+1:]...)
	case domain.SectionCourses:
		if err := oob(len(d.Sections.Courses)); err != nil {
			return err
		}
		d.Sections.Courses = append(d.Sections.Courses[:i], d.Sections.Courses[i+1:]...)
	case domain.SectionInternship:
		if err := oob(len(d.Sections.Internship)); err != nil {
			return err
		}
		d.Sections.Internship = append(d.Sections.Internship[:i], d.Sections.Internship[i+1:]...)
	case domain.SectionProfile:
		if err := oob(len(d.Sections.Profile)); err != nil {
			return err
		}
		d.Sections.Profile = append(d.Sections.Profile[:i], d.Sections.Profile[i+1:]...)
	case domain.SectionReferences:
		if err := oob(len(d.Sections.References)); err != nil {
			return err
		}
		d.Sections.References = append(d.Sections.References[:i], d.Sections.References[i+1:]...)
	case domain.SectionTraits:
		if err := oob(len(d.Sections.Traits)); err != nil {
			return err
		}
		d.Sections.Traits = append(d.Sections.Traits[:i], d.Sections.Traits[i+1:]...)
	case domain.SectionCertificates:
		if err := oob(len(d.Sections.Certificates)); err != nil {
			return err
		}
		d.Sections.Certificates = append(d.Sections.Certificates[:i], d.Sections.Certificates[i+1:]...)
	case domain.SectionAchievements:
		if err := oob(len(d.Sections.Achievements)); err != nil {
			return err
		}
		d.Sections.Achievements = append(d.Sections.Achievements[:i], d.Sections.Achievements[i+1:]...)
	case domain.SectionPersonalInfo:
		return fmt.Errorf("%w: personalInfo is not a list", ErrUnknownPath)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPath, kind)
	}
	return nil
}

// resolve walks a path and either reads or writes the addressed field.
// Caller holds the lock.
func (s *Store) resolve(path string, value interface{}, write bool) (interface{}, error) {
	segs := strings.Split(path, ".")
	if len(segs) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	if segs[0] == "sections" {
		segs = segs[1:]
		if len(segs) < 2 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
		}
	}
	kind, ok := domain.ParseSectionKind(segs[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	if kind == domain.SectionPersonalInfo {
		return s.resolvePersonal(segs[1:], path, value, write)
	}
	if len(segs) != 3 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	idx, err := strconv.Atoi(segs[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	return s.resolveEntry(kind, idx, segs[2], path, value, write)
}

func (s *Store) resolvePersonal(segs []string, path string, value interface{}, write bool) (interface{}, error) {
	p := &s.doc.PersonalInfo
	if segs[0] == "optionalFields" {
		if len(segs) != 3 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
		}
		for i := range p.OptionalFields {
			if p.OptionalFields[i].ID != segs[1] {
				continue
			}
			switch segs[2] {
			case "label":
				if !write {
					return p.OptionalFields[i].Label, nil
				}
				v, err := asString(value)
				if err != nil {
					return nil, err
				}
				p.OptionalFields[i].Label = v
				return nil, nil
			case "value":
				if !write {
					return p.OptionalFields[i].Value, nil
				}
				v, err := asString(value)
				if err != nil {
					return nil, err
				}
				p.OptionalFields[i].Value = v
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	if len(segs) != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	var target *string
	switch segs[0] {
	case "title":
		target = &p.Title
	case "firstName":
		target = &p.FirstName
	case "lastName":
		target = &p.LastName
	case "email":
		target = &p.Email
	case "phone":
		target = &p.Phone
	case "location":
		target = &p.Location
	case "summary":
		target = &p.Summary
	case "photo":
		target = &p.Photo
	case "address":
		target = &p.Address
	case "postalCode":
		target = &p.PostalCode
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	if !write {
		return *target, nil
	}
	v, err := asString(value)
	if err != nil {
		return nil, err
	}
	*target = v
	return nil, nil
}

// timedFields gives addressable access to the common fields of a time-ranged
// entry. Setting current=true clears the end date and keeps its inputs dead
// until current is unset again; the previous values are not restored.
type timedFields struct {
	startDate, startYear *string
	endDate, endYear     *string
	current              *bool
}

func (t timedFields) access(field string, value interface{}, write bool) (interface{}, bool, error) {
	switch field {
	case "startDate", "startYear", "endDate", "endYear":
		var target *string
		switch field {
		case "startDate":
			target = t.startDate
		case "startYear":
			target = t.startYear
		case "endDate":
			target = t.endDate
		case "endYear":
			target = t.endYear
		}
		if !write {
			return *target, true, nil
		}
		v, err := asString(value)
		if err != nil {
			return nil, true, err
		}
		if (field == "endDate" || field == "endYear") && *t.current {
			// end date stays cleared while the entry is marked current
			return nil, true, nil
		}
		*target = v
		return nil, true, nil
	case "current":
		if !write {
			return *t.current, true, nil
		}
		v, err := asBool(value)
		if err != nil {
			return nil, true, err
		}
		*t.current = v
		if v {
			*t.endDate = ""
			*t.endYear = ""
		}
		return nil, true, nil
	}
	return nil, false, nil
}

func (s *Store) resolveEntry(kind domain.SectionKind, idx int, field, path string, value interface{}, write bool) (interface{}, error) {
	badPath := fmt.Errorf("%w: %s", ErrUnknownPath, path)
	strField := func(target *string) (interface{}, error) {
		if !write {
			return *target, nil
		}
		v, err := asString(value)
		if err != nil {
			return nil, err
		}
		*target = v
		return nil, nil
	}

	switch kind {
	case domain.SectionExperience:
		if idx < 0 || idx >= len(s.doc.Experience) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Experience[idx]
		tf := timedFields{&e.StartDate, &e.StartYear, &e.EndDate, &e.EndYear, &e.Current}
		if out, handled, err := tf.access(field, value, write); handled {
			return out, err
		}
		switch field {
		case "title":
			return strField(&e.Title)
		case "company":
			return strField(&e.Company)
		case "location":
			return strField(&e.Location)
		case "description":
			return strField(&e.Description)
		}
		return nil, badPath

	case domain.SectionEducation:
		if idx < 0 || idx >= len(s.doc.Education) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Education[idx]
		tf := timedFields{&e.StartDate, &e.StartYear, &e.EndDate, &e.EndYear, &e.Current}
		if out, handled, err := tf.access(field, value, write); handled {
			return out, err
		}
		switch field {
		case "degree":
			return strField(&e.Degree)
		case "school":
			return strField(&e.School)
		case "location":
			return strField(&e.Location)
		case "description":
			return strField(&e.Description)
		}
		return nil, badPath

	case domain.SectionSkills:
		if idx < 0 || idx >= len(s.doc.Skills) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Skills[idx]
		switch field {
		case "name":
			return strField(&e.Name)
		case "level":
			if !write {
				return e.Level, nil
			}
			v, err := asInt(value)
			if err != nil {
				return nil, err
			}
			e.Level = v
			return nil, nil
		}
		return nil, badPath

	case domain.SectionLanguages:
		if idx < 0 || idx >= len(s.doc.Languages) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Languages[idx]
		switch field {
		case "name":
			return strField(&e.Name)
		case "level":
			return strField(&e.Level)
		}
		return nil, badPath

	case domain.SectionCourses:
		if idx < 0 || idx >= len(s.doc.Sections.Courses) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Sections.Courses[idx]
		tf := timedFields{&e.StartDate, &e.StartYear, &e.EndDate, &e.EndYear, &e.Current}
		if out, handled, err := tf.access(field, value, write); handled {
			return out, err
		}
		switch field {
		case "title":
			return strField(&e.Title)
		case "institution":
			return strField(&e.Institution)
		case "location":
			return strField(&e.Location)
		case "description":
			return strField(&e.Description)
		}
		return nil, badPath

	case domain.SectionInternship:
		if idx < 0 || idx >= len(s.doc.Sections.Internship) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Sections.Internship[idx]
		tf := timedFields{&e.StartDate, &e.StartYear, &e.EndDate, &e.EndYear, &e.Current}
		if out, handled, err := tf.access(field, value, write); handled {
			return out, err
		}
		switch field {
		case "title":
			return strField(&e.Title)
		case "company":
			return strField(&e.Company)
		case "location":
			return strField(&e.Location)
		case "description":
			return strField(&e.Description)
		}
		return nil, badPath

	case domain.SectionProfile:
		if idx < 0 || idx >= len(s.doc.Sections.Profile) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Sections.Profile[idx]
		switch field {
		case "title":
			return strField(&e.Title)
		case "description":
			return strField(&e.Description)
		}
		return nil, badPath

	case domain.SectionReferences:
		if idx < 0 || idx >= len(s.doc.Sections.References) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Sections.References[idx]
		switch field {
		case "name":
			return strField(&e.Name)
		case "title":
			return strField(&e.Title)
		case "company":
			return strField(&e.Company)
		case "email":
			return strField(&e.Email)
		case "phone":
			return strField(&e.Phone)
		case "description":
			return strField(&e.Description)
		}
		return nil, badPath

	case domain.SectionTraits:
		if idx < 0 || idx >= len(s.doc.Sections.Traits) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Sections.Traits[idx]
		switch field {
		case "trait":
			return strField(&e.Trait)
		case "description":
			return strField(&e.Description)
		}
		return nil, badPath

	case domain.SectionCertificates:
		if idx < 0 || idx >= len(s.doc.Sections.Certificates) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Sections.Certificates[idx]
		switch field {
		case "name":
			return strField(&e.Name)
		case "issuer":
			return strField(&e.Issuer)
		case "date":
			return strField(&e.Date)
		case "year":
			return strField(&e.Year)
		case "description":
			return strField(&e.Description)
		}
		return nil, badPath

	case domain.SectionAchievements:
		if idx < 0 || idx >= len(s.doc.Sections.Achievements) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		e := &s.doc.Sections.Achievements[idx]
		switch field {
		case "title":
			return strField(&e.Title)
		case "date":
			return strField(&e.Date)
		case "year":
			return strField(&e.Year)
		case "description":
			return strField(&e.Description)
		}
		return nil, badPath

	case domain.SectionPersonalInfo:
		// handled by resolvePersonal
	}
	return nil, badPath
}

func asString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: want string, got %T", ErrBadValue, v)
	}
	return s, nil
}

func asBool(v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: want bool, got %T", ErrBadValue, v)
	}
	return b, nil
}

func asInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case float64:
		// JSON numbers decode as float64
		return int(t), nil
	}
	return 0, fmt.Errorf("%w: want number, got %T", ErrBadValue, v)
}

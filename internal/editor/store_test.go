package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-builder/internal/domain"
)

func TestStoreDefaultsAreBindable(t *testing.T) {
	s := NewStore()
	doc := s.Snapshot()

	require.NotEmpty(t, doc.Experience)
	require.NotEmpty(t, doc.Skills)
	require.NotEmpty(t, doc.Sections.Traits)

	v, err := s.GetValue("experience.0.title")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestStoreSetAndGetValue(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SetValue("personalInfo.firstName", "Anna"))
	require.NoError(t, s.SetValue("experience.0.company", "Volvo"))
	require.NoError(t, s.SetValue("skills.0.level", 4))
	require.NoError(t, s.SetValue("sections.courses.0.institution", "KTH"))

	v, err := s.GetValue("personalInfo.firstName")
	require.NoError(t, err)
	assert.Equal(t, "Anna", v)

	v, err = s.GetValue("sections.courses.0.institution")
	require.NoError(t, err)
	assert.Equal(t, "KTH", v)

	v, err = s.GetValue("skills.0.level")
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}

func TestStoreSetValueJSONNumber(t *testing.T) {
	s := NewStore()
	// numbers arrive as float64 after JSON decoding
	require.NoError(t, s.SetValue("skills.0.level", float64(3)))

	v, err := s.GetValue("skills.0.level")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestStoreUnknownPath(t *testing.T) {
	s := NewStore()

	_, err := s.GetValue("nonsense.path")
	assert.ErrorIs(t, err, ErrUnknownPath)

	err = s.SetValue("experience.0.salary", "1")
	assert.ErrorIs(t, err, ErrUnknownPath)

	_, err = s.GetValue("experience.9.title")
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestStoreCurrentFlagClearsEndDates(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SetValue("experience.0.endDate", "juni"))
	require.NoError(t, s.SetValue("experience.0.endYear", "2024"))
	require.NoError(t, s.SetValue("experience.0.current", true))

	v, _ := s.GetValue("experience.0.endDate")
	assert.Equal(t, "", v)
	v, _ = s.GetValue("experience.0.endYear")
	assert.Equal(t, "", v)

	// while current, end-date writes are dropped
	require.NoError(t, s.SetValue("experience.0.endDate", "juli"))
	v, _ = s.GetValue("experience.0.endDate")
	assert.Equal(t, "", v)

	// turning current off does not restore the cleared values
	require.NoError(t, s.SetValue("experience.0.current", false))
	v, _ = s.GetValue("experience.0.endDate")
	assert.Equal(t, "", v)

	// and the field is writable again
	require.NoError(t, s.SetValue("experience.0.endDate", "augusti"))
	v, _ = s.GetValue("experience.0.endDate")
	assert.Equal(t, "augusti", v)
}

func TestStoreAppendAndRemove(t *testing.T) {
	s := NewStore()

	idx, err := s.AppendItem("experience")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	require.NoError(t, s.SetValue("experience.1.title", "Konsult"))
	require.NoError(t, s.RemoveItem("experience", 0))

	v, err := s.GetValue("experience.0.title")
	require.NoError(t, err)
	assert.Equal(t, "Konsult", v)
}

func TestStoreRemoveLastEntryLeavesBlank(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SetValue("languages.0.name", "Svenska"))
	require.NoError(t, s.RemoveItem("languages", 0))

	doc := s.Snapshot()
	require.Len(t, doc.Languages, 1)
	assert.Equal(t, "", doc.Languages[0].Name)
}

func TestStoreRemoveOutOfRange(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.RemoveItem("skills", 5), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.RemoveItem("skills", -1), ErrIndexOutOfRange)
}

func TestStoreOptionalFieldPaths(t *testing.T) {
	s := NewStore()

	f := s.AddOptionalField(domain.FieldWebsite)

	path := "personalInfo.optionalFields." + f.ID + ".value"
	require.NoError(t, s.SetValue(path, "example.se"))

	v, err := s.GetValue(path)
	require.NoError(t, err)
	assert.Equal(t, "example.se", v)

	_, err = s.GetValue("personalInfo.optionalFields.missing.value")
	assert.ErrorIs(t, err, ErrUnknownPath)
}

func TestStoreWatch(t *testing.T) {
	s := NewStore()

	var seen []*domain.Document
	unsub := s.Watch(func(d *domain.Document) { seen = append(seen, d) })

	require.NoError(t, s.SetValue("personalInfo.firstName", "Anna"))
	require.Len(t, seen, 1)
	assert.Equal(t, "Anna", seen[0].PersonalInfo.FirstName)

	unsub()
	require.NoError(t, s.SetValue("personalInfo.firstName", "Erik"))
	assert.Len(t, seen, 1)
}

func TestStoreVersionBumpsOnEveryMutation(t *testing.T) {
	s := NewStore()

	v := s.Version()
	require.NoError(t, s.SetValue("personalInfo.firstName", "Anna"))
	assert.NotEqual(t, v, s.Version())

	// failed writes do not count as mutations
	v = s.Version()
	require.Error(t, s.SetValue("nonsense.path", "x"))
	assert.Equal(t, v, s.Version())

	_, err := s.AppendItem("skills")
	require.NoError(t, err)
	assert.NotEqual(t, v, s.Version())

	v = s.Version()
	f := s.AddOptionalField(domain.FieldWebsite)
	assert.NotEqual(t, v, s.Version())

	v = s.Version()
	s.RemoveOptionalField(f.ID)
	assert.NotEqual(t, v, s.Version())
}

func TestStoreResetIfUnchangedDiscardsStaleReplacement(t *testing.T) {
	s := NewStore()

	v := s.Version()
	require.NoError(t, s.SetValue("personalInfo.firstName", "Erik"))

	replacement := domain.NewDocument()
	replacement.PersonalInfo.FirstName = "Anna"

	// a write landed after the version was observed: the swap is refused
	assert.False(t, s.ResetIfUnchanged(replacement, v))
	assert.Equal(t, "Erik", s.Snapshot().PersonalInfo.FirstName)

	// with a current version the swap applies and counts as a mutation
	v = s.Version()
	assert.True(t, s.ResetIfUnchanged(replacement, v))
	assert.Equal(t, "Anna", s.Snapshot().PersonalInfo.FirstName)
	assert.NotEqual(t, v, s.Version())
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore()

	doc := s.Snapshot()
	doc.PersonalInfo.FirstName = "Mutated"

	v, err := s.GetValue("personalInfo.firstName")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

package domain

import "github.com/google/uuid"

// OptionalFieldType enumerates the personal-info fields a user can add on
// demand. Every type except custom may be active at most once.
type OptionalFieldType string

const (
	FieldBirthDate      OptionalFieldType = "birthDate"
	FieldBirthPlace     OptionalFieldType = "birthPlace"
	FieldDrivingLicense OptionalFieldType = "drivingLicense"
	FieldGender         OptionalFieldType = "gender"
	FieldNationality    OptionalFieldType = "nationality"
	FieldCivilStatus    OptionalFieldType = "civilStatus"
	FieldWebsite        OptionalFieldType = "website"
	FieldLinkedin       OptionalFieldType = "linkedin"
	FieldCustom         OptionalFieldType = "custom"
)

// fixedOptionalFieldTypes is the pool of non-custom types, in menu order.
var fixedOptionalFieldTypes = []OptionalFieldType{
	FieldBirthDate,
	FieldBirthPlace,
	FieldDrivingLicense,
	FieldGender,
	FieldNationality,
	FieldCivilStatus,
	FieldWebsite,
	FieldLinkedin,
}

var optionalFieldLabels = map[OptionalFieldType]string{
	FieldBirthDate:      "Födelsedatum",
	FieldBirthPlace:     "Födelseort",
	FieldDrivingLicense: "Körkort",
	FieldGender:         "Kön",
	FieldNationality:    "Nationalitet",
	FieldCivilStatus:    "Civilstånd",
	FieldWebsite:        "Webbplats",
	FieldLinkedin:       "LinkedIn",
	FieldCustom:         "Anpassat fält",
}

// OptionalFieldLabel returns the display label for a field type.
func OptionalFieldLabel(t OptionalFieldType) string {
	return optionalFieldLabels[t]
}

// OptionalField is one active optional personal-info field.
type OptionalField struct {
	ID    string            `json:"id"`
	Type  OptionalFieldType `json:"type"`
	Label string            `json:"label"`
	Value string            `json:"value"`
}

func (f *OptionalField) ensureID() {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
}

// AddOptionalField activates a field of the given type and returns it. For a
// fixed type that is already active it is a no-op returning the existing
// field, which keeps active and available strictly complementary. Custom
// fields can be added any number of times.
func (p *PersonalInfo) AddOptionalField(t OptionalFieldType) OptionalField {
	if t != FieldCustom {
		for _, f := range p.OptionalFields {
			if f.Type == t {
				return f
			}
		}
	}
	f := OptionalField{
		ID:   uuid.NewString(),
		Type: t,
	}
	if t != FieldCustom {
		f.Label = OptionalFieldLabel(t)
	}
	p.OptionalFields = append(p.OptionalFields, f)
	return f
}

// RemoveOptionalField deactivates the field with the given id. Removing a
// fixed type returns it to the available pool; unknown ids are a no-op.
func (p *PersonalInfo) RemoveOptionalField(id string) {
	for i, f := range p.OptionalFields {
		if f.ID == id {
			p.OptionalFields = append(p.OptionalFields[:i], p.OptionalFields[i+1:]...)
			return
		}
	}
}

// AvailableOptionalFieldTypes returns the fixed types not currently active,
// in menu order. Together with the active fields this always covers each
// fixed type exactly once.
func (p *PersonalInfo) AvailableOptionalFieldTypes() []OptionalFieldType {
	active := make(map[OptionalFieldType]bool, len(p.OptionalFields))
	for _, f := range p.OptionalFields {
		active[f.Type] = true
	}
	out := make([]OptionalFieldType, 0, len(fixedOptionalFieldTypes))
	for _, t := range fixedOptionalFieldTypes {
		if !active[t] {
			out = append(out, t)
		}
	}
	return out
}

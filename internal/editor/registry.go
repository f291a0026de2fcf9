package editor

import "cv-builder/internal/domain"

// Registry is a session's mutable copy of the section catalog. Presence in
// the form (Session.addedSections) and visibility in the preview (Hidden)
// are independent: a hidden section stays editable, it just stops rendering.
type Registry struct {
	sections []domain.SectionDescriptor
}

func NewRegistry() *Registry {
	return &Registry{sections: domain.DefaultDescriptors()}
}

// Descriptors returns the catalog in order.
func (r *Registry) Descriptors() []domain.SectionDescriptor {
	out := make([]domain.SectionDescriptor, len(r.sections))
	copy(out, r.sections)
	return out
}

// Lookup returns the descriptor for a kind.
func (r *Registry) Lookup(kind domain.SectionKind) (domain.SectionDescriptor, bool) {
	for _, s := range r.sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return domain.SectionDescriptor{}, false
}

// ToggleHidden flips a section's preview visibility. Unknown kinds no-op.
func (r *Registry) ToggleHidden(kind domain.SectionKind) {
	for i := range r.sections {
		if r.sections[i].Kind == kind {
			r.sections[i].Hidden = !r.sections[i].Hidden
			return
		}
	}
}

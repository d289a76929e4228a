package models

// ContactKind tags a contact record with its role on the enrollment.
type ContactKind string

const (
	ContactDPO                   ContactKind = "dpo"
	ContactTechnique             ContactKind = "technique"
	ContactResponsableTraitement ContactKind = "responsable_traitement"
	ContactMetier                ContactKind = "metier"
)

// Contact is a role-tagged contact record attached to an enrollment.
type Contact struct {
	Kind    ContactKind `json:"id"`
	Name    string      `json:"nom"`
	Email   string      `json:"email"`
	Heading string      `json:"heading,omitempty"`
}

// Complete reports whether the contact has both a name and an email.
func (c Contact) Complete() bool {
	return c.Name != "" && c.Email != ""
}

// Contacts is the ordered contact list of an enrollment.
type Contacts []Contact

// ByKind returns the first contact of the given kind, if any.
func (cs Contacts) ByKind(kind ContactKind) (Contact, bool) {
	for _, c := range cs {
		if c.Kind == kind {
			return c, true
		}
	}
	return Contact{}, false
}

// EmailOf returns the email of the first contact of the given kind, or "".
func (cs Contacts) EmailOf(kind ContactKind) string {
	if c, ok := cs.ByKind(kind); ok {
		return c.Email
	}
	return ""
}

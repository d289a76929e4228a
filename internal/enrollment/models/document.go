package models

// DocumentType tags an attached file with its purpose.
type DocumentType string

const (
	// DocumentLegalBasis is the uploaded legal-basis attachment. It satisfies
	// the legal-basis rule when no free-text reference was provided.
	DocumentLegalBasis DocumentType = "legal_basis"
)

// Document is a file reference owned by an enrollment. Documents live and die
// with their enrollment; the engine only ever asks whether one of a given
// purpose exists.
type Document struct {
	ID       string       `json:"id"`
	Type     DocumentType `json:"type"`
	Filename string       `json:"filename"`
}

// Documents is the attachment list of an enrollment.
type Documents []Document

// Has reports whether a document of the given purpose is attached.
func (ds Documents) Has(t DocumentType) bool {
	for _, d := range ds {
		if d.Type == t {
			return true
		}
	}
	return false
}

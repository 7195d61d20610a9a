package view

import (
	"strings"
	"unicode/utf8"

	dErrors "idlens/pkg/domain-errors"
)

const maxTermLength = 256

type searchRequest struct {
	Term string `json:"term"`
}

// Validate bounds the term. Empty terms are valid and leave results as they are.
func (r *searchRequest) Validate() error {
	if utf8.RuneCountInString(r.Term) > maxTermLength {
		return dErrors.New(dErrors.CodeValidation, "term is too long")
	}
	if strings.ContainsRune(r.Term, 0) {
		return dErrors.New(dErrors.CodeValidation, "term contains invalid characters")
	}
	return nil
}

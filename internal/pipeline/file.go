package pipeline

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"skills-backend/internal/documents"
)

// File is a résumé submitted for processing.
type File struct {
	Name     string `validate:"required"`
	MimeType string `validate:"eq=application/pdf"`
	Size     int64  `validate:"gt=0,lte=5242880"`
	Content  []byte `validate:"required,min=1,max=5242880"`
}

// validateFile returns the failing fields as field/issue pairs, or nil.
// Content that does not sniff as a PDF fails here, before any collaborator
// is contacted.
func validateFile(v *validator.Validate, f File) []map[string]string {
	var issues []map[string]string
	if err := v.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []map[string]string{{"field": "file", "issue": err.Error()}}
		}
		for _, fe := range verrs {
			issues = append(issues, map[string]string{
				"field": strings.ToLower(fe.Field()),
				"issue": fe.Tag(),
			})
		}
	}
	if len(f.Content) > 0 && !sniffsAsPDF(f.Content) {
		issues = append(issues, map[string]string{"field": "content", "issue": "not_pdf"})
	}
	return issues
}

func sniffsAsPDF(content []byte) bool {
	sniffed := http.DetectContentType(content)
	base, _, _ := strings.Cut(sniffed, ";")
	return strings.EqualFold(strings.TrimSpace(base), documents.MimePDF)
}

func (f File) upload() documents.Upload {
	return documents.Upload{
		FileName:  f.Name,
		MimeType:  f.MimeType,
		SizeBytes: f.Size,
		Body:      bytes.NewReader(f.Content),
	}
}

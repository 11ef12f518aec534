package documents

import "time"

// CurrentFilePath is where the live document's bytes are served.
const CurrentFilePath = "/api/v1/documents/current/file"

// DocumentResponse is the outward-facing representation of a document.
// Storage keys stay internal.
type DocumentResponse struct {
	DocumentID string    `json:"documentId"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	Storage    string    `json:"storage"`
	FileURL    string    `json:"fileUrl"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// ToResponse maps a Document to its API shape.
func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		Storage:    doc.StorageProvider,
		FileURL:    CurrentFilePath,
		UploadedAt: doc.CreatedAt,
	}
}

// ToResponsePtr is ToResponse for optional documents.
func ToResponsePtr(doc *Document) *DocumentResponse {
	if doc == nil {
		return nil
	}
	resp := ToResponse(*doc)
	return &resp
}

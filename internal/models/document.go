package models

import "time"

// SourceKind distinguishes how a document is handed to the OCR API.
type SourceKind string

const (
	KindDocumentURL SourceKind = "document_url"
	KindImageURL    SourceKind = "image_url"
)

// Source is a document reference bound for the OCR API. For image uploads
// URL holds a base64 data URL; for PDF uploads Content holds the raw bytes
// until the file is exchanged for a signed URL.
type Source struct {
	Kind     SourceKind
	URL      string
	Content  []byte
	Filename string
	// Input is what the user originally submitted: the raw URL or the
	// upload filename. Used for history labels.
	Input string
}

// NeedsUpload reports whether the source must go through the file upload
// and signed URL flow before it can be processed.
func (s Source) NeedsUpload() bool {
	return len(s.Content) > 0 && s.URL == ""
}

// Image is an embedded image returned by the OCR API.
type Image struct {
	ID     string `json:"id"`
	Base64 string `json:"image_base64"`
}

// Page is a single page of an OCR result.
type Page struct {
	Index    int     `json:"index"`
	Markdown string  `json:"markdown"`
	Images   []Image `json:"images"`
}

// Usage carries the API's accounting for a processed document.
type Usage struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes"`
}

// Result is the structured response for one processed document.
type Result struct {
	Pages []Page `json:"pages"`
	Model string `json:"model"`
	Usage Usage  `json:"usage_info"`
}

// Entry is one history record: a previously submitted document and the
// text extracted from it.
type Entry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Pages     int       `json:"pages"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

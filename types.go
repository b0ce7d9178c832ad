package main

// Page data structs

type LoginPageData struct {
	Title string
	Error string
}

type IndexPageData struct {
	Title     string
	Libraries []string
	Error     string
	// Email is the signed-in user's address, shown in the header
	Email string
}

type LibraryPageData struct {
	Title     string
	LibraryID string
	Records   []PhotoRecord
	Error     string
	Email     string
}

// Domain types

// PhotoRecord describes one uploaded photo and what was learned about it.
// CaptureDate is nil when the image carried no usable EXIF timestamp.
type PhotoRecord struct {
	Filename    string   `json:"filename"`
	UploadedAt  string   `json:"uploaded_at"`
	CaptureDate *string  `json:"capture_date"`
	Analysis    Analysis `json:"analysis"`
}

// Analysis is the outcome of the spine-analysis call. Status is one of
// "ok", "skipped" or "error"; Reason is set for the latter two.
type Analysis struct {
	Status string        `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Data   *AnalysisData `json:"data,omitempty"`
}

// AnalysisData holds the normalized model output. When the model's reply
// could not be shaped into book entries, Raw keeps the original content.
type AnalysisData struct {
	Books []Book `json:"books,omitempty"`
	Raw   string `json:"raw,omitempty"`
}

type Book struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
}

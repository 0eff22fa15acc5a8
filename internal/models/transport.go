package models

// MediaFile is a file selected for upload.
type MediaFile struct {
	Name        string
	ContentType string
	Data        []byte
	// Preview is the local reference rendered until the upload completes.
	Preview string
}

// MediaUpload is the backend response to a single media upload.
type MediaUpload struct {
	Media   MediaAttachment `json:"media_response"`
	Message *Message        `json:"message_response"`
}

// Page is one page of a container's message history. Next and Previous
// are opaque cursors.
type Page struct {
	Results  []*Message `json:"results"`
	Next     string     `json:"next"`
	Previous string     `json:"previous"`
}

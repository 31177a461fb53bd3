// backend.go specifies the request and response bodies exchanged with the dropcode backend.
package backend

import "time"

// TimestampFormat is the ISO-8601 layout used for feedback timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Route identifies one of the backend operations.
type Route int

const (
	UploadRoute Route = iota
	DownloadRoute
	FeedbackRoute
)

func (r Route) Name() string {
	switch r {
	case UploadRoute:
		return "upload"
	case DownloadRoute:
		return "download"
	case FeedbackRoute:
		return "feedback"
	default:
		return ""
	}
}

// Status is the envelope every backend response carries.
type Status struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// UploadRequest carries a base64 encoded file.
type UploadRequest struct {
	File     string `json:"file"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Filetype string `json:"filetype"`
}

type UploadResponse struct {
	Status
	Code            string `json:"code,omitempty"`
	Filename        string `json:"filename,omitempty"`
	ExpiryTime      string `json:"expiry_time,omitempty"`
	DisplayDuration int    `json:"display_duration,omitempty"`
}

type DownloadResponse struct {
	Status
	URL          string `json:"url,omitempty"`
	Filename     string `json:"filename,omitempty"`
	Filetype     string `json:"filetype,omitempty"`
	URLExpiresIn int    `json:"url_expires_in,omitempty"`
}

type FeedbackRequest struct {
	Rating    int    `json:"rating"`
	Feedback  string `json:"feedback"`
	Timestamp string `json:"timestamp"`
}

type FeedbackResponse struct {
	Status
	FeedbackID string `json:"feedback_id,omitempty"`
}

// Timestamp formats t in UTC using TimestampFormat.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

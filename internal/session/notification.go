package session

import (
	"fmt"
	"time"
)

// NotificationDuration is how long a transient notification stays visible.
const NotificationDuration = 5 * time.Second

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Notification is a transient, user visible message.
type Notification struct {
	Message  string
	Icon     string
	Level    Level
	Duration time.Duration
}

func notification(level Level, icon, message string) Notification {
	return Notification{Message: message, Icon: icon, Level: level, Duration: NotificationDuration}
}

var (
	notifyFileTooLarge      = notification(LevelError, "❌", "Error: File exceeds 10 MB limit.")
	notifyUploadBusy        = notification(LevelWarning, "⏳", "Upload in progress, please wait...")
	notifyUploadSucceeded   = notification(LevelSuccess, "✅", "File uploaded successfully! 🎉")
	notifyEmptyCode         = notification(LevelWarning, "⚠️", "Please enter a code.")
	notifyCodeNotFound      = notification(LevelError, "❌", "Invalid code or file not found.")
	notifyCopied            = notification(LevelSuccess, "📋", "Code copied to clipboard!")
	notifyCopyFailed        = notification(LevelWarning, "⚠️", "Failed to copy. Please copy manually.")
	notifyEmptyFeedback     = notification(LevelWarning, "⚠️", "Please provide a rating or feedback.")
	notifyFeedbackFailed    = notification(LevelError, "❌", "Failed to submit feedback. Please try again.")
	notifySuggestionThanks  = notification(LevelSuccess, "📝", "Thank you for your valuable suggestion!")
	notifyFeedbackBusy      = notification(LevelInfo, "⏳", "Submitting feedback, please wait...")
	notifyInvalidRating     = notification(LevelWarning, "⚠️", "Please pick a rating between 1 and 5.")
	notifyUnreadableFileFmt = "Could not read file: %s"
)

func notifyUploadFailed(reason string) Notification {
	return notification(LevelError, "❌", fmt.Sprintf("Upload failed: %s. Please try again.", reason))
}

func notifyDownloading(filename string) Notification {
	return notification(LevelInfo, "⬇️", fmt.Sprintf("Downloading: %s", filename))
}

func notifyRatingThanks(rating int) Notification {
	return notification(LevelSuccess, "🌟", fmt.Sprintf("Thank you for your %d-star rating!", rating))
}

func notifyUnreadableFile(err error) Notification {
	return notification(LevelError, "❌", fmt.Sprintf(notifyUnreadableFileFmt, err))
}

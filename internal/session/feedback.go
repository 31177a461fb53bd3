package session

import (
	"context"
	"strings"

	"github.com/dropcode/dropcode/protocol/backend"
	"go.uber.org/zap"
)

// ShowFeedbackPrompt opens the feedback modal the first time it is called in
// a session. It reports whether the modal was opened.
func (c *Controller) ShowFeedbackPrompt() bool {
	c.mu.Lock()
	if c.state.FeedbackShown {
		c.mu.Unlock()
		return false
	}
	c.state.FeedbackShown = true
	c.state.FeedbackOpen = true
	p := c.presenter
	c.mu.Unlock()

	p.ShowFeedback()
	return true
}

// SelectRating records a star selection. With an empty comment the feedback
// is submitted after the auto-submit delay, unless the selection changes or
// a comment is typed in the meantime.
func (c *Controller) SelectRating(ctx context.Context, rating int) error {
	if rating < 1 || rating > 5 {
		c.notify(notifyInvalidRating)
		return ErrInvalidRating
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Rating = rating
	c.cancelPendingLocked()
	if strings.TrimSpace(c.state.Comment) != "" {
		return nil
	}
	c.pendingSeq++
	seq := c.pendingSeq
	c.pending = c.scheduler.AfterFunc(c.autoSubmitDelay, func() {
		c.autoSubmit(ctx, seq)
	})
	return nil
}

// EditComment updates the comment. A non-empty comment cancels a pending
// auto-submit.
func (c *Controller) EditComment(comment string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Comment = comment
	if strings.TrimSpace(comment) != "" {
		c.cancelPendingLocked()
	}
}

// SubmitFeedbackForm submits the rating and comment currently held by the modal.
func (c *Controller) SubmitFeedbackForm(ctx context.Context) error {
	c.mu.Lock()
	c.cancelPendingLocked()
	rating, comment := c.state.Rating, c.state.Comment
	c.mu.Unlock()
	return c.SubmitFeedback(ctx, rating, comment)
}

// SubmitFeedback sends a rating and comment to the backend. Nothing is sent
// when both are empty. On success the modal is dismissed and its local
// state reset.
func (c *Controller) SubmitFeedback(ctx context.Context, rating int, comment string) error {
	comment = strings.TrimSpace(comment)
	entry := FeedbackEntry{Rating: rating, Comment: comment, SubmittedAt: c.now()}
	if rating < 0 || rating > 5 {
		c.notify(notifyInvalidRating)
		return ErrInvalidRating
	}
	if !entry.Valid() {
		c.notify(notifyEmptyFeedback)
		return ErrEmptyFeedback
	}
	if !c.submitting.CompareAndSwap(false, true) {
		c.notify(notifyFeedbackBusy)
		return ErrFeedbackBusy
	}
	defer c.submitting.Store(false)

	_, err := c.backend.Feedback(ctx, backend.FeedbackRequest{
		Rating:    entry.Rating,
		Feedback:  entry.Comment,
		Timestamp: backend.Timestamp(entry.SubmittedAt),
	})
	if err != nil {
		c.logger.Warn("feedback rejected", zap.Error(err), zap.Bool("transport", IsTransport(err)))
		c.notify(notifyFeedbackFailed)
		return reject(ErrFeedbackRejected, err, "Failed to submit feedback")
	}

	c.logger.Info("feedback submitted", zap.Int("rating", entry.Rating))
	if entry.Comment != "" {
		c.notify(notifySuggestionThanks)
	} else {
		c.notify(notifyRatingThanks(entry.Rating))
	}
	c.CloseFeedback()
	return nil
}

// CloseFeedback dismisses the modal without contacting the backend and
// resets its local state.
func (c *Controller) CloseFeedback() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.state.FeedbackOpen = false
	c.state.Rating = 0
	c.state.Comment = ""
	p := c.presenter
	c.mu.Unlock()

	p.HideFeedback()
}

// autoSubmit runs when the auto-submit timer fires. seq identifies the
// schedule, so a timer that fired while being cancelled does nothing.
func (c *Controller) autoSubmit(ctx context.Context, seq uint64) {
	c.mu.Lock()
	if c.pending == nil || seq != c.pendingSeq {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	rating, comment := c.state.Rating, c.state.Comment
	c.mu.Unlock()

	if err := c.SubmitFeedback(ctx, rating, comment); err != nil {
		c.logger.Debug("auto-submit failed", zap.Error(err))
	}
}

// cancelPendingLocked stops a scheduled auto-submit. c.mu must be held.
func (c *Controller) cancelPendingLocked() {
	if c.pending == nil {
		return
	}
	c.pending.Stop()
	c.pending = nil
}

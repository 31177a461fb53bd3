package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropcode/dropcode/protocol/backend"
	"go.uber.org/zap"
)

// ------------------------------------------------------- Upload ------------------------------------------------------

// SubmitUpload uploads req and returns the share code. Oversized files and
// calls made while another upload is outstanding fail before any backend
// call. The in-progress flag is released on every exit path.
func (c *Controller) SubmitUpload(ctx context.Context, req *TransferRequest) (string, error) {
	c.mu.Lock()
	c.state.CodeVisible = false
	c.mu.Unlock()

	if req == nil {
		return "", ErrNoFile
	}
	if req.Size > MaxUploadSize {
		c.setFileStatus("(max 10 MB)", LevelError)
		c.notify(notifyFileTooLarge)
		return "", ErrFileTooLarge
	}
	if !c.uploading.CompareAndSwap(false, true) {
		c.notify(notifyUploadBusy)
		return "", ErrUploadBusy
	}
	defer c.uploading.Store(false)

	lgr := c.logger.With(zap.String("filename", req.Filename), zap.Int64("size", req.Size))
	c.setFileStatus(fmt.Sprintf("Uploading %q...", req.Filename), LevelInfo)

	res, err := c.backend.Upload(ctx, backend.UploadRequest{
		File:     base64.StdEncoding.EncodeToString(req.Content),
		Filename: req.Filename,
		Filesize: req.Size,
		Filetype: req.MimeType,
	})
	if err == nil && res.Code == "" {
		err = errors.New("backend returned no code")
	}
	if err != nil {
		rejected := reject(ErrUploadRejected, err, "Upload failed")
		lgr.Warn("upload rejected", zap.Error(err), zap.Bool("transport", IsTransport(err)))
		c.setFileStatus("Upload failed. Please try again.", LevelError)
		c.notify(notifyUploadFailed(rejected.Reason))
		return "", rejected
	}

	lgr.Info("upload completed", zap.String("code", res.Code))
	c.mu.Lock()
	c.state.Panel = PanelSend
	c.state.Code = res.Code
	c.state.CodeVisible = true
	c.state.Upload = UploadInfo{
		Filename:        res.Filename,
		ExpiresAt:       res.ExpiryTime,
		DisplayDuration: time.Duration(res.DisplayDuration) * time.Second,
	}
	c.state.FileStatus = "File uploaded successfully! ✅"
	c.state.FileStatusLevel = LevelSuccess
	c.mu.Unlock()

	c.notify(notifyUploadSucceeded)
	c.ShowFeedbackPrompt()
	return res.Code, nil
}

// UploadPath loads the file at path and uploads it.
func (c *Controller) UploadPath(ctx context.Context, path string) (string, error) {
	if c.uploading.Load() {
		c.notify(notifyUploadBusy)
		return "", ErrUploadBusy
	}
	if c.load == nil {
		return "", errors.New("no file loader configured")
	}
	req, err := c.load(path)
	switch {
	case errors.Is(err, ErrFileTooLarge):
		c.setFileStatus("(max 10 MB)", LevelError)
		c.notify(notifyFileTooLarge)
		return "", ErrFileTooLarge
	case err != nil:
		c.notify(notifyUnreadableFile(err))
		return "", fmt.Errorf("loading %s: %w", path, err)
	}
	return c.SubmitUpload(ctx, req)
}

// ------------------------------------------------------ Download -----------------------------------------------------

// NormalizeCode trims and upper-cases a share code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ResolveCode looks up the download url for code. Retrieving the payload is
// left to the caller.
func (c *Controller) ResolveCode(ctx context.Context, code string) (DownloadResult, error) {
	code = NormalizeCode(code)
	if code == "" {
		c.notify(notifyEmptyCode)
		return DownloadResult{}, ErrEmptyCode
	}

	c.mu.Lock()
	c.state.Resolving = true
	c.state.Resolved = nil
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.state.Resolving = false
		c.mu.Unlock()
	}()

	lgr := c.logger.With(zap.String("code", code))
	res, err := c.backend.Download(ctx, code)
	if err == nil && res.URL == "" {
		err = errors.New("backend returned no url")
	}
	if err != nil {
		lgr.Warn("code lookup failed", zap.Error(err), zap.Bool("transport", IsTransport(err)))
		c.notify(notifyCodeNotFound)
		return DownloadResult{}, reject(ErrCodeNotFound, err, "Invalid code or file not found")
	}

	result := DownloadResult{
		URL:       res.URL,
		Filename:  res.Filename,
		Filetype:  res.Filetype,
		ExpiresIn: time.Duration(res.URLExpiresIn) * time.Second,
	}
	lgr.Info("code resolved", zap.String("filename", result.Filename))
	c.mu.Lock()
	c.state.Resolved = &result
	c.mu.Unlock()

	c.notify(notifyDownloading(result.Filename))
	c.ShowFeedbackPrompt()
	return result, nil
}

// -------------------------------------------------------- Copy -------------------------------------------------------

// CopyText copies text to the clipboard and reports the outcome through a
// notification. It never fails loudly, empty text included.
func (c *Controller) CopyText(text string) bool {
	if c.copier == nil {
		c.notify(notifyCopyFailed)
		return false
	}
	if err := c.copier.Copy(text); err != nil {
		c.logger.Warn("copying to clipboard", zap.Error(fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)))
		c.notify(notifyCopyFailed)
		return false
	}
	c.notify(notifyCopied)
	return true
}

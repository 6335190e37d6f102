package client

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"

	"igait-client/internal/domain"
)

// progressTracker serializes progress callbacks and enforces the
// monotone-non-decreasing guarantee.
type progressTracker struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn}
}

func (p *progressTracker) report(percent int) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent <= p.last {
		return
	}
	p.last = percent
	p.fn(percent)
}

// fileProgress returns a cumulative-bytes callback mapping transfer progress
// linearly into the 5–90 band. Returns nil when no one is listening.
func (p *progressTracker) fileProgress(totalBytes int64) func(written int64) {
	if p.fn == nil || totalBytes <= 0 {
		return nil
	}
	return func(written int64) {
		percent := 5 + int(float64(written)/float64(totalBytes)*85)
		if percent > 90 {
			percent = 90
		}
		p.report(percent)
	}
}

// sourceError marks a failure producing the request body — opening or
// reading a local video file — so it is never reported as a network problem.
type sourceError struct {
	err error
}

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

type formField struct {
	name  string
	value string
}

type filePart struct {
	name string
	file domain.VideoFile
}

// multipartBody streams a multipart/form-data body through a pipe so large
// videos never sit in memory. onFileBytes, when non-nil, receives the
// cumulative count of file bytes written.
func multipartBody(fields []formField, files []filePart, onFileBytes func(written int64)) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(mw, fields, files, onFileBytes)
		if closeErr := mw.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func writeMultipart(mw *multipart.Writer, fields []formField, files []filePart, onFileBytes func(written int64)) error {
	for _, field := range fields {
		if err := mw.WriteField(field.name, field.value); err != nil {
			return err
		}
	}

	var written int64
	for _, part := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			`form-data; name="`+escapeQuotes(part.name)+`"; filename="`+escapeQuotes(part.file.Name)+`"`)
		contentType := part.file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		w, err := mw.CreatePart(header)
		if err != nil {
			return err
		}

		src, err := part.file.Open()
		if err != nil {
			return &sourceError{err}
		}

		n, err := io.Copy(w, &countingReader{
			r: src,
			onRead: func(n int64) {
				if onFileBytes != nil {
					onFileBytes(written + n)
				}
			},
		})
		src.Close()
		if err != nil {
			return err
		}
		written += n
	}

	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// countingReader reports the cumulative bytes read from r.
type countingReader struct {
	r      io.Reader
	read   int64
	onRead func(cumulative int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.read += int64(n)
		if c.onRead != nil {
			c.onRead(c.read)
		}
	}
	// io.Copy hands read-side errors back verbatim; tagging them here keeps
	// file failures distinguishable from the pipe's write-side errors.
	if err != nil && err != io.EOF {
		err = &sourceError{err}
	}
	return n, err
}

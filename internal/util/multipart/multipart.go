// Package multipart shapes the single-file multipart/form-data body the file
// server accepts. The layout is fixed:
//
//	--<boundary>\r\n
//	Content-Disposition: form-data; name="<field>"; filename="<filename>"\r\n
//	Content-Type: application/octet-stream\r\n\r\n
//	<raw file bytes>\r\n
//	--<boundary>--\r\n
//
// The body is streamed: file bytes are never buffered, so the byte count of
// the whole request is known up front whenever the file length is.
package multipart

import (
	"io"
	"strings"

	"github.com/google/uuid"
)

// NewBoundary returns a fresh random boundary token.
func NewBoundary() string {
	return uuid.NewString()
}

// ContentType returns the request Content-Type header for boundary.
func ContentType(boundary string) string {
	return "multipart/form-data; boundary=" + boundary
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"", "\r", "", "\n", "")

// Body is one single-part multipart request body.
type Body struct {
	Boundary string
	prefix   string
	suffix   string
	content  io.Reader
	// contentLength is -1 when the file length is unknown.
	contentLength int64
}

// NewFileBody wraps content as the only part of a multipart body.
// contentLength is the file length in bytes, or -1 if unknown.
func NewFileBody(boundary, fieldName, fileName string, content io.Reader, contentLength int64) *Body {
	var b strings.Builder
	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("\r\n")
	b.WriteString(`Content-Disposition: form-data; name="`)
	b.WriteString(quoteEscaper.Replace(fieldName))
	b.WriteString(`"; filename="`)
	b.WriteString(quoteEscaper.Replace(fileName))
	b.WriteString("\"\r\n")
	b.WriteString("Content-Type: application/octet-stream\r\n\r\n")

	return &Body{
		Boundary:      boundary,
		prefix:        b.String(),
		suffix:        "\r\n--" + boundary + "--\r\n",
		content:       content,
		contentLength: contentLength,
	}
}

// ContentType returns the Content-Type header for this body.
func (b *Body) ContentType() string {
	return ContentType(b.Boundary)
}

// Len returns the total body length, or -1 if the file length is unknown.
func (b *Body) Len() int64 {
	if b.contentLength < 0 {
		return -1
	}
	return int64(len(b.prefix)) + b.contentLength + int64(len(b.suffix))
}

// Reader returns the body as a single stream. Call it once.
func (b *Body) Reader() io.Reader {
	return io.MultiReader(
		strings.NewReader(b.prefix),
		b.content,
		strings.NewReader(b.suffix),
	)
}

package convert

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/and161185/eventflow/internal/model"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeMultipart serializes an event payload as multipart/form-data.
// Text fields keep their order; the file part, if any, comes last.
func EncodeMultipart(p model.EventPayload) (contentType string, body []byte, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range p.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return "", nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
	}

	if p.File != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(p.File.Field), quoteEscaper.Replace(p.File.Filename)))
		ct := p.File.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return "", nil, fmt.Errorf("file part: %w", err)
		}
		if _, err := part.Write(p.File.Data); err != nil {
			return "", nil, fmt.Errorf("file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return "", nil, err
	}
	return w.FormDataContentType(), buf.Bytes(), nil
}

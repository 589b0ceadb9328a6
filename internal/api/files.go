package api

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

// Upload is a file sent as multipart form data.
type Upload struct {
	Field    string
	Filename string
	Data     io.Reader
}

func (u Upload) encode() ([]byte, string, error) {
	field := u.Field
	if field == "" {
		field = "file"
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, u.Filename)
	if err != nil {
		return nil, "", err
	}
	if u.Data != nil {
		if _, err := io.Copy(part, u.Data); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

// File is an opaque download returned by export endpoints.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewImportRequest builds a POST descriptor that uploads a spreadsheet.
func NewImportRequest(endpoint string, opts ...Option) Request[Envelope] {
	return NewRequest[Envelope](endpoint, http.MethodPost, opts...)
}

// NewExportRequest builds a GET descriptor whose body is returned as raw bytes.
func NewExportRequest(endpoint string, opts ...Option) Request[File] {
	return NewRequest[File](endpoint, http.MethodGet, append(opts, WithBlobResponse())...)
}

func filenameFrom(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"
)

// FilePart is one file in a multipart upload.
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

func (g *Gateway) Get(ctx context.Context, path string, query url.Values) *Result {
	return g.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// GetWithTimeout is Get with a per-call timeout.
func (g *Gateway) GetWithTimeout(ctx context.Context, path string, timeout time.Duration) *Result {
	return g.Do(ctx, &Request{Method: http.MethodGet, Path: path, Timeout: timeout})
}

// PostJSON sends payload as a JSON body. A payload that cannot be encoded is
// reported as a KindShape error without contacting the server.
func (g *Gateway) PostJSON(ctx context.Context, path string, payload any, timeout time.Duration) *Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Result{Err: &Error{Kind: KindShape, Message: "could not encode request", Err: err}}
	}
	return g.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Timeout:     timeout,
	})
}

// PostMultipart sends fields and files as multipart/form-data using the
// upload timeout.
func (g *Gateway) PostMultipart(ctx context.Context, path string, fields map[string]string, files ...FilePart) *Result {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := mw.WriteField(name, fields[name]); err != nil {
			return &Result{Err: &Error{Kind: KindShape, Message: "could not encode form", Err: err}}
		}
	}

	for _, f := range files {
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.FileName)))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return &Result{Err: &Error{Kind: KindShape, Message: "could not encode form", Err: err}}
		}
		if _, err := part.Write(f.Data); err != nil {
			return &Result{Err: &Error{Kind: KindShape, Message: "could not encode form", Err: err}}
		}
	}
	if err := mw.Close(); err != nil {
		return &Result{Err: &Error{Kind: KindShape, Message: "could not encode form", Err: err}}
	}

	return g.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        &buf,
		ContentType: mw.FormDataContentType(),
		Timeout:     g.uploadTimeout,
	})
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

package capture

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-timetrack-client/gateway"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const RouteUpload = "/screenshots/upload"

// UploadResult is the backend's reply to an accepted upload. ImageURL is
// empty when the reply could not be read.
type UploadResult struct {
	ImageURL string         `json:"image_url"`
	Record   map[string]any `json:"record"`
}

// Uploader sends frames to the screenshot endpoint.
type Uploader interface {
	Upload(ctx context.Context, frame []byte, capturedAt time.Time) (*UploadResult, error)
}

type GatewayUploader struct {
	gateway *gateway.Gateway
	logger  zerolog.Logger
}

var _ Uploader = (*GatewayUploader)(nil)

func NewUploader(gw *gateway.Gateway) *GatewayUploader {
	return &GatewayUploader{
		gateway: gw,
		logger:  log.With().Str("component", "capture").Logger(),
	}
}

// Upload posts frame as the "image" part together with captured_at in
// RFC 3339 UTC. Only 200 and 201 count as accepted.
func (u *GatewayUploader) Upload(ctx context.Context, frame []byte, capturedAt time.Time) (*UploadResult, error) {
	res := u.gateway.PostMultipart(ctx, RouteUpload,
		map[string]string{"captured_at": capturedAt.UTC().Format(time.RFC3339)},
		gateway.FilePart{Field: "image", FileName: "screenshot.jpg", ContentType: "image/jpeg", Data: frame},
	)
	if res.Err != nil {
		return nil, res.Err
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, &gateway.Error{Kind: gateway.KindStatus, StatusCode: res.StatusCode, Message: "upload not accepted"}
	}

	var result UploadResult
	if err := json.Unmarshal(res.Body, &result); err != nil {
		u.logger.Warn().Err(err).Str("request_id", res.RequestID).Msg("Upload succeeded but response parse failed")
		return &UploadResult{}, nil
	}
	return &result, nil
}

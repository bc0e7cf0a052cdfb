package capture_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-timetrack-client/capture"
	"github.com/jrsteele09/go-timetrack-client/gateway"
	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
	"github.com/jrsteele09/go-timetrack-client/sessions"
	sessionrepofake "github.com/jrsteele09/go-timetrack-client/sessions/repofake"
	"github.com/stretchr/testify/require"
)

type uploadRequest struct {
	auth        string
	capturedAt  string
	fileName    string
	contentType string
	data        []byte
}

func setupUploader(t *testing.T, status int, body string) (*capture.GatewayUploader, *uploadRequest, *sessions.Store) {
	t.Helper()
	got := &uploadRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != capture.RouteUpload {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		got.auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		got.capturedAt = r.FormValue("captured_at")
		if file, header, err := r.FormFile("image"); err == nil {
			got.fileName = header.Filename
			got.contentType = header.Header.Get("Content-Type")
			got.data, _ = io.ReadAll(file)
			_ = file.Close()
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	store := sessions.NewStore(sessionrepofake.NewFakeSessionRepo())
	require.NoError(t, store.SetTokens("tok1", "", "u@x.com"))
	return capture.NewUploader(gateway.New(server.URL, store)), got, store
}

func TestUploader_SendsMultipartFrame(t *testing.T) {
	record, _ := json.Marshal(map[string]any{"image_url": "https://img/1.jpg", "record": map[string]any{"id": 7}})
	uploader, got, _ := setupUploader(t, http.StatusCreated, string(record))

	capturedAt := time.Date(2024, 5, 1, 14, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	result, err := uploader.Upload(context.Background(), []byte("jpeg-bytes"), capturedAt)
	require.NoError(t, err)
	require.Equal(t, "https://img/1.jpg", result.ImageURL)
	require.EqualValues(t, 7, result.Record["id"])

	require.Equal(t, "Bearer tok1", got.auth)
	require.Equal(t, "2024-05-01T12:30:00Z", got.capturedAt)
	require.Equal(t, "screenshot.jpg", got.fileName)
	require.Equal(t, "image/jpeg", got.contentType)
	require.Equal(t, []byte("jpeg-bytes"), got.data)
}

func TestUploader_UnreadableReplyIsStillSuccess(t *testing.T) {
	uploader, _, _ := setupUploader(t, http.StatusOK, "stored")

	result, err := uploader.Upload(context.Background(), []byte("x"), time.Now())
	require.NoError(t, err)
	require.Empty(t, result.ImageURL)
}

func TestUploader_Failures(t *testing.T) {
	t.Run("accepted without content is not a success", func(t *testing.T) {
		uploader, _, _ := setupUploader(t, http.StatusAccepted, "")
		_, err := uploader.Upload(context.Background(), []byte("x"), time.Now())
		require.ErrorIs(t, err, apperrors.ErrRequestFailed)
	})

	t.Run("server error", func(t *testing.T) {
		uploader, _, _ := setupUploader(t, http.StatusInternalServerError, `{"message": "bucket full"}`)
		_, err := uploader.Upload(context.Background(), []byte("x"), time.Now())
		require.ErrorIs(t, err, apperrors.ErrRequestFailed)
		require.ErrorContains(t, err, "bucket full")
	})

	t.Run("unauthorized logs out", func(t *testing.T) {
		uploader, _, store := setupUploader(t, http.StatusUnauthorized, `{"detail": "expired"}`)
		_, err := uploader.Upload(context.Background(), []byte("x"), time.Now())
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, ok := store.AccessToken()
		require.False(t, ok)
	})
}

func TestJPEGSource_EncodesGrabbedImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		img.Set(x, 4, color.RGBA{R: 255, A: 255})
	}
	source := capture.NewJPEGSource(capture.GrabFunc(func(context.Context) (image.Image, error) {
		return img, nil
	}), 0)

	frame, err := source.CaptureFrame(context.Background())
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestJPEGSource_GrabErrorIsCaptureFailure(t *testing.T) {
	source := capture.NewJPEGSource(capture.GrabFunc(func(context.Context) (image.Image, error) {
		return nil, io.ErrUnexpectedEOF
	}), 70)

	_, err := source.CaptureFrame(context.Background())
	require.ErrorIs(t, err, apperrors.ErrCaptureFailed)
}

func TestNewCommandSource_RequiresCommand(t *testing.T) {
	_, err := capture.NewCommandSource(nil)
	require.ErrorIs(t, err, apperrors.ErrMissingConfig)

	source, err := capture.NewCommandSource([]string{"grim", "-"})
	require.NoError(t, err)
	require.NotNil(t, source)
}

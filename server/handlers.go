package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
	"github.com/jrsteele09/go-timetrack-client/server/uploadrepo"
	"github.com/jrsteele09/go-timetrack-client/token"
	"github.com/jrsteele09/go-timetrack-client/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	UserEmail    string `json:"user_email"`
}

// validationError mirrors the list form of "detail" used for bad input.
type validationError struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LoginHandler exchanges email and password for an access token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
			writeValidation(w, validationError{Loc: []string{"body"}, Msg: "invalid JSON body"})
			return
		}
		var missing []validationError
		if strings.TrimSpace(req.Email) == "" {
			missing = append(missing, validationError{Loc: []string{"body", "email"}, Msg: "field required"})
		}
		if req.Password == "" {
			missing = append(missing, validationError{Loc: []string{"body", "password"}, Msg: "field required"})
		}
		if len(missing) > 0 {
			writeValidation(w, missing...)
			return
		}

		user, err := s.repos.Users.GetByEmail(req.Email)
		if err != nil || user.Blocked || !user.CheckPassword(req.Password) {
			s.logger.Info().Str("email", req.Email).Msg("Rejected login")
			writeDetail(w, http.StatusUnauthorized, detailInvalidCredentials)
			return
		}

		accessToken, err := s.tokens.CreateAccessToken(token.Subject{
			UserID: user.ID,
			Email:  user.Email,
			Role:   string(user.Role),
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to create access token")
			writeDetail(w, http.StatusInternalServerError, "Could not create session")
			return
		}
		if err := s.repos.Users.SetLastLogin(user.Email); err != nil {
			s.logger.Warn().Err(err).Str("email", user.Email).Msg("Failed to record last login")
		}

		writeJSON(w, http.StatusOK, loginResponse{
			AccessToken:  accessToken,
			RefreshToken: s.tokens.CreateRefreshToken(),
			TokenType:    "bearer",
			UserEmail:    user.Email,
		})
	}
}

// MeHandler returns the caller's profile.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"user":   user.Profile(),
		})
	}
}

// MyTasksHandler lists the tasks assigned to the caller.
func (s *Server) MyTasksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(w, r)
		if !ok {
			return
		}
		tasks, err := s.repos.Tasks.List(user.Email)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to list tasks")
			writeDetail(w, http.StatusInternalServerError, "Could not load tasks")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tasks": tasks,
			"count": len(tasks),
		})
	}
}

// UploadScreenshotHandler stores a multipart "image" part for the caller.
// captured_at is optional and defaults to the time of upload.
func (s *Server) UploadScreenshotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(w, r)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeDetail(w, http.StatusRequestEntityTooLarge, "Screenshot too large")
				return
			}
			writeValidation(w, validationError{Loc: []string{"body"}, Msg: "multipart form expected"})
			return
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()

		file, header, err := r.FormFile("image")
		if err != nil {
			writeValidation(w, validationError{Loc: []string{"body", "image"}, Msg: "field required"})
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			writeValidation(w, validationError{Loc: []string{"body", "image"}, Msg: "file must be an image"})
			return
		}
		data, err := io.ReadAll(file)
		if err != nil || len(data) == 0 {
			writeValidation(w, validationError{Loc: []string{"body", "image"}, Msg: "empty image"})
			return
		}

		now := time.Now().UTC()
		capturedAt := now
		if raw := r.FormValue("captured_at"); raw != "" {
			capturedAt, err = time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				writeValidation(w, validationError{Loc: []string{"body", "captured_at"}, Msg: "invalid datetime"})
				return
			}
		}

		shot := &uploadrepo.Screenshot{
			UserID:      user.ID,
			CapturedAt:  capturedAt.UTC(),
			UploadedAt:  now,
			ContentType: contentType,
			Size:        len(data),
			Data:        data,
		}
		if err := s.repos.Uploads.Insert(shot); err != nil {
			s.logger.Error().Err(err).Msg("Failed to store screenshot")
			writeDetail(w, http.StatusInternalServerError, "Could not store screenshot")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"image_url": fmt.Sprintf("%s://%s/screenshots/%s", getScheme(r), r.Host, shot.ID),
			"record":    shot,
		})
	}
}

// ScreenshotHandler serves a stored screenshot to its owner.
func (s *Server) ScreenshotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(w, r)
		if !ok {
			return
		}
		shot, err := s.repos.Uploads.Get(r.PathValue("id"))
		if err != nil || shot.UserID != user.ID {
			writeDetail(w, http.StatusNotFound, "Screenshot not found")
			return
		}
		w.Header().Set("Content-Type", shot.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(shot.Data)
	}
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*users.User, bool) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, detailNotAuthenticated)
		return nil, false
	}
	user, err := s.repos.Users.GetByID(claims.Subject)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrUserNotFound) {
			s.logger.Error().Err(err).Msg("Failed to load user")
		}
		writeDetail(w, http.StatusUnauthorized, detailNotAuthenticated)
		return nil, false
	}
	return user, true
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error response in the {"detail": "..."} form.
func writeDetail(w http.ResponseWriter, statusCode int, detail string) {
	writeJSON(w, statusCode, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, errs ...validationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": errs})
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

package auth

import (
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-timetrack-client/internal/utils"
	"github.com/jrsteele09/go-timetrack-client/users"
	"github.com/mitchellh/mapstructure"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the body of POST /user/login.
type loginResponse struct {
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
}

// profileResponse is the body of GET /user/me. Backends answer either
// {"user": {...}} with the role possibly beside the user object, or the
// profile fields at the top level.
type profileResponse struct {
	User          *profileFields `mapstructure:"user"`
	profileFields `mapstructure:",squash"`
}

type profileFields struct {
	ID     string `mapstructure:"id"`
	UserID string `mapstructure:"user_id"`
	Email  string `mapstructure:"email"`
	Role   string `mapstructure:"role"`
}

// profile collapses both shapes into one. ok is false when no user id is
// present in either.
func (p profileResponse) profile() (users.Profile, bool) {
	fields := p.profileFields
	if p.User != nil {
		fields = *p.User
		fields.Role = utils.FirstNonEmpty(fields.Role, p.Role)
	}
	id := utils.FirstNonEmpty(fields.ID, fields.UserID)
	if id == "" {
		return users.Profile{}, false
	}
	return users.Profile{ID: id, Email: fields.Email, Role: users.RoleType(fields.Role)}, true
}

// decodeBody decodes a JSON object into out. Scalars are converted loosely,
// so an id sent as a number still lands in a string field.
func decodeBody(body []byte, out any) error {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

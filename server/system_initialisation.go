package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/jrsteele09/go-timetrack-client/internal/config"
	"github.com/jrsteele09/go-timetrack-client/internal/utils"
	"github.com/jrsteele09/go-timetrack-client/server/taskrepo"
	"github.com/jrsteele09/go-timetrack-client/users"
)

// InitialiseSystem creates the development user and a few tasks for it.
// Returns the generated password on first creation (empty string if the
// user already exists or the password was configured).
func (s *Server) InitialiseSystem(config config.Config) (generatedPassword string, err error) {
	email := config.GetDevUserEmail()

	user, generatedPassword, err := s.createDevUser(email, config.GetDevUserPassword())
	if err != nil {
		return "", fmt.Errorf("[Server InitialiseSystem] failed to bootstrap dev user: %w", err)
	}
	if err := s.seedTasks(user.Email); err != nil {
		return "", fmt.Errorf("[Server InitialiseSystem] failed to seed tasks: %w", err)
	}

	if generatedPassword != "" {
		s.logger.Info().Msg("Development user created")
		s.logger.Info().Msgf("   Email:       %s", user.Email)
		s.logger.Info().Msgf("   Password:    %s", generatedPassword)
	}
	return generatedPassword, nil
}

// createDevUser creates the development user if it doesn't exist
func (s *Server) createDevUser(email, configuredPassword string) (*users.User, string, error) {
	if existing, err := s.repos.Users.GetByEmail(email); err == nil && existing != nil {
		return existing, "", nil
	}

	password := configuredPassword
	generated := ""
	if password != "" {
		if err := users.ValidatePasswordStrength(password); err != nil {
			return nil, "", fmt.Errorf("[server createDevUser] DEV_USER_PASSWORD rejected: %w", err)
		}
	} else {
		// Generate a secure random password
		passwordBytes := make([]byte, 12)
		if _, err := rand.Read(passwordBytes); err != nil {
			return nil, "", fmt.Errorf("[server createDevUser] failed to generate password: %w", err)
		}
		password = base64.RawURLEncoding.EncodeToString(passwordBytes)
		generated = password
	}

	user, err := users.New(email, password, users.RoleEmployee)
	if err != nil {
		return nil, "", fmt.Errorf("[server createDevUser] %w", err)
	}
	user.FirstName = "Dev"
	user.LastName = "User"
	if err := s.repos.Users.Upsert(user); err != nil {
		return nil, "", fmt.Errorf("[server createDevUser] failed to create user: %w", err)
	}
	return user, generated, nil
}

func (s *Server) seedTasks(assignee string) error {
	existing, err := s.repos.Tasks.List(assignee)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, t := range []taskrepo.Task{
		{Title: "Set up workstation", EstimatedMinutes: utils.Ptr(45), Highlight: "onboarding"},
		{Title: "Weekly report", EstimatedMinutes: utils.Ptr(90), Description: "Summarise tracked time"},
		{Title: "Code review", EstimatedMinutes: utils.Ptr(120)},
	} {
		if _, err := s.repos.Tasks.Upsert(assignee, t); err != nil {
			return err
		}
	}
	return nil
}

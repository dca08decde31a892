// Package setup collects the service connection settings on first run:
// base URL, user id, and access token. The token goes to the system
// keyring; everything else is written to the YAML config.
package setup

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/campuskit/checklists/internal/credential"
	"github.com/campuskit/checklists/internal/model"
)

// Run shows the interactive form, then persists the results. The
// returned config has the service section filled in.
func Run(configPath string, cfg *model.AppConfig) (*model.AppConfig, error) {
	baseURL := cfg.Service.BaseURL
	userID := cfg.Service.UserID
	var token string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Service URL").
				Description("Root URL of the checklist service").
				Placeholder("https://api.example.com").
				Value(&baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("User ID").
				Description("Your account identifier").
				Value(&userID).
				Validate(notEmpty("user id")),
			huh.NewInput().
				Title("Access token").
				Description("Stored in the system keyring, not the config file").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(notEmpty("access token")),
		),
	)

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("running setup form: %w", err)
	}

	if err := credential.Set(credential.TokenKey, token); err != nil {
		return nil, fmt.Errorf("storing access token: %w", err)
	}

	cfg.Service.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.Service.UserID = userID
	if err := model.SaveConfig(configPath, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter a full URL including scheme")
	}
	return nil
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must not be empty", field)
		}
		return nil
	}
}

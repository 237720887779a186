// Package configform is the interactive editor behind "goals config init -i".
package configform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/goal-tracker/internal/logging"
	"github.com/nhle/goal-tracker/internal/model"
)

// Values holds the form fields. huh binds to these as strings.
type Values struct {
	DBPath   string
	Host     string
	Port     string
	LogLevel string
	LogFile  string
}

// FromConfig seeds the form with cfg.
func FromConfig(cfg *model.AppConfig) *Values {
	return &Values{
		DBPath:   cfg.Database.Path,
		Host:     cfg.Server.Host,
		Port:     strconv.Itoa(cfg.Server.Port),
		LogLevel: cfg.Log.Level,
		LogFile:  cfg.Log.File,
	}
}

// Apply validates the fields and copies them into cfg. cfg is left untouched
// on error.
func (v *Values) Apply(cfg *model.AppConfig) error {
	if err := validateRequired("Database path")(v.DBPath); err != nil {
		return err
	}
	if err := validateRequired("Host")(v.Host); err != nil {
		return err
	}
	if err := validatePort(v.Port); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(v.LogLevel); err != nil {
		return err
	}

	port, _ := strconv.Atoi(strings.TrimSpace(v.Port))
	cfg.Database.Path = strings.TrimSpace(v.DBPath)
	cfg.Server.Host = strings.TrimSpace(v.Host)
	cfg.Server.Port = port
	cfg.Log.Level = v.LogLevel
	cfg.Log.File = strings.TrimSpace(v.LogFile)
	return nil
}

// New builds the form over v.
func New(v *Values) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Database path").
				Description("SQLite file holding the ledger (:memory: for a throwaway one)").
				Value(&v.DBPath).
				Validate(validateRequired("Database path")),
			huh.NewInput().
				Title("Host").
				Description("Address \"goals serve\" listens on").
				Placeholder("127.0.0.1").
				Value(&v.Host).
				Validate(validateRequired("Host")),
			huh.NewInput().
				Title("Port").
				Placeholder("5000").
				Value(&v.Port).
				Validate(validatePort),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&v.LogLevel),
			huh.NewInput().
				Title("Log file").
				Description("Optional rotated log file").
				Value(&v.LogFile),
		),
	)
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validatePort(s string) error {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	return model.ValidatePort(port)
}

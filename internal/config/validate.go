package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the structural validity of a Config.
// All problems are reported together.
//
// An empty bot token is deliberately not an error: the relay still serves
// /health and answers relay routes with a configuration error.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateServer(cfg.Server)...)
	errs = append(errs, validateTelegram(cfg.Telegram)...)

	switch cfg.Relay.Mode {
	case ModeTyped, ModeForward:
	default:
		errs = append(errs, fmt.Errorf("config: relay.mode must be %q or %q, got %q", ModeTyped, ModeForward, cfg.Relay.Mode))
	}
	if !strings.HasPrefix(cfg.Relay.Prefix, "/") {
		errs = append(errs, fmt.Errorf("config: relay.prefix must start with /, got %q", cfg.Relay.Prefix))
	}

	if !logLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", cfg.Log.Level))
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", cfg.Log.Format))
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("config: metrics.path must start with /, got %q", cfg.Metrics.Path))
	}

	return errors.Join(errs...)
}

func validateServer(s ServerConfig) []error {
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", s.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: server.bind %q is invalid: %w", s.Bind, err))
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("config: server timeouts must not be negative"))
	}
	if (s.Auth.BasicUser == "") != (s.Auth.BasicPass == "") {
		errs = append(errs, errors.New("config: server.auth.basic_user and basic_pass must be set together"))
	}
	return errs
}

func validateTelegram(t TelegramConfig) []error {
	var errs []error
	if t.Token != "" && !tokenPattern.MatchString(t.Token) {
		// Never echo the value: it is a credential.
		errs = append(errs, errors.New("config: telegram.token format invalid (expected <bot_id>:<hash>)"))
	}
	u, err := url.Parse(t.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("config: telegram.api_url must be a valid http/https URL, got %q", t.APIURL))
	}
	if t.Timeout < 0 {
		errs = append(errs, fmt.Errorf("config: telegram.timeout must not be negative, got %s", t.Timeout))
	}
	return errs
}

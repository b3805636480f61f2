package config

import "os"

// MailConfig describes the SMTP relay used for OTP delivery.  When Host is
// empty the server falls back to logging messages instead of sending them,
// which is only acceptable outside production.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether an SMTP relay is configured.
func (m MailConfig) Enabled() bool { return m.Host != "" }

// LoadMailConfig reads SMTP_* variables.  SMTP_PORT and SMTP_FROM become
// required once SMTP_HOST is set.
func LoadMailConfig() MailConfig {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return MailConfig{From: envStr("SMTP_FROM", "no-reply@ruet-portal.local")}
	}
	return MailConfig{
		Host:     host,
		Port:     mustInt("SMTP_PORT"),
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASS"),
		From:     must("SMTP_FROM"),
	}
}

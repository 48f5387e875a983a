package config

import (
	"os"
	"strconv"
)

const (
	defaultSMTPHost = "smtp.gmail.com"
	defaultSMTPPort = 587
)

// MailConfig is the single sender identity used for password reset mail.
type MailConfig struct {
	Host     string
	Port     int
	Address  string
	Password string
}

// GetMailConfig reads the SMTP relay and sender credential from the environment.
func GetMailConfig() *MailConfig {
	c := &MailConfig{
		Host:     os.Getenv("PRICEDESK_SMTP_HOST"),
		Address:  os.Getenv("PRICEDESK_SMTP_EMAIL"),
		Password: os.Getenv("PRICEDESK_SMTP_PASSWORD"),
	}
	if c.Host == "" {
		c.Host = defaultSMTPHost
	}
	port, err := strconv.Atoi(os.Getenv("PRICEDESK_SMTP_PORT"))
	if err != nil || port <= 0 || port > 65535 {
		port = defaultSMTPPort
	}
	c.Port = port
	return c
}

// Configured reports whether both halves of the sender credential are set.
func (c *MailConfig) Configured() bool {
	return c.Address != "" && c.Password != ""
}

package config

import (
	"strings"
	"testing"
)

func TestParse_Minimal(t *testing.T) {
	yaml := `
database:
  name: upkeep_dev
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" {
		t.Errorf("Database.Host = %q, want default 127.0.0.1", cfg.Database.Host)
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Database.Port = %d, want 3306", cfg.Database.Port)
	}
	if cfg.Database.User != "root" {
		t.Errorf("Database.User = %q, want root", cfg.Database.User)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Completion.Model != "gemini-2.5-flash" {
		t.Errorf("Completion.Model = %q, want gemini-2.5-flash", cfg.Completion.Model)
	}
	if cfg.Completion.Language != "en" {
		t.Errorf("Completion.Language = %q, want en", cfg.Completion.Language)
	}
}

func TestParse_Full(t *testing.T) {
	yaml := `
database:
  host: db.internal
  port: 3307
  user: upkeep
  password: secret
  name: upkeep_prod
server:
  port: 9090
completion:
  model: gemini-2.5-pro
  language: es
notify:
  slack:
    bot_token: xoxb-test
    channel: C123
digest:
  schedule: "0 8 * * *"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 3307 {
		t.Errorf("database = %+v, want db.internal:3307", cfg.Database)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Completion.Language != "es" {
		t.Errorf("Completion.Language = %q, want es", cfg.Completion.Language)
	}
	if cfg.Digest.Schedule != "0 8 * * *" {
		t.Errorf("Digest.Schedule = %q", cfg.Digest.Schedule)
	}
}

func TestParse_MissingDatabaseName(t *testing.T) {
	_, err := Parse([]byte(`server: {port: 8080}`))
	if err == nil {
		t.Fatal("expected validation error for missing database.name")
	}
	if !strings.Contains(err.Error(), "database.name") {
		t.Errorf("error %q missing database.name mention", err)
	}
}

func TestParse_SlackChannelRequired(t *testing.T) {
	yaml := `
database:
  name: upkeep_dev
notify:
  slack:
    bot_token: xoxb-test
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error for slack channel")
	}
	if !strings.Contains(err.Error(), "notify.slack.channel") {
		t.Errorf("error %q missing notify.slack.channel mention", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("database: ["))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

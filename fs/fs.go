// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

// FS holds the database migrations (`migrations/`) and the email templates (`templates/`).
//
//go:embed migrations/*.sql templates/*
var FS embed.FS

const (
	MigrationsDir = "migrations"
	TemplatesDir  = "templates"
)

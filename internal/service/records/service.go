// Package records persists document, chunk and booking rows.
package records

import "database/sql"

// Service wraps the relational store behind typed operations.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

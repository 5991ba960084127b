package db

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB          *gorm.DB
	AuditEvents *AuditEventRepository
	Grants      *GrantRepository
}

func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		log.Printf("POSTGRES_DSN not set; starting in no-db mode.")
		return newStore(nil), nil
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return newStore(gdb), nil
}

func newStore(gdb *gorm.DB) *Store {
	return &Store{
		DB:          gdb,
		AuditEvents: NewAuditEventRepository(gdb),
		Grants:      NewGrantRepository(gdb),
	}
}

func (s *Store) Available() bool {
	return s.DB != nil
}

func (s *Store) Migrate() error {
	if s.DB == nil {
		return errDBUnavailable
	}
	return s.DB.AutoMigrate(&AuditEventModel{}, &GrantModel{})
}

package config

import (
	"fmt"
	"strings"

	model "facad/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var enumQueries = []string{
	`CREATE TYPE facad.process_type AS ENUM ('PROGRESSION', 'PROMOTION')`,
	`CREATE TYPE facad.process_status AS ENUM ('DRAFT', 'SUBMITTED', 'UNDER_REVIEW', 'APPROVED', 'REJECTED', 'RETURNED')`,
}

func InitDB(host string, port string, user string, password string, dbName string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   "facad.",
			SingularTable: false,
		},
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, Migrate(db)
}

// Migrate creates the schema, enum types and tables. Idempotent.
func Migrate(db *gorm.DB) error {
	x := db.Exec(`CREATE SCHEMA IF NOT EXISTS facad`)
	if x.Error != nil {
		return x.Error
	}
	for _, query := range enumQueries {
		x := db.Exec(query)
		if x.Error != nil {
			if strings.Contains(x.Error.Error(), "already exists") {
				continue
			}
			return x.Error
		}
	}

	return db.AutoMigrate(
		&model.User{},
		&model.ScoringTable{},
		&model.ScoringNode{},
		&model.ScoringItem{},
		&model.CareerProcess{},
		&model.EvidenceFile{},
		&model.ProcessScore{},
		&model.ProcessNodeScore{},
	)
}

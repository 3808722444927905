// manage.go: database schema migration and GORM logger setup
package datastore

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Kirushanth-G/transformer-monitoring/internal/logging"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// createGormLogger returns a GORM logger; verbose in debug mode, warnings
// only otherwise.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// performAutoMigration runs GORM auto-migration for all models.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(
		&Transformer{},
		&Inspection{},
		&InspectionImage{},
		&TransformerImage{},
		&ThermalAnalysis{},
		&AnomalyDetection{},
		&AnalysisConfig{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		logging.Debug("Database schema migrated",
			"db_type", dbType,
			"connection", connectionInfo)
	}
	return nil
}

// redactDSN removes the password from a MySQL DSN for logging.
func redactDSN(dsn string) string {
	colon := strings.Index(dsn, ":")
	at := strings.Index(dsn, "@")
	if colon == -1 || at == -1 || colon > at {
		return dsn
	}
	return dsn[:colon+1] + "***" + dsn[at:]
}

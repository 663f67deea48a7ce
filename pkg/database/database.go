package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/response"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt:    true,
		TranslateError: true,
		// Multi-statement writes run inside repository.Transactor.
		SkipDefaultTransaction: true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range []string{"auth", "clinical", "notify", "audit"} {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&patient.Patient{},
		&form.MedicalForm{},
		&form.FileAttachment{},
		&response.FormResponse{},
		&notification.Notification{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		name  string
		query string
	}{
		{
			// Workload counts and assignee dashboards.
			name:  "idx_medical_forms_assignee_status",
			query: `CREATE INDEX IF NOT EXISTS idx_medical_forms_assignee_status ON clinical.medical_forms (assigned_to_id, status)`,
		},
		{
			name:  "idx_medical_forms_unclaimed",
			query: `CREATE INDEX IF NOT EXISTS idx_medical_forms_unclaimed ON clinical.medical_forms (created_at DESC) WHERE assigned_to_id IS NULL AND status = 'SUBMITTED'`,
		},
		{
			name:  "idx_medical_forms_patient_created",
			query: `CREATE INDEX IF NOT EXISTS idx_medical_forms_patient_created ON clinical.medical_forms (patient_id, created_at DESC)`,
		},
		{
			name:  "idx_form_responses_form_created",
			query: `CREATE INDEX IF NOT EXISTS idx_form_responses_form_created ON clinical.form_responses (form_id, created_at DESC)`,
		},
		{
			name:  "idx_notifications_user_unread",
			query: `CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notify.notifications (user_id, created_at DESC) WHERE is_read = false`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("%s: %w", idx.name, err)
		}
		log.Debug("index ensured", zap.String("index", idx.name))
	}

	return nil
}

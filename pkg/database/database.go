package database

import (
	"errors"
	"fmt"
	"strings"
	"tp_portal_backend/internal/config"
	"tp_portal_backend/internal/model"
	applog "tp_portal_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.DBName,
		dbCfg.Charset,
		dbCfg.ParseTime,
	)

	logLevel := logger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// unique index violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	applog.Log.Info("Database connection established")

	// release builds migrate only when asked to
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		applog.Log.Info("Database migration completed")
	}

	if err := SeedAdmin(db, &cfg.Admin); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.AccessCode{},
		&model.RegistrationNumber{},
		&model.SchoolChangeApproval{},
		&model.Notification{},
		&model.Review{},
	)
}

// SeedAdmin creates the configured admin account when no admin exists yet.
func SeedAdmin(db *gorm.DB, cfg *config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	var existing model.User
	err := db.Where("role = ?", model.Admin).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}
	admin := &model.User{
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(cfg.Email)),
		Password:     string(hashed),
		Role:         model.Admin,
		WelcomeShown: true,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	applog.Log.Info("Admin account created", zap.String("email", admin.Email))
	return nil
}

package db

import (
	"fmt"
	"time"

	"oaforum/internal/logger"
	"oaforum/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 连接数据库并自动迁移。driver 为 postgres 或 sqlite
func Open(driver, dsn string, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		// 游标比较依赖统一时区
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if driver == "sqlite" {
		// SQLite 只允许一个写连接
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if log != nil {
		log.Info("Database connection established", "driver", driver)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if log != nil {
		log.Info("Database migration completed")
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.CompanyFollow{},
		&models.Experience{},
		&models.ExperienceTag{},
		&models.ExperienceUpvote{},
		&models.ExperienceBookmark{},
		&models.ExperienceUse{},
		&models.ExperienceReport{},
		&models.Comment{},
		&models.CommentLike{},
		&models.CommentDislike{},
		&models.PointLog{},
		&models.Notification{},
		&models.PushSubscription{},
		&models.OTP{},
	)
}

// PromoteAdmins 将配置中的邮箱提升为管理员，角色只在启动时由运维配置变更
func PromoteAdmins(db *gorm.DB, emails []string, log *logger.Logger) error {
	if len(emails) == 0 {
		return nil
	}
	result := db.Model(&models.User{}).
		Where("email IN ? AND role <> ?", emails, models.RoleAdmin).
		Update("role", models.RoleAdmin)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 && log != nil {
		log.Info("Promoted admin accounts", "count", result.RowsAffected)
	}
	return nil
}

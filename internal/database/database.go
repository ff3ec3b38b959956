package database

import (
	"fmt"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/config"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// DSN 生成 postgres 连接串
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GormConfig 统一的 gorm 配置
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.NewGormLogger(gormLogger.Warn),
		TranslateError: true, // 唯一约束冲突转换为 gorm.ErrDuplicatedKey
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true, // 禁用复数表名
		},
	}
}

// Open 连接数据库，不做迁移
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Init 连接数据库并自动迁移
func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 自动迁移全部表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.FlowModel{},
		&model.FlowMilestoneModel{},
		&model.FlowRecipientModel{},
		&model.ContributionModel{},
		&model.ContributionAggregateModel{},
		&model.NotificationModel{},
		&model.FlowUpdateModel{},
		&model.UpdateCommentModel{},
		&model.UserModel{},
		&model.GovernanceEventModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Package host 提供宿主侧的外部协作件：站点注册表、插件配置存储、
// 用户名缓存与通知下沉。引擎只依赖这里定义的接口。
package host

import (
	"encoding/json"
	"fmt"

	"github.com/golang-chatmsg-core/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ConfigStore 插件配置存储：以插件ID为作用域的不透明字典
type ConfigStore interface {
	Get(pluginID string, out interface{}) error
	Set(pluginID string, value interface{}) error
}

// PluginConfig 插件配置表
type PluginConfig struct {
	ID       uint   `gorm:"primaryKey"`
	PluginID string `gorm:"uniqueIndex;size:64"`
	Data     string `gorm:"type:text"`
}

// GormStore 基于 gorm + sqlite 的配置存储实现
type GormStore struct {
	db *gorm.DB
}

// OpenDB 打开数据库并迁移表结构
func OpenDB(path string) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if config.Cfg != nil && !config.Cfg.Database.LogMode {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.AutoMigrate(&PluginConfig{}, &SiteRecord{}); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}
	return db, nil
}

// NewGormStore 创建配置存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get 读取插件配置并反序列化到 out；不存在时不修改 out
func (s *GormStore) Get(pluginID string, out interface{}) error {
	var row PluginConfig
	err := s.db.Where("plugin_id = ?", pluginID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取插件配置失败: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Data), out); err != nil {
		return fmt.Errorf("解析插件配置失败: %w", err)
	}
	return nil
}

// Set 序列化并写入插件配置
func (s *GormStore) Set(pluginID string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化插件配置失败: %w", err)
	}
	row := PluginConfig{PluginID: pluginID, Data: string(data)}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plugin_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("写入插件配置失败: %w", err)
	}
	return nil
}

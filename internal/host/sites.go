package host

import (
	"fmt"

	"github.com/golang-chatmsg-core/internal/model"
	"gorm.io/gorm"
)

// SiteRegistry 站点注册表：枚举宿主当前激活的站点
type SiteRegistry interface {
	ActiveSites() ([]model.Site, error)
}

// SiteRecord 站点表
type SiteRecord struct {
	ID              uint   `gorm:"primaryKey"`
	SiteID          string `gorm:"uniqueIndex;size:64"`
	Name            string `gorm:"size:128"`
	URL             string `gorm:"size:256"`
	Cookie          string `gorm:"type:text"`
	UserAgent       string `gorm:"size:512"`
	RenderByBrowser bool
	Active          bool `gorm:"index"`
}

// GormSiteRegistry 基于 gorm 的站点注册表实现
type GormSiteRegistry struct {
	db *gorm.DB
}

// NewGormSiteRegistry 创建站点注册表
func NewGormSiteRegistry(db *gorm.DB) *GormSiteRegistry {
	return &GormSiteRegistry{db: db}
}

// ActiveSites 按主键顺序返回激活站点
func (r *GormSiteRegistry) ActiveSites() ([]model.Site, error) {
	var rows []SiteRecord
	if err := r.db.Where("active = ?", true).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("读取站点列表失败: %w", err)
	}
	sites := make([]model.Site, 0, len(rows))
	for _, row := range rows {
		sites = append(sites, model.Site{
			ID:              row.SiteID,
			Name:            row.Name,
			URL:             row.URL,
			Cookie:          row.Cookie,
			UserAgent:       row.UserAgent,
			RenderByBrowser: row.RenderByBrowser,
		})
	}
	return sites, nil
}

package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/utils"
)

// StatsController provides blog statistics such as post counts and today's page views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the blog.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var publishedCount int64
	var draftCount int64
	var authorCount int64
	var todayViews int64

	if err := s.db.Model(&models.Post{}).Where("status = ?", models.StatusPublished).Count(&publishedCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		publishedCount = 0
	}

	if err := s.db.Model(&models.Post{}).Where("status = ?", models.StatusDraft).Count(&draftCount).Error; err != nil {
		draftCount = 0
	}

	if err := s.db.Model(&models.Post{}).Distinct("author_id").Count(&authorCount).Error; err != nil {
		authorCount = 0
	}

	// Rows are keyed by local midnight; a range avoids DATE vs DATETIME mismatches across drivers
	now := time.Now().In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.Model(&models.PageView{}).
		Where("date >= ? AND date < ?", today, today.AddDate(0, 0, 1)).
		Select("COALESCE(SUM(count),0)").
		Scan(&todayViews).Error; err != nil {
		todayViews = 0
	}

	utils.Success(ctx, gin.H{
		"published_count":  publishedCount,
		"draft_count":      draftCount,
		"author_count":     authorCount,
		"today_page_views": todayViews,
	})
}

package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/inkblog/admin"
	"github.com/cppla/inkblog/middleware"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/utils"
)

// AdminController exposes the post admin and the user operations it depends on.
type AdminController struct {
	db *gorm.DB
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

// postInput is the editable part of a post. Created and updated are never accepted.
type postInput struct {
	Title    string            `json:"title" binding:"required,max=250"`
	Slug     string            `json:"slug" binding:"omitempty,max=250"`
	AuthorID uint              `json:"author_id" binding:"required"`
	Body     string            `json:"body" binding:"required"`
	Publish  *time.Time        `json:"publish"`
	Status   models.PostStatus `json:"status" binding:"omitempty,oneof=DF PB"`
}

// Login verifies staff credentials and issues a bearer token.
func (a *AdminController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid username or password")
		return
	}
	if !middleware.IsAdmin(user) {
		utils.Error(ctx, http.StatusForbidden, 40301, "staff access required")
		return
	}

	token, expiresAt, err := utils.GenerateToken(user.ID, user.Username, utils.AdminTokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Sugar.Infow("admin login", "user_id", user.ID, "username", user.Username)
	utils.Success(ctx, gin.H{"token": token, "expires_at": expiresAt, "user": user})
}

// Logout revokes the current token until it would have expired anyway.
func (a *AdminController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := ctx.GetTime(middleware.ContextTokenExpiryKey)
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(utils.AdminTokenTTL)
	}
	utils.RevokeToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// ListPosts returns one changelist page.
func (a *AdminController) ListPosts(ctx *gin.Context) {
	q, err := admin.ParseQuery(ctx.Request.URL.Query())
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, err.Error())
		return
	}
	cl, err := admin.Changelist(a.db, q, time.Now())
	if err != nil {
		utils.Sugar.Errorw("changelist failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to list posts")
		return
	}
	utils.Success(ctx, cl)
}

// GetPost returns any post, drafts included.
func (a *AdminController) GetPost(ctx *gin.Context) {
	post, ok := a.loadPost(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// CreatePost adds a post. A blank slug is derived from the title.
func (a *AdminController) CreatePost(ctx *gin.Context) {
	var in postInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	var post models.Post
	if !a.applyInput(ctx, &post, in) {
		return
	}
	if err := a.db.Omit(clause.Associations).Create(&post).Error; err != nil {
		utils.Sugar.Errorw("create post failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create post")
		return
	}
	a.afterWrite(ctx, post, "created")
}

// UpdatePost replaces the editable fields of a post. Omitted publish and
// status keep their stored values.
func (a *AdminController) UpdatePost(ctx *gin.Context) {
	post, ok := a.loadPost(ctx)
	if !ok {
		return
	}

	var in postInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}
	if !a.applyInput(ctx, &post, in) {
		return
	}
	if err := a.db.Omit(clause.Associations).Save(&post).Error; err != nil {
		utils.Sugar.Errorw("update post failed", "id", post.ID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to update post")
		return
	}
	a.afterWrite(ctx, post, "updated")
}

// Slugify previews the slug a title would be prepopulated with.
func (a *AdminController) Slugify(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"slug": admin.Slugify(ctx.Query("title"))})
}

// LookupUsers backs the raw-id author widget: a username prefix search.
func (a *AdminController) LookupUsers(ctx *gin.Context) {
	type userRef struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	}
	users := []userRef{}
	query := a.db.Model(&models.User{}).Order("username").Limit(20)
	if q := strings.TrimSpace(ctx.Query("q")); q != "" {
		if id, err := strconv.ParseUint(q, 10, 64); err == nil {
			query = query.Where("id = ?", id)
		} else {
			query = query.Where("LOWER(username) LIKE ?", strings.ToLower(q)+"%")
		}
	}
	if err := query.Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to look up users")
		return
	}
	utils.Success(ctx, gin.H{"items": users, "field": admin.PostAdmin.RawIDFields})
}

// CreateUser adds an author account.
func (a *AdminController) CreateUser(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,max=150"`
		Password string `json:"password" binding:"required,min=8"`
		Email    string `json:"email" binding:"omitempty,email"`
		IsStaff  bool   `json:"is_staff"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "username cannot be empty")
		return
	}

	var count int64
	if err := a.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to check username")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "username already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to hash password")
		return
	}
	user := models.User{Username: username, Email: strings.TrimSpace(req.Email), PasswordHash: hash, IsStaff: req.IsStaff}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Sugar.Errorw("create user failed", "username", username, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to create user")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// DeleteUser removes a user and every post they authored.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid user id")
		return
	}

	removed, err := models.DeleteUserCascade(a.db, uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40403, "user not found")
		return
	}
	if err != nil {
		utils.Sugar.Errorw("delete user failed", "id", id, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to delete user")
		return
	}

	utils.InvalidateBlog()
	utils.Sugar.Infow("user deleted", "id", id, "posts_removed", removed,
		"by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"deleted_posts": removed})
}

func (a *AdminController) loadPost(ctx *gin.Context) (models.Post, bool) {
	var post models.Post
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
		return post, false
	}
	if err := a.db.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return post, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load post")
		return post, false
	}
	return post, true
}

// applyInput validates in and copies it onto post, writing the error response
// itself when validation fails.
func (a *AdminController) applyInput(ctx *gin.Context, post *models.Post, in postInput) bool {
	title := utils.SanitizeText(in.Title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40012, "title cannot be empty")
		return false
	}
	body := utils.Sanitize(in.Body)
	if strings.TrimSpace(body) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40013, "body cannot be empty")
		return false
	}

	var author models.User
	if err := a.db.First(&author, in.AuthorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusBadRequest, 40014, "author does not exist")
			return false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to load author")
		return false
	}

	post.Title = title
	post.Slug = strings.TrimSpace(in.Slug)
	post.Body = body
	post.AuthorID = author.ID
	post.Author = author
	if in.Publish != nil {
		post.Publish = *in.Publish
	}
	if in.Status != "" {
		post.Status = in.Status
	}

	admin.Prepopulate(post)
	if !admin.ValidSlug(post.Slug) {
		utils.Error(ctx, http.StatusBadRequest, 40015, "slug may only contain letters, numbers, underscores or hyphens")
		return false
	}
	return true
}

// slugWarnings flags other posts sharing the slug. Duplicates are allowed.
func (a *AdminController) slugWarnings(post models.Post) []string {
	warnings := []string{}
	var dup int64
	err := a.db.Model(&models.Post{}).
		Where("slug = ? AND id <> ?", post.Slug, post.ID).
		Count(&dup).Error
	if err != nil {
		utils.Sugar.Warnw("slug duplicate check failed", "slug", post.Slug, "err", err)
		return warnings
	}
	if dup > 0 {
		utils.Sugar.Warnw("duplicate post slug", "post_id", post.ID, "slug", post.Slug, "others", dup)
		warnings = append(warnings, fmt.Sprintf("slug %q is also used by %d other post(s)", post.Slug, dup))
	}
	return warnings
}

func (a *AdminController) afterWrite(ctx *gin.Context, post models.Post, action string) {
	utils.InvalidateBlog()
	utils.Sugar.Infow("post "+action, "post_id", post.ID, "status", post.Status,
		"by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"post": post, "warnings": a.slugWarnings(post)})
}

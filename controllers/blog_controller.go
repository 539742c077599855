package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/templates"
	"github.com/cppla/inkblog/utils"
)

// BlogController serves the public pages and their JSON mirrors.
// Only published posts are ever visible here.
type BlogController struct {
	db *gorm.DB
}

// NewBlogController creates a new BlogController instance.
func NewBlogController(db *gorm.DB) *BlogController {
	return &BlogController{db: db}
}

// errPostNotFound covers missing, draft and malformed ids alike.
var errPostNotFound = errors.New("post not found")

func (b *BlogController) publishedPosts() ([]models.Post, error) {
	posts := []models.Post{}
	err := b.db.Scopes(models.Published).Preload("Author").Find(&posts).Error
	for i := range posts {
		posts[i].Author.Email = ""
	}
	return posts, err
}

func (b *BlogController) publishedPost(rawID string) (models.Post, error) {
	var post models.Post
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return post, errPostNotFound
	}
	err = b.db.Preload("Author").
		Where("id = ? AND status = ?", id, models.StatusPublished).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return post, errPostNotFound
	}
	post.Author.Email = ""
	return post, err
}

func page(title string, extra gin.H) gin.H {
	h := gin.H{"SiteTitle": config.Get().BlogTitle, "PageTitle": title}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

// RenderNotFound writes the HTML 404 page.
func RenderNotFound(ctx *gin.Context) {
	ctx.HTML(http.StatusNotFound, templates.NotFound, page("Not Found", nil))
}

func renderServerError(ctx *gin.Context, err error) {
	utils.Sugar.Errorw("blog page failed", "path", ctx.Request.URL.Path, "err", err)
	ctx.HTML(http.StatusInternalServerError, templates.ServerErr, page("Server Error", nil))
}

// PostList renders every published post, newest first.
func (b *BlogController) PostList(ctx *gin.Context) {
	posts, err := b.publishedPosts()
	if err != nil {
		renderServerError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, templates.PostList, page("", gin.H{"Posts": posts}))
}

// PostDetail renders one published post or the 404 page.
func (b *BlogController) PostDetail(ctx *gin.Context) {
	post, err := b.publishedPost(ctx.Param("id"))
	if errors.Is(err, errPostNotFound) {
		RenderNotFound(ctx)
		return
	}
	if err != nil {
		renderServerError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, templates.PostDetail, page(post.Title, gin.H{"Post": post}))
}

// APIListPosts returns every published post, newest first.
func (b *BlogController) APIListPosts(ctx *gin.Context) {
	if cached, ok := utils.CacheGetBytes(utils.CacheKeyPostList); ok {
		ctx.Data(http.StatusOK, "application/json", cached)
		return
	}

	posts, err := b.publishedPosts()
	if err != nil {
		utils.Sugar.Errorw("list posts failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to list posts")
		return
	}
	utils.SuccessCached(ctx, utils.CacheKeyPostList, gin.H{"items": posts, "total": len(posts)})
}

// APIGetPost returns one published post.
func (b *BlogController) APIGetPost(ctx *gin.Context) {
	rawID := ctx.Param("id")
	key := utils.CacheKeyPostDetail(rawID)
	if cached, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(http.StatusOK, "application/json", cached)
		return
	}

	post, err := b.publishedPost(rawID)
	if errors.Is(err, errPostNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	if err != nil {
		utils.Sugar.Errorw("load post failed", "id", rawID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to load post")
		return
	}
	utils.SuccessCached(ctx, key, gin.H{"post": post})
}

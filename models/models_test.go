package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=on",
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Username: name}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createPost(t *testing.T, db *gorm.DB, p models.Post) models.Post {
	t.Helper()
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestPostStatus(t *testing.T) {
	assert.Equal(t, "Draft", models.StatusDraft.Label())
	assert.Equal(t, "Published", models.StatusPublished.Label())
	assert.True(t, models.StatusPublished.Valid())
	assert.False(t, models.PostStatus("XX").Valid())
	assert.Equal(t, "blog_posts", models.Post{}.TableName())
	assert.Equal(t, "Hello", models.Post{Title: "Hello"}.String())
}

func TestCreateDefaults(t *testing.T) {
	db := newTestDB(t)
	author := createUser(t, db, "alice")

	before := time.Now()
	p := createPost(t, db, models.Post{Title: "First", Slug: "first", AuthorID: author.ID, Body: "hi"})

	assert.Equal(t, models.StatusDraft, p.Status)
	assert.False(t, p.Publish.Before(before), "publish defaults to creation time")
	assert.Equal(t, p.Created, p.Publish)
	assert.Equal(t, p.Created, p.Updated)

	future := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	scheduled := createPost(t, db, models.Post{Title: "Later", Slug: "later", AuthorID: author.ID, Body: "soon", Publish: future})
	assert.True(t, scheduled.Publish.Equal(future))
}

func TestUpdateAdvancesUpdatedOnly(t *testing.T) {
	db := newTestDB(t)
	author := createUser(t, db, "alice")
	p := createPost(t, db, models.Post{Title: "Draft", Slug: "draft", AuthorID: author.ID, Body: "v1"})

	old := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&p).UpdateColumn("updated", old).Error)

	var stored models.Post
	require.NoError(t, db.First(&stored, p.ID).Error)
	created := stored.Created

	stored.Body = "v2"
	stored.Created = time.Now().Add(24 * time.Hour)
	require.NoError(t, db.Save(&stored).Error)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, p.ID).Error)
	assert.Equal(t, "v2", reloaded.Body)
	assert.True(t, reloaded.Created.Equal(created), "created never changes")
	assert.True(t, reloaded.Updated.After(old), "updated advances on save")
}

func TestCreatedIsWrittenOnlyOnInsert(t *testing.T) {
	db := newTestDB(t)
	author := createUser(t, db, "alice")
	p := createPost(t, db, models.Post{Title: "Pinned", Slug: "pinned", AuthorID: author.ID, Body: "v1"})

	var stored models.Post
	require.NoError(t, db.First(&stored, p.ID).Error)
	created := stored.Created

	stored.Created = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Save(&stored).Error)
	require.NoError(t, db.Model(&stored).Updates(map[string]any{"created": time.Date(2002, 2, 2, 0, 0, 0, 0, time.UTC), "body": "v2"}).Error)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, p.ID).Error)
	assert.Equal(t, "v2", reloaded.Body)
	assert.True(t, reloaded.Created.Equal(created), "created=%s want %s", reloaded.Created, created)
}

func TestPublishedScope(t *testing.T) {
	db := newTestDB(t)
	author := createUser(t, db, "alice")
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	createPost(t, db, models.Post{Title: "old", Slug: "old", AuthorID: author.ID, Body: "b", Publish: base, Status: models.StatusPublished})
	createPost(t, db, models.Post{Title: "draft", Slug: "draft", AuthorID: author.ID, Body: "b", Publish: base.AddDate(0, 0, 5), Status: models.StatusDraft})
	createPost(t, db, models.Post{Title: "new", Slug: "new", AuthorID: author.ID, Body: "b", Publish: base.AddDate(0, 0, 2), Status: models.StatusPublished})
	createPost(t, db, models.Post{Title: "mid", Slug: "mid", AuthorID: author.ID, Body: "b", Publish: base.AddDate(0, 0, 1), Status: models.StatusPublished})

	var posts []models.Post
	require.NoError(t, db.Scopes(models.Published).Find(&posts).Error)

	got := make([]string, 0, len(posts))
	for _, p := range posts {
		assert.True(t, p.IsPublished())
		got = append(got, p.Title)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, got)

	var all []models.Post
	require.NoError(t, db.Scopes(models.DefaultOrder).Find(&all).Error)
	assert.Equal(t, "draft", all[0].Title)
}

func TestSlugNotUnique(t *testing.T) {
	db := newTestDB(t)
	author := createUser(t, db, "alice")
	createPost(t, db, models.Post{Title: "Same", Slug: "same", AuthorID: author.ID, Body: "1"})
	createPost(t, db, models.Post{Title: "Same", Slug: "same", AuthorID: author.ID, Body: "2"})

	var n int64
	require.NoError(t, db.Model(&models.Post{}).Where("slug = ?", "same").Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestDeleteUserCascade(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	for i := 0; i < 3; i++ {
		createPost(t, db, models.Post{Title: "a", Slug: "a", AuthorID: alice.ID, Body: "x"})
	}
	kept := createPost(t, db, models.Post{Title: "b", Slug: "b", AuthorID: bob.ID, Body: "y"})

	removed, err := models.DeleteUserCascade(db, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 1)
	assert.Equal(t, kept.ID, posts[0].ID)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)

	_, err = models.DeleteUserCascade(db, alice.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestForeignKeyCascadeInSchema(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	createPost(t, db, models.Post{Title: "a", Slug: "a", AuthorID: alice.ID, Body: "x"})
	createPost(t, db, models.Post{Title: "b", Slug: "b", AuthorID: bob.ID, Body: "y"})

	// a raw delete bypasses DeleteUserCascade; the constraint must still remove the posts
	require.NoError(t, db.Exec("DELETE FROM users WHERE id = ?", alice.ID).Error)

	var n int64
	require.NoError(t, db.Model(&models.Post{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

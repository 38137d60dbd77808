package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// DiscussionKind names the container types that own a reply tree.
type DiscussionKind string

const (
	KindBlog  DiscussionKind = "blog"
	KindForum DiscussionKind = "forum"
	KindStory DiscussionKind = "story"
)

func ParseDiscussionKind(s string) (DiscussionKind, error) {
	switch k := DiscussionKind(s); k {
	case KindBlog, KindForum, KindStory:
		return k, nil
	}
	return "", ErrInvalidKind
}

// NewestFirst reports the declared comment order of the kind: forum posts
// read chronologically, blog and story comments newest first.
func (k DiscussionKind) NewestFirst() bool {
	return k != KindForum
}

// Discussion is any entity that owns a reply tree.
type Discussion interface {
	Ownable
	DiscussionID() uuid.UUID
}

// Closeable discussions reject new nodes while closed.
type Closeable interface {
	Closed() bool
}

// Comment is a node of a reply tree: a blog comment, forum post or story
// comment depending on Kind.
type Comment struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Kind         DiscussionKind `json:"kind"`
	DiscussionID uuid.UUID      `json:"discussion_id"`
	AuthorID     uuid.UUID      `json:"author_id" db:"user_id"`
	Content      string         `json:"content" db:"content"`
	ParentID     *uuid.UUID     `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

func (c *Comment) OwnerID() uuid.UUID { return c.AuthorID }

func (c *Comment) IsTopLevel() bool { return c.ParentID == nil }

// Blog is an article with a threaded comment section.
type Blog struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Slug         string    `json:"slug" db:"slug"`
	Content      string    `json:"content" db:"content"`
	ThumbnailURL string    `json:"thumbnail_url" db:"thumbnail_url"`
	AuthorID     uuid.UUID `json:"author_id" db:"author_id"`
	Tags         []Tag     `json:"tags"`
	Published    bool      `json:"published" db:"published"`
	Views        int       `json:"views" db:"views"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (b *Blog) OwnerID() uuid.UUID      { return b.AuthorID }
func (b *Blog) DiscussionID() uuid.UUID { return b.ID }

// VisibleTo reports whether actor may read the blog: published blogs are
// public, drafts are visible to their author and admins.
func (b *Blog) VisibleTo(actor Actor) bool {
	return b.Published || actor.IsAdmin() || (actor.Authenticated() && actor.UserID == b.AuthorID)
}

type ForumCategory struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ThreadCount int       `json:"thread_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ForumThread owns forum posts and can be pinned or closed by admins.
type ForumThread struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Title      string     `json:"title" db:"title"`
	CategoryID uuid.UUID  `json:"category_id" db:"category_id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	IsPinned   bool       `json:"is_pinned" db:"is_pinned"`
	IsClosed   bool       `json:"is_closed" db:"is_closed"`
	Views      int        `json:"views" db:"views"`
	PostCount  int        `json:"post_count"`
	LastPostAt *time.Time `json:"last_post_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

func (t *ForumThread) OwnerID() uuid.UUID      { return t.UserID }
func (t *ForumThread) DiscussionID() uuid.UUID { return t.ID }
func (t *ForumThread) Closed() bool            { return t.IsClosed }

// Story is a personal account shared with the community.
type Story struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Body         string    `json:"body" db:"body"`
	ImageURL     string    `json:"image_url" db:"image_url"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Tags         []Tag     `json:"tags"`
	Views        int       `json:"views" db:"views"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	IsLiked      bool      `json:"is_liked"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (s *Story) OwnerID() uuid.UUID      { return s.UserID }
func (s *Story) DiscussionID() uuid.UUID { return s.ID }

// Slugify lowercases title and joins its alphanumeric runs with dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"
	"kidney-story/internal/thread"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DiscussionLoader resolves the discussion a reply tree hangs off, applying
// the read rules of its kind for actor. It returns a NotFound error when the
// discussion is missing or not visible.
type DiscussionLoader func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Discussion, error)

// Discussions binds one discussion kind to its node store and loader.
type Discussions struct {
	Comments repository.CommentRepository
	Load     DiscussionLoader
}

// BlogDiscussions serves blog comments; drafts are only reachable by their
// author and admins.
func BlogDiscussions(blogs repository.BlogRepository, comments repository.CommentRepository) Discussions {
	return Discussions{
		Comments: comments,
		Load: func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Discussion, error) {
			blog, err := blogs.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if !blog.VisibleTo(actor) {
				return nil, repository.ErrBlogNotFound
			}
			return blog, nil
		},
	}
}

// ForumDiscussions serves forum posts. Threads are Closeable.
func ForumDiscussions(forums repository.ForumRepository, posts repository.CommentRepository) Discussions {
	return Discussions{
		Comments: posts,
		Load: func(ctx context.Context, _ domain.Actor, id uuid.UUID) (domain.Discussion, error) {
			return forums.FindThread(ctx, id)
		},
	}
}

func StoryDiscussions(stories repository.StoryRepository, comments repository.CommentRepository) Discussions {
	return Discussions{
		Comments: comments,
		Load: func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Discussion, error) {
			return stories.FindByID(ctx, id, actor.UserID)
		},
	}
}

// CommentService manages the reply trees of blogs, forum threads and
// stories.
type CommentService interface {
	// Create adds a node. A parent, when given, must exist and belong to the
	// same discussion; closed discussions reject new nodes.
	Create(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, discussionID uuid.UUID, content string, parentID *uuid.UUID) (*domain.Comment, error)
	// ListTopLevel returns the parentless nodes in the declared order of the
	// kind.
	ListTopLevel(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, discussionID uuid.UUID) ([]domain.Comment, error)
	// ExpandReplies returns the direct replies of a node; never nil.
	ExpandReplies(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, nodeID uuid.UUID) ([]domain.Comment, error)
	// Thread materializes the whole reply tree of a discussion.
	Thread(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, discussionID uuid.UUID) ([]*thread.Node, error)
	// Get materializes one node with its replies.
	Get(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, nodeID uuid.UUID) (*thread.Node, error)
	// Delete removes the node and its whole reply subtree.
	Delete(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, nodeID uuid.UUID) error
}

type commentService struct {
	kinds    map[domain.DiscussionKind]Discussions
	maxDepth int
	logger   *zap.Logger
}

// NewCommentService binds each discussion kind to its store. maxDepth caps
// tree materialization; non-positive values use thread.DefaultMaxDepth.
func NewCommentService(maxDepth int, logger *zap.Logger, blog, forum, story Discussions) CommentService {
	if maxDepth <= 0 {
		maxDepth = thread.DefaultMaxDepth
	}
	return &commentService{
		kinds: map[domain.DiscussionKind]Discussions{
			domain.KindBlog:  blog,
			domain.KindForum: forum,
			domain.KindStory: story,
		},
		maxDepth: maxDepth,
		logger:   logger,
	}
}

func (s *commentService) binding(kind domain.DiscussionKind) (Discussions, error) {
	d, ok := s.kinds[kind]
	if !ok || d.Comments == nil {
		return Discussions{}, domain.ErrInvalidKind
	}
	return d, nil
}

func (s *commentService) Create(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, discussionID uuid.UUID, content string, parentID *uuid.UUID) (*domain.Comment, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Invalid("content", "is required")
	}

	d, err := s.binding(kind)
	if err != nil {
		return nil, err
	}

	discussion, err := d.Load(ctx, actor, discussionID)
	if err != nil {
		return nil, err
	}
	if c, ok := discussion.(domain.Closeable); ok && c.Closed() {
		return nil, domain.ErrDiscussionClosed
	}

	if parentID != nil {
		parent, err := d.Comments.FindByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.DiscussionID != discussionID {
			return nil, domain.ErrParentMismatch
		}
	}

	now := time.Now()
	comment := &domain.Comment{
		ID:           uuid.New(),
		Kind:         kind,
		DiscussionID: discussionID,
		AuthorID:     actor.UserID,
		Content:      content,
		ParentID:     parentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.Comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) ListTopLevel(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, discussionID uuid.UUID) ([]domain.Comment, error) {
	d, err := s.binding(kind)
	if err != nil {
		return nil, err
	}
	if _, err := d.Load(ctx, actor, discussionID); err != nil {
		return nil, err
	}
	return d.Comments.ListTopLevel(ctx, discussionID)
}

func (s *commentService) ExpandReplies(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, nodeID uuid.UUID) ([]domain.Comment, error) {
	d, node, err := s.visibleNode(ctx, actor, kind, nodeID)
	if err != nil {
		return nil, err
	}
	replies, err := d.Comments.ListReplies(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	if replies == nil {
		replies = []domain.Comment{}
	}
	return replies, nil
}

func (s *commentService) Thread(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, discussionID uuid.UUID) ([]*thread.Node, error) {
	d, err := s.binding(kind)
	if err != nil {
		return nil, err
	}
	if _, err := d.Load(ctx, actor, discussionID); err != nil {
		return nil, err
	}
	tree, err := s.tree(ctx, d, kind, discussionID)
	if err != nil {
		return nil, err
	}
	return tree.Materialize(s.maxDepth), nil
}

func (s *commentService) Get(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, nodeID uuid.UUID) (*thread.Node, error) {
	d, node, err := s.visibleNode(ctx, actor, kind, nodeID)
	if err != nil {
		return nil, err
	}
	tree, err := s.tree(ctx, d, kind, node.DiscussionID)
	if err != nil {
		return nil, err
	}
	n, ok := tree.Subtree(node.ID, s.maxDepth)
	if !ok {
		// Deleted between the two reads.
		return nil, repository.ErrCommentNotFound
	}
	return n, nil
}

func (s *commentService) Delete(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, nodeID uuid.UUID) error {
	d, err := s.binding(kind)
	if err != nil {
		return err
	}
	node, err := d.Comments.FindByID(ctx, nodeID)
	if err != nil {
		return err
	}
	if err := domain.RequireOwnerOrAdmin(actor, node); err != nil {
		return err
	}
	if err := d.Comments.Delete(ctx, nodeID); err != nil {
		return err
	}

	s.logger.Info("Comment deleted",
		zap.String("kind", string(kind)),
		zap.String("comment_id", nodeID.String()),
		zap.String("deleted_by", actor.UserID.String()),
	)
	return nil
}

// visibleNode loads a node and checks that its discussion is readable by
// actor.
func (s *commentService) visibleNode(ctx context.Context, actor domain.Actor, kind domain.DiscussionKind, nodeID uuid.UUID) (Discussions, *domain.Comment, error) {
	d, err := s.binding(kind)
	if err != nil {
		return Discussions{}, nil, err
	}
	node, err := d.Comments.FindByID(ctx, nodeID)
	if err != nil {
		return Discussions{}, nil, err
	}
	if _, err := d.Load(ctx, actor, node.DiscussionID); err != nil {
		return Discussions{}, nil, err
	}
	return d, node, nil
}

func (s *commentService) tree(ctx context.Context, d Discussions, kind domain.DiscussionKind, discussionID uuid.UUID) (*thread.Tree, error) {
	comments, err := d.Comments.ListByDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	tree, err := thread.Build(discussionID, kind.NewestFirst(), comments)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s thread: %w", kind, err)
	}
	return tree, nil
}

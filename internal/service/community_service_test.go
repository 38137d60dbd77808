package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"
	"kidney-story/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockForumRepository struct {
	categories map[uuid.UUID]domain.ForumCategory
	threads    map[uuid.UUID]domain.ForumThread
	reports    map[uuid.UUID]domain.ReportedContent
}

func newMockForumRepository() *mockForumRepository {
	return &mockForumRepository{
		categories: make(map[uuid.UUID]domain.ForumCategory),
		threads:    make(map[uuid.UUID]domain.ForumThread),
		reports:    make(map[uuid.UUID]domain.ReportedContent),
	}
}

func (m *mockForumRepository) CreateCategory(ctx context.Context, c *domain.ForumCategory) error {
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return repository.ErrForumCategoryAlreadyExists
		}
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *mockForumRepository) UpdateCategory(ctx context.Context, c *domain.ForumCategory) error {
	m.categories[c.ID] = *c
	return nil
}

func (m *mockForumRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrForumCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockForumRepository) FindCategory(ctx context.Context, id uuid.UUID) (*domain.ForumCategory, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrForumCategoryNotFound
	}
	return &c, nil
}

func (m *mockForumRepository) ListCategories(ctx context.Context) ([]domain.ForumCategory, error) {
	out := []domain.ForumCategory{}
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockForumRepository) CreateThread(ctx context.Context, t *domain.ForumThread) error {
	m.threads[t.ID] = *t
	return nil
}

func (m *mockForumRepository) UpdateThread(ctx context.Context, t *domain.ForumThread) error {
	m.threads[t.ID] = *t
	return nil
}

func (m *mockForumRepository) DeleteThread(ctx context.Context, id uuid.UUID) error {
	delete(m.threads, id)
	return nil
}

func (m *mockForumRepository) FindThread(ctx context.Context, id uuid.UUID) (*domain.ForumThread, error) {
	t, ok := m.threads[id]
	if !ok {
		return nil, repository.ErrThreadNotFound
	}
	return &t, nil
}

func (m *mockForumRepository) ListThreads(ctx context.Context, f repository.ThreadFilter, page repository.Page) ([]*domain.ForumThread, int, error) {
	out := []*domain.ForumThread{}
	for _, t := range m.threads {
		t := t
		out = append(out, &t)
	}
	return out, len(out), nil
}

func (m *mockForumRepository) toggle(id uuid.UUID, flip func(*domain.ForumThread) bool) (bool, error) {
	t, ok := m.threads[id]
	if !ok {
		return false, repository.ErrThreadNotFound
	}
	state := flip(&t)
	m.threads[id] = t
	return state, nil
}

func (m *mockForumRepository) TogglePinned(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.toggle(id, func(t *domain.ForumThread) bool { t.IsPinned = !t.IsPinned; return t.IsPinned })
}

func (m *mockForumRepository) ToggleClosed(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.toggle(id, func(t *domain.ForumThread) bool { t.IsClosed = !t.IsClosed; return t.IsClosed })
}

func (m *mockForumRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	t, ok := m.threads[id]
	if !ok {
		return 0, repository.ErrThreadNotFound
	}
	t.Views++
	m.threads[id] = t
	return t.Views, nil
}

func (m *mockForumRepository) CreateReport(ctx context.Context, r *domain.ReportedContent) error {
	m.reports[r.ID] = *r
	return nil
}

func (m *mockForumRepository) FindReport(ctx context.Context, id uuid.UUID) (*domain.ReportedContent, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, repository.ErrReportNotFound
	}
	return &r, nil
}

func (m *mockForumRepository) ListReports(ctx context.Context, status string) ([]domain.ReportedContent, error) {
	out := []domain.ReportedContent{}
	for _, r := range m.reports {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockForumRepository) UpdateReportStatus(ctx context.Context, id uuid.UUID, status string) error {
	r, ok := m.reports[id]
	if !ok {
		return repository.ErrReportNotFound
	}
	r.Status = status
	m.reports[id] = r
	return nil
}

func (m *mockForumRepository) DeleteReport(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.reports[id]; !ok {
		return repository.ErrReportNotFound
	}
	delete(m.reports, id)
	return nil
}

func TestForum_ThreadsAndModeration(t *testing.T) {
	forums := newMockForumRepository()
	posts := newMockCommentRepository(domain.KindForum)
	svc := NewForumService(forums, posts, zap.NewNop())
	comments := NewCommentService(0, zap.NewNop(), Discussions{}, ForumDiscussions(forums, posts), Discussions{})
	ctx := context.Background()
	author := patient()

	_, err := svc.CreateCategory(ctx, author, "Diet", "")
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
	category, err := svc.CreateCategory(ctx, admin(), " Diet ", "Food and fluids")
	require.NoError(t, err)
	assert.Equal(t, "Diet", category.Name)

	_, err = svc.CreateThread(ctx, author, ThreadInput{Title: "Potassium", CategoryID: uuid.New()})
	assert.ErrorIs(t, err, repository.ErrForumCategoryNotFound)
	th, err := svc.CreateThread(ctx, author, ThreadInput{Title: "Potassium", CategoryID: category.ID})
	require.NoError(t, err)

	viewed, err := svc.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, viewed.Views)

	_, err = svc.ToggleClose(ctx, author, th.ID)
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
	closed, err := svc.ToggleClose(ctx, admin(), th.ID)
	require.NoError(t, err)
	assert.True(t, closed)

	_, err = comments.Create(ctx, author, domain.KindForum, th.ID, "Any tips?", nil)
	assert.ErrorIs(t, err, domain.ErrDiscussionClosed)

	closed, err = svc.ToggleClose(ctx, admin(), th.ID)
	require.NoError(t, err)
	assert.False(t, closed)
	post, err := comments.Create(ctx, author, domain.KindForum, th.ID, "Any tips?", nil)
	require.NoError(t, err)

	pinned, err := svc.TogglePin(ctx, admin(), th.ID)
	require.NoError(t, err)
	assert.True(t, pinned)

	_, err = svc.UpdateThread(ctx, patient(), th.ID, ThreadInput{Title: "Mine", CategoryID: category.ID})
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	reporter := patient()
	_, err = svc.Report(ctx, reporter, ReportInput{ContentType: "COMMENT", ContentID: post.ID, Reason: domain.ReportReasonSpam})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Report(ctx, reporter, ReportInput{ContentType: domain.ReportContentPost, ContentID: uuid.New(), Reason: domain.ReportReasonSpam})
	assert.ErrorIs(t, err, repository.ErrCommentNotFound)
	_, err = svc.Report(ctx, reporter, ReportInput{ContentType: domain.ReportContentThread, ContentID: th.ID, Reason: "RUDE"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	report, err := svc.Report(ctx, reporter, ReportInput{ContentType: domain.ReportContentPost, ContentID: post.ID, Reason: domain.ReportReasonSpam})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusPending, report.Status)

	_, err = svc.ListReports(ctx, reporter, "")
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
	_, err = svc.ListReports(ctx, admin(), "OPEN")
	assert.ErrorIs(t, err, domain.ErrValidation)

	resolved, err := svc.UpdateReportStatus(ctx, admin(), report.ID, domain.ReportStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, resolved.Status)

	pending, err := svc.ListReports(ctx, admin(), domain.ReportStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, svc.DeleteReport(ctx, admin(), report.ID))
	require.NoError(t, svc.DeleteThread(ctx, author, th.ID))
}

type mockStoryRepository struct {
	stories map[uuid.UUID]domain.Story
	likes   map[uuid.UUID]map[uuid.UUID]bool
	since   time.Time
	limit   int
}

func newMockStoryRepository() *mockStoryRepository {
	return &mockStoryRepository{
		stories: make(map[uuid.UUID]domain.Story),
		likes:   make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *mockStoryRepository) snapshot() func() {
	stories := make(map[uuid.UUID]domain.Story, len(m.stories))
	for k, v := range m.stories {
		stories[k] = v
	}
	return func() { m.stories = stories }
}

func (m *mockStoryRepository) Create(ctx context.Context, s *domain.Story) error {
	m.stories[s.ID] = *s
	return nil
}

func (m *mockStoryRepository) Update(ctx context.Context, s *domain.Story) error {
	m.stories[s.ID] = *s
	return nil
}

func (m *mockStoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.stories, id)
	return nil
}

func (m *mockStoryRepository) FindByID(ctx context.Context, id, viewer uuid.UUID) (*domain.Story, error) {
	s, ok := m.stories[id]
	if !ok {
		return nil, repository.ErrStoryNotFound
	}
	s.LikeCount = len(m.likes[id])
	s.IsLiked = m.likes[id][viewer]
	return &s, nil
}

func (m *mockStoryRepository) List(ctx context.Context, f repository.StoryFilter, page repository.Page) ([]*domain.Story, int, error) {
	out := []*domain.Story{}
	for _, s := range m.stories {
		s := s
		out = append(out, &s)
	}
	return out, len(out), nil
}

func (m *mockStoryRepository) Trending(ctx context.Context, viewer uuid.UUID, since time.Time, limit int) ([]*domain.Story, error) {
	m.since, m.limit = since, limit
	return []*domain.Story{}, nil
}

func (m *mockStoryRepository) ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (bool, int, error) {
	if _, ok := m.stories[storyID]; !ok {
		return false, 0, repository.ErrStoryNotFound
	}
	if m.likes[storyID] == nil {
		m.likes[storyID] = make(map[uuid.UUID]bool)
	}
	if m.likes[storyID][userID] {
		delete(m.likes[storyID], userID)
		return false, len(m.likes[storyID]), nil
	}
	m.likes[storyID][userID] = true
	return true, len(m.likes[storyID]), nil
}

func (m *mockStoryRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	s, ok := m.stories[id]
	if !ok {
		return 0, repository.ErrStoryNotFound
	}
	s.Views++
	m.stories[id] = s
	return s.Views, nil
}

func (m *mockStoryRepository) SetTags(ctx context.Context, storyID uuid.UUID, tagIDs []uuid.UUID) error {
	return nil
}

func TestStories(t *testing.T) {
	stories := newMockStoryRepository()
	tags := newMockTagRepository()
	svc := NewStoryService(newMockTransactor(stories, tags), stories, tags)
	ctx := context.Background()
	author := patient()

	_, err := svc.Create(ctx, domain.Anonymous, StoryInput{Title: "My transplant", Body: "..."})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	_, err = svc.Create(ctx, author, StoryInput{Title: "My transplant"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	story, err := svc.Create(ctx, author, StoryInput{Title: "My transplant", Body: "It went well.", Tags: []string{"Transplant"}})
	require.NoError(t, err)
	require.Len(t, story.Tags, 1)

	fan := patient()
	_, err = svc.ToggleLike(ctx, domain.Anonymous, story.ID)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	like, err := svc.ToggleLike(ctx, fan, story.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: true, LikeCount: 1}, *like)

	seen, err := svc.Get(ctx, fan, story.ID)
	require.NoError(t, err)
	assert.True(t, seen.IsLiked)
	assert.Equal(t, 1, seen.Views)

	like, err = svc.ToggleLike(ctx, fan, story.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: false, LikeCount: 0}, *like)

	_, err = svc.Update(ctx, fan, story.ID, StoryInput{Title: "Hijacked", Body: "x"})
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	assert.ErrorIs(t, svc.Delete(ctx, fan, story.ID), domain.ErrNotOwner)
	assert.NoError(t, svc.Delete(ctx, admin(), story.ID))
}

func TestStories_TrendingWindow(t *testing.T) {
	stories := newMockStoryRepository()
	tags := newMockTagRepository()
	svc := NewStoryService(newMockTransactor(stories, tags), stories, tags).(*storyService)
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Trending(context.Background(), domain.Anonymous)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), stories.since)
	assert.Equal(t, TrendingLimit, stories.limit)
}

type mockCenterRepository struct {
	centers map[uuid.UUID]domain.DialysisCenter
}

func (m *mockCenterRepository) Create(ctx context.Context, c *domain.DialysisCenter) error {
	m.centers[c.ID] = *c
	return nil
}

func (m *mockCenterRepository) Update(ctx context.Context, c *domain.DialysisCenter) error {
	m.centers[c.ID] = *c
	return nil
}

func (m *mockCenterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.centers[id]; !ok {
		return repository.ErrCenterNotFound
	}
	delete(m.centers, id)
	return nil
}

func (m *mockCenterRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DialysisCenter, error) {
	c, ok := m.centers[id]
	if !ok {
		return nil, repository.ErrCenterNotFound
	}
	return &c, nil
}

func (m *mockCenterRepository) List(ctx context.Context, f repository.CenterFilter, page repository.Page) ([]*domain.DialysisCenter, int, error) {
	out := []*domain.DialysisCenter{}
	for _, c := range m.centers {
		c := c
		out = append(out, &c)
	}
	return out, len(out), nil
}

func (m *mockCenterRepository) ExistsByName(ctx context.Context, name, city string) (bool, error) {
	for _, c := range m.centers {
		if c.Name == name && c.City == city {
			return true, nil
		}
	}
	return false, nil
}

func TestCenters(t *testing.T) {
	svc := NewCenterService(&mockCenterRepository{centers: map[uuid.UUID]domain.DialysisCenter{}})
	ctx := context.Background()
	in := CenterInput{
		Name:     "City Dialysis",
		Address:  "1 Main Road",
		City:     "Pune",
		State:    "Maharashtra",
		Contact:  "020 1234",
		Type:     domain.CenterTypeStandalone,
		Latitude: decimal.NewNullDecimal(mustDecimal("18.52")),
	}

	_, err := svc.Create(ctx, patient(), in)
	assert.ErrorIs(t, err, domain.ErrAdminOnly)

	bad := in
	bad.Contact = ""
	_, err = svc.Create(ctx, admin(), bad)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "contact")

	bad = in
	bad.Type = "CLINIC"
	_, err = svc.Create(ctx, admin(), bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad = in
	bad.Longitude = decimal.NewNullDecimal(mustDecimal("181"))
	_, err = svc.Create(ctx, admin(), bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	center, err := svc.Create(ctx, admin(), in)
	require.NoError(t, err)
	got, err := svc.Get(ctx, center.ID)
	require.NoError(t, err)
	assert.Equal(t, "City Dialysis", got.Name)

	_, _, err = svc.List(ctx, repository.CenterFilter{Type: "CLINIC"}, repository.Page{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.NoError(t, svc.Delete(ctx, admin(), center.ID))
	_, err = svc.Get(ctx, center.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFeedback_DailyQuota(t *testing.T) {
	repo := newMockFeedbackRepository()
	svc := NewFeedbackService(repo, 2).(*feedbackService)
	now := time.Now()
	svc.now = func() time.Time { return now }
	ctx := context.Background()
	user := patient()
	in := FeedbackInput{Title: "Dark mode", Description: "Please", Type: domain.FeedbackTypeFeature}

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, user, in)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, user, in)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	// Another user has their own quota.
	_, err = svc.Create(ctx, patient(), in)
	assert.NoError(t, err)

	// The window rolls.
	now = now.Add(25 * time.Hour)
	_, err = svc.Create(ctx, user, in)
	assert.NoError(t, err)
}

func TestFeedback_Visibility(t *testing.T) {
	repo := newMockFeedbackRepository()
	svc := NewFeedbackService(repo, 0)
	ctx := context.Background()
	author := patient()

	_, err := svc.Create(ctx, author, FeedbackInput{Title: "x", Description: "y", Type: "PRAISE"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	f, err := svc.Create(ctx, author, FeedbackInput{Title: "Crash", Description: "On login", Type: domain.FeedbackTypeBug})
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusPending, f.Status)

	_, err = svc.Get(ctx, patient(), f.ID)
	assert.ErrorIs(t, err, repository.ErrFeedbackNotFound)

	others, total, err := svc.List(ctx, patient(), "", "", repository.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, others)

	all, total, err := svc.List(ctx, admin(), "", "", repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, f.ID, all[0].ID)

	_, err = svc.UpdateStatus(ctx, author, f.ID, domain.FeedbackStatusAccepted)
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
	updated, err := svc.UpdateStatus(ctx, admin(), f.ID, domain.FeedbackStatusImplemented)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusImplemented, updated.Status)

	staff := admin()
	resp, err := svc.AddResponse(ctx, staff, f.ID, "Fixed in 1.2")
	require.NoError(t, err)
	_, err = svc.UpdateResponse(ctx, author, resp.ID, "Not fixed")
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	assert.NoError(t, svc.DeleteResponse(ctx, staff, resp.ID))

	assert.ErrorIs(t, svc.Delete(ctx, patient(), f.ID), domain.ErrNotFound)
	assert.NoError(t, svc.Delete(ctx, author, f.ID))
}

type recordingStore struct {
	names []string
}

func (r *recordingStore) PresignUpload(ctx context.Context, objectName string) (*storage.PresignedUpload, error) {
	r.names = append(r.names, objectName)
	return &storage.PresignedUpload{
		ObjectName: objectName,
		UploadURL:  "http://files.test/media/" + objectName + "?X-Amz-Signature=abc",
		PublicURL:  "http://files.test/media/" + objectName,
		ExpiresAt:  time.Now().Add(time.Hour),
	}, nil
}

func TestUploadExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image/png", "png"},
		{"image/JPEG", "jpeg"},
		{"image/svg+xml", "svg+xml"},
		{"text/plain; charset=utf-8", "plain"},
		{"pdf", "pdf"},
	}
	for _, tt := range tests {
		got, err := uploadExtension(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "   ", "image/"} {
		_, err := uploadExtension(bad)
		assert.ErrorIs(t, err, domain.ErrValidation, bad)
	}
}

func TestPresign(t *testing.T) {
	store := &recordingStore{}
	svc := NewUploadService(store)
	ctx := context.Background()

	_, err := svc.Presign(ctx, domain.Anonymous, "image/png")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	first, err := svc.Presign(ctx, patient(), "image/png")
	require.NoError(t, err)
	second, err := svc.Presign(ctx, patient(), "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(first.ObjectName, ".png"))
	_, err = uuid.Parse(strings.TrimSuffix(first.ObjectName, ".png"))
	assert.NoError(t, err)
	assert.NotEqual(t, first.ObjectName, second.ObjectName)
	assert.Len(t, store.names, 2)
}

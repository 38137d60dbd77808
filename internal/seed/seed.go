// Package seed loads the reference data a fresh installation starts with:
// an admin account, tags, shop categories and products, forum categories,
// dialysis centers and a welcome article. Every step looks for existing rows
// first, so Run can be repeated.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"
	"kidney-story/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const WelcomeTitle = "Welcome to Our Kidney Story"

// Admin is the account that owns the seeded content.
type Admin struct {
	Email    string
	Password string
}

// Report counts the rows created by one Run.
type Report struct {
	AdminCreated    bool
	Tags            int
	Categories      int
	Products        int
	ForumCategories int
	Centers         int
	WelcomeArticle  bool
}

type Seeder struct {
	users   repository.UserRepository
	tags    repository.TagRepository
	blogs   repository.BlogRepository
	centers repository.CenterRepository

	catalog   service.CatalogService
	forums    service.ForumService
	centerSvc service.CenterService
	blogSvc   service.BlogService
	logger    *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Seeder {
	tx := repository.NewTransactor(db)
	tags := repository.NewTagRepository(db)
	blogs := repository.NewBlogRepository(db)
	centers := repository.NewCenterRepository(db)
	forums := repository.NewForumRepository(db)

	return &Seeder{
		users:   repository.NewUserRepository(db),
		tags:    tags,
		blogs:   blogs,
		centers: centers,
		catalog: service.NewCatalogService(tx,
			repository.NewProductRepository(db),
			repository.NewCategoryRepository(db),
			tags,
			repository.NewReviewRepository(db),
			repository.NewOrderRepository(db),
		),
		forums:    service.NewForumService(forums, repository.NewCommentRepository(db, domain.KindForum), logger),
		centerSvc: service.NewCenterService(centers),
		blogSvc:   service.NewBlogService(tx, blogs, tags),
		logger:    logger,
	}
}

// Run seeds everything missing. It stops at the first failing step.
func (s *Seeder) Run(ctx context.Context, admin Admin) (*Report, error) {
	report := &Report{}

	user, created, err := s.ensureAdmin(ctx, admin)
	if err != nil {
		return report, fmt.Errorf("seed admin: %w", err)
	}
	report.AdminCreated = created
	actor := domain.Actor{UserID: user.ID, Role: domain.RoleAdmin}

	steps := []struct {
		name string
		run  func(context.Context, domain.Actor, *Report) error
	}{
		{"tags", s.seedTags},
		{"categories", s.seedCategories},
		{"forum categories", s.seedForumCategories},
		{"centers", s.seedCenters},
		{"welcome article", s.seedWelcome},
	}
	for _, step := range steps {
		if err := step.run(ctx, actor, report); err != nil {
			return report, fmt.Errorf("seed %s: %w", step.name, err)
		}
	}

	s.logger.Info("Seed completed",
		zap.Bool("admin_created", report.AdminCreated),
		zap.Int("tags", report.Tags),
		zap.Int("categories", report.Categories),
		zap.Int("products", report.Products),
		zap.Int("forum_categories", report.ForumCategories),
		zap.Int("centers", report.Centers),
		zap.Bool("welcome_article", report.WelcomeArticle),
	)
	return report, nil
}

// ensureAdmin returns the account with admin.Email, creating it with the
// admin role when missing. Self-registration cannot grant that role, so the
// row is written directly.
func (s *Seeder) ensureAdmin(ctx context.Context, admin Admin) (*domain.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" {
		return nil, false, domain.Invalid("email", "is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		if user.Role != domain.RoleAdmin {
			return nil, false, fmt.Errorf("%w: %s exists without the admin role", domain.ErrConflict, email)
		}
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, err
	}

	if len(admin.Password) < service.MinPasswordLength {
		return nil, false, domain.Invalid("password", fmt.Sprintf("must be at least %d characters", service.MinPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), service.BcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user = &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Admin",
		LastName:     "User",
		Role:         domain.RoleAdmin,
		City:         "Mumbai",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	s.logger.Info("Created admin user", zap.String("email", email))
	return user, true, nil
}

func (s *Seeder) seedTags(ctx context.Context, _ domain.Actor, report *Report) error {
	before, err := s.tags.List(ctx, "")
	if err != nil {
		return err
	}
	after, err := s.tags.EnsureAll(ctx, domain.NormalizeTagNames(tagNames))
	if err != nil {
		return err
	}

	known := make(map[uuid.UUID]bool, len(before))
	for _, t := range before {
		known[t.ID] = true
	}
	for _, t := range after {
		if !known[t.ID] {
			report.Tags++
		}
	}
	return nil
}

func (s *Seeder) seedCategories(ctx context.Context, actor domain.Actor, report *Report) error {
	existing, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]uuid.UUID, len(existing))
	for _, c := range existing {
		byName[c.Name] = c.ID
	}

	for _, c := range shopCategories {
		id, ok := byName[c.Name]
		if !ok {
			category, err := s.catalog.CreateCategory(ctx, actor, c.Name, c.Description)
			if err != nil {
				return err
			}
			id = category.ID
			report.Categories++
		}
		if err := s.seedProducts(ctx, actor, id, c.Products, report); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedProducts(ctx context.Context, actor domain.Actor, categoryID uuid.UUID, products []product, report *Report) error {
	for _, p := range products {
		matches, _, err := s.catalog.ListProducts(ctx, repository.ProductFilter{
			CategoryID: &categoryID,
			Search:     p.Title,
		}, repository.Page{Number: 1, Size: repository.MaxPageSize})
		if err != nil {
			return err
		}
		if containsTitle(matches, p.Title) {
			continue
		}

		if _, err := s.catalog.CreateProduct(ctx, actor, service.ProductInput{
			Title:       p.Title,
			Description: p.Description,
			CategoryID:  categoryID,
			Price:       decimal.RequireFromString(p.Price),
			InStock:     true,
			Tags:        p.Tags,
		}); err != nil {
			return err
		}
		report.Products++
	}
	return nil
}

func containsTitle(products []*domain.Product, title string) bool {
	for _, p := range products {
		if p.Title == title {
			return true
		}
	}
	return false
}

func (s *Seeder) seedForumCategories(ctx context.Context, actor domain.Actor, report *Report) error {
	existing, err := s.forums.ListCategories(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.Name] = true
	}

	for _, c := range forumCategories {
		if seen[c.Name] {
			continue
		}
		if _, err := s.forums.CreateCategory(ctx, actor, c.Name, c.Description); err != nil {
			return err
		}
		report.ForumCategories++
	}
	return nil
}

func (s *Seeder) seedCenters(ctx context.Context, actor domain.Actor, report *Report) error {
	for _, c := range centers {
		exists, err := s.centers.ExistsByName(ctx, c.Name, c.City)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.centerSvc.Create(ctx, actor, c); err != nil {
			return err
		}
		report.Centers++
	}
	return nil
}

func (s *Seeder) seedWelcome(ctx context.Context, actor domain.Actor, report *Report) error {
	exists, err := s.blogs.SlugExists(ctx, domain.Slugify(WelcomeTitle))
	if err != nil || exists {
		return err
	}
	if _, err := s.blogSvc.Create(ctx, actor, service.BlogInput{
		Title:     WelcomeTitle,
		Content:   welcomeContent,
		Published: true,
		Tags:      []string{"community", "support"},
	}); err != nil {
		return err
	}
	report.WelcomeArticle = true
	return nil
}

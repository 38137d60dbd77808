package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// snapshotter is implemented by the in-memory repositories so mockTransactor
// can roll them back.
type snapshotter interface {
	snapshot() (restore func())
}

// mockTransactor emulates commit/rollback over in-memory repositories.
type mockTransactor struct {
	repos []snapshotter
}

func newMockTransactor(repos ...snapshotter) *mockTransactor {
	return &mockTransactor{repos: repos}
}

func (m *mockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	restores := make([]func(), 0, len(m.repos))
	for _, r := range m.repos {
		restores = append(restores, r.snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// Users

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	for email, u := range m.users {
		if u.ID == user.ID {
			delete(m.users, email)
			m.users[user.Email] = user
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, f repository.UserFilter, page repository.Page) ([]*domain.User, int, error) {
	users := []*domain.User{}
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		users = append(users, u)
	}
	return users, len(users), nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

// Catalog

type mockProductRepository struct {
	products map[uuid.UUID]domain.Product
	tags     map[uuid.UUID][]uuid.UUID
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[uuid.UUID]domain.Product),
		tags:     make(map[uuid.UUID][]uuid.UUID),
	}
}

// add stores a product directly, bypassing the service.
func (m *mockProductRepository) add(title, price string, inStock bool) domain.Product {
	now := time.Now()
	p := domain.Product{
		ID:        uuid.New(),
		Title:     title,
		Price:     mustDecimal(price),
		InStock:   inStock,
		Tags:      []domain.Tag{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepository) snapshot() func() {
	products := make(map[uuid.UUID]domain.Product, len(m.products))
	for k, v := range m.products {
		products[k] = v
	}
	tags := make(map[uuid.UUID][]uuid.UUID, len(m.tags))
	for k, v := range m.tags {
		tags[k] = append([]uuid.UUID(nil), v...)
	}
	return func() { m.products, m.tags = products, tags }
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = *product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = *product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockProductRepository) List(ctx context.Context, f repository.ProductFilter, page repository.Page) ([]*domain.Product, int, error) {
	out := []*domain.Product{}
	for _, p := range m.products {
		p := p
		out = append(out, &p)
	}
	return out, len(out), nil
}

func (m *mockProductRepository) SetTags(ctx context.Context, productID uuid.UUID, tagIDs []uuid.UUID) error {
	m.tags[productID] = append([]uuid.UUID(nil), tagIDs...)
	return nil
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]domain.Category
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[uuid.UUID]domain.Category)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	if _, ok := m.categories[c.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	out := []*domain.Category{}
	for _, c := range m.categories {
		c := c
		out = append(out, &c)
	}
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &c, nil
}

type mockTagRepository struct {
	byName map[string]domain.Tag
}

func newMockTagRepository() *mockTagRepository {
	return &mockTagRepository{byName: make(map[string]domain.Tag)}
}

func (m *mockTagRepository) snapshot() func() {
	byName := make(map[string]domain.Tag, len(m.byName))
	for k, v := range m.byName {
		byName[k] = v
	}
	return func() { m.byName = byName }
}

func (m *mockTagRepository) GetOrCreate(ctx context.Context, name string) (*domain.Tag, error) {
	t, ok := m.byName[name]
	if !ok {
		t = domain.Tag{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
		m.byName[name] = t
	}
	return &t, nil
}

func (m *mockTagRepository) EnsureAll(ctx context.Context, names []string) ([]domain.Tag, error) {
	tags := make([]domain.Tag, 0, len(names))
	for _, n := range names {
		t, _ := m.GetOrCreate(ctx, n)
		tags = append(tags, *t)
	}
	return tags, nil
}

func (m *mockTagRepository) List(ctx context.Context, search string) ([]domain.Tag, error) {
	tags := []domain.Tag{}
	for _, t := range m.byName {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

type mockReviewRepository struct {
	reviews map[uuid.UUID]domain.Review
}

func newMockReviewRepository() *mockReviewRepository {
	return &mockReviewRepository{reviews: make(map[uuid.UUID]domain.Review)}
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	for _, r := range m.reviews {
		if r.ProductID == review.ProductID && r.UserID == review.UserID {
			return domain.ErrAlreadyReviewed
		}
	}
	m.reviews[review.ID] = *review
	return nil
}

func (m *mockReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	if _, ok := m.reviews[review.ID]; !ok {
		return repository.ErrReviewNotFound
	}
	m.reviews[review.ID] = *review
	return nil
}

func (m *mockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.reviews[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *mockReviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	return &r, nil
}

func (m *mockReviewRepository) List(ctx context.Context, f repository.ReviewFilter) ([]domain.Review, error) {
	out := []domain.Review{}
	for _, r := range m.reviews {
		if f.ProductID != nil && r.ProductID != *f.ProductID {
			continue
		}
		if f.UserID != nil && r.UserID != *f.UserID {
			continue
		}
		if f.Rating != 0 && r.Rating != f.Rating {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockReviewRepository) Exists(ctx context.Context, productID, userID uuid.UUID) (bool, error) {
	for _, r := range m.reviews {
		if r.ProductID == productID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Cart, orders, wishlist

type mockCartRepository struct {
	products *mockProductRepository
	carts    map[uuid.UUID]domain.Cart // by user
	items    map[uuid.UUID]domain.CartItem
	clearErr error
}

func newMockCartRepository(products *mockProductRepository) *mockCartRepository {
	return &mockCartRepository{
		products: products,
		carts:    make(map[uuid.UUID]domain.Cart),
		items:    make(map[uuid.UUID]domain.CartItem),
	}
}

func (m *mockCartRepository) snapshot() func() {
	carts := make(map[uuid.UUID]domain.Cart, len(m.carts))
	for k, v := range m.carts {
		carts[k] = v
	}
	items := make(map[uuid.UUID]domain.CartItem, len(m.items))
	for k, v := range m.items {
		items[k] = v
	}
	return func() { m.carts, m.items = carts, items }
}

func (m *mockCartRepository) load(cart domain.Cart) *domain.Cart {
	cart.Items = []domain.CartItem{}
	for _, item := range m.items {
		if item.CartID != cart.ID {
			continue
		}
		item.Product = m.products.products[item.ProductID]
		cart.Items = append(cart.Items, item)
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].CreatedAt.Before(cart.Items[j].CreatedAt) })
	return &cart
}

func (m *mockCartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, ok := m.carts[userID]
	if !ok {
		now := time.Now()
		cart = domain.Cart{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		m.carts[userID] = cart
	}
	return m.load(cart), nil
}

func (m *mockCartRepository) FindByUserForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return m.load(cart), nil
}

func (m *mockCartRepository) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if _, ok := m.products.products[productID]; !ok {
		return nil, repository.ErrProductNotFound
	}
	for id, item := range m.items {
		if item.CartID == cartID && item.ProductID == productID {
			item.Quantity += quantity
			m.items[id] = item
			return &item, nil
		}
	}
	now := time.Now()
	item := domain.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now.Add(time.Duration(len(m.items)) * time.Microsecond),
		UpdatedAt: now,
	}
	m.items[item.ID] = item
	return &item, nil
}

func (m *mockCartRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, repository.ErrCartItemNotFound
	}
	item.Product = m.products.products[item.ProductID]
	return &item, nil
}

func (m *mockCartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	item, ok := m.items[itemID]
	if !ok {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	m.items[itemID] = item
	return nil
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	if _, ok := m.items[itemID]; !ok {
		return repository.ErrCartItemNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepository) RemoveItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	if m.clearErr != nil {
		return 0, m.clearErr
	}
	var n int64
	for _, id := range itemIDs {
		if item, ok := m.items[id]; ok && item.CartID == cartID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *mockCartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	var n int64
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
			n++
		}
	}
	if m.clearErr != nil {
		return 0, m.clearErr
	}
	return n, nil
}

type mockOrderRepository struct {
	orders map[uuid.UUID]domain.Order
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]domain.Order)}
}

func copyOrder(o domain.Order) *domain.Order {
	o.Items = append([]domain.OrderItem{}, o.Items...)
	return &o
}

func (m *mockOrderRepository) snapshot() func() {
	orders := make(map[uuid.UUID]domain.Order, len(m.orders))
	for k, v := range m.orders {
		orders[k] = v
	}
	return func() { m.orders = orders }
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.orders[order.ID] = *copyOrder(*order)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m *mockOrderRepository) List(ctx context.Context, f repository.OrderFilter, page repository.Page) ([]*domain.Order, int, error) {
	out := []*domain.Order{}
	for _, o := range m.orders {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Status = status
	m.orders[id] = o
	return nil
}

func (m *mockOrderRepository) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	for _, o := range m.orders {
		if o.UserID != userID {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

type mockWishlistRepository struct {
	products *mockProductRepository
	lists    map[uuid.UUID]*domain.Wishlist // by user
	entries  map[uuid.UUID][]uuid.UUID      // wishlist -> products
}

func newMockWishlistRepository(products *mockProductRepository) *mockWishlistRepository {
	return &mockWishlistRepository{
		products: products,
		lists:    make(map[uuid.UUID]*domain.Wishlist),
		entries:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockWishlistRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wishlist, error) {
	w, ok := m.lists[userID]
	if !ok {
		w = &domain.Wishlist{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
		m.lists[userID] = w
	}
	out := *w
	out.Products = []domain.Product{}
	for _, id := range m.entries[w.ID] {
		out.Products = append(out.Products, m.products.products[id])
	}
	return &out, nil
}

func (m *mockWishlistRepository) AddProduct(ctx context.Context, wishlistID, productID uuid.UUID) error {
	for _, id := range m.entries[wishlistID] {
		if id == productID {
			return domain.ErrAlreadyInWishlist
		}
	}
	m.entries[wishlistID] = append(m.entries[wishlistID], productID)
	return nil
}

func (m *mockWishlistRepository) RemoveProduct(ctx context.Context, wishlistID, productID uuid.UUID) error {
	ids := m.entries[wishlistID]
	for i, id := range ids {
		if id == productID {
			m.entries[wishlistID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotInWishlist
}

// Discussions

type mockCommentRepository struct {
	kind  domain.DiscussionKind
	nodes map[uuid.UUID]domain.Comment
}

func newMockCommentRepository(kind domain.DiscussionKind) *mockCommentRepository {
	return &mockCommentRepository{kind: kind, nodes: make(map[uuid.UUID]domain.Comment)}
}

func (m *mockCommentRepository) Kind() domain.DiscussionKind { return m.kind }

func (m *mockCommentRepository) Create(ctx context.Context, c *domain.Comment) error {
	if c.ParentID != nil {
		parent, ok := m.nodes[*c.ParentID]
		if !ok || parent.DiscussionID != c.DiscussionID {
			return domain.ErrParentMismatch
		}
	}
	m.nodes[c.ID] = *c
	return nil
}

func (m *mockCommentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	c, ok := m.nodes[id]
	if !ok {
		return nil, repository.ErrCommentNotFound
	}
	return &c, nil
}

func (m *mockCommentRepository) filter(keep func(domain.Comment) bool) []domain.Comment {
	out := []domain.Comment{}
	for _, c := range m.nodes {
		if keep(c) {
			out = append(out, c)
		}
	}
	newest := m.kind.NewestFirst()
	sort.Slice(out, func(i, j int) bool {
		if newest {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *mockCommentRepository) ListByDiscussion(ctx context.Context, discussionID uuid.UUID) ([]domain.Comment, error) {
	return m.filter(func(c domain.Comment) bool { return c.DiscussionID == discussionID }), nil
}

func (m *mockCommentRepository) ListTopLevel(ctx context.Context, discussionID uuid.UUID) ([]domain.Comment, error) {
	return m.filter(func(c domain.Comment) bool { return c.DiscussionID == discussionID && c.ParentID == nil }), nil
}

func (m *mockCommentRepository) ListReplies(ctx context.Context, parentID uuid.UUID) ([]domain.Comment, error) {
	replies := m.filter(func(c domain.Comment) bool { return c.ParentID != nil && *c.ParentID == parentID })
	if len(replies) == 0 {
		// Mirrors a driver that yields nil for an empty result.
		return nil, nil
	}
	return replies, nil
}

func (m *mockCommentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.nodes[id]; !ok {
		return repository.ErrCommentNotFound
	}
	stack := []uuid.UUID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		delete(m.nodes, cur)
		for cid, c := range m.nodes {
			if c.ParentID != nil && *c.ParentID == cur {
				stack = append(stack, cid)
			}
		}
	}
	return nil
}

func (m *mockCommentRepository) CountByDiscussion(ctx context.Context, discussionID uuid.UUID) (int, error) {
	comments, _ := m.ListByDiscussion(ctx, discussionID)
	return len(comments), nil
}

type mockBlogRepository struct {
	blogs map[uuid.UUID]domain.Blog
	tags  map[uuid.UUID][]uuid.UUID
}

func newMockBlogRepository() *mockBlogRepository {
	return &mockBlogRepository{
		blogs: make(map[uuid.UUID]domain.Blog),
		tags:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockBlogRepository) snapshot() func() {
	blogs := make(map[uuid.UUID]domain.Blog, len(m.blogs))
	for k, v := range m.blogs {
		blogs[k] = v
	}
	return func() { m.blogs = blogs }
}

func (m *mockBlogRepository) slugTaken(slug string, except uuid.UUID) bool {
	for _, b := range m.blogs {
		if b.Slug == slug && b.ID != except {
			return true
		}
	}
	return false
}

func (m *mockBlogRepository) Create(ctx context.Context, blog *domain.Blog) error {
	if m.slugTaken(blog.Slug, blog.ID) {
		return repository.ErrSlugTaken
	}
	m.blogs[blog.ID] = *blog
	return nil
}

func (m *mockBlogRepository) Update(ctx context.Context, blog *domain.Blog) error {
	if _, ok := m.blogs[blog.ID]; !ok {
		return repository.ErrBlogNotFound
	}
	if m.slugTaken(blog.Slug, blog.ID) {
		return repository.ErrSlugTaken
	}
	m.blogs[blog.ID] = *blog
	return nil
}

func (m *mockBlogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.blogs[id]; !ok {
		return repository.ErrBlogNotFound
	}
	delete(m.blogs, id)
	return nil
}

func (m *mockBlogRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Blog, error) {
	b, ok := m.blogs[id]
	if !ok {
		return nil, repository.ErrBlogNotFound
	}
	return &b, nil
}

func (m *mockBlogRepository) FindBySlug(ctx context.Context, slug string) (*domain.Blog, error) {
	for _, b := range m.blogs {
		if b.Slug == slug {
			b := b
			return &b, nil
		}
	}
	return nil, repository.ErrBlogNotFound
}

func (m *mockBlogRepository) List(ctx context.Context, f repository.BlogFilter, page repository.Page) ([]*domain.Blog, int, error) {
	out := []*domain.Blog{}
	for _, b := range m.blogs {
		b := b
		if b.VisibleTo(f.Viewer) {
			out = append(out, &b)
		}
	}
	return out, len(out), nil
}

func (m *mockBlogRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return m.slugTaken(slug, uuid.Nil), nil
}

func (m *mockBlogRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	b, ok := m.blogs[id]
	if !ok {
		return 0, repository.ErrBlogNotFound
	}
	b.Views++
	m.blogs[id] = b
	return b.Views, nil
}

func (m *mockBlogRepository) SetTags(ctx context.Context, blogID uuid.UUID, tagIDs []uuid.UUID) error {
	m.tags[blogID] = tagIDs
	return nil
}

// Feedback

type mockFeedbackRepository struct {
	mu        sync.Mutex
	items     map[uuid.UUID]domain.Feedback
	responses map[uuid.UUID]domain.FeedbackResponse
}

func newMockFeedbackRepository() *mockFeedbackRepository {
	return &mockFeedbackRepository{
		items:     make(map[uuid.UUID]domain.Feedback),
		responses: make(map[uuid.UUID]domain.FeedbackResponse),
	}
}

func (m *mockFeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[f.ID] = *f
	return nil
}

func (m *mockFeedbackRepository) Update(ctx context.Context, f *domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[f.ID]; !ok {
		return repository.ErrFeedbackNotFound
	}
	m.items[f.ID] = *f
	return nil
}

func (m *mockFeedbackRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrFeedbackNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockFeedbackRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.items[id]
	if !ok {
		return nil, repository.ErrFeedbackNotFound
	}
	return &f, nil
}

func (m *mockFeedbackRepository) List(ctx context.Context, filter repository.FeedbackFilter, page repository.Page) ([]*domain.Feedback, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Feedback{}
	for _, f := range m.items {
		f := f
		if filter.UserID != nil && f.UserID != *filter.UserID {
			continue
		}
		if filter.Type != "" && f.Type != filter.Type {
			continue
		}
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		out = append(out, &f)
	}
	return out, len(out), nil
}

func (m *mockFeedbackRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.items[id]
	if !ok {
		return repository.ErrFeedbackNotFound
	}
	f.Status = status
	m.items[id] = f
	return nil
}

func (m *mockFeedbackRepository) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, f := range m.items {
		if f.UserID == userID && !f.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockFeedbackRepository) CreateResponse(ctx context.Context, r *domain.FeedbackResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[r.FeedbackID]; !ok {
		return repository.ErrFeedbackNotFound
	}
	m.responses[r.ID] = *r
	return nil
}

func (m *mockFeedbackRepository) FindResponse(ctx context.Context, id uuid.UUID) (*domain.FeedbackResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responses[id]
	if !ok {
		return nil, repository.ErrResponseNotFound
	}
	return &r, nil
}

func (m *mockFeedbackRepository) UpdateResponse(ctx context.Context, id uuid.UUID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responses[id]
	if !ok {
		return repository.ErrResponseNotFound
	}
	r.Content = content
	m.responses[id] = r
	return nil
}

func (m *mockFeedbackRepository) DeleteResponse(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.responses[id]; !ok {
		return repository.ErrResponseNotFound
	}
	delete(m.responses, id)
	return nil
}

// Helpers

func admin() domain.Actor {
	return domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}
}

func patient() domain.Actor {
	return domain.Actor{UserID: uuid.New(), Role: domain.RolePatient}
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

//go:build integration

package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"kidney-story/internal/database"
	"kidney-story/internal/domain"
	"kidney-story/internal/repository"
	"kidney-story/migrations"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15",
		postgres.WithDatabase("orders"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db, migrations.FS, ".", zap.NewNop()))
	return db
}

func TestOrderService_ConcurrentCheckoutsPlaceOneOrder(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	now := time.Now()

	user := &domain.User{
		ID:           uuid.New(),
		Email:        "checkout@example.com",
		PasswordHash: "hash",
		FirstName:    "Asha",
		LastName:     "Rao",
		Role:         domain.RolePatient,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repository.NewUserRepository(db).Create(ctx, user))

	category := &domain.Category{ID: uuid.New(), Name: "Monitoring", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repository.NewCategoryRepository(db).Create(ctx, category))
	product := &domain.Product{
		ID:         uuid.New(),
		Title:      "Blood pressure monitor",
		CategoryID: category.ID,
		Price:      decimal.RequireFromString("45.00"),
		InStock:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	products := repository.NewProductRepository(db)
	require.NoError(t, products.Create(ctx, product))

	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	cartSvc := NewCartService(carts, products)
	orderSvc := NewOrderService(repository.NewTransactor(db), carts, orders, zap.NewNop())

	_, err := cartSvc.AddItem(ctx, user.ID, product.ID, 2)
	require.NoError(t, err)

	const attempts = 4
	errs := make([]error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = orderSvc.Checkout(ctx, user.ID, domain.CheckoutDetails{
				ShippingAddress: "12 Lake Road",
				ContactNumber:   "555-0100",
			})
		}(i)
	}
	close(start)
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrCartEmpty)
	}
	assert.Equal(t, 1, placed)

	list, total, err := orders.List(ctx, repository.OrderFilter{UserID: &user.ID}, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.True(t, list[0].TotalAmount.Equal(decimal.RequireFromString("90.00")))

	cart, err := cartSvc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

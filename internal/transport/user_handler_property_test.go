package transport

import (
	"context"
	"net/http"
	"testing"

	"kidney-story/internal/domain"
	"kidney-story/internal/service"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestUserService() (service.UserService, *mockUserRepository) {
	users := newMockUserRepository()
	svc := service.NewUserService(users, newMockRefreshTokenRepository(), service.TokenConfig{Secret: testSecret})
	return svc, users
}

func userRouter(svc service.UserService) http.Handler {
	return routeTo(NewUserHandler(svc, zap.NewNop()).RegisterRoutes)
}

// Feature: community-backend, Property 18: Invalid registration data is rejected
func TestProperty_InvalidRegistrationDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("registration with invalid data returns validation errors", prop.ForAll(
		func(invalidCase int) bool {
			svc, _ := newTestUserService()
			router := userRouter(svc)

			var reqBody RegisterRequest
			switch invalidCase % 5 {
			case 0:
				reqBody = RegisterRequest{Password: "ValidPass123", FirstName: "Asha", LastName: "Rao"}
			case 1:
				reqBody = RegisterRequest{Email: "not-an-email", Password: "ValidPass123", FirstName: "Asha", LastName: "Rao"}
			case 2:
				reqBody = RegisterRequest{Email: "asha@example.com", Password: "short", FirstName: "Asha", LastName: "Rao"}
			case 3:
				reqBody = RegisterRequest{Email: "asha@example.com", Password: "ValidPass123"}
			case 4:
				// admins are never self-registered
				reqBody = RegisterRequest{Email: "asha@example.com", Password: "ValidPass123", FirstName: "Asha", LastName: "Rao", Role: "admin"}
			}

			w := do(t, router, http.MethodPost, "/api/auth/register", "", reqBody)
			if w.Code != http.StatusBadRequest {
				t.Logf("FAIL: case %d: expected 400, got %d", invalidCase%5, w.Code)
				return false
			}

			response := decodeBody[map[string]any](t, w)
			if _, exists := response["error"]; !exists {
				t.Logf("FAIL: Response missing 'error' field")
				return false
			}
			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: community-backend, Property 19: Successful registration returns profile data
func TestProperty_SuccessfulRegistrationReturnsProfileData(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("successful registration returns the profile with a patient default role", prop.ForAll(
		func(email, password, firstName, lastName string) bool {
			svc, _ := newTestUserService()
			router := userRouter(svc)

			w := do(t, router, http.MethodPost, "/api/auth/register", "", RegisterRequest{
				Email:     email,
				Password:  password,
				FirstName: firstName,
				LastName:  lastName,
			})
			if w.Code != http.StatusCreated {
				t.Logf("FAIL: Expected 201 status code, got %d: %s", w.Code, w.Body.String())
				return false
			}

			profile := decodeBody[UserProfile](t, w)
			if _, err := uuid.Parse(profile.ID); err != nil {
				t.Logf("FAIL: Profile ID is not a valid UUID: %v", err)
				return false
			}
			return profile.Email == email &&
				profile.FirstName == firstName &&
				profile.LastName == lastName &&
				profile.Role == domain.RolePatient
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: community-backend, Property 20: Valid login returns both tokens
func TestProperty_ValidLoginReturnsBothTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid login returns usable access and refresh tokens", prop.ForAll(
		func(email, password, firstName, lastName string) bool {
			svc, _ := newTestUserService()
			router := userRouter(svc)

			if _, err := svc.Register(context.Background(), service.RegisterInput{
				Email: email, Password: password, FirstName: firstName, LastName: lastName,
			}); err != nil {
				t.Logf("FAIL: register: %v", err)
				return false
			}

			w := do(t, router, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
			if w.Code != http.StatusOK {
				t.Logf("FAIL: Expected 200 status code, got %d", w.Code)
				return false
			}
			login := decodeBody[LoginResponse](t, w)
			if login.AccessToken == "" || login.RefreshToken == "" {
				t.Logf("FAIL: missing token in %+v", login)
				return false
			}

			// the access token opens the protected profile endpoint
			w = do(t, router, http.MethodGet, "/api/auth/profile", "Bearer "+login.AccessToken, nil)
			if w.Code != http.StatusOK {
				t.Logf("FAIL: profile with access token returned %d", w.Code)
				return false
			}

			w = do(t, router, http.MethodPost, "/api/auth/token/refresh", "", RefreshRequest{RefreshToken: login.RefreshToken})
			if w.Code != http.StatusOK {
				t.Logf("FAIL: refresh returned %d", w.Code)
				return false
			}
			return decodeBody[RefreshResponse](t, w).AccessToken != ""
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserHandler_AuthFailures(t *testing.T) {
	svc, _ := newTestUserService()
	router := userRouter(svc)

	_, err := svc.Register(context.Background(), service.RegisterInput{
		Email: "meera@example.com", Password: "CorrectHorse1", FirstName: "Meera", LastName: "Iyer",
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		body   any
		want   int
	}{
		{"wrong password", http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "meera@example.com", Password: "nope-nope"}, http.StatusUnauthorized},
		{"unknown email", http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ghost@example.com", Password: "CorrectHorse1"}, http.StatusUnauthorized},
		{"bad refresh token", http.MethodPost, "/api/auth/token/refresh", "", RefreshRequest{RefreshToken: "garbage"}, http.StatusUnauthorized},
		{"profile without token", http.MethodGet, "/api/auth/profile", "", nil, http.StatusUnauthorized},
		{"duplicate email", http.MethodPost, "/api/auth/register", "", RegisterRequest{
			Email: "meera@example.com", Password: "CorrectHorse1", FirstName: "M", LastName: "I",
		}, http.StatusConflict},
		{"malformed body", http.MethodPost, "/api/auth/login", "", `{"email":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.auth, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestUserHandler_AdminRoutes(t *testing.T) {
	svc, users := newTestUserService()
	router := userRouter(svc)

	patient, err := svc.Register(context.Background(), service.RegisterInput{
		Email: "ravi@example.com", Password: "CorrectHorse1", FirstName: "Ravi", LastName: "Kumar",
	})
	require.NoError(t, err)
	admin := &domain.User{ID: uuid.New(), Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true}
	require.NoError(t, users.Create(context.Background(), admin))

	t.Run("patients are forbidden", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/auth/admin/users", bearer(t, patient.ID, domain.RolePatient), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin lists users", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/auth/admin/users?role=patient", bearer(t, admin.ID, domain.RoleAdmin), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		page := decodeBody[Page[map[string]any]](t, w)
		assert.Equal(t, 1, page.Count)
	})

	t.Run("admin bans a user", func(t *testing.T) {
		w := do(t, router, http.MethodPatch, "/api/auth/admin/users/"+patient.ID.String(),
			bearer(t, admin.ID, domain.RoleAdmin), map[string]any{"is_banned": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		stored, err := users.FindByID(context.Background(), patient.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsBanned)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		w := do(t, router, http.MethodPatch, "/api/auth/admin/users/"+patient.ID.String(),
			bearer(t, admin.ID, domain.RoleAdmin), map[string]any{"role": "superuser"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUserHandler_PublicProfileHidesEmail(t *testing.T) {
	svc, _ := newTestUserService()
	router := userRouter(svc)

	user, err := svc.Register(context.Background(), service.RegisterInput{
		Email: "lata@example.com", Password: "CorrectHorse1", FirstName: "Lata", LastName: "Shah",
	})
	require.NoError(t, err)

	w := do(t, router, http.MethodGet, "/api/auth/users/"+user.ID.String(), bearer(t, uuid.New(), domain.RoleCaregiver), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.NotContains(t, body, "email")
	assert.Equal(t, "Lata", body["first_name"])
}

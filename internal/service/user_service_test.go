package service

import (
	"context"
	"testing"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService() (UserService, *mockUserRepository, *mockRefreshTokenRepository) {
	users := newMockUserRepository()
	tokens := newMockRefreshTokenRepository()
	return NewUserService(users, tokens, TokenConfig{Secret: "test-secret-key"}), users, tokens
}

// bcrypt makes each case slow, so the property runs fewer of them.
func bcryptParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	return parameters
}

// Feature: community-backend, Property 9: Registration stores bcrypt hashes
func TestProperty_RegistrationCreatesHashedPasswords(t *testing.T) {
	properties := gopter.NewProperties(bcryptParameters())

	properties.Property("passwords are hashed with bcrypt and never stored as plaintext", prop.ForAll(
		func(email, password, firstName, role string) bool {
			svc, users, _ := newTestUserService()
			ctx := context.Background()

			user, err := svc.Register(ctx, RegisterInput{Email: email, Password: password, FirstName: firstName, Role: role})
			if err != nil {
				t.Logf("FAIL: registration failed: %v", err)
				return false
			}
			if user.PasswordHash == password {
				return false
			}
			if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
				return false
			}

			stored, err := users.FindByEmail(ctx, email)
			if err != nil {
				return false
			}
			return stored.PasswordHash == user.PasswordHash && stored.Role == role && stored.IsActive
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.OneConstOf(domain.RolePatient, domain.RoleCaregiver),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: community-backend, Property 10: Access tokens carry the caller identity
func TestProperty_JWTTokensContainRequiredClaims(t *testing.T) {
	properties := gopter.NewProperties(bcryptParameters())

	properties.Property("access tokens contain user ID and role claims", prop.ForAll(
		func(email, password, role string) bool {
			svc, users, _ := newTestUserService()
			ctx := context.Background()

			user, err := svc.Register(ctx, RegisterInput{Email: email, Password: password})
			if err != nil {
				return false
			}
			user.Role = role
			users.users[email] = user

			accessToken, _, _, err := svc.Login(ctx, email, password)
			if err != nil {
				t.Logf("FAIL: login failed: %v", err)
				return false
			}
			claims, err := svc.ValidateToken(accessToken)
			if err != nil {
				return false
			}
			return claims.UserID == user.ID &&
				claims.Role == role &&
				claims.Actor() == domain.Actor{UserID: user.ID, Role: role} &&
				claims.ExpiresAt != nil &&
				claims.IssuedAt != nil
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.OneConstOf(domain.RolePatient, domain.RoleCaregiver, domain.RoleAdmin),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: community-backend, Property 11: Refresh then logout
func TestProperty_RefreshAndLogout(t *testing.T) {
	properties := gopter.NewProperties(bcryptParameters())

	properties.Property("a refresh token works until logout revokes it", prop.ForAll(
		func(email, password string) bool {
			svc, _, tokens := newTestUserService()
			ctx := context.Background()

			if _, err := svc.Register(ctx, RegisterInput{Email: email, Password: password}); err != nil {
				return false
			}
			_, refreshToken, user, err := svc.Login(ctx, email, password)
			if err != nil {
				return false
			}

			access, err := svc.RefreshToken(ctx, refreshToken)
			if err != nil {
				return false
			}
			claims, err := svc.ValidateToken(access)
			if err != nil || claims.UserID != user.ID || time.Now().After(claims.ExpiresAt.Time) {
				return false
			}

			if err := svc.Logout(ctx, refreshToken); err != nil {
				return false
			}
			if _, err := svc.RefreshToken(ctx, refreshToken); err != ErrInvalidToken {
				t.Logf("FAIL: expected ErrInvalidToken, got %v", err)
				return false
			}
			stored, err := tokens.FindByToken(ctx, refreshToken)
			return err == repository.ErrRefreshTokenRevoked && stored == nil
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", RegisterInput{Password: "password123"}},
		{"short password", RegisterInput{Email: "a@b.org", Password: "short"}},
		{"admin self-registration", RegisterInput{Email: "a@b.org", Password: "password123", Role: domain.RoleAdmin}},
		{"unknown role", RegisterInput{Email: "a@b.org", Password: "password123", Role: "doctor"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "Ada@Example.org", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "ada@example.org", Password: "password123"})
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)
}

func TestLogin_BannedAndInactive(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "ban@example.org", Password: "password123"})
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "ban@example.org", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	users.users[user.Email].IsBanned = true
	_, _, _, err = svc.Login(ctx, "ban@example.org", "password123")
	assert.ErrorIs(t, err, domain.ErrBanned)

	users.users[user.Email].IsBanned = false
	users.users[user.Email].IsActive = false
	_, _, _, err = svc.Login(ctx, "ban@example.org", "password123")
	assert.ErrorIs(t, err, domain.ErrPermission)
}

func TestChangePassword_RevokesRefreshTokens(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "pw@example.org", Password: "password123"})
	require.NoError(t, err)
	_, refresh, _, err := svc.Login(ctx, "pw@example.org", "password123")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "not-it-at-all", "newpassword1"), domain.ErrValidation)
	require.NoError(t, svc.ChangePassword(ctx, user.ID, "password123", "newpassword1"))

	_, err = svc.RefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = svc.Login(ctx, "pw@example.org", "newpassword1")
	assert.NoError(t, err)
}

func TestUpdateProfile_LeavesNilFieldsAlone(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "p@example.org", Password: "password123", FirstName: "Ada", City: "Pune"})
	require.NoError(t, err)

	city := "  Mumbai "
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", updated.City)
	assert.Equal(t, "Ada", updated.FirstName)
}

func TestAdminUpdateUser(t *testing.T) {
	svc, _, tokens := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "u@example.org", Password: "password123"})
	require.NoError(t, err)
	_, refresh, _, err := svc.Login(ctx, "u@example.org", "password123")
	require.NoError(t, err)

	banned := true
	_, err = svc.AdminUpdateUser(ctx, patient(), user.ID, AdminUserUpdate{IsBanned: &banned})
	assert.ErrorIs(t, err, domain.ErrAdminOnly)

	bad := "wizard"
	_, err = svc.AdminUpdateUser(ctx, admin(), user.ID, AdminUserUpdate{Role: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	updated, err := svc.AdminUpdateUser(ctx, admin(), user.ID, AdminUserUpdate{IsBanned: &banned})
	require.NoError(t, err)
	assert.True(t, updated.IsBanned)
	assert.True(t, tokens.tokens[refresh].Revoked)

	require.NoError(t, svc.DeactivateUser(ctx, admin(), user.ID))
	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestListUsers_AdminOnly(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "c@example.org", Password: "password123", Role: domain.RoleCaregiver})
	require.NoError(t, err)

	_, _, err = svc.ListUsers(ctx, patient(), repository.UserFilter{}, repository.Page{})
	assert.ErrorIs(t, err, domain.ErrAdminOnly)

	users, total, err := svc.ListUsers(ctx, admin(), repository.UserFilter{Role: domain.RoleCaregiver}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "c@example.org", users[0].Email)
}

package services

import (
	"testing"

	"github.com/clinreach/clinreach/internal/config"
	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/internal/utils"
	"github.com/clinreach/clinreach/pkg/response"
)

func newAuthTestService(t *testing.T, name string) (*AuthService, *config.Config) {
	t.Helper()
	db := openTestDB(t, name)
	cfg := config.DefaultConfig()
	utils.SetJWTSecret(cfg.JWT.Secret)
	return NewAuthService(db, cfg), cfg
}

func TestCreateAdminIfNotExists(t *testing.T) {
	svc, _ := newAuthTestService(t, "auth_admin")

	if err := svc.CreateAdminIfNotExists(); err != nil {
		t.Fatalf("CreateAdminIfNotExists() error = %v", err)
	}
	// Second call is a no-op.
	if err := svc.CreateAdminIfNotExists(); err != nil {
		t.Fatalf("second CreateAdminIfNotExists() error = %v", err)
	}

	var count int64
	svc.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count != 1 {
		t.Errorf("admin count = %d, want 1", count)
	}
}

func TestLogin_Local(t *testing.T) {
	svc, _ := newAuthTestService(t, "auth_login")
	if err := svc.CreateAdminIfNotExists(); err != nil {
		t.Fatalf("CreateAdminIfNotExists() error = %v", err)
	}

	resp, err := svc.Login(&LoginRequest{Username: "admin", Password: "admin"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("Login() returned empty token")
	}
	if resp.User.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", resp.User.Role)
	}

	claims, err := utils.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Username != "admin" {
		t.Errorf("token username = %q, want admin", claims.Username)
	}

	_, err = svc.Login(&LoginRequest{Username: "admin", Password: "wrong"})
	if !response.IsKind(err, response.KindUnauthorized) {
		t.Errorf("wrong password: error kind = %q, want %q", response.Kind(err), response.KindUnauthorized)
	}

	_, err = svc.Login(&LoginRequest{Username: "ghost", Password: "whatever"})
	if !response.IsKind(err, response.KindUnauthorized) {
		t.Errorf("unknown user: error kind = %q, want %q", response.Kind(err), response.KindUnauthorized)
	}
}

func TestLogin_DisabledUser(t *testing.T) {
	svc, _ := newAuthTestService(t, "auth_disabled")

	hashed, err := utils.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	user := models.User{
		Username: "dormant",
		Password: hashed,
		Role:     models.RoleRecruiter,
		AuthType: "local",
		IsActive: false,
	}
	if err := svc.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	_, err = svc.Login(&LoginRequest{Username: "dormant", Password: "secret123"})
	if !response.IsKind(err, response.KindUnauthorized) {
		t.Errorf("disabled user: error kind = %q, want %q", response.Kind(err), response.KindUnauthorized)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newAuthTestService(t, "auth_change_pw")
	if err := svc.CreateAdminIfNotExists(); err != nil {
		t.Fatalf("CreateAdminIfNotExists() error = %v", err)
	}

	var admin models.User
	svc.db.Where("username = ?", "admin").First(&admin)

	err := svc.ChangePassword(admin.ID, &ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret",
	})
	if !response.IsKind(err, response.KindBadRequest) {
		t.Errorf("wrong old password: error kind = %q, want %q", response.Kind(err), response.KindBadRequest)
	}

	if err := svc.ChangePassword(admin.ID, &ChangePasswordRequest{
		OldPassword: "admin",
		NewPassword: "newsecret",
	}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Login(&LoginRequest{Username: "admin", Password: "newsecret"}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}

func TestUserManagement(t *testing.T) {
	svc, _ := newAuthTestService(t, "auth_users")

	user, err := svc.CreateUser(&CreateUserRequest{
		Username: "coordinator",
		Password: "secret123",
		Role:     models.RoleResearcher,
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.AuthType != "local" || !user.IsActive {
		t.Errorf("new user auth_type=%q active=%v", user.AuthType, user.IsActive)
	}

	_, err = svc.CreateUser(&CreateUserRequest{
		Username: "coordinator",
		Password: "secret123",
		Role:     models.RoleRecruiter,
	})
	if !response.IsKind(err, response.KindConflict) {
		t.Errorf("duplicate username: error kind = %q, want %q", response.Kind(err), response.KindConflict)
	}

	_, err = svc.CreateUser(&CreateUserRequest{
		Username: "strange",
		Password: "secret123",
		Role:     "superuser",
	})
	if !response.IsKind(err, response.KindBadRequest) {
		t.Errorf("unknown role: error kind = %q, want %q", response.Kind(err), response.KindBadRequest)
	}

	inactive := false
	newRole := models.RoleRecruiter
	updated, err := svc.UpdateUser(user.ID, &UpdateUserRequest{Role: &newRole, IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if updated.Role != models.RoleRecruiter || updated.IsActive {
		t.Errorf("update not applied: role=%q active=%v", updated.Role, updated.IsActive)
	}

	users, err := svc.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 {
		t.Errorf("ListUsers() returned %d, want 1", len(users))
	}
}

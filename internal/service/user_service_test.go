package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dormdesk/maintenance-service/internal/config"
	"github.com/dormdesk/maintenance-service/internal/domain"
)

type userFixture struct {
	users   *fakeUserRepo
	service *UserService

	resident   domain.User
	technician domain.User
	admin      domain.User
	otherAdmin domain.User
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	users := newFakeUserRepo()
	f := &userFixture{users: users}
	f.resident = users.add(domain.User{Username: "dana", Password: "pw", Role: domain.RoleResident, Name: "Dana"})
	f.technician = users.add(domain.User{Username: "theo", Password: "pw", Role: domain.RoleTechnician, Name: "Theo"})
	f.admin = users.add(domain.User{Username: "admin", Password: "pw", Role: domain.RoleAdmin, Name: "Admin"})
	f.otherAdmin = users.add(domain.User{Username: "admin2", Password: "pw", Role: domain.RoleAdmin, Name: "Second Admin"})

	cfg := config.Config{}
	cfg.Auth.PasswordScheme = "plain"
	f.service = NewUserService(cfg, users)
	return f
}

func caller(u domain.User) Caller {
	return Caller{ID: u.ID, Role: u.Role}
}

func TestListUsersAdminOnly(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	users, err := f.service.List(ctx, caller(f.admin))
	require.NoError(t, err)
	require.Len(t, users, 4)

	_, err = f.service.List(ctx, caller(f.resident))
	requireCode(t, err, "FORBIDDEN")
}

func TestProvisionAccounts(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	tech, err := f.service.Provision(ctx, caller(f.admin), ProvisionInput{
		Username: "mara",
		Password: "secret",
		Name:     "Mara",
		Role:     domain.RoleTechnician,
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleTechnician, tech.Role)

	// admin accounts are seeded, never provisioned
	_, err = f.service.Provision(ctx, caller(f.admin), ProvisionInput{
		Username: "boss",
		Password: "secret",
		Name:     "Boss",
		Role:     domain.RoleAdmin,
	})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.service.Provision(ctx, caller(f.admin), ProvisionInput{
		Username: "mara",
		Password: "secret",
		Name:     "Clone",
		Role:     domain.RoleResident,
	})
	requireCode(t, err, "CONFLICT")

	_, err = f.service.Provision(ctx, caller(f.technician), ProvisionInput{
		Username: "new",
		Password: "secret",
		Name:     "New",
		Role:     domain.RoleResident,
	})
	requireCode(t, err, "FORBIDDEN")
}

func TestSelfProfileUpdate(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	updated, err := f.service.UpdateProfile(ctx, caller(f.resident), f.resident.ID, UserPatch{
		Name:  strPtr("Dana K."),
		Phone: strPtr("555-0101"),
	})
	require.NoError(t, err)
	require.Equal(t, "Dana K.", updated.Name)
	require.Equal(t, "555-0101", *updated.Phone)

	// a present-but-blank phone clears the stored value
	updated, err = f.service.UpdateProfile(ctx, caller(f.resident), f.resident.ID, UserPatch{
		Phone: strPtr("  "),
	})
	require.NoError(t, err)
	require.Nil(t, updated.Phone)

	_, err = f.service.UpdateProfile(ctx, caller(f.resident), f.resident.ID, UserPatch{})
	requireCode(t, err, "VALIDATION_FAILED")

	role := domain.RoleTechnician
	_, err = f.service.UpdateProfile(ctx, caller(f.resident), f.resident.ID, UserPatch{Role: &role})
	requireCode(t, err, "FORBIDDEN")
}

func TestCrossUserUpdateForbidden(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.service.UpdateProfile(context.Background(), caller(f.resident), f.technician.ID, UserPatch{
		Name: strPtr("Hijacked"),
	})
	requireCode(t, err, "FORBIDDEN")
}

func TestAdminEditsOthers(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	role := domain.RoleTechnician
	updated, err := f.service.UpdateProfile(ctx, caller(f.admin), f.resident.ID, UserPatch{
		Name: strPtr("Dana Promoted"),
		Role: &role,
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleTechnician, updated.Role)

	adminRole := domain.RoleAdmin
	_, err = f.service.UpdateProfile(ctx, caller(f.admin), f.technician.ID, UserPatch{Role: &adminRole})
	requireCode(t, err, "FORBIDDEN")

	_, err = f.service.UpdateProfile(ctx, caller(f.admin), f.otherAdmin.ID, UserPatch{Name: strPtr("Renamed")})
	requireCode(t, err, "FORBIDDEN")
}

func TestAdminSelfEditAvatarOnly(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	updated, err := f.service.UpdateProfile(ctx, caller(f.admin), f.admin.ID, UserPatch{
		Avatar: strPtr("/uploads/admin.png"),
	})
	require.NoError(t, err)
	require.Equal(t, "/uploads/admin.png", *updated.Avatar)

	_, err = f.service.UpdateProfile(ctx, caller(f.admin), f.admin.ID, UserPatch{
		Name: strPtr("New Name"),
	})
	requireCode(t, err, "FORBIDDEN")
}

func TestUsernameRenameConflicts(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.service.UpdateProfile(ctx, caller(f.resident), f.resident.ID, UserPatch{
		Username: strPtr("theo"),
	})
	requireCode(t, err, "CONFLICT")

	// renaming to your own current name is a no-op, not a conflict
	updated, err := f.service.UpdateProfile(ctx, caller(f.resident), f.resident.ID, UserPatch{
		Username: strPtr("dana"),
		Name:     strPtr("Dana"),
	})
	require.NoError(t, err)
	require.Equal(t, "dana", updated.Username)
}

func TestUpdateUnknownUser(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.service.UpdateProfile(context.Background(), caller(f.admin), 9999, UserPatch{
		Name: strPtr("ghost"),
	})
	requireCode(t, err, "NOT_FOUND")
}

func TestListTechniciansOrdering(t *testing.T) {
	f := newUserFixture(t)
	f.users.add(domain.User{Username: "ana", Role: domain.RoleTechnician, Name: "Ana"})

	techs, err := f.service.ListTechnicians(context.Background())
	require.NoError(t, err)
	require.Len(t, techs, 2)
	require.Equal(t, "Ana", techs[0].Name)
	require.Equal(t, "Theo", techs[1].Name)
}

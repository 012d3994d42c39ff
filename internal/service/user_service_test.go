package service

import (
	"context"
	"testing"

	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/testutil"
	"phish_trainer_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsersScopedByRole(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	manager := testutil.CreateUser(t, f.db, "boss", model.Manager, &admin.ID, "Acme")
	testutil.CreateUser(t, f.db, "alice", model.TestSubject, &manager.ID, "Acme")
	testutil.CreateUser(t, f.db, "bob", model.TestSubject, &admin.ID, "Globex")
	subject := testutil.CreateUser(t, f.db, "carol", model.TestSubject, &manager.ID, "Acme")

	all, err := f.users.ListUsers(callerOf(admin))
	require.NoError(t, err)
	assert.Len(t, all, 4, "admin sees everyone but themselves")
	for _, row := range all {
		assert.NotEqual(t, admin.ID, row.ID)
	}

	own, err := f.users.ListUsers(callerOf(manager))
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "alice", own[0].Username)
	require.NotNil(t, own[0].CreatedByName)
	assert.Equal(t, "boss", *own[0].CreatedByName)

	_, err = f.users.ListUsers(callerOf(subject))
	assert.ErrorIs(t, err, util.ErrInsufficientPrivilege)
}

func TestCreateUserRules(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	manager := testutil.CreateUser(t, f.db, "boss", model.Manager, &admin.ID, "Acme")

	created, err := f.users.CreateUser(callerOf(manager), CreateUserReq{
		Username:     "dave",
		Email:        "dave@acme.test",
		Password:     "secret1",
		Role:         model.Manager,
		Organization: "Globex",
	})
	assert.ErrorIs(t, err, util.ErrInsufficientPrivilege, "managers cannot create managers")
	assert.Nil(t, created)

	created, err = f.users.CreateUser(callerOf(manager), CreateUserReq{
		Username:     "dave",
		Email:        "dave@acme.test",
		Password:     "secret1",
		Organization: "Globex",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TestSubject, created.Role)
	assert.Equal(t, "Acme", created.Organization)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, manager.ID, *created.CreatedBy)
	assert.NotEqual(t, "secret1", created.PasswordHash)

	_, err = f.users.CreateUser(callerOf(admin), CreateUserReq{
		Username: "dave",
		Email:    "other@acme.test",
		Password: "secret1",
	})
	assert.ErrorIs(t, err, util.ErrDuplicate)

	_, err = f.users.CreateUser(callerOf(admin), CreateUserReq{Username: "erin", Email: "erin@acme.test", Password: "123"})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.users.CreateUser(callerOf(admin), CreateUserReq{Username: "erin", Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, util.ErrValidation)

	promoted, err := f.users.CreateUser(callerOf(admin), CreateUserReq{
		Username: "frank",
		Email:    "frank@globex.test",
		Password: "secret1",
		Role:     model.Manager,
	})
	require.NoError(t, err)
	assert.Equal(t, model.Manager, promoted.Role)
}

func TestDeleteUserRules(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	manager := testutil.CreateUser(t, f.db, "boss", model.Manager, &admin.ID, "Acme")
	own := testutil.CreateUser(t, f.db, "alice", model.TestSubject, &manager.ID, "Acme")
	foreign := testutil.CreateUser(t, f.db, "bob", model.TestSubject, &admin.ID, "Acme")
	quiz := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))

	_, err := f.progress.Submit(context.Background(), callerOf(own), quiz.ID, SubmitReq{
		Answers: map[string]model.SubmittedAnswer{},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.users.DeleteUser(callerOf(manager), foreign.ID), util.ErrInsufficientPrivilege)
	assert.ErrorIs(t, f.users.DeleteUser(callerOf(manager), manager.ID), util.ErrSelfDeletion)
	assert.ErrorIs(t, f.users.DeleteUser(callerOf(admin), admin.ID), util.ErrSelfDeletion)
	assert.ErrorIs(t, f.users.DeleteUser(callerOf(admin), 999), util.ErrNotFound)

	require.NoError(t, f.users.DeleteUser(callerOf(manager), own.ID))

	_, err = f.users.GetUserByID(own.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	var attempts, progressRows int64
	require.NoError(t, f.db.Model(&model.Attempt{}).Where("user_id = ?", own.ID).Count(&attempts).Error)
	require.NoError(t, f.db.Model(&model.Progress{}).Where("user_id = ?", own.ID).Count(&progressRows).Error)
	assert.Equal(t, int64(1), attempts, "attempt history is kept")
	assert.Zero(t, progressRows)

	require.NoError(t, f.users.DeleteUser(callerOf(admin), foreign.ID))
}

func TestDeleteManagerHandsOverSubjects(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	manager := testutil.CreateUser(t, f.db, "mgr", model.Manager, &admin.ID, "Acme")
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, &manager.ID, "Acme")

	require.NoError(t, f.users.DeleteUser(callerOf(admin), manager.ID))

	var stored model.User
	require.NoError(t, f.db.First(&stored, subject.ID).Error)
	require.NotNil(t, stored.CreatedBy)
	assert.Equal(t, admin.ID, *stored.CreatedBy)

	var creators int64
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", *stored.CreatedBy).Count(&creators).Error)
	assert.Equal(t, int64(1), creators)

	listed, err := f.users.ListUsers(callerOf(admin))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, subject.ID, listed[0].ID)
	require.NotNil(t, listed[0].CreatedByName)
	assert.Equal(t, "root", *listed[0].CreatedByName)

	require.NoError(t, f.users.DeleteUser(callerOf(admin), subject.ID))
}

func TestOrganizations(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	manager := testutil.CreateUser(t, f.db, "boss", model.Manager, &admin.ID, "Acme")
	testutil.CreateUser(t, f.db, "alice", model.TestSubject, &manager.ID, "Acme")
	testutil.CreateUser(t, f.db, "bob", model.TestSubject, &admin.ID, "Globex")

	orgs, err := f.users.ListOrganizations(callerOf(admin))
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex"}, orgs)

	members, err := f.users.GetOrganizationUsers(callerOf(admin), "Acme")
	require.NoError(t, err)
	require.Len(t, members, 1, "only test subjects are listed")
	assert.Equal(t, "alice", members[0].Username)

	_, err = f.users.ListOrganizations(callerOf(manager))
	assert.ErrorIs(t, err, util.ErrInsufficientPrivilege)
	_, err = f.users.GetOrganizationUsers(callerOf(manager), "Acme")
	assert.ErrorIs(t, err, util.ErrInsufficientPrivilege)
}

func TestUpdateProfileAndChangePassword(t *testing.T) {
	f := newFixture(t)
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	testutil.CreateUser(t, f.db, "bob", model.TestSubject, nil, "")

	updated, err := f.users.UpdateProfile(callerOf(subject), UpdateProfileReq{FullName: "Alice Liddell"})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.FullName)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.Equal(t, model.SecurityBeginner, updated.SecurityLevel)

	updated, err = f.users.UpdateProfile(callerOf(subject), UpdateProfileReq{SecurityLevel: model.SecurityAdvanced})
	require.NoError(t, err)
	assert.Equal(t, model.SecurityAdvanced, updated.SecurityLevel)

	_, err = f.users.UpdateProfile(callerOf(subject), UpdateProfileReq{SecurityLevel: "wizard"})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.users.UpdateProfile(callerOf(subject), UpdateProfileReq{Email: "bob@example.com"})
	assert.ErrorIs(t, err, util.ErrDuplicate)

	err = f.users.ChangePassword(callerOf(subject), ChangePasswordReq{CurrentPassword: "wrong", NewPassword: "newsecret"})
	assert.ErrorIs(t, err, util.ErrValidation)

	err = f.users.ChangePassword(callerOf(subject), ChangePasswordReq{CurrentPassword: "password", NewPassword: "short"})
	assert.ErrorIs(t, err, util.ErrValidation)

	require.NoError(t, f.users.ChangePassword(callerOf(subject), ChangePasswordReq{CurrentPassword: "password", NewPassword: "newsecret"}))

	_, err = f.auth.Login(context.Background(), "alice", "password")
	assert.ErrorIs(t, err, util.ErrUnauthenticated)
	_, err = f.auth.Login(context.Background(), "alice", "newsecret")
	assert.NoError(t, err)
}

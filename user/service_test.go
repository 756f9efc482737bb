package user

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/db/tables"
	"github.com/lcampe/guardian/events"
	"github.com/lcampe/guardian/password"
	"github.com/lcampe/guardian/verification"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type fakeUserStore struct {
	users      map[uuid.UUID]*tables.UserTable
	failureErr error
	successErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*tables.UserTable)}
}

func (f *fakeUserStore) addUser(email string, pw string, status string) *tables.UserTable {
	hash, err := password.Hash(pw)
	if err != nil {
		panic(err)
	}
	ud := &tables.UserTable{
		ID:        uuid.New(),
		Email:     email,
		Password:  hash,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if status != db.UserStatusPendingVerification {
		now := time.Now().UTC()
		ud.EmailConfirmed = &now
	}
	f.users[ud.ID] = ud
	return ud
}

func (f *fakeUserStore) IsRegistered(_ context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UserByEmail(_ context.Context, email string) (*tables.UserTable, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeUserStore) UserByID(_ context.Context, id uuid.UUID) (*tables.UserTable, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) InsertUser(
	_ context.Context,
	email string,
	passwordHash string,
	status string,
	confirmed *time.Time,
) (uuid.UUID, error) {
	for _, u := range f.users {
		if u.Email == email {
			return uuid.UUID{}, db.ErrAlreadyExists
		}
	}
	ud := &tables.UserTable{
		ID:             uuid.New(),
		Email:          email,
		Password:       passwordHash,
		Status:         status,
		EmailConfirmed: confirmed,
		CreatedAt:      time.Now().UTC(),
	}
	f.users[ud.ID] = ud
	return ud.ID, nil
}

func (f *fakeUserStore) ConfirmUser(_ context.Context, userID uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	now := time.Now().UTC()
	u.EmailConfirmed = &now
	u.Status = db.UserStatusActive
	return nil
}

func (f *fakeUserStore) SetPassword(_ context.Context, userID uuid.UUID, hash string) error {
	u, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.Password = hash
	now := time.Now().UTC()
	u.LastPasswordChange = &now
	return nil
}

func (f *fakeUserStore) MarkDeleted(_ context.Context, userID uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok || u.DeletedAt != nil {
		return db.ErrNotFound
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	u.Status = db.UserStatusDeleted
	return nil
}

func (f *fakeUserStore) RecordLoginFailure(
	_ context.Context,
	userID uuid.UUID,
	lockoutCount int,
	lockoutDuration time.Duration,
) (int, bool, error) {
	if f.failureErr != nil {
		return 0, false, f.failureErr
	}
	u, ok := f.users[userID]
	if !ok {
		return 0, false, db.ErrNotFound
	}
	u.FailureCount++
	if u.FailureCount >= lockoutCount {
		u.Status = db.UserStatusLocked
		till := time.Now().UTC().Add(lockoutDuration)
		u.LockoutTill = &till
		return u.FailureCount, true, nil
	}
	return u.FailureCount, false, nil
}

func (f *fakeUserStore) RecordLoginSuccess(_ context.Context, userID uuid.UUID) error {
	if f.successErr != nil {
		return f.successErr
	}
	u, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.FailureCount = 0
	now := time.Now().UTC()
	u.LastSignIn = &now
	return nil
}

func (f *fakeUserStore) UnlockUser(_ context.Context, userID uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok || u.Status != db.UserStatusLocked {
		return db.ErrNotFound
	}
	u.Status = db.UserStatusActive
	u.LockoutTill = nil
	u.FailureCount = 0
	return nil
}

func (f *fakeUserStore) Reactivate(_ context.Context, userID uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok || u.Status != db.UserStatusDeleted {
		return db.ErrNotFound
	}
	u.Status = db.UserStatusActive
	u.DeletedAt = nil
	return nil
}

type sentMail struct {
	kind  string
	email string
	token string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendVerificationMail(email string, token string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: "verification", email: email, token: token})
	return nil
}

func (f *fakeMailer) SendPasswordResetMail(email string, token string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: "reset", email: email, token: token})
	return nil
}

func (f *fakeMailer) SendPasswordChangedMail(email string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: "changed", email: email})
	return nil
}

type recordingDispatcher struct {
	dispatched []events.Event
}

func (r *recordingDispatcher) Dispatch(_ context.Context, ev events.Event) {
	r.dispatched = append(r.dispatched, ev)
}

func (r *recordingDispatcher) names() []string {
	names := make([]string, 0, len(r.dispatched))
	for _, ev := range r.dispatched {
		names = append(names, string(ev.Name()))
	}
	return names
}

type issuedToken struct {
	userID uuid.UUID
	used   bool
}

type fakeVerificationTokens struct {
	counter int
	tokens  map[string]*issuedToken
}

func newFakeVerificationTokens() *fakeVerificationTokens {
	return &fakeVerificationTokens{tokens: make(map[string]*issuedToken)}
}

func (f *fakeVerificationTokens) issue(prefix string, userID uuid.UUID) string {
	f.counter++
	token := fmt.Sprintf("%s-%d", prefix, f.counter)
	f.tokens[token] = &issuedToken{userID: userID}
	return token
}

func (f *fakeVerificationTokens) consume(token string) (uuid.UUID, error) {
	entry, ok := f.tokens[token]
	if !ok {
		return uuid.UUID{}, verification.ErrTokenNotFound
	}
	if entry.used {
		return uuid.UUID{}, verification.ErrTokenUsed
	}
	entry.used = true
	return entry.userID, nil
}

func (f *fakeVerificationTokens) IssueEmailVerification(
	_ context.Context,
	userID uuid.UUID,
) (string, error) {
	return f.issue("verify", userID), nil
}

func (f *fakeVerificationTokens) IssuePasswordReset(
	_ context.Context,
	userID uuid.UUID,
) (string, error) {
	return f.issue("reset", userID), nil
}

func (f *fakeVerificationTokens) ConsumeEmailVerification(
	_ context.Context,
	token string,
) (uuid.UUID, error) {
	return f.consume(token)
}

func (f *fakeVerificationTokens) ConsumePasswordReset(
	_ context.Context,
	token string,
) (uuid.UUID, error) {
	return f.consume(token)
}

type fakeLimiter struct {
	err   error
	calls int
}

func (f *fakeLimiter) Allow(_ context.Context, _ string, _ string) error {
	f.calls++
	return f.err
}

type fakeSessions struct {
	revoked map[uuid.UUID]int
	err     error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{revoked: make(map[uuid.UUID]int)}
}

func (f *fakeSessions) RevokeAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.revoked[userID]++
	return 1, nil
}

func testConfig() *config.Configuration {
	return &config.Configuration{
		Behaviour: &config.BehaviourConfiguration{
			Name:                    "guardian",
			Site:                    "https://example.com",
			ServiceDomain:           "https://example.com",
			PasswordPolicy:          password.PolicyBasic,
			PasswordMinLength:       8,
			VerificationTokenExpiry: 24 * time.Hour,
			ResetTokenExpiry:        time.Hour,
			DeletionGracePeriod:     14 * 24 * time.Hour,
		},
		Security: &config.SecurityConfiguration{
			Level:           config.SecurityLevelBasic,
			FailureWindow:   15 * time.Minute,
			FreezeThreshold: 5,
			FreezeDuration:  time.Hour,
			LockoutCount:    5,
			LockoutDuration: 30 * time.Minute,
		},
	}
}

type userServiceFixture struct {
	svc        *Service
	store      *fakeUserStore
	mailer     *fakeMailer
	dispatcher *recordingDispatcher
	tokens     *fakeVerificationTokens
	limiter    *fakeLimiter
	sessions   *fakeSessions
	cfg        *config.Configuration
}

func setupUserService(t *testing.T) *userServiceFixture {
	f := &userServiceFixture{
		store:      newFakeUserStore(),
		mailer:     &fakeMailer{},
		dispatcher: &recordingDispatcher{},
		tokens:     newFakeVerificationTokens(),
		limiter:    &fakeLimiter{},
		sessions:   newFakeSessions(),
		cfg:        testConfig(),
	}
	f.svc = New(
		f.store,
		zaptest.NewLogger(t),
		f.cfg,
		f.mailer,
		f.dispatcher,
		f.tokens,
		f.limiter,
		f.sessions,
	)
	return f
}

func TestRegisterUserStartsPending(t *testing.T) {
	f := setupUserService(t)

	id, err := f.svc.RegisterUser(context.Background(), "new@example.com", "correct horse")
	assert.NoError(t, err)

	ud, err := f.store.UserByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, db.UserStatusPendingVerification, ud.Status)
	assert.Nil(t, ud.EmailConfirmed)
	assert.NotEqual(t, "correct horse", ud.Password, "password is stored hashed")

	if assert.Len(t, f.mailer.sent, 1) {
		assert.Equal(t, "verification", f.mailer.sent[0].kind)
		assert.Equal(t, "new@example.com", f.mailer.sent[0].email)
	}
	assert.Contains(t, f.dispatcher.names(), "user_signup")
}

func TestRegisterUserAutoConfirm(t *testing.T) {
	f := setupUserService(t)
	f.cfg.Behaviour.AutoConfirmUsers = true

	id, err := f.svc.RegisterUser(context.Background(), "new@example.com", "correct horse")
	assert.NoError(t, err)

	ud, err := f.store.UserByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, db.UserStatusActive, ud.Status)
	assert.NotNil(t, ud.EmailConfirmed)
	assert.Empty(t, f.mailer.sent, "auto confirmed accounts get no verification mail")
	assert.Contains(t, f.dispatcher.names(), "user_confirmed")
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	f := setupUserService(t)
	f.store.addUser("taken@example.com", "correct horse", db.UserStatusActive)

	_, err := f.svc.RegisterUser(context.Background(), "taken@example.com", "another pass")
	assert.ErrorIs(t, err, ErrEntityAlreadyExists)
}

func TestRegisterUserRejectsWeakPassword(t *testing.T) {
	f := setupUserService(t)

	_, err := f.svc.RegisterUser(context.Background(), "new@example.com", "short")
	assert.ErrorIs(t, err, ErrPasswordGuidelines)
}

func TestRegisterUserSurvivesMailFailure(t *testing.T) {
	f := setupUserService(t)
	f.mailer.err = errors.New("smtp down")

	id, err := f.svc.RegisterUser(context.Background(), "new@example.com", "correct horse")
	assert.NoError(t, err, "the account exists even when the mail bounces")
	assert.NotEqual(t, uuid.UUID{}, id)
}

func TestConfirmUserActivatesAccount(t *testing.T) {
	f := setupUserService(t)

	id, err := f.svc.RegisterUser(context.Background(), "new@example.com", "correct horse")
	assert.NoError(t, err)
	token := f.mailer.sent[0].token

	email, err := f.svc.ConfirmUser(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, "new@example.com", email)

	ud, err := f.store.UserByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, db.UserStatusActive, ud.Status)
	assert.NotNil(t, ud.EmailConfirmed)
}

func TestConfirmUserTokenIsSingleUse(t *testing.T) {
	f := setupUserService(t)

	_, err := f.svc.RegisterUser(context.Background(), "new@example.com", "correct horse")
	assert.NoError(t, err)
	token := f.mailer.sent[0].token

	_, err = f.svc.ConfirmUser(context.Background(), token)
	assert.NoError(t, err)
	_, err = f.svc.ConfirmUser(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestConfirmUserUnknownToken(t *testing.T) {
	f := setupUserService(t)
	_, err := f.svc.ConfirmUser(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrEntityDoesNotExist)
}

func TestResendVerificationHonoursQuota(t *testing.T) {
	f := setupUserService(t)
	f.limiter.err = db.ErrLimitExceeded

	err := f.svc.ResendVerification(context.Background(), "new@example.com", "203.0.113.7")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Empty(t, f.mailer.sent)
}

func TestResendVerificationSilentForUnknownEmail(t *testing.T) {
	f := setupUserService(t)

	err := f.svc.ResendVerification(context.Background(), "ghost@example.com", "203.0.113.7")
	assert.NoError(t, err)
	assert.Empty(t, f.mailer.sent)
}

func TestResendVerificationSilentWhenAlreadyConfirmed(t *testing.T) {
	f := setupUserService(t)
	f.store.addUser("done@example.com", "correct horse", db.UserStatusActive)

	err := f.svc.ResendVerification(context.Background(), "done@example.com", "203.0.113.7")
	assert.NoError(t, err)
	assert.Empty(t, f.mailer.sent)
}

func TestResendVerificationSendsFreshToken(t *testing.T) {
	f := setupUserService(t)
	f.store.addUser("pending@example.com", "correct horse", db.UserStatusPendingVerification)

	err := f.svc.ResendVerification(context.Background(), "pending@example.com", "203.0.113.7")
	assert.NoError(t, err)
	if assert.Len(t, f.mailer.sent, 1) {
		assert.Equal(t, "verification", f.mailer.sent[0].kind)
	}
	assert.Equal(t, 1, f.limiter.calls)
}

func TestTriggerPasswordResetSilentForUnknownEmail(t *testing.T) {
	f := setupUserService(t)

	err := f.svc.TriggerPasswordReset(context.Background(), "ghost@example.com")
	assert.NoError(t, err)
	assert.Empty(t, f.mailer.sent)
}

func TestResetPasswordRoundtrip(t *testing.T) {
	f := setupUserService(t)
	ud := f.store.addUser("reset@example.com", "old password", db.UserStatusActive)

	assert.NoError(t, f.svc.TriggerPasswordReset(context.Background(), "reset@example.com"))
	token := f.mailer.sent[0].token

	assert.NoError(t, f.svc.ResetPassword(context.Background(), token, "new password"))

	ok, err := password.Verify(f.store.users[ud.ID].Password, "new password")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, f.sessions.revoked[ud.ID], "reset revokes live sessions")
}

func TestResetPasswordTokenIsSingleUse(t *testing.T) {
	f := setupUserService(t)
	f.store.addUser("reset@example.com", "old password", db.UserStatusActive)

	assert.NoError(t, f.svc.TriggerPasswordReset(context.Background(), "reset@example.com"))
	token := f.mailer.sent[0].token

	assert.NoError(t, f.svc.ResetPassword(context.Background(), token, "new password"))
	err := f.svc.ResetPassword(context.Background(), token, "another password")
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestResetPasswordRejectsWeakPassword(t *testing.T) {
	f := setupUserService(t)
	err := f.svc.ResetPassword(context.Background(), "whatever", "short")
	assert.ErrorIs(t, err, ErrPasswordGuidelines)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	f := setupUserService(t)
	ud := f.store.addUser("change@example.com", "old password", db.UserStatusActive)

	err := f.svc.ChangePassword(context.Background(), ud.ID, "wrong one", "new password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.svc.ChangePassword(context.Background(), ud.ID, "old password", "new password")
	assert.NoError(t, err)

	ok, verr := password.Verify(f.store.users[ud.ID].Password, "new password")
	assert.NoError(t, verr)
	assert.True(t, ok)
	assert.Equal(t, 1, f.sessions.revoked[ud.ID])
}

func TestChangePasswordFailsWhenRevocationFails(t *testing.T) {
	f := setupUserService(t)
	ud := f.store.addUser("change@example.com", "old password", db.UserStatusActive)
	f.sessions.err = errors.New("token store unavailable")

	err := f.svc.ChangePassword(context.Background(), ud.ID, "old password", "new password")
	assert.Error(t, err, "stale sessions surviving a password change is not acceptable")
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestDeleteUserSoftDeletesAndRevokes(t *testing.T) {
	f := setupUserService(t)
	ud := f.store.addUser("gone@example.com", "correct horse", db.UserStatusActive)

	assert.NoError(t, f.svc.DeleteUser(context.Background(), ud.ID))
	assert.Equal(t, db.UserStatusDeleted, f.store.users[ud.ID].Status)
	assert.NotNil(t, f.store.users[ud.ID].DeletedAt)
	assert.Equal(t, 1, f.sessions.revoked[ud.ID])

	err := f.svc.DeleteUser(context.Background(), ud.ID)
	assert.ErrorIs(t, err, ErrEntityDoesNotExist, "deleting twice fails")
}

func TestEmailToID(t *testing.T) {
	f := setupUserService(t)
	ud := f.store.addUser("known@example.com", "correct horse", db.UserStatusActive)

	id, ok := f.svc.EmailToID(context.Background(), "known@example.com")
	assert.True(t, ok)
	assert.Equal(t, ud.ID, id)

	_, ok = f.svc.EmailToID(context.Background(), "ghost@example.com")
	assert.False(t, ok)
}

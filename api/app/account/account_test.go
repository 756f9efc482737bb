package account

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/db/tables"
	"github.com/lcampe/guardian/events"
	"github.com/lcampe/guardian/password"
	"github.com/lcampe/guardian/tokens"
	"github.com/lcampe/guardian/user"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type fakeAccountStore struct {
	users map[uuid.UUID]*tables.UserTable
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{users: make(map[uuid.UUID]*tables.UserTable)}
}

func (f *fakeAccountStore) addUser(email string, pw string) *tables.UserTable {
	hash, err := password.Hash(pw)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	ud := &tables.UserTable{
		ID:             uuid.New(),
		Email:          email,
		Password:       hash,
		Status:         db.UserStatusActive,
		EmailConfirmed: &now,
		CreatedAt:      now,
	}
	f.users[ud.ID] = ud
	return ud
}

func (f *fakeAccountStore) IsRegistered(_ context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccountStore) UserByEmail(_ context.Context, email string) (*tables.UserTable, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeAccountStore) UserByID(_ context.Context, id uuid.UUID) (*tables.UserTable, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeAccountStore) InsertUser(
	_ context.Context,
	email string,
	passwordHash string,
	status string,
	confirmed *time.Time,
) (uuid.UUID, error) {
	ud := &tables.UserTable{
		ID:             uuid.New(),
		Email:          email,
		Password:       passwordHash,
		Status:         status,
		EmailConfirmed: confirmed,
	}
	f.users[ud.ID] = ud
	return ud.ID, nil
}

func (f *fakeAccountStore) ConfirmUser(_ context.Context, userID uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	now := time.Now().UTC()
	u.EmailConfirmed = &now
	u.Status = db.UserStatusActive
	return nil
}

func (f *fakeAccountStore) SetPassword(_ context.Context, userID uuid.UUID, hash string) error {
	u, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (f *fakeAccountStore) MarkDeleted(_ context.Context, userID uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok || u.DeletedAt != nil {
		return db.ErrNotFound
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	u.Status = db.UserStatusDeleted
	return nil
}

type nopMailer struct{}

func (nopMailer) SendVerificationMail(_ string, _ string) error  { return nil }
func (nopMailer) SendPasswordResetMail(_ string, _ string) error { return nil }
func (nopMailer) SendPasswordChangedMail(_ string) error         { return nil }

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(_ context.Context, _ events.Event) {}

type nopOneTimeTokens struct{}

func (nopOneTimeTokens) IssueEmailVerification(_ context.Context, _ uuid.UUID) (string, error) {
	return "verify-1", nil
}

func (nopOneTimeTokens) IssuePasswordReset(_ context.Context, _ uuid.UUID) (string, error) {
	return "reset-1", nil
}

func (nopOneTimeTokens) ConsumeEmailVerification(
	_ context.Context,
	_ string,
) (uuid.UUID, error) {
	return uuid.UUID{}, nil
}

func (nopOneTimeTokens) ConsumePasswordReset(_ context.Context, _ string) (uuid.UUID, error) {
	return uuid.UUID{}, nil
}

type nopLimiter struct{}

func (nopLimiter) Allow(_ context.Context, _ string, _ string) error { return nil }

type countingSessions struct {
	revoked map[uuid.UUID]int
}

func (c *countingSessions) RevokeAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	c.revoked[userID]++
	return 1, nil
}

// fakeTokenStorage backs the real issuer and verifier, nothing is ever
// blacklisted
type fakeTokenStorage struct{}

func (fakeTokenStorage) InsertSessionToken(
	_ context.Context,
	_ string,
	_ uuid.UUID,
	_ string,
	_ *string,
	_ *string,
	_ time.Time,
	_ time.Time,
) error {
	return nil
}

func (fakeTokenStorage) IsTokenRevoked(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func testConfig() *config.Configuration {
	return &config.Configuration{
		Behaviour: &config.BehaviourConfiguration{
			Name:                "guardian",
			Site:                "https://example.com",
			ServiceDomain:       "https://example.com",
			PasswordPolicy:      password.PolicyBasic,
			PasswordMinLength:   8,
			ResetTokenExpiry:    time.Hour,
			DeletionGracePeriod: 14 * 24 * time.Hour,
		},
		Security: &config.SecurityConfiguration{
			Level:           config.SecurityLevelBasic,
			LockoutCount:    5,
			LockoutDuration: 30 * time.Minute,
		},
	}
}

func testValidate(cfg *config.Configuration) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("minpwd", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) >= cfg.Behaviour.PasswordMinLength
	})
	return v
}

type accountFixture struct {
	res      *AccountRessource
	store    *fakeAccountStore
	sessions *countingSessions
	issuer   *tokens.TokenIssuer
}

func setupAccount(t *testing.T) *accountFixture {
	t.Helper()
	cfg := testConfig()
	f := &accountFixture{
		store:    newFakeAccountStore(),
		sessions: &countingSessions{revoked: make(map[uuid.UUID]int)},
	}
	log := zaptest.NewLogger(t)
	storage := fakeTokenStorage{}
	f.issuer = tokens.NewIssuer(log, &config.JWTConfiguration{
		Algorithm:          "HS256",
		Issuer:             "guardian.test",
		Audience:           []string{"guardian.test"},
		Expiry:             15 * time.Minute,
		HMACSigningKey:     "a-very-long-test-secret-that-is-not-weak",
		RefreshTokenExpiry: 24 * time.Hour,
	}, storage)
	verifier := tokens.NewTokenVerifier(log, f.issuer, storage)
	users := user.New(
		f.store,
		log,
		cfg,
		nopMailer{},
		nopDispatcher{},
		nopOneTimeTokens{},
		nopLimiter{},
		f.sessions,
	)
	f.res = NewAccountRessource(log, users, nil, verifier, testValidate(cfg), nil)
	return f
}

func (f *accountFixture) bearerFor(t *testing.T, ud *tables.UserTable) string {
	t.Helper()
	pair, err := f.issuer.IssuePair(context.Background(), ud.ID, ud.Email, nil)
	assert.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func TestChangePasswordWrongCurrentIsBadRequest(t *testing.T) {
	f := setupAccount(t)
	ud := f.store.addUser("alice@example.com", "old password")

	res := apitest.New().
		HandlerFunc(f.res.changePassword).
		Post("/me/change-password").
		Header("Authorization", f.bearerFor(t, ud)).
		Body(`{"current_password":"not the one","new_password":"a new password"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	var body errorResponse
	err := json.NewDecoder(res.Response.Body).Decode(&body)
	assert.NoError(t, err)
	assert.Equal(t, errInvalidCredentials, body.Error)
	assert.Zero(t, f.sessions.revoked[ud.ID], "nothing was revoked for a refused change")
}

func TestChangePasswordSucceedsAndRevokesSessions(t *testing.T) {
	f := setupAccount(t)
	ud := f.store.addUser("alice@example.com", "old password")

	apitest.New().
		HandlerFunc(f.res.changePassword).
		Post("/me/change-password").
		Header("Authorization", f.bearerFor(t, ud)).
		Body(`{"current_password":"old password","new_password":"a new password"}`).
		Expect(t).
		Status(http.StatusOK).
		End()

	ok, err := password.Verify(f.store.users[ud.ID].Password, "a new password")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, f.sessions.revoked[ud.ID])
}

func TestChangePasswordWithoutTokenIsUnauthorized(t *testing.T) {
	f := setupAccount(t)

	apitest.New().
		HandlerFunc(f.res.changePassword).
		Post("/me/change-password").
		Body(`{"current_password":"old password","new_password":"a new password"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestMeReturnsProfileFromClaims(t *testing.T) {
	f := setupAccount(t)
	ud := f.store.addUser("alice@example.com", "old password")

	res := apitest.New().
		HandlerFunc(f.res.me).
		Get("/me").
		Header("Authorization", f.bearerFor(t, ud)).
		Expect(t).
		Status(http.StatusOK).
		End()

	var body profileResponse
	err := json.NewDecoder(res.Response.Body).Decode(&body)
	assert.NoError(t, err)
	assert.Equal(t, ud.ID.String(), body.UserID)
	assert.Equal(t, "alice@example.com", body.Email)
}

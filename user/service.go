package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/db/tables"
	"github.com/lcampe/guardian/events"
	"github.com/lcampe/guardian/events/event"
	"github.com/lcampe/guardian/password"
	"github.com/lcampe/guardian/verification"
	"go.uber.org/zap"
)

var (
	ErrEntityDoesNotExist  = errors.New("entity does not exist")
	ErrEntityAlreadyExists = errors.New("entity already exists in system")
	ErrTokenExpired        = errors.New("supplied token has expired")
	ErrTokenUsed           = errors.New("supplied token has already been used")
	ErrPasswordGuidelines  = errors.New("password doesnt match password guidlines")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrRateLimited         = errors.New("too many verification mails requested")
)

// UserStorer is the account persistence surface, implemented by
// db.DataStore
type UserStorer interface {
	IsRegistered(ctx context.Context, email string) (bool, error)
	UserByEmail(ctx context.Context, email string) (*tables.UserTable, error)
	UserByID(ctx context.Context, id uuid.UUID) (*tables.UserTable, error)
	InsertUser(
		ctx context.Context,
		email string,
		passwordHash string,
		status string,
		confirmed *time.Time,
	) (uuid.UUID, error)
	ConfirmUser(ctx context.Context, userID uuid.UUID) error
	SetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	MarkDeleted(ctx context.Context, userID uuid.UUID) error
}

// Mailer sends the account related mails
type Mailer interface {
	SendVerificationMail(email string, token string) error
	SendPasswordResetMail(email string, token string) error
	SendPasswordChangedMail(email string) error
}

// Dispatcher dispatches domain events to registered listeners
type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event)
}

// VerificationTokens issues and redeems one time secrets
type VerificationTokens interface {
	IssueEmailVerification(ctx context.Context, userID uuid.UUID) (string, error)
	IssuePasswordReset(ctx context.Context, userID uuid.UUID) (string, error)
	ConsumeEmailVerification(ctx context.Context, token string) (uuid.UUID, error)
	ConsumePasswordReset(ctx context.Context, token string) (uuid.UUID, error)
}

// MailAllowance guards the verification mail quotas
type MailAllowance interface {
	Allow(ctx context.Context, email string, ip string) error
}

// SessionRevoker drops all live sessions of a user, password changes
// invalidate everything that was issued before
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Service owns the account lifecycle: registration, confirmation,
// password changes and deletion
type Service struct {
	store      UserStorer
	log        *zap.Logger
	cfg        *config.Configuration
	mailer     Mailer
	dispatcher Dispatcher
	tokens     VerificationTokens
	limiter    MailAllowance
	sessions   SessionRevoker
	policy     *password.Policy
}

func New(store UserStorer,
	logger *zap.Logger,
	cfg *config.Configuration,
	mailer Mailer,
	dispatcher Dispatcher,
	tokens VerificationTokens,
	limiter MailAllowance,
	sessions SessionRevoker) *Service {
	return &Service{
		store:      store,
		log:        logger,
		cfg:        cfg,
		mailer:     mailer,
		dispatcher: dispatcher,
		tokens:     tokens,
		limiter:    limiter,
		sessions:   sessions,
		policy: password.NewPolicy(
			cfg.Behaviour.PasswordPolicy,
			cfg.Behaviour.PasswordMinLength,
		),
	}
}

// RegisterUser creates a new account. Unless auto confirm is enabled
// the account starts pending and a verification mail goes out.
func (g *Service) RegisterUser(
	ctx context.Context,
	email string,
	pw string,
) (uuid.UUID, error) {
	if err := g.policy.Validate(pw); err != nil {
		return uuid.UUID{}, ErrPasswordGuidelines
	}
	hash, err := password.Hash(pw)
	if err != nil {
		g.log.Error("Could not hash password", zap.Error(err))
		return uuid.UUID{}, err
	}
	status := db.UserStatusPendingVerification
	var confirmed *time.Time
	if g.cfg.Behaviour.AutoConfirmUsers {
		status = db.UserStatusActive
		now := time.Now().UTC()
		confirmed = &now
	}
	id, err := g.store.InsertUser(ctx, email, hash, status, confirmed)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			return uuid.UUID{}, ErrEntityAlreadyExists
		}
		g.log.Error("Could not insert user", zap.Error(err))
		return uuid.UUID{}, err
	}
	g.dispatcher.Dispatch(ctx, &event.UserSignup{UserID: id, Email: email})
	if g.cfg.Behaviour.AutoConfirmUsers {
		g.dispatcher.Dispatch(ctx, &event.UserConfirmed{UserID: id, AutoConfirmed: true})
		return id, nil
	}
	token, err := g.tokens.IssueEmailVerification(ctx, id)
	if err != nil {
		g.log.Error("Could not issue verification token", zap.Error(err))
		return uuid.UUID{}, err
	}
	if err := g.mailer.SendVerificationMail(email, token); err != nil {
		// the account exists, the user can request another mail later
		g.log.Error("Registration mail could not be sent", zap.Error(err))
	} else {
		g.dispatcher.Dispatch(ctx, &event.EmailVerificationSent{
			UserID: id,
			Email:  email,
			Sent:   time.Now().UTC(),
		})
	}
	return id, nil
}

// ConfirmUser redeems an email verification token and activates the
// account, the confirmed address is returned
func (g *Service) ConfirmUser(ctx context.Context, token string) (string, error) {
	id, err := g.tokens.ConsumeEmailVerification(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrTokenNotFound):
			return "", ErrEntityDoesNotExist
		case errors.Is(err, verification.ErrTokenUsed):
			return "", ErrTokenUsed
		case errors.Is(err, verification.ErrTokenExpired):
			return "", ErrTokenExpired
		default:
			return "", err
		}
	}
	if err := g.store.ConfirmUser(ctx, id); err != nil {
		g.log.Error("Could not confirm in data store", zap.Error(err))
		return "", err
	}
	ud, err := g.store.UserByID(ctx, id)
	if err != nil {
		return "", err
	}
	g.dispatcher.Dispatch(ctx, &event.UserConfirmed{UserID: id, AutoConfirmed: false})
	return ud.Email, nil
}

// ResendVerification sends another verification mail, subject to the
// configured quotas. Unknown or already confirmed addresses succeed
// silently so the endpoint does not leak account state.
func (g *Service) ResendVerification(ctx context.Context, email string, ip string) error {
	if err := g.limiter.Allow(ctx, email, ip); err != nil {
		if errors.Is(err, db.ErrLimitExceeded) {
			return ErrRateLimited
		}
		return err
	}
	ud, err := g.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return err
	}
	if ud.EmailConfirmed != nil {
		return nil
	}
	token, err := g.tokens.IssueEmailVerification(ctx, ud.ID)
	if err != nil {
		return err
	}
	if err := g.mailer.SendVerificationMail(email, token); err != nil {
		g.log.Error("Verification mail could not be sent", zap.Error(err))
		return err
	}
	g.dispatcher.Dispatch(ctx, &event.EmailVerificationSent{
		UserID: ud.ID,
		Email:  email,
		Sent:   time.Now().UTC(),
	})
	return nil
}

// TriggerPasswordReset issues a reset token and mails the link.
// Unknown addresses succeed silently.
func (g *Service) TriggerPasswordReset(ctx context.Context, email string) error {
	ud, err := g.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		g.log.Error("Unable to load user from store", zap.Error(err))
		return err
	}
	token, err := g.tokens.IssuePasswordReset(ctx, ud.ID)
	if err != nil {
		g.log.Error("Unable to set reset token in store", zap.Error(err))
		return err
	}
	if err := g.mailer.SendPasswordResetMail(email, token); err != nil {
		g.log.Error("Unable to send reset email", zap.Error(err))
		return err
	}
	g.dispatcher.Dispatch(ctx, &event.UserPasswordResetRequested{UserID: ud.ID})
	g.dispatcher.Dispatch(ctx, &event.EmailPasswordResetSent{
		UserID: ud.ID,
		Email:  email,
		Sent:   time.Now().UTC(),
	})
	return nil
}

// ResetPassword redeems a reset token and replaces the password,
// every live session of the user is revoked
func (g *Service) ResetPassword(ctx context.Context, token string, pw string) error {
	if err := g.policy.Validate(pw); err != nil {
		return ErrPasswordGuidelines
	}
	id, err := g.tokens.ConsumePasswordReset(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrTokenNotFound):
			return ErrEntityDoesNotExist
		case errors.Is(err, verification.ErrTokenUsed):
			return ErrTokenUsed
		case errors.Is(err, verification.ErrTokenExpired):
			return ErrTokenExpired
		default:
			return err
		}
	}
	ud, err := g.store.UserByID(ctx, id)
	if err != nil {
		return ErrEntityDoesNotExist
	}
	if err := g.setPassword(ctx, ud, pw); err != nil {
		return err
	}
	g.dispatcher.Dispatch(ctx, &event.UserPasswordResetUsed{UserID: id, Email: ud.Email})
	return nil
}

// ChangePassword replaces the password of a signed in user after
// verifying the current one
func (g *Service) ChangePassword(
	ctx context.Context,
	id uuid.UUID,
	currentPassword string,
	newPassword string,
) error {
	if err := g.policy.Validate(newPassword); err != nil {
		return ErrPasswordGuidelines
	}
	ud, err := g.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrEntityDoesNotExist
		}
		return err
	}
	ok, err := password.Verify(ud.Password, currentPassword)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	return g.setPassword(ctx, ud, newPassword)
}

func (g *Service) setPassword(ctx context.Context, ud *tables.UserTable, pw string) error {
	hash, err := password.Hash(pw)
	if err != nil {
		g.log.Error("Could not hash password", zap.Error(err))
		return err
	}
	if err := g.store.SetPassword(ctx, ud.ID, hash); err != nil {
		g.log.Error("Could not set password in store", zap.Error(err))
		return err
	}
	// sessions issued before the change must die with the old
	// password, a partial revocation is not acceptable
	if _, err := g.sessions.RevokeAllForUser(ctx, ud.ID); err != nil {
		g.log.Error("Could not revoke sessions after password change", zap.Error(err))
		return err
	}
	g.dispatcher.Dispatch(ctx, &event.UserPasswordChanged{UserID: ud.ID})
	if err := g.mailer.SendPasswordChangedMail(ud.Email); err != nil {
		g.log.Error("Password changed mail could not be sent", zap.Error(err))
	}
	return nil
}

// DeleteUser soft deletes the account, within the grace period a
// successful login brings it back
func (g *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := g.store.MarkDeleted(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrEntityDoesNotExist
		}
		return err
	}
	if _, err := g.sessions.RevokeAllForUser(ctx, id); err != nil {
		g.log.Error("Could not revoke sessions after deletion", zap.Error(err))
	}
	g.dispatcher.Dispatch(ctx, &event.UserDeleted{UserID: id})
	return nil
}

// EmailByID maps a user id to its email address
func (g *Service) EmailByID(ctx context.Context, id uuid.UUID) (string, bool) {
	ud, err := g.store.UserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			g.log.Error("Unable to get matching user from store", zap.Error(err))
		}
		return "", false
	}
	return ud.Email, true
}

// EmailToID maps an email address to its user id
func (g *Service) EmailToID(ctx context.Context, email string) (uuid.UUID, bool) {
	ud, err := g.store.UserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			g.log.Error("Unable to get matching user from store", zap.Error(err))
		}
		return uuid.UUID{}, false
	}
	return ud.ID, true
}

package cmd

import (
	"context"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/captcha"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/events"
	"github.com/lcampe/guardian/mailing"
	"github.com/lcampe/guardian/security"
	"github.com/lcampe/guardian/verification"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func mustResolveUsableDataStore() *db.DataStore {
	dataStore, err := db.NewStore(TopLevelLogger, LoadedConfig.Database)
	if err != nil {
		TopLevelLogger.Fatal("Failed to create datastore", zap.Error(err))
	}
	err = dataStore.EnsureUsable()
	if err != nil {
		TopLevelLogger.Fatal("Datastore is unusable", zap.Error(err))
	}
	return dataStore
}

func bootstrapDispatcher(auditor db.Auditor) *events.Dispatcher {
	dispatcher := events.NewDispatcher(TopLevelLogger.Named("event_dispatcher"))
	//bootstrap listeners
	dbLayer := db.BootstrapListeners(auditor, TopLevelLogger.Named("event_listener"))
	dispatcher.Register(dbLayer...)
	return dispatcher
}

func mustResolveMailer() *mailing.Mailer {
	mailer, err := mailing.NewMailer(TopLevelLogger.Named("mailer"), LoadedConfig)
	if err != nil {
		TopLevelLogger.Fatal("Failed to create mailer", zap.Error(err))
	}
	return mailer
}

func verificationService(dataStore *db.DataStore) *verification.Service {
	return verification.NewService(
		dataStore,
		TopLevelLogger.Named("verification_service"),
		LoadedConfig.Behaviour,
	)
}

func mailLimiter(dataStore *db.DataStore) *security.MailLimiter {
	return security.NewMailLimiter(
		dataStore,
		TopLevelLogger.Named("mail_limiter"),
		LoadedConfig.Limits,
	)
}

// noSessions satisfies the session revoker where no token service is
// wired, a freshly created account has no sessions to drop
type noSessions struct{}

func (noSessions) RevokeAllForUser(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

func resolveCaptchaStore() captcha.Store {
	if LoadedConfig.Captcha != nil && LoadedConfig.Captcha.Store == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr: LoadedConfig.Captcha.RedisAddr,
		})
		return captcha.NewRedisStore(client)
	}
	return captcha.NewMemoryStore()
}

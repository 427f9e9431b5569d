package config

import (
	"context"
	"fmt"

	"grouphelper/internal/provider"
)

// SecretAccessor reads a secret payload by resource name.
type SecretAccessor interface {
	Access(ctx context.Context, name string) (string, error)
}

// IsSecretRef reports whether v names a Secret Manager version
// (gsm:projects/<p>/secrets/<s>/versions/<v>) instead of holding a value.
func IsSecretRef(v string) bool { return provider.IsSecretRef(v) }

// secretFields lists every config value that may hold a credential, keyed by
// its config path.
func secretFields(cfg *Config) map[string]*string {
	return map[string]*string{
		"telegram.token":          &cfg.Telegram.Token,
		"telegram.webhook.secret": &cfg.Telegram.Webhook.Secret,
		"imgur.clientId":          &cfg.Imgur.ClientID,
		"currency.apiKey":         &cfg.Currency.APIKey,
		"tts.apiKey":              &cfg.TTS.APIKey,
	}
}

// HasSecretRefs reports whether any credential is a Secret Manager reference.
func HasSecretRefs(cfg *Config) bool {
	for _, v := range secretFields(cfg) {
		if IsSecretRef(*v) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every gsm: reference with the secret's payload.
func ResolveSecrets(ctx context.Context, cfg *Config, sa SecretAccessor) error {
	for path, v := range secretFields(cfg) {
		if !IsSecretRef(*v) {
			continue
		}
		val, err := sa.Access(ctx, *v)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		*v = val
	}
	return nil
}

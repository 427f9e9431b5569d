package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

// SecretRefPrefix marks a config value that names a Secret Manager version
// instead of holding the secret itself.
const SecretRefPrefix = "gsm:"

// SecretsConfig configures the Secret Manager client. Credentials come from
// Application Default Credentials unless HTTPClient is set.
type SecretsConfig struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// SecretManager reads secret payloads from Google Secret Manager.
type SecretManager struct {
	svc    *secretmanager.Service
	logger *slog.Logger
}

func NewSecretManager(ctx context.Context, cfg SecretsConfig) (*SecretManager, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	svc, err := secretmanager.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	return &SecretManager{svc: svc, logger: cfg.Logger}, nil
}

// IsSecretRef reports whether v is a Secret Manager reference.
func IsSecretRef(v string) bool {
	return strings.HasPrefix(v, SecretRefPrefix)
}

// Access returns the payload of a secret version. name is either a full
// resource name (projects/p/secrets/s/versions/v) or a gsm: reference to one.
func (m *SecretManager) Access(ctx context.Context, name string) (string, error) {
	name = strings.TrimPrefix(name, SecretRefPrefix)
	if !strings.HasPrefix(name, "projects/") || !strings.Contains(name, "/secrets/") {
		return "", fmt.Errorf("invalid secret version name %q", name)
	}
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}

	resp, err := m.svc.Projects.Secrets.Versions.Access(name).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	if resp.Payload == nil {
		return "", fmt.Errorf("access secret %s: empty payload", name)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return "", fmt.Errorf("decode secret %s: %w", name, err)
	}
	m.logger.Debug("secret resolved", "name", name)
	return strings.TrimSpace(string(data)), nil
}

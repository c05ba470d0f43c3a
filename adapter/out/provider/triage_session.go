package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"triage_server/core/port/out"
	"triage_server/pkg/apperr"
)

// Credential file names inside the credentials directory. Tokens are kept
// per scope so read and send sessions can be granted independently.
const (
	credentialsFile = "credentials.json"
	readTokenFile   = "token_read.json"
	sendTokenFile   = "token_send.json"
)

// FileSessionProvider implements out.SessionProvider from OAuth files on
// disk. Refreshed tokens are written back so the next start reuses them.
type FileSessionProvider struct {
	dir string
	log zerolog.Logger
}

func NewFileSessionProvider(dir string, log zerolog.Logger) *FileSessionProvider {
	return &FileSessionProvider{
		dir: dir,
		log: log.With().Str("component", "session_provider").Logger(),
	}
}

// AcquireReadSession builds a mailbox reader from the read-scope token.
func (p *FileSessionProvider) AcquireReadSession(ctx context.Context) (out.MailboxReader, error) {
	svc, err := p.acquireService(ctx, readTokenFile, gmail.GmailReadonlyScope, gmail.GmailModifyScope)
	if err != nil {
		return nil, err
	}
	return NewGmailMailbox(svc, p.log), nil
}

// AcquireSendSession builds a mailbox sender from the send-scope token.
func (p *FileSessionProvider) AcquireSendSession(ctx context.Context) (out.MailboxSender, error) {
	svc, err := p.acquireService(ctx, sendTokenFile, gmail.GmailSendScope)
	if err != nil {
		return nil, err
	}
	return NewGmailMailbox(svc, p.log), nil
}

func (p *FileSessionProvider) acquireService(ctx context.Context, tokenFile string, scopes ...string) (*gmail.Service, error) {
	config, err := p.loadOAuthConfig(scopes)
	if err != nil {
		return nil, err
	}

	tokenPath := filepath.Join(p.dir, tokenFile)
	token, err := loadToken(tokenPath)
	if err != nil {
		return nil, apperr.AuthFailed(fmt.Sprintf("token file %s unusable", tokenFile), err)
	}

	src := config.TokenSource(ctx, token)
	fresh, err := src.Token()
	if err != nil {
		return nil, apperr.TokenExpired(fmt.Sprintf("token %s could not be refreshed", tokenFile), err)
	}

	// Persist a refreshed token so restarts skip the refresh round trip.
	if fresh.AccessToken != token.AccessToken {
		if err := saveToken(tokenPath, fresh); err != nil {
			p.log.Warn().Str("file", tokenFile).Err(err).Msg("failed to persist refreshed token")
		} else {
			p.log.Debug().Str("file", tokenFile).Msg("persisted refreshed token")
		}
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(fresh, src)))
	if err != nil {
		return nil, apperr.AuthFailed("failed to create gmail service", err)
	}
	return svc, nil
}

func (p *FileSessionProvider) loadOAuthConfig(scopes []string) (*oauth2.Config, error) {
	credPath := filepath.Join(p.dir, credentialsFile)
	data, err := os.ReadFile(credPath)
	if err != nil {
		return nil, apperr.AuthFailed("credentials file missing", err)
	}

	config, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, apperr.AuthFailed("credentials file malformed", err)
	}
	return config, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

var _ out.SessionProvider = (*FileSessionProvider)(nil)

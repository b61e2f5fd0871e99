package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sparklabs/sparksearch/internal/config"
	"github.com/sparklabs/sparksearch/internal/filter"
	"github.com/sparklabs/sparksearch/internal/store"
	"github.com/sparklabs/sparksearch/internal/tabular"
)

// testConfig returns a config with the defaults the tests rely on, without
// touching the environment.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.Username = "Admin"
	cfg.Auth.Password = "Admin@123"
	cfg.Auth.SessionTTL = time.Hour
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.Upload.Timeout = time.Minute
	return cfg
}

// fakeStore is a scriptable store.Store for service tests.
type fakeStore struct {
	ingestErr  error
	ingested   []string
	searchTbl  *tabular.Table
	searchErr  error
	columns    []store.Column
	columnsErr error
	stats      map[string]tabular.ColumnStats
}

func (f *fakeStore) Ingest(ctx context.Context, path string) (store.IngestResult, error) {
	f.ingested = append(f.ingested, path)
	if f.ingestErr != nil {
		return store.IngestResult{}, f.ingestErr
	}
	return store.IngestResult{Rows: 1, Message: "ok"}, nil
}

func (f *fakeStore) Search(ctx context.Context, spec filter.Spec) (*tabular.Table, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchTbl, nil
}

func (f *fakeStore) ColumnStats(ctx context.Context, column string) (tabular.ColumnStats, error) {
	if stats, ok := f.stats[column]; ok {
		return stats, nil
	}
	return tabular.ColumnStats{}, errors.New("no stats")
}

func (f *fakeStore) Columns(ctx context.Context) ([]store.Column, error) {
	if f.columnsErr != nil {
		return nil, f.columnsErr
	}
	return f.columns, nil
}

func (f *fakeStore) Close() error { return nil }

func TestLogin(t *testing.T) {
	svc := NewService(nil, testConfig())

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "valid credentials", username: "Admin", password: "Admin@123"},
		{name: "wrong password", username: "Admin", password: "nope", wantErr: true},
		{name: "wrong username", username: "admin", password: "Admin@123", wantErr: true},
		{name: "both empty", username: "", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := svc.Login(tt.username, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if sess.ID == "" || !sess.LoggedIn {
				t.Error("Login() returned incomplete session")
			}

			got, ok := svc.Session(sess.ID)
			if !ok || got.ID != sess.ID {
				t.Error("Session() cannot find freshly created session")
			}
		})
	}
}

func TestLogout(t *testing.T) {
	svc := NewService(nil, testConfig())

	sess, err := svc.Login("Admin", "Admin@123")
	if err != nil {
		t.Fatal(err)
	}

	svc.Logout(sess.ID)
	if _, ok := svc.Session(sess.ID); ok {
		t.Error("session still resolvable after logout")
	}

	// Unknown IDs are a no-op.
	svc.Logout("does-not-exist")
}

func TestSessionExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.SessionTTL = -time.Second
	svc := NewService(nil, cfg)

	sess, err := svc.Login("Admin", "Admin@123")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := svc.Session(sess.ID); ok {
		t.Error("expired session should not resolve")
	}
}

func TestSessionUnknownID(t *testing.T) {
	svc := NewService(nil, testConfig())
	if _, ok := svc.Session("nope"); ok {
		t.Error("unknown session ID should not resolve")
	}
}

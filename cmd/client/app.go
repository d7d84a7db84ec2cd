package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/HomeKeeper/internal/client/encryptor"
	"github.com/atinyakov/HomeKeeper/internal/client/prefs"
	"github.com/atinyakov/HomeKeeper/internal/client/remote"
	"github.com/atinyakov/HomeKeeper/internal/client/storage"
	"github.com/atinyakov/HomeKeeper/internal/config"
	"github.com/atinyakov/HomeKeeper/internal/logger"
)

// closeTimeout bounds the final publish on exit.
const closeTimeout = 20 * time.Second

// app holds what every command needs. A shell session keeps one store open
// across commands.
type app struct {
	cfgPath string
	watch   string

	opts *config.ClientOptions
	log  *zap.Logger
	out  io.Writer
	in   io.Reader

	// connect overrides the endpoint connector, used by tests.
	connect prefs.Connector

	store   *prefs.Store
	closers []func() error
}

// load reads the configuration and sets up logging. It is idempotent.
func (a *app) load() error {
	if a.opts != nil {
		return nil
	}
	opts, err := config.LoadClient(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	l := logger.New()
	if err := l.Init(opts.LogLevel); err != nil {
		return err
	}
	a.opts, a.log = opts, l.Log
	return nil
}

// identity returns the key pair identity, or a public-only identity for a
// --watch session.
func (a *app) identity() (encryptor.Identity, error) {
	if a.watch != "" {
		if err := validate.Var(a.watch, "hexadecimal,len=64"); err != nil {
			return encryptor.Identity{}, fmt.Errorf("invalid public id %q", a.watch)
		}
		return encryptor.PublicOnly(a.watch), nil
	}
	kp, err := encryptor.LoadKeyPair(a.opts.KeyPath)
	if errors.Is(err, os.ErrNotExist) {
		return encryptor.Identity{}, errors.New("no identity yet, run 'homekeeper keygen' first")
	}
	if err != nil {
		return encryptor.Identity{}, err
	}
	return kp.Identity(), nil
}

func (a *app) backend() (storage.Backend, error) {
	switch a.opts.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(a.opts.DataDir, 0700); err != nil {
			return nil, err
		}
		b, err := storage.OpenSQLite(filepath.Join(a.opts.DataDir, "preferences.db"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b.Close)
		return b, nil
	default:
		return storage.NewFileBackend(filepath.Join(a.opts.DataDir, "preferences"))
	}
}

// httpClient returns the mTLS client when the identity is registered, else
// a client that only trusts the configured CA, else the default client.
func (a *app) httpClient() *http.Client {
	certFile := filepath.Join(a.opts.DataDir, remote.ClientCertFile)
	keyFile := filepath.Join(a.opts.DataDir, remote.ClientKeyFile)
	client, err := remote.LoadClientCertificate(certFile, keyFile, a.opts.CAPath)
	if err != nil {
		a.log.Debug("no client certificate, using default transport", zap.Error(err))
		return nil
	}
	return client
}

// connector dials the configured endpoints plus the private relays carried
// in the preferences themselves.
func (a *app) connector() prefs.Connector {
	if a.connect != nil {
		return a.connect
	}
	return func(ctx context.Context, privateRelays []string) (remote.Log, error) {
		endpoints := a.opts.Endpoints()
		for _, r := range privateRelays {
			if !slices.Contains(endpoints, r) {
				endpoints = append(endpoints, r)
			}
		}
		if len(endpoints) == 0 {
			return nil, remote.ErrNoEndpoints
		}
		client := a.httpClient()
		return remote.Dial(ctx, endpoints, remote.Options{
			HTTPClient: client,
			WSDialer:   remote.WSDialer(client),
			Logger:     a.log,
		})
	}
}

// openStore opens the preference store once per process.
func (a *app) openStore(ctx context.Context) (*prefs.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if err := a.load(); err != nil {
		return nil, err
	}
	id, err := a.identity()
	if err != nil {
		return nil, err
	}
	backend, err := a.backend()
	if err != nil {
		return nil, err
	}
	store, err := prefs.Open(ctx, prefs.Options{
		Identity:       id,
		Backend:        backend,
		Connect:        a.connector(),
		Logger:         a.log,
		Debounce:       a.opts.Debounce,
		FetchTimeout:   a.opts.FetchTimeout,
		PublishTimeout: a.opts.PublishTimeout,
		OnPublish: func(err error) {
			if err != nil {
				fmt.Fprintf(a.out, "publish failed: %v\n", err)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// awaitSync waits until the current generation is synced or ctx ends. With
// no reachable endpoint the pass settles right away.
func (a *app) awaitSync(ctx context.Context, store *prefs.Store) {
	done := make(chan struct{})
	var once sync.Once
	unsubscribe := store.Subscribe(func(e prefs.Event) {
		if e.SyncState == prefs.Synced {
			once.Do(func() { close(done) })
		}
	})
	defer unsubscribe()

	if store.SyncState() == prefs.Synced {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// close flushes the pending publish and releases the backend.
func (a *app) close() error {
	var errs []error
	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		errs = append(errs, a.store.Close(ctx))
		a.store = nil
	}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	if a.log != nil {
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}

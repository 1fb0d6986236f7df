package cli

import (
	"fmt"
	"os"

	"github.com/easyfiletransfer/eft/internal/api"
	"github.com/easyfiletransfer/eft/internal/config"
	"github.com/easyfiletransfer/eft/internal/constants"
	"github.com/easyfiletransfer/eft/internal/core"
	"github.com/easyfiletransfer/eft/internal/events"
	"github.com/easyfiletransfer/eft/internal/http"
)

// passwordEnv is read when no --password flag is given.
const passwordEnv = "EFT_PASSWORD"

// loadStore reads the settings file and applies the global flag overrides.
// Overrides are not saved.
func loadStore() (*config.Store, error) {
	store, err := config.LoadStore(cfgFile)
	if err != nil {
		return nil, err
	}

	store.Update(func(s *config.Settings) {
		if serverURL != "" {
			s.ServerURL = serverURL
		}
		if username != "" {
			s.Username = username
		}
		if password != "" {
			s.Password = password
		} else if env := os.Getenv(passwordEnv); env != "" {
			s.Password = env
		}
	})
	return store, nil
}

// session is everything a command needs to talk to the server.
type session struct {
	store  *config.Store
	engine *core.Engine
	bus    *events.EventBus
}

func (s *session) Close() {
	s.engine.Close()
	s.bus.Close()
}

// openSession loads the settings, prompts for a missing password when
// stdin is a terminal, and builds the engine. It does not log in.
func openSession() (*session, error) {
	log := GetLogger()

	store, err := loadStore()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	creds := store.Credentials()
	if creds.Password == "" && creds.Username != "" && stdinIsTerminal() {
		pw, err := promptPassword(fmt.Sprintf("Password for %s: ", creds.Username))
		if err != nil {
			return nil, err
		}
		store.Update(func(s *config.Settings) { s.Password = pw })
	}
	if http.NeedsProxyPassword(store.Settings().Proxy) && stdinIsTerminal() {
		pw, err := promptPassword("Proxy password: ")
		if err != nil {
			return nil, err
		}
		store.Update(func(s *config.Settings) { s.Proxy.Password = pw })
	}

	client, err := api.NewClient(store, store.Settings().Proxy, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	return &session{
		store:  store,
		engine: core.NewEngine(store, client, bus, log),
		bus:    bus,
	}, nil
}

// loginSession opens a session and logs in, which also fills the catalog.
func loginSession() (*session, error) {
	s, err := openSession()
	if err != nil {
		return nil, err
	}
	if err := s.engine.Login(GetContext()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Package cli provides configuration management commands.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easyfiletransfer/eft/internal/config"
	"github.com/easyfiletransfer/eft/internal/constants"
	"github.com/easyfiletransfer/eft/internal/http"
	"github.com/easyfiletransfer/eft/internal/pathutil"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the saved session",
		Long: `Manage the saved session: server URL, login, proxy and staging directory.

Commands:
  init  - Interactive setup
  show  - Display current settings
  set   - Change one setting
  test  - Log in with the current settings
  path  - Show settings file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func settingsPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultSettingsPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize settings interactively",
		Long: `Interactive setup of the saved session.

Use --force to overwrite existing settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()
			path := settingsPath()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Printf("Settings already exist at: %s\n", path)
					fmt.Println("Use --force to overwrite or run 'config show' to view them.")
					return nil
				}
			}

			fmt.Println("EasyFileTransfer Setup")
			fmt.Println("======================")
			fmt.Println()

			reader := bufio.NewReader(os.Stdin)
			var s config.Settings

			for !config.IsValidServerURL(s.ServerURL) {
				s.ServerURL = promptLine(reader, "Server URL (http or https, required)", "")
				if !config.IsValidServerURL(s.ServerURL) {
					fmt.Println("  Error: enter a full http:// or https:// URL")
				}
			}
			if !config.IsSecureServerURL(s.ServerURL) {
				fmt.Println("  Warning: the password will be sent unencrypted over http.")
			}

			s.Username = promptLine(reader, "Username", "")
			if stdinIsTerminal() {
				pw, err := promptPassword("Password: ")
				if err != nil {
					return err
				}
				s.Password = pw
			} else {
				s.Password = promptLine(reader, "Password", "")
			}

			s.StagingDir = promptLine(reader, "Staging directory", config.DefaultStagingDirectory())

			fmt.Println()
			s.Proxy.Mode = "no-proxy"
			if confirm(reader, "Configure proxy?") {
				fmt.Println("Proxy modes: no-proxy, system, basic, ntlm")
				s.Proxy.Mode = promptLine(reader, "Proxy mode", "system")
				if s.Proxy.Mode == "basic" || s.Proxy.Mode == "ntlm" {
					s.Proxy.Host = promptLine(reader, "Proxy host", "")
					port := promptLine(reader, "Proxy port", strconv.Itoa(constants.DefaultProxyPort))
					if v, err := strconv.Atoi(port); err == nil && v > 0 {
						s.Proxy.Port = v
					}
					s.Proxy.User = promptLine(reader, "Proxy user", "")
					if s.Proxy.User != "" && stdinIsTerminal() {
						pw, err := promptPassword("Proxy password: ")
						if err != nil {
							return err
						}
						s.Proxy.Password = pw
					}
				}
			}

			store := config.NewStore(path, s)
			if err := store.Save(); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			log.Info().Str("path", path).Msg("Settings saved")

			fmt.Println()
			fmt.Printf("✓ Settings saved to: %s\n", path)
			fmt.Println("Test them with: eft config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing settings")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current settings",
		Long: `Display the saved session merged with flag and environment overrides.

Priority: flags > ` + passwordEnv + ` > settings file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			printSettings(cmd.OutOrStdout(), store)
			return nil
		},
	}

	return cmd
}

func printSettings(w io.Writer, store *config.Store) {
	s := store.Settings()

	fmt.Fprintln(w, "Current Settings")
	fmt.Fprintln(w, "================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Server:")
	fmt.Fprintf(w, "  URL:      %s\n", valueOrUnset(s.ServerURL))
	fmt.Fprintf(w, "  Username: %s\n", valueOrUnset(s.Username))
	fmt.Fprintf(w, "  Password: %s\n", valueOrUnset(s.Masked()))
	if s.ServerURL != "" && !s.IsSecure() {
		fmt.Fprintln(w, "  Warning:  not https; the password is sent unencrypted")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Proxy:")
	mode := s.Proxy.Mode
	if mode == "" {
		mode = "no-proxy"
	}
	fmt.Fprintf(w, "  Mode: %s\n", mode)
	if s.Proxy.Host != "" {
		fmt.Fprintf(w, "  Host: %s\n", s.Proxy.Host)
		fmt.Fprintf(w, "  Port: %d\n", s.Proxy.Port)
	}
	if s.Proxy.User != "" {
		fmt.Fprintf(w, "  User: %s\n", s.Proxy.User)
		if http.NeedsProxyPassword(s.Proxy) {
			fmt.Fprintln(w, "  Password: <not set>")
		}
	}
	if s.Proxy.NoProxy != "" {
		fmt.Fprintf(w, "  Bypass: %s\n", s.Proxy.NoProxy)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Staging directory: %s\n", store.StagingDir())
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Settings file: %s\n", store.Path())
	if _, err := os.Stat(store.Path()); os.IsNotExist(err) {
		fmt.Fprintln(w, "  (file does not exist)")
	}
}

func valueOrUnset(v string) string {
	if v == "" {
		return "<not set>"
	}
	return v
}

// settingKeys maps 'config set' keys to setters.
var settingKeys = map[string]func(*config.Settings, string) error{
	"server.url": func(s *config.Settings, v string) error {
		if !config.IsValidServerURL(v) {
			return config.ErrInvalidServerURL
		}
		s.ServerURL = strings.TrimSpace(v)
		return nil
	},
	"server.username": func(s *config.Settings, v string) error { s.Username = v; return nil },
	"server.password": func(s *config.Settings, v string) error { s.Password = v; return nil },
	"staging.dir": func(s *config.Settings, v string) error {
		dir, err := pathutil.ResolveAbsolutePath(v)
		if err != nil {
			return fmt.Errorf("invalid staging directory %q: %w", v, err)
		}
		s.StagingDir = dir
		return nil
	},
	"network.proxy_mode": func(s *config.Settings, v string) error {
		switch v {
		case "no-proxy", "system", "basic", "ntlm":
			s.Proxy.Mode = v
			return nil
		}
		return fmt.Errorf("invalid proxy mode %q (use no-proxy, system, basic or ntlm)", v)
	},
	"network.proxy_host": func(s *config.Settings, v string) error { s.Proxy.Host = v; return nil },
	"network.proxy_port": func(s *config.Settings, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("invalid proxy port %q", v)
		}
		s.Proxy.Port = port
		return nil
	},
	"network.proxy_user":     func(s *config.Settings, v string) error { s.Proxy.User = v; return nil },
	"network.proxy_password": func(s *config.Settings, v string) error { s.Proxy.Password = v; return nil },
	"network.no_proxy":       func(s *config.Settings, v string) error { s.Proxy.NoProxy = v; return nil },
	"network.proxy_warmup": func(s *config.Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		s.Proxy.Warmup = b
		return nil
	},
}

// applySetting sets one key on s.
func applySetting(s *config.Settings, key, value string) error {
	set, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(settingNames(), ", "))
	}
	return set(s, value)
}

func settingNames() []string {
	names := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: `Change one setting in the settings file.

Keys:
  ` + strings.Join(settingNames(), "\n  "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := settingsPath()
			store, err := config.LoadStore(path)
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			var setErr error
			store.Update(func(s *config.Settings) {
				setErr = applySetting(s, args[0], args[1])
			})
			if setErr != nil {
				return setErr
			}

			if err := store.Save(); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ %s updated in %s\n", args[0], path)
			if args[0] == "server.url" && !config.IsSecureServerURL(args[1]) {
				fmt.Fprintln(out, "  Warning: the server URL is not https; the password is sent unencrypted.")
			}
			return nil
		},
	}

	return cmd
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the server connection",
		Long:  `Log in with the current settings and fetch the file list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Testing server connection...")
			s, err := loginSession()
			if err != nil {
				log.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}
			defer s.Close()

			fmt.Fprintln(out, "✓ Connection SUCCESSFUL")
			fmt.Fprintf(out, "  %d file(s) on the server\n", s.engine.Catalog().Len())
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show settings file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), settingsPath())
			return nil
		},
	}

	return cmd
}

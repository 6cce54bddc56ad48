// Command creatorctl es el cliente de terminal: login (OAuth o email), sesión
// persistida, deep links y las generaciones de IA contra el gateway.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/creatorverse/internal/auth"
	"github.com/dropDatabas3/creatorverse/internal/config"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = os.Getenv("CONFIG_PATH")
		verbose    bool
		a          *app
	)

	root := &cobra.Command{
		Use:           "creatorctl",
		Short:         "Cliente de terminal de Creatorverse",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger.Init(logger.Config{Env: "dev", Level: level, ServiceName: "creatorctl"})

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			a, err = newApp(ctx, cfg, os.Stdin, os.Stdout, os.Stderr, logger.L())
			if err != nil {
				return err
			}
			a.logDebug("session restored", logger.State(a.coord.State().String()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "YAML config opcional (env CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "logs de debug a stderr")

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Login OAuth: abre el consentimiento y lee la URL de redirect pegada",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.coord.Login(cmd.Context()); err != nil {
				if errors.Is(err, auth.ErrLoginCancelled) {
					fmt.Fprintln(a.out, "login cancelled")
					return nil
				}
				return err
			}
			return a.printUser()
		},
	}

	var email, password, name string
	loginEmailCmd := &cobra.Command{
		Use:   "login-email",
		Short: "Login con email y password",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordOrPrompt(password)
			if err != nil {
				return err
			}
			if err := a.coord.LoginWithEmail(cmd.Context(), email, pw); err != nil {
				return err
			}
			return a.printUser()
		},
	}
	loginEmailCmd.Flags().StringVar(&email, "email", "", "email de la cuenta")
	loginEmailCmd.Flags().StringVar(&password, "password", "", "password (si falta se pide por stdin)")

	signupCmd := &cobra.Command{
		Use:   "signup",
		Short: "Crear cuenta con email y password",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordOrPrompt(password)
			if err != nil {
				return err
			}
			res, err := a.coord.SignUpWithEmail(cmd.Context(), email, pw, name)
			if err != nil {
				return err
			}
			if res.ConfirmationRequired {
				fmt.Fprintf(a.out, "check %s to confirm your account, then run: creatorctl login-email\n", res.Email)
				return nil
			}
			return a.printUser()
		},
	}
	signupCmd.Flags().StringVar(&email, "email", "", "email de la cuenta")
	signupCmd.Flags().StringVar(&password, "password", "", "password (si falta se pide por stdin)")
	signupCmd.Flags().StringVar(&name, "name", "", "nombre para mostrar")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Cerrar sesión (local y en el provider)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.coord.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "signed out")
			return nil
		},
	}

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Mostrar el usuario actual",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.coord.State() == auth.Authenticated {
				if err := a.coord.RefreshUser(cmd.Context()); err != nil {
					a.logDebug("refresh user failed", logger.Err(err))
				}
			}
			return a.printUser()
		},
	}

	openURLCmd := &cobra.Command{
		Use:   "open-url <url>",
		Short: "Entregar un deep link (p.ej. frontend://auth#access_token=...) como lo haría el sistema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.coord.HandleURL(args[0])
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			err := a.waitFor(ctx, func(s auth.Snapshot) bool { return s.State == auth.Authenticated && !s.Loading })
			if err != nil {
				return fmt.Errorf("link not accepted (disallowed scheme or no tokens): %w", err)
			}
			return a.printUser()
		},
	}

	var prompt string
	scriptCmd := &cobra.Command{
		Use:   "generate-script",
		Short: "Generar un script con IA",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := a.accessToken(cmd.Context())
			if err != nil {
				return err
			}
			script, err := a.gateway.GenerateScript(cmd.Context(), tok, prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, script)
			return nil
		},
	}
	scriptCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "prompt para el script")

	ideasCmd := &cobra.Command{
		Use:   "generate-ideas",
		Short: "Generar 60 ideas a partir del Creator Universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := a.accessToken(cmd.Context())
			if err != nil {
				return err
			}
			ideas, err := a.gateway.GenerateIdeas(cmd.Context(), tok)
			if err != nil {
				return err
			}
			for i, idea := range ideas {
				fmt.Fprintf(a.out, "%d. %s\n", i+1, idea)
			}
			return nil
		},
	}

	root.AddCommand(loginCmd, loginEmailCmd, signupCmd, logoutCmd, whoamiCmd, openURLCmd, scriptCmd, ideasCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		stop()
		os.Exit(1)
	}
}

func passwordOrPrompt(pw string) (string, error) {
	if pw != "" {
		return pw, nil
	}
	if env := os.Getenv("CREATORVERSE_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

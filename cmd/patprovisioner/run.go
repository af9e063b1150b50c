package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/bndr/gotabulate"
	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/tableau-pat-provisioner/internal/config"
	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/internal/logging"
	"github.com/jrsteele09/tableau-pat-provisioner/provisioner"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/tableau"
	"github.com/jrsteele09/tableau-pat-provisioner/token"
	"github.com/jrsteele09/tableau-pat-provisioner/users"
	"github.com/jrsteele09/tableau-pat-provisioner/vizportal"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// stdout and stderr are swapped out in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func run(ctx context.Context, opts *options) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logFile := firstNonEmpty(opts.logFile, cfg.GetLogFile())
	level := cfg.GetLogLevel()
	if opts.debug {
		level = "debug"
	}
	logger, closer, err := logging.New(logFile, level)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := ensurePassword(cfg); err != nil {
		logger.Error().Err(err).Msg("No admin password")
		return err
	}

	if !opts.quiet {
		displayAppname(config.GetAppName())
	}

	service, err := newService(cfg, firstNonEmpty(opts.outputFile, cfg.GetOutputFile()), logger, opts.quiet)
	if err != nil {
		logger.Error().Err(err).Msg("Setup failed")
		return err
	}

	logger.Info().Str("config", opts.configPath).Str("server", cfg.GetServerURL()).Str("site", cfg.GetSiteName()).Msg("Starting")
	summary, err := service.Run(ctx, cfg.Users)
	if !opts.quiet && summary != nil && len(summary.Records) > 0 {
		fmt.Fprintln(stdout, renderSummary(summary))
	}
	if err != nil {
		logger.Error().Err(err).Int("tokens_written", len(summary.Records)).Msg("Run aborted")
		return err
	}
	return nil
}

// newService wires the REST client, the vizportal adapter and the file recorder.
func newService(cfg *config.Config, outputFile string, logger zerolog.Logger, quiet bool) (*provisioner.Service, error) {
	rest, err := tableau.NewClient(cfg.GetServerURL(), cfg.GetAPIVersion(), cfg.GetVerify(),
		tableau.WithLogger(logger.With().Str("component", "rest").Logger()),
		tableau.WithTimeout(cfg.GetHTTPTimeout()),
	)
	if err != nil {
		return nil, err
	}
	viz, err := vizportal.NewClient(rest.ServerAddress(),
		vizportal.WithLogger(logger.With().Str("component", "vizportal").Logger()),
		vizportal.WithTimeout(cfg.GetHTTPTimeout()),
	)
	if err != nil {
		return nil, err
	}

	manager, err := sessions.NewManager(rest, sessions.Credentials{
		Username: cfg.Tableau.Username,
		Password: cfg.Tableau.Password,
		Site:     cfg.GetSiteName(),
	}, sessions.WithLogger(logger.With().Str("component", "sessions").Logger()))
	if err != nil {
		return nil, err
	}

	policy, err := users.ParseDuplicatePolicy(cfg.GetDuplicateUsers())
	if err != nil {
		return nil, apperrors.Mark(err, apperrors.ErrConfig)
	}
	resolver, err := users.NewResolver(rest,
		users.WithDuplicatePolicy(policy),
		users.WithLogger(logger.With().Str("component", "users").Logger()),
	)
	if err != nil {
		return nil, err
	}

	minter, err := token.New(viz, token.NewFileRecorder(outputFile),
		token.WithLogger(logger.With().Str("component", "token").Logger()),
	)
	if err != nil {
		return nil, err
	}

	serviceOptions := []provisioner.ServiceOption{provisioner.WithLogger(logger)}
	if !quiet {
		var bar *progressbar.ProgressBar
		serviceOptions = append(serviceOptions,
			provisioner.WithResolvedHook(func(resolved []users.ResolvedUser) {
				for _, u := range resolved {
					fmt.Fprintf(stdout, "Found user %s with id %s\n", u.Username, u.UserID)
				}
				bar = progressbar.NewOptions(len(resolved),
					progressbar.OptionSetWriter(stderr),
					progressbar.OptionSetDescription("Creating tokens"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}),
			provisioner.WithProgress(func(done, total int, _ token.PatRecord) {
				if bar == nil {
					return
				}
				bar.Add(1)
				if done == total {
					bar.Finish()
				}
			}),
		)
	}
	return provisioner.NewService(provisioner.Deps{
		Sessions: manager,
		Users:    resolver,
		Tokens:   minter,
	}, serviceOptions...)
}

// ensurePassword prompts for the admin password when neither the config file nor the
// environment supplied one and stdin is a terminal.
func ensurePassword(cfg *config.Config) error {
	if cfg.Tableau.Password != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("%w: tableau.password is empty and TABLEAU_PASSWORD is not set", apperrors.ErrConfig)
	}
	fmt.Fprintf(stderr, "Password for %s: ", cfg.Tableau.Username)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return apperrors.Mark(fmt.Errorf("reading password: %w", err), apperrors.ErrConfig)
	}
	if len(password) == 0 {
		return fmt.Errorf("%w: empty password", apperrors.ErrConfig)
	}
	cfg.Tableau.Password = string(password)
	return nil
}

// renderSummary tabulates the tokens created in this run without their secret values.
func renderSummary(summary *provisioner.Summary) string {
	usernames := make(map[string]string, len(summary.Resolved))
	for _, u := range summary.Resolved {
		usernames[u.UserID] = u.Username
	}
	rows := make([][]string, 0, len(summary.Records))
	for _, r := range summary.Records {
		rows = append(rows, []string{usernames[r.UserID], r.UserID, r.TokenName})
	}
	t := gotabulate.Create(rows)
	t.SetHeaders([]string{"Username", "User ID", "Token name"})
	t.SetAlign("left")
	return t.Render("grid")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

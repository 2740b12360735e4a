// coachctl talks to the coaching dispatcher from a terminal.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/crickmate/coach/internal/app"
	"github.com/crickmate/coach/internal/config"
	"github.com/crickmate/coach/internal/domain"
	"github.com/crickmate/coach/internal/intent"
)

// options carries flag values and injectable IO.
type options struct {
	userID  string
	mode    string
	verbose bool
	profile domain.Profile

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&options{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:          "coachctl",
		Short:        "coachctl - cricket coaching chat from the terminal",
		SilenceUsage: true,
	}
	root.SetIn(opts.stdin)
	root.SetOut(opts.stdout)
	root.SetErr(opts.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.userID, "user", "cli", "session user id")
	pf.StringVar(&opts.mode, "mode", "", "dispatch mode: segmented or assisted (default from DISPATCH_MODE)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	pf.StringVar(&opts.profile.PlayingRole, "role", "top order batsman", "playing role")
	pf.IntVar(&opts.profile.Age, "age", 18, "age in years")
	pf.IntVar(&opts.profile.HeightCM, "height", 170, "height in cm")
	pf.IntVar(&opts.profile.WeightKG, "weight", 65, "weight in kg")
	pf.StringVar(&opts.profile.SkillLevel, "skill", domain.SkillBeginner, "skill level")

	root.AddCommand(newChatCmd(opts), newAskCmd(opts), newServeIntentCmd(opts))
	return root
}

func (o *options) logger() *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(o.stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// session builds the dispatcher core for a command run.
func (o *options) session(ctx context.Context) (*app.Core, *domain.Profile, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	p := o.profile
	p.UserID = o.userID
	if err := domain.ValidateProfile(&p); err != nil {
		return nil, nil, err
	}
	core, err := app.Build(ctx, cfg, o.mode, o.logger())
	if err != nil {
		return nil, nil, err
	}
	return core, &p, nil
}

func (o *options) reply(ctx context.Context, core *app.Core, p *domain.Profile, text string) error {
	env := core.Dispatcher.Process(ctx, o.userID, p, text)
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	_, err = fmt.Fprintln(o.stdout, string(data))
	return err
}

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, p, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer core.Close()
			return opts.reply(cmd.Context(), core, p, strings.Join(args, " "))
		},
	}
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive coaching session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			core, p, err := opts.session(ctx)
			if err != nil {
				return err
			}
			defer core.Close()

			fmt.Fprintf(opts.stdout, "crickmate coach (%s mode, type 'exit' to quit)\n", core.Dispatcher.Mode())
			scanner := bufio.NewScanner(opts.stdin)
			for {
				fmt.Fprint(opts.stdout, "\n> ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}
				if input == "exit" || input == "quit" {
					break
				}
				if err := opts.reply(ctx, core, p, input); err != nil {
					fmt.Fprintf(opts.stderr, "Error: %v\n", err)
				}
			}
			return scanner.Err()
		},
	}
}

func newServeIntentCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-intent",
		Short: "Serve the Gemini intent classifier over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Classifier.APIKey == "" {
				return errors.New("GOOGLE_API_KEY is required to serve the classifier")
			}
			logger := opts.logger()

			var c intent.Classifier
			g, err := intent.NewGemini(ctx, intent.GeminiConfig{
				APIKey:  cfg.Classifier.APIKey,
				Model:   cfg.Classifier.Model,
				Timeout: cfg.Classifier.Timeout,
			}, logger)
			if err != nil {
				return err
			}
			c = g
			if cfg.Classifier.CacheSize > 0 {
				if c, err = intent.NewCached(g, cfg.Classifier.CacheSize); err != nil {
					return err
				}
			}

			lis, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			srv := grpc.NewServer()
			intent.RegisterServer(srv, c)

			go func() {
				<-ctx.Done()
				srv.GracefulStop()
			}()
			fmt.Fprintf(opts.stdout, "intent classifier listening on %s\n", lis.Addr())
			return srv.Serve(lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":50051", "listen address")
	return cmd
}

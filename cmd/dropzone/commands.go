package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-dropzone/pkg/dropzone"
	"github.com/tendant/simple-dropzone/pkg/dropzone/config"
)

func addHostFlags(cmd *cobra.Command, f *hostFlags) {
	cmd.Flags().StringVar(&f.domain, "domain", "", "SharePoint site domain of the channel")
	cmd.Flags().StringVar(&f.sitePath, "site-path", "", "SharePoint site path of the channel")
	cmd.Flags().StringVar(&f.channel, "channel", "", "channel name")
	cmd.Flags().StringVar(&f.entity, "entity", "dropzone-cli", "entity id reported as the identity")
	cmd.Flags().BoolVar(&f.notEmbedded, "not-embedded", false, "behave as if running outside the host application")
	cmd.Flags().StringVar(&f.token, "token", os.Getenv("DROPZONE_TOKEN"), "bearer token (default $DROPZONE_TOKEN)")
	cmd.Flags().StringVar(&f.devSecret, "dev-secret", "", "mint an HS256 token with this secret instead of --token")
	cmd.Flags().StringVar(&f.subject, "subject", "dropzone-cli", "subject of a minted token")
	cmd.Flags().StringVar(&f.name, "name", "", "display name of a minted token")
	cmd.Flags().DurationVar(&f.tokenTTL, "token-ttl", time.Hour, "lifetime of a minted token")
}

// loadConfig reads the config file, then the environment, then the --upload-url flag
func loadConfig(cmd *cobra.Command) (*config.ClientConfig, error) {
	configFile, _ := cmd.Flags().GetString("config")
	uploadURL, _ := cmd.Flags().GetString("upload-url")

	opts := []config.Option{config.WithFile(configFile), config.WithEnv()}
	if uploadURL != "" {
		opts = append(opts, config.WithUploadURL(uploadURL))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// NewDropCommand creates the drop command
func NewDropCommand() *cobra.Command {
	var flags hostFlags

	cmd := &cobra.Command{
		Use:   "drop <file>...",
		Short: "Drop files onto the drop zone",
		Long: `Drop one or more files onto the drop zone. Files whose extension is not
allowed are skipped; the rest are uploaded to the configured endpoint.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cfg.Logger()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			files := make([]dropzone.File, 0, len(args))
			for _, path := range args {
				file, err := dropzone.OpenLocal(path)
				if err != nil {
					return fmt.Errorf("file does not exist: %s", path)
				}
				files = append(files, file)
			}

			session := dropzone.NewSession(flags.host(), cfg.Resource(), dropzone.WithSessionLogger(logger))
			if err := session.Initialize(ctx); err != nil && !errors.Is(err, dropzone.ErrNotEmbedded) {
				return fmt.Errorf("initialization failed: %w", err)
			}
			fmt.Fprintf(out, "Identity: %s\n", session.Identity())
			if name := session.DisplayName(); name != "" {
				fmt.Fprintf(out, "Signed in as: %s\n", name)
			}

			uploader := dropzone.NewHTTPUploader(cfg.Endpoint(), cfg.HTTPClient())
			logger.Debug("Upload endpoint", "endpoint", uploader.Endpoint())

			report := newReportSink(out)
			machine, err := dropzone.New(
				dropzone.WithSession(session),
				dropzone.WithUploader(uploader),
				dropzone.WithExtensionPolicy(cfg.ExtensionPolicy()),
				dropzone.WithEventSink(dropzone.MultiEventSink(dropzone.NewLoggingEventSink(logger), report)),
				dropzone.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			ev := dropzone.NewEvent(files...)
			machine.HandleDragEnter(ev)
			machine.HandleDragOver(ev)
			ids, dropErr := machine.HandleDrop(ctx, ev)
			machine.Wait()

			st := machine.State()
			fmt.Fprintf(out, "Status: %s\n", st.Status)
			if st.URL != "" {
				fmt.Fprintf(out, "URL: %s\n", st.URL)
			}

			switch {
			case dropErr != nil:
				return fmt.Errorf("drop failed: %w", dropErr)
			case len(ids) == 0:
				return errors.New("no file with an allowed extension was dropped")
			case report.failures() > 0:
				return fmt.Errorf("%d of %d uploads failed", report.failures(), len(ids))
			}
			return nil
		},
	}

	addHostFlags(cmd, &flags)
	return cmd
}

// NewTokenCommand creates the token command
func NewTokenCommand() *cobra.Command {
	var secret, subject, name string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token for the reference upload server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			token, err := mintDevToken(secret, cfg.Resource(), subject, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "signing secret (default $JWT_SECRET)")
	cmd.Flags().StringVar(&subject, "subject", "dropzone-cli", "token subject")
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

// reportSink prints one line per file outcome
type reportSink struct {
	dropzone.NoopEventSink

	mu     sync.Mutex
	out    io.Writer
	names  map[dropzone.AttemptID]string
	failed int
}

func newReportSink(out io.Writer) *reportSink {
	return &reportSink{out: out, names: make(map[dropzone.AttemptID]string)}
}

func (r *reportSink) FileSkipped(_ context.Context, filename string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "Skipped %s: extension not allowed\n", filename)
}

func (r *reportSink) TransferStarted(_ context.Context, id dropzone.AttemptID, req dropzone.TransferRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[id] = req.File.Name
}

func (r *reportSink) TransferUploaded(_ context.Context, id dropzone.AttemptID, result dropzone.UploadResult, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "Uploaded %s: %s\n", r.names[id], result.URL)
}

func (r *reportSink) TransferFailed(_ context.Context, id dropzone.AttemptID, err error, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
	fmt.Fprintf(r.out, "Failed %s: %v\n", r.names[id], err)
}

func (r *reportSink) failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

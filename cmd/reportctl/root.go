package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-priority/internal/cache"
	"github.com/spec-kit/ticket-priority/internal/config"
	"github.com/spec-kit/ticket-priority/internal/observability"
	"github.com/spec-kit/ticket-priority/internal/persistence"
	"github.com/spec-kit/ticket-priority/internal/pipeline"
	"github.com/spec-kit/ticket-priority/internal/repository"
	"github.com/spec-kit/ticket-priority/internal/scoring"
	"github.com/spec-kit/ticket-priority/internal/selector"
	"github.com/spec-kit/ticket-priority/internal/service"
)

type options struct {
	source     string
	csvDir     string
	now        string
	techFilter string
	interType  string
	view       string
	pretty     bool
}

// session is a report service plus what must be released after the command.
type session struct {
	service *service.ReportService
	close   func()
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "reportctl",
		Short: "Score open tickets and print dashboard reports as JSON",
		Long: `reportctl runs the scoring pipeline once and prints one report.

Tickets are read from the Postgres views configured by POSTGRES_DSN, or from
semicolon separated exports (tickets.csv, actions.csv, movements.csv).

Examples:
  # Ticket flow of the hotline from CSV exports
  reportctl report ticket_flow --source csv --csv-dir ./exports --inter-type hotline

  # Score of the security tickets handled by one technician
  reportctl report security --view score --tech-filter dupont

  # Workload per technician
  reportctl table technicians`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.source, "source", "", "Ticket source: postgres or csv (default from SOURCE_MODE)")
	flags.StringVar(&opts.csvDir, "csv-dir", "", "Directory of the CSV exports (default from SOURCE_CSV_DIR)")
	flags.StringVar(&opts.now, "now", "", "Reference time as RFC3339, for reproducible reports")
	flags.StringVarP(&opts.techFilter, "tech-filter", "t", "", "Keep tickets whose technician matches this pattern")
	flags.StringVarP(&opts.interType, "inter-type", "i", "", "Intervention type filter (hotline, proxy, incident+hotline, ...)")
	flags.BoolVar(&opts.pretty, "pretty", false, "Indent the JSON output")

	root.AddCommand(
		newReportsCmd(out),
		newReportCmd(out, opts),
		newTableCmd(out, opts),
		newCalendarCmd(out, opts),
	)
	return root
}

func newReportsCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List the report catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(out, service.Reports(), true)
		},
	}
}

func newReportCmd(out io.Writer, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <name>",
		Short: "Render one report of the catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(ctx context.Context, s *session) error {
				res, err := s.service.Report(ctx, service.ReportQuery{
					Name:       service.ReportName(args[0]),
					View:       service.View(opts.view),
					TechFilter: opts.techFilter,
					InterType:  selector.Flow(opts.interType),
				})
				if err != nil {
					return err
				}
				return writeJSON(out, res, opts.pretty)
			})
		},
	}
	cmd.Flags().StringVarP(&opts.view, "view", "v", string(service.ViewDatatable), "datatable, indicator or score")
	return cmd
}

func newTableCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "table <technicians|expiration|suspended-mail>",
		Short:     "Render a dashboard table",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"technicians", "expiration", "suspended-mail"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(ctx context.Context, s *session) error {
				var (
					table any
					err   error
				)
				switch args[0] {
				case "technicians":
					table, err = s.service.TechnicianTable(ctx)
				case "expiration":
					table, err = s.service.ExpirationTable(ctx, selector.Flow(opts.interType), opts.techFilter)
				default:
					table, err = s.service.SuspendedMailTable(ctx, opts.techFilter)
				}
				if err != nil {
					return err
				}
				return writeJSON(out, table, opts.pretty)
			})
		},
	}
}

func newCalendarCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "calendar <rdv|employee-movements>",
		Short:     "Render a dashboard calendar",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"rdv", "employee-movements"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(ctx context.Context, s *session) error {
				var (
					events []service.CalendarEvent
					err    error
				)
				if args[0] == "rdv" {
					events, err = s.service.RDVCalendar(ctx)
				} else {
					events, err = s.service.EmployeeMovementCalendar(ctx)
				}
				if err != nil {
					return err
				}
				return writeJSON(out, events, opts.pretty)
			})
		},
	}
}

func withSession(ctx context.Context, opts *options, fn func(context.Context, *session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(ctx, s)
}

// openSession builds the pipeline from the environment, then applies flag
// overrides. The cache is process local: one command, one fetch.
func openSession(ctx context.Context, opts *options) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.source != "" {
		cfg.Source.Mode = opts.source
	}
	if opts.csvDir != "" {
		cfg.Source.CSVDir = opts.csvDir
	}

	// stdout carries the report.
	cfg.Logger.Output = "stderr"
	cfg.Logger.Encoding = "console"
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Scoring.Location()
	if err != nil {
		return nil, err
	}

	now := time.Now
	if opts.now != "" {
		fixed, err := time.Parse(time.RFC3339, opts.now)
		if err != nil {
			return nil, fmt.Errorf("invalid --now: %w", err)
		}
		now = func() time.Time { return fixed }
	}

	closers := []func(){func() { _ = logger.Sync() }}
	var (
		source          repository.RecordSource
		classifications repository.ClassificationRepository
	)
	switch cfg.Source.Mode {
	case config.SourceCSV:
		csvSource, err := repository.LoadCSVSource(cfg.Source.CSVDir)
		if err != nil {
			return nil, err
		}
		logger.Debug("csv exports loaded", zap.String("dir", filepath.Clean(cfg.Source.CSVDir)))
		source = csvSource
	case config.SourcePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, pg.Close)
		source = repository.NewSourceRepository(pg.PoolHandle(), cfg.Source.RowLimit)
		classifications = repository.NewClassificationRepository(pg.PoolHandle())
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source.Mode)
	}

	vip := selector.NewNameSet(cfg.Scoring.VIPList)
	svc := service.NewReportService(service.ReportDependencies{
		Source:          source,
		Classifications: classifications,
		Coordinator: cache.NewCoordinator(cache.Settings{
			TTL:          cfg.Cache.TTL(),
			MaxWait:      cfg.Cache.MaxWait(),
			PollInterval: cfg.Cache.PollInterval(),
		}, cache.Dependencies{Logger: logger}),
		Normalizer: pipeline.NewNormalizer(loc),
		Engine:     scoring.NewEngine(vip),
		VIP:        vip,
		Sensitive:  selector.NewNameSet(cfg.Scoring.SensitiveList),
		Logger:     logger,
		Now:        now,
	})

	return &session{
		service: svc,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func writeJSON(out io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(out)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

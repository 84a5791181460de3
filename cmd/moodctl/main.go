package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"what-to-do/internal/calendar"
	"what-to-do/internal/config"
	"what-to-do/internal/logger"
	"what-to-do/internal/service"

	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "moodctl",
		Usage: "Maintenance commands for the what-to-do diary",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config file path (e.g. etc/config-dev.yaml)"},
			&cli.BoolFlag{Name: "verbose", Usage: "write logs to stderr"},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			seedCommand(),
			recomputeCommand(),
			rankCommand(),
			digestCommand(),
			summarizeCommand(),
			exportCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

type app struct {
	cfg *config.Config
	db  *gorm.DB
}

func open(ctx context.Context, c *cli.Command) (*app, error) {
	cfg := config.Load(c.String("config"))
	if c.Bool("verbose") {
		logger.InitTo(os.Stderr, cfg.Log.Level)
	} else {
		logger.Discard()
	}
	db, err := cfg.OpenGormDB()
	if err != nil {
		return nil, err
	}
	if err := service.Migrate(ctx, db); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, db: db}, nil
}

func (a *app) userID(ctx context.Context, username string) (int, error) {
	u, err := service.NewAuthService(a.db).ByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("user %q: %w", username, err)
	}
	return u.ID, nil
}

// summaries wires the summary service the same way the server does, minus
// catalog sync.
func (a *app) summaries(ctx context.Context) *service.SummaryService {
	raw, err := a.cfg.NewRawClient()
	if err != nil {
		logger.Warn("sdk client init failed", "err", err)
	}
	ai := service.NewAIService(a.cfg.LLM, raw, a.cfg.MOI)
	return service.NewSummaryService(a.db, service.NewEventService(a.db), ai,
		service.NewSummaryCache(ctx, a.cfg.Redis), a.cfg.LLM.SystemPrompt)
}

var (
	userFlag = &cli.StringFlag{Name: "user", Required: true, Usage: "username"}
	dateFlag = &cli.StringFlag{Name: "date", Usage: "day as YYYY-MM-DD (default today)"}
)

func day(c *cli.Command) (calendar.Day, error) {
	if v := c.String("date"); v != "" {
		if _, err := calendar.Parse(v); err != nil {
			return calendar.Day{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
	}
	return calendar.ResolveDay(c.String("date"), time.Now()), nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(ctx context.Context, c *cli.Command) error {
			if _, err := open(ctx, c); err != nil {
				return err
			}
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Insert the default emotion taxonomy into an empty database",
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := open(ctx, c)
			if err != nil {
				return err
			}
			n, err := service.NewTaxonomyService(a.db).Seed(ctx)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("taxonomy already present, nothing seeded")
				return nil
			}
			fmt.Printf("seeded %d emotions\n", n)
			return nil
		},
	}
}

func recomputeCommand() *cli.Command {
	return &cli.Command{
		Name:  "recompute",
		Usage: "Recompute every stored event score for a user",
		Flags: []cli.Flag{userFlag},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := open(ctx, c)
			if err != nil {
				return err
			}
			uid, err := a.userID(ctx, c.String("user"))
			if err != nil {
				return err
			}
			n, err := service.NewEventService(a.db).RecomputeAll(ctx, uid)
			if err != nil {
				return err
			}
			fmt.Printf("recomputed %d events\n", n)
			return nil
		},
	}
}

func rankCommand() *cli.Command {
	return &cli.Command{
		Name:  "rank",
		Usage: "List a user's activities from most to least enjoyed",
		Flags: []cli.Flag{userFlag},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := open(ctx, c)
			if err != nil {
				return err
			}
			uid, err := a.userID(ctx, c.String("user"))
			if err != nil {
				return err
			}
			ranked, err := service.NewActivityService(a.db).Ranked(ctx, uid)
			if err != nil {
				return err
			}
			for i, r := range ranked {
				fmt.Printf("%2d. %-24s %8.2f\n", i+1, r.Activity.Name, r.Total)
			}
			return nil
		},
	}
}

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:  "digest",
		Usage: "Print the text a day summary is generated from",
		Flags: []cli.Flag{userFlag, dateFlag},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := open(ctx, c)
			if err != nil {
				return err
			}
			uid, err := a.userID(ctx, c.String("user"))
			if err != nil {
				return err
			}
			d, err := day(c)
			if err != nil {
				return err
			}
			text, err := a.summaries(ctx).Digest(ctx, uid, d.Date)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func summarizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "summarize",
		Usage: "Print a day's summary, generating it when none is stored",
		Flags: []cli.Flag{userFlag, dateFlag, &cli.BoolFlag{Name: "regenerate", Usage: "ignore the stored summary"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := open(ctx, c)
			if err != nil {
				return err
			}
			uid, err := a.userID(ctx, c.String("user"))
			if err != nil {
				return err
			}
			d, err := day(c)
			if err != nil {
				return err
			}
			s, err := a.summaries(ctx).Get(ctx, uid, d.Date, c.Bool("regenerate"))
			if err != nil {
				return err
			}
			fmt.Println(s)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a day's summary to the export directory",
		Flags: []cli.Flag{userFlag, dateFlag, &cli.StringFlag{Name: "format", Value: "md", Usage: "md or png"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := open(ctx, c)
			if err != nil {
				return err
			}
			uid, err := a.userID(ctx, c.String("user"))
			if err != nil {
				return err
			}
			d, err := day(c)
			if err != nil {
				return err
			}
			s, err := a.summaries(ctx).Get(ctx, uid, d.Date, false)
			if err != nil {
				return err
			}
			exporter := service.NewExporter(a.cfg.Export.Dir).Keep()
			f, err := exporter.Export(uid, c.String("format"), s, d.Date)
			if err != nil {
				return err
			}
			path, err := exporter.Path(uid, f.Name)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

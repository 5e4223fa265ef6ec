// Package cli is the terminal screen of the trash review: it drives the same
// review workflow as the HTTP server over a local photo directory.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/mwlogger"
	"github.com/junker098/universe-app/internal/repository"
	"github.com/junker098/universe-app/internal/repository/flagsqlite"
	"github.com/junker098/universe-app/internal/service"
	"github.com/junker098/universe-app/internal/storage/fsstorage"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"
)

const defaultDBName = ".trashctl/trash.db"

type options struct {
	library  string
	dbPath   string
	timeout  time.Duration
	preview  string
	logLevel string
	yes      bool
}

// NewRootCmd builds trashctl. Input and output are injected for tests.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}
	con := newConsole(in, out)

	rootCmd := &cobra.Command{
		Use:   "trashctl",
		Short: "Review photos one by one and empty the trash",
		Long: `trashctl walks a photo directory newest first. Mark the photos you do
not want, skip the ones you keep, then empty the trash in one go.
Marks survive between runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zlog.InitConsole()
			return zlog.SetLevel(opts.logLevel)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.library, "library", "l", ".", "photo directory to review")
	pf.StringVar(&opts.dbPath, "db", "", "flag database (default <library>/"+defaultDBName+")")
	pf.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for every photo source call")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(
		newReviewCmd(opts, con),
		newPurgeCmd(opts, con),
		newStatusCmd(opts, con),
		newHistoryCmd(opts, con),
	)
	return rootCmd
}

// session is one running review workflow over the library.
type session struct {
	svc     *service.ReviewService
	history *service.HistoryService
	store   *flagsqlite.SqliteRepo
	events  <-chan model.Event
	ctx     context.Context
	stop    func()
}

func openSession(opts *options, con *console) (*session, error) {
	lib, err := fsstorage.New(opts.library)
	if err != nil {
		return nil, err
	}
	lib.WithConfirm(func(ctx context.Context, ids []string) bool {
		if opts.yes {
			return true
		}
		return con.confirm(fmt.Sprintf("Allow trashctl to delete %d photos?", len(ids)))
	})

	store, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	svc := service.NewReviewService(lib, store, nil, service.Options{
		SourceTimeout: opts.timeout,
		SourceName:    "fs",
	})
	events, unsubscribe := svc.Subscribe()

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(runCtx)
		close(done)
	}()

	var once sync.Once
	return &session{
		svc:     svc,
		history: service.NewHistoryService(store),
		store:   store,
		events:  events,
		ctx:     mwlogger.WithComponent(context.Background(), "trashctl"),
		stop: func() {
			once.Do(func() {
				cancel()
				<-done
				unsubscribe()
				store.Close()
			})
		},
	}, nil
}

func openStore(opts *options) (*flagsqlite.SqliteRepo, error) {
	path := opts.dbPath
	if path == "" {
		path = filepath.Join(opts.library, filepath.FromSlash(defaultDBName))
	}
	return repository.NewSqliteRepo(path)
}

// load starts the workflow and echoes events until the library is on screen.
func (s *session) load(con *console) error {
	if err := s.svc.Start(s.ctx); err != nil {
		return err
	}
	for ev := range s.events {
		con.showEvent(ev)
		switch ev.Kind {
		case model.EventTrashCount:
			return nil
		case model.EventError:
			st, err := s.svc.Snapshot(s.ctx)
			if err != nil {
				return err
			}
			// ошибка картинки при загрузке не мешает работе
			if st.Phase != model.PhaseReady {
				return errors.New(ev.Message)
			}
		}
	}
	return model.ErrWorkflowStopped
}

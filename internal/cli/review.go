package cli

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/junker098/universe-app/internal/model"
	"github.com/spf13/cobra"
)

const reviewHelp = `commands:
  d  mark the photo for deletion and go to the next one
  n  keep the photo and go to the next one (also Enter)
  c  show how many photos are in the trash
  p  empty the trash
  q  save marks and quit
`

func newReviewCmd(opts *options, con *console) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Go through the library photo by photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, con)
			if err != nil {
				return err
			}
			defer s.stop()

			if err := s.load(con); err != nil {
				return err
			}

			printed := make(chan struct{})
			go func() {
				for ev := range s.events {
					con.showEvent(ev)
				}
				close(printed)
			}()

			err = reviewLoop(s, con)
			// флаги сохраняем при любом выходе
			s.svc.PersistOnSuspend(s.ctx)
			s.stop()
			<-printed
			return err
		},
	}
	cmd.Flags().StringVar(&opts.preview, "preview", "", "write the current photo as JPEG to this file")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask before deleting")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		con.previewPath = opts.preview
	}
	return cmd
}

func reviewLoop(s *session, con *console) error {
	con.printf(reviewHelp)
	for {
		line, err := con.readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "d", "delete":
			err = s.svc.MarkCurrent(s.ctx)
		case "", "n", "next":
			err = s.svc.Advance(s.ctx)
		case "c", "count":
			var n int
			if n, err = s.svc.PendingDeletionCount(s.ctx); err == nil {
				con.printf("trash: %d\n", n)
			}
		case "p", "purge":
			err = purge(s, con)
		case "q", "quit":
			return nil
		case "h", "help", "?":
			con.printf(reviewHelp)
		default:
			con.printf("unknown command %q\n", line)
		}

		if err != nil {
			con.printf("error: %v\n", err)
		}
	}
}

func purge(s *session, con *console) error {
	res, err := s.svc.PurgeMarked(s.ctx)
	if err != nil {
		if errors.Is(err, model.ErrDeletionNotPermitted) {
			con.printf("%s\n", model.PurgeFailureMessage(err))
			return nil
		}
		return err
	}
	con.printf("%s\n", res.Message)

	// без кафки журнал пишем сами
	if res.Deleted > 0 {
		rec := &model.PurgeRecord{
			BatchID:  res.BatchID,
			Deleted:  res.Deleted,
			PhotoIDs: res.IDs,
			Source:   "fs",
			PurgedAt: time.Now().UTC(),
		}
		if err := s.history.Record(s.ctx, rec); err != nil {
			con.printf("error: purge not saved to history: %v\n", err)
		}
	}
	return nil
}

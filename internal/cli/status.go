package cli

import (
	"context"

	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/service"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *options, con *console) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library size and how many photos are in the trash",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, con)
			if err != nil {
				return err
			}
			defer s.stop()

			if err := s.load(con); err != nil {
				return err
			}
			st, err := s.svc.Snapshot(s.ctx)
			if err != nil {
				return err
			}
			con.printf("photos: %d\nmarked: %d\n", len(st.Photos), st.Pending)
			return nil
		},
	}
}

func newHistoryCmd(opts *options, con *console) *cobra.Command {
	req := model.ListRequest{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List earlier purges",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := service.NewHistoryService(store).GetList(context.Background(), &req)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				con.printf("no purges yet\n")
			}
			for _, r := range records {
				con.printf("%s  %s  %d deleted (%s)\n", r.PurgedAt.Local().Format("2006-01-02 15:04"), r.BatchID, r.Deleted, r.Source)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&req.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&req.Limit, "limit", 30, "records per page")
	cmd.Flags().StringVar(&req.Order, "order", model.OrderDESC, "ascend or descend")
	return cmd
}

package cli

import (
	"github.com/spf13/cobra"
)

func newPurgeCmd(opts *options, con *console) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every photo marked in earlier reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, con)
			if err != nil {
				return err
			}
			defer s.stop()

			if err := s.load(con); err != nil {
				return err
			}
			if err := purge(s, con); err != nil {
				return err
			}
			s.svc.PersistOnSuspend(s.ctx)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask before deleting")
	return cmd
}

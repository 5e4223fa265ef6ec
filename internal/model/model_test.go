package model

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPurgeFailureMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		refused bool
		want    string
	}{
		{
			name:    "declined",
			err:     fmt.Errorf("%w: %w", ErrDeletionNotPermitted, ErrDeletionDeclined),
			refused: true,
			want:    "You did not allow these photos to be deleted",
		},
		{
			name:    "no permission on disk",
			err:     fmt.Errorf("%w: remove a.png: %w", ErrDeletionNotPermitted, fs.ErrPermission),
			refused: true,
			want:    "You did not allow these photos to be deleted",
		},
		{
			name: "io failure",
			err:  fmt.Errorf("%w: %w", ErrDeletionNotPermitted, errors.New("disk full")),
			want: "Photos could not be deleted: deletion not permitted: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.refused, DeletionRefused(tt.err))
			require.Equal(t, tt.want, PurgeFailureMessage(tt.err))
		})
	}
}

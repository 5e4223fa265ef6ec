package service

import (
	"testing"

	"github.com/junker098/universe-app/internal/model"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	fresh := []model.Photo{
		{ID: "a"},
		{ID: "b", MarkedForDeletion: true}, // флаг источника не в счет
		{ID: ""},
		{ID: "a"},
		{ID: "c"},
	}
	saved := model.Flags{"a": true, "c": false, "gone": true}

	got := reconcile(fresh, saved)
	require.Equal(t, []model.Photo{
		{ID: "a", MarkedForDeletion: true},
		{ID: "b"},
		{ID: "c"},
	}, got)

	require.Empty(t, reconcile(nil, saved))
	require.Len(t, reconcile(fresh, nil), 3)
}

func TestNextUnmarked(t *testing.T) {
	ph := []model.Photo{{ID: "a"}, {ID: "b", MarkedForDeletion: true}, {ID: "c"}, {ID: "d", MarkedForDeletion: true}}
	idx := indexByID(ph)

	require.Equal(t, 2, nextUnmarked(ph, idx, "a"))
	require.Equal(t, 2, nextUnmarked(ph, idx, "b"))
	require.Equal(t, -1, nextUnmarked(ph, idx, "c"))
	require.Equal(t, -1, nextUnmarked(ph, idx, "zzz"))
	require.Equal(t, "a", firstUnmarked(ph))
	require.Empty(t, firstUnmarked(ph[1:2]))
}

func TestRemoveIDs(t *testing.T) {
	ph := []model.Photo{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	got := removeIDs(ph, []string{"c", "a", "missing"})
	require.Equal(t, []model.Photo{{ID: "b"}}, got)
	// исходный срез не трогаем
	require.Equal(t, "a", ph[0].ID)
}

func TestValidateQueryParams(t *testing.T) {
	tests := []struct {
		name string
		in   model.ListRequest
		want model.ListRequest
	}{
		{
			name: "defaults",
			in:   model.ListRequest{},
			want: model.ListRequest{Page: 1, Limit: 30, Order: "DESC"},
		},
		{
			name: "ascending",
			in:   model.ListRequest{Page: 3, Limit: 10, Order: " Ascend "},
			want: model.ListRequest{Page: 3, Limit: 10, Order: "ASC"},
		},
		{
			name: "limit too big",
			in:   model.ListRequest{Page: 2, Limit: 1000, Order: "descend"},
			want: model.ListRequest{Page: 2, Limit: 30, Order: "DESC"},
		},
		{
			name: "injection attempt falls back",
			in:   model.ListRequest{Order: "desc; DROP TABLE purge_log"},
			want: model.ListRequest{Page: 1, Limit: 30, Order: "DESC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.in
			validateQueryParams(&req)
			require.Equal(t, tt.want, req)
		})
	}
}

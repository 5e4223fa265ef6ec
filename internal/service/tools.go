package service

import (
	"strings"

	"github.com/junker098/universe-app/internal/model"
)

// reconcile merges a fresh enumeration with the saved flags: photos missing
// from the enumeration are dropped, and a saved flag is inherited only when it
// is true. Duplicate ids keep their first occurrence.
func reconcile(fresh []model.Photo, saved model.Flags) []model.Photo {
	res := make([]model.Photo, 0, len(fresh))
	seen := make(map[string]struct{}, len(fresh))

	for _, p := range fresh {
		if p.ID == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		p.MarkedForDeletion = false
		if saved[p.ID] {
			p.MarkedForDeletion = true
		}
		res = append(res, p)
	}
	return res
}

func indexByID(photos []model.Photo) map[string]int {
	idx := make(map[string]int, len(photos))
	for i, p := range photos {
		idx[p.ID] = i
	}
	return idx
}

func firstUnmarked(photos []model.Photo) string {
	for _, p := range photos {
		if !p.MarkedForDeletion {
			return p.ID
		}
	}
	return ""
}

// nextUnmarked returns the position of the first unmarked photo strictly after
// current, or -1. It never wraps.
func nextUnmarked(photos []model.Photo, idx map[string]int, current string) int {
	pos, ok := idx[current]
	if !ok {
		return -1
	}
	for i := pos + 1; i < len(photos); i++ {
		if !photos[i].MarkedForDeletion {
			return i
		}
	}
	return -1
}

func removeIDs(photos []model.Photo, ids []string) []model.Photo {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := photos[:0:0]
	for _, p := range photos {
		if _, ok := drop[p.ID]; ok {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем порядок: по дефолту новые сверху
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC"
	}
}

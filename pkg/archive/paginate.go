package archive

import (
	"context"

	"vkarchiver/pkg/state"
)

// pageFetch retrieves one page of items at the given offset. Pages are
// requested strictly sequentially: the short-page termination condition
// depends on the previous page's size.
type pageFetch[T any] func(ctx context.Context, offset, count int) ([]T, error)

// collectPaged walks a paginated VK list from the persisted resume offset,
// saving the cursor after every fully processed page. A short page ends the
// walk; maxItems caps the total when positive.
func collectPaged[T any](ctx context.Context, st *state.Store, key string, pageSize, maxItems int, fetch pageFetch[T]) ([]T, error) {
	offset := st.Get(key).Int("offset")

	var items []T
	for {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		page, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return items, err
		}
		items = append(items, page...)
		offset += len(page)

		if maxItems > 0 && len(items) >= maxItems {
			items = items[:maxItems]
			break
		}
		if len(page) < pageSize {
			break
		}
		if err := st.Update(key, state.Cursor{"offset": offset}); err != nil {
			return items, err
		}
	}
	return items, nil
}

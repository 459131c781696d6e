package pagination

import (
	svcErr "github.com/oggyb/codev-api/internal/errors"
)

// Page is offset pagination state: offset = page * size, limit = size.
type Page struct {
	Number int
	Size   int
}

// New validates paging bounds. Page must be non-negative and size positive.
func New(page, size int) (Page, error) {
	if page < 0 {
		return Page{}, svcErr.InvalidArgument("page must be a non-negative integer, got %d", page)
	}
	if size <= 0 {
		return Page{}, svcErr.InvalidArgument("size must be a positive integer, got %d", size)
	}
	return Page{Number: page, Size: size}, nil
}

func (p Page) Offset() int { return p.Number * p.Size }

func (p Page) Limit() int { return p.Size }

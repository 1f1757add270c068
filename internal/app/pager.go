package app

import (
	"sync"

	"quiz-attempt-service/internal/domain"
)

// pageLimits are the page sizes the listing UI offers.
var pageLimits = map[int]bool{5: true, 10: true, 20: true, 50: true, 100: true}

const defaultPageLimit = 10

// Pager owns the request descriptor for the paginated question listing.
// The server-supplied PageMeta is authoritative; the pager only derives
// which navigation moves are legal from it and self-corrects when the
// current page turns out to no longer exist.
type Pager struct {
	mu    sync.Mutex
	page  int
	limit int
	order domain.SortDir
	meta  *domain.PageMeta
}

func NewPager() *Pager {
	return &Pager{page: 1, limit: defaultPageLimit, order: domain.SortAsc}
}

// Request returns the current page request descriptor.
func (p *Pager) Request() domain.PageRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.PageRequest{Page: p.page, Limit: p.limit, Order: p.order}
}

// Observe records the metadata of a completed fetch. It reports true when
// the fetch landed on a page that no longer exists (empty result, page > 1,
// confirmed smaller total): the pager has stepped back one page and the
// caller must re-request. This keeps a user from being stranded after
// deleting the last item of the final page.
func (p *Pager) Observe(meta domain.PageMeta, itemCount int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.meta = &meta
	if itemCount == 0 && p.page > 1 && meta.TotalPages < p.page {
		p.page--
		return true
	}
	return false
}

// First jumps to page 1 if there is a previous page to leave behind.
func (p *Pager) First() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.meta != nil && p.meta.HasPreviousPage {
		p.page = 1
	}
}

// Prev steps back one page when the metadata allows it.
func (p *Pager) Prev() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.meta != nil && p.meta.HasPreviousPage && p.page > 1 {
		p.page--
	}
}

// Next advances one page when the metadata allows it.
func (p *Pager) Next() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.meta != nil && p.meta.HasNextPage {
		p.page++
	}
}

// Last jumps to the final page reported by the metadata.
func (p *Pager) Last() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.meta != nil && p.meta.HasNextPage {
		p.page = p.meta.TotalPages
	}
}

// SetLimit changes the page size and unconditionally resets to page 1,
// since offsets computed under the old size are meaningless. Sizes outside
// the offered set are ignored.
func (p *Pager) SetLimit(limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !pageLimits[limit] {
		return
	}
	p.limit = limit
	p.page = 1
}

// SetPage seeds the requested page directly, clamped to at least 1.
// Whether the page actually exists is settled by the next Observe.
func (p *Pager) SetPage(page int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page < 1 {
		page = 1
	}
	p.page = page
}

// SetOrder flips the listing sort direction.
func (p *Pager) SetOrder(order domain.SortDir) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if order == domain.SortAsc || order == domain.SortDesc {
		p.order = order
	}
}

// Page returns the currently requested page number.
func (p *Pager) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// Limit returns the currently requested page size.
func (p *Pager) Limit() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limit
}

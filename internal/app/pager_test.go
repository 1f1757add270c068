package app_test

import (
	"testing"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

func TestPagerStepsBackWhenPageEmpties(t *testing.T) {
	pager := app.NewPager()
	pager.SetPage(3)

	// Page 3 of 3 had one item; it was deleted and the refresh comes back
	// empty with a confirmed smaller total.
	meta := domain.BuildPageMeta(20, 3, 10) // totalPages=2 now
	if !pager.Observe(meta, 0) {
		t.Fatalf("expected step-back signal")
	}
	if pager.Page() != 2 {
		t.Fatalf("expected page 2 after step-back, got %d", pager.Page())
	}

	// The re-request for page 2 returns items; no further correction.
	meta = domain.BuildPageMeta(20, 2, 10)
	if pager.Observe(meta, 10) {
		t.Fatalf("non-empty page must not trigger correction")
	}
}

func TestPagerNoStepBackOnPageOne(t *testing.T) {
	pager := app.NewPager()
	meta := domain.BuildPageMeta(0, 1, 10)
	if pager.Observe(meta, 0) {
		t.Fatalf("an empty first page is legitimate, not a correction case")
	}
	if pager.Page() != 1 {
		t.Fatalf("page moved to %d", pager.Page())
	}
}

func TestPagerNavigationGuards(t *testing.T) {
	pager := app.NewPager()

	// No metadata observed yet: all moves are no-ops.
	pager.Next()
	pager.Prev()
	pager.Last()
	if pager.Page() != 1 {
		t.Fatalf("navigation before any fetch moved the page to %d", pager.Page())
	}

	pager.Observe(domain.BuildPageMeta(30, 1, 10), 10)
	pager.Prev()
	if pager.Page() != 1 {
		t.Fatalf("prev on the first page must be a no-op")
	}
	pager.Next()
	if pager.Page() != 2 {
		t.Fatalf("expected page 2, got %d", pager.Page())
	}

	pager.Observe(domain.BuildPageMeta(30, 3, 10), 10)
	pager.Next()
	if pager.Page() != 2 {
		t.Fatalf("next without a next page must be a no-op, got %d", pager.Page())
	}
	pager.First()
	if pager.Page() != 1 {
		t.Fatalf("expected first page, got %d", pager.Page())
	}

	pager.Observe(domain.BuildPageMeta(30, 1, 10), 10)
	pager.Last()
	if pager.Page() != 3 {
		t.Fatalf("expected last page 3, got %d", pager.Page())
	}
}

func TestPagerLimitChangeResetsPage(t *testing.T) {
	pager := app.NewPager()
	pager.SetPage(4)

	pager.SetLimit(50)
	if pager.Page() != 1 {
		t.Fatalf("changing limit must reset to page 1, got %d", pager.Page())
	}
	if pager.Limit() != 50 {
		t.Fatalf("expected limit 50, got %d", pager.Limit())
	}

	pager.SetPage(2)
	pager.SetLimit(7) // not an offered size
	if pager.Limit() != 50 || pager.Page() != 2 {
		t.Fatalf("invalid limit must be ignored entirely, got limit=%d page=%d", pager.Limit(), pager.Page())
	}
}

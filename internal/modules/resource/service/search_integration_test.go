package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/internal/modules/resource/dto"
	"greenhouse.org/growersplatform/internal/modules/resource/repository"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/logger"
	"github.com/google/uuid"
)

func newPostgresService(t *testing.T, now time.Time) (*resourceService, func(title string, data map[string]any)) {
	t.Helper()
	tx := testutil.Tx(t, testutil.Postgres(t))
	svc := NewResourceService(repository.NewResourceRepository(tx), logger.Nop()).(*resourceService)
	svc.now = func() time.Time { return now }
	seed := func(title string, data map[string]any) {
		testutil.SeedResource(t, tx, entity.ResourceGrants, title, data)
	}
	return svc, seed
}

func collectAll(t *testing.T, svc ResourceService, req dto.ListResourcesRequest) ([]dto.ResourceResponse, int64) {
	t.Helper()
	var (
		items []dto.ResourceResponse
		total int64
	)
	for pages := 0; ; pages++ {
		if pages > 50 {
			t.Fatal("pager did not terminate")
		}
		page, err := svc.List(context.Background(), req, nil)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if pages == 0 {
			total = page.Total
		} else if page.Total != total {
			t.Fatalf("total changed between pages: %d != %d", page.Total, total)
		}
		items = append(items, page.Items...)
		if page.NextCursor == nil {
			return items, total
		}
		req.Cursor = *page.NextCursor
	}
}

func TestSearch_HideExpiredKeepsRollingGrants(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, seed := newPostgresService(t, now)
	tag := "hx" + uuid.NewString()[:8]

	seed(tag+" expired", map[string]any{"due_date": "2025-03-14", "status": "Closed"})
	seed(tag+" rolling", map[string]any{"due_date": "2025-03-14", "status": "Rolling"})
	seed(tag+" upcoming", map[string]any{"due_date": "2025-03-20"})
	seed(tag+" undated", map[string]any{"status": "Closed"})
	seed(tag+" today", map[string]any{"due_date": "2025-03-15"})

	items, total := collectAll(t, svc, dto.ListResourcesRequest{
		Type:    "grants",
		Q:       tag,
		Filters: `{"hideExpired":"true"}`,
		Sort:    "title",
	})

	got := map[string]bool{}
	for _, it := range items {
		got[it.Title] = true
	}
	if got[tag+" expired"] {
		t.Error("grant due yesterday with a closed status was returned")
	}
	for _, want := range []string{"rolling", "upcoming", "undated", "today"} {
		if !got[tag+" "+want] {
			t.Errorf("missing %q", want)
		}
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
}

func TestSearch_PaginationIsLosslessForEverySort(t *testing.T) {
	svc, seed := newPostgresService(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	tag := "pg" + uuid.NewString()[:8]

	for i := 0; i < 23; i++ {
		data := map[string]any{"agency": fmt.Sprintf("Agency %d", i%4)}
		if i%3 != 0 {
			data["award_max"] = 1000 * (i % 5)
			data["due_date"] = fmt.Sprintf("2025-0%d-1%d", 1+i%6, i%10)
		}
		if i%7 == 0 {
			data["award_max"] = "varies"
		}
		// Repeated titles force the id tie-break.
		seed(fmt.Sprintf("%s grant %02d", tag, i%6), data)
	}

	for _, sort := range []string{"relevance", "title", "newest", "quality", "dueDate", "agency", "amount", "provider", "cost"} {
		t.Run(sort, func(t *testing.T) {
			items, total := collectAll(t, svc, dto.ListResourcesRequest{
				Type:  "grants",
				Q:     tag,
				Sort:  sort,
				Limit: 4,
			})
			if total != 23 {
				t.Fatalf("total = %d, want 23", total)
			}
			seen := map[uuid.UUID]bool{}
			for _, it := range items {
				if seen[it.ID] {
					t.Fatalf("duplicate item %s", it.ID)
				}
				seen[it.ID] = true
			}
			if int64(len(seen)) != total {
				t.Fatalf("traversed %d items, want %d", len(seen), total)
			}
		})
	}
}

func TestSearch_GrantFacetsHaveNoFalsePositives(t *testing.T) {
	svc, seed := newPostgresService(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	tag := "fp" + uuid.NewString()[:8]

	seed(tag+" a", map[string]any{"award_max": 10000, "award_min": 500, "regions": []string{"midwest"}, "focus_areas": []string{"energy"}})
	seed(tag+" b", map[string]any{"award_max": 2000, "regions": []string{"all"}, "focus_areas": []string{"Energy", "water"}})
	seed(tag+" c", map[string]any{"award_max": "TBD", "regions": []string{"south"}})
	seed(tag+" d", map[string]any{"award_max": "25,000", "regions": []string{"midwest"}, "focus_areas": []string{"labor"}})
	seed(tag+" e", map[string]any{})

	items, _ := collectAll(t, svc, dto.ListResourcesRequest{
		Type:    "grants",
		Q:       tag,
		Filters: `{"amountMin":"5000","regions":"midwest,northeast","focusAreas":"energy"}`,
	})

	if len(items) != 1 || items[0].Title != tag+" a" {
		titles := make([]string, 0, len(items))
		for _, it := range items {
			titles = append(titles, it.Title)
		}
		t.Fatalf("got %v, want only %q", titles, tag+" a")
	}

	var data map[string]any
	if err := json.Unmarshal(items[0].Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["award_max"].(float64) < 5000 {
		t.Errorf("award_max %v below filter", data["award_max"])
	}

	items, _ = collectAll(t, svc, dto.ListResourcesRequest{
		Type:    "grants",
		Q:       tag,
		Filters: `{"regions":"northeast"}`,
	})
	if len(items) != 1 || items[0].Title != tag+" b" {
		t.Fatalf("regions wildcard: got %d items", len(items))
	}
}

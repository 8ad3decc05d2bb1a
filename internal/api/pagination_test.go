package api

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query   string
		page    int
		perPage int
		wantErr bool
	}{
		{"", 1, 20, false},
		{"page=3", 3, 20, false},
		{"per_page=50", 1, 50, false},
		{"page=2&per_page=10", 2, 10, false},
		{"page=0", 0, 0, true},
		{"page=-1", 0, 0, true},
		{"page=abc", 0, 0, true},
		{"per_page=0", 0, 0, true},
		{"per_page=501", 0, 0, true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/api/v1/devices?"+tc.query, nil)
		page, perPage, err := parsePagination(r, 20)
		if tc.wantErr {
			if err == nil {
				t.Errorf("query %q: expected error", tc.query)
			}
			continue
		}
		if err != nil {
			t.Errorf("query %q: unexpected error: %v", tc.query, err)
			continue
		}
		if page != tc.page || perPage != tc.perPage {
			t.Errorf("query %q: got page=%d per_page=%d, want %d/%d",
				tc.query, page, perPage, tc.page, tc.perPage)
		}
	}
}

func TestPageLinksPreserveFilter(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/devices?status=pending&page=2&per_page=10", nil)
	links := pageLinks(r, 2, 10, true)

	if len(links) != 3 {
		t.Fatalf("expected first/prev/next, got %v", links)
	}
	for _, l := range links {
		if !strings.Contains(l, "status=pending") {
			t.Errorf("link %q lost the status filter", l)
		}
	}
	if !strings.Contains(links[1], "page=1") || !strings.Contains(links[1], `rel="prev"`) {
		t.Errorf("unexpected prev link %q", links[1])
	}
	if !strings.Contains(links[2], "page=3") || !strings.Contains(links[2], `rel="next"`) {
		t.Errorf("unexpected next link %q", links[2])
	}
}

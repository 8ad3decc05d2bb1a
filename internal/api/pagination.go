package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	pageQueryParam    = "page"
	perPageQueryParam = "per_page"

	maxPerPage = 500
)

// parsePagination reads page/per_page query parameters, applying the
// configured default page size.
func parsePagination(r *http.Request, defaultPerPage int) (page, perPage int, err error) {
	page, err = parsePositiveInt(r, pageQueryParam, 1)
	if err != nil {
		return 0, 0, err
	}

	perPage, err = parsePositiveInt(r, perPageQueryParam, defaultPerPage)
	if err != nil {
		return 0, 0, err
	}
	if perPage > maxPerPage {
		return 0, 0, fmt.Errorf("per_page must not exceed %d", maxPerPage)
	}

	return page, perPage, nil
}

func parsePositiveInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s query parameter: %q", name, raw)
	}
	return v, nil
}

// pageLinks builds RFC 5988 Link header values for the current listing.
// rel="next" is emitted only when a further page exists.
func pageLinks(r *http.Request, page, perPage int, hasNext bool) []string {
	links := []string{
		pageLink(r, 1, perPage, "first"),
	}
	if page > 1 {
		links = append(links, pageLink(r, page-1, perPage, "prev"))
	}
	if hasNext {
		links = append(links, pageLink(r, page+1, perPage, "next"))
	}
	return links
}

func pageLink(r *http.Request, page, perPage int, rel string) string {
	q := url.Values{}
	for k, v := range r.URL.Query() {
		if k == pageQueryParam || k == perPageQueryParam {
			continue
		}
		q[k] = v
	}
	q.Set(pageQueryParam, strconv.Itoa(page))
	q.Set(perPageQueryParam, strconv.Itoa(perPage))

	return fmt.Sprintf("<%s?%s>; rel=\"%s\"", r.URL.Path, q.Encode(), rel)
}

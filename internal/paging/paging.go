package paging

// FetchFunc fetches one page of a token-based listing. It is called with the
// continuation token returned by the previous page, the empty string for the
// first page. It returns the page's items and the next continuation token;
// an empty next token means the listing is exhausted.
type FetchFunc[T any] func(pageToken string) (items []T, nextToken string, err error)

// FetchAll drains a page-token based listing into one ordered slice. A page
// that carries a continuation token but no items still continues the
// enumeration. Any single-page error is returned as-is.
func FetchAll[T any](fetch FetchFunc[T]) ([]T, error) {
	var all []T
	token, more := "", true
	for more {
		items, next, err := fetch(token)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		token, more = next, next != ""
	}
	return all, nil
}

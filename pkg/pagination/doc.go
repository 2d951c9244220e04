// Package pagination iterates OpenPhone's cursor-paginated collection endpoints.
//
// Collection endpoints return {"data": [...], "nextPageToken": "...", "totalItems": n}.
// A Paginator turns that into a single forward-only sequence of records,
// fetching the next page only when its buffer is empty and the previous page
// carried a continuation token:
//
//	p := pagination.New(apiClient, "conversations", url.Values{"maxResults": {"50"}})
//	for {
//		rec, err := p.Next(ctx)
//		if errors.Is(err, pagination.Done) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		fmt.Println(rec["id"])
//	}
//
// or with range-over-func:
//
//	for rec, err := range p.All(ctx) {
//		...
//	}
//
// Iteration ends strictly when a page omits nextPageToken. An empty page that
// still carries a token is skipped over. The totalItems hint is exposed via
// TotalItems but never bounds iteration.
//
// A Paginator is not safe for concurrent use. To walk several collections in
// parallel, use a BatchFetcher, which drives one independent Paginator per
// query on a bounded pool of goroutines.
package pagination

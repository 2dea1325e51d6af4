package http

import (
	"net/http"
	"sort"

	"github.com/golang/gddo/httputil/header"
)

// negotiateContentType picks which of the offered content types to
// answer a request with. The offers are in order of preference; among
// the offers the Accept header mentions, the highest quality wins,
// with ties going to the more preferred offer. No Accept header at
// all gets the first offer, and an Accept header mentioning none of
// the offers gets "".
func negotiateContentType(r *http.Request, offers []string) string {
	specs := header.ParseAccept(r.Header, "Accept")
	if len(specs) == 0 {
		return offers[0]
	}

	rank := make(map[string]int, len(offers))
	for i, offer := range offers {
		rank[offer] = i
	}

	var acceptable []header.AcceptSpec
	for _, spec := range specs {
		if _, ok := rank[spec.Value]; ok {
			acceptable = append(acceptable, spec)
		}
	}
	if len(acceptable) == 0 {
		return ""
	}

	sort.SliceStable(acceptable, func(i, j int) bool {
		if acceptable[i].Q != acceptable[j].Q {
			return acceptable[i].Q > acceptable[j].Q
		}
		return rank[acceptable[i].Value] < rank[acceptable[j].Value]
	})
	return acceptable[0].Value
}

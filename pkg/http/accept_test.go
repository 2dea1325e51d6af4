package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegotiateContentType(t *testing.T) {
	offers := []string{"application/json", "text/plain"}

	for _, c := range []struct {
		name   string
		accept []string
		want   string
	}{
		{"no accept header gets first offer", nil, "application/json"},
		{"nothing acceptable", []string{"text/html;q=0.9", "image/png"}, ""},
		{"equal quality goes to preference", []string{"text/plain,application/json"}, "application/json"},
		{"quality beats preference", []string{"application/json;q=0.5,text/plain;q=1.0"}, "text/plain"},
		{"over several headers", []string{"text/html", "text/plain"}, "text/plain"},
	} {
		t.Run(c.name, func(t *testing.T) {
			h := http.Header{}
			for _, a := range c.accept {
				h.Add("Accept", a)
			}
			assert.Equal(t, c.want, negotiateContentType(&http.Request{Header: h}, offers))
		})
	}
}

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"crownbidder/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auctions/a1/status":
			w.Write([]byte(`{"data":{"auction_id":"a1","status":"live"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPStatusFetcher(srv.URL)

	status, err := f.FetchStatus(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionLive, status)

	_, err = f.FetchStatus(context.Background(), "missing")
	assert.Error(t, err)
}

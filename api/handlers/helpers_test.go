package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gramasevaka/gs-portal-api/api/handlers"
	"github.com/gramasevaka/gs-portal-api/databases"
)

// fixedNow is the clock every handler test runs at.
var fixedNow = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

func testDeps(counters databases.CounterDatabase) handlers.Deps {
	return handlers.Deps{
		Counters: counters,
		Now:      func() time.Time { return fixedNow },
	}
}

// page mirrors models.Page with typed items.
type page[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	PageCount   int   `json:"pageCount"`
	CurrentPage int   `json:"currentPage"`
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

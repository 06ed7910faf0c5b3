package api_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/cl-postal-codes/internal/api"
	"github.com/JakeFAU/cl-postal-codes/internal/catalog"
	"github.com/JakeFAU/cl-postal-codes/internal/config"
	"github.com/JakeFAU/cl-postal-codes/internal/lookup"
	publisherMemory "github.com/JakeFAU/cl-postal-codes/internal/publisher/memory"
	"github.com/JakeFAU/cl-postal-codes/internal/scraper"
	storageMemory "github.com/JakeFAU/cl-postal-codes/internal/storage/memory"
)

type staticResolver struct{ code string }

func (r staticResolver) Resolve(context.Context, scraper.Request) (scraper.Outcome, error) {
	return scraper.Success(r.code), nil
}

type exampleIDs struct{}

func (exampleIDs) NewID() (string, error) { return "0192-example", nil }

type exampleClock struct{}

func (exampleClock) Now() time.Time { return time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC) }

func ExampleServer_Handler() {
	store := storageMemory.NewAddressStore()
	if _, err := catalog.Seed(context.Background(), store); err != nil {
		fmt.Println("seed failed:", err)
		return
	}
	svc := lookup.New(
		store,
		store,
		staticResolver{code: "7510268"},
		publisherMemory.New(),
		exampleIDs{},
		exampleClock{},
		lookup.Config{Topic: lookup.TopicResolved},
		zap.NewNop(),
	)
	cfg := config.Config{Server: config.ServerConfig{Port: 8080}}
	server := api.NewServer(svc, nil, cfg, zap.NewNop())
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/postal-codes/search?commune=Providencia&street=Av.%20Providencia&number=1860")
	if err != nil {
		fmt.Println("request failed:", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	fmt.Println(resp.StatusCode)
	fmt.Print(string(body))

	// Output:
	// 200
	// {"id":"0192-example","commune":"PROVIDENCIA","street":"AV. PROVIDENCIA","number":"1860","region":"REGIÓN METROPOLITANA DE SANTIAGO","postalCode":"7510268","createdAt":"2026-10-14T09:30:00Z"}
}

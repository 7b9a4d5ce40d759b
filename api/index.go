package handler

import (
	"context"
	"net/http"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/app"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/config"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	// Note: On Vercel, db.sqlite is ephemeral unless using a remote SQL/Turso URL in DATABASE_URL
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	a.StartBackground(context.Background())
	mux = a.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}

package httpserver

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// Register puts the health endpoint on the default mux. The db may be nil
// when the bot runs without the audit log.
func Register(db *sql.DB) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Start serves the default mux.
func Start(addr string) error {
	return http.ListenAndServe(addr, nil)
}

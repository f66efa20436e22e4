package melviewhkb

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/brutella/hap/log"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

type unitStatus struct {
	UnitID   string             `json:"unitid"`
	Room     string             `json:"room"`
	Building string             `json:"building,omitempty"`
	State    *melview.UnitState `json:"state"`
}

func (p *Platform) router() http.Handler {
	router := chi.NewRouter()
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Melview HomeKit Bridge"))
	})

	router.Get("/units", func(w http.ResponseWriter, r *http.Request) {
		var out []unitStatus
		for _, u := range p.Units() {
			out = append(out, unitStatus{UnitID: u.UnitID, Room: u.Room, Building: u.Building, State: u.State()})
		}
		writeJSON(w, out)
	})

	router.Get("/units/{unitid}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "unitid")
		for _, u := range p.Units() {
			if u.UnitID == id {
				writeJSON(w, unitStatus{UnitID: u.UnitID, Room: u.Room, Building: u.Building, State: u.State()})
				return
			}
		}
		http.NotFound(w, r)
	})

	if p.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(p.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return router
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Info.Printf("unable to write response: %s", err.Error())
	}
}

// HTTPServer serves status and metrics until ctx is done
func (p *Platform) HTTPServer(ctx context.Context, addr string) {
	srv := &http.Server{
		Handler:      p.router(),
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Info.Printf("starting http service at %s", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Info.Printf("http service: %s", err.Error())
		}
	}()
	<-ctx.Done()
	log.Info.Printf("stopping http service")
	srv.Shutdown(context.Background())
}

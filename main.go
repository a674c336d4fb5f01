package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/hmztgr/salama-maintenance-system-sub002/config"
	"github.com/hmztgr/salama-maintenance-system-sub002/handlers"
	"github.com/hmztgr/salama-maintenance-system-sub002/routes"
	"github.com/hmztgr/salama-maintenance-system-sub002/store"
)

var (
	Version   = "dev"
	BuildTime = ""
)

func main() {

	versionFlag := flag.Bool("version", false, "Print version info and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("Version:   %s\n", Version)
		fmt.Printf("BuildTime: %s\n", BuildTime)
		os.Exit(0)
	}
	config.Connect()
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Mirrored collections, one LISTEN/NOTIFY listener each.
	dsn := config.DSN()
	visits := store.NewVisitStore(config.DB, store.NewPQNotifier(dsn))
	contracts := store.NewContractStore(config.DB, store.NewPQNotifier(dsn))
	companies := store.NewCompanyStore(config.DB, store.NewPQNotifier(dsn))
	branches := store.NewBranchStore(config.DB, store.NewPQNotifier(dsn))
	drain(visits.Subscribe())
	drain(contracts.Subscribe())
	drain(companies.Subscribe())
	drain(branches.Subscribe())
	log.Println("📡 Subscribed to visits, contracts, companies and branches changes")

	planner := handlers.NewPlannerHandler(handlers.NewPlanningEngine(visits, companies, branches))

	handler := routes.RegisterRoutes(routes.Handlers{
		Companies: handlers.NewCompanyHandler(config.DB, companies, branches),
		Contracts: handlers.NewContractHandler(config.DB, contracts),
		Visits:    handlers.NewVisitHandler(config.DB, visits, branches),
		Planner:   planner,
	})
	handlerWithCORS := enableCORS(handler)
	log.Println("Server starting at port", port)
	log.Fatal(http.ListenAndServe(":"+port, handlerWithCORS))
}

// drain keeps a snapshot channel flowing so the store never has to
// drop updates on a full buffer. The HTTP layer reads the mirrors via
// CurrentItems instead of consuming snapshots directly.
func drain[T any](ch <-chan store.Snapshot[T]) {
	go func() {
		for snap := range ch {
			if snap.Err != nil {
				log.Printf("⚠️  mirror refresh error: %v", snap.Err)
			}
		}
	}()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Required CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")

		// Handle preflight (OPTIONS)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

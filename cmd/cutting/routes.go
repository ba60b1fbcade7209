package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	completejob "cutting-tracker/http-server/jobs/complete"
	getjob "cutting-tracker/http-server/jobs/get"
	savejob "cutting-tracker/http-server/jobs/save"
	updatejob "cutting-tracker/http-server/jobs/update"
	getmaster "cutting-tracker/http-server/master/get"
	getoperation "cutting-tracker/http-server/operations/get"
	removeoperation "cutting-tracker/http-server/operations/remove"
	saveoperation "cutting-tracker/http-server/operations/save"
	getscrap "cutting-tracker/http-server/scrap/get"
	savescrap "cutting-tracker/http-server/scrap/save"
	updatescrap "cutting-tracker/http-server/scrap/update"
	"cutting-tracker/internal/config"
	"cutting-tracker/internal/middleware/auth"
	"cutting-tracker/internal/service/cutting"
)

func routes(cfg *config.Config, log *slog.Logger, accounts map[string]auth.Account, svc *cutting.Service, master getmaster.MasterDataProvider) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api", func(api chi.Router) {
		api.Use(auth.BasicAuth(accounts))

		api.Route("/jobs", func(r chi.Router) {
			r.Post("/", savejob.CreateJob(log, svc))
			r.Get("/", getjob.ListJobs(log, svc))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getjob.GetJob(log, svc))
				r.Put("/plan", updatejob.RevisePlan(log, svc))
				r.Post("/start", updatejob.StartJob(log, svc))
				r.Post("/cancel", updatejob.CancelJob(log, svc))
				r.Post("/complete", completejob.CompleteJob(log, svc))
				r.Post("/balance-check", completejob.PreviewCompletion(log, svc))

				r.Get("/operations", getoperation.ListOperations(log, svc))
				r.Post("/operations", saveoperation.AddOperation(log, svc))
				r.Delete("/operations/{opID}", removeoperation.RemoveOperation(log, svc))

				r.Post("/scrap", savescrap.CreateScrapEntry(log, svc))
			})
		})

		api.Post("/operations/balance-check", saveoperation.CheckBalance(log, svc))

		api.Route("/scrap", func(r chi.Router) {
			r.Get("/", getscrap.ListScrapEntries(log, svc))
			r.Get("/{id}", getscrap.GetScrapEntry(log, svc))
			r.Post("/{id}/approve", updatescrap.ApproveScrap(log, svc))
			r.Post("/{id}/reject", updatescrap.RejectScrap(log, svc))
		})

		api.Get("/machines", getmaster.GetMachines(log, master))
		api.Get("/materials", getmaster.GetRawMaterials(log, master))
		api.Get("/employees", getmaster.GetEmployees(log, master))
		api.Get("/scrap-reasons", getmaster.GetScrapReasons(log, master))
		api.Get("/finished-goods", getmaster.GetFinishedGoods(log, master))
	})

	return router
}

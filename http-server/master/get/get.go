// Package get serves the read-only reference lists the job form is built from.
package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"cutting-tracker/internal/storage"
)

type MasterDataProvider interface {
	ListMachines(ctx context.Context) ([]storage.Machine, error)
	ListRawMaterials(ctx context.Context) ([]storage.RawMaterial, error)
	ListEmployees(ctx context.Context) ([]storage.Employee, error)
	ListScrapReasons(ctx context.Context) ([]storage.ScrapReason, error)
	ListFinishedGoods(ctx context.Context) ([]storage.FinishedGood, error)
}

func GetMachines(log *slog.Logger, master MasterDataProvider) http.HandlerFunc {
	return list(log, "handlers.master.GetMachines", master.ListMachines)
}

func GetRawMaterials(log *slog.Logger, master MasterDataProvider) http.HandlerFunc {
	return list(log, "handlers.master.GetRawMaterials", master.ListRawMaterials)
}

func GetEmployees(log *slog.Logger, master MasterDataProvider) http.HandlerFunc {
	return list(log, "handlers.master.GetEmployees", master.ListEmployees)
}

func GetScrapReasons(log *slog.Logger, master MasterDataProvider) http.HandlerFunc {
	return list(log, "handlers.master.GetScrapReasons", master.ListScrapReasons)
}

func GetFinishedGoods(log *slog.Logger, master MasterDataProvider) http.HandlerFunc {
	return list(log, "handlers.master.GetFinishedGoods", master.ListFinishedGoods)
}

func list[T any](log *slog.Logger, op string, fetch func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		items, err := fetch(ctx)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to load master data")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []T{}
		}

		render.JSON(w, r, items)
	}
}

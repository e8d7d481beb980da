package handlers

import (
	"priceboard/internal/config"
	"priceboard/internal/repos"
	"priceboard/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	ItemHandler     *ItemHandler
	SupplierHandler *SupplierHandler
	OfferHandler    *OfferHandler
	HistoryHandler  *HistoryHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	itemRepo := repos.NewItemRepo(db)
	supRepo := repos.NewSupplierRepo(db)
	offerRepo := repos.NewOfferRepo(db)
	histRepo := repos.NewHistoryRepo(db)
	compRepo := repos.NewComparisonRepo(db)

	histSvc := services.NewHistoryService(histRepo)
	offerSvc := services.NewOfferService(itemRepo, supRepo, offerRepo, histSvc)
	unitSvc := services.NewUnitChangeService(itemRepo, offerRepo)

	return &Deps{
		ItemHandler:     &ItemHandler{Items: itemRepo, UnitChange: unitSvc, Comparison: compRepo},
		SupplierHandler: &SupplierHandler{Suppliers: supRepo, Comparison: compRepo},
		OfferHandler:    &OfferHandler{Offers: offerSvc, Comparison: compRepo},
		HistoryHandler:  &HistoryHandler{History: histSvc},
	}
}

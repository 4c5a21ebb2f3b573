package handler

import (
	"net/http"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/service"
)

// InstrumentHandler handles HTTP requests for the instrument catalog.
type InstrumentHandler struct {
	instrumentSvc *service.InstrumentService
}

// NewInstrumentHandler creates a new InstrumentHandler.
func NewInstrumentHandler(instrumentSvc *service.InstrumentService) *InstrumentHandler {
	return &InstrumentHandler{instrumentSvc: instrumentSvc}
}

type instrumentResponse struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

type instrumentListResponse struct {
	Instruments []instrumentResponse `json:"instruments"`
}

// List handles GET /instruments.
func (h *InstrumentHandler) List(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.instrumentSvc.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := instrumentListResponse{Instruments: make([]instrumentResponse, 0, len(instruments))}
	for _, inst := range instruments {
		resp.Instruments = append(resp.Instruments, instrumentResponse{
			Symbol: inst.Symbol,
			Name:   inst.Name,
			Price:  domain.CentsToDollars(inst.Price),
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}

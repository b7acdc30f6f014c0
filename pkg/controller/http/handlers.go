package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/usecase"
	"github.com/tradefin-lab/rfpcore/pkg/utils/errutil"
	"github.com/tradefin-lab/rfpcore/pkg/utils/safe"
)

// statusOf maps use case sentinels to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrFieldValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(usecase.ErrFieldValidation, "malformed request body")
	}
	return nil
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}

func (s *Server) createRFPHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RDID                 string   `json:"rdId"`
		ParticipantStaticIDs []string `json:"participantStaticIds"`
	}
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	result, err := s.uc.Request.CreateRFP(r.Context(), req.RDID, req.ParticipantStaticIDs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

func (s *Server) submitQuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RDID    string `json:"rdId"`
		QuoteID string `json:"quoteId"`
		Comment string `json:"comment"`
	}
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	result, err := s.uc.Quote.SubmitQuote(r.Context(), req.RDID, req.QuoteID, req.Comment)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

func (s *Server) rejectHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RDID    string `json:"rdId"`
		Comment string `json:"comment"`
	}
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	result, err := s.uc.Request.Reject(r.Context(), req.RDID, req.Comment)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

func (s *Server) acceptQuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RDID                string `json:"rdId"`
		QuoteID             string `json:"quoteId"`
		ParticipantStaticID string `json:"participantStaticId"`
		Comment             string `json:"comment"`
	}
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	result, err := s.uc.Quote.AcceptQuote(r.Context(), req.RDID, req.ParticipantStaticID, req.QuoteID, req.Comment)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

func (s *Server) createRDHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TradeSourceID string  `json:"tradeSourceId"`
		InvoiceAmount float64 `json:"invoiceAmount"`
		Currency      string  `json:"currency"`
		AdvanceRate   float64 `json:"advanceRate"`
	}
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	rd, err := s.uc.RD.Create(r.Context(), &model.RDApplication{
		TradeSourceID: req.TradeSourceID,
		InvoiceAmount: req.InvoiceAmount,
		Currency:      req.Currency,
		AdvanceRate:   req.AdvanceRate,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, toRDResponse(rd))
}

func (s *Server) getRDHandler(w http.ResponseWriter, r *http.Request) {
	rd, err := s.uc.RD.Get(r.Context(), chi.URLParam(r, "rdID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toRDResponse(rd))
}

func (s *Server) rfpSummaryHandler(w http.ResponseWriter, r *http.Request) {
	info, err := s.uc.Summary.GetRFPSummary(r.Context(), chi.URLParam(r, "rdID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toRDInfoResponse(info))
}

func (s *Server) participantSummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.uc.Summary.GetParticipantRFPSummary(r.Context(),
		chi.URLParam(r, "rdID"), chi.URLParam(r, "participantID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toParticipantSummaryResponse(summary))
}

func (s *Server) createQuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RDID            string  `json:"rdId"`
		Advance         float64 `json:"advance"`
		PricingPercent  float64 `json:"pricingPercent"`
		DaysDiscounting int     `json:"daysDiscounting"`
		Comment         string  `json:"comment"`
	}
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	quote, err := s.uc.Quote.CreateQuote(r.Context(), &model.Quote{
		RDID:            req.RDID,
		Advance:         req.Advance,
		PricingPercent:  req.PricingPercent,
		DaysDiscounting: req.DaysDiscounting,
		Comment:         req.Comment,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, toQuoteResponse(quote))
}

func (s *Server) getQuoteHandler(w http.ResponseWriter, r *http.Request) {
	quote, err := s.uc.Quote.GetQuote(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toQuoteResponse(quote))
}

func (s *Server) updateQuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Advance         float64 `json:"advance"`
		PricingPercent  float64 `json:"pricingPercent"`
		DaysDiscounting int     `json:"daysDiscounting"`
		Comment         string  `json:"comment"`
	}
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	quote, err := s.uc.Quote.UpdateQuote(r.Context(), &model.Quote{
		StaticID:        chi.URLParam(r, "quoteID"),
		Advance:         req.Advance,
		PricingPercent:  req.PricingPercent,
		DaysDiscounting: req.DaysDiscounting,
		Comment:         req.Comment,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toQuoteResponse(quote))
}

// Response DTOs. The domain models carry no JSON tags on purpose; the wire
// shape is owned here.

type rdResponse struct {
	StaticID                    string    `json:"staticId"`
	TradeSourceID               string    `json:"tradeSourceId,omitempty"`
	InvoiceAmount               float64   `json:"invoiceAmount"`
	Currency                    string    `json:"currency"`
	AdvanceRate                 float64   `json:"advanceRate"`
	AcceptedParticipantStaticID string    `json:"acceptedParticipantStaticId,omitempty"`
	CreatedAt                   time.Time `json:"createdAt"`
	UpdatedAt                   time.Time `json:"updatedAt"`
}

func toRDResponse(rd *model.RDApplication) *rdResponse {
	return &rdResponse{
		StaticID:                    rd.StaticID,
		TradeSourceID:               rd.TradeSourceID,
		InvoiceAmount:               rd.InvoiceAmount,
		Currency:                    rd.Currency,
		AdvanceRate:                 rd.AdvanceRate,
		AcceptedParticipantStaticID: rd.AcceptedParticipantStaticID,
		CreatedAt:                   rd.CreatedAt,
		UpdatedAt:                   rd.UpdatedAt,
	}
}

type quoteResponse struct {
	StaticID        string    `json:"staticId"`
	RDID            string    `json:"rdId"`
	Advance         float64   `json:"advance"`
	PricingPercent  float64   `json:"pricingPercent"`
	DaysDiscounting int       `json:"daysDiscounting"`
	Comment         string    `json:"comment,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toQuoteResponse(quote *model.Quote) *quoteResponse {
	return &quoteResponse{
		StaticID:        quote.StaticID,
		RDID:            quote.RDID,
		Advance:         quote.Advance,
		PricingPercent:  quote.PricingPercent,
		DaysDiscounting: quote.DaysDiscounting,
		Comment:         quote.Comment,
		CreatedAt:       quote.CreatedAt,
		UpdatedAt:       quote.UpdatedAt,
	}
}

type replyViewResponse struct {
	Type           string         `json:"type"`
	SenderStaticID string         `json:"senderStaticId"`
	Comment        string         `json:"comment,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	Quote          *quoteResponse `json:"quote,omitempty"`
}

type participantSummaryResponse struct {
	ParticipantStaticID string              `json:"participantStaticId"`
	Status              string              `json:"status"`
	Replies             []replyViewResponse `json:"replies"`
}

func toParticipantSummaryResponse(summary *model.ParticipantRFPSummary) *participantSummaryResponse {
	resp := &participantSummaryResponse{
		ParticipantStaticID: summary.ParticipantStaticID,
		Status:              summary.Status.String(),
		Replies:             make([]replyViewResponse, 0, len(summary.Replies)),
	}
	for _, reply := range summary.Replies {
		view := replyViewResponse{
			Type:           reply.Type.String(),
			SenderStaticID: reply.SenderStaticID,
			Comment:        reply.Comment,
			CreatedAt:      reply.CreatedAt,
		}
		if reply.Quote != nil {
			view.Quote = toQuoteResponse(reply.Quote)
		}
		resp.Replies = append(resp.Replies, view)
	}
	return resp
}

type rdInfoResponse struct {
	RD                          *rdResponse                   `json:"rd"`
	RFPID                       string                        `json:"rfpId,omitempty"`
	Status                      string                        `json:"status"`
	AcceptedParticipantStaticID string                        `json:"acceptedParticipantStaticId,omitempty"`
	ParticipantSummaries        []*participantSummaryResponse `json:"participantSummaries"`
}

func toRDInfoResponse(info *model.RDInfo) *rdInfoResponse {
	resp := &rdInfoResponse{
		RD:                          toRDResponse(info.RD),
		Status:                      info.Status.String(),
		AcceptedParticipantStaticID: info.AcceptedParticipantStaticID,
		ParticipantSummaries:        make([]*participantSummaryResponse, 0, len(info.ParticipantSummaries)),
	}
	if info.RFP != nil {
		resp.RFPID = info.RFP.StaticID
	}
	for _, summary := range info.ParticipantSummaries {
		resp.ParticipantSummaries = append(resp.ParticipantSummaries, toParticipantSummaryResponse(summary))
	}
	return resp
}

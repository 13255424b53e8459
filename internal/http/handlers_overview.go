package http

import (
	"fmt"
	"net/http"

	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/services"
	"subtrack/internal/store"
)

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{"filter": s.store.Filter()}).Write(w)
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var patch filterPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := patch.validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	err := s.store.SetFilter(r.Context(), patch.applyTo(s.store.Filter()))
	resp := NewJSONResponse()
	if !s.persistOK(w, r, resp, err, log.OpFilter) {
		return
	}
	subs := s.store.FilteredSubscriptions()
	resp.Body(map[string]any{
		"filter":        s.store.Filter(),
		"subscriptions": nonNil(subs),
		"count":         len(subs),
	}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.store.Categories()
	if cats == nil {
		cats = []string{}
	}
	NewJSONResponse().Body(map[string]any{
		"categories": cats,
		"suggested": map[string]any{
			"categories":     core.SuggestedCategories,
			"paymentMethods": core.SuggestedPaymentMethods,
			"colors":         core.SuggestedColors,
			"currency":       core.DefaultCurrency,
			"icon":           core.DefaultIcon,
		},
	}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	o := s.store.Overview()
	cats := o.ByCategory
	if cats == nil {
		cats = []core.CategoryAmount{}
	}
	NewJSONResponse().Body(map[string]any{
		"totalMonthly": core.RoundCents(o.TotalMonthly),
		"totalYearly":  core.RoundCents(o.TotalYearly),
		"activeCount":  o.ActiveCount,
		"totalCount":   o.TotalCount,
		"categories":   cats,
	}).Write(w)
}

func (s *Server) handleRenewals(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, store.DefaultUpcomingDays)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	today := s.store.Today()
	renewals := services.Annotate(s.store.UpcomingRenewals(days), today)
	NewJSONResponse().Body(map[string]any{
		"today":    today,
		"days":     days,
		"renewals": renewals,
	}).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		NotFoundError("export is not configured").Write(w)
		return
	}
	data, err := s.exporter.XLSX(r.Context())
	if err != nil {
		s.events.LogError(r.Context(), "Export failed", err, log.ComponentExport, log.OpExport, nil)
		InternalServerError("export failed").Write(w)
		return
	}

	filename := fmt.Sprintf("subscriptions-%s.xlsx", s.store.Today())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

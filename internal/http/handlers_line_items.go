package http

import (
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// lineItemRequest is the create/replace body. multiple_payments=0 discards
// any installment fields sent alongside.
type lineItemRequest struct {
	ledger.RawLineItem
	MultiplePayments *ledger.Flag `json:"multiple_payments,omitempty"`
}

func (s *Server) handleList(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		items, err := s.lineItems.List(r.Context(), uid, kind, s.now())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeItems(w, r, items)
	}
}

func (s *Server) handleFilter(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		var form ledger.FilterForm
		if err := decodeJSON(w, r, &form); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		criteria, err := form.Criteria()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		items, err := s.lineItems.Filter(r.Context(), uid, kind, criteria, s.now())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeItems(w, r, items)
	}
}

// writeItems renders classified items, one page of them when ?page is set.
// X-Total-Pages carries the page count in that case.
func writeItems(w http.ResponseWriter, r *http.Request, items []ledger.Classified) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if page > 0 {
		var pages int
		items, pages = ledger.Paginate(items, page, ledger.PageSize)
		w.Header().Set("X-Total-Pages", strconv.Itoa(pages))
	}
	writeJSON(w, http.StatusOK, ledger.ToRawAll(items))
}

func (s *Server) handleGet(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		item, err := s.lineItems.Get(r.Context(), uid, kind, id, s.now())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ledger.ToRaw(item))
	}
}

func (s *Server) handleCreate(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		item, ok := s.readLineItem(w, r, uid, kind)
		if !ok {
			return
		}
		created, err := s.lineItems.Create(r.Context(), uid, item)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		s.writeItem(w, r, http.StatusCreated, created)
	}
}

func (s *Server) handleUpdate(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		item, ok := s.readLineItem(w, r, uid, kind)
		if !ok {
			return
		}
		item.ID = id
		updated, err := s.lineItems.Update(r.Context(), uid, item)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		s.writeItem(w, r, http.StatusOK, updated)
	}
}

func (s *Server) handleDelete(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.lineItems.Delete(r.Context(), uid, kind, id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := s.lineItems.Installments(r.Context(), uid, id, s.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	overview, err := s.lineItems.Summary(r.Context(), uid, s.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// readLineItem decodes and normalizes a request body. An expense category
// given by name only is created on demand.
func (s *Server) readLineItem(w http.ResponseWriter, r *http.Request, uid int64, kind core.Kind) (core.LineItem, bool) {
	var req lineItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return core.LineItem{}, false
	}
	raw := req.RawLineItem
	if req.MultiplePayments != nil && !bool(*req.MultiplePayments) {
		raw.NumInstallments, raw.PaymentDay = 0, 0
	}
	if kind == core.Expense && raw.Category != nil && raw.Category.ID == 0 {
		name := strings.TrimSpace(raw.Category.Name)
		if name != "" && !strings.EqualFold(name, core.UncategorizedName) {
			cat, _, err := s.categories.Ensure(r.Context(), uid, name)
			if err != nil {
				writeServiceError(w, r, err)
				return core.LineItem{}, false
			}
			raw.Category = &cat
		}
	}
	item, err := ledger.Normalize(raw, kind)
	if err != nil {
		writeServiceError(w, r, err)
		return core.LineItem{}, false
	}
	return item, true
}

func (s *Server) writeItem(w http.ResponseWriter, r *http.Request, status int, item core.LineItem) {
	st, err := ledger.Classify(item, item.Kind, s.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, ledger.ToRaw(ledger.Classified{Item: item, Status: st}))
}

package dashboard

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/platform/httpx"
	"github.com/fulfilhub/dashboard/internal/query"
	"github.com/fulfilhub/dashboard/internal/resources"
	"github.com/fulfilhub/dashboard/internal/shared"
)

// homeFanout caps concurrent backend reads for the home counters.
const homeFanout = 4

type homeCard struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Path   string `json:"path"`
	Count  int    `json:"count"`
	Failed bool   `json:"failed"`
}

type homeData struct {
	Cards []homeCard
}

type filterView struct {
	Search string `json:"search,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

type tableView struct {
	Columns []resources.Field
	Rows    []resources.Record
	Link    string
}

type listData struct {
	Resource     resources.Resource
	Columns      []resources.Field
	Rows         []resources.Record
	Link         string
	Filter       filterView
	DateRange    bool
	Failed       bool
	ErrorMessage string
}

type detailData struct {
	Resource      resources.Resource
	ID            string
	Record        resources.Record
	StatusOptions []string
	Stock         *tableView
	Failed        bool
	ErrorMessage  string
}

type formData struct {
	Resource resources.Resource
	Values   map[string]string
	Error    string
}

var statusOptions = []string{"pending", "in_progress", "done"}

var stockColumns = []resources.Field{
	{Name: "warehouse", Label: "Gudang"},
	{Name: "quantity", Label: "Jumlah"},
}

// home counts the records of every resource the role may open.
func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	cards := h.homeCards(r.Context(), sess)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"cards": cards})
		return
	}
	h.render(w, r, http.StatusOK, "pages/dashboard.html", "Beranda", homeData{Cards: cards})
}

func (h *Handler) homeCards(ctx context.Context, sess shared.Session) []homeCard {
	var cards []homeCard
	var visible []resources.Resource
	for _, res := range h.service.Catalog().All() {
		if h.policy.AllowsResource(sess.Role, res.Name) {
			visible = append(visible, res)
			cards = append(cards, homeCard{Name: res.Name, Title: res.Title, Path: res.Route()})
		}
	}
	var g errgroup.Group
	g.SetLimit(homeFanout)
	for i, res := range visible {
		g.Go(func() error {
			count, err := h.service.Count(ctx, sess, res)
			if err != nil {
				cards[i].Failed = true
				return nil
			}
			cards[i].Count = count
			return nil
		})
	}
	_ = g.Wait()
	return cards
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	filter, view := parseFilter(r)
	sess := shared.SessionFromContext(r.Context())
	result := h.service.List(r.Context(), sess, res, filter)

	if httpx.WantsJSON(r) {
		if !result.OK() {
			httpx.RespondError(w, result.Err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"data": result.Data, "from_cache": result.FromCache})
		return
	}

	data := listData{
		Resource:  res,
		Columns:   res.ListFields(),
		Rows:      result.Data,
		Link:      res.Route(),
		Filter:    view,
		DateRange: res.Search == resources.SearchServer,
	}
	status := http.StatusOK
	if !result.OK() {
		data.Failed = true
		data.ErrorMessage = query.NormalizeError(result.Err)
		status = readFailureStatus(result.Err)
	}
	h.render(w, r, status, "pages/resource_list.html", res.Title, data)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	sess := shared.SessionFromContext(r.Context())
	result := h.service.Detail(r.Context(), sess, res, id)

	if httpx.WantsJSON(r) {
		if !result.OK() {
			httpx.RespondError(w, result.Err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"data": result.Data, "from_cache": result.FromCache})
		return
	}

	data := detailData{Resource: res, ID: id, Record: result.Data}
	if res.Name == "printings" || res.Name == "packings" {
		data.StatusOptions = statusOptions
	}
	if res.Name == "stocks" {
		if stock := h.service.StockByProduct(r.Context(), sess, id); stock.OK() {
			data.Stock = &tableView{Columns: stockColumns, Rows: stock.Data}
		}
	}
	status := http.StatusOK
	if !result.OK() {
		data.Failed = true
		data.ErrorMessage = query.NormalizeError(result.Err)
		status = readFailureStatus(result.Err)
	}
	h.render(w, r, status, "pages/resource_detail.html", res.Title, data)
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "pages/resource_form.html", "Tambah "+res.Title, formData{Resource: res, Values: map[string]string{}})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	file, err := h.service.Export(r.Context(), sess, res)
	if errors.Is(err, resources.ErrNotSupported) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.logWriteError(r, err)
		shared.SetFlash(w, shared.FlashMessage{Kind: shared.FlashError, Message: query.NormalizeError(err)})
		http.Redirect(w, r, res.Route(), http.StatusSeeOther)
		return
	}
	writeAttachment(w, file)
}

func writeAttachment(w http.ResponseWriter, file api.File) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(file.Name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(file.Name, `"`, "")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// parseFilter reads ?q=&start=&end=. Malformed dates are ignored.
func parseFilter(r *http.Request) (resources.ListFilter, filterView) {
	q := r.URL.Query()
	filter := resources.ListFilter{Search: strings.TrimSpace(q.Get("q"))}
	view := filterView{Search: filter.Search}
	if t, err := time.Parse(time.DateOnly, q.Get("start")); err == nil {
		filter.Start = t
		view.Start = q.Get("start")
	}
	if t, err := time.Parse(time.DateOnly, q.Get("end")); err == nil {
		filter.End = t
		view.End = q.Get("end")
	}
	return filter, view
}

// readFailureStatus keeps a backend 404 and reports everything else as 502.
func readFailureStatus(err error) int {
	var respErr *api.ResponseError
	if errors.As(err, &respErr) && respErr.Status == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

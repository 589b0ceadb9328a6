package dashboard

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/platform/httpx"
	"github.com/fulfilhub/dashboard/internal/query"
	"github.com/fulfilhub/dashboard/internal/resources"
	"github.com/fulfilhub/dashboard/internal/shared"
)

func formValues(r *http.Request, res resources.Resource) map[string]string {
	values := make(map[string]string, len(res.Fields))
	for _, f := range res.Fields {
		values[f.Name] = r.PostFormValue(f.Name)
	}
	return values
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	values := formValues(r, res)
	body, err := res.Values(values)
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.render(w, r, http.StatusBadRequest, "pages/resource_form.html", "Tambah "+res.Title,
			formData{Resource: res, Values: values, Error: err.Error()})
		return
	}
	sess := shared.SessionFromContext(r.Context())
	notice, err := h.service.Create(r.Context(), sess, res, body)
	if err != nil && !httpx.WantsJSON(r) {
		h.logWriteError(r, err)
		h.render(w, r, http.StatusBadRequest, "pages/resource_form.html", "Tambah "+res.Title,
			formData{Resource: res, Values: values, Error: notice.Message})
		return
	}
	h.finish(w, r, res.Route(), notice, err)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	target := res.Route() + "/" + id
	body, err := res.Values(formValues(r, res))
	if err != nil {
		h.finish(w, r, target, shared.FlashMessage{Kind: shared.FlashError, Message: err.Error()}, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	notice, err := h.service.Update(r.Context(), sess, res, id, body)
	h.finish(w, r, target, notice, err)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	sess := shared.SessionFromContext(r.Context())
	notice, err := h.service.Delete(r.Context(), sess, res, id)
	if err != nil {
		h.finish(w, r, res.Route()+"/"+id, notice, err)
		return
	}
	h.finish(w, r, res.Route(), notice, nil)
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	if !res.Importable {
		h.notFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, shared.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		notice := shared.FlashMessage{Kind: shared.FlashError, Message: "Berkas impor tidak valid"}
		h.finish(w, r, res.Route(), notice, &resources.FormError{Message: notice.Message})
		return
	}
	defer file.Close()

	sess := shared.SessionFromContext(r.Context())
	notice, err := h.service.Import(r.Context(), sess, res, api.Upload{Filename: header.Filename, Data: file})
	h.finish(w, r, res.Route(), notice, err)
}

func (h *Handler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	in := resources.StatusChange{ID: chi.URLParam(r, "id"), Status: r.PostFormValue("status")}
	var (
		notice shared.FlashMessage
		err    error
	)
	switch res.Name {
	case "printings":
		notice, err = h.service.AdvancePrinting(r.Context(), sess, in)
	case "packings":
		notice, err = h.service.AdvancePacking(r.Context(), sess, in)
	default:
		h.notFound(w, r)
		return
	}
	h.finish(w, r, res.Route()+"/"+in.ID, notice, err)
}

func (h *Handler) moveStock(w http.ResponseWriter, r *http.Request) {
	quantity, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("quantity")))
	if err != nil {
		notice := shared.FlashMessage{Kind: shared.FlashError, Message: "Jumlah harus berupa angka"}
		h.finish(w, r, "/dashboard/stocks", notice, &resources.FormError{Message: notice.Message})
		return
	}
	in := resources.StockMovement{
		ProductID: strings.TrimSpace(r.PostFormValue("product_id")),
		Direction: resources.Direction(r.PostFormValue("type")),
		Quantity:  quantity,
		Note:      strings.TrimSpace(r.PostFormValue("note")),
	}
	sess := shared.SessionFromContext(r.Context())
	notice, err := h.service.MoveStock(r.Context(), sess, in)
	h.finish(w, r, "/dashboard/stocks", notice, err)
}

func (h *Handler) createShipment(w http.ResponseWriter, r *http.Request) {
	var orderIDs []string
	for _, id := range strings.Split(r.PostFormValue("order_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			orderIDs = append(orderIDs, id)
		}
	}
	in := resources.Shipment{
		OrderIDs:          orderIDs,
		ShippingServiceID: strings.TrimSpace(r.PostFormValue("shipping_service_id")),
		TrackingNumber:    strings.TrimSpace(r.PostFormValue("tracking_number")),
	}
	sess := shared.SessionFromContext(r.Context())
	notice, err := h.service.CreateShipment(r.Context(), sess, in)
	h.finish(w, r, "/dashboard/shippings", notice, err)
}

func (h *Handler) stockHistory(w http.ResponseWriter, r *http.Request) {
	dir := resources.StockIn
	title := "Riwayat Stok Masuk"
	if r.URL.Query().Get("type") == string(resources.StockOut) {
		dir = resources.StockOut
		title = "Riwayat Stok Keluar"
	}
	filter, view := parseFilter(r)
	sess := shared.SessionFromContext(r.Context())
	result := h.service.StockHistory(r.Context(), sess, dir, filter)

	if httpx.WantsJSON(r) {
		if !result.OK() {
			httpx.RespondError(w, result.Err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"data": result.Data, "from_cache": result.FromCache})
		return
	}

	data := historyData{Direction: string(dir), Filter: view, Columns: historyColumns, Rows: result.Data}
	status := http.StatusOK
	if !result.OK() {
		data.Failed = true
		data.ErrorMessage = query.NormalizeError(result.Err)
		status = readFailureStatus(result.Err)
	}
	h.render(w, r, status, "pages/stock_history.html", title, data)
}

type historyData struct {
	Direction    string
	Filter       filterView
	Columns      []resources.Field
	Rows         []resources.Record
	Link         string
	Failed       bool
	ErrorMessage string
}

var historyColumns = []resources.Field{
	{Name: "date", Label: "Tanggal"},
	{Name: "sku", Label: "SKU"},
	{Name: "product_name", Label: "Produk"},
	{Name: "quantity", Label: "Jumlah"},
	{Name: "note", Label: "Catatan"},
}


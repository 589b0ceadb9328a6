package resources

import (
	"fmt"
	"net/http"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/query"
)

// SearchMode selects where list searches run.
type SearchMode int

const (
	// SearchLocal fetches the whole list once and filters it in the gateway.
	// Only suitable for small tables; the backend offers no search for these.
	SearchLocal SearchMode = iota
	// SearchServer forwards the term and date range to the backend.
	SearchServer
)

// FieldType drives how a field is rendered and coerced from form input.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldPassword FieldType = "password"
)

// Field describes one attribute of a resource record.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	// List shows the field as a column on the list page.
	List bool
	// Search includes the field in local searches.
	Search bool
}

// Resource is a backend collection managed from the dashboard.
type Resource struct {
	Name       string
	Title      string
	Endpoint   string
	Search     SearchMode
	Exportable bool
	Importable bool
	Fields     []Field
	// Affects names further graph nodes made stale by writes to this resource.
	Affects []string

	list   api.Request[[]Record]
	detail api.Request[Record]
	create api.Request[api.Envelope]
	update api.Request[api.Envelope]
	remove api.Request[api.Envelope]
	export api.Request[api.File]
	upload api.Request[api.Envelope]
}

// Route is the dashboard path of the resource.
func (r Resource) Route() string { return "/dashboard/" + r.Name }

// ListTag is the cache tag of the list query.
func (r Resource) ListTag() string { return "get-all-" + r.Name }

// DetailTag is the cache tag of the detail query.
func (r Resource) DetailTag() string { return "get-" + r.Name }

// ListFields returns the fields shown as list columns.
func (r Resource) ListFields() []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.List {
			out = append(out, f)
		}
	}
	return out
}

func (r Resource) searchValues(rec Record) []string {
	var out []string
	for _, f := range r.Fields {
		if f.Search {
			out = append(out, rec.Field(f.Name))
		}
	}
	return out
}

func (r Resource) withRequests() Resource {
	item := r.Endpoint + "/{id}"
	r.list = api.NewRequest[[]Record](r.Endpoint, http.MethodGet).WithTransform(decodeList)
	r.detail = api.NewRequest[Record](item, http.MethodGet).WithTransform(decodeRecord)
	r.create = api.NewRequest[api.Envelope](r.Endpoint, http.MethodPost)
	r.update = api.NewRequest[api.Envelope](item, http.MethodPut)
	r.remove = api.NewRequest[api.Envelope](item, http.MethodDelete)
	if r.Exportable {
		r.export = api.NewExportRequest(r.Endpoint + "/export")
	}
	if r.Importable {
		r.upload = api.NewImportRequest(r.Endpoint + "/import")
	}
	return r
}

// Catalog is the ordered set of managed resources.
type Catalog struct {
	order  []string
	byName map[string]Resource
}

// NewCatalog indexes resources and builds their request descriptors.
func NewCatalog(items ...Resource) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Resource, len(items))}
	for _, item := range items {
		if item.Name == "" || item.Endpoint == "" {
			return nil, fmt.Errorf("resources: resource requires name and endpoint")
		}
		if _, dup := c.byName[item.Name]; dup {
			return nil, fmt.Errorf("resources: duplicate resource %q", item.Name)
		}
		c.byName[item.Name] = item.withRequests()
		c.order = append(c.order, item.Name)
	}
	return c, nil
}

// Lookup returns the resource registered under name.
func (c *Catalog) Lookup(name string) (Resource, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// All returns resources in declaration order.
func (c *Catalog) All() []Resource {
	out := make([]Resource, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Names returns resource names in declaration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Graph derives the invalidation graph: each resource affects its own list and
// detail reads, plus the cross-resource nodes below.
func (c *Catalog) Graph() query.Graph {
	g := query.Graph{}
	for _, r := range c.All() {
		g[r.Name] = []query.Key{query.NewKey(r.ListTag()), query.NewKey(r.DetailTag())}
	}
	g[NodeStockMovement] = []query.Key{
		query.NewKey(TagStockByProduct),
		query.NewKey(TagInStockHistory),
		query.NewKey(TagOutStockHistory),
		query.NewKey("get-all-products"),
		query.NewKey("get-all-stocks"),
	}
	g[NodeShipment] = []query.Key{
		query.NewKey("get-all-orders"),
		query.NewKey("get-all-printings"),
		query.NewKey("get-all-packings"),
		query.NewKey("get-all-shippings"),
		query.NewKey("get-all-sweeping-orders"),
	}
	g[NodePrintingStatus] = []query.Key{
		query.NewKey("get-all-printings"),
		query.NewKey("get-printings"),
		query.NewKey("get-all-packings"),
		query.NewKey("get-all-sweeping-orders"),
	}
	g[NodePackingStatus] = []query.Key{
		query.NewKey("get-all-packings"),
		query.NewKey("get-packings"),
		query.NewKey("get-all-shippings"),
		query.NewKey("get-all-sweeping-orders"),
	}
	return g
}

// Graph nodes for writes that span resources.
const (
	NodeStockMovement  = "stock-movement"
	NodeShipment       = "shipment"
	NodePrintingStatus = "printing-status"
	NodePackingStatus  = "packing-status"
)

// DefaultCatalog returns the fulfilment resources served by the backend.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultResources()...)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultResources() []Resource {
	name := Field{Name: "name", Label: "Nama", Type: FieldText, Required: true, List: true, Search: true}
	return []Resource{
		{
			Name: "cooperations", Title: "Kerja Sama", Endpoint: "/kerjasama",
			Fields: []Field{
				name,
				{Name: "partner", Label: "Mitra", Type: FieldText, Required: true, List: true, Search: true},
				{Name: "start_date", Label: "Mulai", Type: FieldDate, List: true},
				{Name: "end_date", Label: "Berakhir", Type: FieldDate, List: true},
			},
		},
		{
			Name: "brands", Title: "Brand", Endpoint: "/brands", Exportable: true,
			Fields:  []Field{name, {Name: "description", Label: "Deskripsi", Type: FieldText}},
			Affects: []string{"products"},
		},
		{
			Name: "products", Title: "Produk", Endpoint: "/produk", Exportable: true, Importable: true,
			Fields: []Field{
				{Name: "sku", Label: "SKU", Type: FieldText, Required: true, List: true, Search: true},
				name,
				{Name: "brand_id", Label: "Brand", Type: FieldNumber, Required: true},
				{Name: "price", Label: "Harga", Type: FieldNumber, Required: true, List: true},
			},
			Affects: []string{"stocks"},
		},
		{
			Name: "marketplaces", Title: "Marketplace", Endpoint: "/marketplace",
			Fields: []Field{name, {Name: "url", Label: "URL", Type: FieldText, List: true}},
		},
		{
			Name: "users", Title: "Pengguna", Endpoint: "/users",
			Fields: []Field{
				{Name: "username", Label: "Username", Type: FieldText, Required: true, List: true, Search: true},
				{Name: "name", Label: "Nama", Type: FieldText, Required: true, List: true, Search: true},
				{Name: "role", Label: "Role", Type: FieldText, Required: true, List: true, Search: true},
				{Name: "password", Label: "Password", Type: FieldPassword},
			},
		},
		{
			Name: "shipping-services", Title: "Jasa Pengiriman", Endpoint: "/jasa-pengiriman",
			Fields: []Field{name, {Name: "code", Label: "Kode", Type: FieldText, List: true, Search: true}},
		},
		{
			Name: "orders", Title: "Pesanan", Endpoint: "/pesanan", Search: SearchServer,
			Exportable: true, Importable: true,
			Fields: []Field{
				{Name: "invoice", Label: "Invoice", Type: FieldText, Required: true, List: true},
				{Name: "customer_id", Label: "Pelanggan", Type: FieldNumber, Required: true},
				{Name: "marketplace_id", Label: "Marketplace", Type: FieldNumber, Required: true},
				{Name: "order_date", Label: "Tanggal", Type: FieldDate, Required: true, List: true},
				{Name: "status", Label: "Status", Type: FieldText, List: true},
			},
			Affects: []string{"sweeping-orders", "printings"},
		},
		{
			Name: "customers", Title: "Pelanggan", Endpoint: "/pelanggan", Exportable: true,
			Fields: []Field{
				name,
				{Name: "phone", Label: "Telepon", Type: FieldText, List: true, Search: true},
				{Name: "address", Label: "Alamat", Type: FieldText},
			},
		},
		{
			Name: "sweeping-orders", Title: "Sweeping Pesanan", Endpoint: "/pesanan/sweeping", Search: SearchServer,
			Fields: []Field{
				{Name: "invoice", Label: "Invoice", Type: FieldText, List: true},
				{Name: "status", Label: "Status", Type: FieldText, List: true},
				{Name: "updated_at", Label: "Diperbarui", Type: FieldDate, List: true},
			},
		},
		{
			Name: "printings", Title: "Printing", Endpoint: "/printing", Search: SearchServer,
			Fields: []Field{
				{Name: "invoice", Label: "Invoice", Type: FieldText, Required: true, List: true},
				{Name: "status", Label: "Status", Type: FieldText, List: true},
			},
			Affects: []string{"sweeping-orders"},
		},
		{
			Name: "packings", Title: "Packing", Endpoint: "/packing", Search: SearchServer,
			Fields: []Field{
				{Name: "invoice", Label: "Invoice", Type: FieldText, Required: true, List: true},
				{Name: "status", Label: "Status", Type: FieldText, List: true},
			},
			Affects: []string{"sweeping-orders"},
		},
		{
			Name: "shippings", Title: "Pengiriman", Endpoint: "/pengiriman", Search: SearchServer, Exportable: true,
			Fields: []Field{
				{Name: "invoice", Label: "Invoice", Type: FieldText, Required: true, List: true},
				{Name: "tracking_number", Label: "No. Resi", Type: FieldText, List: true},
				{Name: "shipping_service_id", Label: "Jasa Pengiriman", Type: FieldNumber, Required: true},
			},
			Affects: []string{NodeShipment},
		},
		{
			Name: "stocks", Title: "Stok", Endpoint: "/stok", Exportable: true,
			Fields: []Field{
				{Name: "sku", Label: "SKU", Type: FieldText, List: true, Search: true},
				{Name: "product_name", Label: "Produk", Type: FieldText, List: true, Search: true},
				{Name: "quantity", Label: "Jumlah", Type: FieldNumber, List: true},
			},
		},
	}
}

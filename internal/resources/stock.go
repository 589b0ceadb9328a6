package resources

import (
	"context"
	"net/http"
	"strings"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/query"
	"github.com/fulfilhub/dashboard/internal/shared"
)

// Cache tags for stock reads.
const (
	TagStockByProduct  = "get-stock-by-product"
	TagInStockHistory  = "get-in-stock-history"
	TagOutStockHistory = "get-out-stock-history"
)

// MessageStockMoved is the default notice after a stock movement.
const MessageStockMoved = "Pergerakan stok berhasil dicatat"

// Direction of a stock movement.
type Direction string

const (
	StockIn  Direction = "in"
	StockOut Direction = "out"
)

var (
	stockByProductRequest  = api.NewRequest[[]Record]("/stok/produk/{id}", http.MethodGet).WithTransform(decodeList)
	inStockHistoryRequest  = api.NewRequest[[]Record]("/stok/masuk", http.MethodGet).WithTransform(decodeList)
	outStockHistoryRequest = api.NewRequest[[]Record]("/stok/keluar", http.MethodGet).WithTransform(decodeList)
	stockMovementRequest   = api.NewRequest[api.Envelope]("/stok/mutasi", http.MethodPost)
)

// StockMovement records goods entering or leaving the warehouse.
type StockMovement struct {
	ProductID string    `json:"product_id" validate:"required"`
	Direction Direction `json:"type" validate:"required,oneof=in out"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	Note      string    `json:"note,omitempty" validate:"max=255"`
}

// StockByProduct reads stock levels for one product; idle until productID is set.
func (s *Service) StockByProduct(ctx context.Context, sess shared.Session, productID string) query.Result[[]Record] {
	productID = strings.TrimSpace(productID)
	return query.New(query.NewKey(TagStockByProduct, productID), func(ctx context.Context) ([]Record, error) {
		return stockByProductRequest.Do(ctx, s.client, sess, api.Call{Path: map[string]string{"id": productID}})
	}).When(productID != "").Run(ctx, s.scope(sess))
}

// StockHistory reads incoming or outgoing movements within the filter's date range.
func (s *Service) StockHistory(ctx context.Context, sess shared.Session, dir Direction, f ListFilter) query.Result[[]Record] {
	tag, req := TagInStockHistory, inStockHistoryRequest
	if dir == StockOut {
		tag, req = TagOutStockHistory, outStockHistoryRequest
	}
	params := f.params()
	key := query.NewKey(tag, params["search"], params["start_date"], params["end_date"])
	return query.New(key, func(ctx context.Context) ([]Record, error) {
		return req.Do(ctx, s.client, sess, api.Call{Query: params})
	}).Run(ctx, s.scope(sess))
}

// MoveStock validates and submits a movement. Stock levels, both histories and
// the product and stock lists are refetched afterwards.
func (s *Service) MoveStock(ctx context.Context, sess shared.Session, in StockMovement) (shared.FlashMessage, error) {
	if err := s.validate.Struct(in); err != nil {
		notice := shared.FlashMessage{Kind: shared.FlashError, Message: "Data pergerakan stok tidak valid"}
		return notice, err
	}
	m := query.Mutation[api.Call, api.Envelope]{
		Name: "create-" + NodeStockMovement,
		Do: func(ctx context.Context, call api.Call) (api.Envelope, error) {
			return stockMovementRequest.Do(ctx, s.client, sess, call)
		},
		Invalidates:    s.graph.MustKeys(NodeStockMovement),
		SuccessMessage: MessageStockMoved,
		MessageFrom:    api.Envelope.MessageText,
	}
	meta := map[string]any{"product_id": in.ProductID, "type": string(in.Direction), "quantity": in.Quantity}
	return s.execute(ctx, sess, "stocks", m, api.Call{Body: in}, meta)
}

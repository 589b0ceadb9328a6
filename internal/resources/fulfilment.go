package resources

import (
	"context"
	"net/http"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/query"
	"github.com/fulfilhub/dashboard/internal/shared"
)

// Default notices for fulfilment writes.
const (
	MessageShipmentCreated = "Pengiriman berhasil dibuat"
	MessageStatusUpdated   = "Status berhasil diperbarui"
)

var (
	shipmentRequest       = api.NewRequest[api.Envelope]("/pengiriman", http.MethodPost)
	printingStatusRequest = api.NewRequest[api.Envelope]("/printing/{id}/status", http.MethodPatch)
	packingStatusRequest  = api.NewRequest[api.Envelope]("/packing/{id}/status", http.MethodPatch)
)

// Shipment hands a batch of packed orders to a shipping service.
type Shipment struct {
	OrderIDs          []string `json:"order_ids" validate:"required,min=1,dive,required"`
	ShippingServiceID string   `json:"shipping_service_id" validate:"required"`
	TrackingNumber    string   `json:"tracking_number,omitempty" validate:"max=64"`
}

// StatusChange advances a printing or packing job.
type StatusChange struct {
	ID     string `json:"-" validate:"required"`
	Status string `json:"status" validate:"required,oneof=pending in_progress done"`
}

// CreateShipment submits a shipment. Orders, printing, packing, shipping and
// sweeping lists all reflect the new fulfilment state afterwards.
func (s *Service) CreateShipment(ctx context.Context, sess shared.Session, in Shipment) (shared.FlashMessage, error) {
	if err := s.validate.Struct(in); err != nil {
		return shared.FlashMessage{Kind: shared.FlashError, Message: "Data pengiriman tidak valid"}, err
	}
	m := s.fulfilmentMutation("create-"+NodeShipment, NodeShipment, MessageShipmentCreated, shipmentRequest, sess)
	meta := map[string]any{"orders": len(in.OrderIDs), "shipping_service_id": in.ShippingServiceID}
	return s.execute(ctx, sess, "shippings", m, api.Call{Body: in}, meta)
}

// AdvancePrinting updates the status of a printing job.
func (s *Service) AdvancePrinting(ctx context.Context, sess shared.Session, in StatusChange) (shared.FlashMessage, error) {
	return s.advance(ctx, sess, "printings", NodePrintingStatus, printingStatusRequest, in)
}

// AdvancePacking updates the status of a packing job.
func (s *Service) AdvancePacking(ctx context.Context, sess shared.Session, in StatusChange) (shared.FlashMessage, error) {
	return s.advance(ctx, sess, "packings", NodePackingStatus, packingStatusRequest, in)
}

func (s *Service) advance(ctx context.Context, sess shared.Session, resource, node string, req api.Request[api.Envelope], in StatusChange) (shared.FlashMessage, error) {
	if err := s.validate.Struct(in); err != nil {
		return shared.FlashMessage{Kind: shared.FlashError, Message: "Status tidak valid"}, err
	}
	m := s.fulfilmentMutation("update-"+node, node, MessageStatusUpdated, req, sess)
	call := api.Call{Path: map[string]string{"id": in.ID}, Body: in}
	return s.execute(ctx, sess, resource, m, call, map[string]any{"id": in.ID, "status": in.Status})
}

func (s *Service) fulfilmentMutation(name, node, message string, req api.Request[api.Envelope], sess shared.Session) query.Mutation[api.Call, api.Envelope] {
	return query.Mutation[api.Call, api.Envelope]{
		Name: name,
		Do: func(ctx context.Context, call api.Call) (api.Envelope, error) {
			return req.Do(ctx, s.client, sess, call)
		},
		Invalidates:    s.graph.MustKeys(node),
		SuccessMessage: message,
		MessageFrom:    api.Envelope.MessageText,
	}
}

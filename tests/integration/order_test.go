//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func newOrderRequest(items ...orderItemRequest) orderRequest {
	return orderRequest{
		ClientID:     "hotel-annapurna",
		DeliveryDate: "2030-01-15",
		Items:        items,
	}
}

func TestCreateOrder_NoAuth(t *testing.T) {
	req := newOrderRequest(orderItemRequest{ProductID: "tomato", Quantity: "10"})
	resp := doSend(t, http.MethodPost, "/api/admin/orders", req, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_InvalidKey(t *testing.T) {
	req := newOrderRequest(orderItemRequest{ProductID: "tomato", Quantity: "10"})
	resp := doSend(t, http.MethodPost, "/api/admin/orders", req, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	resp := doPost(t, "/api/admin/orders", newOrderRequest())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	req := newOrderRequest(orderItemRequest{ProductID: "dragonfruit", Quantity: "2"})
	resp := doPost(t, "/api/admin/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestCreateOrder_UnknownClient(t *testing.T) {
	req := newOrderRequest(orderItemRequest{ProductID: "tomato", Quantity: "10"})
	req.ClientID = "ghost-kitchen"
	resp := doPost(t, "/api/admin/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_PendingPricing(t *testing.T) {
	req := newOrderRequest(
		orderItemRequest{ProductID: "tomato", Quantity: "10"},
		orderItemRequest{ProductID: "coriander", Quantity: "5"},
	)
	resp := doPost(t, "/api/admin/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	if order.Status != "pending_pricing" {
		t.Errorf("status: got %q, want pending_pricing", order.Status)
	}
	if order.TotalAmount != nil {
		t.Errorf("total_amount: got %q, want null", *order.TotalAmount)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(order.Lines))
	}
	// Reference prices never leak into freshly placed orders.
	for _, line := range order.Lines {
		if line.PricePerUnit != nil {
			t.Errorf("line %s: price_per_unit %q, want null", line.ProductID, *line.PricePerUnit)
		}
	}
}

func TestCreateOrder_SuppliedPriceIsPriced(t *testing.T) {
	req := newOrderRequest(
		orderItemRequest{ProductID: "paneer", Quantity: "2", PricePerUnit: "350.00"},
	)
	resp := doPost(t, "/api/admin/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Status != "priced" {
		t.Errorf("status: got %q, want priced", order.Status)
	}
	if order.TotalAmount == nil || *order.TotalAmount != "700.00" {
		t.Errorf("total_amount: got %v, want 700.00", order.TotalAmount)
	}
}

func TestFinalizePrices_Flow(t *testing.T) {
	createResp := doPost(t, "/api/admin/orders", newOrderRequest(
		orderItemRequest{ProductID: "tomato", Quantity: "10"},
		orderItemRequest{ProductID: "coriander", Quantity: "5"},
	))
	created := decodeJSON[orderResponse](t, createResp)
	createResp.Body.Close()

	// The new order shows up in the pending-pricing worklist.
	listResp := doGet(t, "/api/admin/orders/pending-pricing")
	pending := decodeJSON[orderListResponse](t, listResp)
	listResp.Body.Close()
	found := false
	for _, o := range pending.Orders {
		if o.ID == created.ID {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("order %s not in pending-pricing list", created.ID)
	}

	resp := doPost(t, "/api/admin/orders/"+created.ID+"/finalize-prices", finalizeRequest{
		Prices: []linePrice{
			{ProductID: "tomato", PricePerUnit: "22.00"},
			{ProductID: "coriander", PricePerUnit: "12.00"},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Status != "priced" {
		t.Errorf("status: got %q, want priced", order.Status)
	}
	// 10 * 22.00 + 5 * 12.00
	if order.TotalAmount == nil || *order.TotalAmount != "280.00" {
		t.Errorf("total_amount: got %v, want 280.00", order.TotalAmount)
	}
}

func TestFinalizePrices_MissingLine(t *testing.T) {
	createResp := doPost(t, "/api/admin/orders", newOrderRequest(
		orderItemRequest{ProductID: "tomato", Quantity: "10"},
		orderItemRequest{ProductID: "onion", Quantity: "5"},
	))
	created := decodeJSON[orderResponse](t, createResp)
	createResp.Body.Close()

	resp := doPost(t, "/api/admin/orders/"+created.ID+"/finalize-prices", finalizeRequest{
		Prices: []linePrice{{ProductID: "tomato", PricePerUnit: "22.00"}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	// The partial submission must not have stuck.
	getResp := doGet(t, "/api/admin/orders/" + created.ID)
	defer getResp.Body.Close()
	order := decodeJSON[orderResponse](t, getResp)
	if order.Status != "pending_pricing" {
		t.Errorf("status after aborted finalize: got %q, want pending_pricing", order.Status)
	}
}

func TestFinalizePrices_AlreadyPriced(t *testing.T) {
	createResp := doPost(t, "/api/admin/orders", newOrderRequest(
		orderItemRequest{ProductID: "lemon", Quantity: "3", PricePerUnit: "65.00"},
	))
	created := decodeJSON[orderResponse](t, createResp)
	createResp.Body.Close()

	resp := doPost(t, "/api/admin/orders/"+created.ID+"/finalize-prices", finalizeRequest{
		Prices: []linePrice{{ProductID: "lemon", PricePerUnit: "70.00"}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/admin/orders/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

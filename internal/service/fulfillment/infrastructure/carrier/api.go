package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/jsonx"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
)

const carrierTimeLayout = "2006-01-02 15:04:05"

var _ port.CarrierGateway = (*Client)(nil)

// numericID 承运商的 id 字段要求是数字，无法解析时原样发送字符串
func numericID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

type courierCompany struct {
	CourierCompanyID jsonx.FlexString `json:"courier_company_id"`
	CourierName      string           `json:"courier_name"`
	Rate             jsonx.FlexString `json:"rate"`
	ETD              string           `json:"etd"`
}

type serviceabilityResponse struct {
	Data struct {
		AvailableCourierCompanies []courierCompany `json:"available_courier_companies"`
	} `json:"data"`
}

func (c *Client) CheckServiceability(ctx context.Context, req port.ServiceabilityRequest) ([]port.CourierOption, error) {
	q := url.Values{}
	q.Set("pickup_postcode", req.PickupPostcode)
	q.Set("delivery_postcode", req.DeliveryPostcode)
	q.Set("weight", strconv.FormatFloat(req.WeightKg, 'f', -1, 64))
	cod := "0"
	if req.COD {
		cod = "1"
	}
	q.Set("cod", cod)

	var resp serviceabilityResponse
	if err := c.do(ctx, "serviceability", http.MethodGet, "/courier/serviceability", q, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]port.CourierOption, 0, len(resp.Data.AvailableCourierCompanies))
	for _, cc := range resp.Data.AvailableCourierCompanies {
		out = append(out, port.CourierOption{
			CourierID:   cc.CourierCompanyID.String(),
			CourierName: cc.CourierName,
			Rate:        cc.Rate.Float(),
			ETD:         cc.ETD,
		})
	}
	return out, nil
}

type orderItemPayload struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

type createOrderPayload struct {
	OrderID              string             `json:"order_id"`
	OrderDate            string             `json:"order_date"`
	PickupLocation       string             `json:"pickup_location"`
	BillingCustomerName  string             `json:"billing_customer_name"`
	BillingLastName      string             `json:"billing_last_name"`
	BillingAddress       string             `json:"billing_address"`
	BillingAddress2      string             `json:"billing_address_2,omitempty"`
	BillingCity          string             `json:"billing_city"`
	BillingPincode       string             `json:"billing_pincode"`
	BillingState         string             `json:"billing_state"`
	BillingCountry       string             `json:"billing_country"`
	BillingEmail         string             `json:"billing_email"`
	BillingPhone         string             `json:"billing_phone"`
	ShippingIsBilling    bool               `json:"shipping_is_billing"`
	ShippingCustomerName string             `json:"shipping_customer_name,omitempty"`
	ShippingLastName     string             `json:"shipping_last_name,omitempty"`
	ShippingAddress      string             `json:"shipping_address,omitempty"`
	ShippingAddress2     string             `json:"shipping_address_2,omitempty"`
	ShippingCity         string             `json:"shipping_city,omitempty"`
	ShippingPincode      string             `json:"shipping_pincode,omitempty"`
	ShippingState        string             `json:"shipping_state,omitempty"`
	ShippingCountry      string             `json:"shipping_country,omitempty"`
	ShippingEmail        string             `json:"shipping_email,omitempty"`
	ShippingPhone        string             `json:"shipping_phone,omitempty"`
	OrderItems           []orderItemPayload `json:"order_items"`
	PaymentMethod        string             `json:"payment_method"`
	SubTotal             float64            `json:"sub_total"`
	Length               float64            `json:"length"`
	Breadth              float64            `json:"breadth"`
	Height               float64            `json:"height"`
	Weight               float64            `json:"weight"`
}

type createOrderResponse struct {
	OrderID          jsonx.FlexString `json:"order_id"`
	ShipmentID       jsonx.FlexString `json:"shipment_id"`
	Status           string           `json:"status"`
	AWBCode          jsonx.FlexString `json:"awb_code"`
	CourierCompanyID jsonx.FlexString `json:"courier_company_id"`
	CourierName      string           `json:"courier_name"`
}

// splitName 承运商要求名和姓分开
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, last, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}

func (c *Client) CreateOrder(ctx context.Context, req port.CreateOrderRequest) (*port.CreateOrderResult, error) {
	billFirst, billLast := splitName(req.Billing.Name)
	p := createOrderPayload{
		OrderID:             req.OrderID,
		OrderDate:           req.OrderDate.Format("2006-01-02 15:04"),
		PickupLocation:      req.PickupLocation,
		BillingCustomerName: billFirst,
		BillingLastName:     billLast,
		BillingAddress:      req.Billing.Line1,
		BillingAddress2:     req.Billing.Line2,
		BillingCity:         req.Billing.City,
		BillingPincode:      req.Billing.PostalCode,
		BillingState:        req.Billing.State,
		BillingCountry:      req.Billing.Country,
		BillingEmail:        req.Billing.Email,
		BillingPhone:        req.Billing.Phone,
		ShippingIsBilling:   req.ShippingIsBilling,
		PaymentMethod:       req.PaymentMethod,
		SubTotal:            req.SubTotal,
		Length:              req.LengthCm,
		Breadth:             req.BreadthCm,
		Height:              req.HeightCm,
		Weight:              req.WeightKg,
	}
	if !req.ShippingIsBilling {
		shipFirst, shipLast := splitName(req.Shipping.Name)
		p.ShippingCustomerName = shipFirst
		p.ShippingLastName = shipLast
		p.ShippingAddress = req.Shipping.Line1
		p.ShippingAddress2 = req.Shipping.Line2
		p.ShippingCity = req.Shipping.City
		p.ShippingPincode = req.Shipping.PostalCode
		p.ShippingState = req.Shipping.State
		p.ShippingCountry = req.Shipping.Country
		p.ShippingEmail = req.Shipping.Email
		p.ShippingPhone = req.Shipping.Phone
	}
	for _, it := range req.Items {
		p.OrderItems = append(p.OrderItems, orderItemPayload{
			Name: it.Name, SKU: it.SKU, Units: it.Units, SellingPrice: it.Price,
		})
	}

	var resp createOrderResponse
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders/create/adhoc", nil, p, &resp); err != nil {
		return nil, err
	}
	if resp.ShipmentID == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "carrier order created without a shipment id"}
	}
	return &port.CreateOrderResult{
		OrderID:     resp.OrderID.String(),
		ShipmentID:  resp.ShipmentID.String(),
		Status:      resp.Status,
		AWBCode:     resp.AWBCode.String(),
		CourierID:   resp.CourierCompanyID.String(),
		CourierName: resp.CourierName,
	}, nil
}

type assignAWBRequest struct {
	ShipmentID any `json:"shipment_id"`
	CourierID  any `json:"courier_id,omitempty"`
}

type assignAWBResponse struct {
	AWBAssignStatus int    `json:"awb_assign_status"`
	Message         string `json:"message"`
	Response        struct {
		Data struct {
			AWBCode          jsonx.FlexString `json:"awb_code"`
			CourierCompanyID jsonx.FlexString `json:"courier_company_id"`
			CourierName      string           `json:"courier_name"`
			AWBAssignError   string           `json:"awb_assign_error"`
		} `json:"data"`
	} `json:"response"`
}

func (c *Client) AssignAWB(ctx context.Context, shipmentID, courierID string) (*port.AWBResult, error) {
	body := assignAWBRequest{ShipmentID: numericID(shipmentID)}
	if courierID != "" {
		body.CourierID = numericID(courierID)
	}
	var resp assignAWBResponse
	if err := c.do(ctx, "assign_awb", http.MethodPost, "/courier/assign/awb", nil, body, &resp); err != nil {
		return nil, err
	}
	data := resp.Response.Data
	if data.AWBCode == "" {
		msg := data.AWBAssignError
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "awb not assigned"
		}
		return nil, &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	return &port.AWBResult{
		AWBCode:     data.AWBCode.String(),
		CourierID:   data.CourierCompanyID.String(),
		CourierName: data.CourierName,
	}, nil
}

type shipmentIDsRequest struct {
	ShipmentID []any `json:"shipment_id"`
}

type pickupResponse struct {
	PickupStatus int `json:"pickup_status"`
	Response     struct {
		PickupScheduledDate string           `json:"pickup_scheduled_date"`
		PickupTokenNumber   jsonx.FlexString `json:"pickup_token_number"`
		Data                string           `json:"data"`
	} `json:"response"`
}

func (c *Client) GeneratePickup(ctx context.Context, shipmentID string) (*port.PickupResult, error) {
	var resp pickupResponse
	body := shipmentIDsRequest{ShipmentID: []any{numericID(shipmentID)}}
	if err := c.do(ctx, "generate_pickup", http.MethodPost, "/courier/generate/pickup", nil, body, &resp); err != nil {
		return nil, err
	}
	out := &port.PickupResult{Token: resp.Response.PickupTokenNumber.String()}
	if resp.Response.PickupScheduledDate != "" {
		if t, err := time.ParseInLocation(carrierTimeLayout, resp.Response.PickupScheduledDate, time.Local); err == nil {
			out.ScheduledAt = &t
		}
	}
	return out, nil
}

type labelResponse struct {
	LabelCreated int    `json:"label_created"`
	LabelURL     string `json:"label_url"`
	Response     string `json:"response"`
}

func (c *Client) GenerateLabel(ctx context.Context, shipmentID string) (string, error) {
	var resp labelResponse
	body := shipmentIDsRequest{ShipmentID: []any{numericID(shipmentID)}}
	if err := c.do(ctx, "generate_label", http.MethodPost, "/courier/generate/label", nil, body, &resp); err != nil {
		return "", err
	}
	if resp.LabelURL == "" {
		msg := resp.Response
		if msg == "" {
			msg = "label not generated"
		}
		return "", &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	return resp.LabelURL, nil
}

type pickupAddress struct {
	ID             jsonx.FlexString `json:"id,omitempty"`
	PickupLocation string           `json:"pickup_location"`
	PickupCode     string           `json:"pickup_code,omitempty"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Phone          jsonx.FlexString `json:"phone"`
	Address        string           `json:"address"`
	Address2       string           `json:"address_2"`
	City           string           `json:"city"`
	State          string           `json:"state"`
	Country        string           `json:"country"`
	PinCode        jsonx.FlexString `json:"pin_code"`
}

func (a pickupAddress) toPort() port.PickupLocation {
	code := a.PickupLocation
	if code == "" {
		code = a.PickupCode
	}
	return port.PickupLocation{
		ID:         a.ID.String(),
		Code:       code,
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone.String(),
		Line1:      a.Address,
		Line2:      a.Address2,
		City:       a.City,
		State:      a.State,
		Country:    a.Country,
		PostalCode: a.PinCode.String(),
	}
}

type listPickupResponse struct {
	Data struct {
		ShippingAddress []pickupAddress `json:"shipping_address"`
	} `json:"data"`
}

func (c *Client) ListPickupLocations(ctx context.Context) ([]port.PickupLocation, error) {
	var resp listPickupResponse
	if err := c.do(ctx, "list_pickup", http.MethodGet, "/settings/company/pickup", nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]port.PickupLocation, 0, len(resp.Data.ShippingAddress))
	for _, a := range resp.Data.ShippingAddress {
		out = append(out, a.toPort())
	}
	return out, nil
}

type addPickupRequest struct {
	PickupLocation string `json:"pickup_location"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Address2       string `json:"address_2,omitempty"`
	City           string `json:"city"`
	State          string `json:"state"`
	Country        string `json:"country"`
	PinCode        string `json:"pin_code"`
}

type addPickupResponse struct {
	Success  bool             `json:"success"`
	PickupID jsonx.FlexString `json:"pickup_id"`
	Address  json.RawMessage  `json:"address"`
}

func (c *Client) AddPickupLocation(ctx context.Context, loc port.PickupLocation) (*port.PickupLocation, error) {
	body := addPickupRequest{
		PickupLocation: loc.Code,
		Name:           loc.Name,
		Email:          loc.Email,
		Phone:          loc.Phone,
		Address:        loc.Line1,
		Address2:       loc.Line2,
		City:           loc.City,
		State:          loc.State,
		Country:        loc.Country,
		PinCode:        loc.PostalCode,
	}
	var resp addPickupResponse
	if err := c.do(ctx, "add_pickup", http.MethodPost, "/settings/company/addpickup", nil, body, &resp); err != nil {
		return nil, err
	}
	out := loc
	var addr pickupAddress
	if len(resp.Address) > 0 && json.Unmarshal(resp.Address, &addr) == nil {
		if addr.ID != "" {
			out.ID = addr.ID.String()
		}
		if addr.PickupCode != "" {
			out.Code = addr.PickupCode
		} else if addr.PickupLocation != "" {
			out.Code = addr.PickupLocation
		}
	}
	if resp.PickupID != "" {
		out.ID = resp.PickupID.String()
	}
	return &out, nil
}

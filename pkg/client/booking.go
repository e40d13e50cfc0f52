package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"venuebook/pkg/model"
)

type Metadata struct {
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

// BookingClient talks to the bookings HTTP API on behalf of one token.
type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseUrl, token string) *BookingClient {
	httpClient := NewHttpClient(baseUrl)
	httpClient.Token = token
	return &BookingClient{
		httpClient: httpClient,
	}
}

type ListOptions struct {
	Filter model.BookingFilter
	Limit  int
	Offset int64
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Filter.SpaceID != "" {
		q.Set("space_id", o.Filter.SpaceID)
	}
	if o.Filter.UserID != "" {
		q.Set("user_id", o.Filter.UserID)
	}
	if o.Filter.Status != "" {
		q.Set("status", string(o.Filter.Status))
	}
	if !o.Filter.From.IsZero() {
		q.Set("from", o.Filter.From.String())
	}
	if !o.Filter.To.IsZero() {
		q.Set("to", o.Filter.To.String())
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.FormatInt(o.Offset, 10))
	}
	return q
}

func (c *BookingClient) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/bookings", req)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

// CreateIdempotent sends the Idempotency-Key header so a retried create
// replays the first response instead of booking twice.
func (c *BookingClient) CreateIdempotent(ctx context.Context, key string, req *model.BookingRequest) (*model.Booking, error) {
	resp, err := c.httpClient.POSTWithHeaders(ctx, "/api/v1/bookings", req, map[string]string{"Idempotency-Key": key})
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) List(ctx context.Context, opts ListOptions) ([]*model.Booking, *Metadata, error) {
	path := "/api/v1/bookings"
	if q := opts.query().Encode(); q != "" {
		path += "?" + q
	}

	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, nil, err
	}

	var wrapper struct {
		Data []*model.Booking `json:"data"`
		Metadata
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list: %s: %w", resp.ToString(), err)
	}
	return wrapper.Data, &wrapper.Metadata, nil
}

func (c *BookingClient) Update(ctx context.Context, id string, patch *model.BookingUpdate) (*model.Booking, error) {
	resp, err := c.httpClient.PATCH(ctx, "/api/v1/bookings/id/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.DELETE(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return resp.Err()
}

type Slot struct {
	BookingID string          `json:"booking_id"`
	Date      model.Date      `json:"date"`
	StartTime model.TimeOfDay `json:"start_time"`
	EndTime   model.TimeOfDay `json:"end_time"`
	Status    model.Status    `json:"status"`
}

func (c *BookingClient) Occupied(ctx context.Context, spaceID string, date model.Date) ([]Slot, error) {
	q := url.Values{}
	q.Set("date", date.String())
	path := "/api/v1/spaces/" + url.PathEscape(spaceID) + "/occupied?" + q.Encode()

	var slots []Slot
	if err := c.getData(ctx, path, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *BookingClient) CountsByDate(ctx context.Context, from, to model.Date, userID string) ([]model.DateCount, error) {
	q := url.Values{}
	q.Set("from", from.String())
	q.Set("to", to.String())
	if userID != "" {
		q.Set("user_id", userID)
	}

	var counts []model.DateCount
	if err := c.getData(ctx, "/api/v1/stats/dates?"+q.Encode(), &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *BookingClient) getData(ctx context.Context, path string, dst any) error {
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return fmt.Errorf("could not decode response wrapper: %s: %w", resp.ToString(), err)
	}
	if err := json.Unmarshal(wrapper.Data, dst); err != nil {
		return fmt.Errorf("could not decode response data: %s: %w", resp.ToString(), err)
	}
	return nil
}

func decodeBooking(resp *Response) (*model.Booking, error) {
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var wrapper struct {
		Data model.Booking `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("could not decode booking: %s: %w", resp.ToString(), err)
	}
	return &wrapper.Data, nil
}

package storeapi

import (
	"context"
	"fmt"

	"github.com/bazarioapp/bazario/internal/address"
)

// AddressService talks to the remote address book.
type AddressService struct {
	client *Client
}

func NewAddressService(client *Client) *AddressService {
	return &AddressService{client: client}
}

type listAddressesResponse struct {
	Addresses map[string][]address.Address `json:"addresses"`
}

// List returns the customer's saved addresses, grouped by address type the
// way the remote service stores them.
func (s *AddressService) List(ctx context.Context) (map[string][]address.Address, error) {
	var resp listAddressesResponse
	if err := s.client.get(ctx, "/api/v1/customer/address/list", &resp); err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return resp.Addresses, nil
}

type createAddressResponse struct {
	ID int64 `json:"id"`
}

// Create persists a new address record and returns its remote-assigned id.
// There is no update operation; edits create new records.
func (s *AddressService) Create(ctx context.Context, a address.Address) (int64, error) {
	var resp createAddressResponse
	if err := s.client.post(ctx, "/api/v1/customer/address/add", a, &resp); err != nil {
		return 0, fmt.Errorf("failed to create address: %w", err)
	}
	if resp.ID == 0 {
		return 0, fmt.Errorf("address service returned no id")
	}
	return resp.ID, nil
}

// Package proto defines the gRPC surface of the shortener: message types,
// the service descriptor, a JSON codec and a typed client.
package proto

import "google.golang.org/protobuf/types/known/timestamppb"

type Mapping struct {
	Id        string                 `json:"id"`
	ShortCode string                 `json:"shortCode"`
	TargetUrl string                 `json:"targetURL"`
	ShortUrl  string                 `json:"shortURL"`
	OwnerId   string                 `json:"ownerId"`
	CreatedAt *timestamppb.Timestamp `json:"createdAt,omitempty"`
	UpdatedAt *timestamppb.Timestamp `json:"updatedAt,omitempty"`
}

type ShortenRequest struct {
	Url  string `json:"url"`
	Code string `json:"code,omitempty"`
}

type ShortenResponse struct {
	Mapping *Mapping `json:"mapping"`
}

type ResolveRequest struct {
	Code string `json:"code"`
}

type ResolveResponse struct {
	TargetUrl string `json:"targetURL"`
}

type ListMineResponse struct {
	Codes []*Mapping `json:"codes"`
}

type UpdateRequest struct {
	Id   string `json:"id"`
	Url  string `json:"url,omitempty"`
	Code string `json:"code,omitempty"`
}

type UpdateResponse struct {
	Message string   `json:"message"`
	Updated *Mapping `json:"updated"`
}

type DeleteRequest struct {
	Id string `json:"id"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

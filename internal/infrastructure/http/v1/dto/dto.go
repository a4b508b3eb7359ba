package dto

// CameraRequest places the camera. Angles are degrees, height is meters above the
// ellipsoid.
type CameraRequest struct {
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Height    *float64 `json:"height" validate:"required,gt=0,lte=100000000"`
	Heading   float64  `json:"heading" validate:"gte=-360,lte=360"`
	Pitch     float64  `json:"pitch" validate:"gte=0,lte=90"`
}

type LayerPatchRequest struct {
	Show  *bool    `json:"show"`
	Alpha *float64 `json:"alpha" validate:"omitempty,gte=0,lte=1"`
}

type LayersResponse struct {
	Layers any `json:"layers"`
}

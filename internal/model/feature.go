package model

// Feature is one tagged point of interest returned by a feature provider.
// Building footprints are centroid-reduced to points before they get here.
// Attribute fields are empty strings when the provider has no value; provider
// sentinel values ("n/a", "none") are normalized away at the provider layer.
type Feature struct {
	ID           string
	Name         string
	Lon          float64
	Lat          float64
	Address      string
	Phone        string
	Website      string
	OpeningHours string
}

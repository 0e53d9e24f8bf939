package models

// Restaurant is a discovery result merged with its detail enrichment.
// The coarse fields come from discovery, the rest from the detail lookup.
type Restaurant struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	RoadAddress string  `json:"roadAddress,omitempty"`
	Category    string  `json:"category,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	URL         string  `json:"url,omitempty"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Distance    int     `json:"distance,omitempty"`

	Rating      float64    `json:"rating,omitempty"`
	ReviewCount int        `json:"reviewCount,omitempty"`
	PhotoURL    string     `json:"photoUrl,omitempty"`
	OpenHours   []string   `json:"openHours,omitempty"`
	Menu        []MenuItem `json:"menu,omitempty"`
}

// MenuItem is a single priced entry of a restaurant menu.
type MenuItem struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}

// MergeRestaurant overlays detail on top of coarse. Any non-zero detail field wins.
func MergeRestaurant(coarse, detail Restaurant) Restaurant {
	out := coarse
	if detail.ID != "" {
		out.ID = detail.ID
	}
	if detail.Name != "" {
		out.Name = detail.Name
	}
	if detail.Address != "" {
		out.Address = detail.Address
	}
	if detail.RoadAddress != "" {
		out.RoadAddress = detail.RoadAddress
	}
	if detail.Category != "" {
		out.Category = detail.Category
	}
	if detail.Phone != "" {
		out.Phone = detail.Phone
	}
	if detail.URL != "" {
		out.URL = detail.URL
	}
	if detail.Lat != 0 {
		out.Lat = detail.Lat
	}
	if detail.Lng != 0 {
		out.Lng = detail.Lng
	}
	if detail.Distance != 0 {
		out.Distance = detail.Distance
	}
	if detail.Rating != 0 {
		out.Rating = detail.Rating
	}
	if detail.ReviewCount != 0 {
		out.ReviewCount = detail.ReviewCount
	}
	if detail.PhotoURL != "" {
		out.PhotoURL = detail.PhotoURL
	}
	if len(detail.OpenHours) > 0 {
		out.OpenHours = detail.OpenHours
	}
	if len(detail.Menu) > 0 {
		out.Menu = detail.Menu
	}
	return out
}

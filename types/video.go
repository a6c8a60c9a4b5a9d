package types

// VideoEntry is one file of the catalog directory.
type VideoEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// VideoListItem is a catalog entry together with the selection token a client sends back to pick it.
type VideoListItem struct {
	VideoEntry
	Token string `json:"token"`
}

// VideoListResponse is the response body for GET /api/self/v1/videos.
type VideoListResponse struct {
	Videos []VideoListItem `json:"videos"`
	Count  int             `json:"count"`
}

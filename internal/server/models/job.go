package models

// ThumbnailJob asks the worker to derive resized copies of one image.
type ThumbnailJob struct {
	UserID string `json:"userId"`
	FileID string `json:"fileId"`
}

// ThumbnailWidths are the derived blob widths, largest first.
var ThumbnailWidths = []int{500, 250, 100}

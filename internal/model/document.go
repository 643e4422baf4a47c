package model

import (
	"time"
)

// DocumentStatus represents the processing state of an indexed document.
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// DocumentInfo describes one document in the library.
type DocumentInfo struct {
	Filename   string         `json:"filename"`
	Size       int64          `json:"size"`
	Modified   time.Time      `json:"modified"`
	Pages      int            `json:"pages"`
	PageCount  int            `json:"page_count"`
	Status     DocumentStatus `json:"status"`
	ChunkCount int            `json:"chunk_count"`
}

// LibraryResponse is the response for listing the document library.
type LibraryResponse struct {
	PDFs []DocumentInfo `json:"pdfs"`
}

// FavoriteEntry records one favorited document.
type FavoriteEntry struct {
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFavoritesResponse is the response for listing favorites.
type ListFavoritesResponse struct {
	Favorites []FavoriteEntry `json:"favorites"`
}

// ToggleFavoriteResponse is the response after toggling a favorite.
type ToggleFavoriteResponse struct {
	IsFavorite bool `json:"is_favorite"`
}

// SystemStatus reports server identity and document processing state.
type SystemStatus struct {
	ServerInstanceID string `json:"server_instance_id"`
	DocumentsTotal   int    `json:"documents_total"`
	Processing       int    `json:"processing"`
}

package types

import "time"

// ArtistIdentity is an identity-store record for a known artist. The ID is
// the canonical identity key: stable across regenerations and the key under
// which finished networks are cached.
type ArtistIdentity struct {
	ID             string    `json:"id"`                       // Canonical identity id (catalog-assigned or uuid-derived)
	Name           string    `json:"name"`                     // Display name
	SortName       string    `json:"sortName,omitempty"`       // Collation name ("Beatles, The")
	Bio            string    `json:"bio,omitempty"`            // Short biography used for search and disambiguation
	ImageURL       string    `json:"imageUrl,omitempty"`       // Portrait or promo image
	Disambiguation string    `json:"disambiguation,omitempty"` // Clarifier for shared names ("UK drum and bass duo")
	CreatedAt      time.Time `json:"createdAt"`                // When the record entered the identity store
	UpdatedAt      time.Time `json:"updatedAt"`                // Last update timestamp

	// Embedding for bio similarity search (postgres + pgvector only)
	Embedding          []float32 `json:"embedding,omitempty"`
	EmbeddingModel     string    `json:"embeddingModel,omitempty"`
	EmbeddingDimension int       `json:"embeddingDimension,omitempty"`
}

// ArtistOption is a single disambiguation choice returned by artist search.
type ArtistOption struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Bio            string `json:"bio,omitempty"`
	Disambiguation string `json:"disambiguation,omitempty"`
}

package types

import "time"

// ManifestEntry is one file in a JSON create request. The content must
// already be staged in the blob store; ContentRef points at it.
type ManifestEntry struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	MimeType    string `json:"mimeType,omitempty"`
	ContentRef  string `json:"contentRef"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// CreateShareSessionRequest is the JSON body for create-share-session.
// Multipart requests carry the files directly instead.
type CreateShareSessionRequest struct {
	Files []ManifestEntry `json:"files"`
}

// CreateShareSessionResponse is returned to the session creator. The
// owner token appears here and nowhere else.
type CreateShareSessionResponse struct {
	SessionId   string    `json:"sessionId"`
	OwnerToken  string    `json:"ownerToken"`
	PublicToken string    `json:"publicToken"`
	DownloadUrl string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// SessionMetadataResponse is the ViewMetadata payload. Creator and
// State are only populated for the owner role; recipients get the
// blurred view (no state detail beyond "it works or it doesn't").
type SessionMetadataResponse struct {
	SessionId string          `json:"sessionId"`
	Role      Role            `json:"role"`
	Files     []FileRecord    `json:"files"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	State     SessionState    `json:"state,omitempty"`
	Creator   *CreatorContext `json:"creator,omitempty"`
}

package dto

type AuthURLResponse struct {
	AuthURL string `json:"authUrl"`
}

type FinalizeRequest struct {
	TempTokenID string `json:"temp_token_id" binding:"required"`
}

type StatusResponse struct {
	Connected bool `json:"connected"`
}

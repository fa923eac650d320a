package auth

type LoginResponse struct {
	Status string `json:"status"`
}

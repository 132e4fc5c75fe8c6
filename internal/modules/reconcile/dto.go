package reconcile

// RegisterInput is everything an admin registration attempt carries.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	AccessCode      string
}

type registerRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	AccessCode      string `json:"access_code" binding:"required"`
}

type federatedRequest struct {
	IDToken    string `json:"id_token" binding:"required"`
	AccessCode string `json:"access_code" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

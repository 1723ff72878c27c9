package dto

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
}

type RegisterResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the stripped profile and both tokens. ExpiresIn and
// RefreshExpiresIn are in seconds.
type LoginResponse struct {
	User             UserResponse `json:"user"`
	Token            string       `json:"token"`
	ExpiresIn        int64        `json:"expiresIn"`
	RefreshToken     string       `json:"refreshToken"`
	RefreshExpiresIn int64        `json:"refreshExpiresIn"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type VerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotPasswordResponse struct {
	Message   string `json:"message"`
	ResetLink string `json:"resetLink,omitempty"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

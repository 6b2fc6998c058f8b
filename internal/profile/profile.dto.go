package profile

type SignUpRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	FullName     string `json:"full_name" validate:"required,max=100"`
	ReferralCode string `json:"referral_code,omitempty" validate:"omitempty,max=32"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName  string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	AvatarURL string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

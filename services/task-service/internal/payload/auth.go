package payload

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=4,max=18"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

const (
	RegisterSuccessMessage = "Your registration has been successful. In order to log in, please verify your email address."
	VerifySuccessMessage   = "Your email address has been verified. You can now log in."
	LoginSuccessMessage    = "You have successfully logged in."
)

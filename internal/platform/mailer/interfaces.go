package mailer

// Service delivers verification codes. Implementations are thin transports;
// code generation and hashing stay in the auth service.
type Service interface {
	SendVerificationCode(toEmail, code string) error
}

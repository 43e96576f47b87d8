package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// UserRecord is one row of the user directory. The phone number is the
// lookup key; UserID is allocated once and never reused.
type UserRecord struct {
	UserID       int64  `json:"user_id"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at"`
	Verified     bool   `json:"verified"`

	VerificationCodeHash  string `json:"verification_code_hash,omitempty"`
	VerificationExpiresAt string `json:"verification_expires_at,omitempty"`

	// Profile fields, mutated independently of credentials.
	FullName      string `json:"full_name,omitempty"`
	RoleTitle     string `json:"role_title,omitempty"`
	PhoneContact  string `json:"phone_contact,omitempty"`
	CompanyName   string `json:"company_name,omitempty"`
	SignaturePath string `json:"signature_path,omitempty"`
	LogoPath      string `json:"logo_path,omitempty"`
}

// UserInfo is the safe subset exposed to callers.
type UserInfo struct {
	UserID   int64  `json:"user_id"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"verified"`
	FullName string `json:"full_name,omitempty"`
}

func (u *UserRecord) ToUserInfo() *UserInfo {
	return &UserInfo{
		UserID:   u.UserID,
		Phone:    u.Phone,
		Email:    u.Email,
		Verified: u.Verified,
		FullName: u.FullName,
	}
}

// ProfileUpdate carries optional profile field changes; nil means unchanged.
type ProfileUpdate struct {
	FullName      *string `json:"full_name,omitempty"`
	RoleTitle     *string `json:"role_title,omitempty"`
	PhoneContact  *string `json:"phone_contact,omitempty"`
	CompanyName   *string `json:"company_name,omitempty"`
	SignaturePath *string `json:"signature_path,omitempty"`
	LogoPath      *string `json:"logo_path,omitempty"`
}

func (u *UserRecord) ApplyProfile(upd ProfileUpdate) {
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.RoleTitle != nil {
		u.RoleTitle = *upd.RoleTitle
	}
	if upd.PhoneContact != nil {
		u.PhoneContact = *upd.PhoneContact
	}
	if upd.CompanyName != nil {
		u.CompanyName = *upd.CompanyName
	}
	if upd.SignaturePath != nil {
		u.SignaturePath = *upd.SignaturePath
	}
	if upd.LogoPath != nil {
		u.LogoPath = *upd.LogoPath
	}
}

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// IsValidEmail accepts standard address grammar, ASCII only.
func IsValidEmail(email string) bool {
	for _, r := range email {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return emailPattern.MatchString(email)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for i, r := range cleaned {
		if i == 0 && r == '+' {
			result.WriteRune(r)
		} else if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Timestamp renders the canonical created_at / expiry representation used in
// every persisted record.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + "Z"
}

func ParseTimestamp(value string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05Z", value)
}

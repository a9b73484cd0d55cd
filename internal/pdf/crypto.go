package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrPasswordRequired is returned for encrypted documents opened without
// working credentials.
var ErrPasswordRequired = errors.New("pdf is password protected")

// PasswordCredentials contains the passwords for a PDF file.
type PasswordCredentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

// Empty reports whether no password is set.
func (c *PasswordCredentials) Empty() bool {
	return c == nil || (c.UserPassword == "" && c.OwnerPassword == "")
}

// PasswordHandler decrypts protected documents into temporary copies.
type PasswordHandler struct {
	defaultCredentials *PasswordCredentials
}

// NewPasswordHandler creates a handler that falls back to creds.
func NewPasswordHandler(creds *PasswordCredentials) *PasswordHandler {
	return &PasswordHandler{defaultCredentials: creds}
}

// IsEncrypted checks if a PDF file is encrypted/password-protected.
func (h *PasswordHandler) IsEncrypted(filename string) (bool, error) {
	if _, err := api.PageCountFile(filename); err != nil {
		if IsPasswordError(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to check PDF encryption status: %w", err)
	}
	return false, nil
}

// DecryptPDF returns filename itself for plain documents, or the path of a
// decrypted temporary copy which the caller removes with CleanupTempFile.
func (h *PasswordHandler) DecryptPDF(filename string, creds *PasswordCredentials) (string, error) {
	encrypted, err := h.IsEncrypted(filename)
	if err != nil {
		return "", err
	}
	if !encrypted {
		return filename, nil
	}

	if creds.Empty() {
		creds = h.defaultCredentials
	}
	if creds.Empty() {
		return "", fmt.Errorf("%s: %w", filename, ErrPasswordRequired)
	}

	tempFile, err := os.CreateTemp("", "decrypted-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	_ = tempFile.Close()

	conf := model.NewDefaultConfiguration()
	conf.UserPW = creds.UserPassword
	conf.OwnerPW = creds.OwnerPassword
	if err := api.DecryptFile(filename, tempFile.Name(), conf); err != nil {
		_ = os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to decrypt PDF: %w", err)
	}
	return tempFile.Name(), nil
}

// CleanupTempFile removes a temporary decrypted file. Other paths are left alone.
func (h *PasswordHandler) CleanupTempFile(filename string) error {
	if filename == "" {
		return nil
	}
	if strings.Contains(filename, "decrypted-") && strings.HasSuffix(filename, ".pdf") {
		return os.Remove(filename)
	}
	return nil
}

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPasswordRequired) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

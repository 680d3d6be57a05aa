package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// BackupCodeLength is the number of characters in a backup code.
	BackupCodeLength = 8

	backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Bytes at or above this value are rejected so every symbol is equally likely.
	backupCodeRejectFrom = 256 - 256%len(backupCodeAlphabet)

	registrationQRPrefix = "SA1"
	eventQRPrefix        = "SA1-EVT"
)

var backupCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// CodeGenerator issues QR payloads and backup codes.
type CodeGenerator struct {
	random io.Reader
	now    func() time.Time
}

// NewCodeGenerator creates a generator backed by crypto/rand.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{random: rand.Reader, now: time.Now}
}

// BackupCode returns 8 random characters from A-Z0-9.
func (g *CodeGenerator) BackupCode() (string, error) {
	var b strings.Builder
	b.Grow(BackupCodeLength)
	buf := make([]byte, 16)
	for b.Len() < BackupCodeLength {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, c := range buf {
			if int(c) >= backupCodeRejectFrom {
				continue
			}
			b.WriteByte(backupCodeAlphabet[int(c)%len(backupCodeAlphabet)])
			if b.Len() == BackupCodeLength {
				break
			}
		}
	}
	return b.String(), nil
}

// RegistrationQRPayload builds the token encoded in a participant's QR code.
// It is an opaque bearer token; nothing verifies its parts.
func (g *CodeGenerator) RegistrationQRPayload(eventID, userID, registrationID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d", registrationQRPrefix, eventID, userID, registrationID, g.now().UnixMilli())
}

// EventQRPayload builds the token identifying an event itself.
func EventQRPayload(eventID uuid.UUID) string {
	return eventQRPrefix + ":" + eventID.String()
}

// NormalizeBackupCode uppercases and trims a typed code. It reports false when
// the result cannot be a backup code.
func NormalizeBackupCode(code string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	return normalized, backupCodePattern.MatchString(normalized)
}

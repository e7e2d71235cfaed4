package object

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"resume-feedback/internal/pipeline"
	"resume-feedback/internal/shared/auth"
	"resume-feedback/internal/shared/util"
)

// Store saves binaries and returns a stable handle that can be reopened.
type Store interface {
	Upload(ctx context.Context, file pipeline.File) (string, error)
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
}

const (
	anonymousOwner  = "anonymous"
	defaultFileName = "resume.pdf"
)

// NewKey builds a storage key namespaced by the acting user, e.g.
// <hashed owner>/<random>_<file name>. A blank name falls back to
// defaultFileName.
func NewKey(ctx context.Context, fileName string) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		fileName = defaultFileName
	}
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	owner := anonymousOwner
	if id, ok := auth.IdentityFrom(ctx); ok {
		owner = id.UserID
	}
	return path.Join(util.HashUserKey(owner), randomID()+"_"+sanitizedName), nil
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

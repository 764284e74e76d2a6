package publish

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
)

var (
	ErrPublish = errors.New("error publishing proposals")
)

// File writes proposal documents as JSON files under a directory.
type File struct {
	dir string
}

// NewFile returns a File publisher writing to dir, dir is created on the first publish.
func NewFile(dir string) *File {
	if dir == "" {
		dir = model.DefaultProposalsDir
	}

	return &File{dir: dir}
}

// Publish writes the document and returns the file path.
func (f *File) Publish(_ context.Context, doc *model.ProposalDocument) (string, error) {
	generatedAt, err := time.Parse(time.RFC3339Nano, doc.GeneratedAt)
	if err != nil {
		return "", errors.Wrap(ErrPublish, "generated_at: "+err.Error())
	}

	b, err := doc.Marshal()
	if err != nil {
		return "", errors.Wrap(ErrPublish, err.Error())
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", errors.Wrap(ErrPublish, err.Error())
	}

	path := filepath.Join(f.dir, model.ProposalFileName(doc.Device, generatedAt))

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", errors.Wrap(ErrPublish, err.Error())
	}

	return path, nil
}

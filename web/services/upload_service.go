package services

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"

	"sheet-agent/dataset"
	apperrors "sheet-agent/errors"
	"sheet-agent/utils"

	"go.uber.org/zap"
)

type UploadService struct {
	maxBytes int64
	logger   *zap.Logger
}

func NewUploadService(maxBytes int64, logger *zap.Logger) *UploadService {
	return &UploadService{maxBytes: maxBytes, logger: logger}
}

// ValidateFile checks the declared file type and size. The loader picked by
// the declared type decides whether the content is actually valid.
func (us *UploadService) ValidateFile(file *multipart.FileHeader, fileType string) (string, dataset.Kind, error) {
	kind, err := dataset.ParseKind(fileType)
	if err != nil {
		return "", "", apperrors.Join(apperrors.ErrInvalidInput, err)
	}
	if us.maxBytes > 0 && file.Size > us.maxBytes {
		return "", "", fmt.Errorf("%w: file too large, maximum size is %d MB", apperrors.ErrInvalidInput, us.maxBytes>>20)
	}
	return utils.SanitizeFilename(file.Filename), kind, nil
}

// SaveFile copies the upload into the session workspace and returns the
// stored path.
func (us *UploadService) SaveFile(file *multipart.FileHeader, workspace, sanitizedFilename string) (string, error) {
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return "", fmt.Errorf("could not create workspace: %w", err)
	}
	dst := filepath.Join(workspace, "upload-"+sanitizedFilename)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	if _, err := out.ReadFrom(src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if !utils.VerifyFileExists(workspace, filepath.Base(dst)) {
		return "", fmt.Errorf("file verification failed after upload")
	}
	return dst, nil
}

// ProcessUpload validates, stores and loads the upload into sess.
func (us *UploadService) ProcessUpload(sess *Session, file *multipart.FileHeader, fileType string) error {
	name, kind, err := us.ValidateFile(file, fileType)
	if err != nil {
		sess.Reset()
		return err
	}

	path, err := us.SaveFile(file, sess.Workspace, name)
	if err != nil {
		us.logger.Error("Failed to save uploaded file",
			zap.Error(err),
			zap.String("filename", name),
			zap.String("session_id", sess.ID))
		sess.Reset()
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		sess.Reset()
		return fmt.Errorf("failed to reopen uploaded file: %w", err)
	}
	defer f.Close()

	if err := sess.Upload(kind, name, f); err != nil {
		us.logger.Warn("Uploaded file could not be loaded",
			zap.Error(err),
			zap.String("filename", name),
			zap.String("file_type", string(kind)),
			zap.String("session_id", sess.ID))
		return apperrors.Join(apperrors.ErrInvalidInput, err)
	}

	us.logger.Info("File uploaded successfully",
		zap.String("filename", name),
		zap.String("session_id", sess.ID),
		zap.Int64("size_bytes", file.Size),
		zap.String("state", sess.State().String()))
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/adapter/objectstore"
	"github.com/KaanK026/Harvia/internal/domain"
)

const imageContentType = "image/jpeg"

// ImageKey returns the object key of a session image.
func ImageKey(userID, sessionID, filename string) (string, error) {
	for _, part := range []string{userID, sessionID, filename} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", domain.Invalid(fmt.Sprintf("invalid path element %q", part))
		}
	}
	return path.Join("sessions", userID, sessionID, filename), nil
}

// UploadSessionImage stores a JPEG image under the caller's session.
func (s *Service) UploadSessionImage(ctx context.Context, userID, sessionID, filename string, data []byte) (*domain.ImageUploadResponse, error) {
	if s.images == nil {
		return nil, domain.Unavailable("Image storage is not configured.")
	}
	key, err := ImageKey(userID, sessionID, filename)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.Invalid("Image file is empty.")
	}
	if limit := s.config.MaxImageBytes; limit > 0 && int64(len(data)) > limit {
		return nil, domain.Invalid(fmt.Sprintf("Image exceeds %d bytes.", limit))
	}

	if err := s.images.Put(ctx, key, imageContentType, data); err != nil {
		s.log.Error("failed to upload image", zap.String("key", key), zap.Error(err))
		return nil, domain.Internal("Error uploading image", err)
	}
	s.log.Info("uploaded image", zap.String("key", key), zap.Int("bytes", len(data)))
	return &domain.ImageUploadResponse{Success: true, Path: key}, nil
}

// SessionImage loads an image previously stored with UploadSessionImage.
func (s *Service) SessionImage(ctx context.Context, userID, sessionID, filename string) (*objectstore.Object, error) {
	if s.images == nil {
		return nil, domain.Unavailable("Image storage is not configured.")
	}
	key, err := ImageKey(userID, sessionID, filename)
	if err != nil {
		return nil, err
	}

	obj, err := s.images.Get(ctx, key)
	if errors.Is(err, domain.ErrObjectNotFound) {
		return nil, domain.NotFound("No image found")
	}
	if err != nil {
		s.log.Error("failed to download image", zap.String("key", key), zap.Error(err))
		return nil, domain.Internal("Error downloading image", err)
	}
	return obj, nil
}

package qrcode

import (
	"context"
	"errors"
	"fmt"
)

// ErrCopyUnsupported means neither the image nor the text could be copied.
var ErrCopyUnsupported = errors.New("qrcode: clipboard copy unsupported")

type ImageCopier interface {
	CopyImage(ctx context.Context, png []byte) error
}

type TextCopier interface {
	CopyText(ctx context.Context, text string) error
}

// CopyMode reports what ended up on the clipboard.
type CopyMode string

const (
	CopiedImage CopyMode = "image"
	CopiedText  CopyMode = "text"
)

// Copy tries the image first and falls back to the text (usually the
// encoded URL). Either copier may be nil. When both fail the error wraps
// ErrCopyUnsupported together with the underlying failures.
func Copy(ctx context.Context, images ImageCopier, texts TextCopier, image []byte, text string) (CopyMode, error) {
	var errs []error

	if images != nil && len(image) > 0 {
		err := images.CopyImage(ctx, image)
		if err == nil {
			return CopiedImage, nil
		}
		errs = append(errs, fmt.Errorf("image: %w", err))
	}

	if texts != nil && text != "" {
		err := texts.CopyText(ctx, text)
		if err == nil {
			return CopiedText, nil
		}
		errs = append(errs, fmt.Errorf("text: %w", err))
	}

	if len(errs) == 0 {
		return "", ErrCopyUnsupported
	}
	return "", fmt.Errorf("%w: %w", ErrCopyUnsupported, errors.Join(errs...))
}

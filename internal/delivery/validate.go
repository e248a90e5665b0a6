// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package delivery

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/chatrelay/internal/models"
)

var validate = validator.New()

// validateRequest applies the struct tags on SendRequest and the content and
// attachment rules shared with the upload service.
func validateRequest(req *models.SendRequest, maxContent int) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", ErrInvalidRequest, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if (req.RecipientID != nil && *req.RecipientID <= 0) || (req.GroupID != nil && *req.GroupID <= 0) {
		return fmt.Errorf("%w: addressing ids must be positive", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Content) == "" && req.Attachment == nil {
		return fmt.Errorf("%w: content or attachment required", ErrInvalidRequest)
	}
	if n := utf8.RuneCountInString(req.Content); maxContent > 0 && n > maxContent {
		return fmt.Errorf("%w: content has %d characters, limit %d", ErrInvalidRequest, n, maxContent)
	}

	if a := req.Attachment; a != nil {
		if a.URL == "" || a.Name == "" {
			return fmt.Errorf("%w: attachment url and name required", ErrInvalidRequest)
		}
		if !models.AttachmentTypeAllowed(a.MimeType) {
			return fmt.Errorf("%w: attachment type %q not allowed", ErrInvalidRequest, a.MimeType)
		}
		if a.SizeBytes > models.MaxAttachmentBytes {
			return fmt.Errorf("%w: attachment is %d bytes, limit %d", ErrInvalidRequest, a.SizeBytes, models.MaxAttachmentBytes)
		}
	}
	return nil
}

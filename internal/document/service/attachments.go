package service

import (
	"bytes"
	"context"
	"time"

	"github.com/veridoc/veridoc/internal/audit"
	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/internal/storage"
)

// ConfigureAttachments wires the object store and virus scanner. Both are
// optional; without a store the attachment operations return
// NotConfiguredError, without a scanner files pass unscanned.
func (s *Service) ConfigureAttachments(store *storage.AttachmentStore, scanner storage.Scanner) {
	s.store = store
	if scanner == nil {
		scanner = storage.PassthroughScanner{}
	}
	s.scanner = scanner
}

// Attach scans and stores a file against a draft version. Only the creator
// may attach, and only while the document is editable; released content is
// frozen, attachments included.
func (s *Service) Attach(ctx context.Context, actor document.Actor, id, filename, contentType string, data []byte) (string, error) {
	if s.store == nil {
		return "", &document.NotConfiguredError{Dependency: "attachment store"}
	}
	if filename == "" {
		return "", &document.ValidationError{Field: "filename", Reason: "required"}
	}
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return "", err
	}
	if d.CreatedBy != actor.UserID {
		return "", &document.AuthorizationError{UserID: actor.UserID, Action: "attach files"}
	}
	if !document.CanEdit(d.Status) {
		return "", &document.InvalidStateError{Current: d.Status, Op: "attach"}
	}

	scanner := s.scanner
	if scanner == nil {
		scanner = storage.PassthroughScanner{}
	}
	res, err := scanner.ScanFile(ctx, data, filename)
	if err != nil {
		return "", err
	}
	if res.Verdict != storage.ScanClean {
		return "", &document.ValidationError{Field: "file", Reason: "rejected by virus scan: " + res.Signature}
	}

	key := storage.Key(actor.TenantID, d.Number, d.Version, filename)
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	s.record(ctx, d.ID, audit.ActionAttachment, actor, audit.AttachmentDetails{
		Filename: filename,
		Key:      key,
		Size:     int64(len(data)),
	})
	return key, nil
}

// AttachmentURL returns a short-lived presigned download URL for a stored
// attachment. Any tenant member with read access to the document may fetch.
func (s *Service) AttachmentURL(ctx context.Context, actor document.Actor, id, filename string) (string, error) {
	if s.store == nil {
		return "", &document.NotConfiguredError{Dependency: "attachment store"}
	}
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return "", err
	}
	key := storage.Key(actor.TenantID, d.Number, d.Version, filename)
	return s.store.PresignedURL(ctx, key, 15*time.Minute)
}

// RemoveAttachment deletes a stored file from a draft version.
func (s *Service) RemoveAttachment(ctx context.Context, actor document.Actor, id, filename string) error {
	if s.store == nil {
		return &document.NotConfiguredError{Dependency: "attachment store"}
	}
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	if d.CreatedBy != actor.UserID {
		return &document.AuthorizationError{UserID: actor.UserID, Action: "remove attachments"}
	}
	if !document.CanEdit(d.Status) {
		return &document.InvalidStateError{Current: d.Status, Op: "remove attachment"}
	}
	key := storage.Key(actor.TenantID, d.Number, d.Version, filename)
	if err := s.store.Remove(ctx, key); err != nil {
		return err
	}
	s.record(ctx, d.ID, audit.ActionAttachment, actor, audit.AttachmentDetails{Filename: filename, Key: key, Size: -1})
	return nil
}

// Package services defines the business logic for chats, messages, and live
// delivery. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrChatNotFound indicates that the referenced chat does not exist.
	ErrChatNotFound = errors.New("chat not found")

	// ErrAccessDenied is returned when an authenticated user attempts a
	// chat operation without being a participant of that chat.
	ErrAccessDenied = errors.New("not a chat participant")

	// ErrEmptyBody is returned when a text message has an empty or
	// whitespace-only body.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrTooLong is returned when a message body exceeds the configured
	// maximum length limit.
	ErrTooLong = errors.New("message body too long")

	// ErrUnsupportedType is returned when the message type tag is not one
	// of text/image/video/file.
	ErrUnsupportedType = errors.New("unsupported message type")

	// ErrMissingAttachment is returned when a media message arrives
	// without attachment metadata. Attachment storage happens before the
	// transaction begins; its absence is an input error, not a DB error.
	ErrMissingAttachment = errors.New("attachment required for media message")

	// ErrEnrichFailed wraps a post-commit failure to re-read the inserted
	// message with sender identity. The message is persisted; only the
	// echo to the caller could not be produced.
	ErrEnrichFailed = errors.New("message persisted but could not be loaded for delivery")

	// ErrNoParticipants is returned when a chat would be created with an
	// empty participant set.
	ErrNoParticipants = errors.New("chat requires at least one participant")
)

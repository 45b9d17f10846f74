// Package services – ChatService
//
// This file implements the ChatService, which manages the lifecycle of chats.
// It validates and normalizes titles, creates the chat together with its
// participant set in one transaction, and lists a user's chats ordered by
// freshness (most recently active first), the same ordering the message
// transaction pipeline maintains.
//
// Service-level errors (e.g., ErrChatNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
	"github.com/mvasilakos/go-messenger-backend/internal/repo"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ChatService provides chat-level operations: creating a chat with its
// participant set and listing chats by freshness.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// TitleLocale selects the casing rules for title normalization.
	TitleLocale language.Tag
}

// NewChatService constructs a ChatService with sane defaults for title handling.
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{
		DB:          db,
		TitleMaxLen: 60,
		TitleLocale: language.Und,
	}
}

// Create inserts a new chat and binds every listed participant to it in one
// transaction. creatorID is always included in the participant set. Titles
// are normalized, title-cased, clipped, and may be empty (direct chats).
func (s *ChatService) Create(ctx context.Context, creatorID, title string, participantIDs []string) (*domain.Chat, error) {
	// Deduplicate and force the creator in.
	seen := map[string]struct{}{creatorID: {}}
	members := []string{creatorID}
	for _, id := range participantIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	if len(members) == 0 {
		return nil, ErrNoParticipants
	}

	title = s.clip(s.caseTitle(normalizeTitle(title)))

	var chat *domain.Chat
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.CreateChat(ctx, tx, title)
		if err != nil {
			return err
		}
		chat = c
		for _, uid := range members {
			if err := repo.AddParticipant(ctx, tx, c.ID, uid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Get fetches a chat by ID, enforcing that userID is a participant.
func (s *ChatService) Get(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	member, err := repo.IsParticipant(ctx, s.DB, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrAccessDenied
	}
	c, err := repo.GetChat(ctx, s.DB, chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	return c, err
}

// List returns the user's chats, most recently active first.
func (s *ChatService) List(ctx context.Context, userID string) ([]domain.Chat, error) {
	return repo.ListChatsByFreshness(ctx, s.DB, userID)
}

// caseTitle applies locale-aware title casing to non-empty titles.
func (s *ChatService) caseTitle(title string) string {
	if title == "" {
		return ""
	}
	return cases.Title(s.localeOrDefault(), cases.NoLower).String(title)
}

// localeOrDefault returns the configured locale for casing or English if unset.
func (s *ChatService) localeOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// clip truncates a chat title to the configured maximum rune length.
func (s *ChatService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

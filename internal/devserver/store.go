// Package devserver is an in-memory implementation of the remote
// conversation store API, used for local development and testing of
// the assistant client.
package devserver

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docquery-ai/document-assistant/internal/llm"
	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/pkg/logger"
	"github.com/docquery-ai/document-assistant/pkg/metrics"
)

// ErrNotFound is returned for unknown conversation IDs.
var ErrNotFound = errors.New("devserver: conversation not found")

// titleLimit caps how much of the first question becomes the title.
const titleLimit = 60

// Store holds all server-side state in memory. State does not survive
// a restart, which is exactly what the client's server-instance check
// has to cope with.
type Store struct {
	log        *logger.Logger
	llm        llm.Client
	instanceID string

	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	favorites     map[string]time.Time
	documents     []model.DocumentInfo
}

// NewStore creates an empty store. llmClient may be nil, in which case
// answers are synthesized locally.
func NewStore(log *logger.Logger, llmClient llm.Client) *Store {
	return &Store{
		log:           log,
		llm:           llmClient,
		instanceID:    uuid.Must(uuid.NewV7()).String(),
		conversations: make(map[string]*model.Conversation),
		favorites:     make(map[string]time.Time),
	}
}

// SeedDocuments loads the document library the store answers from.
func (s *Store) SeedDocuments(docs []model.DocumentInfo) {
	s.mu.Lock()
	s.documents = docs
	s.mu.Unlock()

	counts := map[model.DocumentStatus]int{}
	for _, d := range docs {
		counts[d.Status]++
	}
	for status, n := range counts {
		metrics.DocumentsTracked.WithLabelValues(string(status)).Set(float64(n))
	}
}

// List returns conversation summaries, pinned ones first, each group
// most recently updated first.
func (s *Store) List() []model.ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		summaries = append(summaries, model.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			IsPinned:     conv.IsPinned,
			HasDocuments: len(conv.Documents) > 0,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].IsPinned != summaries[j].IsPinned {
			return summaries[i].IsPinned
		}
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries
}

// Get retrieves a conversation by ID.
func (s *Store) Get(id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *conv
	copied.Messages = append([]model.Message(nil), conv.Messages...)
	copied.IsFavorite = s.anyDocumentFavorited(conv)
	return &copied, nil
}

// Delete removes a conversation.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

// TogglePin flips a conversation's pinned state and returns the new
// state. Pinning does not count as an update, so it never reorders
// the recency sort within its group.
func (s *Store) TogglePin(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return false, ErrNotFound
	}
	conv.IsPinned = !conv.IsPinned
	return conv.IsPinned, nil
}

// Rename replaces a conversation's title.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.Title = title
	return nil
}

// Answer handles a query: it appends the question to the target
// conversation, creating one when the request carries no ID, produces
// an answer, and appends that too.
func (s *Store) Answer(ctx context.Context, req *model.QueryRequest) (*model.QueryResponse, error) {
	start := time.Now()
	now := time.Now()

	s.mu.Lock()
	conv, ok := s.conversations[req.ConversationID]
	if req.ConversationID != "" && !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !ok {
		conv = &model.Conversation{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Title:     titleFromQuery(req.Query),
			CreatedAt: now,
		}
		s.conversations[conv.ID] = conv
		metrics.ConversationsTotal.Inc()
	}

	conv.Messages = append(conv.Messages, model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Sender:         model.SenderUser,
		Content:        req.Query,
		Timestamp:      now,
	})
	metrics.MessagesTotal.WithLabelValues(string(model.SenderUser)).Inc()

	history := append([]model.Message(nil), conv.Messages...)
	docs := s.scopedDocuments(req.PDFContext)
	s.mu.Unlock()

	resp := s.buildAnswer(ctx, req, history, docs)

	s.mu.Lock()
	conv.Messages = append(conv.Messages, model.Message{
		ID:                uuid.Must(uuid.NewV7()).String(),
		ConversationID:    conv.ID,
		Sender:            model.SenderAssistant,
		Content:           resp.Answer,
		Citations:         resp.Citations,
		FollowUpQuestions: resp.FollowUpQuestions,
		Timestamp:         time.Now(),
	})
	conv.UpdatedAt = time.Now()
	conv.Documents = mergeDocuments(conv.Documents, resp.Citations)
	conv.Citations = resp.Citations
	conv.FollowUpQuestions = resp.FollowUpQuestions
	s.mu.Unlock()

	metrics.MessagesTotal.WithLabelValues(string(model.SenderAssistant)).Inc()
	scopeLabel := "global"
	if req.PDFContext != "" {
		scopeLabel = "document"
	}
	metrics.RecordQuery(scopeLabel, "ok", time.Since(start).Seconds())

	resp.ConversationID = conv.ID
	return resp, nil
}

// ToggleFavorite flips a document's favorite state.
func (s *Store) ToggleFavorite(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.favorites[filename]; ok {
		delete(s.favorites, filename)
		metrics.FavoriteTogglesTotal.WithLabelValues("removed").Inc()
		return false
	}
	s.favorites[filename] = time.Now()
	metrics.FavoriteTogglesTotal.WithLabelValues("added").Inc()
	return true
}

// Favorites returns all favorited documents, oldest first.
func (s *Store) Favorites() []model.FavoriteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.FavoriteEntry, 0, len(s.favorites))
	for name, at := range s.favorites {
		entries = append(entries, model.FavoriteEntry{Filename: name, CreatedAt: at})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries
}

// Library returns the document listing.
func (s *Store) Library() []model.DocumentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.DocumentInfo(nil), s.documents...)
}

// Status reports the server's boot identity and processing counts.
func (s *Store) Status() model.SystemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	processing := 0
	for _, d := range s.documents {
		if d.Status == model.DocumentStatusProcessing {
			processing++
		}
	}
	return model.SystemStatus{
		ServerInstanceID: s.instanceID,
		DocumentsTotal:   len(s.documents),
		Processing:       processing,
	}
}

// MarkReady flips any processing documents to ready. Used by tests and
// the dev loop to simulate indexing finishing.
func (s *Store) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].Status == model.DocumentStatusProcessing {
			s.documents[i].Status = model.DocumentStatusReady
		}
	}
}

// scopedDocuments returns the documents a query may draw from. Caller
// must hold at least a read lock.
func (s *Store) scopedDocuments(pdfContext string) []model.DocumentInfo {
	if pdfContext == "" {
		return append([]model.DocumentInfo(nil), s.documents...)
	}
	for _, d := range s.documents {
		if d.Filename == pdfContext {
			return []model.DocumentInfo{d}
		}
	}
	return nil
}

// anyDocumentFavorited reports whether a conversation touches a
// favorited document. Caller must hold at least a read lock.
func (s *Store) anyDocumentFavorited(conv *model.Conversation) bool {
	for _, doc := range conv.Documents {
		if _, ok := s.favorites[doc]; ok {
			return true
		}
	}
	return false
}

func (s *Store) buildAnswer(ctx context.Context, req *model.QueryRequest, history []model.Message, docs []model.DocumentInfo) *model.QueryResponse {
	if s.llm != nil {
		if resp, err := s.completeWithLLM(ctx, req, history, docs); err == nil {
			return resp
		} else {
			s.log.Warn("llm completion failed, falling back to synthesized answer", zap.Error(err))
		}
	}
	return synthesizeAnswer(req.Query, req.PDFContext, docs)
}

func titleFromQuery(query string) string {
	runes := []rune(query)
	if len(runes) <= titleLimit {
		return query
	}
	return string(runes[:titleLimit])
}

func mergeDocuments(existing []string, citations []model.Citation) []string {
	seen := make(map[string]bool, len(existing))
	for _, name := range existing {
		seen[name] = true
	}
	for _, c := range citations {
		if c.SourcePDF != "" && !seen[c.SourcePDF] {
			existing = append(existing, c.SourcePDF)
			seen[c.SourcePDF] = true
		}
	}
	return existing
}

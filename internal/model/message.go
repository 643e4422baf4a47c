package model

import (
	"time"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message represents a single exchange entry within a conversation.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id,omitempty"`

	Sender  Sender `json:"sender"`
	Content string `json:"content"`

	Citations         []Citation `json:"citations,omitempty"`
	FollowUpQuestions []string   `json:"follow_up_questions,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Citation points at a document passage backing part of an answer.
type Citation struct {
	SourcePDF       string   `json:"source_pdf"`
	PageNumbers     []int    `json:"page_numbers,omitempty"`
	PageNo          int      `json:"page_no,omitempty"`
	RelevanceScore  float64  `json:"relevance_score,omitempty"`
	SimilarityScore float64  `json:"similarity_score,omitempty"`
	TFIDFScore      float64  `json:"tfidf_score,omitempty"`
	KeywordCount    int      `json:"keyword_count,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	ChunkText       string   `json:"chunk_text,omitempty"`
}

// QueryRequest is the request to answer a question.
type QueryRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	PDFContext     string `json:"pdf_context,omitempty"`
}

// QueryResponse is the answer to a question.
type QueryResponse struct {
	Answer            string     `json:"answer"`
	Citations         []Citation `json:"citations,omitempty"`
	FollowUpQuestions []string   `json:"follow_up_questions,omitempty"`
	HasRelevantInfo   bool       `json:"has_relevant_info"`
	ScopedToDocument  string     `json:"scoped_to_document,omitempty"`
	ConfidenceScore   float64    `json:"confidence_score,omitempty"`
	ConversationID    string     `json:"conversation_id"`
}

package model

import (
	"time"
)

type ParentKind string

const (
	ParentKindQuestion    ParentKind = "question"
	ParentKindSubQuestion ParentKind = "sub_question"
)

// ParentRef identifies the parent of a node regardless of which of the two
// self-referential tables the parent lives in.
type ParentRef struct {
	Kind ParentKind `json:"kind"`
	ID   int64      `json:"id"`
}

// Question is a root-tier node. Depth is always 0 for true roots.
// ParentQuestionID is a legacy question-chain column: it is stored and
// returned but never written by any operation in this service.
type Question struct {
	ID               int64     `json:"id"`
	Text             string    `json:"text"`
	Answer           *string   `json:"answer,omitempty"`
	Number           int       `json:"number"`
	Count            int       `json:"count"`
	Depth            int       `json:"depth"`
	CategoryID       *int64    `json:"category_id,omitempty"`
	SubcategoryID    *int64    `json:"subcategory_id,omitempty"`
	ParentQuestionID *int64    `json:"parent_question_id,omitempty"`
	Author           *string   `json:"author,omitempty"`
	AuthorEdit       *string   `json:"author_edit,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SubQuestion is a nested node. For a well-formed row exactly one of
// ParentQuestionID and ParentSubQuestionID is set, and Depth equals the
// parent's depth plus one.
type SubQuestion struct {
	ID                  int64     `json:"id"`
	Text                string    `json:"text"`
	Answer              *string   `json:"answer,omitempty"`
	Number              int       `json:"number"`
	Count               int       `json:"count"`
	Depth               int       `json:"depth"`
	CategoryID          *int64    `json:"category_id,omitempty"`
	SubcategoryID       *int64    `json:"subcategory_id,omitempty"`
	ParentQuestionID    *int64    `json:"parent_question_id,omitempty"`
	ParentSubQuestionID *int64    `json:"parent_subquestion_id,omitempty"`
	Author              *string   `json:"author,omitempty"`
	AuthorEdit          *string   `json:"author_edit,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Parent returns the tagged parent reference of the row. The second return
// is false for a malformed row that names no parent at all.
func (sq *SubQuestion) Parent() (ParentRef, bool) {
	if sq.ParentSubQuestionID != nil {
		return ParentRef{Kind: ParentKindSubQuestion, ID: *sq.ParentSubQuestionID}, true
	}
	if sq.ParentQuestionID != nil {
		return ParentRef{Kind: ParentKindQuestion, ID: *sq.ParentQuestionID}, true
	}
	return ParentRef{}, false
}

// SubQuestionNode is a sub-question carrying its fully assembled children.
type SubQuestionNode struct {
	SubQuestion
	SubQuestions []*SubQuestionNode `json:"sub_questions"`
}

// QuestionResponse pairs a question with its assembled sub-question forest.
type QuestionResponse struct {
	Question
	SubQuestions []*SubQuestionNode `json:"sub_questions"`
}
